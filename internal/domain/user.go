package domain

import "time"

// Role separates customers from merchants.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleMerchant
}

// User is an account that can log in. Merchants share their user id with their merchant profile.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	PushToken    string    `json:"pushToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
