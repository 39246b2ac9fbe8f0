package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Merchant is the public profile of a restaurant or tuckshop.
type Merchant struct {
	ID        string    `json:"id"`
	ShopName  string    `json:"shopName"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	BannerURL string    `json:"bannerUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MenuItem is one entry of a merchant's menu.
type MenuItem struct {
	ID          string          `json:"id"`
	MerchantID  string          `json:"merchantId"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}
