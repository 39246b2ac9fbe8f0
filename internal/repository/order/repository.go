package order

import (
	"context"
	"time"

	"cutin/internal/domain"
)

// Repository persists submitted orders.
type Repository interface {
	// Create stores o and returns it with the generated id and timestamps.
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	// ListByMerchant returns the merchant's orders created at or after since, newest first.
	// A zero since returns every order.
	ListByMerchant(ctx context.Context, merchantID string, since time.Time) ([]domain.Order, error)
	// SetStatus moves a merchant's order to status. When expect is not empty the
	// update only applies while the order is still in expect; otherwise
	// ErrInvalidTransition is returned.
	SetStatus(ctx context.Context, merchantID, id string, status, expect domain.OrderStatus) (*domain.Order, error)
}
