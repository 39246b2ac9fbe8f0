package menu

import (
	"context"

	"cutin/internal/domain"
)

// Repository persists menu items. Every lookup is scoped to the owning merchant.
type Repository interface {
	Create(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]domain.MenuItem, error)
	Get(ctx context.Context, merchantID, id string) (*domain.MenuItem, error)
	Update(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error)
	Delete(ctx context.Context, merchantID, id string) error
}
