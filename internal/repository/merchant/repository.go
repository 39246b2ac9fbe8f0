package merchant

import (
	"context"

	"cutin/internal/domain"
)

// Repository persists merchant profiles. Profile ids equal the owning user's id.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Merchant, error)
	Upsert(ctx context.Context, m domain.Merchant) (*domain.Merchant, error)
	List(ctx context.Context, limit int) ([]domain.Merchant, error)
}
