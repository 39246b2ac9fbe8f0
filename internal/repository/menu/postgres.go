package menu

import (
	"context"
	"errors"
	"fmt"

	"cutin/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const itemColumns = `id::text, merchant_id::text, name, description, price::text, image_url, available, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	q := `
INSERT INTO menu_items (merchant_id, name, description, price, image_url, available)
VALUES ($1, $2, $3, $4::numeric, $5, $6)
RETURNING ` + itemColumns
	out, err := scanItem(r.pool.QueryRow(ctx, q, item.MerchantID, item.Name, item.Description, item.Price.String(), item.ImageURL, item.Available))
	if err != nil {
		r.logger.Error("menu repo: create failed", zap.String("merchant_id", item.MerchantID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) ListByMerchant(ctx context.Context, merchantID string) ([]domain.MenuItem, error) {
	q := `SELECT ` + itemColumns + ` FROM menu_items WHERE merchant_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, q, merchantID)
	if err != nil {
		r.logger.Error("menu repo: list failed", zap.String("merchant_id", merchantID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.MenuItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) Get(ctx context.Context, merchantID, id string) (*domain.MenuItem, error) {
	q := `SELECT ` + itemColumns + ` FROM menu_items WHERE merchant_id = $1 AND id = $2`
	it, err := scanItem(r.pool.QueryRow(ctx, q, merchantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return it, nil
}

func (r *postgresRepo) Update(ctx context.Context, item domain.MenuItem) (*domain.MenuItem, error) {
	q := `
UPDATE menu_items
SET name = $3, description = $4, price = $5::numeric, image_url = $6, available = $7, updated_at = now()
WHERE merchant_id = $1 AND id = $2
RETURNING ` + itemColumns
	out, err := scanItem(r.pool.QueryRow(ctx, q, item.MerchantID, item.ID, item.Name, item.Description, item.Price.String(), item.ImageURL, item.Available))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("menu repo: update failed", zap.String("item_id", item.ID), zap.Error(err))
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Delete(ctx context.Context, merchantID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM menu_items WHERE merchant_id = $1 AND id = $2`, merchantID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanItem(row pgx.Row) (*domain.MenuItem, error) {
	var it domain.MenuItem
	var price string
	if err := row.Scan(&it.ID, &it.MerchantID, &it.Name, &it.Description, &price, &it.ImageURL, &it.Available, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("menu repo: parse price %q: %w", price, err)
	}
	it.Price = p
	return &it, nil
}
