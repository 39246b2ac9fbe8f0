package merchant

import (
	"context"
	"errors"

	"cutin/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
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

const merchantColumns = `id::text, shop_name, address, phone, banner_url, created_at, updated_at`

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Merchant, error) {
	q := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`
	m, err := scanMerchant(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("merchant repo: get failed", zap.String("merchant_id", id), zap.Error(err))
		return nil, err
	}
	return m, nil
}

func (r *postgresRepo) Upsert(ctx context.Context, m domain.Merchant) (*domain.Merchant, error) {
	q := `
INSERT INTO merchants (id, shop_name, address, phone, banner_url)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    shop_name = EXCLUDED.shop_name,
    address = EXCLUDED.address,
    phone = EXCLUDED.phone,
    banner_url = EXCLUDED.banner_url,
    updated_at = now()
RETURNING ` + merchantColumns
	out, err := scanMerchant(r.pool.QueryRow(ctx, q, m.ID, m.ShopName, m.Address, m.Phone, m.BannerURL))
	if err != nil {
		r.logger.Error("merchant repo: upsert failed", zap.String("merchant_id", m.ID), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("merchant repo: upserted", zap.String("merchant_id", out.ID))
	return out, nil
}

func (r *postgresRepo) List(ctx context.Context, limit int) ([]domain.Merchant, error) {
	q := `SELECT ` + merchantColumns + ` FROM merchants ORDER BY shop_name ASC, id ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		r.logger.Error("merchant repo: list failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var result []domain.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("merchant repo: list", zap.Int("count", len(result)))
	return result, nil
}

func scanMerchant(row pgx.Row) (*domain.Merchant, error) {
	var m domain.Merchant
	if err := row.Scan(&m.ID, &m.ShopName, &m.Address, &m.Phone, &m.BannerURL, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
