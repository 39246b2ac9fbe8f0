package cartsnapshot

import (
	"context"
	"errors"

	"cutin/internal/cart"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var (
	_ cart.Storage = (*PostgresStorage)(nil)
	_ cart.Deleter = (*PostgresStorage)(nil)
)

// PostgresStorage keeps cart snapshots in the cart_snapshots table.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a cart.Storage backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) *PostgresStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStorage{pool: pool, logger: logger}
}

func (r *PostgresStorage) Load(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT data::text FROM cart_snapshots WHERE key = $1`
	var data string
	if err := r.pool.QueryRow(ctx, q, key).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrSnapshotNotFound
		}
		r.logger.Warn("cart snapshot load failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return []byte(data), nil
}

func (r *PostgresStorage) Save(ctx context.Context, key string, data []byte) error {
	const q = `
INSERT INTO cart_snapshots (key, data, updated_at)
VALUES ($1, $2::jsonb, now())
ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()
`
	_, err := r.pool.Exec(ctx, q, key, string(data))
	return err
}

func (r *PostgresStorage) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_snapshots WHERE key = $1`, key)
	return err
}
