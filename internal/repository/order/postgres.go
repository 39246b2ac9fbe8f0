package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

const orderColumns = `id::text, order_number, customer_id::text, customer_email, merchant_id::text, merchant_name,
       items, subtotal::text, vat::text, total::text, status, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, o domain.Order) (*domain.Order, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return nil, err
	}
	q := `
INSERT INTO orders (order_number, customer_id, customer_email, merchant_id, merchant_name, items, subtotal, vat, total, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9::numeric, $10, $11, $11)
RETURNING ` + orderColumns
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	out, err := scanOrder(r.pool.QueryRow(ctx, q,
		o.OrderNumber,
		o.CustomerID,
		o.CustomerEmail,
		o.MerchantID,
		o.MerchantName,
		items,
		o.Subtotal.String(),
		o.VAT.String(),
		o.Total.String(),
		string(o.Status),
		createdAt,
	))
	if err != nil {
		r.logger.Error("order repo: create failed", zap.String("order_number", o.OrderNumber), zap.Error(err))
		return nil, err
	}
	r.logger.Debug("order repo: created", zap.String("order_id", out.ID), zap.String("order_number", out.OrderNumber))
	return out, nil
}

func (r *postgresRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, customerID)
}

func (r *postgresRepo) ListByMerchant(ctx context.Context, merchantID string, since time.Time) ([]domain.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE merchant_id = $1 AND created_at >= $2 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, merchantID, since)
}

func (r *postgresRepo) SetStatus(ctx context.Context, merchantID, id string, status, expect domain.OrderStatus) (*domain.Order, error) {
	q := `
UPDATE orders SET status = $3, updated_at = now()
WHERE merchant_id = $1 AND id = $2 AND ($4 = '' OR status = $4)
RETURNING ` + orderColumns
	o, err := scanOrder(r.pool.QueryRow(ctx, q, merchantID, id, string(status), string(expect)))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("order repo: set status failed", zap.String("order_id", id), zap.Error(err))
		return nil, err
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE merchant_id = $1 AND id = $2)`, merchantID, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrInvalidTransition
	}
	return nil, domain.ErrNotFound
}

func (r *postgresRepo) list(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("order repo: list failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var items []byte
	var subtotal, vat, total, status string
	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.CustomerID,
		&o.CustomerEmail,
		&o.MerchantID,
		&o.MerchantName,
		&items,
		&subtotal,
		&vat,
		&total,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("order repo: decode items id=%s: %w", o.ID, err)
	}
	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, err
	}
	if o.VAT, err = decimal.NewFromString(vat); err != nil {
		return nil, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
