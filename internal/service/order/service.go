package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cutin/internal/domain"
	"cutin/internal/orderfeed"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultVATRate is the VAT added on top of the cart subtotal.
var DefaultVATRate = decimal.RequireFromString("0.15")

type orderRepo interface {
	Create(ctx context.Context, o domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListByMerchant(ctx context.Context, merchantID string, since time.Time) ([]domain.Order, error)
	SetStatus(ctx context.Context, merchantID, id string, status, expect domain.OrderStatus) (*domain.Order, error)
}

// CartSource is the customer's cart as seen by checkout.
type CartSource interface {
	Checkpoint() (domain.CartState, uint64)
	Consume(rev uint64, merchantID string, ordered []domain.CartItem) domain.CartState
}

type publisher interface {
	Publish(ev orderfeed.Event)
}

// Service turns carts into orders and moves orders through their statuses.
type Service struct {
	repo    orderRepo
	feed    publisher
	vatRate decimal.Decimal
	logger  *zap.Logger
	now     func() time.Time

	newNumber func(time.Time) string
	checkouts singleflight.Group // one checkout in flight per customer
}

func New(repo orderRepo, feed publisher, vatRate decimal.Decimal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vatRate.IsNegative() {
		vatRate = DefaultVATRate
	}
	return &Service{repo: repo, feed: feed, vatRate: vatRate, logger: logger, now: time.Now, newNumber: OrderNumber}
}

// Checkout submits the cart as a pay-in-store order and takes the ordered
// lines out of the cart. When the order cannot be stored the cart is left
// untouched. Concurrent checkouts by the same customer share one order.
func (s *Service) Checkout(ctx context.Context, buyer domain.User, cart CartSource) (*domain.Order, error) {
	if buyer.Role != domain.RoleCustomer {
		return nil, domain.ErrForbidden
	}
	v, err, shared := s.checkouts.Do(buyer.ID, func() (interface{}, error) {
		return s.checkout(ctx, buyer, cart)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("concurrent checkout joined", zap.String("customer_id", buyer.ID))
	}
	return v.(*domain.Order), nil
}

func (s *Service) checkout(ctx context.Context, buyer domain.User, cart CartSource) (*domain.Order, error) {
	st, rev := cart.Checkpoint()
	if len(st.Items) == 0 || st.MerchantID == nil {
		return nil, domain.ErrEmptyCart
	}

	now := s.now()
	subtotal := st.Total()
	vat := subtotal.Mul(s.vatRate).Round(2)
	o := domain.Order{
		OrderNumber:   s.newNumber(now),
		CustomerID:    buyer.ID,
		CustomerEmail: buyer.Email,
		MerchantID:    *st.MerchantID,
		Items:         st.Items,
		Subtotal:      subtotal,
		VAT:           vat,
		Total:         subtotal.Add(vat),
		Status:        domain.OrderPending,
		CreatedAt:     now.UTC(),
	}
	if st.MerchantName != nil {
		o.MerchantName = *st.MerchantName
	}

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return nil, fmt.Errorf("submit order: %w", err)
	}
	if left := cart.Consume(rev, *st.MerchantID, st.Items); len(left.Items) > 0 {
		s.logger.Info("cart changed during checkout, keeping new lines",
			zap.String("order_id", created.ID), zap.Int("lines_left", len(left.Items)))
	}
	s.publish(orderfeed.EventCreated, created)
	s.logger.Info("order placed",
		zap.String("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.String("merchant_id", created.MerchantID),
		zap.String("total", created.Total.StringFixed(2)))
	return created, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *Service) ListForMerchant(ctx context.Context, merchantID string) ([]domain.Order, error) {
	return s.repo.ListByMerchant(ctx, merchantID, time.Time{})
}

// ListForMerchantSince returns the merchant's orders created at or after since.
func (s *Service) ListForMerchantSince(ctx context.Context, merchantID string, since time.Time) ([]domain.Order, error) {
	return s.repo.ListByMerchant(ctx, merchantID, since)
}

// Advance moves an order one step: Pending, Preparing, Completed.
func (s *Service) Advance(ctx context.Context, merchantID, orderID string) (*domain.Order, error) {
	current, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.MerchantID != merchantID {
		return nil, domain.ErrNotFound
	}
	next, ok := current.Status.Next()
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	updated, err := s.repo.SetStatus(ctx, merchantID, orderID, next, current.Status)
	if err != nil {
		return nil, err
	}
	s.publish(orderfeed.EventStatusChanged, updated)
	return updated, nil
}

// SetStatus forces an order into status.
func (s *Service) SetStatus(ctx context.Context, merchantID, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be Pending, Preparing or Completed", domain.ErrInvalidInput)
	}
	updated, err := s.repo.SetStatus(ctx, merchantID, orderID, status, "")
	if err != nil {
		return nil, err
	}
	s.publish(orderfeed.EventStatusChanged, updated)
	return updated, nil
}

func (s *Service) publish(t orderfeed.EventType, o *domain.Order) {
	if s.feed == nil || o == nil {
		return
	}
	s.feed.Publish(orderfeed.Event{Type: t, Order: *o})
}

// OrderNumber formats the human-friendly order number ORD-YYYYMMDD-HHMMSS-XXXX.
// The random suffix tells apart orders placed within the same second.
func OrderNumber(t time.Time) string {
	return orderNumber(t, uuid.NewString())
}

func orderNumber(t time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return "ORD-" + t.Format("20060102-150405") + "-" + suffix
}
