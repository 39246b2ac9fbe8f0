package finance

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cutin/internal/domain"
	"github.com/shopspring/decimal"
)

// Range is a dashboard reporting window.
type Range string

const (
	RangeWeekly  Range = "Weekly"
	RangeMonthly Range = "Monthly"
	Range3Months Range = "3 Months"
	Range6Months Range = "6 Months"
)

// Ranges lists the supported dashboard windows in display order.
var Ranges = []Range{RangeWeekly, RangeMonthly, Range3Months, Range6Months}

// ParseRange accepts a dashboard window name; empty means Weekly.
func ParseRange(v string) (Range, error) {
	if v == "" {
		return RangeWeekly, nil
	}
	for _, r := range Ranges {
		if string(r) == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: range must be one of %v", domain.ErrInvalidInput, Ranges)
}

// Since returns the start of the window ending at now.
func (r Range) Since(now time.Time) time.Time {
	switch r {
	case RangeMonthly:
		return now.AddDate(0, -1, 0)
	case Range3Months:
		return now.AddDate(0, -3, 0)
	case Range6Months:
		return now.AddDate(0, -6, 0)
	default:
		return now.AddDate(0, 0, -7)
	}
}

type orderLister interface {
	ListForMerchantSince(ctx context.Context, merchantID string, since time.Time) ([]domain.Order, error)
}

// Service reports merchant revenue.
type Service struct {
	orders orderLister
	now    func() time.Time
	loc    *time.Location
}

// New creates a Service. Calendar days and months are evaluated in loc.
func New(orders orderLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{orders: orders, now: time.Now, loc: loc}
}

// ItemEarning is the revenue of one menu item name.
type ItemEarning struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is revenue over the last three months.
type Summary struct {
	Today  decimal.Decimal `json:"today"`
	Week   decimal.Decimal `json:"week"`
	Month  decimal.Decimal `json:"month"`
	Orders int             `json:"orders"`
	Items  []ItemEarning   `json:"items"`
}

// Summary adds up order totals for today, the last seven days and the current
// calendar month, plus item earnings over the last three months.
func (s *Service) Summary(ctx context.Context, merchantID string) (*Summary, error) {
	now := s.now().In(s.loc)
	orders, err := s.orders.ListForMerchantSince(ctx, merchantID, now.AddDate(0, -3, 0))
	if err != nil {
		return nil, err
	}

	out := &Summary{Today: decimal.Zero, Week: decimal.Zero, Month: decimal.Zero, Orders: len(orders)}
	y, m, d := now.Date()
	byName := map[string]decimal.Decimal{}
	for _, o := range orders {
		at := o.CreatedAt.In(s.loc)
		oy, om, od := at.Date()
		if oy == y && om == m && od == d {
			out.Today = out.Today.Add(o.Total)
		}
		if now.Sub(at) <= 7*24*time.Hour {
			out.Week = out.Week.Add(o.Total)
		}
		if oy == y && om == m {
			out.Month = out.Month.Add(o.Total)
		}
		for _, it := range o.Items {
			byName[it.Name] = byName[it.Name].Add(it.Price.Mul(decimal.NewFromInt(int64(it.Qty))))
		}
	}

	out.Items = make([]ItemEarning, 0, len(byName))
	for name, amount := range byName {
		out.Items = append(out.Items, ItemEarning{Name: name, Amount: amount})
	}
	sort.Slice(out.Items, func(i, j int) bool {
		if c := out.Items[i].Amount.Cmp(out.Items[j].Amount); c != 0 {
			return c > 0
		}
		return out.Items[i].Name < out.Items[j].Name
	})
	return out, nil
}

// Dashboard summarises orders placed within a window.
type Dashboard struct {
	Range     Range           `json:"range"`
	Since     time.Time       `json:"since"`
	Orders    int             `json:"orders"`
	Pending   int             `json:"pending"`
	Preparing int             `json:"preparing"`
	Completed int             `json:"completed"`
	Customers int             `json:"customers"`
	Revenue   decimal.Decimal `json:"revenue"`
	Recent    []domain.Order  `json:"recent"`
}

const recentLimit = 10

func (s *Service) Dashboard(ctx context.Context, merchantID string, r Range) (*Dashboard, error) {
	since := r.Since(s.now().In(s.loc))
	orders, err := s.orders.ListForMerchantSince(ctx, merchantID, since)
	if err != nil {
		return nil, err
	}
	out := &Dashboard{Range: r, Since: since, Orders: len(orders), Revenue: decimal.Zero}
	customers := map[string]struct{}{}
	for _, o := range orders {
		out.Revenue = out.Revenue.Add(o.Total)
		customers[o.CustomerEmail] = struct{}{}
		switch o.Status {
		case domain.OrderPending:
			out.Pending++
		case domain.OrderPreparing:
			out.Preparing++
		case domain.OrderCompleted:
			out.Completed++
		}
	}
	out.Customers = len(customers)
	if len(orders) > recentLimit {
		orders = orders[:recentLimit]
	}
	out.Recent = orders
	return out, nil
}

// Profit is the result of the price calculator.
type Profit struct {
	Profit decimal.Decimal `json:"profit"`
	Margin decimal.Decimal `json:"margin"`
}

// CalculateProfit returns sell minus cost and the margin as a percentage of
// sell, rounded to one decimal. The margin is zero when sell is not positive.
func CalculateProfit(sell, cost decimal.Decimal) Profit {
	p := sell.Sub(cost)
	margin := decimal.Zero
	if sell.IsPositive() {
		margin = p.Div(sell).Mul(decimal.NewFromInt(100)).Round(1)
	}
	return Profit{Profit: p, Margin: margin}
}
