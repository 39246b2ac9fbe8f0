package seed

import (
	"context"
	"errors"
	"fmt"

	"cutin/internal/domain"
	authsvc "cutin/internal/service/auth"
	merchantsvc "cutin/internal/service/merchant"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoPassword is shared by the seeded accounts.
const DemoPassword = "cutin-demo"

const (
	DemoMerchantEmail = "kitchen@cutin.dev"
	DemoCustomerEmail = "customer@cutin.dev"
)

type menuItemSeed struct {
	Name        string
	Description string
	Price       string
}

var demoMenu = []menuItemSeed{
	{Name: "Kota", Description: "Quarter loaf with chips, polony and cheese", Price: "45.00"},
	{Name: "Slap Chips", Description: "Large, with vinegar", Price: "25.50"},
	{Name: "Vetkoek", Description: "Mince filled", Price: "22.00"},
	{Name: "Coke 500ml", Price: "18.00"},
}

type registrar interface {
	Register(ctx context.Context, in authsvc.RegisterInput) (*domain.User, error)
}

type userLookup interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type merchantWriter interface {
	SaveProfile(ctx context.Context, merchantID string, in merchantsvc.ProfileInput) (*domain.Merchant, error)
	Menu(ctx context.Context, merchantID string) ([]domain.MenuItem, error)
	AddMenuItem(ctx context.Context, merchantID string, in merchantsvc.MenuItemInput) (*domain.MenuItem, error)
}

// Seeder creates demo accounts and a demo menu. Running it again only adds what is missing.
type Seeder struct {
	auth      registrar
	users     userLookup
	merchants merchantWriter
	logger    *zap.Logger
}

func New(auth registrar, users userLookup, merchants merchantWriter, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{auth: auth, users: users, merchants: merchants, logger: logger}
}

// Result lists what the seed run touched.
type Result struct {
	MerchantID string
	CustomerID string
	ItemsAdded int
}

func (s *Seeder) Apply(ctx context.Context) (Result, error) {
	var res Result
	merchant, err := s.ensureUser(ctx, DemoMerchantEmail, domain.RoleMerchant)
	if err != nil {
		return res, fmt.Errorf("ensure merchant: %w", err)
	}
	res.MerchantID = merchant.ID

	customer, err := s.ensureUser(ctx, DemoCustomerEmail, domain.RoleCustomer)
	if err != nil {
		return res, fmt.Errorf("ensure customer: %w", err)
	}
	res.CustomerID = customer.ID

	if _, err := s.merchants.SaveProfile(ctx, merchant.ID, merchantsvc.ProfileInput{
		ShopName: "Cutin Demo Kitchen",
		Address:  "1 Campus Road",
		Phone:    "+27 21 000 0000",
	}); err != nil {
		return res, fmt.Errorf("save profile: %w", err)
	}

	existing, err := s.merchants.Menu(ctx, merchant.ID)
	if err != nil {
		return res, fmt.Errorf("load menu: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, it := range existing {
		have[it.Name] = true
	}
	for _, it := range demoMenu {
		if have[it.Name] {
			continue
		}
		if _, err := s.merchants.AddMenuItem(ctx, merchant.ID, merchantsvc.MenuItemInput{
			Name:        it.Name,
			Description: it.Description,
			Price:       decimal.RequireFromString(it.Price),
		}); err != nil {
			return res, fmt.Errorf("add menu item %s: %w", it.Name, err)
		}
		res.ItemsAdded++
	}

	s.logger.Info("seed applied",
		zap.String("merchant_id", res.MerchantID),
		zap.String("customer_id", res.CustomerID),
		zap.Int("items_added", res.ItemsAdded),
	)
	return res, nil
}

func (s *Seeder) ensureUser(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.auth.Register(ctx, authsvc.RegisterInput{Email: email, Password: DemoPassword, Role: role})
}
