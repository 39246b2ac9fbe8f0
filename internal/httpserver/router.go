package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cutin/internal/cart"
	"cutin/internal/domain"
	"cutin/internal/metrics"
	authsvc "cutin/internal/service/auth"
	financesvc "cutin/internal/service/finance"
	merchantsvc "cutin/internal/service/merchant"
	ordersvc "cutin/internal/service/order"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type authService interface {
	Register(ctx context.Context, in authsvc.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, string, error)
	LookupByToken(ctx context.Context, token string) (*domain.User, error)
	Refresh(ctx context.Context, refresh string) (string, string, error)
	Logout(ctx context.Context, userID string) error
	SetPushToken(ctx context.Context, userID, token string) error
	AccessTTLSeconds() int
}

type merchantService interface {
	SaveProfile(ctx context.Context, merchantID string, in merchantsvc.ProfileInput) (*domain.Merchant, error)
	GetProfile(ctx context.Context, merchantID string) (*domain.Merchant, error)
	List(ctx context.Context) ([]domain.Merchant, error)
	Search(ctx context.Context, term string) ([]domain.Merchant, error)
	AddMenuItem(ctx context.Context, merchantID string, in merchantsvc.MenuItemInput) (*domain.MenuItem, error)
	Menu(ctx context.Context, merchantID string) ([]domain.MenuItem, error)
	PublicMenu(ctx context.Context, merchantID string) ([]domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, merchantID, itemID string, patch merchantsvc.MenuItemPatch) (*domain.MenuItem, error)
	SetAvailability(ctx context.Context, merchantID, itemID string, available bool) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, merchantID, itemID string) error
	UploadImage(ctx context.Context, merchantID string, kind merchantsvc.ImageKind, data []byte) (string, error)
}

type orderService interface {
	Checkout(ctx context.Context, buyer domain.User, cart ordersvc.CartSource) (*domain.Order, error)
	ListForCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListForMerchant(ctx context.Context, merchantID string) ([]domain.Order, error)
	Advance(ctx context.Context, merchantID, orderID string) (*domain.Order, error)
	SetStatus(ctx context.Context, merchantID, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

type financeService interface {
	Summary(ctx context.Context, merchantID string) (*financesvc.Summary, error)
	Dashboard(ctx context.Context, merchantID string, r financesvc.Range) (*financesvc.Dashboard, error)
}

type cartRegistry interface {
	Get(ctx context.Context, owner string) *cart.Store
	Evict(ctx context.Context, owner string) error
}

type orderFeed interface {
	Serve(w http.ResponseWriter, r *http.Request, merchantID string)
}

// Deps holds the services behind the API.
type Deps struct {
	Auth      authService
	Merchants merchantService
	Orders    orderService
	Finance   financeService
	Carts     cartRegistry
	Feed      orderFeed
	Metrics   *metrics.Metrics
	// FileDir is served read-only under /files.
	FileDir     string
	CORSOrigins []string
}

func (d Deps) validate() error {
	switch {
	case d.Auth == nil:
		return errors.New("auth service required")
	case d.Merchants == nil:
		return errors.New("merchant service required")
	case d.Orders == nil:
		return errors.New("order service required")
	case d.Finance == nil:
		return errors.New("finance service required")
	case d.Carts == nil:
		return errors.New("cart registry required")
	}
	return nil
}

type handler struct {
	deps    Deps
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db *pgxpool.Pool, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	h := &handler{deps: deps, metrics: m, logger: logger}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger).Writer()), gin.Recovery(), m.Middleware())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	}

	var ready pinger
	if db != nil {
		ready = db
	}
	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(ready))
	router.GET("/metrics", gin.WrapH(m.Handler()))
	if deps.FileDir != "" {
		router.Static("/files", deps.FileDir)
	}

	router.POST("/auth/register", h.register)
	router.POST("/auth/login", h.login)
	router.POST("/auth/refresh", h.refresh)
	router.GET("/merchants", h.listMerchants)
	router.GET("/merchants/search", h.searchMerchants)
	router.GET("/merchants/:id", h.getMerchant)
	router.GET("/merchants/:id/menu", h.merchantMenu)

	authed := router.Group("/", h.authenticate)
	authed.GET("/me", h.me)
	authed.POST("/auth/logout", h.logout)
	authed.PUT("/me/push-token", h.setPushToken)

	customer := authed.Group("/", requireRole(domain.RoleCustomer))
	customer.GET("/cart", h.getCart)
	customer.POST("/cart/items", h.addCartItem)
	customer.POST("/cart/conflict", h.resolveCartConflict)
	customer.PATCH("/cart/items/:id", h.changeCartQty)
	customer.DELETE("/cart/items/:id", h.removeCartItem)
	customer.DELETE("/cart", h.clearCart)
	customer.POST("/checkout", h.checkout)
	customer.GET("/orders", h.customerOrders)

	merchant := authed.Group("/merchant", requireRole(domain.RoleMerchant))
	merchant.GET("/profile", h.getProfile)
	merchant.PUT("/profile", h.saveProfile)
	merchant.POST("/images", h.uploadImage)
	merchant.GET("/menu", h.getMenu)
	merchant.POST("/menu", h.addMenuItem)
	merchant.PATCH("/menu/:itemId", h.updateMenuItem)
	merchant.DELETE("/menu/:itemId", h.deleteMenuItem)
	merchant.PUT("/menu/:itemId/availability", h.setAvailability)
	merchant.GET("/orders", h.merchantOrders)
	merchant.POST("/orders/:id/advance", h.advanceOrder)
	merchant.PUT("/orders/:id/status", h.setOrderStatus)
	merchant.GET("/orders/feed", h.followOrders)
	merchant.GET("/finances", h.finances)
	merchant.GET("/dashboard", h.dashboard)
	merchant.GET("/profit", h.profit)

	return router, nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.MaxAge = 12 * time.Hour
	if len(origins) == 1 && origins[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
