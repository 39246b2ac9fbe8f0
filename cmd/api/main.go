package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cutin/internal/cart"
	"cutin/internal/config"
	"cutin/internal/db"
	"cutin/internal/httpserver"
	"cutin/internal/images"
	"cutin/internal/logging"
	"cutin/internal/metrics"
	"cutin/internal/orderfeed"
	"cutin/internal/repository/cartsnapshot"
	menurepo "cutin/internal/repository/menu"
	merchantrepo "cutin/internal/repository/merchant"
	orderrepo "cutin/internal/repository/order"
	tokenrepo "cutin/internal/repository/token"
	userrepo "cutin/internal/repository/user"
	authsvc "cutin/internal/service/auth"
	financesvc "cutin/internal/service/finance"
	merchantsvc "cutin/internal/service/merchant"
	ordersvc "cutin/internal/service/order"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const tokenPurgeInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	vatRate, err := decimal.NewFromString(cfg.VATRate)
	if err != nil {
		logger.Fatal("parse VAT_RATE", zap.String("value", cfg.VATRate), zap.Error(err))
	}

	m := metrics.New()
	storage, closeStorage := cartStorage(ctx, cfg, dbpool, logger)
	defer closeStorage()
	carts := cart.NewRegistry(storage, cfg.CartStorageKey, logger.Named("cart"),
		cart.WithDebounce(cfg.CartDebounce),
		cart.WithPersistHook(m.CartPersistFailed),
		cart.WithRestoreHook(m.CartRestoreFailed),
	)

	imageStore, err := images.NewLocalStore(cfg.ImageDir, strings.TrimRight(cfg.FileURLHost, "/")+"/files")
	if err != nil {
		logger.Fatal("init image store", zap.Error(err))
	}

	merchants := merchantrepo.NewPostgres(dbpool, logger)
	authService := authsvc.New(userrepo.NewPostgres(dbpool, logger), merchants, tokenrepo.NewPostgres(dbpool), logger.Named("auth"))
	merchantService := merchantsvc.New(merchants, menurepo.NewPostgres(dbpool, logger), imageStore, logger.Named("merchant"))
	hub := orderfeed.NewHub(logger.Named("orderfeed"))
	orderService := ordersvc.New(orderrepo.NewPostgres(dbpool, logger), hub, vatRate, logger.Named("order"))
	financeService := financesvc.New(orderService, time.Local)

	go purgeTokens(ctx, authService, logger)
	go sweepCarts(ctx, carts, cfg.CartIdle, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Auth:        authService,
		Merchants:   merchantService,
		Orders:      orderService,
		Finance:     financeService,
		Carts:       carts,
		Feed:        hub,
		Metrics:     m,
		FileDir:     imageStore.Dir(),
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := carts.CloseAll(shutdownCtx); err != nil {
		logger.Error("flush carts", zap.Error(err))
	}
	logger.Info("server stopped")
}

// cartStorage picks Redis when REDIS_ADDR is set and reachable, Postgres otherwise.
func cartStorage(ctx context.Context, cfg config.Config, pool *pgxpool.Pool, logger *zap.Logger) (cart.Storage, func()) {
	if cfg.RedisAddr == "" {
		return cartsnapshot.NewPostgres(pool, logger), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, keeping carts in postgres", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
		return cartsnapshot.NewPostgres(pool, logger), func() {}
	}
	logger.Info("cart snapshots in redis", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CartTTL))
	return cartsnapshot.NewRedis(client, cfg.CartTTL), func() { _ = client.Close() }
}

func purgeTokens(ctx context.Context, auth *authsvc.Service, logger *zap.Logger) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		if err := auth.PurgeExpiredTokens(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("purge expired tokens", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sweepCarts releases carts nobody touched for idle; their snapshots stay in storage.
func sweepCarts(ctx context.Context, carts *cart.Registry, idle time.Duration, logger *zap.Logger) {
	if idle <= 0 {
		return
	}
	interval := idle / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := carts.EvictIdle(ctx, idle)
		if err != nil && ctx.Err() == nil {
			logger.Warn("evict idle carts", zap.Error(err))
		}
		if n > 0 {
			logger.Info("idle carts released", zap.Int("count", n), zap.Int("open", carts.Len()))
		}
	}
}
