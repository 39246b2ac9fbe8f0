package main

import (
	"context"
	"log"

	"cutin/internal/config"
	"cutin/internal/db"
	"cutin/internal/logging"
	menurepo "cutin/internal/repository/menu"
	merchantrepo "cutin/internal/repository/merchant"
	tokenrepo "cutin/internal/repository/token"
	userrepo "cutin/internal/repository/user"
	"cutin/internal/seed"
	authsvc "cutin/internal/service/auth"
	merchantsvc "cutin/internal/service/merchant"
	"go.uber.org/zap"
)

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
	logger = logger.Named("seed")

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	users := userrepo.NewPostgres(pool, logger)
	merchants := merchantrepo.NewPostgres(pool, logger)
	auth := authsvc.New(users, merchants, tokenrepo.NewPostgres(pool), logger)
	merchantService := merchantsvc.New(merchants, menurepo.NewPostgres(pool, logger), nil, logger)

	res, err := seed.New(auth, users, merchantService, logger).Apply(ctx)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}
	logger.Info("demo accounts ready",
		zap.String("merchant", seed.DemoMerchantEmail),
		zap.String("customer", seed.DemoCustomerEmail),
		zap.String("password", seed.DemoPassword),
		zap.Int("items_added", res.ItemsAdded),
	)
}
