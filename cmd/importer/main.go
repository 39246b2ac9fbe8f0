package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"cutin/internal/config"
	"cutin/internal/db"
	"cutin/internal/domain"
	"cutin/internal/importer"
	"cutin/internal/logging"
	menurepo "cutin/internal/repository/menu"
	merchantrepo "cutin/internal/repository/merchant"
	userrepo "cutin/internal/repository/user"
	merchantsvc "cutin/internal/service/merchant"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath string
		email    string
	)
	flag.StringVar(&filePath, "file", "", "Path to a menu CSV (name,price,description,imageUrl,available)")
	flag.StringVar(&email, "merchant", "", "Email of the merchant account owning the menu")
	flag.Parse()

	if filePath == "" || email == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	owner, err := userrepo.NewPostgres(pool, logger).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		logger.Fatal("find merchant", zap.String("email", email), zap.Error(err))
	}
	if owner.Role != domain.RoleMerchant {
		logger.Fatal("account is not a merchant", zap.String("email", email))
	}

	f, err := os.Open(filePath)
	if err != nil {
		logger.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	menus := merchantsvc.New(merchantrepo.NewPostgres(pool, logger), menurepo.NewPostgres(pool, logger), nil, logger)
	imp := importer.NewCSVImporter(f, menus, owner.ID)

	start := time.Now()
	stats, err := imp.Run(ctx)
	if err != nil {
		logger.Fatal("import failed", zap.Int("added", stats.Added), zap.Int("updated", stats.Updated), zap.Error(err))
	}

	fmt.Printf("Imported menu for %s: %d added, %d updated in %s\n", email, stats.Added, stats.Updated, time.Since(start).Truncate(time.Millisecond))
}
