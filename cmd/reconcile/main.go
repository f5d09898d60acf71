// Command reconcile recomputes every elective's enrolled count from its
// active selections and prints the electives that drifted.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/repository"
	"github.com/noah-isme/elective-portal-api/internal/service"
	"github.com/noah-isme/elective-portal-api/pkg/cache"
	"github.com/noah-isme/elective-portal-api/pkg/config"
	"github.com/noah-isme/elective-portal-api/pkg/database"
	"github.com/noah-isme/elective-portal-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	var cacheRepo service.CacheRepository
	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache will expire on its own", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, cfg.Redis.KeyPrefix, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, nil, cfg.Catalog.CacheTTL, logr, cacheRepo != nil)

	users := repository.NewUserRepository(db)
	reconciler := service.NewReconcileService(repository.NewSelectionRepository(db), cacheSvc, users, logr)

	report, err := reconciler.Run(ctx, nil)
	if err != nil {
		logr.Fatal("reconcile failed", zap.Error(err))
	}
	for _, d := range report.Drifted {
		logr.Info("counter corrected",
			zap.String("elective_id", d.ElectiveID),
			zap.String("name", d.Name),
			zap.Int("before", d.Before),
			zap.Int("after", d.After))
	}
	logr.Info("reconcile finished", zap.Int("checked", report.Checked), zap.Int("drifted", len(report.Drifted)))
}
