// Command createadmin seeds an administrative account. The password is read
// from ADMIN_PASSWORD so it never lands in shell history.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/noah-isme/elective-portal-api/internal/models"
	"github.com/noah-isme/elective-portal-api/internal/repository"
	"github.com/noah-isme/elective-portal-api/internal/service"
	"github.com/noah-isme/elective-portal-api/pkg/config"
	"github.com/noah-isme/elective-portal-api/pkg/database"
	"github.com/noah-isme/elective-portal-api/pkg/logger"
)

func main() {
	email := flag.String("email", "", "admin email")
	name := flag.String("name", "", "admin full name")
	role := flag.String("role", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	flag.Parse()

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

	auth := service.NewAuthService(repository.NewUserRepository(db), repository.NewStudentRepository(db), nil, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
	})
	user, err := auth.CreateAdmin(ctx, models.CreateAdminRequest{
		Email:    *email,
		Password: os.Getenv("ADMIN_PASSWORD"),
		FullName: *name,
		Role:     models.UserRole(*role),
	})
	if err != nil {
		logr.Fatal("create admin failed", zap.Error(err))
	}
	logr.Info("admin ready", zap.String("user_id", user.ID), zap.String("email", user.Email))
}
