package db

import (
	"context"
	"log/slog"
	"strings"

	"hrreview/internal/platform/config"
)

// AdminSeeder creates the bootstrap administrator when no account with that
// email exists yet.
type AdminSeeder interface {
	EnsureAdmin(ctx context.Context, email, password string) (bool, error)
}

// Seed provisions the bootstrap administrator. It works against either store
// driver.
func Seed(ctx context.Context, accounts AdminSeeder, cfg config.Config) error {
	if strings.TrimSpace(cfg.SeedAdminEmail) == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}
	created, err := accounts.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	if created {
		slog.Info("seeded admin user", "email", cfg.SeedAdminEmail)
	}
	return nil
}
