package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ems/internal/domain/auth"
	"ems/internal/platform/config"
)

// Seed makes sure SEED_ADMIN_EMAIL exists with the admin role. An existing
// account keeps its password; only its role is raised.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, log *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" || strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return nil
	}
	if log == nil {
		log = zap.NewNop()
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	var inserted bool
	err = pool.QueryRow(ctx, `
    INSERT INTO users (email, display_name, password_hash, role)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (email) DO UPDATE SET role = EXCLUDED.role
    WHERE users.role <> EXCLUDED.role
    RETURNING xmax = 0
  `, email, cfg.SeedAdminName, hash, auth.RoleAdmin).Scan(&inserted)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	case err != nil:
		return err
	case inserted:
		log.Info("seed admin created", zap.String("email", email))
	default:
		log.Info("seed admin promoted", zap.String("email", email))
	}
	return nil
}
