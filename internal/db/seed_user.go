package db

import (
	"context"
	"fmt"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSeedUser inserts the configured development user unless a user with
// the same email or user id already exists. Reports whether a row was added.
func EnsureSeedUser(ctx context.Context, pool *pgxpool.Pool, seed config.SeedUser) (bool, error) {
	if !seed.Enabled() {
		return false, nil
	}

	hash, err := security.HashPassword(seed.Password)

	if err != nil {
		return false, err
	}

	userID := seed.UserID
	if userID == "" {
		userID = uuid.NewString()
	}

	tag, err := pool.Exec(ctx,
		`INSERT INTO users (user_id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING`,
		userID, seed.Email, seed.Name, hash,
	)

	if err != nil {
		return false, fmt.Errorf("seed user: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
