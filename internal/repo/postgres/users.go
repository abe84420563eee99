package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Observer times a logical DB operation. observability.Prom satisfies it.
type Observer interface {
	ObserveDB(op string, fn func() error) error
}

type noopObserver struct{}

func (noopObserver) ObserveDB(_ string, fn func() error) error { return fn() }

const userColumns = `id, user_id, email, name, password_hash, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	obs  Observer
}

func NewUsersRepo(pool *pgxpool.Pool, obs Observer) *UsersRepo {
	if obs == nil {
		obs = noopObserver{}
	}
	return &UsersRepo{pool: pool, obs: obs}
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

// GetByLogin matches either the email or the external user id in one lookup.
// An exact email match wins if the identifier happens to hit two rows.
func (r *UsersRepo) GetByLogin(ctx context.Context, identifier string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.get_by_login", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE email = $1 OR user_id = $1
			ORDER BY (email = $1) DESC
			LIMIT 1`,
			identifier,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id int64) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.get_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`,
			id,
		))
		return err
	})

	return u, err
}

// UpdateName writes and reads back in one statement so concurrent updates
// cannot interleave between a read and a write.
func (r *UsersRepo) UpdateName(ctx context.Context, id int64, name string) (user.User, error) {
	var u user.User

	err := r.obs.ObserveDB("users.update_name", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`UPDATE users
			SET name = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+userColumns,
			id, name,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	var hash string

	err := r.obs.ObserveDB("users.get_password_hash", func() error {
		err := r.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrNotFound
		}
		return err
	})

	return hash, err
}

func (r *UsersRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.obs.ObserveDB("users.update_password", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
			SET password_hash = $2, updated_at = NOW()
			WHERE id = $1`,
			id, passwordHash,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})
}
