package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
)

var ErrDuplicateUser = errors.New("email or user id already in use")

// UsersRepo keeps users in a map. Every method holds the lock for a single
// read or write, matching the one-statement contract of the postgres repo.
type UsersRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[int64]user.User),
	}
}

// Create inserts a user with an already hashed password.
func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.Email == u.Email || existing.UserID == u.UserID {
			return user.User{}, ErrDuplicateUser
		}
	}

	now := time.Now().UTC()
	r.nextID++

	u.ID = r.nextID
	u.CreatedAt = now
	u.UpdatedAt = now
	r.items[u.ID] = u

	return u, nil
}

func (r *UsersRepo) GetByLogin(_ context.Context, identifier string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var byUserID *user.User
	for _, u := range r.items {
		if u.Email == identifier {
			return u, nil
		}
		if u.UserID == identifier && byUserID == nil {
			u := u
			byUserID = &u
		}
	}

	if byUserID != nil {
		return *byUserID, nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) UpdateName(_ context.Context, id int64, name string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u.Name = name
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) GetPasswordHash(ctx context.Context, id int64) (string, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.PasswordHash, nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return user.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.items[id] = u

	return nil
}

// Ping lets the memory store stand in for the database in readiness checks.
func (r *UsersRepo) Ping(context.Context) error {
	return nil
}
