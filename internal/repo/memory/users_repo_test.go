package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *UsersRepo, u user.User) user.User {
	t.Helper()
	created, err := r.Create(context.Background(), u)
	require.NoError(t, err)
	return created
}

func TestUsersRepo_CreateAndLookup(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	alice := seed(t, r, user.User{UserID: "alice01", Email: "a@x.com", Name: "Alice", PasswordHash: "h"})
	assert.Equal(t, int64(1), alice.ID)

	byEmail, err := r.GetByLogin(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	byUserID, err := r.GetByLogin(ctx, "alice01")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byUserID.ID)

	_, err = r.GetByLogin(ctx, "nobody")
	require.ErrorIs(t, err, user.ErrNotFound)

	_, err = r.Create(ctx, user.User{UserID: "other", Email: "a@x.com"})
	require.ErrorIs(t, err, ErrDuplicateUser)
}

func TestUsersRepo_GetByLoginPrefersEmail(t *testing.T) {
	r := NewUsersRepo()

	seed(t, r, user.User{UserID: "b@x.com", Email: "first@x.com"})
	second := seed(t, r, user.User{UserID: "second", Email: "b@x.com"})

	got, err := r.GetByLogin(context.Background(), "b@x.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestUsersRepo_EmailsAreCaseSensitive(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	lower := seed(t, r, user.User{UserID: "lower", Email: "a@x.com"})
	upper := seed(t, r, user.User{UserID: "upper", Email: "A@x.com"})

	got, err := r.GetByLogin(ctx, "A@x.com")
	require.NoError(t, err)
	assert.Equal(t, upper.ID, got.ID)

	got, err = r.GetByLogin(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, lower.ID, got.ID)

	_, err = r.Create(ctx, user.User{UserID: "upper", Email: "other@x.com"})
	require.ErrorIs(t, err, ErrDuplicateUser)
}

func TestUsersRepo_Updates(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()
	u := seed(t, r, user.User{UserID: "u", Email: "u@x.com", Name: "Old", PasswordHash: "old"})

	updated, err := r.UpdateName(ctx, u.ID, "New")
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)

	require.NoError(t, r.UpdatePassword(ctx, u.ID, "new-hash"))
	hash, err := r.GetPasswordHash(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "new-hash", hash)

	_, err = r.UpdateName(ctx, 999, "x")
	require.ErrorIs(t, err, user.ErrNotFound)
	require.ErrorIs(t, r.UpdatePassword(ctx, 999, "x"), user.ErrNotFound)
	_, err = r.GetPasswordHash(ctx, 999)
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestUsersRepo_ConcurrentUpdateName(t *testing.T) {
	r := NewUsersRepo()
	u := seed(t, r, user.User{UserID: "u", Email: "u@x.com", Name: "start"})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.UpdateName(context.Background(), u.ID, "racer")
		}()
	}
	wg.Wait()

	got, err := r.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "racer", got.Name)
}
