// ABOUTME: Tests for admin session persistence in the SQLite store
// ABOUTME: Covers create/get, absolute and idle expiry, touch and deletion

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store := newTestStore(t)
	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func newSession(id string, now time.Time) *AdminSession {
	return &AdminSession{
		ID:         id,
		Username:   "admin",
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(12 * time.Hour),
	}
}

func TestAdminSession_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateAdminSession(ctx, newSession("sess-1", now)))

	got, err := store.GetAdminSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.True(t, got.LastSeenAt.Equal(now))
	assert.True(t, got.ExpiresAt.Equal(now.Add(12*time.Hour)))
}

func TestAdminSession_GetMissing(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetAdminSession(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrAdminSessionNotFound)
}

func TestAdminSession_AbsoluteExpiry(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	session := newSession("sess-old", now.Add(-13*time.Hour))
	require.NoError(t, store.CreateAdminSession(ctx, session))

	_, err := store.GetAdminSession(ctx, "sess-old")
	assert.ErrorIs(t, err, ErrAdminSessionNotFound)
}

func TestAdminSession_Touch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.CreateAdminSession(ctx, newSession("sess-1", now)))

	later := now.Add(5 * time.Minute)
	require.NoError(t, store.TouchAdminSession(ctx, "sess-1", later))

	got, err := store.GetAdminSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(later))

	assert.ErrorIs(t, store.TouchAdminSession(ctx, "missing", later), ErrAdminSessionNotFound)
}

func TestAdminSession_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateAdminSession(ctx, newSession("sess-1", time.Now().UTC())))
	require.NoError(t, store.DeleteAdminSession(ctx, "sess-1"))

	_, err := store.GetAdminSession(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrAdminSessionNotFound)

	// Deleting again is harmless
	assert.NoError(t, store.DeleteAdminSession(ctx, "sess-1"))
}

func TestAdminSession_DeleteExpired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	fresh := newSession("fresh", now)
	idle := newSession("idle", now.Add(-30*time.Minute))
	idle.ExpiresAt = now.Add(time.Hour)
	expired := newSession("expired", now.Add(-24*time.Hour))

	for _, s := range []*AdminSession{fresh, idle, expired} {
		require.NoError(t, store.CreateAdminSession(ctx, s))
	}

	n, err := store.DeleteExpiredAdminSessions(ctx, 20*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = store.GetAdminSession(ctx, "fresh")
	assert.NoError(t, err)
	_, err = store.GetAdminSession(ctx, "idle")
	assert.ErrorIs(t, err, ErrAdminSessionNotFound)
}
