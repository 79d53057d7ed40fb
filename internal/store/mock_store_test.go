// ABOUTME: Tests for MockStore behavior parity with SQLiteStore
// ABOUTME: Verifies ordering, idempotent delete, ID monotonicity and failure injection

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_FeedbackLifecycle(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []int64
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		m.SetClock(func() time.Time { return ts })
		id, err := m.InsertFeedback(ctx, &FeedbackEntry{Rating: i + 1})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	entries, err := m.ListFeedback(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{entries[0].ID, entries[1].ID, entries[2].ID})

	deleted, err := m.DeleteFeedback(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.DeleteFeedback(ctx, ids[1])
	require.NoError(t, err)
	assert.False(t, deleted)

	next, err := m.InsertFeedback(ctx, &FeedbackEntry{Rating: 5})
	require.NoError(t, err)
	assert.Greater(t, next, ids[2])

	count, err := m.CountFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMockStore_ListReturnsCopies(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	_, err := m.InsertFeedback(ctx, &FeedbackEntry{Rating: 2, Comment: "original"})
	require.NoError(t, err)

	entries, err := m.ListFeedback(ctx)
	require.NoError(t, err)
	entries[0].Comment = "mutated"

	again, err := m.ListFeedback(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Comment)
}

func TestMockStore_FailureInjection(t *testing.T) {
	m := NewMockStore()
	m.Err = errors.New("disk on fire")
	ctx := context.Background()

	_, err := m.InsertFeedback(ctx, &FeedbackEntry{Rating: 1})
	assert.ErrorIs(t, err, ErrStorage)

	_, err = m.ListFeedback(ctx)
	assert.ErrorIs(t, err, ErrStorage)

	_, err = m.DeleteFeedback(ctx, 1)
	assert.ErrorIs(t, err, ErrStorage)

	_, err = m.GetAdminSession(ctx, "x")
	assert.ErrorIs(t, err, ErrStorage)
}

func TestMockStore_Sessions(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, m.CreateAdminSession(ctx, &AdminSession{
		ID: "s1", Username: "admin", CreatedAt: now, LastSeenAt: now, ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, m.CreateAdminSession(ctx, &AdminSession{
		ID: "s2", Username: "admin", CreatedAt: now, LastSeenAt: now.Add(-time.Hour), ExpiresAt: now.Add(time.Hour),
	}))

	_, err := m.GetAdminSession(ctx, "s1")
	require.NoError(t, err)

	n, err := m.DeleteExpiredAdminSessions(ctx, 20*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, m.SessionCount())
}

func TestMockStore_PingConcurrentWithSetErr(t *testing.T) {
	m := NewMockStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.Ping(ctx)
			}
		}()
	}
	for j := 0; j < 100; j++ {
		if j%2 == 0 {
			m.SetErr(errors.New("database is locked"))
		} else {
			m.SetErr(nil)
		}
	}
	wg.Wait()

	assert.NoError(t, m.Ping(ctx))
	m.SetErr(errors.New("database is locked"))
	assert.ErrorIs(t, m.Ping(ctx), ErrStorage)
}
