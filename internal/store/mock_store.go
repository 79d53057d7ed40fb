// ABOUTME: Mock store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to simulate storage failures

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory FeedbackStore and SessionStore for testing.
type MockStore struct {
	mu       sync.RWMutex
	feedback map[int64]*FeedbackEntry
	sessions map[string]*AdminSession
	lastID   int64
	now      func() time.Time

	// Err, when set, is returned (wrapped in ErrStorage) by every operation.
	Err error
}

var (
	_ FeedbackStore = (*MockStore)(nil)
	_ SessionStore  = (*MockStore)(nil)
)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		feedback: make(map[int64]*FeedbackEntry),
		sessions: make(map[string]*AdminSession),
		now:      time.Now,
	}
}

// SetClock replaces the clock used to stamp new rows.
func (m *MockStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetErr sets Err under the store's lock, for tests that inject failures
// while requests are in flight.
func (m *MockStore) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MockStore) failure(op string) error {
	if m.Err == nil {
		return nil
	}
	return storageErr(op, m.Err)
}

// InsertFeedback stores a copy of the entry under the next ID.
func (m *MockStore) InsertFeedback(ctx context.Context, entry *FeedbackEntry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("inserting feedback"); err != nil {
		return 0, err
	}

	m.lastID++
	entry.ID = m.lastID
	entry.Timestamp = m.now().UTC()

	e := *entry
	m.feedback[e.ID] = &e
	return e.ID, nil
}

// ListFeedback returns copies of all entries, newest first.
func (m *MockStore) ListFeedback(ctx context.Context) ([]*FeedbackEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("querying feedback"); err != nil {
		return nil, err
	}

	entries := make([]*FeedbackEntry, 0, len(m.feedback))
	for _, e := range m.feedback {
		c := *e
		entries = append(entries, &c)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.After(entries[j].Timestamp)
		}
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

// DeleteFeedback removes an entry if present.
func (m *MockStore) DeleteFeedback(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("deleting feedback"); err != nil {
		return false, err
	}

	if _, ok := m.feedback[id]; !ok {
		return false, nil
	}
	delete(m.feedback, id)
	return true, nil
}

// CountFeedback returns the number of entries.
func (m *MockStore) CountFeedback(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("counting feedback"); err != nil {
		return 0, err
	}
	return len(m.feedback), nil
}

// CreateAdminSession stores a copy of the session.
func (m *MockStore) CreateAdminSession(ctx context.Context, session *AdminSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("inserting admin session"); err != nil {
		return err
	}

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetAdminSession returns a session that has not passed its absolute expiry.
func (m *MockStore) GetAdminSession(ctx context.Context, id string) (*AdminSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failure("querying admin session"); err != nil {
		return nil, err
	}

	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(m.now()) {
		return nil, ErrAdminSessionNotFound
	}
	result := *s
	return &result, nil
}

// TouchAdminSession updates LastSeenAt.
func (m *MockStore) TouchAdminSession(ctx context.Context, id string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("touching admin session"); err != nil {
		return err
	}

	s, ok := m.sessions[id]
	if !ok {
		return ErrAdminSessionNotFound
	}
	s.LastSeenAt = lastSeen
	return nil
}

// DeleteAdminSession removes a session.
func (m *MockStore) DeleteAdminSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("deleting admin session"); err != nil {
		return err
	}
	delete(m.sessions, id)
	return nil
}

// DeleteExpiredAdminSessions removes expired and idle sessions.
func (m *MockStore) DeleteExpiredAdminSessions(ctx context.Context, idleTimeout time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure("deleting expired sessions"); err != nil {
		return 0, err
	}

	now := m.now()
	var n int64
	for id, s := range m.sessions {
		idle := idleTimeout > 0 && !s.LastSeenAt.After(now.Add(-idleTimeout))
		if !s.ExpiresAt.After(now) || idle {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// SessionCount returns the number of stored sessions, expired or not.
func (m *MockStore) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Ping reports the configured failure, if any.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failure("pinging database")
}

// Close is a no-op.
func (m *MockStore) Close() error {
	return nil
}
