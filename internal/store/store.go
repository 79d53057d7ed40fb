// ABOUTME: Store interfaces and data types for feedbackd persistence
// ABOUTME: Defines FeedbackEntry, AdminSession and the FeedbackStore/SessionStore interfaces

package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStorage is wrapped by every error caused by the underlying database
// being unreachable or failing a read/write.
var ErrStorage = errors.New("storage error")

// ErrAdminSessionNotFound is returned when a session doesn't exist or is expired.
var ErrAdminSessionNotFound = errors.New("admin session not found")

// timeLayout is fixed-width so that stored timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FeedbackEntry is a single rating/comment left by an end user.
// Entries are immutable once stored; the only mutation is deletion.
type FeedbackEntry struct {
	ID        int64
	Rating    int
	Name      string
	Email     string
	Comment   string
	Timestamp time.Time
}

// AdminSession is a server-side record of an authenticated admin.
type AdminSession struct {
	ID         string
	Username   string
	CreatedAt  time.Time
	LastSeenAt time.Time
	ExpiresAt  time.Time // absolute cap, independent of activity
}

// FeedbackStore persists feedback entries.
type FeedbackStore interface {
	// InsertFeedback stores the entry, assigning its ID and Timestamp, and returns the ID.
	InsertFeedback(ctx context.Context, entry *FeedbackEntry) (int64, error)

	// ListFeedback returns every entry, newest first. Ties on timestamp are
	// broken by ID so that the later insert comes first.
	ListFeedback(ctx context.Context) ([]*FeedbackEntry, error)

	// DeleteFeedback removes the entry with the given ID. Deleting an ID that
	// does not exist is not an error; the bool reports whether a row was removed.
	DeleteFeedback(ctx context.Context, id int64) (bool, error)

	CountFeedback(ctx context.Context) (int, error)

	// Close releases any resources held by the store
	Close() error
}

// SessionStore persists admin sessions.
type SessionStore interface {
	CreateAdminSession(ctx context.Context, session *AdminSession) error
	// GetAdminSession returns ErrAdminSessionNotFound for missing or
	// absolutely-expired sessions. Idle expiry is the caller's decision.
	GetAdminSession(ctx context.Context, id string) (*AdminSession, error)
	TouchAdminSession(ctx context.Context, id string, lastSeen time.Time) error
	DeleteAdminSession(ctx context.Context, id string) error
	DeleteExpiredAdminSessions(ctx context.Context, idleTimeout time.Duration) (int64, error)
}

// storageErr wraps a database error so callers can match ErrStorage.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
