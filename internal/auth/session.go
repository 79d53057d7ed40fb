// ABOUTME: Admin session lifecycle: create on login, validate and slide on each request, destroy on logout
// ABOUTME: Enforces the idle timeout and absolute lifetime server-side; a reaper purges stale rows

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/feedbackd/internal/store"
)

// ErrInvalidSession covers a missing, tampered, idle or expired session.
var ErrInvalidSession = errors.New("invalid session")

// Default session timing.
const (
	DefaultIdleTimeout = 20 * time.Minute
	DefaultMaxLifetime = 12 * time.Hour
)

// SessionConfig configures a SessionManager.
type SessionConfig struct {
	IdleTimeout time.Duration
	MaxLifetime time.Duration
}

// SessionManager owns admin session state.
type SessionManager struct {
	store       store.SessionStore
	signer      TokenSigner
	idleTimeout time.Duration
	maxLifetime time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewSessionManager creates a SessionManager. Zero config values take the defaults.
func NewSessionManager(s store.SessionStore, signer TokenSigner, cfg SessionConfig) *SessionManager {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxLifetime <= 0 {
		cfg.MaxLifetime = DefaultMaxLifetime
	}
	return &SessionManager{
		store:       s,
		signer:      signer,
		idleTimeout: cfg.IdleTimeout,
		maxLifetime: cfg.MaxLifetime,
		logger:      slog.Default().With("component", "sessions"),
		now:         time.Now,
	}
}

// SetClock replaces the clock, for tests.
func (m *SessionManager) SetClock(now func() time.Time) {
	m.now = now
}

// IdleTimeout is the inactivity window after which a session ends.
func (m *SessionManager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Create starts a session for username and returns it with its signed cookie value.
func (m *SessionManager) Create(ctx context.Context, username string) (*store.AdminSession, string, error) {
	id, err := GenerateToken(32)
	if err != nil {
		return nil, "", fmt.Errorf("generating session id: %w", err)
	}

	now := m.now().UTC()
	session := &store.AdminSession{
		ID:         id,
		Username:   username,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.maxLifetime),
	}

	if err := m.store.CreateAdminSession(ctx, session); err != nil {
		return nil, "", fmt.Errorf("creating session: %w", err)
	}

	token, err := m.signer.Sign(id, session.ExpiresAt)
	if err != nil {
		_ = m.store.DeleteAdminSession(ctx, id)
		return nil, "", fmt.Errorf("signing session: %w", err)
	}

	m.logger.Info("admin session created", "username", username)
	return session, token, nil
}

// Validate resolves a cookie value to a live session and slides its idle window.
// It returns ErrInvalidSession for anything the client could have caused;
// other errors are storage failures.
func (m *SessionManager) Validate(ctx context.Context, token string) (*store.AdminSession, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	id, err := m.signer.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	session, err := m.store.GetAdminSession(ctx, id)
	if errors.Is(err, store.ErrAdminSessionNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	now := m.now().UTC()
	if !session.ExpiresAt.After(now) {
		_ = m.store.DeleteAdminSession(ctx, id)
		return nil, ErrInvalidSession
	}
	if now.Sub(session.LastSeenAt) >= m.idleTimeout {
		m.logger.Info("admin session idle timeout", "username", session.Username)
		_ = m.store.DeleteAdminSession(ctx, id)
		return nil, ErrInvalidSession
	}

	if err := m.store.TouchAdminSession(ctx, id, now); err != nil {
		if errors.Is(err, store.ErrAdminSessionNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("touching session: %w", err)
	}
	session.LastSeenAt = now

	return session, nil
}

// Destroy ends the session named by token. Unknown or invalid tokens are ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	id, err := m.signer.Verify(token)
	if err != nil {
		return nil
	}
	if err := m.store.DeleteAdminSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	m.logger.Info("admin session destroyed")
	return nil
}

// Reap deletes idle and expired sessions.
func (m *SessionManager) Reap(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpiredAdminSessions(ctx, m.idleTimeout)
	if err != nil {
		return 0, fmt.Errorf("reaping sessions: %w", err)
	}
	if n > 0 {
		m.logger.Debug("reaped admin sessions", "count", n)
	}
	return n, nil
}

// RunReaper calls Reap every interval until ctx is cancelled.
func (m *SessionManager) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Reap(ctx); err != nil {
				m.logger.Warn("session reap failed", "error", err)
			}
		}
	}
}

// GenerateToken returns n random bytes hex-encoded.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
