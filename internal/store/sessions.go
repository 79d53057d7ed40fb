// ABOUTME: Admin session persistence for the SQLite store
// ABOUTME: Sessions carry an absolute expiry; idle expiry is tracked via last_seen_at

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateAdminSession creates a new admin session.
func (s *SQLiteStore) CreateAdminSession(ctx context.Context, session *AdminSession) error {
	query := `
		INSERT INTO admin_sessions (id, username, created_at, last_seen_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.Username,
		formatTime(session.CreatedAt),
		formatTime(session.LastSeenAt),
		formatTime(session.ExpiresAt),
	)
	if err != nil {
		return storageErr("inserting admin session", err)
	}

	s.logger.Debug("created admin session", "username", session.Username)
	return nil
}

// GetAdminSession retrieves a session that has not passed its absolute expiry.
func (s *SQLiteStore) GetAdminSession(ctx context.Context, id string) (*AdminSession, error) {
	query := `
		SELECT id, username, created_at, last_seen_at, expires_at
		FROM admin_sessions
		WHERE id = ? AND expires_at > ?
	`

	var session AdminSession
	var createdAtStr, lastSeenStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, id, formatTime(s.now())).Scan(
		&session.ID,
		&session.Username,
		&createdAtStr,
		&lastSeenStr,
		&expiresAtStr,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAdminSessionNotFound
	}
	if err != nil {
		return nil, storageErr("querying admin session", err)
	}

	if session.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if session.LastSeenAt, err = parseTime(lastSeenStr); err != nil {
		return nil, fmt.Errorf("parsing last_seen_at: %w", err)
	}
	if session.ExpiresAt, err = parseTime(expiresAtStr); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &session, nil
}

// TouchAdminSession records activity on a session.
func (s *SQLiteStore) TouchAdminSession(ctx context.Context, id string, lastSeen time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE admin_sessions SET last_seen_at = ? WHERE id = ?",
		formatTime(lastSeen), id,
	)
	if err != nil {
		return storageErr("touching admin session", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return ErrAdminSessionNotFound
	}
	return nil
}

// DeleteAdminSession deletes an admin session.
func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM admin_sessions WHERE id = ?", id)
	if err != nil {
		return storageErr("deleting admin session", err)
	}
	return nil
}

// DeleteExpiredAdminSessions removes sessions past their absolute expiry and,
// when idleTimeout is positive, sessions idle for longer than idleTimeout.
func (s *SQLiteStore) DeleteExpiredAdminSessions(ctx context.Context, idleTimeout time.Duration) (int64, error) {
	now := s.now()
	idleCutoff := time.Time{}
	if idleTimeout > 0 {
		idleCutoff = now.Add(-idleTimeout)
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM admin_sessions WHERE expires_at <= ? OR last_seen_at <= ?",
		formatTime(now), formatTime(idleCutoff),
	)
	if err != nil {
		return 0, storageErr("deleting expired sessions", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired admin sessions", "count", rowsAffected)
	}
	return rowsAffected, nil
}
