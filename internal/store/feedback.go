// ABOUTME: Feedback table operations for the SQLite store
// ABOUTME: Insert, newest-first listing, count and idempotent delete by ID

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// legacyTimeLayout is SQLite's CURRENT_TIMESTAMP format, used by rows
// written before the fixed-width layout was adopted.
const legacyTimeLayout = "2006-01-02 15:04:05"

// InsertFeedback stores a new feedback entry, stamping its ID and Timestamp.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, entry *FeedbackEntry) (int64, error) {
	query := `
		INSERT INTO feedback (rating, name, email, comment, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	ts := s.now().UTC()
	result, err := s.db.ExecContext(ctx, query,
		entry.Rating,
		entry.Name,
		entry.Email,
		entry.Comment,
		formatTime(ts),
	)
	if err != nil {
		return 0, storageErr("inserting feedback", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("reading inserted feedback id", err)
	}

	entry.ID = id
	entry.Timestamp = ts

	s.logger.Debug("stored feedback", "id", id, "rating", entry.Rating)
	return id, nil
}

// ListFeedback returns all feedback entries, most recent first.
func (s *SQLiteStore) ListFeedback(ctx context.Context) ([]*FeedbackEntry, error) {
	query := `
		SELECT id, rating, name, email, comment, CAST(timestamp AS TEXT)
		FROM feedback
		ORDER BY timestamp DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("querying feedback", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []*FeedbackEntry
	for rows.Next() {
		var entry FeedbackEntry
		var rating sql.NullInt64
		var name, email, comment sql.NullString
		var tsStr string

		if err := rows.Scan(&entry.ID, &rating, &name, &email, &comment, &tsStr); err != nil {
			return nil, storageErr("scanning feedback", err)
		}

		entry.Rating = int(rating.Int64)
		entry.Name = name.String
		entry.Email = email.String
		entry.Comment = comment.String
		entry.Timestamp, err = parseStoredTime(tsStr)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp of feedback %d: %w", entry.ID, err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr("iterating feedback", err)
	}

	return entries, nil
}

// DeleteFeedback removes a feedback entry. A missing ID is a no-op.
func (s *SQLiteStore) DeleteFeedback(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM feedback WHERE id = ?", id)
	if err != nil {
		return false, storageErr("deleting feedback", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("getting rows affected", err)
	}

	if rowsAffected > 0 {
		s.logger.Info("deleted feedback", "id", id)
	}
	return rowsAffected > 0, nil
}

// CountFeedback returns the number of stored feedback entries.
func (s *SQLiteStore) CountFeedback(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM feedback").Scan(&count)
	if err != nil {
		return 0, storageErr("counting feedback", err)
	}
	return count, nil
}

// parseStoredTime accepts the fixed-width layout, CURRENT_TIMESTAMP text and
// RFC 3339 with trimmed fractional seconds.
func parseStoredTime(s string) (time.Time, error) {
	if t, err := parseTime(s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation(legacyTimeLayout, s, time.UTC)
}
