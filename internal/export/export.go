// ABOUTME: JSON export of all stored feedback
// ABOUTME: Streams to any writer, or writes a timestamped file under an export directory

package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/2389/feedbackd/internal/store"
)

// Lister is what export needs from storage.
type Lister interface {
	ListFeedback(ctx context.Context) ([]*store.FeedbackEntry, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]*store.FeedbackEntry, error)

// ListFeedback calls f(ctx).
func (f ListerFunc) ListFeedback(ctx context.Context) ([]*store.FeedbackEntry, error) {
	return f(ctx)
}

// Record is one exported feedback entry.
type Record struct {
	ID        int64  `json:"id"`
	Rating    int    `json:"rating"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Comment   string `json:"comment"`
	Timestamp string `json:"timestamp"`
}

// FileName returns feedback_export_YYYYMMDD_HHMMSS.json for now.
func FileName(now time.Time) string {
	return "feedback_export_" + now.Format("20060102_150405") + ".json"
}

// WriteJSON writes every entry, newest first, as an indented JSON array and
// returns the number of records written.
func WriteJSON(ctx context.Context, l Lister, w io.Writer) (int, error) {
	entries, err := l.ListFeedback(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing feedback: %w", err)
	}

	records := make([]Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, Record{
			ID:        e.ID,
			Rating:    e.Rating,
			Name:      e.Name,
			Email:     e.Email,
			Comment:   e.Comment,
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return 0, fmt.Errorf("encoding export: %w", err)
	}
	return len(records), nil
}

// ToFile writes the export to dir/FileName(now), creating dir if needed.
// A partially written file is removed on failure.
func ToFile(ctx context.Context, l Lister, dir string, now time.Time) (string, int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", 0, fmt.Errorf("creating export file: %w", err)
	}

	n, err := WriteJSON(ctx, l, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("closing export file: %w", cerr)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}

	return path, n, nil
}
