// ABOUTME: Feedback service sits between HTTP handlers and the FeedbackStore
// ABOUTME: Validates submissions, applies defaults, records metrics and logs store failures

package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/2389/feedbackd/internal/store"
)

// Metrics counts feedback activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	submissions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	deletions   prometheus.Counter
}

// NewMetrics creates and registers the feedback collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbackd_submissions_total",
			Help: "Stored feedback submissions by rating",
		}, []string{"rating"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedbackd_submissions_rejected_total",
			Help: "Feedback submissions rejected by validation, by field",
		}, []string{"field"}),
		deletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedbackd_deletions_total",
			Help: "Feedback entries deleted by the administrator",
		}),
	}
	reg.MustRegister(m.submissions, m.rejected, m.deletions)
	return m
}

func (m *Metrics) submitted(rating int) {
	if m != nil {
		m.submissions.WithLabelValues(strconv.Itoa(rating)).Inc()
	}
}

func (m *Metrics) reject(field string) {
	if m != nil {
		if field == "" {
			field = "body"
		}
		m.rejected.WithLabelValues(field).Inc()
	}
}

func (m *Metrics) deleted() {
	if m != nil {
		m.deletions.Inc()
	}
}

// Service validates and persists feedback.
type Service struct {
	store   store.FeedbackStore
	metrics *Metrics
	logger  *slog.Logger
}

// NewService creates a Service. metrics and logger may be nil.
func NewService(s store.FeedbackStore, metrics *Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   s,
		metrics: metrics,
		logger:  logger.With("component", "feedback"),
	}
}

// Submit validates sub and stores it. Validation failures return a
// *ValidationError; store failures wrap store.ErrStorage.
func (s *Service) Submit(ctx context.Context, sub *Submission) (*store.FeedbackEntry, error) {
	if err := sub.Validate(); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			s.metrics.reject(ve.Field)
		}
		return nil, err
	}

	entry := sub.Entry()
	if _, err := s.store.InsertFeedback(ctx, entry); err != nil {
		s.logger.Error("failed to save feedback", "error", err)
		return nil, fmt.Errorf("saving feedback: %w", err)
	}

	s.metrics.submitted(entry.Rating)
	s.logger.Info("feedback stored", "id", entry.ID, "rating", entry.Rating)
	return entry, nil
}

// Rejected records a submission that never reached Validate (bad JSON).
func (s *Service) Rejected(err *ValidationError) {
	s.metrics.reject(err.Field)
}

// List returns every entry, newest first.
func (s *Service) List(ctx context.Context) ([]*store.FeedbackEntry, error) {
	entries, err := s.store.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing feedback: %w", err)
	}
	return entries, nil
}

// Delete removes an entry. Deleting an unknown id reports false without error.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.DeleteFeedback(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete feedback", "id", id, "error", err)
		return false, fmt.Errorf("deleting feedback %d: %w", id, err)
	}
	if deleted {
		s.metrics.deleted()
		s.logger.Info("feedback deleted", "id", id)
	} else {
		s.logger.Debug("delete of unknown feedback id", "id", id)
	}
	return deleted, nil
}

// Count returns the number of stored entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.CountFeedback(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting feedback: %w", err)
	}
	return n, nil
}
