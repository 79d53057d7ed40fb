// ABOUTME: Public HTTP handlers: the widget page, feedback submission and health probes
// ABOUTME: Submission errors map to a uniform {"status","message"} JSON body

package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/2389/feedbackd/internal/assets"
	"github.com/2389/feedbackd/internal/feedback"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxSubmissionBody caps POST /submit_feedback bodies.
const maxSubmissionBody = 64 << 10

var indexTemplate = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"asset": assets.Path}).
	ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Ratings    []int
	MaxName    int
	MaxEmail   int
	MaxComment int
}

type submitResponse struct {
	Status  string `json:"status"`
	ID      int64  `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// pinger is anything whose backing service can be health-checked.
type pinger interface {
	Ping(ctx context.Context) error
}

// handleIndex serves the public feedback widget.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ratings := make([]int, 0, feedback.MaxRating-feedback.MinRating+1)
	for i := feedback.MinRating; i <= feedback.MaxRating; i++ {
		ratings = append(ratings, i)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, indexData{
		Ratings:    ratings,
		MaxName:    feedback.MaxNameLength,
		MaxEmail:   feedback.MaxEmailLength,
		MaxComment: feedback.MaxCommentLength,
	}); err != nil {
		s.logger.Error("failed to render index", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// handleSubmit stores one feedback entry from the widget.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmissionBody)

	sub, err := feedback.DecodeSubmission(r.Body)
	if err != nil {
		var ve *feedback.ValidationError
		if errors.As(err, &ve) {
			s.feedback.Rejected(ve)
		}
		writeJSON(w, http.StatusBadRequest, submitResponse{Status: "error", Message: err.Error()})
		return
	}

	entry, err := s.feedback.Submit(r.Context(), sub)
	if err != nil {
		var ve *feedback.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, submitResponse{Status: "error", Message: ve.Error()})
			return
		}
		s.logger.Error("feedback submission failed", "request_id", RequestID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, submitResponse{Status: "error", Message: "failed to save feedback"})
		return
	}

	writeJSON(w, http.StatusOK, submitResponse{Status: "success", ID: entry.ID})
}

// handleHealth returns 200 OK if the process is serving.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK only when every backing store answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, p := range s.dependencies() {
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "dependency", name, "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(name + " unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
