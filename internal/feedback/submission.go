// ABOUTME: Submission schema for POST /submit_feedback
// ABOUTME: Strict JSON decoding, field limits and server-side defaults for anonymous submitters

package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/2389/feedbackd/internal/store"
)

// Field limits, in runes.
const (
	MaxNameLength    = 100
	MaxEmailLength   = 254
	MaxCommentLength = 5000

	MinRating = 1
	MaxRating = 5
)

// Defaults stored when the submitter leaves name or email blank.
const (
	DefaultName  = "Anonymous"
	DefaultEmail = "anonymous@example.com"
)

// ValidationError reports a rejected submission. Message is safe to show to clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Submission is the request body accepted from the feedback widget.
type Submission struct {
	Rating  *int   `json:"rating"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Comment string `json:"comment"`

	// Older widgets echo the page's CSRF token; accepted and ignored.
	CSRFToken string `json:"csrf_token"`
}

// DecodeSubmission parses a single JSON object, rejecting unknown fields and
// trailing data. Size limits are the caller's job (http.MaxBytesReader).
func DecodeSubmission(r io.Reader) (*Submission, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var sub Submission
	if err := dec.Decode(&sub); err != nil {
		return nil, decodeError(err)
	}
	if dec.More() {
		return nil, &ValidationError{Message: "request body must contain a single JSON object"}
	}
	return &sub, nil
}

func decodeError(err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return &ValidationError{Message: "request body is empty"}
	case errors.As(err, &typeErr):
		return invalid(typeErr.Field, "must be %s", jsonTypeName(typeErr.Type))
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &ValidationError{Message: "request body is not valid JSON"}
	case errors.As(err, &maxErr):
		return &ValidationError{Message: "request body too large"}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return invalid(field, "unknown field")
	default:
		return &ValidationError{Message: "request body is not valid JSON"}
	}
}

func jsonTypeName(t reflect.Type) string {
	if t == nil {
		return "of a different type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64:
		return "an integer"
	case reflect.String:
		return "a string"
	default:
		return "of type " + t.String()
	}
}

// Validate checks the submission against the schema.
func (s *Submission) Validate() error {
	if s.Rating == nil {
		return invalid("rating", "is required")
	}
	if *s.Rating < MinRating || *s.Rating > MaxRating {
		return invalid("rating", "must be between %d and %d", MinRating, MaxRating)
	}

	name := strings.TrimSpace(s.Name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		return invalid("name", "must be at most %d characters", MaxNameLength)
	}

	email := strings.TrimSpace(s.Email)
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return invalid("email", "must be at most %d characters", MaxEmailLength)
	}
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return invalid("email", "is not a valid address")
		}
	}

	if !utf8.ValidString(s.Comment) {
		return invalid("comment", "must be valid UTF-8")
	}
	if utf8.RuneCountInString(s.Comment) > MaxCommentLength {
		return invalid("comment", "must be at most %d characters", MaxCommentLength)
	}

	return nil
}

// Entry converts a validated submission into a store row, applying defaults.
// The comment is kept verbatim.
func (s *Submission) Entry() *store.FeedbackEntry {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		name = DefaultName
	}
	email := strings.TrimSpace(s.Email)
	if email == "" {
		email = DefaultEmail
	}
	return &store.FeedbackEntry{
		Rating:  *s.Rating,
		Name:    name,
		Email:   email,
		Comment: s.Comment,
	}
}
