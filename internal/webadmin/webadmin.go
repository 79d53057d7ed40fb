// ABOUTME: Admin web UI for feedback moderation
// ABOUTME: Provides the session-gated login, feedback list, deletion, export and logout routes

package webadmin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/feedbackd/internal/auth"
	"github.com/2389/feedbackd/internal/export"
	"github.com/2389/feedbackd/internal/feedback"
	"github.com/2389/feedbackd/internal/store"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "feedbackd_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "feedbackd_csrf"

	// WarnBefore is when the page countdown turns to a warning
	WarnBefore = 2 * time.Minute

	// maxJSONBody caps the delete endpoint's optional JSON body
	maxJSONBody = 4 << 10
)

// Login page messages. The credential failure text never says which field was wrong.
const (
	msgInvalidCredentials = "Invalid username or password"
	msgTooManyAttempts    = "Too many login attempts, please try again later"
	msgInvalidRequest     = "Invalid request, please try again"
	msgLoginRequired      = "Please log in to continue"
	msgServerError        = "An error occurred, please try again"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Config holds admin UI configuration
type Config struct {
	// SecureCookie marks cookies Secure; enable when served over HTTPS
	SecureCookie bool
}

// Admin handles admin UI routes and authentication
type Admin struct {
	feedback    *feedback.Service
	sessions    *auth.SessionManager
	credentials *auth.Credentials
	limiter     *auth.LoginLimiter
	config      Config
	templates   *pageTemplates
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a new Admin handler
func New(svc *feedback.Service, sessions *auth.SessionManager, creds *auth.Credentials, limiter *auth.LoginLimiter, cfg Config) *Admin {
	return &Admin{
		feedback:    svc,
		sessions:    sessions,
		credentials: creds,
		limiter:     limiter,
		config:      cfg,
		templates:   mustParseTemplates(),
		logger:      slog.Default().With("component", "admin"),
		now:         time.Now,
	}
}

// RegisterRoutes registers all admin routes on the given mux
func (a *Admin) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin", a.handleAdminPage)
	mux.HandleFunc("POST /admin", a.handleAdminPost)
	mux.HandleFunc("POST /logout", a.handleLogout)

	mux.HandleFunc("POST /admin/delete_feedback/{id}", a.handleDeleteJSON)
	mux.HandleFunc("GET /admin/help", a.requireAuth(a.handleHelp))
	mux.HandleFunc("GET /admin/export", a.requireAuth(a.handleExport))

	a.logger.Info("admin routes registered")
}

// authenticate resolves the session cookie. It returns (nil, nil) when the
// request carries no valid session; a non-nil error means storage failed.
func (a *Admin) authenticate(w http.ResponseWriter, r *http.Request) (*store.AdminSession, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	session, err := a.sessions.Validate(r.Context(), cookie.Value)
	if errors.Is(err, auth.ErrInvalidSession) {
		a.clearCookie(w, SessionCookieName)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// requireAuth wraps a page handler; requests without a session go to the login page
func (a *Admin) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := a.authenticate(w, r)
		if err != nil {
			a.logger.Error("session lookup failed", "error", err)
			a.renderError(w, http.StatusInternalServerError, "Server error", msgServerError)
			return
		}
		if session == nil {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}

		r, _ = a.ensureCSRFToken(w, r)
		next(w, r.WithContext(auth.WithSession(r.Context(), session)))
	}
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken reuses the CSRF cookie or issues a new one, and adds the token to context
func (a *Admin) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}
	return a.rotateCSRFToken(w, r)
}

// rotateCSRFToken always issues a fresh CSRF token
func (a *Admin) rotateCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	token, err := auth.GenerateToken(32)
	if err != nil {
		a.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.config.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validCSRF compares a submitted token against the cookie in constant time
func validCSRF(r *http.Request, submitted string) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(cookie.Value)) == 1
}

// validateFormCSRF checks the form field, falling back to the X-CSRF-Token header
func validateFormCSRF(r *http.Request) bool {
	token := r.PostFormValue("csrf_token")
	if token == "" {
		token = r.Header.Get("X-CSRF-Token")
	}
	return validCSRF(r, token)
}

func (a *Admin) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.config.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *Admin) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.config.SecureCookie,
	})
}

// handleAdminPage renders the login form or, with a session, the feedback list
func (a *Admin) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	session, err := a.authenticate(w, r)
	if err != nil {
		a.logger.Error("session lookup failed", "error", err)
		a.renderError(w, http.StatusInternalServerError, "Server error", msgServerError)
		return
	}

	r, csrfToken := a.ensureCSRFToken(w, r)
	if session == nil {
		a.renderLoginPage(w, http.StatusOK, "", csrfToken)
		return
	}

	a.renderFeedbackPage(w, r, session, csrfToken)
}

// handleAdminPost dispatches the form posts sent to /admin: login or delete
func (a *Admin) handleAdminPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, http.StatusBadRequest, "Invalid form data", csrfToken)
		return
	}

	if r.PostForm.Has("delete") {
		a.handleFormDelete(w, r)
		return
	}
	a.handleLogin(w, r)
}

// handleLogin authenticates the administrator and starts a session
func (a *Admin) handleLogin(w http.ResponseWriter, r *http.Request) {
	if session, err := a.authenticate(w, r); err == nil && session != nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	if !validateFormCSRF(r) {
		_, csrfToken := a.rotateCSRFToken(w, r)
		a.renderLoginPage(w, http.StatusForbidden, msgInvalidRequest, csrfToken)
		return
	}

	ip := auth.ClientIP(r)
	if !a.limiter.Allow(ip) {
		a.logger.Warn("admin login throttled", "ip", ip)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, http.StatusTooManyRequests, msgTooManyAttempts, csrfToken)
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if err := a.credentials.Verify(username, password); err != nil {
		a.logger.Warn("admin login failed", "ip", ip)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, http.StatusUnauthorized, msgInvalidCredentials, csrfToken)
		return
	}

	session, token, err := a.sessions.Create(r.Context(), a.credentials.Username())
	if err != nil {
		a.logger.Error("failed to create admin session", "error", err)
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, http.StatusInternalServerError, msgServerError, csrfToken)
		return
	}

	a.limiter.Reset(ip)
	a.setSessionCookie(w, token, session.ExpiresAt)
	a.rotateCSRFToken(w, r)

	a.logger.Info("admin login successful", "username", session.Username, "ip", ip)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleFormDelete handles the no-script delete form (delete=1&id=N)
func (a *Admin) handleFormDelete(w http.ResponseWriter, r *http.Request) {
	session, err := a.authenticate(w, r)
	if err != nil {
		a.logger.Error("session lookup failed", "error", err)
		a.renderError(w, http.StatusInternalServerError, "Server error", msgServerError)
		return
	}
	if session == nil {
		_, csrfToken := a.ensureCSRFToken(w, r)
		a.renderLoginPage(w, http.StatusUnauthorized, msgLoginRequired, csrfToken)
		return
	}

	if !validateFormCSRF(r) {
		a.logger.Warn("delete request with invalid CSRF token", "username", session.Username)
		a.renderError(w, http.StatusForbidden, "Forbidden", msgInvalidRequest)
		return
	}

	id, err := strconv.ParseInt(r.PostFormValue("id"), 10, 64)
	if err != nil {
		a.renderError(w, http.StatusBadRequest, "Bad request", "Invalid feedback id")
		return
	}

	if _, err := a.feedback.Delete(r.Context(), id); err != nil {
		a.renderError(w, http.StatusInternalServerError, "Server error", "Failed to delete feedback")
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

type deleteRequest struct {
	CSRFToken string `json:"csrf_token"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// handleDeleteJSON is the script-driven delete used by the feedback page
func (a *Admin) handleDeleteJSON(w http.ResponseWriter, r *http.Request) {
	session, err := a.authenticate(w, r)
	if err != nil {
		a.logger.Error("session lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, deleteResponse{Error: "internal error"})
		return
	}
	if session == nil {
		writeJSON(w, http.StatusUnauthorized, deleteResponse{Error: "unauthorized"})
		return
	}

	token := r.Header.Get("X-CSRF-Token")
	if token == "" {
		var req deleteRequest
		body := http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, deleteResponse{Error: "invalid request body"})
			return
		}
		token = req.CSRFToken
	}
	if !validCSRF(r, token) {
		a.logger.Warn("delete request with invalid CSRF token", "username", session.Username)
		writeJSON(w, http.StatusForbidden, deleteResponse{Error: "invalid CSRF token"})
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, deleteResponse{Error: "invalid feedback id"})
		return
	}

	deleted, err := a.feedback.Delete(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, deleteResponse{Error: "failed to delete feedback"})
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Deleted: deleted})
}

// handleLogout ends the session and clears both cookies
func (a *Admin) handleLogout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil || !validateFormCSRF(r) {
		a.logger.Warn("logout request with invalid CSRF token")
		a.renderError(w, http.StatusForbidden, "Forbidden", msgInvalidRequest)
		return
	}

	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := a.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			a.logger.Error("failed to delete admin session", "error", err)
		}
	}

	a.clearCookie(w, SessionCookieName)
	a.clearCookie(w, CSRFCookieName)

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleExport streams every entry as a JSON download
func (a *Admin) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(a.now())))
	w.Header().Set("Cache-Control", "no-store")

	if _, err := export.WriteJSON(r.Context(), export.ListerFunc(a.feedback.List), w); err != nil {
		a.logger.Error("failed to export feedback", "error", err)
		w.Header().Del("Content-Disposition")
		http.Error(w, "failed to export feedback", http.StatusInternalServerError)
		return
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
