// Package webadmin provides the browser interface for moderating feedback.
//
// # Overview
//
// Everything under /admin sits behind a single administrator account:
//
//   - GET /admin: login form, or the feedback list once logged in
//   - POST /admin: login, or the no-script delete form (delete=1&id=N)
//   - POST /admin/delete_feedback/{id}: script-driven delete returning JSON
//   - POST /logout: ends the session
//   - GET /admin/export: JSON download of every entry
//   - GET /admin/help: embedded markdown help
//
// # Authentication
//
// Credentials are checked by auth.Credentials against a bcrypt hash from
// config. A successful login creates a server-side session through
// auth.SessionManager and sets it as an HttpOnly cookie holding a signed
// JWT. Sessions expire after 20 minutes without a request and 12 hours
// after login regardless of activity. Login attempts are throttled per
// client IP.
//
// # CSRF Protection
//
// All state-changing requests carry a double-submit token: the value of the
// feedbackd_csrf cookie must be echoed as a csrf_token form field, an
// X-CSRF-Token header, or a csrf_token JSON field. The token rotates on login.
//
//	<input type="hidden" name="csrf_token" value="{{.CSRFToken}}">
//
// # Templates
//
// Pages are html/template files embedded with //go:embed and layered on
// templates/base.html. Stored comments are rendered escaped with line breaks
// turned into <br>; nothing submitted by the public is ever trusted as HTML.
//
// # Usage
//
//	admin := webadmin.New(svc, sessions, creds, limiter, webadmin.Config{})
//	admin.RegisterRoutes(mux)
package webadmin
