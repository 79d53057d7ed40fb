// Package server assembles feedbackd's HTTP surface.
//
// # Routes
//
//   - GET /: public feedback widget
//   - GET /static/: fingerprinted static assets
//   - POST /submit_feedback: JSON submission, see package feedback
//   - GET /health, GET /health/ready: liveness and readiness probes
//   - GET <metrics.path>: Prometheus metrics when enabled
//   - /admin, /logout: the moderation UI, see package webadmin
//
// # Submission responses
//
//	200 {"status":"success","id":42}
//	400 {"status":"error","message":"rating: must be between 1 and 5"}
//	500 {"status":"error","message":"failed to save feedback"}
//
// # Middleware
//
// Every request gets an X-Request-ID (reused from the client when present),
// an access log line and per-route counters and latency summaries labelled by
// the ServeMux pattern. Security headers deny framing and sniffing.
//
// # Lifecycle
//
// Run listens on server.http_addr and blocks until its context is canceled,
// then drains in-flight requests and closes the stores. While running it
// reaps expired SQLite sessions and drops idle login limiters.
package server
