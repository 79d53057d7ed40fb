// Package auth implements the admin session gate for feedbackd.
//
// # Credentials
//
// A single administrator identity comes from configuration: a username and a
// bcrypt password hash. Credentials.Verify compares the username in constant
// time and always runs bcrypt (against a dummy hash when the username is
// wrong), so a wrong username and a wrong password are indistinguishable both
// in the returned error and in timing.
//
// # Sessions
//
// Sessions are server-side records in a store.SessionStore. The browser holds
// an HS256 JWT whose "sub" claim is the session id:
//
//	login ─▶ SessionManager.Create ─▶ cookie
//	request ─▶ SessionManager.Validate ─▶ slide LastSeenAt
//	logout ─▶ SessionManager.Destroy
//
// A session ends after IdleTimeout without a request (20 minutes by default)
// or MaxLifetime after login (12 hours by default), whichever comes first.
// Validate enforces both on every request; RunReaper removes stale rows.
//
// # Login Throttling
//
// LoginLimiter keeps a token bucket per client IP. ClientIP uses the
// connection's remote address only.
package auth
