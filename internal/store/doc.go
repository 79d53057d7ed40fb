// Package store provides persistent storage for feedbackd.
//
// # Architecture
//
// Two interfaces split the persistence concerns:
//
//   - FeedbackStore: the feedback table (insert, newest-first listing, delete)
//   - SessionStore: server-side admin sessions
//
// SQLiteStore implements both in a single database file. RedisSessionStore
// implements SessionStore alone, for deployments where several processes must
// share admin sessions. MockStore implements both in memory for tests.
//
// # Data Models
//
//   - FeedbackEntry: rating, optional name/email/comment, server-assigned ID and timestamp
//   - AdminSession: opaque ID, username, creation, last activity and absolute expiry
//
// Feedback IDs come from SQLite AUTOINCREMENT and are never reused, even after
// the row with the highest ID is deleted. Entries are never updated in place.
//
// # SQLite Configuration
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;  (per connection, via the DSN)
//
// Timestamps are stored as fixed-width UTC strings so ORDER BY timestamp is
// chronological. Rows written by older deployments with CURRENT_TIMESTAMP are
// still readable.
//
// # Error Handling
//
//   - ErrStorage: wrapped by every database failure (use errors.Is)
//   - ErrAdminSessionNotFound: session missing or past its absolute expiry
//
// Deleting a feedback ID that does not exist is not an error.
//
// # Testing
//
// Use NewMockStore() for handler tests; set MockStore.Err to simulate an
// unreachable database. Use NewSQLiteStore with a t.TempDir() path for
// integration tests. Redis tests need FEEDBACKD_TEST_REDIS_ADDR.
package store
