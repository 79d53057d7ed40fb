// ABOUTME: Request context helpers for the authenticated admin session
// ABOUTME: Provides WithSession/SessionFromContext for handlers behind the session gate

package auth

import (
	"context"

	"github.com/2389/feedbackd/internal/store"
)

// sessionContextKey is the key type for storing the session in context.Context.
type sessionContextKey struct{}

// WithSession returns a new context with the admin session attached.
func WithSession(ctx context.Context, session *store.AdminSession) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext retrieves the admin session, returning nil if not present.
func SessionFromContext(ctx context.Context) *store.AdminSession {
	session, _ := ctx.Value(sessionContextKey{}).(*store.AdminSession)
	return session
}
