// ABOUTME: Redis-backed SessionStore so several feedbackd processes can share admin sessions
// ABOUTME: One hash per session; the key TTL tracks the idle timeout and is refreshed on touch

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore implements SessionStore on Redis.
type RedisSessionStore struct {
	client      redis.UniversalClient
	prefix      string
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

var _ SessionStore = (*RedisSessionStore)(nil)

// NewRedisSessionStore wraps client. Keys are "<prefix>session:<id>".
// idleTimeout bounds how long a key lives without a touch.
func NewRedisSessionStore(client redis.UniversalClient, prefix string, idleTimeout time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client:      client,
		prefix:      prefix,
		idleTimeout: idleTimeout,
		logger:      slog.Default().With("component", "redis-sessions"),
		now:         time.Now,
	}
}

func (r *RedisSessionStore) key(id string) string {
	return r.prefix + "session:" + id
}

// ttl is the idle timeout, clipped so a key never outlives the absolute expiry.
func (r *RedisSessionStore) ttl(expiresAt time.Time) time.Duration {
	remaining := expiresAt.Sub(r.now())
	if r.idleTimeout > 0 && r.idleTimeout < remaining {
		return r.idleTimeout
	}
	return remaining
}

// CreateAdminSession stores the session hash with its TTL.
func (r *RedisSessionStore) CreateAdminSession(ctx context.Context, session *AdminSession) error {
	ttl := r.ttl(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	key := r.key(session.ID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"username":     session.Username,
			"created_at":   formatTime(session.CreatedAt),
			"last_seen_at": formatTime(session.LastSeenAt),
			"expires_at":   formatTime(session.ExpiresAt),
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return storageErr("storing admin session in redis", err)
	}
	return nil
}

// GetAdminSession loads a session; a missing key means expired or deleted.
func (r *RedisSessionStore) GetAdminSession(ctx context.Context, id string) (*AdminSession, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, storageErr("loading admin session from redis", err)
	}
	if len(fields) == 0 {
		return nil, ErrAdminSessionNotFound
	}

	session := &AdminSession{ID: id, Username: fields["username"]}
	if session.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if session.LastSeenAt, err = parseTime(fields["last_seen_at"]); err != nil {
		return nil, fmt.Errorf("parsing last_seen_at: %w", err)
	}
	if session.ExpiresAt, err = parseTime(fields["expires_at"]); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	if !session.ExpiresAt.After(r.now()) {
		return nil, ErrAdminSessionNotFound
	}
	return session, nil
}

// TouchAdminSession updates last_seen_at and pushes the key TTL forward.
func (r *RedisSessionStore) TouchAdminSession(ctx context.Context, id string, lastSeen time.Time) error {
	session, err := r.GetAdminSession(ctx, id)
	if err != nil {
		return err
	}

	key := r.key(id)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, "last_seen_at", formatTime(lastSeen))
		pipe.Expire(ctx, key, r.ttl(session.ExpiresAt))
		return nil
	})
	if err != nil {
		return storageErr("touching admin session in redis", err)
	}
	return nil
}

// DeleteAdminSession removes the session key.
func (r *RedisSessionStore) DeleteAdminSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return storageErr("deleting admin session from redis", err)
	}
	return nil
}

// DeleteExpiredAdminSessions is a no-op: Redis expires keys on its own.
func (r *RedisSessionStore) DeleteExpiredAdminSessions(ctx context.Context, idleTimeout time.Duration) (int64, error) {
	return 0, nil
}

// Ping checks that Redis is reachable.
func (r *RedisSessionStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return storageErr("pinging redis", err)
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisSessionStore) Close() error {
	r.logger.Info("closing redis session store")
	return r.client.Close()
}
