package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/princekumarofficial/course-media-service/internal/types/media"
)

// Cache key patterns
const (
	UploadSessionKey = "upload:session:%s" // upload:session:mediaID
	QuotaUsageKey    = "quota:usage:%s"    // quota:usage:tenantID
)

// Cache durations
const (
	DefaultSessionDuration = 24 * time.Hour
	QuotaUsageDuration     = 30 * time.Second
)

// SessionStore keeps in-flight upload sessions in Redis. An expired session
// is indistinguishable from one that never existed.
type SessionStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewSessionStore creates a session store; ttl <= 0 uses DefaultSessionDuration
func NewSessionStore(redisClient *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionDuration
	}
	return &SessionStore{redis: redisClient, ttl: ttl}
}

// TTL is the lifetime applied by Put when none is given
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Put stores the session under its media ID, replacing any previous value
func (s *SessionStore) Put(ctx context.Context, session *media.UploadSession, ttl time.Duration) error {
	if session == nil || session.MediaID == "" {
		return fmt.Errorf("session without media id: %w", media.ErrInvalidRequest)
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode upload session: %w", err)
	}

	if err := s.redis.Set(ctx, fmt.Sprintf(UploadSessionKey, session.MediaID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store upload session: %w", err)
	}
	return nil
}

// Get returns the session or media.ErrNotFound when absent or expired
func (s *SessionStore) Get(ctx context.Context, mediaID string) (*media.UploadSession, error) {
	cached, err := s.redis.Get(ctx, fmt.Sprintf(UploadSessionKey, mediaID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("upload session %s: %w", mediaID, media.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load upload session: %w", err)
	}

	var session media.UploadSession
	if err := json.Unmarshal(cached, &session); err != nil {
		return nil, fmt.Errorf("failed to decode upload session: %w", err)
	}
	return &session, nil
}

// Delete removes the session. It reports whether a session was present.
func (s *SessionStore) Delete(ctx context.Context, mediaID string) (bool, error) {
	deleted, err := s.redis.Del(ctx, fmt.Sprintf(UploadSessionKey, mediaID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete upload session: %w", err)
	}
	return deleted > 0, nil
}

// Touch stamps LastUpdatedAt and rewrites the session, keeping its remaining TTL
func (s *SessionStore) Touch(ctx context.Context, session *media.UploadSession, at time.Time) error {
	key := fmt.Sprintf(UploadSessionKey, session.MediaID)

	remaining, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to read session ttl: %w", err)
	}
	if remaining <= 0 {
		return fmt.Errorf("upload session %s: %w", session.MediaID, media.ErrNotFound)
	}

	session.LastUpdatedAt = at
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode upload session: %w", err)
	}
	if err := s.redis.Set(ctx, key, data, remaining).Err(); err != nil {
		return fmt.Errorf("failed to store upload session: %w", err)
	}
	return nil
}
