package dialogue

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/matchmaker/internal/cache"
)

const defaultSessionTTL = 24 * time.Hour

// SessionStore keeps wizard sessions in Redis with TTL.
type SessionStore struct {
	rc  *cache.RedisCache
	ttl time.Duration
}

// NewSessionStore builds a Redis-backed session store. ttl <= 0 uses 24h.
func NewSessionStore(rc *cache.RedisCache, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{rc: rc, ttl: ttl}
}

// Load returns the session of externalID; ok is false when none exists or it expired.
func (s *SessionStore) Load(ctx context.Context, externalID int64) (*Session, bool, error) {
	var sess Session
	ok, err := s.rc.GetJSON(ctx, cache.KeyForSession(externalID), &sess)
	if err != nil || !ok {
		return nil, false, err
	}
	return &sess, true, nil
}

// Save writes sess and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	if sess.ExternalID == 0 {
		return fmt.Errorf("session without external id")
	}
	return s.rc.SetJSON(ctx, cache.KeyForSession(sess.ExternalID), sess, s.ttl)
}

func (s *SessionStore) Delete(ctx context.Context, externalID int64) error {
	return s.rc.Del(ctx, cache.KeyForSession(externalID))
}
