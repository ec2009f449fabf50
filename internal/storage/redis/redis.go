package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"petprint-bot/internal/session"
	pkgredis "petprint-bot/pkg/redis"
)

// KV is the subset of the Redis client the session store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Storage keeps conversation sessions as JSON under "session:<userID>".
type Storage struct {
	client KV
	ttl    time.Duration
	now    func() time.Time
}

var _ session.Store = (*Storage)(nil)

func New(client KV, ttl time.Duration) *Storage {
	return &Storage{client: client, ttl: ttl, now: time.Now}
}

func (s *Storage) Get(ctx context.Context, userID string) (*session.Session, error) {
	data, err := s.client.Get(ctx, buildSessionKey(userID))
	if errors.Is(err, pkgredis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal failure: %w", err)
	}
	return &sess, nil
}

// Save writes the session and restarts its TTL.
func (s *Storage) Save(ctx context.Context, sess *session.Session) error {
	sess.UpdatedAt = s.now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.client.Set(ctx, buildSessionKey(sess.UserID), data, s.ttl)
}

func (s *Storage) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, buildSessionKey(userID))
}

func buildSessionKey(userID string) string {
	return "session:" + userID
}
