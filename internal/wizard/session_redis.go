package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps wizard sessions in Redis so the bot can restart
// without dropping half-filled forms. Sessions expire via key TTL.
type RedisStore struct {
	client  *redis.Client
	timeout time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &RedisStore{client: client, timeout: timeout}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("wizard:session:%d", chatID)
}

// Get returns the stored session for a chat, or a fresh one when none
// exists. Corrupt payloads are treated as missing.
func (s *RedisStore) Get(chatID int64) (*Session, error) {
	val, err := s.client.Get(context.Background(), sessionKey(chatID)).Result()
	if err == redis.Nil {
		return NewSession(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return NewSession(chatID), nil
	}
	return &sess, nil
}

// Put stores the session with the configured TTL.
func (s *RedisStore) Put(sess *Session) error {
	sess.UpdatedAt = time.Now()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(context.Background(), sessionKey(sess.ChatID), data, s.timeout).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

// Delete removes the session for a chat.
func (s *RedisStore) Delete(chatID int64) error {
	if err := s.client.Del(context.Background(), sessionKey(chatID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
