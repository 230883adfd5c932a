package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/patient-feedback-server/internal/domain"
)

const keyPrefix = "session:"

// RedisStore keeps per-client session markers in Redis with a TTL
// equal to the session lifetime.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg domain.RedisConfig, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis for sessions: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Get returns the session marker, or (nil, nil) when no session
// exists.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (*domain.SessionData, error) {
	val, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}

	var data domain.SessionData
	if err := json.Unmarshal([]byte(val), &data); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &data, nil
}

// Save writes the session marker, resetting its TTL.
func (s *RedisStore) Save(ctx context.Context, sessionID string, data *domain.SessionData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+sessionID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}
	return nil
}

// Delete removes the session marker.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, keyPrefix+sessionID).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
