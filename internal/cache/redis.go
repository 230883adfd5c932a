package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/patient-feedback-server/internal/domain"
)

// RecordKey builds the cache key mirroring one submitted record.
func RecordKey(patientID int) string {
	return fmt.Sprintf("data:%d", patientID)
}

// RedisCache is the write-only mirror of submitted records. It is
// best-effort telemetry, never a source of truth, so writes run behind
// a circuit breaker: when Redis is down the breaker opens and calls
// fail fast instead of hammering the socket.
type RedisCache struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	log     *logrus.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a
// ping.
func NewRedisCache(cfg domain.RedisConfig, logger *logrus.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "feedback-cache",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})

	logger.WithField("addr", cfg.Addr).Info("Connected to Redis")

	return &RedisCache{
		client:  client,
		breaker: breaker,
		log:     logger,
	}, nil
}

// Set writes one serialized record under the given key. Errors wrap
// domain.ErrCacheUnavailable; callers log and move on.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, value, 0).Err()
	})
	if err != nil {
		return fmt.Errorf("%w: setting %s: %v", domain.ErrCacheUnavailable, key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
