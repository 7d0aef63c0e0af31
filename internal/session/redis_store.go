package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

const keyPrefix = "revoked:"

var (
	_ RevocationStore = (*RedisStore)(nil)
	_ RevocationStore = (*MemoryStore)(nil)
)

// RedisStore keeps revoked token ids as keys that expire with the token.
// Every Redis call goes through a circuit breaker so an unreachable Redis
// fails fast instead of stalling each request.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(redisURL string, logger *logrus.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	store := NewRedisStoreWithClient(redis.NewClient(opts), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return store, nil
}

func NewRedisStoreWithClient(client *redis.Client, logger *logrus.Logger) *RedisStore {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-revocations",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})
	return &RedisStore{client: client, breaker: breaker}
}

func (s *RedisStore) key(tokenID string) string {
	return keyPrefix + tokenID
}

// Revoke marks tokenID revoked until the given time. Already-expired tokens
// are not stored.
func (s *RedisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, s.key(tokenID), 1, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	res, err := s.breaker.Execute(func() (interface{}, error) {
		n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
		return n > 0, err
	})
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return res.(bool), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
