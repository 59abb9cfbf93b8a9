package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medilocker/medigate/ports"
	"github.com/redis/go-redis/v9"
)

// RedisNonceStore is a Redis implementation of the NonceStore interface
// for multi-instance deployments.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a new Redis nonce store.
func NewRedisNonceStore(client *redis.Client) ports.NonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "medigate:nonce:",
	}
}

// Put stores a nonce with a TTL, replacing any prior entry.
func (s *RedisNonceStore) Put(ctx context.Context, key, nonce string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, nonce, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}
	return nil
}

// Get returns the stored nonce without consuming it.
func (s *RedisNonceStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read nonce: %w", err)
	}
	return value, true, nil
}

// Take atomically returns and deletes the stored nonce.
func (s *RedisNonceStore) Take(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to consume nonce: %w", err)
	}
	return value, true, nil
}

// RedisTokenStore is a Redis implementation of the TokenStore interface.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore creates a new Redis token store.
func NewRedisTokenStore(client *redis.Client) ports.TokenStore {
	return &RedisTokenStore{
		client: client,
		prefix: "medigate:redeemed:",
	}
}

// MarkRedeemed records a grant ID as redeemed with a TTL.
func (s *RedisTokenStore) MarkRedeemed(ctx context.Context, grantID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+grantID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to mark grant redeemed: %w", err)
	}
	return nil
}

// IsRedeemed checks whether a grant ID has been redeemed.
func (s *RedisTokenStore) IsRedeemed(ctx context.Context, grantID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+grantID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check grant redemption: %w", err)
	}
	return n > 0, nil
}
