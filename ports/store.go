package ports

import (
	"context"
	"time"
)

// NonceStore holds active challenge nonces keyed by wallet address,
// overwriting on Put (last-writer-wins per address) and deleting
// unconditionally on Take.
type NonceStore interface {
	// Put stores a nonce for the key with a TTL, replacing any prior entry.
	Put(ctx context.Context, key, nonce string, ttl time.Duration) error

	// Get returns the stored nonce without consuming it.
	Get(ctx context.Context, key string) (string, bool, error)

	// Take returns the stored nonce and deletes the entry whether or not
	// the caller ends up accepting it.
	Take(ctx context.Context, key string) (string, bool, error)
}

// TokenStore records redeemed one-time grant IDs so a grant can be
// exchanged for a session exactly once.
type TokenStore interface {
	MarkRedeemed(ctx context.Context, grantID string, ttl time.Duration) error
	IsRedeemed(ctx context.Context, grantID string) (bool, error)
}
