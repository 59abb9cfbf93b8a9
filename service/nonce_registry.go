package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
)

// DefaultChallengeTTL is how long an issued challenge stays valid.
const DefaultChallengeTTL = 5 * time.Minute

// ConsumeResult classifies the outcome of consuming a challenge.
type ConsumeResult int

const (
	// ConsumeOK means the presented nonce matched the active challenge.
	ConsumeOK ConsumeResult = iota

	// ConsumeMissing means no active challenge was found for the address.
	// Advisory only: in a multi-instance deployment the challenge may have
	// been issued by another instance, so the signature check stays
	// authoritative.
	ConsumeMissing

	// ConsumeMismatch means an active challenge exists but holds a
	// different nonce, i.e. the presented one was superseded.
	ConsumeMismatch

	// ConsumeReplayed means the presented nonce was already consumed once.
	ConsumeReplayed
)

// NonceRegistry issues and consumes single-use authentication challenges
// keyed by wallet address. Issuing overwrites any prior challenge for the
// address; consuming deletes the active entry no matter the outcome and
// leaves a tombstone so a replay of the same nonce is detectable.
type NonceRegistry struct {
	store ports.NonceStore
	ttl   time.Duration
}

// NewNonceRegistry creates a registry over the given store.
func NewNonceRegistry(store ports.NonceStore, ttl time.Duration) *NonceRegistry {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &NonceRegistry{store: store, ttl: ttl}
}

func challengeKey(address string) string {
	return "challenge:" + address
}

func consumedKey(address, nonce string) string {
	return "consumed:" + address + ":" + nonce
}

// Issue generates a fresh challenge for the address, superseding any prior
// unconsumed one.
func (r *NonceRegistry) Issue(ctx context.Context, address string) (*core.Challenge, error) {
	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	addr := core.NormalizeAddress(address)
	now := time.Now()
	challenge := &core.Challenge{
		Address:   addr,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(r.ttl),
	}

	if err := r.store.Put(ctx, challengeKey(addr), challenge.Nonce, r.ttl); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return challenge, nil
}

// Consume takes the active challenge for the address and compares it to
// the presented nonce. The active entry is deleted unconditionally; a
// matching or superseded nonce is tombstoned for the challenge TTL.
func (r *NonceRegistry) Consume(ctx context.Context, address, nonce string) (ConsumeResult, error) {
	addr := core.NormalizeAddress(address)

	stored, found, err := r.store.Take(ctx, challengeKey(addr))
	if err != nil {
		return ConsumeMissing, fmt.Errorf("failed to consume challenge: %w", err)
	}

	if found {
		if err := r.store.Put(ctx, consumedKey(addr, stored), "1", r.ttl); err != nil {
			return ConsumeMissing, fmt.Errorf("failed to tombstone challenge: %w", err)
		}
		if stored == nonce {
			return ConsumeOK, nil
		}
		return ConsumeMismatch, nil
	}

	_, replayed, err := r.store.Get(ctx, consumedKey(addr, nonce))
	if err != nil {
		return ConsumeMissing, fmt.Errorf("failed to check challenge tombstone: %w", err)
	}
	if replayed {
		return ConsumeReplayed, nil
	}

	return ConsumeMissing, nil
}
