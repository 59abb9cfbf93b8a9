package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
)

const (
	// DefaultAccessTTL is the lifetime of access tokens.
	DefaultAccessTTL = 5 * time.Minute

	// DefaultRefreshTTL is the lifetime of refresh tokens.
	DefaultRefreshTTL = 5 * 24 * time.Hour
)

// SessionIssuer exchanges a resolved account for a fresh session token
// pair. It mints a one-time redemption token bound to the account's
// canonical login identifier and immediately redeems it server-side; the
// one-time token is never handed to the caller.
type SessionIssuer struct {
	tokenizer  ports.Tokenizer
	store      ports.TokenStore
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewSessionIssuer creates a session issuer.
func NewSessionIssuer(tokenizer ports.Tokenizer, store ports.TokenStore) *SessionIssuer {
	return &SessionIssuer{
		tokenizer:  tokenizer,
		store:      store,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
}

// IssueSession mints and redeems a one-time grant and returns the
// resulting access/refresh pair. Every call yields an independent session;
// prior sessions for the account stay valid. Any mint or redemption
// failure is fatal to the verify call.
func (s *SessionIssuer) IssueSession(ctx context.Context, account *core.Account) (*core.Session, error) {
	oneTime, err := s.tokenizer.MintOneTimeToken(core.LoginIdentifier(account.Address))
	if err != nil {
		return nil, fmt.Errorf("%w: minting one-time token: %v", core.ErrSessionCreation, err)
	}

	grant, err := s.tokenizer.OneTimeTokenToGrant(oneTime)
	if err != nil {
		return nil, fmt.Errorf("%w: redeeming one-time token: %v", core.ErrSessionCreation, err)
	}

	redeemed, err := s.store.IsRedeemed(ctx, grant.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: checking grant redemption: %v", core.ErrSessionCreation, err)
	}
	if redeemed {
		return nil, fmt.Errorf("%w: %v", core.ErrSessionCreation, core.ErrGrantRedeemed)
	}
	if err := s.store.MarkRedeemed(ctx, grant.ID, time.Until(grant.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("%w: recording grant redemption: %v", core.ErrSessionCreation, err)
	}

	now := time.Now()
	session := &core.Session{
		ID:            uuid.New().String(),
		AccountID:     account.ID,
		Address:       account.Address,
		RefreshID:     uuid.New().String(),
		IssuedAt:      now,
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshExpiry: now.Add(s.refreshTTL),
	}

	session.AccessToken, err = s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return nil, fmt.Errorf("%w: minting access token: %v", core.ErrSessionCreation, err)
	}
	session.RefreshToken, err = s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return nil, fmt.Errorf("%w: minting refresh token: %v", core.ErrSessionCreation, err)
	}

	return session, nil
}
