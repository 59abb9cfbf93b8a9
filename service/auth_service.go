package service

import (
	"context"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/internal/eth"
	"github.com/medilocker/medigate/ports"
	"github.com/rs/zerolog"
)

// verifyTimeout bounds the external calls a verify performs (account
// resolution, session issuance) so the flow fails instead of hanging.
const verifyTimeout = 10 * time.Second

// AuthService composes the nonce registry, signature verification,
// identity resolution and session issuance into the two-phase
// challenge/verify protocol.
type AuthService struct {
	registry *NonceRegistry
	resolver *IdentityResolver
	issuer   *SessionIssuer
	eventPub ports.EventPublisher
	log      zerolog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	registry *NonceRegistry,
	resolver *IdentityResolver,
	issuer *SessionIssuer,
	eventPub ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		registry: registry,
		resolver: resolver,
		issuer:   issuer,
		eventPub: eventPub,
		log:      log,
	}
}

// RequestChallenge issues a fresh challenge for the wallet. A second
// request for the same address silently supersedes the first. The nonce is
// not a secret: it is signed, not hidden.
func (s *AuthService) RequestChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	if !ethcommon.IsHexAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	return s.registry.Issue(ctx, core.NormalizeAddress(address))
}

// Verify checks a signed challenge and, on success, resolves the account
// and issues a fresh session. The signature check is the authoritative
// security boundary; an absent registry entry is advisory only, since the
// challenge may have been issued by another instance. A superseded or
// already-consumed nonce is a hard rejection.
func (s *AuthService) Verify(ctx context.Context, address, signature, nonce string, role core.Role) (*core.Verification, error) {
	if !ethcommon.IsHexAddress(address) {
		return nil, core.ErrInvalidAddress
	}
	addr := core.NormalizeAddress(address)

	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()

	result, err := s.registry.Consume(ctx, addr, nonce)
	if err != nil {
		// Registry unavailability must not block login on its own.
		s.log.Warn().Err(err).Str("address", addr).Msg("challenge registry unavailable, relying on signature verification")
	}
	switch result {
	case ConsumeMismatch:
		return nil, core.ErrChallengeMismatch
	case ConsumeReplayed:
		return nil, core.ErrChallengeReplayed
	case ConsumeMissing:
		s.log.Info().Str("address", addr).Msg("challenge not found locally, proceeding with signature verification only")
	}

	message := eth.ChallengeMessage(nonce)
	if !eth.VerifyPersonalSignature(message, signature, addr) {
		return nil, core.ErrInvalidSignature
	}

	resolution, err := s.resolver.Resolve(ctx, addr, role)
	if err != nil {
		return nil, err
	}

	session, err := s.issuer.IssueSession(ctx, resolution.Account)
	if err != nil {
		return nil, err
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogin(ctx, addr, resolution.Account.ID, resolution.IsNewAccount); err != nil {
			// The session is already issued; a missed event never fails the login.
			s.log.Warn().Err(err).Str("address", addr).Msg("failed to publish login event")
		}
	}

	return &core.Verification{
		Session:            session,
		GrantedRole:        role,
		IsNewAccount:       resolution.IsNewAccount,
		OnboardingComplete: resolution.Account.OnboardingComplete,
	}, nil
}

// ValidateAccessToken parses and validates an access token, returning the
// session it represents.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*core.Session, error) {
	return s.issuer.tokenizer.AccessTokenToSession(token)
}
