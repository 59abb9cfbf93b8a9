package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/ports"
)

const (
	AudienceOneTime = "session:onetime"
	AudienceAccess  = "session:access"
	AudienceRefresh = "session:refresh"

	// DefaultOneTimeTTL bounds the window between minting a one-time grant
	// and redeeming it in the same call.
	DefaultOneTimeTTL = time.Minute
)

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs.
type JWTTokenizer struct {
	signKey    *ecdsa.PrivateKey
	oneTimeTTL time.Duration
}

// NewJWTTokenizer creates a new JWT tokenizer.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey, oneTimeTTL: DefaultOneTimeTTL}
}

func (j *JWTTokenizer) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return &j.signKey.PublicKey, nil
}

func mapParseError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return core.ErrTokenExpired
	}
	return core.ErrInvalidToken
}

// MintOneTimeToken mints a one-time redemption token bound to a login
// identifier.
func (j *JWTTokenizer) MintOneTimeToken(loginID string) (string, error) {
	now := time.Now()
	claims := OneTimeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   loginID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.oneTimeTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{AudienceOneTime},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign one-time token: %w", err)
	}
	return signed, nil
}

// OneTimeTokenToGrant parses and validates a one-time token.
func (j *JWTTokenizer) OneTimeTokenToGrant(tokenStr string) (*core.OneTimeGrant, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &OneTimeClaims{}, j.keyFunc,
		jwt.WithAudience(AudienceOneTime))
	if err != nil {
		return nil, fmt.Errorf("failed to parse one-time token: %w", mapParseError(err))
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*OneTimeClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.OneTimeGrant{
		ID:        claims.ID,
		LoginID:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// SessionToAccessToken converts a Session to an access JWT.
func (j *JWTTokenizer) SessionToAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.AccessExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
		AccountID: session.AccountID,
		RefreshID: session.RefreshID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// AccessTokenToSession parses an access token back into the session it
// represents.
func (j *JWTTokenizer) AccessTokenToSession(tokenStr string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, j.keyFunc,
		jwt.WithAudience(AudienceAccess))
	if err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", mapParseError(err))
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}

	return &core.Session{
		ID:           claims.ID,
		AccountID:    claims.AccountID,
		Address:      claims.Subject,
		AccessToken:  tokenStr,
		RefreshID:    claims.RefreshID,
		IssuedAt:     claims.IssuedAt.Time,
		AccessExpiry: claims.ExpiresAt.Time,
	}, nil
}

// SessionToRefreshToken converts a Session to a refresh JWT.
func (j *JWTTokenizer) SessionToRefreshToken(session *core.Session) (string, error) {
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.RefreshID,
			ExpiresAt: jwt.NewNumericDate(session.RefreshExpiry),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceRefresh},
		},
		AccountID: session.AccountID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}
