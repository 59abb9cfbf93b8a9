package tokenizer

import "github.com/golang-jwt/jwt/v5"

// OneTimeClaims are the claims of a one-time redemption token. The subject
// is the canonical login identifier.
type OneTimeClaims struct {
	jwt.RegisteredClaims
}

// AccessClaims combine standard claims with access-specific ones.
type AccessClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"acct"`
	RefreshID string `json:"rid"` // ID of the paired refresh token
}

// RefreshClaims combine standard claims with the owning account.
type RefreshClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"acct"`
}
