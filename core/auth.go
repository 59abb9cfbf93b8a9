package core

import (
	"strings"
	"time"
)

// LoginDomain is the synthetic mail domain used to derive a canonical login
// identifier from a wallet address for the session store.
const LoginDomain = "wallet.medilocker.app"

// Challenge represents an authentication challenge issued for a wallet.
type Challenge struct {
	Address   string    // Lowercased wallet address the challenge was issued for
	Nonce     string    // Random nonce to be signed, hex encoded
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Account is a provisioned identity backed by a wallet address.
type Account struct {
	ID                 string
	Address            string // Lowercased wallet address, unique per account
	Roles              []Role
	OnboardingComplete bool
	CreatedAt          time.Time
}

// HasRole reports whether the account has been granted the given role.
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session represents an authenticated user session. Access and refresh
// tokens are minted fresh on every successful verify; prior sessions for
// the same account stay valid.
type Session struct {
	ID            string
	AccountID     string
	Address       string
	AccessToken   string
	RefreshToken  string
	RefreshID     string
	IssuedAt      time.Time
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// OneTimeGrant is the parsed form of a one-time redemption token. It is
// minted and redeemed inside the session issuer and never leaves the
// process.
type OneTimeGrant struct {
	ID        string // JTI, recorded on redemption so the grant is single-use
	LoginID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is a signature-verified wallet identity together with the role
// it asked to log in under.
type Identity struct {
	Address       string
	RequestedRole Role
}

// Verification is the result of a successful verify call.
type Verification struct {
	Session            *Session
	GrantedRole        Role
	IsNewAccount       bool
	OnboardingComplete bool
}

// NormalizeAddress lowercases a wallet address into its canonical form.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// LoginIdentifier derives the canonical login identifier the session store
// keys accounts by.
func LoginIdentifier(address string) string {
	return NormalizeAddress(address) + "@" + LoginDomain
}
