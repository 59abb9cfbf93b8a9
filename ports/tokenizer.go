package ports

import "github.com/medilocker/medigate/core"

// Tokenizer converts between domain objects and signed tokens.
type Tokenizer interface {
	// One-time grant operations. A grant is minted for a login identifier
	// and redeemed server-side for a session token pair.
	MintOneTimeToken(loginID string) (string, error)
	OneTimeTokenToGrant(token string) (*core.OneTimeGrant, error)

	// Session token operations.
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
}
