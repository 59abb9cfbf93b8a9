package core

import "errors"

var (
	// ErrChallengeNotFound signals that no challenge was stored for the
	// address. It is advisory: in multi-instance deployments the challenge
	// may live on another instance, so verify proceeds to the signature
	// check instead of failing.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeMismatch is returned when a stored challenge exists but
	// does not match the presented nonce, meaning it was superseded.
	ErrChallengeMismatch = errors.New("challenge superseded by a newer one")

	// ErrChallengeReplayed is returned when the presented nonce has already
	// been consumed once.
	ErrChallengeReplayed = errors.New("challenge already consumed")

	// ErrInvalidSignature is returned when a signature does not recover to
	// the claimed address over the reconstructed challenge message.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidAddress is returned for input that is not a hex wallet address.
	ErrInvalidAddress = errors.New("invalid wallet address")

	// ErrUnknownRole is returned for a role outside the closed set.
	ErrUnknownRole = errors.New("unknown role")

	// ErrAccountNotFound is returned by account stores on a missing address.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when creating an account for an address
	// that already has one.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountProvisioning wraps account store failures during resolve.
	ErrAccountProvisioning = errors.New("account provisioning failed")

	// ErrSessionCreation is returned when one-time token minting or
	// redemption fails. Fatal to the verify call.
	ErrSessionCreation = errors.New("session creation failed")

	// ErrTokenExpired is returned for expired session or one-time tokens.
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned for malformed or mis-audienced tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrGrantRedeemed is returned when a one-time grant is redeemed twice.
	ErrGrantRedeemed = errors.New("one-time grant already redeemed")

	// ErrRateLimited is returned when the completion service rejects the
	// request with a rate-limit response.
	ErrRateLimited = errors.New("completion service rate limit exceeded")

	// ErrQuotaExhausted is returned when the completion service reports the
	// usage quota or credit balance is exhausted.
	ErrQuotaExhausted = errors.New("completion service quota exhausted")

	// ErrUpstreamService is returned for any other non-success response
	// from the completion service.
	ErrUpstreamService = errors.New("completion service error")

	// ErrTransport is returned when the completion service could not be
	// reached or the connection failed mid-stream.
	ErrTransport = errors.New("completion transport failure")

	// ErrExchangeStreaming is returned when a send is attempted on an
	// exchange that already has an in-progress assistant message.
	ErrExchangeStreaming = errors.New("exchange already has a streaming message")
)
