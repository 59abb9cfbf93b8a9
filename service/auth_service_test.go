package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/medilocker/medigate/adapters/accountstore"
	"github.com/medilocker/medigate/adapters/store"
	"github.com/medilocker/medigate/adapters/tokenizer"
	"github.com/medilocker/medigate/core"
	"github.com/medilocker/medigate/internal/eth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// wallet is a test key pair that signs challenges the way a browser
// wallet would (EIP-191 personal sign, v = 27/28).
type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) *wallet {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return &wallet{
		key:     key,
		address: strings.ToLower(ethcrypto.PubkeyToAddress(key.PublicKey).Hex()),
	}
}

func (w *wallet) sign(t *testing.T, nonce string) string {
	t.Helper()

	hash := accounts.TextHash([]byte(eth.ChallengeMessage(nonce)))
	sig, err := ethcrypto.Sign(hash, w.key)
	require.NoError(t, err)
	sig[ethcrypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

type capturedEvent struct {
	address      string
	accountID    string
	isNewAccount bool
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *fakePublisher) PublishLogin(ctx context.Context, address, accountID string, isNewAccount bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{address, accountID, isNewAccount})
	return nil
}

func newAuthService(t *testing.T) (*AuthService, *fakePublisher) {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	pub := &fakePublisher{}
	svc := NewAuthService(
		NewNonceRegistry(store.NewMemoryNonceStore(), DefaultChallengeTTL),
		NewIdentityResolver(accountstore.NewMemoryStore()),
		NewSessionIssuer(tokenizer.NewJWTTokenizer(signKey), store.NewMemoryTokenStore()),
		pub,
		zerolog.Nop(),
	)
	return svc, pub
}

func TestRequestChallengeRejectsBadAddress(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.RequestChallenge(context.Background(), "not-an-address")
	require.ErrorIs(t, err, core.ErrInvalidAddress)
}

func TestFirstLoginEndToEnd(t *testing.T) {
	svc, pub := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.Nonce)

	v, err := svc.Verify(ctx, w.address, w.sign(t, challenge.Nonce), challenge.Nonce, core.RolePatient)
	require.NoError(t, err)
	require.True(t, v.IsNewAccount)
	require.False(t, v.OnboardingComplete)
	require.Equal(t, core.RolePatient, v.GrantedRole)
	require.NotEmpty(t, v.Session.AccessToken)
	require.NotEmpty(t, v.Session.RefreshToken)
	require.NotEqual(t, v.Session.AccessToken, v.Session.RefreshToken)

	// Issued access tokens validate back to the same account.
	session, err := svc.ValidateAccessToken(ctx, v.Session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, v.Session.AccountID, session.AccountID)
	require.Equal(t, w.address, session.Address)

	require.Len(t, pub.events, 1)
	require.Equal(t, w.address, pub.events[0].address)
	require.True(t, pub.events[0].isNewAccount)
}

func TestVerifyReplayIsRejected(t *testing.T) {
	svc, _ := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)

	signature := w.sign(t, challenge.Nonce)
	_, err = svc.Verify(ctx, w.address, signature, challenge.Nonce, core.RolePatient)
	require.NoError(t, err)

	// Same (nonce, signature) pair again: signature is still valid, but
	// the consumed challenge must not be accepted twice.
	_, err = svc.Verify(ctx, w.address, signature, challenge.Nonce, core.RolePatient)
	require.ErrorIs(t, err, core.ErrChallengeReplayed)
}

func TestVerifyWithSupersededNonceFails(t *testing.T) {
	svc, _ := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	first, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)
	_, err = svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, w.address, w.sign(t, first.Nonce), first.Nonce, core.RolePatient)
	require.ErrorIs(t, err, core.ErrChallengeMismatch)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	svc, _ := newAuthService(t)
	w := newWallet(t)
	other := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)

	// Signed by a different key.
	_, err = svc.Verify(ctx, w.address, other.sign(t, challenge.Nonce), challenge.Nonce, core.RolePatient)
	require.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestVerifyRejectsTamperedNonce(t *testing.T) {
	svc, _ := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)
	signature := w.sign(t, challenge.Nonce)

	tampered := "0" + challenge.Nonce[1:]
	if tampered == challenge.Nonce {
		tampered = "1" + challenge.Nonce[1:]
	}

	_, err = svc.Verify(ctx, w.address, signature, tampered, core.RolePatient)
	require.Error(t, err)
}

func TestVerifyUnknownNonceSignatureStillAuthoritative(t *testing.T) {
	// A challenge issued by another instance is invisible locally; the
	// registry miss is advisory and a valid signature must still pass.
	svc, _ := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	nonce := "f00dfeedf00dfeedf00dfeedf00dfeedf00dfeedf00dfeedf00dfeedf00dfeed"
	v, err := svc.Verify(ctx, w.address, w.sign(t, nonce), nonce, core.RolePatient)
	require.NoError(t, err)
	require.True(t, v.IsNewAccount)
}

func TestReturningLoginAccumulatesRoles(t *testing.T) {
	svc, _ := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	c1, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)
	first, err := svc.Verify(ctx, w.address, w.sign(t, c1.Nonce), c1.Nonce, core.RolePatient)
	require.NoError(t, err)

	c2, err := svc.RequestChallenge(ctx, w.address)
	require.NoError(t, err)
	second, err := svc.Verify(ctx, w.address, w.sign(t, c2.Nonce), c2.Nonce, core.RoleDoctor)
	require.NoError(t, err)

	require.False(t, second.IsNewAccount)
	require.Equal(t, first.Session.AccountID, second.Session.AccountID)
	require.Equal(t, core.RoleDoctor, second.GrantedRole)
}

func TestEachVerifyIssuesIndependentSession(t *testing.T) {
	svc, _ := newAuthService(t)
	w := newWallet(t)
	ctx := context.Background()

	var access []string
	for i := 0; i < 2; i++ {
		c, err := svc.RequestChallenge(ctx, w.address)
		require.NoError(t, err)
		v, err := svc.Verify(ctx, w.address, w.sign(t, c.Nonce), c.Nonce, core.RolePatient)
		require.NoError(t, err)
		access = append(access, v.Session.AccessToken)
	}
	require.NotEqual(t, access[0], access[1])

	// Earlier sessions stay valid after a new login.
	_, err := svc.ValidateAccessToken(ctx, access[0])
	require.NoError(t, err)
}
