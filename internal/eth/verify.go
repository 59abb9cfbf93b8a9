package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// challengeMessageFormat is the exact text a wallet signs. The preamble
// binds the signature to this protocol so a signature over the bare nonce
// cannot be reused elsewhere.
const challengeMessageFormat = "Sign this message to authenticate with MediLocker.\n\nNonce: %s"

// ChallengeMessage builds the personal-sign message for a nonce.
func ChallengeMessage(nonce string) string {
	return fmt.Sprintf(challengeMessageFormat, nonce)
}

// RecoverAddress recovers the signing address from an EIP-191 personal
// signature over message.
func RecoverAddress(message string, signature []byte) (string, error) {
	if len(signature) != crypto.SignatureLength {
		return "", fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	// Wallets return the recovery id as 27/28 per the legacy convention;
	// crypto.SigToPub expects 0/1.
	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub).Hex(), nil
}

// VerifyPersonalSignature reports whether sigHex is a valid personal
// signature over message by claimedAddress. The address comparison is
// case-insensitive. Malformed input, wrong-length signatures and recovery
// failures all collapse to false so callers learn nothing about which
// check failed.
func VerifyPersonalSignature(message, sigHex, claimedAddress string) bool {
	signature, err := hexutil.Decode(sigHex)
	if err != nil {
		return false
	}

	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}

	return strings.EqualFold(recovered, claimedAddress)
}
