package crypto

import (
	"fmt"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// Verify checks a DER signature over digest by the compressed or
// uncompressed public key pubKey. Only fully canonical (low-S) signatures are
// accepted.
func Verify(pubKey []byte, digest [32]byte, sig []byte) error {
	if ECDSACanonicality(sig) != CanonicityFullyCanonical {
		return fmt.Errorf("%w: not fully canonical", ErrInvalidSignature)
	}
	pk, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !parsed.Verify(digest[:], pk) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyRequest verifies a signed RPC call and returns the signer's account.
func VerifyRequest(method string, payload, pubKey, sig []byte) (account.Address, error) {
	if err := Verify(pubKey, RequestDigest(method, payload), sig); err != nil {
		return account.Address{}, err
	}
	return account.FromPublicKey(pubKey), nil
}
