package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

var (
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// PrivateKeySize is the length of a raw secp256k1 private key.
const PrivateKeySize = 32

// KeyPair is a secp256k1 signing key.
type KeyPair struct {
	priv *secp256k1.PrivateKey
}

// GenerateKeyPair returns a fresh random key.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &KeyPair{priv: priv}, nil
}

// KeyPairFromSeed derives a deterministic key from seed. It is meant for
// tests and fixtures: Sha512Half(seed) is used as the scalar.
func KeyPairFromSeed(seed []byte) *KeyPair {
	h := Sha512Half(seed)
	return &KeyPair{priv: secp256k1.PrivKeyFromBytes(h[:])}
}

// ParsePrivateKey decodes a hex private key, with or without 0x prefix.
func ParsePrivateKey(s string) (*KeyPair, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}
	defer zero(b)

	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(b); overflow || scalar.IsZero() {
		return nil, ErrInvalidPrivateKey
	}
	return &KeyPair{priv: secp256k1.NewPrivateKey(&scalar)}, nil
}

// PrivateKeyHex returns the hex private key.
func (k *KeyPair) PrivateKeyHex() string {
	b := k.priv.Serialize()
	defer zero(b)
	return hex.EncodeToString(b)
}

// PublicKey returns the 33-byte compressed public key.
func (k *KeyPair) PublicKey() []byte {
	return k.priv.PubKey().SerializeCompressed()
}

// PublicKeyHex returns the compressed public key as hex.
func (k *KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(k.PublicKey())
}

// Address returns the account controlled by the key.
func (k *KeyPair) Address() account.Address {
	return account.FromPublicKey(k.PublicKey())
}

// Sign signs a 32-byte digest and returns a low-S DER signature.
func (k *KeyPair) Sign(digest [32]byte) []byte {
	return ecdsa.Sign(k.priv, digest[:]).Serialize()
}

// SignRequest signs an RPC call; see RequestDigest.
func (k *KeyPair) SignRequest(method string, payload []byte) []byte {
	return k.Sign(RequestDigest(method, payload))
}

// Close wipes the private scalar. The key must not be used afterwards.
func (k *KeyPair) Close() {
	if k != nil && k.priv != nil {
		k.priv.Zero()
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
