// Package account defines the 20-byte account identity shared by the engine,
// the asset ledgers and the RPC layer.
package account

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/decred/dcrd/crypto/ripemd160"
)

// AddressLength is the size of an account identity in bytes.
const AddressLength = 20

var (
	// ErrInvalidAddress is returned when an address string cannot be decoded.
	ErrInvalidAddress = errors.New("invalid address")
)

// Address identifies a principal: a seller, a buyer, the engine itself or a
// token contract. The zero value is the null identity.
type Address [AddressLength]byte

// Zero is the null identity.
var Zero Address

// IsZero reports whether a is the null identity.
func (a Address) IsZero() bool {
	return a == Zero
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse decodes a hex address, with or without the 0x prefix.
func Parse(s string) (Address, error) {
	var a Address
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != AddressLength*2 {
		return a, fmt.Errorf("%w: %q has %d hex digits, want %d", ErrInvalidAddress, s, len(s), AddressLength*2)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromPublicKey derives the account identity of a serialized public key as
// RIPEMD160(SHA256(pubKey)).
func FromPublicKey(pubKey []byte) Address {
	sum := sha256.Sum256(pubKey)
	h := ripemd160.New()
	h.Write(sum[:])
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}
