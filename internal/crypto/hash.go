// Package crypto implements request signing for marketplace clients:
// secp256k1 keys, DER signatures over SHA-512Half digests, and account
// derivation.
package crypto

import "crypto/sha512"

// Sha512Half returns the first 32 bytes of the SHA-512 digest of msg.
func Sha512Half(msg []byte) [32]byte {
	h := sha512.Sum512(msg)
	var out [32]byte
	copy(out[:], h[:32])
	return out
}

// RequestDigest is the digest a client signs for an RPC call:
// Sha512Half(method || 0x00 || payload).
func RequestDigest(method string, payload []byte) [32]byte {
	buf := make([]byte, 0, len(method)+1+len(payload))
	buf = append(buf, method...)
	buf = append(buf, 0)
	buf = append(buf, payload...)
	return Sha512Half(buf)
}
