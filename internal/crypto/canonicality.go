package crypto

import "math/big"

// Canonicality is the malleability class of a DER-encoded ECDSA signature.
type Canonicality int

const (
	// CanonicityNone: malformed DER, or R/S out of range.
	CanonicityNone Canonicality = iota
	// CanonicityCanonical: valid, but S > N/2 so (R, N-S) also verifies.
	CanonicityCanonical
	// CanonicityFullyCanonical: valid with low S.
	CanonicityFullyCanonical
)

var (
	curveOrder, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364141", 16)
	halfOrder     = new(big.Int).Rsh(curveOrder, 1)
)

// ECDSACanonicality classifies sig, a DER signature
// 0x30 <len> 0x02 <rlen> <r> 0x02 <slen> <s>.
func ECDSACanonicality(sig []byte) Canonicality {
	if len(sig) < 8 || len(sig) > 72 || sig[0] != 0x30 || int(sig[1]) != len(sig)-2 {
		return CanonicityNone
	}

	r, rest, ok := derInteger(sig[2:])
	if !ok {
		return CanonicityNone
	}
	s, rest, ok := derInteger(rest)
	if !ok || len(rest) != 0 {
		return CanonicityNone
	}

	for _, v := range []*big.Int{r, s} {
		if v.Sign() <= 0 || v.Cmp(curveOrder) >= 0 {
			return CanonicityNone
		}
	}
	if s.Cmp(halfOrder) > 0 {
		return CanonicityCanonical
	}
	return CanonicityFullyCanonical
}

// derInteger reads one minimally-encoded non-negative DER INTEGER.
func derInteger(data []byte) (*big.Int, []byte, bool) {
	if len(data) < 2 || data[0] != 0x02 {
		return nil, nil, false
	}
	n := int(data[1])
	if n < 1 || n > 33 || len(data) < 2+n {
		return nil, nil, false
	}
	b := data[2 : 2+n]
	if b[0]&0x80 != 0 {
		return nil, nil, false
	}
	if b[0] == 0 && (n == 1 || b[1]&0x80 == 0) {
		return nil, nil, false
	}
	return new(big.Int).SetBytes(b), data[2+n:], true
}
