package testing

import "math/big"

// Scale is the 18-decimal fixed-point factor used for prices and for the
// default native asset.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Units returns n whole units at 18 decimals: a unit-of-account price, an
// amount of ether or of an 18-decimal token.
func Units(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Scale)
}

// Ether is Units for native amounts.
func Ether(n int64) *big.Int {
	return Units(n)
}

// Int is big.NewInt.
func Int(n int64) *big.Int {
	return big.NewInt(n)
}

// MustInt parses a base-10 integer.
func MustInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid integer " + s)
	}
	return v
}
