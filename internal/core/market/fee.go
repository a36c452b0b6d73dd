package market

import (
	"math/big"

	"github.com/LeJamon/goMarketd/internal/core/account"
)

// MaxFeeRate is the largest fee rate, in percent.
const MaxFeeRate = 100

// FeeConfig is the marketplace fee configuration.
type FeeConfig struct {
	Recipient account.Address
	Rate      uint32 // percent
}

// Validate checks the rate bound and the recipient.
func (f FeeConfig) Validate() error {
	if f.Rate > MaxFeeRate {
		return InvalidFeeRate
	}
	if f.Recipient.IsZero() {
		return InvalidRecipient
	}
	return nil
}

// Split divides amount into the recipient's fee and the seller's share. The
// share is the remainder, so fee + share == amount for every rate.
func (f FeeConfig) Split(amount *big.Int) (fee, share *big.Int) {
	fee = new(big.Int).Mul(amount, big.NewInt(int64(f.Rate)))
	fee.Quo(fee, big.NewInt(100))
	share = new(big.Int).Sub(amount, fee)
	return fee, share
}
