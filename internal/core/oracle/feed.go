// Package oracle converts unit-of-account prices into settlement-asset
// amounts using external price feeds.
package oracle

//go:generate mockgen -source=feed.go -destination=mock_oracle/feed.go -package=mock_oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrUnsupportedAsset is returned for assets the adapter has no
	// configuration for.
	ErrUnsupportedAsset = errors.New("unsupported asset")

	// ErrUnavailable is returned when a feed read fails, is stale, or reports a
	// non-positive rate.
	ErrUnavailable = errors.New("oracle unavailable")
)

// Rate is one feed observation: Value / 10^Decimals units of account per
// whole unit of the asset.
type Rate struct {
	Value     *big.Int
	Decimals  uint8
	UpdatedAt time.Time
}

// Feed reads the latest observation for a pair such as "ETH/USD".
type Feed interface {
	LatestRate(ctx context.Context, pair string) (Rate, error)
}

// Router dispatches each pair to its own feed.
type Router map[string]Feed

// LatestRate implements Feed.
func (r Router) LatestRate(ctx context.Context, pair string) (Rate, error) {
	f, ok := r[pair]
	if !ok {
		return Rate{}, fmt.Errorf("%w: no feed configured for %s", ErrUnavailable, pair)
	}
	return f.LatestRate(ctx, pair)
}
