package oracle

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"
)

// StaticFeed serves operator-configured rates. Every read is stamped with the
// current time, so static rates never go stale.
type StaticFeed struct {
	mu    sync.RWMutex
	rates map[string]Rate
	now   func() time.Time
}

// NewStaticFeed returns an empty feed using now as its clock (time.Now if nil).
func NewStaticFeed(now func() time.Time) *StaticFeed {
	if now == nil {
		now = time.Now
	}
	return &StaticFeed{
		rates: make(map[string]Rate),
		now:   now,
	}
}

// Set installs or replaces the rate for pair.
func (f *StaticFeed) Set(pair string, value *big.Int, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates[pair] = Rate{Value: new(big.Int).Set(value), Decimals: decimals}
}

// LatestRate implements Feed.
func (f *StaticFeed) LatestRate(_ context.Context, pair string) (Rate, error) {
	f.mu.RLock()
	r, ok := f.rates[pair]
	f.mu.RUnlock()
	if !ok {
		return Rate{}, fmt.Errorf("%w: no static rate for %s", ErrUnavailable, pair)
	}
	return Rate{Value: new(big.Int).Set(r.Value), Decimals: r.Decimals, UpdatedAt: f.now()}, nil
}
