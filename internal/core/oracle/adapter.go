package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxStaleness bounds how old an observation may be before it is
// treated as unavailable.
const DefaultMaxStaleness = time.Hour

// Asset describes one settlement asset.
type Asset struct {
	Symbol   string
	Decimals uint8
	Pair     string
	Native   bool
}

// Config is the adapter configuration.
type Config struct {
	// UnitDecimals is the fixed-point scale of unit-of-account prices.
	UnitDecimals uint8

	// MaxStaleness is the oldest acceptable observation age. Zero selects
	// DefaultMaxStaleness; a negative value disables the check.
	MaxStaleness time.Duration

	Assets []Asset
}

// Quote is the result of a price conversion.
type Quote struct {
	Asset    string
	Price    *big.Int
	Required *big.Int
	Rate     Rate
}

// Adapter normalizes feed reads for the engine.
type Adapter struct {
	unitDecimals uint8
	maxStaleness time.Duration
	assets       map[string]Asset
	feed         Feed
	now          func() time.Time
	logger       *zap.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithLogger sets the adapter logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAdapter validates cfg and builds an adapter reading from feed.
func NewAdapter(cfg Config, feed Feed, opts ...Option) (*Adapter, error) {
	if feed == nil {
		return nil, errors.New("oracle: feed is required")
	}

	a := &Adapter{
		unitDecimals: cfg.UnitDecimals,
		maxStaleness: cfg.MaxStaleness,
		assets:       make(map[string]Asset, len(cfg.Assets)),
		feed:         feed,
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	if a.maxStaleness == 0 {
		a.maxStaleness = DefaultMaxStaleness
	}

	natives := 0
	for _, asset := range cfg.Assets {
		symbol := strings.TrimSpace(asset.Symbol)
		if symbol == "" {
			return nil, errors.New("oracle: asset symbol is required")
		}
		if asset.Pair == "" {
			return nil, fmt.Errorf("oracle: asset %s has no feed pair", symbol)
		}
		if _, dup := a.assets[symbol]; dup {
			return nil, fmt.Errorf("oracle: duplicate asset %s", symbol)
		}
		if asset.Native {
			natives++
		}
		asset.Symbol = symbol
		a.assets[symbol] = asset
	}
	if natives > 1 {
		return nil, errors.New("oracle: at most one native asset")
	}

	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Supports reports whether symbol is a configured asset.
func (a *Adapter) Supports(symbol string) bool {
	_, ok := a.assets[symbol]
	return ok
}

// Rate returns the current units-of-account-per-asset rate for symbol.
func (a *Adapter) Rate(ctx context.Context, symbol string) (Rate, error) {
	asset, ok := a.assets[symbol]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	r, err := a.feed.LatestRate(ctx, asset.Pair)
	if err != nil {
		a.logger.Warn("price feed read failed", zap.String("pair", asset.Pair), zap.Error(err))
		if errors.Is(err, ErrUnavailable) {
			return Rate{}, err
		}
		return Rate{}, fmt.Errorf("%w: %s: %v", ErrUnavailable, asset.Pair, err)
	}

	if r.Value == nil || r.Value.Sign() <= 0 {
		return Rate{}, fmt.Errorf("%w: %s reported a non-positive rate", ErrUnavailable, asset.Pair)
	}
	if a.maxStaleness > 0 {
		if age := a.now().Sub(r.UpdatedAt); age > a.maxStaleness {
			return Rate{}, fmt.Errorf("%w: %s is stale (%s old)", ErrUnavailable, asset.Pair, age.Truncate(time.Second))
		}
	}
	return r, nil
}

// RequiredPayment converts a unit-of-account price into base units of
// symbol:
//
//	required = ceil(price * 10^rateDecimals * 10^assetDecimals / (rate * 10^unitDecimals))
//
// Rounding up keeps sellers from being underpaid by truncation.
func (a *Adapter) RequiredPayment(ctx context.Context, symbol string, price *big.Int) (*big.Int, error) {
	q, err := a.Quote(ctx, symbol, price)
	if err != nil {
		return nil, err
	}
	return q.Required, nil
}

// Quote is RequiredPayment with the observation it was computed from.
func (a *Adapter) Quote(ctx context.Context, symbol string, price *big.Int) (Quote, error) {
	if price == nil {
		price = new(big.Int)
	}
	if price.Sign() < 0 {
		return Quote{}, fmt.Errorf("oracle: negative price %s", price)
	}

	r, err := a.Rate(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	asset := a.assets[symbol]

	num := new(big.Int).Mul(price, pow10(r.Decimals))
	num.Mul(num, pow10(asset.Decimals))
	den := new(big.Int).Mul(r.Value, pow10(a.unitDecimals))

	return Quote{
		Asset:    symbol,
		Price:    new(big.Int).Set(price),
		Required: ceilDiv(num, den),
		Rate:     r,
	}, nil
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ceilDiv returns ceil(num/den) for non-negative num and positive den.
func ceilDiv(num, den *big.Int) *big.Int {
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
