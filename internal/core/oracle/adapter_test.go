package oracle_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"github.com/LeJamon/goMarketd/internal/core/oracle/mock_oracle"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newAdapter(t *testing.T, feed oracle.Feed) *oracle.Adapter {
	t.Helper()
	a, err := oracle.NewAdapter(oracle.Config{
		UnitDecimals: 18,
		Assets: []oracle.Asset{
			{Symbol: "ETH", Decimals: 18, Pair: "ETH/USD", Native: true},
			{Symbol: "DAI", Decimals: 18, Pair: "DAI/USD"},
			{Symbol: "USDC", Decimals: 6, Pair: "USDC/USD"},
		},
	}, feed, oracle.WithClock(func() time.Time { return epoch }), oracle.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return a
}

func TestRequiredPayment(t *testing.T) {
	tests := []struct {
		name     string
		symbol   string
		pair     string
		rate     int64
		decimals uint8
		price    *big.Int
		want     string
	}{
		{"native exact", "ETH", "ETH/USD", 300000000000, 8, e18(60), "20000000000000000"},
		{"native rounds up", "ETH", "ETH/USD", 300000000000, 8, e18(10), "3333333333333334"},
		{"dust price rounds up to one", "ETH", "ETH/USD", 300000000000, 8, big.NewInt(1), "1"},
		{"stable token at par", "DAI", "DAI/USD", 100000000, 8, e18(60), "60000000000000000000"},
		{"six decimal token", "USDC", "USDC/USD", 99990000, 8, e18(60), "60006001"},
		{"zero price", "DAI", "DAI/USD", 100000000, 8, big.NewInt(0), "0"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			feed := mock_oracle.NewMockFeed(ctrl)
			feed.EXPECT().LatestRate(gomock.Any(), tc.pair).Return(oracle.Rate{
				Value:     big.NewInt(tc.rate),
				Decimals:  tc.decimals,
				UpdatedAt: epoch,
			}, nil)

			got, err := newAdapter(t, feed).RequiredPayment(context.Background(), tc.symbol, tc.price)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestRequiredPaymentNeverUnderpays(t *testing.T) {
	feed := oracle.NewStaticFeed(func() time.Time { return epoch })
	feed.Set("ETH/USD", big.NewInt(271828182845), 8)
	a := newAdapter(t, feed)

	rate := big.NewInt(271828182845)
	for _, p := range []int64{1, 7, 999, 123456789} {
		price := new(big.Int).Mul(big.NewInt(p), big.NewInt(1_000_000_007))
		required, err := a.RequiredPayment(context.Background(), "ETH", price)
		require.NoError(t, err)

		// required * rate / 10^8 must cover price (both at 18 decimals).
		paid := new(big.Int).Mul(required, rate)
		owed := new(big.Int).Mul(price, big.NewInt(100000000))
		assert.GreaterOrEqual(t, paid.Cmp(owed), 0, "price %s", price)

		less := new(big.Int).Sub(required, big.NewInt(1))
		assert.Negative(t, new(big.Int).Mul(less, rate).Cmp(owed), "price %s", price)
	}
}

func TestAdapterFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported asset", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		feed := mock_oracle.NewMockFeed(ctrl)
		_, err := newAdapter(t, feed).RequiredPayment(ctx, "XYZ", e18(1))
		require.ErrorIs(t, err, oracle.ErrUnsupportedAsset)
	})

	t.Run("feed error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		feed := mock_oracle.NewMockFeed(ctrl)
		feed.EXPECT().LatestRate(gomock.Any(), "ETH/USD").Return(oracle.Rate{}, errors.New("connection refused"))
		_, err := newAdapter(t, feed).RequiredPayment(ctx, "ETH", e18(1))
		require.ErrorIs(t, err, oracle.ErrUnavailable)
	})

	t.Run("stale observation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		feed := mock_oracle.NewMockFeed(ctrl)
		feed.EXPECT().LatestRate(gomock.Any(), "ETH/USD").Return(oracle.Rate{
			Value:     big.NewInt(300000000000),
			Decimals:  8,
			UpdatedAt: epoch.Add(-2 * time.Hour),
		}, nil)
		_, err := newAdapter(t, feed).RequiredPayment(ctx, "ETH", e18(1))
		require.ErrorIs(t, err, oracle.ErrUnavailable)
	})

	t.Run("non-positive rate", func(t *testing.T) {
		for _, v := range []*big.Int{nil, big.NewInt(0), big.NewInt(-5)} {
			ctrl := gomock.NewController(t)
			feed := mock_oracle.NewMockFeed(ctrl)
			feed.EXPECT().LatestRate(gomock.Any(), "DAI/USD").Return(oracle.Rate{Value: v, Decimals: 8, UpdatedAt: epoch}, nil)
			_, err := newAdapter(t, feed).RequiredPayment(ctx, "DAI", e18(1))
			require.ErrorIs(t, err, oracle.ErrUnavailable)
		}
	})

	t.Run("negative price", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		feed := mock_oracle.NewMockFeed(ctrl)
		_, err := newAdapter(t, feed).RequiredPayment(ctx, "DAI", big.NewInt(-1))
		require.Error(t, err)
	})
}

func TestNewAdapterValidation(t *testing.T) {
	feed := oracle.NewStaticFeed(nil)
	tests := []struct {
		name   string
		assets []oracle.Asset
	}{
		{"empty symbol", []oracle.Asset{{Symbol: " ", Pair: "ETH/USD"}}},
		{"missing pair", []oracle.Asset{{Symbol: "ETH"}}},
		{"duplicate", []oracle.Asset{{Symbol: "DAI", Pair: "DAI/USD"}, {Symbol: "DAI", Pair: "DAI/EUR"}}},
		{"two natives", []oracle.Asset{{Symbol: "ETH", Pair: "a", Native: true}, {Symbol: "BTC", Pair: "b", Native: true}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := oracle.NewAdapter(oracle.Config{Assets: tc.assets}, feed)
			require.Error(t, err)
		})
	}

	_, err := oracle.NewAdapter(oracle.Config{}, nil)
	require.Error(t, err)
}

func TestRouter(t *testing.T) {
	eth := oracle.NewStaticFeed(func() time.Time { return epoch })
	eth.Set("ETH/USD", big.NewInt(42), 0)
	r := oracle.Router{"ETH/USD": eth}

	got, err := r.LatestRate(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Value.Int64())
	assert.Equal(t, epoch, got.UpdatedAt)

	_, err = r.LatestRate(context.Background(), "LINK/USD")
	require.ErrorIs(t, err, oracle.ErrUnavailable)
}
