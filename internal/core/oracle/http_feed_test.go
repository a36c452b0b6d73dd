package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHTTPFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/rates/ETH%2FUSD":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"value":"300012000000","decimals":8,"updated_at":1700000000}`))
		case "/rates/BAD%2FUSD":
			_, _ = w.Write([]byte(`{"value":"abc","decimals":8,"updated_at":1700000000}`))
		case "/rates/GARBAGE%2FUSD":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	feed, err := NewHTTPFeed(srv.URL+"/", HTTPFeedOptions{RequestsPerSecond: 1000, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	ctx := context.Background()

	r, err := feed.LatestRate(ctx, "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, "300012000000", r.Value.String())
	assert.Equal(t, uint8(8), r.Decimals)
	assert.Equal(t, int64(1700000000), r.UpdatedAt.Unix())

	for _, pair := range []string{"BAD/USD", "GARBAGE/USD", "MISSING/USD"} {
		_, err := feed.LatestRate(ctx, pair)
		assert.ErrorIs(t, err, ErrUnavailable, pair)
	}
}

func TestHTTPFeedCancelledContext(t *testing.T) {
	feed, err := NewHTTPFeed("http://127.0.0.1:1", HTTPFeedOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = feed.LatestRate(ctx, "ETH/USD")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewHTTPFeedRejectsBadURL(t *testing.T) {
	_, err := NewHTTPFeed("localhost", HTTPFeedOptions{})
	require.Error(t, err)
}
