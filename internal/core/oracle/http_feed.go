package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPFeed reads rates from a JSON price service:
//
//	GET <base>/rates/<pair>  ->  {"value":"300012000000","decimals":8,"updated_at":1700000000}
type HTTPFeed struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// HTTPFeedOptions tunes an HTTPFeed.
type HTTPFeedOptions struct {
	Timeout time.Duration

	// RequestsPerSecond caps outgoing requests; zero selects 10.
	RequestsPerSecond float64

	Logger *zap.Logger
}

type rateResponse struct {
	Value     string `json:"value"`
	Decimals  uint8  `json:"decimals"`
	UpdatedAt int64  `json:"updated_at"`
}

// NewHTTPFeed returns a feed for the service at base.
func NewHTTPFeed(base string, opts HTTPFeedOptions) (*HTTPFeed, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("oracle: invalid feed url %q", base)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 10
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFeed{
		base:    strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		logger:  logger,
	}, nil
}

// LatestRate implements Feed.
func (f *HTTPFeed) LatestRate(ctx context.Context, pair string) (Rate, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Rate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	endpoint := f.base + "/rates/" + url.PathEscape(pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("price feed request failed", zap.String("url", endpoint), zap.Error(err))
		return Rate{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Rate{}, fmt.Errorf("%w: %s returned %d", ErrUnavailable, endpoint, resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Rate{}, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, pair, err)
	}
	f.logger.Debug("price feed read",
		zap.String("pair", pair),
		zap.String("value", body.Value),
		zap.Uint8("decimals", body.Decimals),
		zap.Duration("latency", time.Since(start)))

	value, ok := new(big.Int).SetString(strings.TrimSpace(body.Value), 10)
	if !ok {
		return Rate{}, fmt.Errorf("%w: %s returned malformed value %q", ErrUnavailable, pair, body.Value)
	}
	return Rate{
		Value:     value,
		Decimals:  body.Decimals,
		UpdatedAt: time.Unix(body.UpdatedAt, 0),
	}, nil
}
