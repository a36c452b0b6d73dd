package testing

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/ledger"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Default environment parameters.
const (
	NativeSymbol = "ETH"
	DefaultFee   = 1 // percent
)

// Default feed rates, 8 decimals.
var (
	RateETH  = big.NewInt(300000000000) // 3000.00
	RateDAI  = big.NewInt(100000000)    // 1.00
	RateLINK = big.NewInt(1500000000)   // 15.00
)

// Fixed contract addresses of the environment.
var (
	ItemsContract = account.MustParse("0x0000000000000000000000000000000000001155")
	DAIContract   = account.MustParse("0x00000000000000000000000000000000000000da")
	LINKContract  = account.MustParse("0x0000000000000000000000000000000000000111")
)

// TestEnv is a marketplace wired to in-memory collaborators.
type TestEnv struct {
	t     *testing.T
	clock *ManualClock

	Ledger *ledger.Memory
	Store  market.OfferStore
	Feed   *oracle.StaticFeed
	Oracle *oracle.Adapter
	Engine *market.Engine
	Events *market.Recorder

	Owner        *Account
	Escrow       *Account
	FeeRecipient *Account

	accounts map[string]*Account
	tokens   map[string]account.Address
}

// EnvOption customizes NewTestEnv.
type EnvOption func(*envConfig)

type envConfig struct {
	store   market.OfferStore
	feeRate uint32
	sinks   []market.EventSink
}

// WithStore backs the engine with store instead of a MemoryStore.
func WithStore(store market.OfferStore) EnvOption {
	return func(c *envConfig) { c.store = store }
}

// WithFeeRate sets the initial fee rate.
func WithFeeRate(rate uint32) EnvOption {
	return func(c *envConfig) { c.feeRate = rate }
}

// WithSink adds an event sink next to the recorder.
func WithSink(sink market.EventSink) EnvOption {
	return func(c *envConfig) { c.sinks = append(c.sinks, sink) }
}

// NewTestEnv builds an environment with ETH as native asset and DAI and LINK
// as settlement tokens, all at 18 decimals, prices at 18 decimals.
func NewTestEnv(t *testing.T, opts ...EnvOption) *TestEnv {
	t.Helper()

	cfg := envConfig{feeRate: DefaultFee}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.store == nil {
		cfg.store = market.NewMemoryStore()
	}

	env := &TestEnv{
		t:        t,
		clock:    NewManualClock(),
		Ledger:   ledger.NewMemory(),
		Store:    cfg.store,
		Events:   &market.Recorder{},
		accounts: make(map[string]*Account),
		tokens: map[string]account.Address{
			"DAI":  DAIContract,
			"LINK": LINKContract,
		},
	}
	env.Owner = env.Account("owner")
	env.Escrow = env.Account("market")
	env.FeeRecipient = env.Account("fees")

	env.Feed = oracle.NewStaticFeed(env.clock.Now)
	env.Feed.Set("ETH/USD", RateETH, 8)
	env.Feed.Set("DAI/USD", RateDAI, 8)
	env.Feed.Set("LINK/USD", RateLINK, 8)

	logger := zaptest.NewLogger(t)
	adapter, err := oracle.NewAdapter(oracle.Config{
		UnitDecimals: 18,
		Assets: []oracle.Asset{
			{Symbol: NativeSymbol, Decimals: 18, Pair: "ETH/USD", Native: true},
			{Symbol: "DAI", Decimals: 18, Pair: "DAI/USD"},
			{Symbol: "LINK", Decimals: 18, Pair: "LINK/USD"},
		},
	}, env.Feed, oracle.WithClock(env.clock.Now), oracle.WithLogger(logger))
	require.NoError(t, err)
	env.Oracle = adapter

	sink := market.MultiSink(append([]market.EventSink{env.Events}, cfg.sinks...))
	engine, err := market.NewEngine(market.Config{
		Owner:       env.Owner.Address,
		Escrow:      env.Escrow.Address,
		Fee:         market.FeeConfig{Recipient: env.FeeRecipient.Address, Rate: cfg.feeRate},
		NativeAsset: NativeSymbol,
		Tokens:      env.tokens,
	}, env.Store, env.Ledger, adapter,
		market.WithClock(env.clock.Now),
		market.WithLogger(logger),
		market.WithEventSink(sink))
	require.NoError(t, err)
	env.Engine = engine

	return env
}

// Account returns the named account, creating it on first use.
func (e *TestEnv) Account(name string) *Account {
	if acc, ok := e.accounts[name]; ok {
		return acc
	}
	acc := NewAccount(name)
	e.accounts[name] = acc
	return acc
}

func (e *TestEnv) Now() time.Time          { return e.clock.Now() }
func (e *TestEnv) Advance(d time.Duration) { e.clock.Advance(d) }
func (e *TestEnv) SetTime(t time.Time)     { e.clock.Set(t) }

// Token returns the contract of a settlement token symbol.
func (e *TestEnv) Token(symbol string) account.Address {
	e.t.Helper()
	c, ok := e.tokens[symbol]
	require.True(e.t, ok, "unknown token %s", symbol)
	return c
}

// Fund credits native units.
func (e *TestEnv) Fund(acc *Account, amount *big.Int) {
	e.Ledger.Fund(acc.Address, amount)
}

// MintItems credits units of item id in the environment's multi-token
// contract.
func (e *TestEnv) MintItems(acc *Account, id, amount int64) {
	e.Ledger.MintMultiToken(ItemsContract, acc.Address, big.NewInt(id), big.NewInt(amount))
}

// ApproveMarket lets the engine move acc's items.
func (e *TestEnv) ApproveMarket(acc *Account) {
	e.Ledger.SetApprovalForAll(ItemsContract, acc.Address, e.Escrow.Address, true)
}

// MintToken credits settlement tokens.
func (e *TestEnv) MintToken(acc *Account, symbol string, amount *big.Int) {
	e.Ledger.MintFungible(e.Token(symbol), acc.Address, amount)
}

// ApproveToken sets acc's allowance to the engine.
func (e *TestEnv) ApproveToken(acc *Account, symbol string, amount *big.Int) {
	e.Ledger.Approve(e.Token(symbol), acc.Address, e.Escrow.Address, amount)
}

// TransferItems moves items on behalf of their holder.
func (e *TestEnv) TransferItems(from, to *Account, id, amount int64) {
	e.t.Helper()
	err := e.Ledger.TransferMultiToken(context.Background(), ItemsContract, from.Address, to.Address, big.NewInt(id), big.NewInt(amount))
	require.NoError(e.t, err)
}

func (e *TestEnv) NativeBalance(acc *Account) *big.Int {
	e.t.Helper()
	b, err := e.Ledger.NativeBalance(context.Background(), acc.Address)
	require.NoError(e.t, err)
	return b
}

func (e *TestEnv) TokenBalance(acc *Account, symbol string) *big.Int {
	e.t.Helper()
	b, err := e.Ledger.FungibleBalance(context.Background(), e.Token(symbol), acc.Address)
	require.NoError(e.t, err)
	return b
}

func (e *TestEnv) ItemBalance(acc *Account, id int64) int64 {
	e.t.Helper()
	b, err := e.Ledger.MultiTokenBalance(context.Background(), ItemsContract, acc.Address, big.NewInt(id))
	require.NoError(e.t, err)
	return b.Int64()
}

// CreateOffer lists amount units of item id and requires success.
func (e *TestEnv) CreateOffer(seller *Account, id, amount int64, price *big.Int, ttl time.Duration) uint64 {
	e.t.Helper()
	offerID, err := e.Engine.CreateOffer(context.Background(), seller.Address, market.CreateOfferRequest{
		TokenContract: ItemsContract,
		TokenID:       big.NewInt(id),
		Amount:        big.NewInt(amount),
		Deadline:      e.Now().Add(ttl),
		Price:         price,
	})
	require.NoError(e.t, err)
	return offerID
}

// Offer reads an offer and requires the read to succeed.
func (e *TestEnv) Offer(id uint64) market.Offer {
	e.t.Helper()
	o, err := e.Engine.GetOffer(context.Background(), id)
	require.NoError(e.t, err)
	return o
}

// Required returns the current payment for price in asset.
func (e *TestEnv) Required(asset string, price *big.Int) *big.Int {
	e.t.Helper()
	r, err := e.Oracle.RequiredPayment(context.Background(), asset, price)
	require.NoError(e.t, err)
	return r
}

// RequireResult asserts err carries the result r.
func RequireResult(t *testing.T, err error, r market.Result) {
	t.Helper()
	require.Error(t, err, "expected %s", r)
	got, ok := market.ResultOf(err)
	require.True(t, ok, "expected %s, got non-market error %v", r, err)
	require.Equal(t, r, got, "expected %s, got %s (%v)", r, got, err)
}

// RequireStatus asserts the stored status of an offer.
func (e *TestEnv) RequireStatus(id uint64, want market.Status) {
	e.t.Helper()
	require.Equal(e.t, want, e.Offer(id).Status, "offer %d status", id)
}
