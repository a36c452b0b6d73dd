package di

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/core/ledger"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/LeJamon/goMarketd/internal/storage/eventdb"
	mtest "github.com/LeJamon/goMarketd/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	owner  = mtest.NewAccount("owner")
	escrow = mtest.NewAccount("market")
	fees   = mtest.NewAccount("fees")
	seller = mtest.NewAccount("seller")
	buyer  = mtest.NewAccount("buyer")
)

func testConfig(t *testing.T, dir, offerBackend string, journal bool) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Bind: "127.0.0.1", Port: 5005, Timeout: 5 * time.Second, Standalone: true},
		Market: config.MarketConfig{
			Owner:          owner.Address.String(),
			Escrow:         escrow.Address.String(),
			FeeRecipient:   fees.Address.String(),
			FeeRate:        1,
			UnitDecimals:   18,
			NativeSymbol:   "ETH",
			NativeDecimals: 18,
			NativeFeed:     "ETH/USD",
			Tokens: []config.TokenConfig{
				{Symbol: "DAI", Contract: mtest.DAIContract.String(), Decimals: 18, Feed: "DAI/USD"},
			},
		},
		Oracle: config.OracleConfig{
			Source:       config.OracleStatic,
			MaxStaleness: time.Hour,
			Static: []config.StaticRateConfig{
				{Pair: "ETH/USD", Value: "3000", Decimals: 8},
				{Pair: "DAI/USD", Value: "1", Decimals: 8},
			},
		},
		OfferDB: config.OfferDBConfig{
			Backend:     offerBackend,
			Path:        filepath.Join(dir, "offers"),
			CacheSize:   16,
			Compression: "lz4",
		},
		EventDB: config.EventDBConfig{
			Enabled: journal,
			Config:  *eventdb.SQLiteConfig(filepath.Join(dir, "journal", "events.db")),
		},
		Log: config.LogConfig{Level: "debug", Format: "console"},
	}
	require.NoError(t, config.ValidateConfig(cfg))
	return cfg
}

func newProvider(t *testing.T, cfg *config.Config) (*Container, *Provider) {
	t.Helper()
	c := New()
	p := NewProvider(c, cfg, zaptest.NewLogger(t), "test")
	require.NoError(t, p.RegisterAll())
	return c, p
}

func TestProviderWiresMarketplace(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := testConfig(t, dir, "pebble", true)

	c, p := newProvider(t, cfg)
	server, err := p.Server()
	require.NoError(t, err)
	assert.Contains(t, server.Methods(), "create_offer")

	engine, err := p.Engine()
	require.NoError(t, err)
	assert.Equal(t, owner.Address, engine.Owner())
	assert.Equal(t, []string{"DAI"}, engine.SettlementTokens())

	l, err := Resolve[*ledger.Memory](c, ServiceLedger)
	require.NoError(t, err)
	l.MintMultiToken(mtest.ItemsContract, seller.Address, mtest.Int(3), mtest.Int(2))
	l.SetApprovalForAll(mtest.ItemsContract, seller.Address, escrow.Address, true)
	l.Fund(buyer.Address, mtest.Ether(1))

	id, err := engine.CreateOffer(ctx, seller.Address, market.CreateOfferRequest{
		TokenContract: mtest.ItemsContract,
		TokenID:       mtest.Int(3),
		Amount:        mtest.Int(2),
		Deadline:      time.Now().Add(time.Hour),
		Price:         mtest.Units(30),
	})
	require.NoError(t, err)
	_, err = engine.BuyWithNativeAsset(ctx, buyer.Address, id, mtest.Ether(1))
	require.NoError(t, err)

	journal, err := Resolve[*eventdb.Journal](c, ServiceEventJournal)
	require.NoError(t, err)
	require.NotNil(t, journal)
	history, err := journal.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "OfferCreated", history[0].Kind)
	assert.Equal(t, "OfferBought", history[1].Kind)

	result, rpcErr := server.Execute(ctx, "recent_events", json.RawMessage(`{"limit":1}`), "127.0.0.1")
	require.Nil(t, rpcErr)
	recent := result.(map[string]interface{})["events"].([]eventdb.Entry)
	require.Len(t, recent, 1)
	assert.Equal(t, "OfferBought", recent[0].Kind)

	result, rpcErr = server.Execute(ctx, "server_info", nil, "127.0.0.1")
	require.Nil(t, rpcErr)
	info := result.(map[string]interface{})["info"].(map[string]interface{})
	assert.Contains(t, info, "offer_cache")
	assert.Equal(t, true, info["journal"])

	signed, err := rpc.SignParams(owner.Key, "set_fee_rate", 1, map[string]interface{}{"fee_rate": 4})
	require.NoError(t, err)
	feeCall, err := json.Marshal(signed)
	require.NoError(t, err)
	_, rpcErr = server.Execute(ctx, "set_fee_rate", feeCall, "127.0.0.1")
	require.Nil(t, rpcErr)
	assert.Equal(t, uint32(4), engine.FeeConfig().Rate)

	require.NoError(t, c.Close())

	// Offers and the journal survive a restart.
	c, p = newProvider(t, cfg)
	defer c.Close()
	engine, err = p.Engine()
	require.NoError(t, err)
	o, err := engine.GetOffer(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, market.StatusSold, o.Status)

	// Spent sequences are persisted with the offers.
	server, err = p.Server()
	require.NoError(t, err)
	_, rpcErr = server.Execute(ctx, "set_fee_rate", feeCall, "127.0.0.1")
	require.NotNil(t, rpcErr)
	assert.Equal(t, "badSequence", rpcErr.ErrorString)

	journal, err = Resolve[*eventdb.Journal](c, ServiceEventJournal)
	require.NoError(t, err)
	history, err = journal.History(ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestProviderWithoutJournal(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), "memory", false)
	c, p := newProvider(t, cfg)
	defer c.Close()

	journal, err := Resolve[*eventdb.Journal](c, ServiceEventJournal)
	require.NoError(t, err)
	assert.Nil(t, journal)

	_, err = p.Server()
	require.NoError(t, err)
}

func TestProviderFeeds(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), "memory", false)
	c, _ := newProvider(t, cfg)
	feed, err := Resolve[oracle.Feed](c, ServicePriceFeed)
	require.NoError(t, err)
	rate, err := feed.LatestRate(context.Background(), "ETH/USD")
	require.NoError(t, err)
	assert.Equal(t, int64(300000000000), rate.Value.Int64())

	cfg.Oracle.Source = config.OracleHTTP
	cfg.Oracle.URL = "http://127.0.0.1:1"
	c, _ = newProvider(t, cfg)
	feed, err = Resolve[oracle.Feed](c, ServicePriceFeed)
	require.NoError(t, err)
	assert.IsType(t, &oracle.HTTPFeed{}, feed)
}

func TestProviderRejectsBadBackend(t *testing.T) {
	cfg := testConfig(t, t.TempDir(), "memory", false)
	cfg.OfferDB.Backend = "rocksdb"
	_, p := newProvider(t, cfg)
	_, err := p.Engine()
	require.Error(t, err)
}
