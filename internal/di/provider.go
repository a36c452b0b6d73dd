package di

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/LeJamon/goMarketd/internal/config"
	"github.com/LeJamon/goMarketd/internal/core/ledger"
	"github.com/LeJamon/goMarketd/internal/core/market"
	"github.com/LeJamon/goMarketd/internal/core/oracle"
	"github.com/LeJamon/goMarketd/internal/rpc"
	"github.com/LeJamon/goMarketd/internal/storage/database"
	"github.com/LeJamon/goMarketd/internal/storage/database/backend"
	"github.com/LeJamon/goMarketd/internal/storage/eventdb"
	"github.com/LeJamon/goMarketd/internal/storage/offerdb"
	"go.uber.org/zap"
)

// offerDBName is the database holding offers inside the offer_db path.
const offerDBName = "offers"

// Provider configures and registers services in the container.
type Provider struct {
	container *Container
	config    *config.Config
	logger    *zap.Logger
	version   string
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config, logger *zap.Logger, version string) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		container: container,
		config:    cfg,
		logger:    logger,
		version:   version,
	}
}

// RegisterAll registers all services.
func (p *Provider) RegisterAll() error {
	p.container.Register(ServiceConfig, p.config)
	p.container.Register(ServiceLogger, p.logger)

	p.registerStorageBuilders()
	p.registerMarketBuilders()
	p.registerRPCBuilders()
	return nil
}

// registerStorageBuilders registers storage service builders.
func (p *Provider) registerStorageBuilders() {
	p.container.RegisterBuilder(ServiceDBManager, func(c *Container) (interface{}, error) {
		cfg := p.config.OfferDB
		manager, err := backend.NewManager(cfg.Backend, cfg.Path)
		if err != nil {
			return nil, err
		}
		c.OnClose(ServiceDBManager, manager.Close)
		return manager, nil
	})

	p.container.RegisterBuilder(ServiceOfferStore, func(c *Container) (interface{}, error) {
		manager, err := Resolve[database.Manager](c, ServiceDBManager)
		if err != nil {
			return nil, err
		}
		db, err := manager.OpenDB(offerDBName)
		if err != nil {
			return nil, err
		}
		return offerdb.Open(context.Background(), db, offerdb.Config{
			CacheSize:   p.config.OfferDB.CacheSize,
			Compression: p.config.OfferDB.Compression,
			Logger:      p.logger.Named("offerdb"),
		})
	})

	// The journal resolves to a nil *eventdb.Journal when disabled.
	p.container.RegisterBuilder(ServiceEventJournal, func(c *Container) (interface{}, error) {
		cfg := p.config.EventDB
		if !cfg.Enabled {
			return (*eventdb.Journal)(nil), nil
		}
		if cfg.Driver == eventdb.DriverSQLite && cfg.ConnectionString == "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
				return nil, err
			}
		}
		journal, err := eventdb.Open(context.Background(), &cfg.Config, eventdb.WithLogger(p.logger.Named("eventdb")))
		if err != nil {
			return nil, err
		}
		c.OnClose(ServiceEventJournal, journal.Close)
		return journal, nil
	})
}

// registerMarketBuilders registers the ledger, oracle and engine builders.
func (p *Provider) registerMarketBuilders() {
	p.container.RegisterBuilder(ServiceLedger, func(c *Container) (interface{}, error) {
		return ledger.NewMemory(), nil
	})

	p.container.RegisterBuilder(ServicePriceFeed, func(c *Container) (interface{}, error) {
		return p.newFeed()
	})

	p.container.RegisterBuilder(ServiceOracle, func(c *Container) (interface{}, error) {
		feed, err := Resolve[oracle.Feed](c, ServicePriceFeed)
		if err != nil {
			return nil, err
		}
		return oracle.NewAdapter(p.oracleConfig(), feed, oracle.WithLogger(p.logger.Named("oracle")))
	})

	p.container.RegisterBuilder(ServicePublisher, func(c *Container) (interface{}, error) {
		return rpc.NewPublisher(p.logger.Named("publisher")), nil
	})

	p.container.RegisterBuilder(ServiceEngine, func(c *Container) (interface{}, error) {
		store, err := Resolve[*offerdb.Store](c, ServiceOfferStore)
		if err != nil {
			return nil, err
		}
		gateway, err := Resolve[*ledger.Memory](c, ServiceLedger)
		if err != nil {
			return nil, err
		}
		adapter, err := Resolve[*oracle.Adapter](c, ServiceOracle)
		if err != nil {
			return nil, err
		}
		publisher, err := Resolve[*rpc.Publisher](c, ServicePublisher)
		if err != nil {
			return nil, err
		}
		journal, err := Resolve[*eventdb.Journal](c, ServiceEventJournal)
		if err != nil {
			return nil, err
		}

		sinks := market.MultiSink{publisher}
		if journal != nil {
			sinks = append(sinks, journal)
		}

		cfg, err := p.marketConfig()
		if err != nil {
			return nil, err
		}
		return market.NewEngine(cfg, store, gateway, adapter,
			market.WithLogger(p.logger.Named("market")),
			market.WithEventSink(sinks))
	})
}

// registerRPCBuilders registers RPC service builders.
func (p *Provider) registerRPCBuilders() {
	p.container.RegisterBuilder(ServiceRPCServer, func(c *Container) (interface{}, error) {
		engine, err := Resolve[*market.Engine](c, ServiceEngine)
		if err != nil {
			return nil, err
		}
		store, err := Resolve[*offerdb.Store](c, ServiceOfferStore)
		if err != nil {
			return nil, err
		}
		adapter, err := Resolve[*oracle.Adapter](c, ServiceOracle)
		if err != nil {
			return nil, err
		}
		gateway, err := Resolve[*ledger.Memory](c, ServiceLedger)
		if err != nil {
			return nil, err
		}
		publisher, err := Resolve[*rpc.Publisher](c, ServicePublisher)
		if err != nil {
			return nil, err
		}
		journal, err := Resolve[*eventdb.Journal](c, ServiceEventJournal)
		if err != nil {
			return nil, err
		}

		server := p.config.Server
		services := &rpc.Services{
			Engine:                    engine,
			Store:                     store,
			Oracle:                    adapter,
			Sequences:                 store,
			Ledger:                    gateway,
			Standalone:                server.Standalone,
			SkipSignatureVerification: server.SkipSignatureVerification,
			Version:                   p.version,
		}
		if journal != nil {
			services.History = journal
		}

		s, err := rpc.NewServer(services, publisher, rpc.Config{
			Timeout:      server.Timeout,
			RateLimit:    server.RateLimit,
			RateBurst:    server.RateBurst,
			MaxBodyBytes: server.MaxBodyBytes,
		}, p.logger.Named("rpc"))
		if err != nil {
			return nil, err
		}
		c.OnClose(ServiceRPCServer, func() error {
			s.Close()
			return nil
		})
		return s, nil
	})
}

func (p *Provider) newFeed() (oracle.Feed, error) {
	cfg := p.config.Oracle
	if cfg.Source == config.OracleHTTP {
		return oracle.NewHTTPFeed(cfg.URL, oracle.HTTPFeedOptions{
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            p.logger.Named("feed"),
		})
	}

	rates, err := cfg.StaticRates()
	if err != nil {
		return nil, err
	}
	feed := oracle.NewStaticFeed(time.Now)
	for _, r := range rates {
		feed.Set(r.Pair, r.Value, r.Decimals)
	}
	return feed, nil
}

func (p *Provider) oracleConfig() oracle.Config {
	m := p.config.Market
	assets := []oracle.Asset{{
		Symbol:   m.NativeSymbol,
		Decimals: m.NativeDecimals,
		Pair:     m.NativeFeed,
		Native:   true,
	}}
	for _, t := range m.Tokens {
		assets = append(assets, oracle.Asset{Symbol: t.Symbol, Decimals: t.Decimals, Pair: t.Feed})
	}
	return oracle.Config{
		UnitDecimals: m.UnitDecimals,
		MaxStaleness: p.config.Oracle.MaxStaleness,
		Assets:       assets,
	}
}

func (p *Provider) marketConfig() (market.Config, error) {
	m := p.config.Market
	owner, escrow, recipient, err := m.Accounts()
	if err != nil {
		return market.Config{}, err
	}
	tokens, err := m.TokenContracts()
	if err != nil {
		return market.Config{}, err
	}
	return market.Config{
		Owner:       owner,
		Escrow:      escrow,
		Fee:         market.FeeConfig{Recipient: recipient, Rate: m.FeeRate},
		NativeAsset: m.NativeSymbol,
		Tokens:      tokens,
	}, nil
}

// Server returns the fully wired RPC server.
func (p *Provider) Server() (*rpc.Server, error) {
	return Resolve[*rpc.Server](p.container, ServiceRPCServer)
}

// Engine returns the marketplace engine.
func (p *Provider) Engine() (*market.Engine, error) {
	return Resolve[*market.Engine](p.container, ServiceEngine)
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}
