package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerAddr     = "0x00000000000000000000000000000000000000a1"
	escrowAddr    = "0x00000000000000000000000000000000000000e5"
	recipientAddr = "0x00000000000000000000000000000000000000fe"
	daiAddr       = "0x00000000000000000000000000000000000000da"
)

const testConfig = `
[server]
port = 6006
standalone = true
skip_signature_verification = true

[market]
owner = "` + ownerAddr + `"
escrow = "` + escrowAddr + `"
fee_recipient = "` + recipientAddr + `"
fee_rate = 2
native_feed = "eth/usd"

[[market.tokens]]
symbol = "DAI"
contract = "` + daiAddr + `"
decimals = 18
feed = "DAI/USD"

[oracle]
source = "static"

[[oracle.static]]
pair = "ETH/USD"
value = "3000.25"

[[oracle.static]]
pair = "DAI/USD"
value = "1"
decimals = 6

[offer_db]
backend = "LevelDB"
path = "/tmp/offers"

[event_db]
driver = "postgresql"
host = "db.internal"
database = "market"
`

func writeConfig(t *testing.T, content string) ConfigPaths {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "marketd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return ConfigPaths{Main: path, Env: filepath.Join(dir, ".env")}
}

func TestLoadConfig(t *testing.T) {
	paths := writeConfig(t, testConfig)

	config, err := LoadConfig(paths)
	require.NoError(t, err)
	assert.Equal(t, paths.Main, config.GetConfigPath())

	// File values
	assert.Equal(t, 6006, config.Server.Port)
	assert.True(t, config.Server.Standalone)
	assert.Equal(t, uint32(2), config.Market.FeeRate)
	assert.Equal(t, "ETH/USD", config.Market.NativeFeed, "feeds are upper-cased")
	require.Len(t, config.Market.Tokens, 1)
	assert.Equal(t, "DAI", config.Market.Tokens[0].Symbol)
	assert.Equal(t, "leveldb", config.OfferDB.Backend)
	assert.Equal(t, "postgres", config.EventDB.Driver, "driver is normalized")
	assert.Equal(t, "db.internal", config.EventDB.Host)

	// Defaults
	assert.Equal(t, "127.0.0.1", config.Server.Bind)
	assert.Equal(t, 30*time.Second, config.Server.Timeout)
	assert.Equal(t, time.Hour, config.Oracle.MaxStaleness)
	assert.Equal(t, "lz4", config.OfferDB.Compression)
	assert.Equal(t, 1024, config.OfferDB.CacheSize)
	assert.Equal(t, uint8(18), config.Market.UnitDecimals)
	assert.Equal(t, "ETH", config.Market.NativeSymbol)
	assert.Equal(t, 5432, config.EventDB.Port)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "127.0.0.1:6006", config.Server.Address())

	owner, escrow, recipient, err := config.Market.Accounts()
	require.NoError(t, err)
	assert.Equal(t, account.MustParse(ownerAddr), owner)
	assert.Equal(t, account.MustParse(escrowAddr), escrow)
	assert.Equal(t, account.MustParse(recipientAddr), recipient)

	tokens, err := config.Market.TokenContracts()
	require.NoError(t, err)
	assert.Equal(t, map[string]account.Address{"DAI": account.MustParse(daiAddr)}, tokens)

	rates, err := config.Oracle.StaticRates()
	require.NoError(t, err)
	require.Len(t, rates, 2)
	assert.Equal(t, StaticRate{Pair: "ETH/USD", Value: big.NewInt(300025000000), Decimals: 8}, rates[0])
	assert.Equal(t, StaticRate{Pair: "DAI/USD", Value: big.NewInt(1000000), Decimals: 6}, rates[1])
}

func TestEnvironmentOverrides(t *testing.T) {
	paths := writeConfig(t, testConfig)
	require.NoError(t, os.WriteFile(paths.Env, []byte("MARKETD_LOG_LEVEL=debug\nMARKETD_SERVER_PORT=7007\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("MARKETD_LOG_LEVEL") })

	// Variables already set win over the dotenv file.
	t.Setenv("MARKETD_SERVER_PORT", "8008")
	t.Setenv("MARKETD_MARKET_FEE_RATE", "5")
	t.Setenv("MARKETD_OFFER_DB_BACKEND", "memory")

	config, err := LoadConfig(paths)
	require.NoError(t, err)
	assert.Equal(t, 8008, config.Server.Port)
	assert.Equal(t, uint32(5), config.Market.FeeRate)
	assert.Equal(t, "memory", config.OfferDB.Backend)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(ConfigPaths{Main: filepath.Join(t.TempDir(), "missing.toml")})
	require.Error(t, err)

	// Defaults alone lack the market accounts.
	_, err = LoadConfig(ConfigPaths{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner is required")
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	config, err := LoadConfig(writeConfig(t, testConfig))
	require.NoError(t, err)
	return config
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "port must be between"},
		{"skip verification outside standalone", func(c *Config) { c.Server.Standalone = false }, "requires standalone"},
		{"fee rate", func(c *Config) { c.Market.FeeRate = 101 }, "fee_rate must be at most 100"},
		{"missing owner", func(c *Config) { c.Market.Owner = "" }, "owner is required"},
		{"bad escrow", func(c *Config) { c.Market.Escrow = "0x1234" }, "escrow"},
		{"zero recipient", func(c *Config) { c.Market.FeeRecipient = "0x0000000000000000000000000000000000000000" }, "zero address"},
		{"duplicate symbol", func(c *Config) {
			c.Market.Tokens = append(c.Market.Tokens, c.Market.Tokens[0])
		}, "duplicate symbol"},
		{"token shadows native", func(c *Config) { c.Market.Tokens[0].Symbol = "ETH" }, "duplicate symbol"},
		{"unknown backend", func(c *Config) { c.OfferDB.Backend = "rocksdb" }, "invalid backend"},
		{"missing path", func(c *Config) { c.OfferDB.Path = "" }, "path is required"},
		{"unknown compression", func(c *Config) { c.OfferDB.Compression = "zstd" }, "invalid compression"},
		{"unknown driver", func(c *Config) { c.EventDB.Driver = "mysql" }, "event_db"},
		{"disabled journal skips driver", func(c *Config) {
			c.EventDB.Enabled = false
			c.EventDB.Driver = "mysql"
		}, ""},
		{"unknown oracle source", func(c *Config) { c.Oracle.Source = "chainlink" }, "invalid source"},
		{"http needs url", func(c *Config) { c.Oracle.Source = OracleHTTP }, "url is required"},
		{"missing static rate", func(c *Config) { c.Oracle.Static = c.Oracle.Static[:1] }, "no static rate for DAI"},
		{"bad static rate", func(c *Config) { c.Oracle.Static[0].Value = "abc" }, "invalid amount"},
		{"zero static rate", func(c *Config) { c.Oracle.Static[0].Value = "0" }, "must be positive"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "invalid level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "invalid format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig(t)
			tt.mutate(config)
			err := ValidateConfig(config)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"60", 18, "60000000000000000000", false},
		{"0.5", 2, "50", false},
		{"12.34", 2, "1234", false},
		{"1.005", 2, "", true},
		{"-1", 0, "", true},
		{"", 0, "", true},
		{"1e3", 0, "1000", false},
	}
	for _, tt := range tests {
		got, err := ParseUnits(tt.in, tt.decimals)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got.String(), tt.in)
	}

	assert.Equal(t, "12.34", FormatUnits(big.NewInt(1234), 2))
	assert.Equal(t, "0.02", FormatUnits(big.NewInt(20000000000000000), 18))
	assert.Equal(t, "0", FormatUnits(nil, 18))
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l := LogConfig{Level: "warn", Format: format}
		require.NoError(t, l.Validate())
		logger, err := l.NewLogger()
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(-1), "debug disabled at warn")
	}
}
