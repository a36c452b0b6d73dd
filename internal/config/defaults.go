package config

import "github.com/spf13/viper"

// DefaultRateDecimals is the scale of static rates without explicit decimals.
const DefaultRateDecimals = 8

// setDefaults sets every default value. Keys without a default are not
// picked up from the environment.
func setDefaults(v *viper.Viper) {
	// [server]
	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 5005)
	v.SetDefault("server.timeout", "30s")
	v.SetDefault("server.standalone", false)
	v.SetDefault("server.skip_signature_verification", false)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.max_body_bytes", 1<<20)

	// [market]
	v.SetDefault("market.owner", "")
	v.SetDefault("market.escrow", "")
	v.SetDefault("market.fee_recipient", "")
	v.SetDefault("market.fee_rate", 1)
	v.SetDefault("market.unit_decimals", 18)
	v.SetDefault("market.native_symbol", "ETH")
	v.SetDefault("market.native_decimals", 18)
	v.SetDefault("market.native_feed", "ETH/USD")

	// [oracle]
	v.SetDefault("oracle.source", OracleStatic)
	v.SetDefault("oracle.max_staleness", "1h")
	v.SetDefault("oracle.url", "")
	v.SetDefault("oracle.timeout", "10s")
	v.SetDefault("oracle.requests_per_second", 10)

	// [offer_db]
	v.SetDefault("offer_db.backend", "pebble")
	v.SetDefault("offer_db.path", "data/offers")
	v.SetDefault("offer_db.cache_size", 1024)
	v.SetDefault("offer_db.compression", "lz4")

	// [event_db] defaults to a local SQLite journal
	v.SetDefault("event_db.enabled", true)
	v.SetDefault("event_db.driver", "sqlite")
	v.SetDefault("event_db.dsn", "")
	v.SetDefault("event_db.host", "localhost")
	v.SetDefault("event_db.port", 5432)
	v.SetDefault("event_db.database", "data/events.db")
	v.SetDefault("event_db.username", "marketd")
	v.SetDefault("event_db.password", "")
	v.SetDefault("event_db.ssl_mode", "prefer")
	v.SetDefault("event_db.max_open_conns", 1)
	v.SetDefault("event_db.max_idle_conns", 1)
	v.SetDefault("event_db.conn_max_lifetime", "1h")
	v.SetDefault("event_db.default_timeout", "10s")

	// [log]
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
