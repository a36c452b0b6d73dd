package config

import (
	"fmt"

	"github.com/LeJamon/goMarketd/internal/storage/compression"
	"github.com/LeJamon/goMarketd/internal/storage/database/backend"
	"github.com/LeJamon/goMarketd/internal/storage/eventdb"
)

// OfferDBConfig represents the [offer_db] section, the key-value store
// holding offers.
type OfferDBConfig struct {
	Backend     string `toml:"backend" mapstructure:"backend"`
	Path        string `toml:"path" mapstructure:"path"`
	CacheSize   int    `toml:"cache_size" mapstructure:"cache_size"`
	Compression string `toml:"compression" mapstructure:"compression"`
}

// EventDBConfig represents the [event_db] section, the SQL event journal.
type EventDBConfig struct {
	Enabled        bool `toml:"enabled" mapstructure:"enabled"`
	eventdb.Config `mapstructure:",squash"`
}

// Validate performs validation on the offer database configuration
func (o *OfferDBConfig) Validate() error {
	if !backend.Supported(o.Backend) {
		return fmt.Errorf("invalid backend: %s (valid options: %v)", o.Backend, backend.Names())
	}
	if o.Path == "" && o.Backend != backend.Memory {
		return fmt.Errorf("path is required for the %s backend", o.Backend)
	}
	if !compression.IsAvailable(o.Compression) {
		return fmt.Errorf("invalid compression: %s (valid options: %v)", o.Compression, compression.Available())
	}
	return nil
}

// Validate performs validation on the event journal configuration. The
// driver name is normalized in place.
func (e *EventDBConfig) Validate() error {
	if !e.Enabled {
		return nil
	}
	return e.Config.Validate()
}
