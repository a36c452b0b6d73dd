package config

import (
	"fmt"
)

// ValidateConfig performs validation on the complete configuration
func ValidateConfig(config *Config) error {
	if err := config.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}
	if err := config.Market.Validate(); err != nil {
		return fmt.Errorf("market config validation failed: %w", err)
	}
	if err := config.Oracle.Validate(); err != nil {
		return fmt.Errorf("oracle config validation failed: %w", err)
	}
	if err := config.OfferDB.Validate(); err != nil {
		return fmt.Errorf("offer_db validation failed: %w", err)
	}
	if err := config.EventDB.Validate(); err != nil {
		return fmt.Errorf("event_db validation failed: %w", err)
	}
	if err := config.Log.Validate(); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}
	return validateCrossReferences(config)
}

// validateCrossReferences checks that every asset has a static rate when the
// static source is used.
func validateCrossReferences(config *Config) error {
	if config.Oracle.Source != OracleStatic {
		return nil
	}
	pairs := make(map[string]bool, len(config.Oracle.Static))
	for _, r := range config.Oracle.Static {
		pairs[r.Pair] = true
	}
	if !pairs[config.Market.NativeFeed] {
		return fmt.Errorf("no static rate for native feed %s", config.Market.NativeFeed)
	}
	for _, t := range config.Market.Tokens {
		if !pairs[t.Feed] {
			return fmt.Errorf("no static rate for %s feed %s", t.Symbol, t.Feed)
		}
	}
	return nil
}
