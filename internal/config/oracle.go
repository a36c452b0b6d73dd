package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

// Oracle sources.
const (
	OracleStatic = "static"
	OracleHTTP   = "http"
)

// OracleConfig represents the [oracle] section.
type OracleConfig struct {
	Source       string        `toml:"source" mapstructure:"source"`
	MaxStaleness time.Duration `toml:"max_staleness" mapstructure:"max_staleness"`

	// HTTP source
	URL               string        `toml:"url" mapstructure:"url"`
	Timeout           time.Duration `toml:"timeout" mapstructure:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second" mapstructure:"requests_per_second"`

	// Static source
	Static []StaticRateConfig `toml:"static" mapstructure:"static"`
}

// StaticRateConfig is one [[oracle.static]] entry. Value is a human rate
// such as "3000.25" and is stored at Decimals.
type StaticRateConfig struct {
	Pair     string `toml:"pair" mapstructure:"pair"`
	Value    string `toml:"value" mapstructure:"value"`
	Decimals uint8  `toml:"decimals" mapstructure:"decimals"`
}

// StaticRate is a parsed static rate.
type StaticRate struct {
	Pair     string
	Value    *big.Int
	Decimals uint8
}

// StaticRates parses the configured static rates.
func (o *OracleConfig) StaticRates() ([]StaticRate, error) {
	out := make([]StaticRate, 0, len(o.Static))
	for i, r := range o.Static {
		decimals := r.Decimals
		if decimals == 0 {
			decimals = DefaultRateDecimals
		}
		v, err := ParseUnits(r.Value, decimals)
		if err != nil {
			return nil, fmt.Errorf("static[%d] %s: %w", i, r.Pair, err)
		}
		if v.Sign() == 0 {
			return nil, fmt.Errorf("static[%d] %s: rate must be positive", i, r.Pair)
		}
		out = append(out, StaticRate{Pair: r.Pair, Value: v, Decimals: decimals})
	}
	return out, nil
}

// Validate performs validation on the oracle configuration
func (o *OracleConfig) Validate() error {
	switch o.Source {
	case OracleStatic:
		seen := make(map[string]bool)
		for i, r := range o.Static {
			if r.Pair == "" {
				return fmt.Errorf("static[%d]: pair is required", i)
			}
			if seen[r.Pair] {
				return fmt.Errorf("static[%d]: duplicate pair %s", i, r.Pair)
			}
			seen[r.Pair] = true
		}
		if _, err := o.StaticRates(); err != nil {
			return err
		}
	case OracleHTTP:
		if o.URL == "" {
			return fmt.Errorf("url is required for the http source")
		}
		if o.RequestsPerSecond < 0 {
			return fmt.Errorf("requests_per_second must be non-negative")
		}
	default:
		return fmt.Errorf("invalid source: %s (valid options: static, http)", o.Source)
	}
	return nil
}

func (o *OracleConfig) normalize() {
	o.Source = strings.ToLower(strings.TrimSpace(o.Source))
	for i := range o.Static {
		o.Static[i].Pair = strings.ToUpper(strings.TrimSpace(o.Static[i].Pair))
	}
}
