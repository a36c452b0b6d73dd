package config

import (
	"fmt"
	"strings"

	"github.com/LeJamon/goMarketd/internal/core/account"
	"github.com/LeJamon/goMarketd/internal/core/market"
)

// MarketConfig represents the [market] section.
type MarketConfig struct {
	Owner        string `toml:"owner" mapstructure:"owner"`
	Escrow       string `toml:"escrow" mapstructure:"escrow"`
	FeeRecipient string `toml:"fee_recipient" mapstructure:"fee_recipient"`
	FeeRate      uint32 `toml:"fee_rate" mapstructure:"fee_rate"` // percent

	// UnitDecimals is the fixed-point scale of offer prices.
	UnitDecimals uint8 `toml:"unit_decimals" mapstructure:"unit_decimals"`

	NativeSymbol   string `toml:"native_symbol" mapstructure:"native_symbol"`
	NativeDecimals uint8  `toml:"native_decimals" mapstructure:"native_decimals"`
	NativeFeed     string `toml:"native_feed" mapstructure:"native_feed"`

	Tokens []TokenConfig `toml:"tokens" mapstructure:"tokens"`
}

// TokenConfig is one [[market.tokens]] entry: an allowlisted settlement token.
type TokenConfig struct {
	Symbol   string `toml:"symbol" mapstructure:"symbol"`
	Contract string `toml:"contract" mapstructure:"contract"`
	Decimals uint8  `toml:"decimals" mapstructure:"decimals"`
	Feed     string `toml:"feed" mapstructure:"feed"`
}

// Accounts parses the owner, escrow and fee recipient addresses.
func (m *MarketConfig) Accounts() (owner, escrow, recipient account.Address, err error) {
	if owner, err = parseAddress("owner", m.Owner); err != nil {
		return
	}
	if escrow, err = parseAddress("escrow", m.Escrow); err != nil {
		return
	}
	recipient, err = parseAddress("fee_recipient", m.FeeRecipient)
	return
}

// TokenContracts maps each token symbol to its contract.
func (m *MarketConfig) TokenContracts() (map[string]account.Address, error) {
	out := make(map[string]account.Address, len(m.Tokens))
	for _, t := range m.Tokens {
		c, err := parseAddress("tokens."+t.Symbol+".contract", t.Contract)
		if err != nil {
			return nil, err
		}
		out[t.Symbol] = c
	}
	return out, nil
}

// Validate performs validation on the market configuration
func (m *MarketConfig) Validate() error {
	if _, _, _, err := m.Accounts(); err != nil {
		return err
	}
	if m.FeeRate > market.MaxFeeRate {
		return fmt.Errorf("fee_rate must be at most %d, got %d", market.MaxFeeRate, m.FeeRate)
	}
	if m.NativeSymbol == "" {
		return fmt.Errorf("native_symbol is required")
	}
	if m.NativeFeed == "" {
		return fmt.Errorf("native_feed is required")
	}

	seen := map[string]bool{m.NativeSymbol: true}
	for i, t := range m.Tokens {
		if t.Symbol == "" {
			return fmt.Errorf("tokens[%d]: symbol is required", i)
		}
		if seen[t.Symbol] {
			return fmt.Errorf("tokens[%d]: duplicate symbol %s", i, t.Symbol)
		}
		seen[t.Symbol] = true
		if t.Feed == "" {
			return fmt.Errorf("tokens[%d]: feed is required", i)
		}
	}
	if _, err := m.TokenContracts(); err != nil {
		return err
	}
	return nil
}

// normalize trims symbols and upper-cases feed pairs.
func (m *MarketConfig) normalize() {
	m.NativeSymbol = strings.TrimSpace(m.NativeSymbol)
	m.NativeFeed = strings.ToUpper(strings.TrimSpace(m.NativeFeed))
	for i := range m.Tokens {
		m.Tokens[i].Symbol = strings.TrimSpace(m.Tokens[i].Symbol)
		m.Tokens[i].Feed = strings.ToUpper(strings.TrimSpace(m.Tokens[i].Feed))
	}
}

func parseAddress(field, s string) (account.Address, error) {
	if s == "" {
		return account.Address{}, fmt.Errorf("%s is required", field)
	}
	a, err := account.Parse(s)
	if err != nil {
		return account.Address{}, fmt.Errorf("%s: %w", field, err)
	}
	if a.IsZero() {
		return account.Address{}, fmt.Errorf("%s must not be the zero address", field)
	}
	return a, nil
}
