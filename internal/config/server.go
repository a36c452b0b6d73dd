package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ServerConfig represents the [server] section.
type ServerConfig struct {
	Bind    string        `toml:"bind" mapstructure:"bind"`
	Port    int           `toml:"port" mapstructure:"port"`
	Timeout time.Duration `toml:"timeout" mapstructure:"timeout"`

	// Standalone enables the ledger_* administration methods.
	Standalone bool `toml:"standalone" mapstructure:"standalone"`

	// SkipSignatureVerification trusts tx.account on unsigned requests.
	// Only for standalone testing.
	SkipSignatureVerification bool `toml:"skip_signature_verification" mapstructure:"skip_signature_verification"`

	// RateLimit is the per-client request rate in requests per second; zero
	// disables limiting.
	RateLimit    float64 `toml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst    int     `toml:"rate_burst" mapstructure:"rate_burst"`
	MaxBodyBytes int64   `toml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Address returns the listen address.
func (s *ServerConfig) Address() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// Validate performs validation on the server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit must be non-negative, got %v", s.RateLimit)
	}
	if s.RateBurst < 0 {
		return fmt.Errorf("rate_burst must be non-negative, got %d", s.RateBurst)
	}
	if s.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be non-negative, got %d", s.MaxBodyBytes)
	}
	if s.SkipSignatureVerification && !s.Standalone {
		return fmt.Errorf("skip_signature_verification requires standalone mode")
	}
	return nil
}
