package config

import "path/filepath"

// Config is the complete marketd configuration, read from marketd.toml.
type Config struct {
	Server  ServerConfig  `toml:"server" mapstructure:"server"`
	Market  MarketConfig  `toml:"market" mapstructure:"market"`
	Oracle  OracleConfig  `toml:"oracle" mapstructure:"oracle"`
	OfferDB OfferDBConfig `toml:"offer_db" mapstructure:"offer_db"`
	EventDB EventDBConfig `toml:"event_db" mapstructure:"event_db"`
	Log     LogConfig     `toml:"log" mapstructure:"log"`

	configPath string `toml:"-" mapstructure:"-"`
}

// ConfigPaths holds the files a configuration is read from.
type ConfigPaths struct {
	Main string // marketd.toml; empty runs on defaults and environment
	Env  string // dotenv file; a missing file is not an error
}

// DefaultConfigPaths returns the paths used when none are given.
func DefaultConfigPaths() ConfigPaths {
	return ConfigPaths{
		Main: "marketd.toml",
		Env:  ".env",
	}
}

// ConfigPathsFromDir returns configuration paths inside configDir.
func ConfigPathsFromDir(configDir string) ConfigPaths {
	return ConfigPaths{
		Main: filepath.Join(configDir, "marketd.toml"),
		Env:  filepath.Join(configDir, ".env"),
	}
}

// GetConfigPath returns the file the configuration was loaded from.
func (c *Config) GetConfigPath() string {
	return c.configPath
}
