package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. MARKETD_SERVER_PORT.
const EnvPrefix = "MARKETD"

// LoadConfig loads configuration from multiple sources in priority order:
// 1. Default values
// 2. Dotenv file (never overrides variables already set)
// 3. Configuration file (marketd.toml)
// 4. Environment variables (MARKETD_ prefix)
func LoadConfig(paths ConfigPaths) (*Config, error) {
	if err := loadEnvFile(paths.Env); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if paths.Main != "" {
		if err := loadMainConfig(v, paths.Main); err != nil {
			return nil, fmt.Errorf("failed to load main config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.configPath = paths.Main
	config.normalize()

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &config, nil
}

// loadMainConfig loads the main configuration file
func loadMainConfig(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", configPath)
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}
	return nil
}

// loadEnvFile exports the variables of a dotenv file.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) normalize() {
	c.Market.normalize()
	c.Oracle.normalize()
	c.OfferDB.Backend = strings.ToLower(strings.TrimSpace(c.OfferDB.Backend))
	c.OfferDB.Compression = strings.ToLower(strings.TrimSpace(c.OfferDB.Compression))
	if c.OfferDB.Compression == "" {
		c.OfferDB.Compression = "none"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
}
