package eventdb

import (
	"fmt"
	"net/url"
	"time"
)

// Driver names as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains event journal connection settings
type Config struct {
	Driver           string `mapstructure:"driver"`
	ConnectionString string `mapstructure:"dsn"`
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	Database         string `mapstructure:"database"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	SSLMode          string `mapstructure:"ssl_mode"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// NewConfig creates a Config with PostgreSQL defaults.
func NewConfig() *Config {
	return &Config{
		Driver:          DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Database:        "marketd",
		Username:        "marketd",
		SSLMode:         "prefer",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		DefaultTimeout:  10 * time.Second,
	}
}

// SQLiteConfig creates a configuration for a SQLite file at path.
func SQLiteConfig(path string) *Config {
	config := NewConfig()
	config.Driver = DriverSQLite
	config.Database = path
	config.MaxOpenConns = 1
	config.MaxIdleConns = 1
	return config
}

// Validate checks the configuration and normalizes the driver name.
func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "postgresql", "pq":
		c.Driver = DriverPostgres
	case "sqlite", "sqlite3":
		c.Driver = DriverSQLite
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDriver, c.Driver)
	}

	if c.ConnectionString == "" {
		switch c.Driver {
		case DriverPostgres:
			if c.Host == "" {
				return ErrMissingHost
			}
			if c.Port <= 0 || c.Port > 65535 {
				return ErrInvalidPort
			}
			if c.Database == "" {
				return ErrMissingDatabase
			}
			if c.Username == "" {
				return ErrMissingUsername
			}
			switch c.SSLMode {
			case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
			default:
				return fmt.Errorf("invalid SSL mode: %s", c.SSLMode)
			}
		case DriverSQLite:
			if c.Database == "" {
				return ErrMissingDatabase
			}
		}
	}

	if c.MaxOpenConns < 0 {
		return ErrInvalidMaxOpenConns
	}
	if c.MaxIdleConns < 0 || (c.MaxOpenConns > 0 && c.MaxIdleConns > c.MaxOpenConns) {
		return ErrInvalidMaxIdleConns
	}
	if c.DefaultTimeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}

// BuildConnectionString builds a connection string from the config
func (c *Config) BuildConnectionString() (string, error) {
	if c.ConnectionString != "" {
		return c.ConnectionString, nil
	}

	switch c.Driver {
	case DriverPostgres:
		params := url.Values{}
		params.Set("sslmode", c.SSLMode)
		params.Set("connect_timeout", fmt.Sprint(int(c.DefaultTimeout.Seconds())))
		params.Set("application_name", "marketd")

		u := url.URL{
			Scheme:   "postgres",
			Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:     "/" + c.Database,
			RawQuery: params.Encode(),
		}
		if c.Password != "" {
			u.User = url.UserPassword(c.Username, c.Password)
		} else {
			u.User = url.User(c.Username)
		}
		return u.String(), nil

	case DriverSQLite:
		params := url.Values{}
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "busy_timeout(5000)")
		params.Add("_pragma", "synchronous(NORMAL)")
		return "file:" + c.Database + "?" + params.Encode(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidDriver, c.Driver)
}
