package config

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/internal/logger"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "SQLPROVIDER"

// Config represents the application configuration
type Config struct {
	// Database connection and session settings
	Database DatabaseConfig `mapstructure:"database"`

	// Connection retry policy
	Retry RetryConfig `mapstructure:"retry"`

	// Logging
	Log LogConfig `mapstructure:"log"`

	// Application
	Version string `mapstructure:"version"`
}

// DatabaseConfig contains connection and session settings
type DatabaseConfig struct {
	Connections          map[string]string `mapstructure:"connections"`
	Driver               string            `mapstructure:"driver"`
	Connection           string            `mapstructure:"connection"` // key into Connections, or a DSN
	StatementAfterOpen   string            `mapstructure:"statement_after_open"`
	StatementBeforeClose string            `mapstructure:"statement_before_close"`
	Isolation            string            `mapstructure:"isolation"`
	CommandTimeout       int               `mapstructure:"command_timeout"` // seconds, -1 = engine default
	MaxOpenConns         int               `mapstructure:"max_open_conns"`
	MaxIdleConns         int               `mapstructure:"max_idle_conns"`
	MaxIdleTime          int               `mapstructure:"max_idle_time"` // seconds
	RateLimit            float64           `mapstructure:"rate_limit"`    // commands/second, 0 = unlimited
	RateBurst            int               `mapstructure:"rate_burst"`
	LegacySentinelNulls  bool              `mapstructure:"legacy_sentinel_nulls"`
}

// RetryConfig contains connection retry settings
type RetryConfig struct {
	MaxAttempts  int     `mapstructure:"max_attempts"`
	InitialDelay int     `mapstructure:"initial_delay"` // milliseconds
	MaxDelay     int     `mapstructure:"max_delay"`     // seconds
	Multiplier   float64 `mapstructure:"multiplier"`
	Jitter       bool    `mapstructure:"jitter"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level      string `mapstructure:"level"`  // trace, debug, info, warn, error
	Format     string `mapstructure:"format"` // json, pretty
	Output     string `mapstructure:"output"` // stdout, stderr, file
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads the configuration into the global viper instance.
// A missing config file is not an error; defaults and environment apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	initViper(v, cfgFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New(errors.ErrorTypeConfiguration, "Load", "failed to read config file", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper unmarshals an already prepared viper instance.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.ErrorTypeConfiguration, "Load", "failed to unmarshal config", err)
	}

	setDefaults(cfg)

	return cfg, nil
}

// Save writes the global viper configuration to path, or to the default
// location when path is empty.
func Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return viper.WriteConfigAs(path)
}

// initViper sets up file lookup, environment and defaults on v
func initViper(v *viper.Viper, cfgFile string) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(DataDir())
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
}

// SetDefaults registers every default value on v
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.connection", "default")
	v.SetDefault("database.connections", map[string]string{
		"default": filepath.Join(DataDir(), "sqlprovider.db"),
	})
	v.SetDefault("database.command_timeout", -1)
	v.SetDefault("database.statement_after_open", "")
	v.SetDefault("database.statement_before_close", "")
	v.SetDefault("database.isolation", "read_uncommitted")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_idle_time", 300)
	v.SetDefault("database.rate_limit", 0)
	v.SetDefault("database.rate_burst", 10)
	v.SetDefault("database.legacy_sentinel_nulls", false)

	// Retry defaults
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay", 500)
	v.SetDefault("retry.max_delay", 10)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter", true)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 10)
	v.SetDefault("log.max_backups", 3)

	v.SetDefault("version", "0.1.0")
}

// setDefaults fills fields an explicit zero value would break
func setDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}

	if cfg.Database.Isolation == "" {
		cfg.Database.Isolation = "read_uncommitted"
	}

	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 1
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks the configuration for values the provider cannot use.
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return errors.New(errors.ErrorTypeConfiguration, "Validate", fmt.Sprintf(format, args...), nil)
	}

	if strings.TrimSpace(c.Database.Driver) == "" {
		return invalid("database.driver is required")
	}
	if c.Database.CommandTimeout < -1 {
		return invalid("database.command_timeout must be -1 or greater, got %d", c.Database.CommandTimeout)
	}
	if _, err := c.IsolationLevel(); err != nil {
		return err
	}
	if c.Database.RateLimit < 0 {
		return invalid("database.rate_limit must not be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return invalid("retry.max_attempts must be at least 1")
	}
	switch c.Log.Output {
	case "", "stdout", "stderr":
	case "file":
		if c.Log.File == "" {
			return invalid("log.file is required when log.output is file")
		}
	default:
		return invalid("unknown log.output %q", c.Log.Output)
	}

	return nil
}

// ConnectionString resolves a connection by name. An empty name means the
// configured database.connection. A name that is not a configured key but
// looks like a DSN is returned as is.
func (c *Config) ConnectionString(name string) (string, error) {
	if name == "" {
		name = c.Database.Connection
	}

	// viper lower-cases map keys
	if dsn, ok := c.Database.Connections[strings.ToLower(name)]; ok {
		return dsn, nil
	}
	if dsn, ok := c.Database.Connections[name]; ok {
		return dsn, nil
	}

	if strings.ContainsAny(name, "=:/.@") {
		return name, nil
	}

	return "", errors.New(errors.ErrorTypeConfiguration, "ConnectionString",
		fmt.Sprintf("connection %q is not configured", name), nil)
}

// IsolationLevel parses database.isolation.
func (c *Config) IsolationLevel() (sql.IsolationLevel, error) {
	return ParseIsolationLevel(c.Database.Isolation)
}

// ParseIsolationLevel maps a configuration name to a sql.IsolationLevel.
func ParseIsolationLevel(name string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(name))) {
	case "", "read_uncommitted":
		return sql.LevelReadUncommitted, nil
	case "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "write_committed":
		return sql.LevelWriteCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "snapshot":
		return sql.LevelSnapshot, nil
	case "serializable":
		return sql.LevelSerializable, nil
	case "linearizable":
		return sql.LevelLinearizable, nil
	default:
		return sql.LevelDefault, errors.New(errors.ErrorTypeConfiguration, "IsolationLevel",
			fmt.Sprintf("unknown isolation level %q", name), nil)
	}
}

// CommandTimeout returns database.command_timeout as a duration; zero means
// no deadline is applied.
func (c *Config) CommandTimeout() time.Duration {
	if c.Database.CommandTimeout <= 0 {
		return 0
	}
	return time.Duration(c.Database.CommandTimeout) * time.Second
}

// RetryPolicy converts the retry section.
func (c *Config) RetryPolicy() errors.RetryPolicy {
	return errors.RetryPolicy{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: time.Duration(c.Retry.InitialDelay) * time.Millisecond,
		MaxDelay:     time.Duration(c.Retry.MaxDelay) * time.Second,
		Multiplier:   c.Retry.Multiplier,
		Jitter:       c.Retry.Jitter,
	}
}

// LogOutput converts the log section.
func (c *Config) LogOutput() logger.OutputConfig {
	return logger.OutputConfig{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		Output:     c.Log.Output,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns the SqlProvider data directory
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sqlprovider"
	}
	return filepath.Join(home, ".sqlprovider")
}
