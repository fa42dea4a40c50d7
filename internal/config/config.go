package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// DefaultHistoryTable is the table the request-logging middleware writes to.
const DefaultHistoryTable = "request_logger_djangorequestshistorymodel"

// Config application configuration structure
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Replay ReplayConfig `yaml:"replay" mapstructure:"replay"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig locates the recorded-request history database
type StoreConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Table string `yaml:"table" mapstructure:"table"`
}

// ReplayConfig replay engine configuration
type ReplayConfig struct {
	BaseURL           string   `yaml:"base_url" mapstructure:"base_url"`
	ExcludedURLs      []string `yaml:"excluded_urls" mapstructure:"excluded_urls"`
	StartFromID       int      `yaml:"start_from_id" mapstructure:"start_from_id"`
	SkipRequestErrors bool     `yaml:"skip_request_errors" mapstructure:"skip_request_errors"`
	// LegacyOffset keeps the historical start-offset behavior that re-appends
	// the tail of the filtered sequence. Disable to take a plain slice from
	// the offset instead.
	LegacyOffset bool `yaml:"legacy_offset" mapstructure:"legacy_offset"`
	Timeout      int  `yaml:"timeout" mapstructure:"timeout"`
	// TLSInsecureSkipVerify is on by default: replay targets are commonly
	// internal hosts with self-signed certificates.
	TLSInsecureSkipVerify bool   `yaml:"tls_insecure_skip_verify" mapstructure:"tls_insecure_skip_verify"`
	AuthToken             string `yaml:"auth_token" mapstructure:"auth_token"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	MaxColumnWidth int  `yaml:"max_column_width" mapstructure:"max_column_width"`
	Interactive    bool `yaml:"interactive" mapstructure:"interactive"`
	DryRun         bool `yaml:"dry_run" mapstructure:"dry_run"`
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level" mapstructure:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable" mapstructure:"enable"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("REQPLAY")
	v.AutomaticEnv()

	v.SetConfigName("reqplay")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.reqplay")
		v.AddConfigPath("/etc/reqplay")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults plus flags cover everything
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyDefaults(&config, v)

	return &config, nil
}

// applyDefaults fills zero-value fields from viper. Unmarshal does not apply
// defaults to zero-value fields, and bool fields always come from viper so
// config-file values and defaults resolve consistently.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = v.GetString("store.path")
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = v.GetString("store.table")
	}

	if cfg.Replay.BaseURL == "" {
		cfg.Replay.BaseURL = v.GetString("replay.base_url")
	}
	if len(cfg.Replay.ExcludedURLs) == 0 {
		cfg.Replay.ExcludedURLs = v.GetStringSlice("replay.excluded_urls")
	}
	if cfg.Replay.StartFromID == 0 {
		cfg.Replay.StartFromID = v.GetInt("replay.start_from_id")
	}
	if cfg.Replay.Timeout == 0 {
		cfg.Replay.Timeout = v.GetInt("replay.timeout")
	}
	if cfg.Replay.AuthToken == "" {
		cfg.Replay.AuthToken = v.GetString("replay.auth_token")
	}
	cfg.Replay.SkipRequestErrors = v.GetBool("replay.skip_request_errors")
	cfg.Replay.LegacyOffset = v.GetBool("replay.legacy_offset")
	cfg.Replay.TLSInsecureSkipVerify = v.GetBool("replay.tls_insecure_skip_verify")

	if cfg.Output.MaxColumnWidth == 0 {
		cfg.Output.MaxColumnWidth = v.GetInt("output.max_column_width")
	}
	cfg.Output.Interactive = v.GetBool("output.interactive")
	cfg.Output.DryRun = v.GetBool("output.dry_run")

	if cfg.Log.Level == "" {
		cfg.Log.Level = v.GetString("log.level")
	}
	cfg.Log.FileLogging.Enable = v.GetBool("log.file_logging.enable")
	cfg.Log.FileLogging.Compress = v.GetBool("log.file_logging.compress")
	if cfg.Log.FileLogging.Path == "" {
		cfg.Log.FileLogging.Path = v.GetString("log.file_logging.path")
	}
	if cfg.Log.FileLogging.MaxSizeMB == 0 {
		cfg.Log.FileLogging.MaxSizeMB = v.GetInt("log.file_logging.max_size_mb")
	}
	if cfg.Log.FileLogging.MaxBackups == 0 {
		cfg.Log.FileLogging.MaxBackups = v.GetInt("log.file_logging.max_backups")
	}
	if cfg.Log.FileLogging.MaxAgeDays == 0 {
		cfg.Log.FileLogging.MaxAgeDays = v.GetInt("log.file_logging.max_age_days")
	}
}

// setDefaults set default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "./db")
	v.SetDefault("store.table", DefaultHistoryTable)

	v.SetDefault("replay.base_url", "http://127.0.0.1:8000")
	v.SetDefault("replay.excluded_urls", []string{})
	v.SetDefault("replay.start_from_id", 1)
	v.SetDefault("replay.skip_request_errors", false)
	v.SetDefault("replay.legacy_offset", true)
	v.SetDefault("replay.timeout", 30)
	v.SetDefault("replay.tls_insecure_skip_verify", true)
	v.SetDefault("replay.auth_token", "")

	v.SetDefault("output.max_column_width", 50)
	v.SetDefault("output.interactive", false)
	v.SetDefault("output.dry_run", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "./reqplay.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 5)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)
}

// Validate validates the configuration before any I/O happens
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store path cannot be empty")
	}
	if strings.TrimSpace(c.Store.Table) == "" {
		return fmt.Errorf("store table cannot be empty")
	}

	if c.Replay.StartFromID < 1 {
		return fmt.Errorf("start-from-id must be a positive integer, got %d", c.Replay.StartFromID)
	}
	if c.Replay.Timeout < 1 {
		return fmt.Errorf("replay timeout must be at least 1 second, got %d", c.Replay.Timeout)
	}

	base := strings.TrimSpace(c.Replay.BaseURL)
	if base == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got %q", base)
	}
	if u.Host == "" {
		return fmt.Errorf("base URL %q has no host", base)
	}

	if c.Output.MaxColumnWidth < 4 {
		return fmt.Errorf("max column width must be at least 4, got %d", c.Output.MaxColumnWidth)
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.FileLogging.Enable {
		if c.Log.FileLogging.Path == "" {
			return fmt.Errorf("log file path cannot be empty when file logging is enabled")
		}
		if c.Log.FileLogging.MaxSizeMB < 1 {
			return fmt.Errorf("log file max size must be at least 1MB")
		}
		if c.Log.FileLogging.MaxBackups < 0 {
			return fmt.Errorf("log file max backups cannot be negative")
		}
		if c.Log.FileLogging.MaxAgeDays < 0 {
			return fmt.Errorf("log file max age cannot be negative")
		}
	}

	return nil
}
