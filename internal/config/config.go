// Package config loads shelfadmin settings from an optional YAML file,
// SHELFADMIN_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Keys understood by Load. Environment variables are the upper-cased key with
// the SHELFADMIN_ prefix, e.g. SHELFADMIN_API_URL.
const (
	KeyAPIURL    = "api_url"
	KeyDataDir   = "data_dir"
	KeyTimeout   = "timeout"
	KeyLogLevel  = "log_level"
	KeyLoginPath = "login_path"
)

const (
	DefaultAPIURL    = "http://localhost:8080/api/v1"
	DefaultTimeout   = 15 * time.Second
	DefaultLogLevel  = "warn"
	DefaultLoginPath = "/login"

	envPrefix  = "SHELFADMIN"
	configName = "shelfadmin"
	// SessionFileName is the bbolt file holding the credential inside DataDir.
	SessionFileName = "session.db"
)

// Config is the resolved client configuration.
type Config struct {
	APIURL    string        `mapstructure:"api_url" validate:"required,url"`
	DataDir   string        `mapstructure:"data_dir" validate:"required"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	LogLevel  string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LoginPath string        `mapstructure:"login_path" validate:"required,startswith=/"`
}

// DefaultDataDir is $HOME/.shelfadmin, or .shelfadmin when the home directory
// cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + configName
	}
	return filepath.Join(home, "."+configName)
}

// New returns a viper instance wired for shelfadmin. If configFile is empty it
// looks for shelfadmin.yaml or .yml in the working directory and then in
// $HOME/.shelfadmin; a missing file is not an error.
func New(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAPIURL, DefaultAPIURL)
	v.SetDefault(KeyDataDir, DefaultDataDir())
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLoginPath, DefaultLoginPath)
	return v
}

func findConfigFile() string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		paths = append(paths, filepath.Join(home, "."+configName))
	}
	return findConfigFileInPaths(paths)
}

// findConfigFileInPaths returns the first shelfadmin.yaml or .yml found in
// paths, or "".
func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Load reads the config file if there is one, applies environment and flag
// overrides already bound to v, and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SetDefaults()
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// SetDefaults fills zero fields.
func (c *Config) SetDefaults() {
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
}

// Validate checks c against its struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe.StructField())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", key))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be an absolute URL, got %q", key, fe.Value()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be positive", key))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s], got %q", key, fe.Param(), fe.Value()))
		case "startswith":
			msgs = append(msgs, fmt.Sprintf("%s must start with %q", key, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", key, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldKey(structField string) string {
	switch structField {
	case "APIURL":
		return KeyAPIURL
	case "DataDir":
		return KeyDataDir
	case "LogLevel":
		return KeyLogLevel
	case "LoginPath":
		return KeyLoginPath
	case "Timeout":
		return KeyTimeout
	}
	return structField
}

// SlogLevel maps LogLevel onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// SessionFile is the path of the persisted session database.
func (c *Config) SessionFile() string {
	return filepath.Join(c.DataDir, SessionFileName)
}
