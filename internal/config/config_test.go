package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	// An explicit, empty file keeps the lookup away from the developer's home.
	path := filepath.Join(dir, "shelfadmin.yaml")
	writeFile(t, path, "")

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultDataDir(), cfg.DataDir)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfadmin.yaml")
	writeFile(t, path, `
api_url: https://books.example.com/api/v1/
data_dir: /var/lib/shelfadmin
timeout: 3s
log_level: DEBUG
login_path: /signin
`)

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, "https://books.example.com/api/v1", cfg.APIURL)
	assert.Equal(t, "/var/lib/shelfadmin", cfg.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/signin", cfg.LoginPath)
	assert.Equal(t, filepath.Join("/var/lib/shelfadmin", "session.db"), cfg.SessionFile())
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfadmin.yaml")
	writeFile(t, path, "api_url: https://file.example.com\ntimeout: 3s\n")
	t.Setenv("SHELFADMIN_API_URL", "https://env.example.com")
	t.Setenv("SHELFADMIN_TIMEOUT", "45s")
	t.Setenv("SHELFADMIN_LOG_LEVEL", "error")

	cfg, err := Load(New(path))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.APIURL)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, slog.LevelError, cfg.SlogLevel())
}

func TestExplicitMissingFileFails(t *testing.T) {
	_, err := Load(New(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelfadmin.yaml")
	writeFile(t, path, "api_url: [unterminated\n")
	_, err := Load(New(path))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			APIURL:    "http://localhost:8080/api/v1",
			DataDir:   "/tmp/x",
			Timeout:   time.Second,
			LogLevel:  "info",
			LoginPath: "/login",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(*Config) {}, ""},
		{"RelativeURL", func(c *Config) { c.APIURL = "api/v1" }, `api_url must be an absolute URL, got "api/v1"`},
		{"EmptyURL", func(c *Config) { c.APIURL = "" }, "api_url is required"},
		{"NegativeTimeout", func(c *Config) { c.Timeout = -time.Second }, "timeout must be positive"},
		{"BadLevel", func(c *Config) { c.LogLevel = "trace" }, `log_level must be one of [debug info warn error], got "trace"`},
		{"LoginPathNotAbsolute", func(c *Config) { c.LoginPath = "login" }, `login_path must start with "/"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelfadmin.yaml")
	writeFile(t, path, "")
	t.Setenv("SHELFADMIN_LOG_LEVEL", "loud")

	_, err := Load(New(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "log_level")
}

func TestFindConfigFileInPaths(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	assert.Empty(t, findConfigFileInPaths([]string{first, second}))

	writeFile(t, filepath.Join(second, "shelfadmin.yml"), "")
	assert.Equal(t, filepath.Join(second, "shelfadmin.yml"), findConfigFileInPaths([]string{first, second}))

	writeFile(t, filepath.Join(first, "shelfadmin.yaml"), "")
	assert.Equal(t, filepath.Join(first, "shelfadmin.yaml"), findConfigFileInPaths([]string{first, second}))

	// The binary itself has no extension and must never match.
	writeFile(t, filepath.Join(second, "shelfadmin"), "")
	assert.Equal(t, filepath.Join(second, "shelfadmin.yml"), findConfigFileInPaths([]string{second}))
}

func TestSetDefaultsKeepsValues(t *testing.T) {
	cfg := Config{APIURL: "https://x.example.com", Timeout: time.Minute}
	cfg.SetDefaults()
	assert.Equal(t, "https://x.example.com", cfg.APIURL)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, DefaultLoginPath, cfg.LoginPath)
}
