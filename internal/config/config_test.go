package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "partners.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowOrigins)
	assert.Equal(t, "https://api-gateway.coupang.com", cfg.Coupang.BaseURL)
	assert.Equal(t, 120, cfg.Insight.TimeoutSecs)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "insight", cfg.Research.Provider)
	assert.Equal(t, 2, cfg.Research.BatchSize)
	assert.False(t, cfg.Research.SEO)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/partners
log:
  level: debug
  format: console
server:
  port: 9090
research:
  provider: perplexity
  batch_size: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/partners", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "perplexity", cfg.Research.Provider)
	assert.Equal(t, 4, cfg.Research.BatchSize)
	// Defaults still apply for unset values
	assert.Equal(t, "https://api-gateway.coupang.com", cfg.Coupang.BaseURL)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("PARTNERS_STORE_DRIVER", "postgres")
	t.Setenv("PARTNERS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PARTNERS_SERVER_PORT", "3000")
	t.Setenv("PARTNERS_COUPANG_ACCESS_KEY", "ak")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "ak", cfg.Coupang.AccessKey)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestCoupangValidate(t *testing.T) {
	assert.Error(t, CoupangConfig{}.Validate())
	assert.Error(t, CoupangConfig{AccessKey: "ak"}.Validate())
	assert.NoError(t, CoupangConfig{AccessKey: "ak", SecretKey: "sk"}.Validate())
}

func TestNotionValidate(t *testing.T) {
	assert.Error(t, NotionConfig{}.Validate())
	assert.Error(t, NotionConfig{Token: "ntn"}.Validate())
	assert.NoError(t, NotionConfig{Token: "ntn", ContentDB: "db-id"}.Validate())
}

func TestResearchValidate(t *testing.T) {
	cfg := &Config{}

	cfg.Research.Provider = "insight"
	assert.Error(t, cfg.Research.Validate(cfg), "insight needs a base URL")
	cfg.Insight.BaseURL = "https://insight.example.com"
	assert.NoError(t, cfg.Research.Validate(cfg))

	cfg.Research.Provider = "perplexity"
	assert.Error(t, cfg.Research.Validate(cfg), "perplexity needs a key")
	cfg.Perplexity.Key = "pplx-key"
	assert.NoError(t, cfg.Research.Validate(cfg))

	cfg.Research.Provider = "unknown"
	assert.Error(t, cfg.Research.Validate(cfg))
}
