package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30, cfg.Scoring.SafeThreshold)
	assert.Equal(t, 60, cfg.Scoring.SuspiciousThreshold)
	assert.Equal(t, 5, cfg.Reputation.TimeoutSecs)
	assert.Equal(t, "https://www.virustotal.com/api/v3", cfg.Reputation.VirusTotalURL)
	assert.Equal(t, "https://urlhaus-api.abuse.ch/v1/url/", cfg.Reputation.URLhausURL)
	assert.Empty(t, cfg.Reputation.GoogleSafeBrowsingKey)
	assert.True(t, cfg.Intel.Enabled)
	assert.Equal(t, 45, cfg.Intel.GeoRatePerMin)
	assert.False(t, cfg.Model.Enabled)
	assert.Equal(t, 10, cfg.Bulk.MaxURLs)
	assert.Equal(t, 4, cfg.Bulk.MaxConcurrent)
	assert.Equal(t, 5, cfg.Email.MaxURLs)
	assert.Equal(t, int64(10*1024*1024), cfg.QR.MaxImageBytes)
	assert.Equal(t, 5, cfg.Circuit.FailureThreshold)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/risk
log:
  level: debug
  format: console
server:
  port: 9090
scoring:
  safe_threshold: 25
bulk:
  max_concurrent: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 25, cfg.Scoring.SafeThreshold)
	assert.Equal(t, 2, cfg.Bulk.MaxConcurrent)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Scoring.SuspiciousThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RISK_STORE_DRIVER", "none")
	t.Setenv("RISK_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RISK_REPUTATION_VIRUSTOTAL_KEY=vt-from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("RISK_REPUTATION_VIRUSTOTAL_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "vt-from-dotenv", cfg.Reputation.VirusTotalKey)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RISK_SERVER_PORT", "3000")
	t.Setenv("RISK_MODEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Model.Enabled)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [\n"), 0644))

	_, err := Load()
	assert.Error(t, err)
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

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8000
	cfg.Scoring.SafeThreshold = 30
	cfg.Scoring.SuspiciousThreshold = 60
	cfg.Reputation.TimeoutSecs = 5
	cfg.Bulk.MaxURLs = 10
	cfg.Bulk.MaxConcurrent = 4
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "risk.db"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("scan"))
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	assert.NoError(t, cfg.Validate("scan"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateThresholds(t *testing.T) {
	cfg := validDefaults()

	cfg.Scoring.SafeThreshold = 70
	err := cfg.Validate("scan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must not exceed")

	cfg.Scoring.SafeThreshold = -1
	err = cfg.Validate("scan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "safe_threshold must be within")

	cfg.Scoring.SafeThreshold = 30
	cfg.Scoring.SuspiciousThreshold = 101
	err = cfg.Validate("scan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "suspicious_threshold must be within")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Bulk.MaxConcurrent = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_concurrent must be between 1 and 50")

	cfg.Bulk.MaxConcurrent = 51
	assert.Error(t, cfg.Validate("serve"))

	cfg.Bulk.MaxConcurrent = 50
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()

	cfg.Store.Driver = "mysql"
	err := cfg.Validate("scan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")

	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""
	err = cfg.Validate("scan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "none"
	assert.NoError(t, cfg.Validate("scan"))
}

func TestValidateModelPath(t *testing.T) {
	cfg := validDefaults()
	cfg.Model.Enabled = true

	err := cfg.Validate("scan")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "model.path is required")

	cfg.Model.Path = "model.json"
	assert.NoError(t, cfg.Validate("scan"))
}
