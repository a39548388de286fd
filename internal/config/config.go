package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Scoring    ScoringConfig    `yaml:"scoring" mapstructure:"scoring"`
	Reputation ReputationConfig `yaml:"reputation" mapstructure:"reputation"`
	Circuit    CircuitConfig    `yaml:"circuit" mapstructure:"circuit"`
	Intel      IntelConfig      `yaml:"intel" mapstructure:"intel"`
	Model      ModelConfig      `yaml:"model" mapstructure:"model"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Bulk       BulkConfig       `yaml:"bulk" mapstructure:"bulk"`
	Email      EmailConfig      `yaml:"email" mapstructure:"email"`
	QR         QRConfig         `yaml:"qr" mapstructure:"qr"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig holds the label thresholds. A score at or below
// SafeThreshold is safe, at or below SuspiciousThreshold is suspicious,
// anything above is dangerous.
type ScoringConfig struct {
	SafeThreshold       int `yaml:"safe_threshold" mapstructure:"safe_threshold"`
	SuspiciousThreshold int `yaml:"suspicious_threshold" mapstructure:"suspicious_threshold"`
}

// ReputationConfig holds threat feed credentials and endpoints.
type ReputationConfig struct {
	GoogleSafeBrowsingKey string `yaml:"google_safe_browsing_key" mapstructure:"google_safe_browsing_key"`
	VirusTotalKey         string `yaml:"virustotal_key" mapstructure:"virustotal_key"`
	SafeBrowsingURL       string `yaml:"safe_browsing_url" mapstructure:"safe_browsing_url"`
	VirusTotalURL         string `yaml:"virustotal_url" mapstructure:"virustotal_url"`
	PhishTankURL          string `yaml:"phishtank_url" mapstructure:"phishtank_url"`
	URLhausURL            string `yaml:"urlhaus_url" mapstructure:"urlhaus_url"`
	TimeoutSecs           int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CircuitConfig configures the per-feed circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// IntelConfig configures domain intelligence lookups.
type IntelConfig struct {
	Enabled          bool   `yaml:"enabled" mapstructure:"enabled"`
	TimeoutSecs      int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	GeoBaseURL       string `yaml:"geo_base_url" mapstructure:"geo_base_url"`
	GeoRatePerMin    int    `yaml:"geo_rate_per_min" mapstructure:"geo_rate_per_min"`
	GeoIPCityDB      string `yaml:"geoip_city_db" mapstructure:"geoip_city_db"`
	ScreenshotBase   string `yaml:"screenshot_base_url" mapstructure:"screenshot_base_url"`
	UnshortenMaxHops int    `yaml:"unshorten_max_hops" mapstructure:"unshorten_max_hops"`
}

// ModelConfig configures the URL classifier artifact.
type ModelConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// StoreConfig configures the scan history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// BulkConfig configures batch URL scans.
type BulkConfig struct {
	MaxURLs       int `yaml:"max_urls" mapstructure:"max_urls"`
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// EmailConfig configures email scans.
type EmailConfig struct {
	MaxURLs int `yaml:"max_urls" mapstructure:"max_urls"`
}

// QRConfig configures QR image scans.
type QRConfig struct {
	MaxImageBytes   int64 `yaml:"max_image_bytes" mapstructure:"max_image_bytes"`
	RedirectTimeout int   `yaml:"redirect_timeout_secs" mapstructure:"redirect_timeout_secs"`
}

// Load reads configuration from .env, file, and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("scoring.safe_threshold", 30)
	v.SetDefault("scoring.suspicious_threshold", 60)
	v.SetDefault("reputation.google_safe_browsing_key", "")
	v.SetDefault("reputation.virustotal_key", "")
	v.SetDefault("reputation.safe_browsing_url", "https://safebrowsing.googleapis.com/v4")
	v.SetDefault("reputation.virustotal_url", "https://www.virustotal.com/api/v3")
	v.SetDefault("reputation.phishtank_url", "https://checkurl.phishtank.com/checkurl/")
	v.SetDefault("reputation.urlhaus_url", "https://urlhaus-api.abuse.ch/v1/url/")
	v.SetDefault("reputation.timeout_secs", 5)
	v.SetDefault("circuit.failure_threshold", 5)
	v.SetDefault("circuit.reset_timeout_secs", 60)
	v.SetDefault("intel.enabled", true)
	v.SetDefault("intel.timeout_secs", 5)
	v.SetDefault("intel.geo_base_url", "http://ip-api.com/json")
	v.SetDefault("intel.geo_rate_per_min", 45)
	v.SetDefault("intel.geoip_city_db", "")
	v.SetDefault("intel.screenshot_base_url", "https://image.thum.io/get/width/600/crop/800")
	v.SetDefault("intel.unshorten_max_hops", 10)
	v.SetDefault("model.enabled", false)
	v.SetDefault("model.path", "models/url_classifier.json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "risk-analyzer.db")
	v.SetDefault("bulk.max_urls", 10)
	v.SetDefault("bulk.max_concurrent", 4)
	v.SetDefault("email.max_urls", 5)
	v.SetDefault("qr.max_image_bytes", 10*1024*1024)
	v.SetDefault("qr.redirect_timeout_secs", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given command mode
// ("scan" or "serve").
func (c *Config) Validate(mode string) error {
	var errs []string
	switch mode {
	case "scan":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	s := c.Scoring
	if s.SafeThreshold < 0 || s.SafeThreshold > 100 {
		errs = append(errs, "scoring.safe_threshold must be within [0,100]")
	}
	if s.SuspiciousThreshold < 0 || s.SuspiciousThreshold > 100 {
		errs = append(errs, "scoring.suspicious_threshold must be within [0,100]")
	}
	if s.SafeThreshold > s.SuspiciousThreshold {
		errs = append(errs, "scoring.safe_threshold must not exceed scoring.suspicious_threshold")
	}
	if c.Bulk.MaxURLs < 1 {
		errs = append(errs, "bulk.max_urls must be positive")
	}
	if c.Bulk.MaxConcurrent < 1 || c.Bulk.MaxConcurrent > 50 {
		errs = append(errs, "bulk.max_concurrent must be between 1 and 50")
	}
	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" && c.Store.Driver != "none" {
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite, postgres, or none", c.Store.Driver))
	}
	if c.Store.Driver != "none" && c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	if c.Model.Enabled && c.Model.Path == "" {
		errs = append(errs, "model.path is required when model.enabled")
	}
	if c.Reputation.TimeoutSecs < 1 {
		errs = append(errs, "reputation.timeout_secs must be positive")
	}
	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
