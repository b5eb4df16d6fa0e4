package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Coupang    CoupangConfig    `yaml:"coupang" mapstructure:"coupang"`
	Insight    InsightConfig    `yaml:"insight" mapstructure:"insight"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CoupangConfig holds Coupang Partners open API credentials. SubID tags
// every generated affiliate link.
type CoupangConfig struct {
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	SubID     string `yaml:"sub_id" mapstructure:"sub_id"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
}

// Validate checks that signed API calls can be made.
func (c CoupangConfig) Validate() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return eris.New("config: coupang access_key and secret_key are required")
	}
	return nil
}

// InsightConfig holds the research API service settings.
type InsightConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Key         string `yaml:"key" mapstructure:"key"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings for SEO generation.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// NotionConfig holds Notion API credentials and the content database ID.
type NotionConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	ContentDB string `yaml:"content_db" mapstructure:"content_db"`
}

// Validate checks that pages can be created.
func (c NotionConfig) Validate() error {
	if c.Token == "" {
		return eris.New("config: notion token is required")
	}
	if c.ContentDB == "" {
		return eris.New("config: notion content_db is required")
	}
	return nil
}

// ResearchConfig configures the batch research pipeline.
type ResearchConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	SEO       bool   `yaml:"seo" mapstructure:"seo"`
}

// Validate checks that the selected provider can be constructed.
func (c ResearchConfig) Validate(cfg *Config) error {
	switch c.Provider {
	case "insight":
		if cfg.Insight.BaseURL == "" {
			return eris.New("config: insight base_url is required for the insight provider")
		}
	case "perplexity":
		if cfg.Perplexity.Key == "" {
			return eris.New("config: perplexity key is required for the perplexity provider")
		}
	default:
		return eris.Errorf("config: unknown research provider %q", c.Provider)
	}
	return nil
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port         int      `yaml:"port" mapstructure:"port"`
	AllowOrigins []string `yaml:"allow_origins" mapstructure:"allow_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PARTNERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "partners.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("coupang.base_url", "https://api-gateway.coupang.com")
	v.SetDefault("coupang.sub_id", "")
	v.SetDefault("insight.base_url", "")
	v.SetDefault("insight.timeout_secs", 120)
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("research.provider", "insight")
	v.SetDefault("research.batch_size", 2)
	v.SetDefault("research.seo", false)

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
