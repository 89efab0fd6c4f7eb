// Package config loads application configuration from file and
// environment and initializes the global logger.
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
	Exa       ExaConfig       `yaml:"exa" mapstructure:"exa"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scout     ScoutConfig     `yaml:"scout" mapstructure:"scout"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ExaConfig holds search-provider settings.
type ExaConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	SessionTTLSecs int     `yaml:"session_ttl_secs" mapstructure:"session_ttl_secs"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings. FastModel serves query
// planning and candidate extraction; StrongModel serves verification
// scoring.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	FastModel   string `yaml:"fast_model" mapstructure:"fast_model"`
	StrongModel string `yaml:"strong_model" mapstructure:"strong_model"`
}

// ScoutConfig tunes the discovery pipeline.
type ScoutConfig struct {
	StaggerMs                 int `yaml:"stagger_ms" mapstructure:"stagger_ms"`
	ResultsPerQuery           int `yaml:"results_per_query" mapstructure:"results_per_query"`
	VerifyResultsPerCandidate int `yaml:"verify_results_per_candidate" mapstructure:"verify_results_per_candidate"`
	VerifyBatchSize           int `yaml:"verify_batch_size" mapstructure:"verify_batch_size"`
	VerifyConcurrency         int `yaml:"verify_concurrency" mapstructure:"verify_concurrency"`
	MaxCorpusResults          int `yaml:"max_corpus_results" mapstructure:"max_corpus_results"`
	MaxResults                int `yaml:"max_results" mapstructure:"max_results"`
	MinRelevanceScore         int `yaml:"min_relevance_score" mapstructure:"min_relevance_score"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("exa.key", "")
	v.SetDefault("exa.base_url", "https://mcp.exa.ai/mcp")
	v.SetDefault("exa.session_ttl_secs", 240)
	v.SetDefault("exa.rate_limit", 5)
	v.SetDefault("exa.timeout_secs", 45)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.strong_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("scout.stagger_ms", 600)
	v.SetDefault("scout.results_per_query", 15)
	v.SetDefault("scout.verify_results_per_candidate", 5)
	v.SetDefault("scout.verify_batch_size", 8)
	v.SetDefault("scout.verify_concurrency", 3)
	v.SetDefault("scout.max_corpus_results", 80)
	v.SetDefault("scout.max_results", 20)
	v.SetDefault("scout.min_relevance_score", 5)

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
