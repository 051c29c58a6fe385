// Package config loads application configuration from file and environment.
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
	Provider  string          `yaml:"provider" mapstructure:"provider"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Download  DownloadConfig  `yaml:"download" mapstructure:"download"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Merge     MergeConfig     `yaml:"merge" mapstructure:"merge"`
	Jobs      JobsConfig      `yaml:"jobs" mapstructure:"jobs"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// DownloadConfig configures the PDF download stage.
type DownloadConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// ExtractConfig configures the extraction stage.
type ExtractConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
}

// MergeConfig configures the merge stage.
type MergeConfig struct {
	XLSX bool `yaml:"xlsx" mapstructure:"xlsx"`
}

// JobsConfig configures job-state persistence.
type JobsConfig struct {
	DatabasePath string `yaml:"database_path" mapstructure:"database_path"`
}

// ServerConfig configures the job API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and RPE_-prefixed environment
// variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("provider", "gemini")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("download.concurrency", 16)
	v.SetDefault("download.timeout_secs", 60)
	v.SetDefault("download.max_attempts", 3)
	v.SetDefault("download.user_agent", "quarterlies-cli/1.0")
	v.SetDefault("extract.concurrency", 8)
	v.SetDefault("extract.output_dir", "output_files")
	v.SetDefault("merge.xlsx", false)
	v.SetDefault("jobs.database_path", "quarterlies.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Redacted returns a copy safe for printing: API keys are masked.
func (c Config) Redacted() Config {
	out := c
	if out.Gemini.Key != "" {
		out.Gemini.Key = "****"
	}
	if out.Anthropic.Key != "" {
		out.Anthropic.Key = "****"
	}
	return out
}
