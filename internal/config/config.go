// Package config loads application configuration from file and environment
// and owns global logger initialization.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Optimizer OptimizerConfig `yaml:"optimizer" mapstructure:"optimizer"`
	Documents DocumentsConfig `yaml:"documents" mapstructure:"documents"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key          string  `yaml:"key" mapstructure:"key"`
	HaikuModel   string  `yaml:"haiku_model" mapstructure:"haiku_model"`
	SonnetModel  string  `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	OpusModel    string  `yaml:"opus_model" mapstructure:"opus_model"`
	RequestsPerS float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// OptimizerConfig holds the optimization-run defaults. Per-run flags
// override these.
type OptimizerConfig struct {
	MaxDocs               int     `yaml:"max_docs" mapstructure:"max_docs"`
	MaxIterations         int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	TargetAccuracy        float64 `yaml:"target_accuracy" mapstructure:"target_accuracy"`
	HoldoutRatio          float64 `yaml:"holdout_ratio" mapstructure:"holdout_ratio"`
	HoldoutThreshold      float64 `yaml:"holdout_threshold" mapstructure:"holdout_threshold"`
	Deterministic         bool    `yaml:"deterministic" mapstructure:"deterministic"`
	FieldConcurrency      int     `yaml:"field_concurrency" mapstructure:"field_concurrency"`
	ExtractionConcurrency int     `yaml:"extraction_concurrency" mapstructure:"extraction_concurrency"`
	AnalysisIterations    int     `yaml:"analysis_iterations" mapstructure:"analysis_iterations"`
	RepairAttempts        int     `yaml:"repair_attempts" mapstructure:"repair_attempts"`
}

// DocumentsConfig configures where document text is read from.
type DocumentsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API server.
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
	v.SetEnvPrefix("OPTIMIZER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "optimizer.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.opus_model", "claude-opus-4-6")
	v.SetDefault("anthropic.requests_per_sec", 5)
	v.SetDefault("optimizer.max_docs", 10)
	v.SetDefault("optimizer.max_iterations", 5)
	v.SetDefault("optimizer.target_accuracy", 1.0)
	v.SetDefault("optimizer.holdout_ratio", 0.2)
	v.SetDefault("optimizer.holdout_threshold", 0.8)
	v.SetDefault("optimizer.field_concurrency", 3)
	v.SetDefault("optimizer.extraction_concurrency", 5)
	v.SetDefault("optimizer.analysis_iterations", 2)
	v.SetDefault("optimizer.repair_attempts", 2)
	v.SetDefault("documents.dir", "documents")

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

// Validate checks that the configuration is usable for the given mode.
// Collected problems are reported together so a misconfigured run fails once
// with the full list.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "optimize":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Optimizer.MaxDocs < 1 || c.Optimizer.MaxDocs > 100 {
			problems = append(problems, "optimizer.max_docs must be between 1 and 100")
		}
		if c.Optimizer.MaxIterations < 1 || c.Optimizer.MaxIterations > 20 {
			problems = append(problems, "optimizer.max_iterations must be between 1 and 20")
		}
		if c.Optimizer.TargetAccuracy <= 0 || c.Optimizer.TargetAccuracy > 1 {
			problems = append(problems, "optimizer.target_accuracy must be in (0, 1]")
		}
		if c.Optimizer.HoldoutRatio < 0 || c.Optimizer.HoldoutRatio >= 1 {
			problems = append(problems, "optimizer.holdout_ratio must be in [0, 1)")
		}
		if c.Optimizer.FieldConcurrency < 1 || c.Optimizer.FieldConcurrency > 20 {
			problems = append(problems, "optimizer.field_concurrency must be between 1 and 20")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "runs":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
