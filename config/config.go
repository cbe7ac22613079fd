package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Store     StoreConfig     `mapstructure:"store"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Batch     BatchConfig     `mapstructure:"batch"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GeminiConfig holds vision model configuration
type GeminiConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	Models         []string      `mapstructure:"models"`
	DailyLimit     int           `mapstructure:"daily_limit"`
	Timeout        time.Duration `mapstructure:"timeout"`
	ScreenshotsDir string        `mapstructure:"screenshots_dir"`
}

// StoreConfig holds price history storage configuration
type StoreConfig struct {
	Driver    string        `mapstructure:"driver"` // "memory" or "sqlite"
	Path      string        `mapstructure:"path"`
	Retention time.Duration `mapstructure:"retention"`
}

// EngineConfig holds extraction processing configuration
type EngineConfig struct {
	MaxTextLength     int     `mapstructure:"max_text_length"`
	DiscountTolerance float64 `mapstructure:"discount_tolerance"`
}

// BatchConfig holds batch extraction configuration
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	Delay       time.Duration `mapstructure:"delay"`
	SoftRetries int           `mapstructure:"soft_retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP     int `mapstructure:"per_ip"`     // requests per minute per client IP
	GeminiRPM int `mapstructure:"gemini_rpm"` // requests per minute to the vision API
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricespy/")

	// Environment variable settings: PRICESPY_STORE_DRIVER -> store.driver
	v.SetEnvPrefix("PRICESPY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Comma-separated env values arrive as a single element
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	config.Gemini.Models = splitList(config.Gemini.Models)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads KEY=value pairs from ./.env into the process
// environment. Variables that are already set are left alone.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return gotenv.Load(".env")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta/models")
	v.SetDefault("gemini.models", []string{"gemini-2.5-flash", "gemini-2.5-flash-lite", "gemini-2.0-flash"})
	v.SetDefault("gemini.daily_limit", 0)
	v.SetDefault("gemini.timeout", "60s")
	v.SetDefault("gemini.screenshots_dir", "screenshots")

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "pricespy.db")
	v.SetDefault("store.retention", "0s")

	// Engine defaults
	v.SetDefault("engine.max_text_length", 500)
	v.SetDefault("engine.discount_tolerance", 0.01)

	// Batch defaults
	v.SetDefault("batch.concurrency", 10)
	v.SetDefault("batch.delay", "5s")
	v.SetDefault("batch.soft_retries", 2)
	v.SetDefault("batch.retry_delay", "5s")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.gemini_rpm", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration. The Gemini API key is checked by
// RequireGemini since only the extraction commands call the model.
func validate(config *Config) error {
	if config.Store.Driver != "memory" && config.Store.Driver != "sqlite" {
		return fmt.Errorf("store driver must be 'memory' or 'sqlite', got: %s", config.Store.Driver)
	}

	if config.Store.Driver == "sqlite" && config.Store.Path == "" {
		return fmt.Errorf("store path is required when store driver is 'sqlite'")
	}

	if config.Engine.MaxTextLength <= 0 {
		return fmt.Errorf("engine max_text_length must be positive, got: %d", config.Engine.MaxTextLength)
	}

	if config.Engine.DiscountTolerance <= 0 || config.Engine.DiscountTolerance >= 1 {
		return fmt.Errorf("engine discount_tolerance must be between 0 and 1, got: %g", config.Engine.DiscountTolerance)
	}

	if config.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch concurrency must be positive, got: %d", config.Batch.Concurrency)
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	return nil
}

// RequireGemini checks the settings needed to call the vision model
func (c *Config) RequireGemini() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("Gemini API key is required (set PRICESPY_GEMINI_API_KEY)")
	}
	if len(c.Gemini.Models) == 0 {
		return fmt.Errorf("at least one Gemini model is required")
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
		return fmt.Errorf("parse log level: %w", err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
