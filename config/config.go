package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Enrichment EnrichmentConfig `mapstructure:"enrichment"`
	Search     SearchConfig     `mapstructure:"search"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	RefDB      RefDBConfig      `mapstructure:"refdb"`
	Store      StoreConfig      `mapstructure:"store"`
	Diary      DiaryConfig      `mapstructure:"diary"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// LLMConfig holds generative backend configuration
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"` // "openai" or "ollama"
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// EnrichmentConfig selects and tunes the enrichment strategy
type EnrichmentConfig struct {
	Strategy          string        `mapstructure:"strategy"` // "estimate" or "search"
	MaxCandidates     int           `mapstructure:"max_candidates"`
	SearchTimeout     time.Duration `mapstructure:"search_timeout"`
	SearchConcurrency int           `mapstructure:"search_concurrency"`
}

// SearchConfig holds food-facts search provider configuration
type SearchConfig struct {
	Provider      string              `mapstructure:"provider"` // "usda" or "openfoodfacts"
	USDA          USDAConfig          `mapstructure:"usda"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
}

// USDAConfig holds USDA API configuration
type USDAConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// OpenFoodFactsConfig holds Open Food Facts API configuration
type OpenFoodFactsConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

// PipelineConfig holds analysis pipeline configuration
type PipelineConfig struct {
	StageTimeout         time.Duration `mapstructure:"stage_timeout"`
	ConsistencyTolerance float64       `mapstructure:"consistency_tolerance"`
}

// RefDBConfig locates the reference nutrition table
type RefDBConfig struct {
	Path string `mapstructure:"path"`
}

// StoreConfig holds key-value store configuration
type StoreConfig struct {
	Type       string `mapstructure:"type"` // "memory", "redis" or "sqlite"
	RedisURL   string `mapstructure:"redis_url"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DiaryConfig holds day-log analysis retry configuration
type DiaryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
	Burst int `mapstructure:"burst"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Load loads configuration from the .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/foodlog/")

	// Environment variable settings: FOODLOG_SECTION_KEY
	v.SetEnvPrefix("FOODLOG")
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

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env if present. Variables already set in the
// environment are left untouched.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.timeout", "60s")

	// Enrichment defaults
	v.SetDefault("enrichment.strategy", "estimate")
	v.SetDefault("enrichment.max_candidates", 5)
	v.SetDefault("enrichment.search_timeout", "15s")
	v.SetDefault("enrichment.search_concurrency", 4)

	// Search defaults
	v.SetDefault("search.provider", "usda")
	v.SetDefault("search.usda.api_key", "")
	v.SetDefault("search.usda.base_url", "https://api.nal.usda.gov/fdc")
	v.SetDefault("search.openfoodfacts.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("search.openfoodfacts.user_agent", "")

	// Pipeline defaults
	v.SetDefault("pipeline.stage_timeout", "90s")
	v.SetDefault("pipeline.consistency_tolerance", 0.01)

	// Reference database defaults
	v.SetDefault("refdb.path", "data/foods.json")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.sqlite_path", "foodlog.db")

	// Diary defaults
	v.SetDefault("diary.max_attempts", 3)
	v.SetDefault("diary.retry_backoff", "1s")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
	v.SetDefault("ratelimit.burst", 10)
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.LLM.Provider {
	case "openai":
		if config.LLM.APIKey == "" {
			return fmt.Errorf("LLM API key is required (set FOODLOG_LLM_API_KEY)")
		}
	case "ollama":
	default:
		return fmt.Errorf("llm provider must be 'openai' or 'ollama', got: %s", config.LLM.Provider)
	}

	switch config.Enrichment.Strategy {
	case "estimate":
	case "search":
		switch config.Search.Provider {
		case "usda":
			if config.Search.USDA.APIKey == "" {
				return fmt.Errorf("USDA API key is required for the search strategy (set FOODLOG_SEARCH_USDA_API_KEY)")
			}
		case "openfoodfacts":
		default:
			return fmt.Errorf("search provider must be 'usda' or 'openfoodfacts', got: %s", config.Search.Provider)
		}
	default:
		return fmt.Errorf("enrichment strategy must be 'estimate' or 'search', got: %s", config.Enrichment.Strategy)
	}

	switch config.Store.Type {
	case "memory":
	case "redis":
		if config.Store.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when store type is 'redis'")
		}
	case "sqlite":
		if config.Store.SQLitePath == "" {
			return fmt.Errorf("SQLite path is required when store type is 'sqlite'")
		}
	default:
		return fmt.Errorf("store type must be 'memory', 'redis' or 'sqlite', got: %s", config.Store.Type)
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	if config.RefDB.Path == "" {
		return fmt.Errorf("reference database path is required")
	}

	if config.Pipeline.ConsistencyTolerance < 0 {
		return fmt.Errorf("consistency tolerance must not be negative")
	}

	if config.RateLimit.PerIP <= 0 || config.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit per_ip and burst must be positive")
	}

	return nil
}
