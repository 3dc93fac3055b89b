package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Scraper   ScraperConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	LogLevel       string   `mapstructure:"log_level"`
}

// DatabaseConfig holds SQLite configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // ":memory:" for a throwaway database
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type          string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL      string        `mapstructure:"redis_url"`
	KeyPrefix     string        `mapstructure:"key_prefix"`
	Codec         string        `mapstructure:"codec"` // "json" or "msgpack"
	DefaultTTL    time.Duration `mapstructure:"default_ttl"`
	OpTimeout     time.Duration `mapstructure:"op_timeout"`
	SourceTTL     time.Duration `mapstructure:"source_ttl"`
	ComparisonTTL time.Duration `mapstructure:"comparison_ttl"`
}

// ScraperConfig holds outbound scraping configuration
type ScraperConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	MaxConcurrency    int           `mapstructure:"max_concurrency"`
	FreshnessWindow   time.Duration `mapstructure:"freshness_window"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	DefaultCurrency   string        `mapstructure:"default_currency"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
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
	v.AddConfigPath("/etc/chefmarket/")

	// Environment variable settings
	v.SetEnvPrefix("CHEFMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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

	// allowed_origins from the environment arrives as one comma separated string
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.log_level", "info")

	// Database defaults
	v.SetDefault("database.path", "chefmarket.db")

	// Cache defaults
	v.SetDefault("cache.type", "redis")
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.key_prefix", "")
	v.SetDefault("cache.codec", "json")
	v.SetDefault("cache.default_ttl", "5m")
	v.SetDefault("cache.op_timeout", "2s")
	v.SetDefault("cache.source_ttl", "10m")
	v.SetDefault("cache.comparison_ttl", "10m")

	// Scraper defaults
	v.SetDefault("scraper.timeout", "15s")
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.max_concurrency", 4)
	v.SetDefault("scraper.freshness_window", "24h")
	v.SetDefault("scraper.requests_per_second", 1.0)
	v.SetDefault("scraper.burst", 2)
	v.SetDefault("scraper.default_currency", "USD")
	v.SetDefault("scraper.breaker_failures", 3)
	v.SetDefault("scraper.breaker_cooldown", "2m")
	v.SetDefault("scraper.max_body_bytes", 2<<20)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis' (set CHEFMARKET_CACHE_REDIS_URL)")
	}

	if config.Cache.Codec != "json" && config.Cache.Codec != "msgpack" {
		return fmt.Errorf("cache codec must be 'json' or 'msgpack', got: %s", config.Cache.Codec)
	}

	if strings.TrimSpace(config.Database.Path) == "" {
		return fmt.Errorf("database path is required (set CHEFMARKET_DATABASE_PATH)")
	}

	if config.Scraper.MaxConcurrency <= 0 {
		return fmt.Errorf("scraper max_concurrency must be positive, got: %d", config.Scraper.MaxConcurrency)
	}

	if config.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper timeout must be positive, got: %s", config.Scraper.Timeout)
	}

	if config.Scraper.FreshnessWindow <= 0 {
		return fmt.Errorf("scraper freshness_window must be positive, got: %s", config.Scraper.FreshnessWindow)
	}

	return nil
}

func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// loadEnvFile reads KEY=VALUE lines from ./.env into the process environment.
// Variables that are already set win over the file.
func loadEnvFile() error {
	file, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}
