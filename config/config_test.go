package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	vars := []string{
		"CHEFMARKET_SERVER_PORT",
		"CHEFMARKET_SERVER_ENVIRONMENT",
		"CHEFMARKET_SERVER_ALLOWED_ORIGINS",
		"CHEFMARKET_SERVER_LOG_LEVEL",
		"CHEFMARKET_DATABASE_PATH",
		"CHEFMARKET_CACHE_TYPE",
		"CHEFMARKET_CACHE_REDIS_URL",
		"CHEFMARKET_CACHE_CODEC",
		"CHEFMARKET_CACHE_COMPARISON_TTL",
		"CHEFMARKET_SCRAPER_MAX_CONCURRENCY",
		"CHEFMARKET_SCRAPER_FRESHNESS_WINDOW",
		"CHEFMARKET_SCRAPER_REQUESTS_PER_SECOND",
		"CHEFMARKET_SCRAPER_BREAKER_FAILURES",
		"CHEFMARKET_RATELIMIT_PER_IP",
	}
	cleanupEnv := func() {
		for _, name := range vars {
			os.Unsetenv(name)
		}
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
			t.Errorf("Server.AllowedOrigins = %v, want [http://localhost:3000]", cfg.Server.AllowedOrigins)
		}
		if cfg.Database.Path != "chefmarket.db" {
			t.Errorf("Database.Path = %s, want chefmarket.db", cfg.Database.Path)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379/0" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379/0", cfg.Cache.RedisURL)
		}
		if cfg.Cache.Codec != "json" {
			t.Errorf("Cache.Codec = %s, want json", cfg.Cache.Codec)
		}
		if cfg.Cache.DefaultTTL != 5*time.Minute {
			t.Errorf("Cache.DefaultTTL = %v, want 5m", cfg.Cache.DefaultTTL)
		}
		if cfg.Cache.OpTimeout != 2*time.Second {
			t.Errorf("Cache.OpTimeout = %v, want 2s", cfg.Cache.OpTimeout)
		}
		if cfg.Cache.ComparisonTTL != 10*time.Minute {
			t.Errorf("Cache.ComparisonTTL = %v, want 10m", cfg.Cache.ComparisonTTL)
		}
		if cfg.Scraper.Timeout != 15*time.Second {
			t.Errorf("Scraper.Timeout = %v, want 15s", cfg.Scraper.Timeout)
		}
		if cfg.Scraper.MaxConcurrency != 4 {
			t.Errorf("Scraper.MaxConcurrency = %d, want 4", cfg.Scraper.MaxConcurrency)
		}
		if cfg.Scraper.FreshnessWindow != 24*time.Hour {
			t.Errorf("Scraper.FreshnessWindow = %v, want 24h", cfg.Scraper.FreshnessWindow)
		}
		if cfg.Scraper.BreakerFailures != 3 {
			t.Errorf("Scraper.BreakerFailures = %d, want 3", cfg.Scraper.BreakerFailures)
		}
		if cfg.Scraper.BreakerCooldown != 2*time.Minute {
			t.Errorf("Scraper.BreakerCooldown = %v, want 2m", cfg.Scraper.BreakerCooldown)
		}
		if cfg.Scraper.MaxBodyBytes != 2<<20 {
			t.Errorf("Scraper.MaxBodyBytes = %d, want %d", cfg.Scraper.MaxBodyBytes, 2<<20)
		}
		if cfg.Scraper.DefaultCurrency != "USD" {
			t.Errorf("Scraper.DefaultCurrency = %s, want USD", cfg.Scraper.DefaultCurrency)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("CHEFMARKET_SERVER_PORT", "9090")
		os.Setenv("CHEFMARKET_SERVER_ENVIRONMENT", "production")
		os.Setenv("CHEFMARKET_SERVER_ALLOWED_ORIGINS", "https://chefmarket.example, http://localhost:5173")
		os.Setenv("CHEFMARKET_DATABASE_PATH", ":memory:")
		os.Setenv("CHEFMARKET_CACHE_TYPE", "memory")
		os.Setenv("CHEFMARKET_CACHE_CODEC", "msgpack")
		os.Setenv("CHEFMARKET_CACHE_COMPARISON_TTL", "30m")
		os.Setenv("CHEFMARKET_SCRAPER_MAX_CONCURRENCY", "8")
		os.Setenv("CHEFMARKET_SCRAPER_FRESHNESS_WINDOW", "6h")
		os.Setenv("CHEFMARKET_SCRAPER_REQUESTS_PER_SECOND", "2.5")
		os.Setenv("CHEFMARKET_SCRAPER_BREAKER_FAILURES", "5")
		os.Setenv("CHEFMARKET_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if strings.Join(cfg.Server.AllowedOrigins, "|") != "https://chefmarket.example|http://localhost:5173" {
			t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
		}
		if cfg.Database.Path != ":memory:" {
			t.Errorf("Database.Path = %s, want :memory:", cfg.Database.Path)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.Codec != "msgpack" {
			t.Errorf("Cache.Codec = %s, want msgpack", cfg.Cache.Codec)
		}
		if cfg.Cache.ComparisonTTL != 30*time.Minute {
			t.Errorf("Cache.ComparisonTTL = %v, want 30m", cfg.Cache.ComparisonTTL)
		}
		if cfg.Scraper.MaxConcurrency != 8 {
			t.Errorf("Scraper.MaxConcurrency = %d, want 8", cfg.Scraper.MaxConcurrency)
		}
		if cfg.Scraper.FreshnessWindow != 6*time.Hour {
			t.Errorf("Scraper.FreshnessWindow = %v, want 6h", cfg.Scraper.FreshnessWindow)
		}
		if cfg.Scraper.RequestsPerSecond != 2.5 {
			t.Errorf("Scraper.RequestsPerSecond = %v, want 2.5", cfg.Scraper.RequestsPerSecond)
		}
		if cfg.Scraper.BreakerFailures != 5 {
			t.Errorf("Scraper.BreakerFailures = %d, want 5", cfg.Scraper.BreakerFailures)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("CHEFMARKET_CACHE_TYPE", "invalid")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation for unknown codec", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("CHEFMARKET_CACHE_CODEC", "xml")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for unknown codec")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: ") {
			t.Errorf("Load() error = %v, want an invalid configuration error", err)
		}
	})

	t.Run("fails validation for non-positive concurrency", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("CHEFMARKET_SCRAPER_MAX_CONCURRENCY", "0")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for zero concurrency")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		envContent := `
# Comment line
TEST_VAR_1=value1
   # indented comment

TEST_VAR_2="quoted value"
# TEST_COMMENTED=should_not_load
NOT_A_PAIR
`
		if err := os.WriteFile(".env", []byte(envContent), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_COMMENTED")
		defer func() {
			os.Unsetenv("TEST_VAR_1")
			os.Unsetenv("TEST_VAR_2")
		}()

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "quoted value" {
			t.Errorf("TEST_VAR_2 = %s, want quoted value", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)
		os.Chdir(t.TempDir())

		os.Setenv("TEST_OVERRIDE", "existing-value")
		defer os.Unsetenv("TEST_OVERRIDE")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Path: "chefmarket.db"},
			Cache:    CacheConfig{Type: "memory", Codec: "json"},
			Scraper: ScraperConfig{
				Timeout:         time.Second,
				MaxConcurrency:  1,
				FreshnessWindow: time.Hour,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid memory config", mutate: func(*Config) {}},
		{name: "redis with URL", mutate: func(c *Config) {
			c.Cache.Type = "redis"
			c.Cache.RedisURL = "redis://localhost:6379"
		}},
		{name: "redis without URL", mutate: func(c *Config) { c.Cache.Type = "redis" }, wantErr: true},
		{name: "invalid cache type", mutate: func(c *Config) { c.Cache.Type = "memcached" }, wantErr: true},
		{name: "unknown codec", mutate: func(c *Config) { c.Cache.Codec = "gob" }, wantErr: true},
		{name: "empty database path", mutate: func(c *Config) { c.Database.Path = " " }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Scraper.Timeout = 0 }, wantErr: true},
		{name: "negative freshness window", mutate: func(c *Config) { c.Scraper.FreshnessWindow = -time.Hour }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
