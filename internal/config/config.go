package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
)

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     executor.Config `mapstructure:"store"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Local     LocalConfig     `mapstructure:"local"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// RateLimitConfig configures the per-IP request limit applied by the
// middleware chain.
type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

// LocalConfig configures the in-process fallback cache.
type LocalConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// LoadConfig loads configuration from config files and environment variables.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/learnflow")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("LF")

	// The store credentials are the two values that gate the whole layer;
	// bind both the generic names and the ones the hosted store exports.
	viper.BindEnv("store.rest_url", "STORE_REST_URL", "UPSTASH_REDIS_REST_URL")
	viper.BindEnv("store.rest_token", "STORE_REST_TOKEN", "UPSTASH_REDIS_REST_TOKEN")
	viper.BindEnv("rate_limit.max_requests", "LF_RATE_LIMIT_MAX_REQUESTS")
	viper.BindEnv("rate_limit.window", "LF_RATE_LIMIT_WINDOW")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; env and defaults cover everything.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Store defaults: empty means unconfigured, which keeps the layer in
	// fail-fast mode rather than guessing an endpoint.
	viper.SetDefault("store.rest_url", "")
	viper.SetDefault("store.rest_token", "")

	// Rate limit defaults
	viper.SetDefault("rate_limit.max_requests", 100)
	viper.SetDefault("rate_limit.window", "60s")

	// Local fallback cache defaults
	viper.SetDefault("local.enabled", true)
	viper.SetDefault("local.cleanup_interval", "1m")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "json")
	viper.SetDefault("logger.output_path", "stdout")
}

// GetAddress returns the full server listen address.
func (sc *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}
