package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the companion app
type Config struct {
	// Backend configuration
	Backend BackendConfig `mapstructure:"backend"`

	// Chat configuration
	Chat ChatConfig `mapstructure:"chat"`

	// Diagnostics configuration
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
}

// BackendConfig holds clinic backend configuration
type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	DoctorID       string `mapstructure:"doctor_id"`
}

// ChatConfig holds chat session configuration
type ChatConfig struct {
	Greeting string `mapstructure:"greeting"`
}

// DiagnosticsConfig holds the local health/metrics endpoint configuration
type DiagnosticsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPath string `mapstructure:"metrics_path"`
	HealthPath  string `mapstructure:"health_path"`
}

// DefaultGreeting seeds an empty transcript as the sole assistant turn.
const DefaultGreeting = "👋 Hello! Dr. AI here.\n\nReady to analyze reports or answer medical questions."

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	// A local .env is optional; env vars win either way.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/eparchi")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvPrefix("EPARCHI")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Backend defaults
	viper.SetDefault("backend.base_url", "http://localhost:8000")
	viper.SetDefault("backend.request_timeout", 15)
	viper.SetDefault("backend.doctor_id", "dr_hackathon")

	// Chat defaults
	viper.SetDefault("chat.greeting", DefaultGreeting)

	// Diagnostics defaults
	viper.SetDefault("diagnostics.enabled", false)
	viper.SetDefault("diagnostics.host", "127.0.0.1")
	viper.SetDefault("diagnostics.port", 9190)
	viper.SetDefault("diagnostics.metrics_path", "/metrics")
	viper.SetDefault("diagnostics.health_path", "/healthz")

	// Logging defaults
	viper.SetDefault("log_level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if strings.HasSuffix(config.Backend.BaseURL, "/") {
		config.Backend.BaseURL = strings.TrimRight(config.Backend.BaseURL, "/")
	}
	if config.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be positive")
	}
	if config.Backend.DoctorID == "" {
		return fmt.Errorf("backend.doctor_id is required")
	}
	if config.Diagnostics.Enabled && (config.Diagnostics.Port <= 0 || config.Diagnostics.Port > 65535) {
		return fmt.Errorf("diagnostics.port must be a valid port number")
	}
	return nil
}
