package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Operations OperationsConfig `mapstructure:"operations"`
	UI         UIConfig         `mapstructure:"ui"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// OperationsConfig tunes the orchestration layer
type OperationsConfig struct {
	// Timeout bounds one brew invocation; the subprocess is killed past it
	Timeout time.Duration `mapstructure:"timeout"`
	// InfoTimeout bounds one detail lookup (they should be fast)
	InfoTimeout time.Duration `mapstructure:"info_timeout"`
	// MaxInfoLoads caps concurrent detail lookups; more are queued
	MaxInfoLoads int `mapstructure:"max_info_loads"`
	// MaxAuthRetries gives up on a privileged operation after this many
	// rejected passwords; 0 means keep asking
	MaxAuthRetries int `mapstructure:"max_auth_retries"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	// LogLines bounds the rolling status log shown in the log tab
	LogLines int `mapstructure:"log_lines"`
}

// CacheConfig holds the package-info cache configuration
type CacheConfig struct {
	// Dir is the bbolt cache directory; empty disables persistence
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Operations: OperationsConfig{
			Timeout:        10 * time.Minute,
			InfoTimeout:    10 * time.Second,
			MaxInfoLoads:   15,
			MaxAuthRetries: 0,
		},
		UI: UIConfig{
			LogLines: 500,
		},
		Cache: CacheConfig{
			Dir: defaultCachePath(),
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "brewdeck", "brewdeck.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "brewdeck", "brewdeck.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "brewdeck")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "brewdeck")
	}
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "brewdeck", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "brewdeck", "cache")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("BREWDECK")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// First run: seed a starter config so the tunables are
		// discoverable. Failure here is not fatal.
		_ = SaveConfig(cfg)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("operations.timeout", cfg.Operations.Timeout)
	viper.Set("operations.info_timeout", cfg.Operations.InfoTimeout)
	viper.Set("operations.max_info_loads", cfg.Operations.MaxInfoLoads)
	viper.Set("operations.max_auth_retries", cfg.Operations.MaxAuthRetries)
	viper.Set("ui.log_lines", cfg.UI.LogLines)
	viper.Set("cache.dir", cfg.Cache.Dir)
	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
