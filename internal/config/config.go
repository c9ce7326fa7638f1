package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName                string        `mapstructure:"app_name"`
	Env                    string        `mapstructure:"app_env"`
	LogLevel               string        `mapstructure:"log_level"`
	TargetsFile            string        `mapstructure:"targets_file"`
	PublishersFile         string        `mapstructure:"publishers_file"`
	RefetchIntervalSeconds int64         `mapstructure:"refetch_interval"`
	RefetchInterval        time.Duration `mapstructure:"-"`

	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	DefaultDebounceMs     int64         `mapstructure:"default_debounce_ms"`
	DefaultThrottleMs     int64         `mapstructure:"default_throttle_ms"`
	DefaultDebounce       time.Duration `mapstructure:"-"`
	DefaultThrottle       time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "reqwatch")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("targets_file", "./configs/targets.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("refetch_interval", 60) // seconds
	v.SetDefault("request_timeout_seconds", 15)
	v.SetDefault("default_debounce_ms", 0)
	v.SetDefault("default_throttle_ms", 0)
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/digests.db")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates raw values and derives durations.
func (cfg *Config) normalize() error {
	if cfg.RefetchIntervalSeconds <= 0 {
		return fmt.Errorf("invalid refetch_interval (must be positive seconds)")
	}
	cfg.RefetchInterval = time.Duration(cfg.RefetchIntervalSeconds) * time.Second

	if cfg.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second

	if cfg.DefaultDebounceMs < 0 || cfg.DefaultThrottleMs < 0 {
		return fmt.Errorf("invalid default_debounce_ms/default_throttle_ms (must not be negative)")
	}
	cfg.DefaultDebounce = time.Duration(cfg.DefaultDebounceMs) * time.Millisecond
	cfg.DefaultThrottle = time.Duration(cfg.DefaultThrottleMs) * time.Millisecond

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
