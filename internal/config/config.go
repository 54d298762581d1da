// Package config loads the engine configuration from YAML with sane defaults
// for everything left unset.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carworth/carworth/internal/domain"
)

// Config is the root configuration document.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Cache     CacheConfig     `yaml:"cache"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Shift     ShiftConfig     `yaml:"shift"`
	Database  DatabaseConfig  `yaml:"database"`
	Plans     PlansConfig     `yaml:"plans"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ProviderConfig tunes the rate-limited external client.
type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	APIKeys     []string      `yaml:"api_keys"`
}

// CacheConfig selects and tunes the cache store.
type CacheConfig struct {
	RedisAddr       string        `yaml:"redis_addr"` // empty means in-memory
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// SchedulerConfig tunes the batch refresh driver.
type SchedulerConfig struct {
	BatchSize         int           `yaml:"batch_size"`
	Workers           int           `yaml:"workers"`
	RunInterval       time.Duration `yaml:"run_interval"`
	RunWindow         time.Duration `yaml:"run_window"`
	ShiftThresholdPct float64       `yaml:"shift_threshold_pct"`
}

// ShiftConfig tunes the market-shift detector.
type ShiftConfig struct {
	ThresholdPct float64       `yaml:"threshold_pct"`
	Lifetime     time.Duration `yaml:"lifetime"`
	RefreshCap   int           `yaml:"refresh_cap"`
}

// DatabaseConfig points at the optional Postgres store.
type DatabaseConfig struct {
	DSN     string        `yaml:"dsn"` // empty means in-memory stores
	Timeout time.Duration `yaml:"timeout"`
}

// PlansConfig holds the per-plan resource envelopes.
type PlansConfig struct {
	Free domain.PlanLimits `yaml:"free"`
	Pro  domain.PlanLimits `yaml:"pro"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Provider: ProviderConfig{
			RPS:         4,
			Burst:       4,
			MaxRetries:  3,
			BaseBackoff: 200 * time.Millisecond,
		},
		Cache: CacheConfig{CleanupInterval: 5 * time.Minute},
		Scheduler: SchedulerConfig{
			BatchSize:         100,
			Workers:           4,
			RunInterval:       time.Hour,
			RunWindow:         30 * time.Minute,
			ShiftThresholdPct: 1.5,
		},
		Shift: ShiftConfig{
			ThresholdPct: 1.5,
			Lifetime:     7 * 24 * time.Hour,
			RefreshCap:   50,
		},
		Database: DatabaseConfig{Timeout: 5 * time.Second},
		Plans: PlansConfig{
			Free: domain.PlanLimits{
				MaxVehicles:               2,
				DailyRefreshSlots:         0,
				ManualRefreshIntervalDays: 7,
			},
			Pro: domain.PlanLimits{
				MaxVehicles:               25,
				DailyRefreshSlots:         10,
				ManualRefreshIntervalDays: 1,
			},
		},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
