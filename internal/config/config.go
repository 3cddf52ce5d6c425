package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// SyncConfig holds the reconciliation settings for the managed zone.
type SyncConfig struct {
	// Zone is the DNS zone this instance is responsible for. Hostnames
	// outside this suffix are ignored. Required.
	Zone string `yaml:"zone"`
	// OwnerID distinguishes this instance's ownership markers from other
	// deployments sharing the zone.
	OwnerID string `yaml:"owner_id"`

	Interval        time.Duration `yaml:"-"`
	Debounce        time.Duration `yaml:"-"`
	BackoffCooldown time.Duration `yaml:"-"`

	// MaxConcurrent bounds simultaneous provider calls during apply.
	MaxConcurrent int `yaml:"max_concurrent"`
	// RetryAttempts is the per-operation attempt ceiling for transient errors.
	RetryAttempts int `yaml:"retry_attempts"`
	// FailureThreshold is the consecutive-cycle-failure count that moves
	// the loop into backoff.
	FailureThreshold int `yaml:"failure_threshold"`

	// Raw duration strings, parsed into the fields above.
	RawInterval        string `yaml:"interval"`
	RawDebounce        string `yaml:"debounce"`
	RawBackoffCooldown string `yaml:"backoff_cooldown"`
}

// LoadSyncConfig reads the sync configuration from the path specified by
// the ZONE_SYNC_PATH environment variable, defaulting to
// "configs/zone-sync.yaml".
func LoadSyncConfig() (*SyncConfig, error) {
	path := os.Getenv("ZONE_SYNC_PATH")
	if path == "" {
		path = "configs/zone-sync.yaml"
	}
	return LoadSyncConfigFromPath(path)
}

// LoadSyncConfigFromPath reads the sync configuration from the given file path.
func LoadSyncConfigFromPath(path string) (*SyncConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sync config file: %w", err)
	}

	var cfg SyncConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing sync config file: %w", err)
	}

	if cfg.Zone == "" {
		return nil, fmt.Errorf("sync config: missing required field 'zone'")
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *SyncConfig) applyDefaults() error {
	if cfg.OwnerID == "" {
		cfg.OwnerID = "default"
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 4
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}

	var err error
	if cfg.Interval, err = parseDuration(cfg.RawInterval, time.Minute); err != nil {
		return fmt.Errorf("sync config: invalid interval: %w", err)
	}
	if cfg.Debounce, err = parseDuration(cfg.RawDebounce, 5*time.Second); err != nil {
		return fmt.Errorf("sync config: invalid debounce: %w", err)
	}
	if cfg.BackoffCooldown, err = parseDuration(cfg.RawBackoffCooldown, 2*time.Minute); err != nil {
		return fmt.Errorf("sync config: invalid backoff_cooldown: %w", err)
	}
	return nil
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	return time.ParseDuration(raw)
}
