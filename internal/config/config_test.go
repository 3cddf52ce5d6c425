package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zone-sync.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSyncConfig(t *testing.T) {
	path := writeConfig(t, `zone: example.com
owner_id: prod-1
interval: 30s
debounce: 2s
backoff_cooldown: 1m
max_concurrent: 8
retry_attempts: 3
failure_threshold: 10
`)

	cfg, err := LoadSyncConfigFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Zone != "example.com" {
		t.Errorf("expected zone 'example.com', got %q", cfg.Zone)
	}
	if cfg.OwnerID != "prod-1" {
		t.Errorf("expected owner 'prod-1', got %q", cfg.OwnerID)
	}
	if cfg.Interval != 30*time.Second {
		t.Errorf("expected interval 30s, got %v", cfg.Interval)
	}
	if cfg.Debounce != 2*time.Second {
		t.Errorf("expected debounce 2s, got %v", cfg.Debounce)
	}
	if cfg.BackoffCooldown != time.Minute {
		t.Errorf("expected cooldown 1m, got %v", cfg.BackoffCooldown)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("expected max_concurrent 8, got %d", cfg.MaxConcurrent)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("expected retry_attempts 3, got %d", cfg.RetryAttempts)
	}
	if cfg.FailureThreshold != 10 {
		t.Errorf("expected failure_threshold 10, got %d", cfg.FailureThreshold)
	}
}

func TestLoadSyncConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "zone: example.com\n")

	cfg, err := LoadSyncConfigFromPath(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.OwnerID != "default" {
		t.Errorf("expected default owner 'default', got %q", cfg.OwnerID)
	}
	if cfg.Interval != time.Minute {
		t.Errorf("expected default interval 1m, got %v", cfg.Interval)
	}
	if cfg.Debounce != 5*time.Second {
		t.Errorf("expected default debounce 5s, got %v", cfg.Debounce)
	}
	if cfg.BackoffCooldown != 2*time.Minute {
		t.Errorf("expected default cooldown 2m, got %v", cfg.BackoffCooldown)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("expected default max_concurrent 4, got %d", cfg.MaxConcurrent)
	}
	if cfg.RetryAttempts != 4 {
		t.Errorf("expected default retry_attempts 4, got %d", cfg.RetryAttempts)
	}
	if cfg.FailureThreshold != 5 {
		t.Errorf("expected default failure_threshold 5, got %d", cfg.FailureThreshold)
	}
}

func TestLoadSyncConfig_MissingZone(t *testing.T) {
	path := writeConfig(t, "owner_id: prod-1\n")

	_, err := LoadSyncConfigFromPath(path)
	if err == nil {
		t.Fatal("expected error for missing zone, got nil")
	}
}

func TestLoadSyncConfig_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "zone: example.com\ninterval: often\n")

	_, err := LoadSyncConfigFromPath(path)
	if err == nil {
		t.Fatal("expected error for invalid interval, got nil")
	}
}

func TestLoadSyncConfig_MissingFile(t *testing.T) {
	_, err := LoadSyncConfigFromPath("/nonexistent/path/zone-sync.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
