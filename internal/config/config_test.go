package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
redis:
  cluster:
    seedServers:
      - 10.0.0.1
      - 10.0.0.2
    serverPort: 7000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Refresh.TimeoutSeconds != 5 {
		t.Errorf("refresh.timeout default = %d, want 5", cfg.Refresh.TimeoutSeconds)
	}
	if cfg.Batch.PeriodSeconds != 5 {
		t.Errorf("batch.period default = %d, want 5", cfg.Batch.PeriodSeconds)
	}
	if cfg.Reshard.IntervalSeconds != 60 {
		t.Errorf("reshard.interval default = %d, want 60", cfg.Reshard.IntervalSeconds)
	}
	if cfg.Reshard.TimeoutSeconds != 300 {
		t.Errorf("reshard.timeout default = %d, want 300", cfg.Reshard.TimeoutSeconds)
	}
	if cfg.Reshard.MigrateSlotTimeoutSeconds != 60 {
		t.Errorf("reshard.migrate.slot.timeout default = %d, want 60", cfg.Reshard.MigrateSlotTimeoutSeconds)
	}
	if cfg.Redis.Cluster.RefreshInterval != 60 {
		t.Errorf("redis.cluster.refreshInterval default = %d, want 60", cfg.Redis.Cluster.RefreshInterval)
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
refresh:
  timeout: 9
batch:
  period: 12
reshard:
  interval: 90
  timeout: 400
  migrateSlotTimeout: 45
redis:
  cluster:
    seedServers: [10.0.0.1:7000]
    serverPort: 7000
    refreshInterval: 30
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshTimeout().Seconds() != 9 {
		t.Errorf("RefreshTimeout = %v, want 9s", cfg.RefreshTimeout())
	}
	if cfg.BatchPeriod().Seconds() != 12 {
		t.Errorf("BatchPeriod = %v, want 12s", cfg.BatchPeriod())
	}
	if cfg.ReshardInterval().Seconds() != 90 {
		t.Errorf("ReshardInterval = %v, want 90s", cfg.ReshardInterval())
	}
	if cfg.ReshardTimeout().Seconds() != 400 {
		t.Errorf("ReshardTimeout = %v, want 400s", cfg.ReshardTimeout())
	}
	if cfg.MigrateSlotTimeout().Seconds() != 45 {
		t.Errorf("MigrateSlotTimeout = %v, want 45s", cfg.MigrateSlotTimeout())
	}
	if cfg.ClusterRefreshInterval().Minutes() != 30 {
		t.Errorf("ClusterRefreshInterval = %v, want 30m", cfg.ClusterRefreshInterval())
	}
}

func TestLoadRejectsMissingSeeds(t *testing.T) {
	path := writeConfig(t, `
redis:
  cluster:
    serverPort: 7000
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing seedServers")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
