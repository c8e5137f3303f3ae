package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	p := cfg.Planning
	if p.MaxDepth != 10 || p.CacheTTL() != time.Hour || p.StructureTTL != time.Hour {
		t.Errorf("Unexpected depth/ttl defaults: %+v", p)
	}
	if p.InvalidationTimeout != 5*time.Second {
		t.Errorf("Unexpected invalidation timeout default: %s", p.InvalidationTimeout)
	}
	if p.SlotSearchDays != 90 || p.WorkerConcurrency != 4 {
		t.Errorf("Unexpected search/worker defaults: %+v", p)
	}
	if p.UrgentWindowDays != 3 || p.HighWindowDays != 7 || p.MediumWindowDays != 14 {
		t.Errorf("Unexpected priority windows: %d/%d/%d", p.UrgentWindowDays, p.HighWindowDays, p.MediumWindowDays)
	}
	if cfg.Server.Port != 8080 || cfg.Database.Host != "" || cfg.Redis.Host != "" {
		t.Errorf("Unexpected server/store defaults: %+v %+v %+v", cfg.Server, cfg.Database, cfg.Redis)
	}
}

func TestLoadFrom_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 9000
redis:
  host: cache.local
planning:
  max_depth: 6
  high_window_days: 5
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("PLANNING_WORKER_CONCURRENCY", "8")

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Expected env to override port, got %d", cfg.Server.Port)
	}
	if cfg.Redis.Addr() != "cache.local:6379" {
		t.Errorf("Expected cache.local:6379, got %s", cfg.Redis.Addr())
	}
	if cfg.Planning.MaxDepth != 6 || cfg.Planning.HighWindowDays != 5 || cfg.Planning.WorkerConcurrency != 8 {
		t.Errorf("Unexpected planning config: %+v", cfg.Planning)
	}
}

func TestPlanningConfig_Validate(t *testing.T) {
	valid := PlanningConfig{MaxDepth: 10, WorkerConcurrency: 4, SlotSearchDays: 90, UrgentWindowDays: 3, HighWindowDays: 7, MediumWindowDays: 14}

	tests := []struct {
		name    string
		mutate  func(c *PlanningConfig)
		wantErr bool
	}{
		{"valid", func(c *PlanningConfig) {}, false},
		{"zero depth", func(c *PlanningConfig) { c.MaxDepth = 0 }, true},
		{"no workers", func(c *PlanningConfig) { c.WorkerConcurrency = 0 }, true},
		{"no search window", func(c *PlanningConfig) { c.SlotSearchDays = 0 }, true},
		{"windows out of order", func(c *PlanningConfig) { c.HighWindowDays = 20 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
