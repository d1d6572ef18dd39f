package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Scheduler.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.Scheduler.MaxAttempts)
	}
	if cfg.Scheduler.BackoffBase != 500*time.Millisecond {
		t.Errorf("BackoffBase = %v, want 500ms", cfg.Scheduler.BackoffBase)
	}
	if cfg.Scheduler.TaskTimeout != 60*time.Second {
		t.Errorf("TaskTimeout = %v, want 60s", cfg.Scheduler.TaskTimeout)
	}
	if cfg.Anthropic.DefaultConfidence != 0.8 {
		t.Errorf("DefaultConfidence = %v, want 0.8", cfg.Anthropic.DefaultConfidence)
	}
	if cfg.Planner.Mode != "template" {
		t.Errorf("Planner.Mode = %q, want template", cfg.Planner.Mode)
	}
	if len(cfg.Synthesis.RolePriority) != 5 || cfg.Synthesis.RolePriority[0] != "general" {
		t.Errorf("RolePriority = %v", cfg.Synthesis.RolePriority)
	}
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
anthropic:
  api_key: test-key
scheduler:
  max_attempts: 5
  task_timeout: 30s
planner:
  mode: planner
  worker: researcher
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Scheduler.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Scheduler.MaxAttempts)
	}
	if cfg.Scheduler.TaskTimeout != 30*time.Second {
		t.Errorf("TaskTimeout = %v, want 30s", cfg.Scheduler.TaskTimeout)
	}
	if cfg.Planner.Mode != "planner" || cfg.Planner.Worker != "researcher" {
		t.Errorf("Planner = %+v", cfg.Planner)
	}
	// Untouched sections keep their defaults.
	if cfg.Scheduler.BackoffBase != 500*time.Millisecond {
		t.Errorf("BackoffBase = %v, want default 500ms", cfg.Scheduler.BackoffBase)
	}
}

func TestLoadFromPathEnvExpansion(t *testing.T) {
	t.Setenv("QUORUM_TEST_KEY", "expanded-key")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("anthropic:\n  api_key: ${QUORUM_TEST_KEY}\n"), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Anthropic.APIKey != "expanded-key" {
		t.Errorf("APIKey = %q, want expanded-key", cfg.Anthropic.APIKey)
	}
}

func TestLoadWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "workers.yaml")
	content := `
workers:
  - key: fast
    name: Fast Worker
    role: general
    model: claude-haiku-4
    temperature: 0.5
  - key: deep
    role: research
    model: claude-opus-4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing workers: %v", err)
	}

	workers, err := LoadWorkers(path)
	if err != nil {
		t.Fatalf("LoadWorkers: %v", err)
	}
	if len(workers) != 2 {
		t.Fatalf("expected 2 workers, got %d", len(workers))
	}
	if workers[0].Key != "fast" || workers[0].Temperature != 0.5 {
		t.Errorf("first worker = %+v", workers[0])
	}
	// Name falls back to the key.
	if workers[1].Name != "deep" {
		t.Errorf("Name = %q, want deep", workers[1].Name)
	}
}

func TestLoadWorkersRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name    string
		content string
	}{
		{"empty", "workers: []\n"},
		{"no_key", "workers:\n  - role: general\n    model: m\n"},
		{"bad_role", "workers:\n  - key: w\n    role: wizard\n    model: m\n"},
		{"no_model", "workers:\n  - key: w\n    role: general\n"},
		{"duplicate", "workers:\n  - key: w\n    role: general\n    model: m\n  - key: w\n    role: code\n    model: m\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("writing file: %v", err)
			}
			if _, err := LoadWorkers(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDefaultWorkersCoverAllRoles(t *testing.T) {
	workers := DefaultWorkers()
	roles := make(map[string]bool)
	for _, w := range workers {
		if !w.Role.Valid() {
			t.Errorf("worker %s has invalid role %q", w.Key, w.Role)
		}
		roles[string(w.Role)] = true
	}
	for _, want := range []string{"general", "code", "creative", "research", "specialist"} {
		if !roles[want] {
			t.Errorf("no default worker for role %s", want)
		}
	}
}
