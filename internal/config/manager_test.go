package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskmill/pkg/logx"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"logging": {"level": "debug", "console": true},
		"storage": {"path": "./taskmill.db", "busy_timeout": "5s"},
		"materializer": {"enabled": true, "schedule": "@every 1m", "workers": 4, "timeout": "30s"},
		"notifier": {"enabled": true, "telegram": {"token": "t", "chat_id": 42}}
	}`)

	cfg, err := NewManager(path, logx.Nop()).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Path != "./taskmill.db" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if !cfg.Materializer.Enabled || cfg.Materializer.Workers != 4 {
		t.Fatalf("materializer = %+v", cfg.Materializer)
	}
	if cfg.Notifier.Telegram == nil || cfg.Notifier.Telegram.ChatID != 42 {
		t.Fatalf("notifier = %+v", cfg.Notifier)
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
logging:
  level: info
  console: true
storage:
  path: /var/lib/taskmill/taskmill.db
materializer:
  enabled: true
  schedule: 30s
`)

	cfg, err := NewManager(path, logx.Nop()).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("Level = %s", cfg.Logging.Level)
	}
	if cfg.Materializer.Schedule != "30s" {
		t.Fatalf("Schedule = %s", cfg.Materializer.Schedule)
	}
	if cfg.Notifier.Telegram != nil {
		t.Fatal("expected telegram block to be absent")
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"storage": {"path": "x"}, "shedule": "1m"}`)
	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}

	path = writeConfig(t, "config.json", `{"materializer": {"enabled": true, "parallelism": 4}}`)
	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("expected error for unknown nested field")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"storage": {"path": "x"}} {"more": true}`)
	if _, err := NewManager(path, logx.Nop()).Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestParseMissingFile(t *testing.T) {
	t.Parallel()
	m := NewManager(filepath.Join(t.TempDir(), "nope.yaml"), logx.Nop())
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadAndGet(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", "storage:\n  path: x\n")
	m := NewManager(path, logx.Nop())

	if m.Get() != nil {
		t.Fatal("Get before Load should be nil")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get should return the loaded config")
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: 0},
		{raw: "  ", want: 0},
		{raw: "500ms", want: 500 * time.Millisecond},
		{raw: "1m30s", want: 90 * time.Second},
		{raw: "-1s", wantErr: true},
		{raw: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseDurationField("test.field", tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDurationField(%q) = %v, want error", tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	got, err := ParseDurationOrDefault("test.field", "", time.Minute)
	if err != nil || got != time.Minute {
		t.Fatalf("empty = (%v, %v), want default 1m", got, err)
	}
	got, err = ParseDurationOrDefault("test.field", "10s", time.Minute)
	if err != nil || got != 10*time.Second {
		t.Fatalf("explicit = (%v, %v), want 10s", got, err)
	}
}
