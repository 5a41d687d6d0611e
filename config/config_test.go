package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tasklist/engine"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ec := cfg.EngineConfig()
	if ec.Strictness != engine.StrictnessStrict || ec.Mode != engine.ModeSnapshot {
		t.Errorf("engine config = %+v", ec)
	}
	if cfg.Remote.Timeout.Duration != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Remote.Timeout)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "tasklist.yaml", `
server:
  addr: ":9999"
engine:
  strictness: minimal
  mode: remote
  missing_due_first: true
remote:
  base_url: http://example.test/api/v1
  timeout: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	ec := cfg.EngineConfig()
	if ec.Strictness != engine.StrictnessMinimal || ec.Mode != engine.ModeRemote || !ec.MissingDueFirst {
		t.Errorf("engine config = %+v", ec)
	}
	if cfg.Remote.Timeout.Duration != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Remote.Timeout)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Driver = %q, want default sqlite3", cfg.Database.Driver)
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "tasklist.toml", `
[database]
driver = "mysql"
dsn = "root:pw@tcp(127.0.0.1:3306)/tasks"

[snapshot]
backend = "sqlite"
key = "work"

[log]
level = "debug"
format = "json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "mysql" || cfg.Snapshot.Backend != "sqlite" || cfg.Snapshot.Key != "work" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad.yaml": "engine:\n  mode: carrier-pigeon\n",
		"bad.toml": "[engine]\nstrictness = \"lenient\"\n",
		"bad.ini":  "x=1",
		"bad.yml":  "remote:\n  timeout: soon\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeFile(t, name, body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TASKLIST_ADDR":              ":1234",
		"TASKLIST_MODE":              "remote",
		"TASKLIST_MISSING_DUE_FIRST": "true",
	}
	cfg := DefaultConfig()
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Server.Addr != ":1234" || cfg.Engine.Mode != "remote" || !cfg.Engine.MissingDueFirst {
		t.Errorf("cfg = %+v", cfg)
	}

	env["TASKLIST_MISSING_DUE_FIRST"] = "maybe"
	if err := DefaultConfig().applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}); err == nil {
		t.Error("expected error for invalid bool")
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message logged at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("output = %q, want json msg", out)
	}
}
