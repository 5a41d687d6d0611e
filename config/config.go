// Package config defines the tasklist configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"tasklist/engine"
)

// Config is the top-level configuration shared by the server and the CLI.
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Engine   EngineConfig   `yaml:"engine" toml:"engine"`
	Snapshot SnapshotConfig `yaml:"snapshot" toml:"snapshot"`
	Remote   RemoteConfig   `yaml:"remote" toml:"remote"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"` // listen address, e.g. ":7789"
}

// DatabaseConfig selects the relational store behind the API.
type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"` // "sqlite3" or "mysql"
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// EngineConfig mirrors engine.Config.
type EngineConfig struct {
	Strictness               string `yaml:"strictness" toml:"strictness"` // "strict" or "minimal"
	Mode                     string `yaml:"mode" toml:"mode"`             // "snapshot" or "remote"
	MissingDueFirst          bool   `yaml:"missing_due_first" toml:"missing_due_first"`
	RollbackOnReorderFailure bool   `yaml:"rollback_on_reorder_failure" toml:"rollback_on_reorder_failure"`
}

// SnapshotConfig controls snapshot persistence.
type SnapshotConfig struct {
	Backend string `yaml:"backend" toml:"backend"` // "file" or "sqlite"
	Path    string `yaml:"path" toml:"path"`
	Key     string `yaml:"key" toml:"key"` // row name for the sqlite backend
}

// RemoteConfig points the CLI at a running server.
type RemoteConfig struct {
	BaseURL string   `yaml:"base_url" toml:"base_url"`
	Timeout Duration `yaml:"timeout" toml:"timeout"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"` // "text", "json" or "logfmt"
}

// Duration accepts "5s"-style strings in both YAML and TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":7789"},
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "./tasks.db"},
		Engine: EngineConfig{
			Strictness: string(engine.StrictnessStrict),
			Mode:       string(engine.ModeSnapshot),
		},
		Snapshot: SnapshotConfig{Backend: "file", Path: DefaultSnapshotPath(), Key: "tasks"},
		Remote:   RemoteConfig{BaseURL: "http://localhost:7789/api/v1", Timeout: Duration{5 * time.Second}},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultSnapshotPath uses XDG_DATA_HOME if set, otherwise $HOME/.local/share.
func DefaultSnapshotPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tasklist", "tasks.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "tasks.json"
	}
	return filepath.Join(home, ".local", "share", "tasklist", "tasks.json")
}

// Load reads a YAML or TOML file (chosen by extension) over the defaults,
// then applies environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case ".toml":
			if _, err := toml.Decode(string(data), cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("unsupported config format %q", ext)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"TASKLIST_ADDR":          &c.Server.Addr,
		"TASKLIST_DB_DRIVER":     &c.Database.Driver,
		"TASKLIST_DB_DSN":        &c.Database.DSN,
		"TASKLIST_MODE":          &c.Engine.Mode,
		"TASKLIST_STRICTNESS":    &c.Engine.Strictness,
		"TASKLIST_SNAPSHOT_PATH": &c.Snapshot.Path,
		"TASKLIST_API_URL":       &c.Remote.BaseURL,
		"TASKLIST_LOG_LEVEL":     &c.Log.Level,
		"TASKLIST_LOG_FORMAT":    &c.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("TASKLIST_MISSING_DUE_FIRST"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKLIST_MISSING_DUE_FIRST: %w", err)
		}
		c.Engine.MissingDueFirst = b
	}
	return nil
}

// Validate rejects unknown enum values.
func (c *Config) Validate() error {
	switch engine.Strictness(c.Engine.Strictness) {
	case engine.StrictnessStrict, engine.StrictnessMinimal:
	default:
		return fmt.Errorf("engine.strictness: unknown value %q", c.Engine.Strictness)
	}
	switch engine.Mode(c.Engine.Mode) {
	case engine.ModeSnapshot, engine.ModeRemote:
	default:
		return fmt.Errorf("engine.mode: unknown value %q", c.Engine.Mode)
	}
	switch c.Snapshot.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("snapshot.backend: unknown value %q", c.Snapshot.Backend)
	}
	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("database.driver: unknown value %q", c.Database.Driver)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// EngineConfig converts to engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Strictness:               engine.Strictness(c.Engine.Strictness),
		Mode:                     engine.Mode(c.Engine.Mode),
		MissingDueFirst:          c.Engine.MissingDueFirst,
		RollbackOnReorderFailure: c.Engine.RollbackOnReorderFailure,
	}
}
