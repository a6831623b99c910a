// Package config loads khata settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// KHATA_* environment variables (a .env file may supply them). The merged
// result is checked against an embedded CUE schema before use.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override, e.g. KHATA_BACKEND.
const EnvPrefix = "KHATA"

// DefaultFile is read when no --config flag is given. It may be absent.
const DefaultFile = "khata.yaml"

// Backends accepted by Config.Backend.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendHTTP   = "http"
)

// Config is the merged configuration.
type Config struct {
	// Backend selects the remote the client talks to.
	Backend string `yaml:"backend" envconfig:"BACKEND"`
	// Database is the SQLite file for the sqlite backend and for serve.
	Database string `yaml:"database" envconfig:"DATABASE"`
	// RemoteURL is the base URL for the http backend.
	RemoteURL string `yaml:"remote_url" envconfig:"REMOTE_URL"`
	// Listen is the address `khata serve` binds.
	Listen string `yaml:"listen" envconfig:"LISTEN"`
	// Currency is an ISO 4217 code used for display.
	Currency string `yaml:"currency" envconfig:"CURRENCY"`
	// StrictDelete refuses to delete customers with a non-zero balance.
	StrictDelete bool `yaml:"strict_delete" envconfig:"STRICT_DELETE"`
	// Timeout bounds each remote call.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`

	Log Log `yaml:"log" envconfig:"LOG"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend:  BackendSQLite,
		Database: "khata.db",
		Listen:   "127.0.0.1:8080",
		Currency: "INR",
		Timeout:  10 * time.Second,
		Log:      Log{Level: "info", Format: "text"},
	}
}

// Source says where Load looks.
type Source struct {
	// File is a YAML file. A missing file is skipped unless Required.
	File     string
	Required bool
	// EnvFiles are .env files loaded before reading the environment.
	// Missing ones are skipped. Variables already set are not overridden.
	EnvFiles []string
}

// Load merges defaults, the YAML file and the environment, then validates.
func Load(src Source) (*Config, error) {
	cfg := Default()

	if src.File != "" {
		if err := readFile(src.File, &cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || src.Required {
				return nil, err
			}
			slog.Debug("config file not found, using defaults", "path", src.File)
		}
	}

	for _, path := range src.EnvFiles {
		if err := godotenv.Load(path); err != nil {
			slog.Debug("env file not loaded", "path", path, "error", err)
			continue
		}
		slog.Debug("env file loaded", "path", path)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("read %s_* environment: %w", EnvPrefix, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("config loaded",
		"backend", cfg.Backend,
		"database", cfg.Database,
		"remote_url", cfg.RemoteURL,
		"currency", cfg.Currency,
		"strict_delete", cfg.StrictDelete)
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file.
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := def.Unify(ctx.Encode(c.document()))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// document is the shape the schema constrains.
func (c Config) document() map[string]any {
	return map[string]any{
		"backend":       c.Backend,
		"database":      c.Database,
		"remote_url":    c.RemoteURL,
		"listen":        c.Listen,
		"currency":      c.Currency,
		"strict_delete": c.StrictDelete,
		"timeout_ms":    c.Timeout.Milliseconds(),
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
}
