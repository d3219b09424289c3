package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up under the user config directory.
const FileName = "config.toml"

// LoopConfig tunes the GUI event loop.
type LoopConfig struct {
	PollIntervalMs int `toml:"pollIntervalMs" yaml:"pollIntervalMs"`
}

// LoggingConfig defines basic logging knobs.
type LoggingConfig struct {
	Level       string `toml:"level" yaml:"level"`
	FilePath    string `toml:"filePath" yaml:"filePath"`
	FileMaxSize int    `toml:"fileMaxSizeMB" yaml:"fileMaxSizeMB"`
}

// JournalConfig enables the diagnostic call journal.
type JournalConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// ShutdownConfig bounds how long the writer may drain on exit.
type ShutdownConfig struct {
	DrainTimeoutMs int `toml:"drainTimeoutMs" yaml:"drainTimeoutMs"`
}

// HostConfig aggregates everything the host reads at startup.
type HostConfig struct {
	AppName  string         `toml:"appName" yaml:"appName"`
	Loop     LoopConfig     `toml:"loop" yaml:"loop"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Journal  JournalConfig  `toml:"journal" yaml:"journal"`
	Shutdown ShutdownConfig `toml:"shutdown" yaml:"shutdown"`
}

// Default returns the configuration used when no file exists.
func Default() *HostConfig {
	cfg := &HostConfig{}
	_ = cfg.validate()
	return cfg
}

// DefaultPath returns $XDG_CONFIG_HOME/nanoframe/config.toml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "nanoframe", FileName)
}

// DefaultJournalPath returns $XDG_STATE_HOME/nanoframe/journal.db.
func DefaultJournalPath() string {
	return filepath.Join(xdg.StateHome, "nanoframe", "journal.db")
}

// PollInterval returns the loop interval as a duration.
func (cfg *HostConfig) PollInterval() time.Duration {
	return time.Duration(cfg.Loop.PollIntervalMs) * time.Millisecond
}

// DrainTimeout returns the shutdown drain bound as a duration.
func (cfg *HostConfig) DrainTimeout() time.Duration {
	return time.Duration(cfg.Shutdown.DrainTimeoutMs) * time.Millisecond
}

// Load reads config.toml or config.yaml from path. An explicit path must
// exist; the default path may be missing, in which case defaults apply.
func Load(path string) (*HostConfig, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return Parse(path, data)
}

// Parse decodes data using the format implied by the extension of path.
func Parse(path string, data []byte) (*HostConfig, error) {
	var cfg HostConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		meta, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (cfg *HostConfig) validate() error {
	if cfg.AppName == "" {
		cfg.AppName = "nanoframe-app"
	}
	if cfg.Loop.PollIntervalMs < 0 {
		return fmt.Errorf("loop.pollIntervalMs must not be negative")
	}
	if cfg.Loop.PollIntervalMs == 0 {
		cfg.Loop.PollIntervalMs = 8
	}
	if cfg.Shutdown.DrainTimeoutMs < 0 {
		return fmt.Errorf("shutdown.drainTimeoutMs must not be negative")
	}
	if cfg.Shutdown.DrainTimeoutMs == 0 {
		cfg.Shutdown.DrainTimeoutMs = 2000
	}
	if cfg.Logging.FileMaxSize < 0 {
		return fmt.Errorf("logging.fileMaxSizeMB must not be negative")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if _, err := ParseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath()
	}
	return nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg *HostConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}
