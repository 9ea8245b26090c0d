// Package meshconfig loads and validates the YAML configuration used to
// construct a hyparview.Options at daemon startup.
package meshconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/meshview/meshview/pkg/hyparview"
)

// CurrentConfigVersion is the latest configuration schema version. Bump
// this when adding fields that require migration.
const CurrentConfigVersion = 1

// Config is the on-disk shape of a node's membership configuration.
type Config struct {
	Version int `yaml:"version,omitempty"`

	// ContactNode is the bootstrap peer id to Join on startup. Empty means
	// this node waits to be contacted instead of initiating.
	ContactNode string `yaml:"contact_node,omitempty"`

	MaxActiveViewSize      int    `yaml:"max_active_view_size,omitempty"`
	MaxPassiveViewSize     int    `yaml:"max_passive_view_size,omitempty"`
	ShuffleActiveViewSize  int    `yaml:"shuffle_active_view_size,omitempty"`
	ShufflePassiveViewSize int    `yaml:"shuffle_passive_view_size,omitempty"`
	ActiveRandomWalkLen    uint8  `yaml:"active_random_walk_len,omitempty"`
	PassiveRandomWalkLen   uint8  `yaml:"passive_random_walk_len,omitempty"`
	ListenAddr             string `yaml:"listen_addr,omitempty"`
	HistoryPath            string `yaml:"history_path,omitempty"`
}

// checkConfigFilePermissions warns by returning an error if a config file
// is group- or world-readable. Config files can reveal network topology
// (contact node, listen address), so this mirrors the permission check the
// rest of the corpus applies to files carrying connection secrets.
func checkConfigFilePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil // file access errors are handled by the caller
	}
	mode := info.Mode().Perm()
	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %04o; expected 0600 — fix with: chmod 600 %s", path, mode, path)
	}
	return nil
}

// Load reads and validates a Config from path, applying hyparview's
// defaults for any omitted tuning field.
func Load(path string) (*Config, error) {
	if err := checkConfigFilePermissions(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version > CurrentConfigVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported version %d", ErrConfigVersionTooNew, cfg.Version, CurrentConfigVersion)
	}

	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	d := hyparview.DefaultOptions()
	if cfg.MaxActiveViewSize == 0 {
		cfg.MaxActiveViewSize = d.MaxActiveViewSize
	}
	if cfg.MaxPassiveViewSize == 0 {
		cfg.MaxPassiveViewSize = d.MaxPassiveViewSize
	}
	if cfg.ShuffleActiveViewSize == 0 {
		cfg.ShuffleActiveViewSize = d.ShuffleActiveViewSize
	}
	if cfg.ShufflePassiveViewSize == 0 {
		cfg.ShufflePassiveViewSize = d.ShufflePassiveViewSize
	}
	if cfg.ActiveRandomWalkLen == 0 {
		cfg.ActiveRandomWalkLen = d.ActiveRandomWalkLen
	}
	if cfg.PassiveRandomWalkLen == 0 {
		cfg.PassiveRandomWalkLen = d.PassiveRandomWalkLen
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "/ip4/0.0.0.0/tcp/0"
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = "peer_history.json"
	}
}

func validate(cfg Config) error {
	if cfg.MaxActiveViewSize <= 0 || cfg.MaxPassiveViewSize <= 0 {
		return fmt.Errorf("%w: view sizes must be > 0", ErrInvalidOptions)
	}
	if cfg.PassiveRandomWalkLen > cfg.ActiveRandomWalkLen {
		return fmt.Errorf("%w: passive_random_walk_len (%d) must be <= active_random_walk_len (%d)", ErrInvalidOptions, cfg.PassiveRandomWalkLen, cfg.ActiveRandomWalkLen)
	}
	return nil
}

// Options converts the validated Config into hyparview tuning parameters.
func (cfg Config) Options() hyparview.Options {
	return hyparview.Options{
		MaxActiveViewSize:      cfg.MaxActiveViewSize,
		MaxPassiveViewSize:     cfg.MaxPassiveViewSize,
		ShuffleActiveViewSize:  cfg.ShuffleActiveViewSize,
		ShufflePassiveViewSize: cfg.ShufflePassiveViewSize,
		ActiveRandomWalkLen:    cfg.ActiveRandomWalkLen,
		PassiveRandomWalkLen:   cfg.PassiveRandomWalkLen,
	}
}
