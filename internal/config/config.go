// Package config resolves the music root and the core tunable knobs
// from the environment and an optional TOML settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// musicRootEnvVar is the single environment variable spec.md §6 names
// for selecting the music root directory.
const musicRootEnvVar = "CRATALOG_MUSIC_ROOT"

// Config holds process-wide settings. The music root is read once at
// process start (spec.md §9 "Global state") and never rebound.
type Config struct {
	MusicRoot string `koanf:"-"`

	LockTimeout     time.Duration `koanf:"lock_timeout"`
	BackupRetention int           `koanf:"backup_retention"`
	ScanWorkers     int           `koanf:"scan_workers"`
}

// defaults mirror the values spec.md calls out explicitly (10s lock
// wait) plus reasonable defaults for the knobs it leaves to the
// implementer.
func defaults() Config {
	return Config{
		LockTimeout:     10 * time.Second,
		BackupRetention: 5,
		ScanWorkers:     8,
	}
}

// Load resolves configuration: optional .env for local development,
// then CRATALOG_MUSIC_ROOT (required), then an optional cratalog.toml
// searched in the user config dir and the current directory (later
// paths win), matching the teacher's config search order.
func Load() (*Config, error) {
	// Never overrides a variable already present in the real
	// environment - purely a convenience for local runs.
	_ = godotenv.Load()

	cfg := defaults()

	k := koanf.New(".")
	for _, path := range settingsPaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if cfg.BackupRetention <= 0 {
		cfg.BackupRetention = defaults().BackupRetention
	}
	if cfg.ScanWorkers <= 0 {
		cfg.ScanWorkers = defaults().ScanWorkers
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaults().LockTimeout
	}

	root := os.Getenv(musicRootEnvVar)
	if root == "" {
		return nil, fmt.Errorf("%s is not set", musicRootEnvVar)
	}
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("%s must be an absolute path, got %q", musicRootEnvVar, root)
	}
	cfg.MusicRoot = root

	return &cfg, nil
}

func settingsPaths() []string {
	var paths []string
	if home, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(home, "cratalog", "cratalog.toml"))
	}
	paths = append(paths, "cratalog.toml")
	return paths
}
