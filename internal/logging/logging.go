// Package logging provides the structured logger shared by every
// cratalog component.
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	once   sync.Once
	global *zap.Logger
)

// Config controls logger construction.
type Config struct {
	// Development enables human-readable console output instead of
	// JSON. Intended for the CLI tools; library callers embedding
	// cratalog in a service should use the production encoder.
	Development bool
}

// Init builds the process-wide logger. Safe to call once at startup;
// later calls are no-ops so library code can call Init defensively
// without clobbering a host-configured logger.
func Init(cfg Config) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		var l *zap.Logger
		if cfg.Development {
			l, err = zap.NewDevelopment()
		} else {
			l, err = zap.NewProduction()
		}
		if err != nil {
			return
		}
		global = l
	})
	if global == nil && err == nil {
		// once.Do already ran in a previous call; nothing to report.
		return L(), nil
	}
	return global, err
}

// L returns the process-wide logger, falling back to a no-op logger if
// Init was never called (keeps library use safe without forcing every
// caller through Init).
func L() *zap.Logger {
	if global == nil {
		return zap.NewNop()
	}
	return global
}

// Named returns a child logger scoped to a component name.
func Named(component string) *zap.Logger {
	return L().Named(component)
}

// BandField and friends are small helpers so every component tags log
// lines with the same field names.
func BandField(name string) zap.Field      { return zap.String("band", name) }
func AlbumField(name string) zap.Field     { return zap.String("album", name) }
func PathField(path string) zap.Field      { return zap.String("path", path) }
func RunIDField(id string) zap.Field       { return zap.String("migration_run_id", id) }
