// Package engine plans and executes band-folder structure migrations.
package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/djherbis/times"
	"github.com/gofrs/uuid"

	"github.com/cratalog/cratalog/internal/apperr"
	"github.com/cratalog/cratalog/internal/bandstore"
	"github.com/cratalog/cratalog/internal/collection"
	"github.com/cratalog/cratalog/internal/folderparser"
	"github.com/cratalog/cratalog/internal/logging"
	"github.com/cratalog/cratalog/internal/model"
	"github.com/cratalog/cratalog/internal/structuredetect"
)

const maxConflictSuffix = 999

// Request is the input to a migration run (spec.md §4.8).
type Request struct {
	BandName        string
	BandFolder      string
	MigrationType   model.MigrationType
	DryRun          bool
	TypeOverrides   map[string]model.AlbumType // album name -> forced type
	ExcludeAlbums   map[string]bool
	BackupOriginal  bool
	Force           bool
}

// Engine executes migrations and keeps per-band metadata and the
// collection index in sync afterward.
type Engine struct {
	bands      *bandstore.Store
	collection *collection.Store
	locks      *albumLocks
}

// New constructs an Engine.
func New(bands *bandstore.Store, coll *collection.Store) *Engine {
	return &Engine{bands: bands, collection: coll, locks: newAlbumLocks()}
}

// Plan discovers every album under req.BandFolder (including nested
// under type folders) and computes its migration operation, without
// mutating the filesystem (spec.md §4.8 "Planning").
func (e *Engine) Plan(req Request) ([]model.AlbumMigrationOperation, error) {
	albums, err := discoverAlbumSources(req.BandFolder)
	if err != nil {
		return nil, apperr.NewStorageError(apperr.OpPlanMigration, req.BandFolder, err)
	}

	var ops []model.AlbumMigrationOperation
	for _, a := range albums {
		if req.ExcludeAlbums[a.parse.AlbumName] {
			continue
		}

		albumType := a.parse.AlbumType
		if override, ok := req.TypeOverrides[a.parse.AlbumName]; ok {
			albumType = override
		}

		if a.parse.Year == "" && req.MigrationType == model.MigrationLegacyToDefault {
			logging.Named("migration-engine").Warn("album has no year; target uses the current year",
				logging.BandField(req.BandName), logging.AlbumField(a.parse.AlbumName))
		}
		target := computeTargetPath(req.BandFolder, req.MigrationType, a.parse, albumType)

		ops = append(ops, model.AlbumMigrationOperation{
			Type:       model.OperationMove,
			State:      model.OperationPending,
			AlbumName:  a.parse.AlbumName,
			AlbumType:  albumType,
			SourcePath: a.path,
			DestPath:   target,
		})
	}
	return ops, nil
}

type discoveredAlbum struct {
	parse folderparser.ParseResult
	path  string
}

func discoverAlbumSources(bandFolder string) ([]discoveredAlbum, error) {
	entries, err := os.ReadDir(bandFolder)
	if err != nil {
		return nil, err
	}

	var albums []discoveredAlbum
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		if model.IsTypeFolderName(name) {
			children, err := os.ReadDir(filepath.Join(bandFolder, name))
			if err != nil {
				continue
			}
			for _, c := range children {
				if !c.IsDir() || strings.HasPrefix(c.Name(), ".") {
					continue
				}
				albums = append(albums, discoveredAlbum{
					parse: folderparser.ParseEnhanced(c.Name(), name),
					path:  filepath.Join(bandFolder, name, c.Name()),
				})
			}
			continue
		}

		albums = append(albums, discoveredAlbum{
			parse: folderparser.Parse(name),
			path:  filepath.Join(bandFolder, name),
		})
	}
	return albums, nil
}

// computeTargetPath implements spec.md §4.8's target-shape table.
func computeTargetPath(bandFolder string, migrationType model.MigrationType, parse folderparser.ParseResult, albumType model.AlbumType) string {
	year := parse.Year
	if year == "" && migrationType == model.MigrationLegacyToDefault {
		year = strconv.Itoa(time.Now().Year())
	}

	folderName := composeAlbumFolderName(year, parse.AlbumName, parse.Edition)

	switch migrationType {
	case model.MigrationDefaultToEnhanced, model.MigrationMixedToEnhanced:
		return filepath.Join(bandFolder, albumType.String(), folderName)
	default: // LegacyToDefault, EnhancedToDefault
		return filepath.Join(bandFolder, folderName)
	}
}

func composeAlbumFolderName(year, name, edition string) string {
	base := name
	if year != "" {
		base = year + " - " + name
	}
	if edition != "" {
		base += " (" + edition + ")"
	}
	return base
}

// Run executes a migration: validates nothing itself (the caller is
// expected to have run validator.Validate first), plans if ops is nil,
// records the band's structure score before the move, backs up the band
// folder if requested, then executes every operation, rolling back the
// completed ones if any fails. The integrity check and metadata resync
// are done by Finalize.
func (e *Engine) Run(req Request, ops []model.AlbumMigrationOperation) (model.MigrationResult, error) {
	runID := newRunID()
	logger := logging.Named("migration-engine").With(logging.RunIDField(runID), logging.BandField(req.BandName))

	result := model.MigrationResult{
		RunID:     runID,
		BandName:  req.BandName,
		Type:      req.MigrationType,
		State:     model.MigrationPending,
		DryRun:    req.DryRun,
		StartedAt: time.Now(),
	}

	if ops == nil {
		planned, err := e.Plan(req)
		if err != nil {
			return result, err
		}
		ops = planned
	}
	result.Operations = ops

	if structure, err := structuredetect.New().Analyze(req.BandFolder); err == nil {
		result.ScoreBefore = structure.StructureScore
	}

	if req.DryRun {
		result.State = model.MigrationCompleted
		completedAt := time.Now()
		result.CompletedAt = &completedAt
		return result, nil
	}

	if req.BackupOriginal {
		if err := e.backupBand(req.BandFolder); err != nil {
			logger.Error("backup failed", logging.PathField(req.BandFolder))
			result.State = model.MigrationFailed
			return result, apperr.NewMigrationError(apperr.MigrationErrorDiskSpace, req.BandName, err)
		}
	}

	result.State = model.MigrationInProgress
	var failures []apperr.AlbumFailure
	var completed []int

	for i := range ops {
		op := &ops[i]
		if err := e.executeOne(op); err != nil {
			logger.Error("album migration failed", logging.AlbumField(op.AlbumName))
			failures = append(failures, apperr.AlbumFailure{AlbumFolder: op.AlbumName, Err: err})
			continue
		}
		completed = append(completed, i)
	}

	if len(failures) > 0 {
		for _, i := range completed {
			e.rollbackOne(&ops[i])
		}
		result.State = model.MigrationRolledBack
		result.Operations = ops
		return result, apperr.AggregatePartialFailure(req.BandName, failures)
	}

	result.Operations = ops
	result.State = model.MigrationCompleted
	completedAt := time.Now()
	result.CompletedAt = &completedAt
	return result, nil
}

// executeOne runs one operation's lock/begin/execute/commit sequence
// (spec.md §4.8 "Safety manager contract").
func (e *Engine) executeOne(op *model.AlbumMigrationOperation) error {
	if !e.locks.tryLock(op.AlbumName) {
		return fmt.Errorf("album %q is already being migrated", op.AlbumName)
	}
	defer e.locks.unlock(op.AlbumName)

	started := time.Now()
	op.StartedAt = &started
	op.State = model.OperationExecuting

	if samePath(op.SourcePath, op.DestPath) {
		op.State = model.OperationCompleted
		completed := time.Now()
		op.CompletedAt = &completed
		return nil
	}

	dest, err := resolveConflict(op.DestPath)
	if err != nil {
		op.State = model.OperationFailed
		op.Error = err.Error()
		return err
	}
	op.DestPath = dest

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		op.State = model.OperationFailed
		op.Error = err.Error()
		return err
	}

	ts, timesErr := times.Stat(op.SourcePath)

	if err := os.Rename(op.SourcePath, dest); err != nil {
		op.State = model.OperationFailed
		op.Error = err.Error()
		return err
	}

	if timesErr == nil {
		atime := ts.AccessTime()
		mtime := ts.ModTime()
		_ = os.Chtimes(dest, atime, mtime)
	}

	op.State = model.OperationCompleted
	completed := time.Now()
	op.CompletedAt = &completed
	return nil
}

// rollbackOne undoes a completed move, best-effort.
func (e *Engine) rollbackOne(op *model.AlbumMigrationOperation) {
	if op.State != model.OperationCompleted {
		return
	}
	if samePath(op.SourcePath, op.DestPath) {
		return
	}
	_ = os.Rename(op.DestPath, op.SourcePath)
	op.State = model.OperationPending
	op.Error = "rolled back"
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// resolveConflict appends " (Conflict N)" to the folder's base name
// (before any trailing parenthetical edition) until a free path is
// found, capped at maxConflictSuffix (spec.md §4.8).
func resolveConflict(dest string) (string, error) {
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		return dest, nil
	}

	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	stem, edition := splitTrailingParenthetical(base)

	for n := 1; n <= maxConflictSuffix; n++ {
		candidate := fmt.Sprintf("%s (Conflict %d)", stem, n)
		if edition != "" {
			candidate += " " + edition
		}
		candidatePath := filepath.Join(dir, candidate)
		if _, err := os.Stat(candidatePath); os.IsNotExist(err) {
			return candidatePath, nil
		}
	}
	return "", fmt.Errorf("could not resolve conflict for %q after %d attempts", dest, maxConflictSuffix)
}

// splitTrailingParenthetical splits "Name (Edition)" into ("Name",
// "(Edition)"), or returns (name, "") if there is no trailing
// parenthetical.
func splitTrailingParenthetical(name string) (stem, parenthetical string) {
	if !strings.HasSuffix(name, ")") {
		return name, ""
	}
	idx := strings.LastIndex(name, "(")
	if idx <= 0 {
		return name, ""
	}
	return strings.TrimSpace(name[:idx]), name[idx:]
}

// backupBand recursively copies bandFolder and its metadata file to a
// sibling "<band>_backup_YYYYMMDD_HHMMSS" folder (spec.md §4.8).
func (e *Engine) backupBand(bandFolder string) error {
	stamp := time.Now().Format("20060102_150405")
	dest := bandFolder + "_backup_" + stamp
	return copyTree(bandFolder, dest)
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

func newRunID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return "unknown-run"
	}
	return id.String()
}

// albumLocks is a per-album-name mutex set guarding concurrent
// migrations of the same album (spec.md §4.8 "Operation lock").
type albumLocks struct {
	mu      sync.Mutex
	held    map[string]bool
}

func newAlbumLocks() *albumLocks {
	return &albumLocks{held: make(map[string]bool)}
}

func (l *albumLocks) tryLock(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return false
	}
	l.held[name] = true
	return true
}

func (l *albumLocks) unlock(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
}
