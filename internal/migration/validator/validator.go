// Package validator decides whether a planned migration is safe to
// execute.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cratalog/cratalog/internal/model"
)

// Severity is the closed set of ValidationIssue severities (spec.md
// §4.7).
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	case SeverityCritical:
		return "Critical"
	default:
		return "Info"
	}
}

// Issue is one accumulated validation finding.
type Issue struct {
	Severity Severity
	Message  string
	Album    string
}

// Report is the outcome of a full validation pass.
type Report struct {
	Issues []Issue
}

// HasSeverity reports whether any issue at least as severe as min is
// present.
func (r Report) HasSeverity(min Severity) bool {
	for _, i := range r.Issues {
		if i.Severity >= min {
			return true
		}
	}
	return false
}

// Passes reports whether the report permits execution: Criticals
// always block; Errors block unless force is set.
func (r Report) Passes(force bool) bool {
	if r.HasSeverity(SeverityCritical) {
		return false
	}
	if !force && r.HasSeverity(SeverityError) {
		return false
	}
	return true
}

var validMigrations = map[model.MigrationType]bool{
	model.MigrationDefaultToEnhanced: true,
	model.MigrationLegacyToDefault:   true,
	model.MigrationMixedToEnhanced:   true,
	model.MigrationEnhancedToDefault: true,
}

var reservedAlbumNames = map[string]bool{
	"temp": true, "test": true, "untitled": true, "new folder": true,
}

// Request is the input to Validate.
type Request struct {
	BandFolder    string
	MigrationType model.MigrationType
	Operations    []model.AlbumMigrationOperation
	DryRun        bool
	Force         bool
}

// Validate runs every applicable check from spec.md §4.7 and returns
// the accumulated Report. In DryRun mode, disk-space and permission
// checks are skipped.
func Validate(req Request) Report {
	var report Report
	add := func(sev Severity, album, format string, args ...any) {
		report.Issues = append(report.Issues, Issue{Severity: sev, Album: album, Message: fmt.Sprintf(format, args...)})
	}

	info, err := os.Stat(req.BandFolder)
	if err != nil || !info.IsDir() {
		add(SeverityCritical, "", "source band folder %q does not exist or is not readable", req.BandFolder)
		return report
	}

	if !validMigrations[req.MigrationType] {
		add(SeverityCritical, "", "migration type %q is not a recognized conversion", req.MigrationType)
		return report
	}

	checkTypeFolderConflicts(req, add)
	checkAlbumTypeAssignments(req, add)
	checkDestinationConflicts(req, add)
	checkPrerequisites(req, add)

	if !req.DryRun {
		checkDiskSpace(req, add)
		checkPermissions(req, add)
	}

	return report
}

func checkTypeFolderConflicts(req Request, add func(Severity, string, string, ...any)) {
	if req.MigrationType != model.MigrationDefaultToEnhanced && req.MigrationType != model.MigrationMixedToEnhanced {
		return
	}
	entries, err := os.ReadDir(req.BandFolder)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() || !model.IsTypeFolderName(e.Name()) {
			continue
		}
		children, err := os.ReadDir(filepath.Join(req.BandFolder, e.Name()))
		if err == nil && len(children) > 0 {
			add(SeverityWarning, "", "type folder %q already has content; new albums will be added alongside it", e.Name())
		}
	}
}

func checkAlbumTypeAssignments(req Request, add func(Severity, string, string, ...any)) {
	for _, op := range req.Operations {
		detected := model.DetectAlbumTypeFromText(op.AlbumName)
		if op.AlbumType != detected {
			add(SeverityWarning, op.AlbumName, "assigned type %s does not match detected type %s for %q",
				op.AlbumType, detected, op.AlbumName)
		}
	}
}

func checkDestinationConflicts(req Request, add func(Severity, string, string, ...any)) {
	seenSource := make(map[string]bool)
	seenTarget := make(map[string]bool)
	for _, op := range req.Operations {
		if seenSource[op.SourcePath] {
			add(SeverityError, op.AlbumName, "duplicate source path %q across planned operations", op.SourcePath)
		}
		seenSource[op.SourcePath] = true

		if seenTarget[op.DestPath] {
			add(SeverityError, op.AlbumName, "duplicate destination path %q across planned operations", op.DestPath)
		}
		seenTarget[op.DestPath] = true

		if _, err := os.Stat(op.DestPath); err == nil {
			add(SeverityWarning, op.AlbumName, "destination %q already exists; it will be renamed with a conflict suffix", op.DestPath)
		}

		if err := checkCreatableParent(op.DestPath); err != nil {
			add(SeverityError, op.AlbumName, "destination parent for %q is not creatable: %v", op.DestPath, err)
		}
	}
}

func checkCreatableParent(destPath string) error {
	dir := filepath.Dir(destPath)
	for {
		info, err := os.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("%q is not a directory", dir)
			}
			return nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return fmt.Errorf("no existing ancestor found for %q", destPath)
		}
		dir = parent
	}
}

const bytesPerAlbumFallback = 100 * 1024 * 1024 // 100 MiB
const diskSpaceSafetyMargin = 10 * 1024 * 1024  // 10 MiB

func checkDiskSpace(req Request, add func(Severity, string, string, ...any)) {
	var required uint64
	for _, op := range req.Operations {
		size, err := dirSize(op.SourcePath)
		if err != nil {
			size = bytesPerAlbumFallback
		}
		required += uint64(size)
	}
	required += diskSpaceSafetyMargin

	available, err := availableDiskSpace(req.BandFolder)
	if err != nil {
		return
	}
	if available < required {
		add(SeverityCritical, "", "insufficient disk space: %s required, %s available",
			humanize.Bytes(required), humanize.Bytes(available))
	}
}

func dirSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func checkPermissions(req Request, add func(Severity, string, string, ...any)) {
	for _, op := range req.Operations {
		if _, err := os.Stat(op.SourcePath); err != nil {
			add(SeverityError, op.AlbumName, "source %q is not readable: %v", op.SourcePath, err)
		}
		srcParent := filepath.Dir(op.SourcePath)
		if !writable(srcParent) {
			add(SeverityError, op.AlbumName, "source parent %q is not writable", srcParent)
		}
		destParent := filepath.Dir(op.DestPath)
		if !writable(destParent) {
			add(SeverityError, op.AlbumName, "destination parent %q is not writable", destParent)
		}
	}
}

func writable(dir string) bool {
	info, err := os.Stat(dir)
	if err != nil {
		// Walk up to the nearest existing ancestor.
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		return writable(parent)
	}
	return info.Mode().Perm()&0o200 != 0
}

func checkPrerequisites(req Request, add func(Severity, string, string, ...any)) {
	hasReasonableName := false
	for _, op := range req.Operations {
		name := strings.ToLower(strings.TrimSpace(op.AlbumName))
		if name != "" && !reservedAlbumNames[name] {
			hasReasonableName = true
		}
	}
	if !hasReasonableName {
		add(SeverityCritical, "", "no album with a usable name found for migration")
	}

	if req.MigrationType == model.MigrationLegacyToDefault {
		anyYearless := false
		for _, op := range req.Operations {
			if !strings.Contains(filepath.Base(op.SourcePath), "-") {
				anyYearless = true
			}
		}
		if !anyYearless {
			add(SeverityInfo, "", "no album in this band lacks a year prefix; legacy_to_default may be unnecessary")
		}
	}
}
