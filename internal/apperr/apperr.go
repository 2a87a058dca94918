// Package apperr defines the typed error taxonomy shared by every
// cratalog component, so callers can branch on failure kind with
// errors.As instead of matching message text.
package apperr

import (
	"fmt"

	multierror "github.com/hashicorp/go-multierror"
)

// Op names the operation that failed, grouped by domain. Kept as a
// distinct type (not a bare string) so call sites read as intent.
type Op string

const (
	OpParseFolder       Op = "parse folder name"
	OpDetectStructure   Op = "detect band folder structure"
	OpAcquireLock       Op = "acquire store lock"
	OpAtomicWrite       Op = "write store file"
	OpLoadStore         Op = "load store file"
	OpSaveBandMetadata  Op = "save band metadata"
	OpSaveBandAnalyze   Op = "save band analysis"
	OpLoadBandMetadata  Op = "load band metadata"
	OpUpdateIndex       Op = "update collection index"
	OpSaveInsight       Op = "save collection insight"
	OpScanLibrary       Op = "scan music library"
	OpValidateMigration Op = "validate migration"
	OpPlanMigration     Op = "plan migration"
	OpExecuteMigration  Op = "execute migration"
	OpCheckIntegrity    Op = "check migration integrity"
	OpQueryBands        Op = "query bands"
)

// ValidationError marks input that fails a model invariant. User
// recoverable: never logged at error level by callers.
type ValidationError struct {
	Op     Op
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

func NewValidationError(op Op, field, reason string) *ValidationError {
	return &ValidationError{Op: op, Field: field, Reason: reason}
}

// NotFoundError marks a requested file or band that does not exist.
// Non-fatal at most call sites.
type NotFoundError struct {
	Op   Op
	What string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s not found", e.Op, e.What)
}

func NewNotFoundError(op Op, what string) *NotFoundError {
	return &NotFoundError{Op: op, What: what}
}

// DataCorruptError marks a store file that failed to parse as JSON.
// Surfaced to the caller; no silent repair is attempted here.
type DataCorruptError struct {
	Op   Op
	Path string
	Err  error
}

func (e *DataCorruptError) Error() string {
	return fmt.Sprintf("%s: %s is corrupt: %v", e.Op, e.Path, e.Err)
}

func (e *DataCorruptError) Unwrap() error { return e.Err }

func NewDataCorruptError(op Op, path string, err error) *DataCorruptError {
	return &DataCorruptError{Op: op, Path: path, Err: err}
}

// StorageError marks a transient-class failure: lock timeout, I/O error
// during an atomic write, or a backup failure. Safe to retry.
type StorageError struct {
	Op   Op
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage error on %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func NewStorageError(op Op, path string, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Err: err}
}

// LockTimeoutError is the specific StorageError raised when a bounded
// lock wait expires.
type LockTimeoutError struct {
	Path    string
	Waited  string
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for lock on %s", e.Waited, e.Path)
}

func NewLockTimeoutError(path, waited string) *StorageError {
	return &StorageError{Op: OpAcquireLock, Path: path, Err: &LockTimeoutError{Path: path, Waited: waited}}
}

// MigrationErrorKind is the closed set of migration failure subkinds
// named in spec.md §7.
type MigrationErrorKind int

const (
	MigrationErrorUnknown MigrationErrorKind = iota
	MigrationErrorPermission
	MigrationErrorDiskSpace
	MigrationErrorFileLock
	MigrationErrorPartialFailure
	MigrationErrorRollback
)

func (k MigrationErrorKind) String() string {
	switch k {
	case MigrationErrorPermission:
		return "PermissionError"
	case MigrationErrorDiskSpace:
		return "DiskSpaceError"
	case MigrationErrorFileLock:
		return "FileLockError"
	case MigrationErrorPartialFailure:
		return "PartialFailure"
	case MigrationErrorRollback:
		return "RollbackError"
	default:
		return "MigrationError"
	}
}

// MigrationError is the umbrella error type for migration failures.
// For MigrationErrorPartialFailure, Err is a *multierror.Error carrying
// one entry per failed album so no individual failure is swallowed.
type MigrationError struct {
	Kind    MigrationErrorKind
	BandName string
	Err     error
}

func (e *MigrationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("migration of %q failed: %s", e.BandName, e.Kind)
	}
	return fmt.Sprintf("migration of %q failed (%s): %v", e.BandName, e.Kind, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

func NewMigrationError(kind MigrationErrorKind, bandName string, err error) *MigrationError {
	return &MigrationError{Kind: kind, BandName: bandName, Err: err}
}

// AlbumFailure pairs an album folder with the error that occurred while
// migrating it, for aggregation into a PartialFailure.
type AlbumFailure struct {
	AlbumFolder string
	Err         error
}

func (f AlbumFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.AlbumFolder, f.Err)
}

// AggregatePartialFailure builds a PartialFailure MigrationError from
// one or more per-album failures, preserving each one.
func AggregatePartialFailure(bandName string, failures []AlbumFailure) *MigrationError {
	if len(failures) == 0 {
		return nil
	}
	var merr *multierror.Error
	for _, f := range failures {
		merr = multierror.Append(merr, f)
	}
	return NewMigrationError(MigrationErrorPartialFailure, bandName, merr.ErrorOrNil())
}
