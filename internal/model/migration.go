package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MigrationType is the closed set of supported structure conversions
// (spec.md §4.8).
type MigrationType int

const (
	MigrationUnknown MigrationType = iota
	MigrationDefaultToEnhanced
	MigrationLegacyToDefault
	MigrationMixedToEnhanced
	MigrationEnhancedToDefault
)

func (m MigrationType) String() string {
	switch m {
	case MigrationDefaultToEnhanced:
		return "default_to_enhanced"
	case MigrationLegacyToDefault:
		return "legacy_to_default"
	case MigrationMixedToEnhanced:
		return "mixed_to_enhanced"
	case MigrationEnhancedToDefault:
		return "enhanced_to_default"
	default:
		return "unknown"
	}
}

func (m MigrationType) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *MigrationType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("migration type: %w", err)
	}
	switch s {
	case "default_to_enhanced":
		*m = MigrationDefaultToEnhanced
	case "legacy_to_default":
		*m = MigrationLegacyToDefault
	case "mixed_to_enhanced":
		*m = MigrationMixedToEnhanced
	case "enhanced_to_default":
		*m = MigrationEnhancedToDefault
	default:
		*m = MigrationUnknown
	}
	return nil
}

// OperationType names what a single AlbumMigrationOperation does to one
// album folder (spec.md §4.8).
type OperationType int

const (
	OperationMove OperationType = iota
	OperationRename
	OperationCreateTypeFolder
	OperationRemoveEmptyTypeFolder
)

func (o OperationType) String() string {
	switch o {
	case OperationMove:
		return "move"
	case OperationRename:
		return "rename"
	case OperationCreateTypeFolder:
		return "create_type_folder"
	case OperationRemoveEmptyTypeFolder:
		return "remove_empty_type_folder"
	default:
		return "move"
	}
}

func (o OperationType) MarshalJSON() ([]byte, error) { return json.Marshal(o.String()) }

// OperationState tracks one operation through the execution state
// machine (spec.md §4.8).
type OperationState int

const (
	OperationPending OperationState = iota
	OperationExecuting
	OperationCompleted
	OperationFailed
)

func (s OperationState) String() string {
	switch s {
	case OperationExecuting:
		return "executing"
	case OperationCompleted:
		return "completed"
	case OperationFailed:
		return "failed"
	default:
		return "pending"
	}
}

func (s OperationState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// MigrationState tracks the overall migration run (spec.md §4.8).
type MigrationState int

const (
	MigrationPending MigrationState = iota
	MigrationInProgress
	MigrationCompleted
	MigrationFailed
	MigrationRolledBack
)

func (s MigrationState) String() string {
	switch s {
	case MigrationInProgress:
		return "in_progress"
	case MigrationCompleted:
		return "completed"
	case MigrationFailed:
		return "failed"
	case MigrationRolledBack:
		return "rolled_back"
	default:
		return "pending"
	}
}

func (s MigrationState) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

// AlbumMigrationOperation is one planned or executed filesystem change
// against a single album folder (spec.md §4.8).
type AlbumMigrationOperation struct {
	Type        OperationType  `json:"type"`
	State       OperationState `json:"state"`
	AlbumName   string         `json:"album_name"`
	AlbumType   AlbumType      `json:"album_type"`
	SourcePath  string         `json:"source_path"`
	DestPath    string         `json:"dest_path"`
	BackupPath  string         `json:"backup_path,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// MigrationResult is the full record of one migration run (spec.md
// §4.8), tagged with a run ID for correlation with the migration
// engine's log lines.
type MigrationResult struct {
	RunID          string                    `json:"run_id"`
	BandName       string                    `json:"band_name"`
	Type           MigrationType             `json:"type"`
	State          MigrationState            `json:"state"`
	DryRun         bool                      `json:"dry_run"`
	Operations     []AlbumMigrationOperation `json:"operations"`
	ScoreBefore    int                       `json:"score_before"`
	ScoreAfter     int                       `json:"score_after"`
	StartedAt      time.Time                 `json:"started_at"`
	CompletedAt    *time.Time                `json:"completed_at,omitempty"`
}

// CompletedCount returns the number of operations in OperationCompleted
// state.
func (r MigrationResult) CompletedCount() int {
	n := 0
	for _, op := range r.Operations {
		if op.State == OperationCompleted {
			n++
		}
	}
	return n
}

// FailedCount returns the number of operations in OperationFailed state.
func (r MigrationResult) FailedCount() int {
	n := 0
	for _, op := range r.Operations {
		if op.State == OperationFailed {
			n++
		}
	}
	return n
}

// IsPartialFailure reports whether some but not all operations
// completed, which AggregatePartialFailure in apperr reports against
// (spec.md §4.8 partial-failure handling).
func (r MigrationResult) IsPartialFailure() bool {
	completed := r.CompletedCount()
	failed := r.FailedCount()
	return completed > 0 && failed > 0
}
