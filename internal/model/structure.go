package model

import (
	"encoding/json"
	"fmt"
)

// StructureType is the classifier output spec.md §3/§4.2 and the
// GLOSSARY define.
type StructureType int

const (
	StructureUnknown StructureType = iota
	StructureDefault
	StructureEnhanced
	StructureMixed
	StructureLegacy
)

func (s StructureType) String() string {
	switch s {
	case StructureDefault:
		return "Default"
	case StructureEnhanced:
		return "Enhanced"
	case StructureMixed:
		return "Mixed"
	case StructureLegacy:
		return "Legacy"
	default:
		return "Unknown"
	}
}

func (s StructureType) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }

func (s *StructureType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("structure type: %w", err)
	}
	switch str {
	case "Default":
		*s = StructureDefault
	case "Enhanced":
		*s = StructureEnhanced
	case "Mixed":
		*s = StructureMixed
	case "Legacy":
		*s = StructureLegacy
	default:
		*s = StructureUnknown
	}
	return nil
}

// ConsistencyLevel is the consistency classification from spec.md §4.2.
type ConsistencyLevel int

const (
	ConsistencyUnknown ConsistencyLevel = iota
	ConsistencyConsistent
	ConsistencyMostlyConsistent
	ConsistencyInconsistent
)

func (c ConsistencyLevel) String() string {
	switch c {
	case ConsistencyConsistent:
		return "Consistent"
	case ConsistencyMostlyConsistent:
		return "MostlyConsistent"
	case ConsistencyInconsistent:
		return "Inconsistent"
	default:
		return "Unknown"
	}
}

func (c ConsistencyLevel) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *ConsistencyLevel) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("consistency level: %w", err)
	}
	switch str {
	case "Consistent":
		*c = ConsistencyConsistent
	case "MostlyConsistent":
		*c = ConsistencyMostlyConsistent
	case "Inconsistent":
		*c = ConsistencyInconsistent
	default:
		*c = ConsistencyUnknown
	}
	return nil
}

// ConsistencyFromScore derives the level from a 0-100 score per the
// thresholds in spec.md §4.2: >=90 Consistent, >=70 MostlyConsistent,
// else Inconsistent.
func ConsistencyFromScore(score int) ConsistencyLevel {
	switch {
	case score >= 90:
		return ConsistencyConsistent
	case score >= 70:
		return ConsistencyMostlyConsistent
	default:
		return ConsistencyInconsistent
	}
}

// IssueKind identifies the origin of a recommendation or issue, emitted
// at the point the check runs rather than reconstructed later by
// matching text (spec.md §9 Open Question decision, see DESIGN.md).
type IssueKind int

const (
	IssueUnknown IssueKind = iota
	IssueMissingYearPrefix
	IssueNonStandardEdition
	IssueMixedDirectAndNested
	IssueEmptyTypeFolder
	IssueTooManyPatterns
	IssueAlbumNameTooShort
	IssueInvalidYear
)

func (k IssueKind) String() string {
	switch k {
	case IssueMissingYearPrefix:
		return "missing_year_prefix"
	case IssueNonStandardEdition:
		return "non_standard_edition"
	case IssueMixedDirectAndNested:
		return "mixed_direct_and_nested"
	case IssueEmptyTypeFolder:
		return "empty_type_folder"
	case IssueTooManyPatterns:
		return "too_many_patterns"
	case IssueAlbumNameTooShort:
		return "album_name_too_short"
	case IssueInvalidYear:
		return "invalid_year"
	default:
		return "unknown"
	}
}

func (k IssueKind) MarshalJSON() ([]byte, error) { return json.Marshal(k.String()) }

// StructureIssue is one declaratively-emitted recommendation or problem
// report from StructureDetector (spec.md §4.2).
type StructureIssue struct {
	Kind    IssueKind `json:"kind"`
	Message string    `json:"message"`
	Album   string    `json:"album,omitempty"`
}

// FolderStructure is the classifier output attached to BandMetadata
// (spec.md §3).
type FolderStructure struct {
	StructureType    StructureType    `json:"structure_type"`
	Consistency      ConsistencyLevel `json:"consistency"`
	ConsistencyScore int              `json:"consistency_score"`

	AlbumsAnalyzed       int `json:"albums_analyzed"`
	AlbumsWithYear        int `json:"albums_with_year_prefix"`
	AlbumsWithoutYear     int `json:"albums_without_year_prefix"`
	AlbumsInTypeFolders   int `json:"albums_in_type_folders"`

	DetectedPatterns []string `json:"detected_patterns"`
	TypeFoldersFound []string `json:"type_folders_found"`

	StructureScore int `json:"structure_score"`

	Recommendations []StructureIssue `json:"recommendations"`
	Issues          []StructureIssue `json:"issues"`
}

// NeedsMigration reports whether StructureDetector's recommendation
// rule (spec.md §4.2: Mixed, Inconsistent, or score<70) applies.
func (f FolderStructure) NeedsMigration() bool {
	return f.StructureType == StructureMixed ||
		f.Consistency == ConsistencyInconsistent ||
		f.StructureScore < 70
}
