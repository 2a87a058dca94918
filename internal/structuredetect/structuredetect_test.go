package structuredetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cratalog/cratalog/internal/model"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
}

func TestAnalyze_DefaultStructure(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"1994 - Burn My Eyes",
		"1996 - The More Things Change...",
		"1999 - The Burning Red",
	)

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.StructureType != model.StructureDefault {
		t.Errorf("StructureType = %v, want Default", structure.StructureType)
	}
	if structure.AlbumsAnalyzed != 3 {
		t.Errorf("AlbumsAnalyzed = %d, want 3", structure.AlbumsAnalyzed)
	}
	if structure.AlbumsWithYear != 3 {
		t.Errorf("AlbumsWithYear = %d, want 3", structure.AlbumsWithYear)
	}
}

func TestAnalyze_EnhancedStructure(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		filepath.Join("Albums", "1994 - Burn My Eyes"),
		filepath.Join("Albums", "1996 - The More Things Change"),
		filepath.Join("Live", "1998 - The Burning Red Tour"),
	)

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.StructureType != model.StructureEnhanced {
		t.Errorf("StructureType = %v, want Enhanced", structure.StructureType)
	}
	if structure.AlbumsInTypeFolders != 3 {
		t.Errorf("AlbumsInTypeFolders = %d, want 3", structure.AlbumsInTypeFolders)
	}
	if len(structure.TypeFoldersFound) != 2 {
		t.Errorf("TypeFoldersFound = %v, want 2 entries", structure.TypeFoldersFound)
	}
}

func TestAnalyze_MixedStructure(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		filepath.Join("Albums", "1994 - Burn My Eyes"),
		"1996 - The More Things Change",
	)

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.StructureType != model.StructureMixed {
		t.Errorf("StructureType = %v, want Mixed", structure.StructureType)
	}
	if !structure.NeedsMigration() {
		t.Error("NeedsMigration() = false, want true for Mixed structure")
	}

	found := false
	for _, issue := range structure.Issues {
		if issue.Kind == model.IssueMixedDirectAndNested {
			found = true
		}
	}
	if !found {
		t.Error("expected a mixed_direct_and_nested issue")
	}
}

func TestAnalyze_LegacyStructure(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Burn My Eyes", "The Burning Red")

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.StructureType != model.StructureLegacy {
		t.Errorf("StructureType = %v, want Legacy", structure.StructureType)
	}
	if structure.AlbumsWithoutYear != 2 {
		t.Errorf("AlbumsWithoutYear = %d, want 2", structure.AlbumsWithoutYear)
	}

	missingYearIssues := 0
	for _, rec := range structure.Recommendations {
		if rec.Kind == model.IssueMissingYearPrefix {
			missingYearIssues++
		}
	}
	if missingYearIssues != 2 {
		t.Errorf("missing year recommendations = %d, want 2", missingYearIssues)
	}
}

func TestAnalyze_EmptyBandFolder(t *testing.T) {
	root := t.TempDir()

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.StructureType != model.StructureUnknown {
		t.Errorf("StructureType = %v, want Unknown for empty band folder", structure.StructureType)
	}
	if structure.AlbumsAnalyzed != 0 {
		t.Errorf("AlbumsAnalyzed = %d, want 0", structure.AlbumsAnalyzed)
	}
}

func TestAnalyze_EmptyTypeFolderFlagged(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "Live")

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	found := false
	for _, issue := range structure.Issues {
		if issue.Kind == model.IssueEmptyTypeFolder {
			found = true
		}
	}
	if !found {
		t.Error("expected an empty_type_folder issue for an empty type folder")
	}
}

func TestAnalyze_IgnoresDotfiles(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "1994 - Burn My Eyes", ".git")

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.AlbumsAnalyzed != 1 {
		t.Errorf("AlbumsAnalyzed = %d, want 1 (dotfile dir should be ignored)", structure.AlbumsAnalyzed)
	}
}

func TestAnalyze_StructureScoreClamped(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		filepath.Join("Albums", "1994 - Burn My Eyes (Deluxe Edition)"),
		filepath.Join("Albums", "1996 - The More Things Change (Deluxe Edition)"),
	)

	structure, err := New().Analyze(root)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if structure.StructureScore < 0 || structure.StructureScore > 100 {
		t.Errorf("StructureScore = %d, want within [0, 100]", structure.StructureScore)
	}
}
