package integrity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cratalog/cratalog/internal/model"
)

func mkAlbum(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "01 Track.flac"), []byte{}, 0o644); err != nil {
		t.Fatalf("write track: %v", err)
	}
}

func TestCheck_CompletedOperationVerified(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "Album", "1994 - Burn My Eyes")
	mkAlbum(t, dest)

	report := Check(root, "", []model.AlbumMigrationOperation{
		{State: model.OperationCompleted, Type: model.OperationMove, DestPath: dest, SourcePath: filepath.Join(root, "src")},
	})
	if report.AlbumsVerified != 1 {
		t.Errorf("AlbumsVerified = %d, want 1", report.AlbumsVerified)
	}
	if report.DataLoss() {
		t.Errorf("DataLoss() = true, want false; problems = %v", report.Problems)
	}
}

func TestCheck_MissingTargetIsDataLoss(t *testing.T) {
	root := t.TempDir()
	report := Check(root, "", []model.AlbumMigrationOperation{
		{State: model.OperationCompleted, Type: model.OperationMove, DestPath: filepath.Join(root, "missing")},
	})
	if !report.DataLoss() {
		t.Error("DataLoss() = false, want true for a missing target")
	}
}

func TestCheck_SourceStillExistsAfterMoveIsFlagged(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "Album", "Dest")
	src := filepath.Join(root, "Src")
	mkAlbum(t, dest)
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}

	report := Check(root, "", []model.AlbumMigrationOperation{
		{State: model.OperationCompleted, Type: model.OperationMove, DestPath: dest, SourcePath: src},
	})

	found := false
	for _, p := range report.Problems {
		if p == "source still exists after move: "+src {
			found = true
		}
	}
	if !found {
		t.Errorf("expected problem flagging surviving source, got %v", report.Problems)
	}
}

func TestCheck_MetadataFileMustParseAsObject(t *testing.T) {
	root := t.TempDir()
	metaPath := filepath.Join(root, ".band_metadata.json")
	if err := os.WriteFile(metaPath, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	report := Check(root, metaPath, nil)

	found := false
	for _, p := range report.Problems {
		if p == "metadata file does not parse as a JSON object: "+metaPath {
			found = true
		}
	}
	if !found {
		t.Errorf("expected metadata parse problem, got %v", report.Problems)
	}
}

func TestCheck_SkipsNonCompletedOperations(t *testing.T) {
	root := t.TempDir()
	report := Check(root, "", []model.AlbumMigrationOperation{
		{State: model.OperationFailed, DestPath: filepath.Join(root, "missing")},
	})
	if report.AlbumsVerified != 0 || len(report.Problems) != 0 {
		t.Errorf("expected no checks run for non-completed operations, got %+v", report)
	}
}
