package bandstore

import (
	"testing"
	"time"

	"github.com/cratalog/cratalog/internal/atomicstore"
	"github.com/cratalog/cratalog/internal/model"
)

type fakeCollection struct{ names []string }

func (f fakeCollection) BandNames() []string { return f.names }

func newStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	files := atomicstore.New(2*time.Second, 5)
	t.Cleanup(files.Close)
	return New(root, files)
}

func TestSaveAndLoadBandMetadata(t *testing.T) {
	s := newStore(t)

	md := model.BandMetadata{
		BandName: "Sepultura",
		Albums:   []model.Album{{AlbumName: "Arise", Year: "1991"}},
	}

	res, err := s.SaveBandMetadata("Sepultura", md)
	if err != nil {
		t.Fatalf("SaveBandMetadata() error = %v", err)
	}
	if res.AlbumsCount != 1 {
		t.Errorf("AlbumsCount = %d, want 1", res.AlbumsCount)
	}

	loaded, err := s.LoadBandMetadata("Sepultura")
	if err != nil {
		t.Fatalf("LoadBandMetadata() error = %v", err)
	}
	if loaded.BandName != "Sepultura" || len(loaded.Albums) != 1 {
		t.Errorf("LoadBandMetadata() = %+v", loaded)
	}
	if loaded.LastMetadataSaved == nil {
		t.Error("LastMetadataSaved not set")
	}
}

func TestLoadBandMetadata_NotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.LoadBandMetadata("Nonexistent")
	if !isNotFound(err) {
		t.Errorf("LoadBandMetadata() error = %v, want NotFoundError", err)
	}
}

func TestSaveBandMetadata_PreservesAnalyze(t *testing.T) {
	s := newStore(t)

	withAnalyze := model.BandMetadata{
		BandName: "Sepultura",
		Analyze:  &model.BandAnalysis{Review: "Great", Rate: 8},
	}
	if _, err := s.SaveBandMetadata("Sepultura", withAnalyze); err != nil {
		t.Fatalf("first SaveBandMetadata() error = %v", err)
	}

	refresh := model.BandMetadata{
		BandName: "Sepultura",
		Albums:   []model.Album{{AlbumName: "Arise", Year: "1991"}},
	}
	if _, err := s.SaveBandMetadata("Sepultura", refresh); err != nil {
		t.Fatalf("second SaveBandMetadata() error = %v", err)
	}

	loaded, err := s.LoadBandMetadata("Sepultura")
	if err != nil {
		t.Fatalf("LoadBandMetadata() error = %v", err)
	}
	if loaded.Analyze == nil || loaded.Analyze.Review != "Great" || loaded.Analyze.Rate != 8 {
		t.Errorf("Analyze = %+v, want preserved {Great 8}", loaded.Analyze)
	}
}

func TestSaveBandMetadata_ExplicitAnalyzeOverridesPreserve(t *testing.T) {
	s := newStore(t)

	if _, err := s.SaveBandMetadata("Sepultura", model.BandMetadata{
		BandName: "Sepultura",
		Analyze:  &model.BandAnalysis{Review: "Old", Rate: 5},
	}); err != nil {
		t.Fatalf("first save error = %v", err)
	}

	if _, err := s.SaveBandMetadata("Sepultura", model.BandMetadata{
		BandName: "Sepultura",
		Analyze:  &model.BandAnalysis{Review: "New", Rate: 9},
	}); err != nil {
		t.Fatalf("second save error = %v", err)
	}

	loaded, err := s.LoadBandMetadata("Sepultura")
	if err != nil {
		t.Fatalf("LoadBandMetadata() error = %v", err)
	}
	if loaded.Analyze.Review != "New" || loaded.Analyze.Rate != 9 {
		t.Errorf("Analyze = %+v, want explicit {New 9}", loaded.Analyze)
	}
}

func TestSaveBandAnalyze_ReconcilesSimilarBands(t *testing.T) {
	s := newStore(t)
	collection := fakeCollection{names: []string{"A", "B"}}

	analysis := model.BandAnalysis{
		SimilarBands:        []string{"a", "C"},
		SimilarBandsMissing:  []string{"B", "D"},
	}

	if _, err := s.SaveBandAnalyze("Sepultura", analysis, collection); err != nil {
		t.Fatalf("SaveBandAnalyze() error = %v", err)
	}

	loaded, err := s.LoadBandMetadata("Sepultura")
	if err != nil {
		t.Fatalf("LoadBandMetadata() error = %v", err)
	}

	wantPresent := map[string]bool{"a": true, "B": true}
	wantMissing := map[string]bool{"C": true, "D": true}

	if len(loaded.Analyze.SimilarBands) != 2 {
		t.Fatalf("SimilarBands = %v, want 2 entries", loaded.Analyze.SimilarBands)
	}
	for _, n := range loaded.Analyze.SimilarBands {
		if !wantPresent[n] {
			t.Errorf("unexpected present band %q", n)
		}
	}
	for _, n := range loaded.Analyze.SimilarBandsMissing {
		if !wantMissing[n] {
			t.Errorf("unexpected missing band %q", n)
		}
	}
}

func TestReconcileSimilarBands_DisjointAndUnionPreserved(t *testing.T) {
	present, missing := ReconcileSimilarBands(
		[]string{"a", "C"},
		[]string{"B", "D"},
		[]string{"A", "B"},
	)

	seen := make(map[string]bool)
	for _, n := range present {
		seen[n] = true
	}
	for _, n := range missing {
		if seen[n] {
			t.Errorf("%q present in both lists, want disjoint", n)
		}
	}
	if len(present)+len(missing) != 4 {
		t.Errorf("union size = %d, want 4", len(present)+len(missing))
	}
}
