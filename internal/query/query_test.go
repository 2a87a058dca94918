package query

import (
	"testing"
	"time"

	"github.com/cratalog/cratalog/internal/atomicstore"
	"github.com/cratalog/cratalog/internal/bandstore"
	"github.com/cratalog/cratalog/internal/collection"
	"github.com/cratalog/cratalog/internal/model"
)

func newTestEngine(t *testing.T) (*Engine, *collection.Store, *bandstore.Store) {
	t.Helper()
	root := t.TempDir()
	files := atomicstore.New(2*time.Second, 5)
	t.Cleanup(files.Close)
	bands := bandstore.New(root, files)
	coll := collection.New(root, files)
	return New(coll, bands), coll, bands
}

func seedBand(t *testing.T, coll *collection.Store, bands *bandstore.Store, entry model.BandIndexEntry, md model.BandMetadata) {
	t.Helper()
	if _, err := coll.Update([]model.BandIndexEntry{entry}); err != nil {
		t.Fatalf("seed index: %v", err)
	}
	if _, err := bands.SaveBandMetadata(entry.BandName, md); err != nil {
		t.Fatalf("seed metadata: %v", err)
	}
}

func TestRun_TextFiltersByBandName(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Sepultura", AlbumsCount: 1}, model.BandMetadata{BandName: "Sepultura"})
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Death", AlbumsCount: 1}, model.BandMetadata{BandName: "Death"})

	resp, err := e.Run(Request{Text: "sepul"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 1 || resp.Bands[0].BandName != "Sepultura" {
		t.Errorf("Bands = %v, want only Sepultura", resp.Bands)
	}
}

func TestRun_PageSizeClampedTo100(t *testing.T) {
	e, _, _ := newTestEngine(t)
	resp, err := e.Run(Request{PageSize: 500})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", resp.PageSize)
	}
}

func TestRun_Pagination(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	for _, name := range []string{"Alpha", "Bravo", "Charlie"} {
		seedBand(t, coll, bands, model.BandIndexEntry{BandName: name, AlbumsCount: 1}, model.BandMetadata{BandName: name})
	}

	resp, err := e.Run(Request{PageSize: 2, Page: 1})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 2 || !resp.HasNext || resp.HasPrevious {
		t.Errorf("page 1: Bands=%v HasNext=%v HasPrevious=%v", resp.Bands, resp.HasNext, resp.HasPrevious)
	}

	resp2, err := e.Run(Request{PageSize: 2, Page: 2})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp2.Bands) != 1 || resp2.HasNext || !resp2.HasPrevious {
		t.Errorf("page 2: Bands=%v HasNext=%v HasPrevious=%v", resp2.Bands, resp2.HasNext, resp2.HasPrevious)
	}
}

func TestRun_SortByAlbumsCountDescending(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Small", AlbumsCount: 1}, model.BandMetadata{BandName: "Small"})
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Big", AlbumsCount: 9}, model.BandMetadata{BandName: "Big"})

	resp, err := e.Run(Request{SortField: SortByAlbumsCount, Order: Descending})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 2 || resp.Bands[0].BandName != "Big" {
		t.Errorf("Bands = %v, want Big first", resp.Bands)
	}
}

func TestRun_HasMissingAlbumsFilter(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Complete", AlbumsCount: 2, AlbumsMissing: 0}, model.BandMetadata{BandName: "Complete"})
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Gappy", AlbumsCount: 2, AlbumsMissing: 1}, model.BandMetadata{BandName: "Gappy"})

	yes := true
	resp, err := e.Run(Request{HasMissingAlbums: &yes})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 1 || resp.Bands[0].BandName != "Gappy" {
		t.Errorf("Bands = %v, want only Gappy", resp.Bands)
	}
}

func TestRun_IncludeAlbumsFiltersLocalVsMissing(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	md := model.BandMetadata{
		BandName:      "Sepultura",
		Albums:        []model.Album{{AlbumName: "Arise", Year: "1991"}},
		AlbumsMissing: []model.Album{{AlbumName: "Roots", Year: "1996"}},
	}
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Sepultura", AlbumsCount: 2, AlbumsMissing: 1}, md)

	resp, err := e.Run(Request{IncludeAlbums: true, AlbumsFilter: "missing"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 1 || len(resp.Bands[0].Albums) != 1 || resp.Bands[0].Albums[0].AlbumName != "Roots" {
		t.Fatalf("Albums = %v, want only Roots", resp.Bands[0].Albums)
	}
}

func TestRun_HasAlbumOfType(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	md := model.BandMetadata{
		BandName: "Sepultura",
		Albums: []model.Album{
			{AlbumName: "Arise", Type: model.AlbumTypeAlbum},
			{AlbumName: "Under My Skin - Live", Type: model.AlbumTypeLive},
		},
	}
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Sepultura", AlbumsCount: 2}, md)
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Death", AlbumsCount: 1}, model.BandMetadata{
		BandName: "Death",
		Albums:   []model.Album{{AlbumName: "Leprosy", Type: model.AlbumTypeAlbum}},
	})

	live := model.AlbumTypeLive
	resp, err := e.Run(Request{HasAlbumOfType: &live})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 1 || resp.Bands[0].BandName != "Sepultura" {
		t.Errorf("Bands = %v, want only Sepultura", resp.Bands)
	}
}

func TestRun_EmptyCollectionReturnsEmptyPage(t *testing.T) {
	e, _, _ := newTestEngine(t)
	resp, err := e.Run(Request{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.TotalBands != 0 || len(resp.Bands) != 0 || resp.PageCount != 1 {
		t.Errorf("got %+v", resp)
	}
}

func TestRun_HasMetadataFilter(t *testing.T) {
	e, coll, bands := newTestEngine(t)
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Documented", AlbumsCount: 1, HasMetadata: true, HasAnalysis: true}, model.BandMetadata{BandName: "Documented"})
	seedBand(t, coll, bands, model.BandIndexEntry{BandName: "Bare", AlbumsCount: 1, HasMetadata: false, HasAnalysis: true}, model.BandMetadata{BandName: "Bare"})

	no := false
	resp, err := e.Run(Request{HasMetadata: &no})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Bands) != 1 || resp.Bands[0].BandName != "Bare" {
		t.Errorf("Bands = %v, want only Bare", resp.Bands)
	}
}

func TestCompletion_ZeroAlbumsIsFullyComplete(t *testing.T) {
	if got := completion(0, 0); got != 100 {
		t.Errorf("completion(0,0) = %v, want 100", got)
	}
}
