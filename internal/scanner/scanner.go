// Package scanner walks the music root, reconciles each band's on-disk
// albums against its stored metadata, and refreshes the collection
// index.
package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cratalog/cratalog/internal/bandstore"
	"github.com/cratalog/cratalog/internal/collection"
	"github.com/cratalog/cratalog/internal/folderparser"
	"github.com/cratalog/cratalog/internal/logging"
	"github.com/cratalog/cratalog/internal/model"
	"github.com/cratalog/cratalog/internal/structuredetect"
)

// musicExtensions are the recognized extensions for track-count
// purposes, expressed as a doublestar brace pattern rather than a fixed
// switch, so ignore-glob handling and extension matching share one
// mechanism (spec.md §4.6, SPEC_FULL.md §4.6).
const musicExtensions = "*.{mp3,flac,wav,aac,m4a,ogg,wma,mp4,m4p}"

// Progress reports scan progress for a long-running run, mirroring the
// phase/current/total shape the rest of the ambient stack uses for
// long operations.
type Progress struct {
	Phase       string
	Current     int
	Total       int
	CurrentBand string
}

// Scanner walks a music root, reconciling each band folder against its
// stored metadata.
type Scanner struct {
	musicRoot   string
	bands       *bandstore.Store
	collection  *collection.Store
	detector    *structuredetect.Detector
	workers     int
	ignoreGlobs []string
}

// New constructs a Scanner. workers bounds the number of bands
// reconciled concurrently; ignoreGlobs are doublestar patterns matched
// against a band or album folder's base name to skip it entirely.
func New(musicRoot string, bands *bandstore.Store, coll *collection.Store, workers int, ignoreGlobs []string) *Scanner {
	if workers < 1 {
		workers = 1
	}
	return &Scanner{
		musicRoot:   musicRoot,
		bands:       bands,
		collection:  coll,
		detector:    structuredetect.New(),
		workers:     workers,
		ignoreGlobs: ignoreGlobs,
	}
}

// bandJob is one unit of work handed to a scan worker.
type bandJob struct {
	name string
	path string
}

// Scan walks the music root's immediate children as bands, reconciles
// each one, and rebuilds the collection index. progress, if non-nil, is
// sent phase updates and closed when the scan completes.
func (s *Scanner) Scan(progress chan<- Progress) error {
	defer func() {
		if progress != nil {
			close(progress)
		}
	}()

	entries, err := os.ReadDir(s.musicRoot)
	if err != nil {
		return err
	}

	var jobs []bandJob
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || s.isIgnored(name) {
			continue
		}
		jobs = append(jobs, bandJob{name: name, path: filepath.Join(s.musicRoot, name)})
	}

	if progress != nil {
		progress <- Progress{Phase: "scanning", Total: len(jobs)}
	}

	results := make([]model.BandIndexEntry, len(jobs))
	errs := make([]error, len(jobs))

	jobCh := make(chan int, len(jobs))
	for i := range jobs {
		jobCh <- i
	}
	close(jobCh)

	var wg sync.WaitGroup
	for range s.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				entry, err := s.reconcileBand(jobs[i].name, jobs[i].path)
				results[i] = entry
				errs[i] = err
				if progress != nil {
					progress <- Progress{Phase: "processing", Current: i + 1, Total: len(jobs), CurrentBand: jobs[i].name}
				}
			}
		}()
	}
	wg.Wait()

	entriesOK := make([]model.BandIndexEntry, 0, len(jobs))
	for i, err := range errs {
		if err != nil {
			logging.Named("scanner").Error("band reconciliation failed",
				logging.BandField(jobs[i].name), logging.PathField(jobs[i].path))
			continue
		}
		entriesOK = append(entriesOK, results[i])
	}

	if progress != nil {
		progress <- Progress{Phase: "indexing", Total: len(entriesOK)}
	}

	if _, err := s.collection.Replace(entriesOK); err != nil {
		return err
	}

	if progress != nil {
		progress <- Progress{Phase: "done", Current: len(jobs), Total: len(jobs)}
	}
	return nil
}

func (s *Scanner) isIgnored(name string) bool {
	for _, g := range s.ignoreGlobs {
		if ok, _ := doublestar.Match(g, name); ok {
			return true
		}
	}
	return false
}

// reconcileBand implements spec.md §4.6 steps 1-5 for a single band.
func (s *Scanner) reconcileBand(bandName, bandPath string) (model.BandIndexEntry, error) {
	structure, err := s.detector.Analyze(bandPath)
	if err != nil {
		return model.BandIndexEntry{}, err
	}

	diskAlbums, err := s.discoverAlbums(bandPath)
	if err != nil {
		return model.BandIndexEntry{}, err
	}

	existing, err := s.bands.LoadBandMetadata(bandName)
	if err != nil {
		existing = model.BandMetadata{BandName: bandName}
	}

	reconciled := reconcileAlbums(existing, diskAlbums)
	reconciled.BandName = bandName
	reconciled.FolderStructure = structure

	res, err := s.bands.SaveBandMetadata(bandName, reconciled)
	if err != nil {
		return model.BandIndexEntry{}, err
	}

	localCount := len(reconciled.Albums)
	missingCount := len(reconciled.AlbumsMissing)

	return model.BandIndexEntry{
		BandName:         bandName,
		FolderPath:       bandName,
		AlbumsCount:      localCount + missingCount,
		LocalAlbumsCount: localCount,
		AlbumsMissing:    missingCount,
		HasMetadata:      true,
		Genres:           reconciled.Genres,
		StructureType:    structure.StructureType,
		StructureScore:   structure.StructureScore,
		HasAnalysis:      reconciled.Analyze != nil,
		LastScanned:      res.SavedAt,
		LastUpdated:      res.SavedAt,
	}, nil
}

// discoverAlbums walks bandPath one level (and one level deeper under
// type folders) to produce the on-disk Album list.
func (s *Scanner) discoverAlbums(bandPath string) ([]model.Album, error) {
	entries, err := os.ReadDir(bandPath)
	if err != nil {
		return nil, err
	}

	var albums []model.Album
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || s.isIgnored(name) {
			continue
		}

		if model.IsTypeFolderName(name) {
			children, err := os.ReadDir(filepath.Join(bandPath, name))
			if err != nil {
				continue
			}
			for _, c := range children {
				if !c.IsDir() || strings.HasPrefix(c.Name(), ".") || s.isIgnored(c.Name()) {
					continue
				}
				albums = append(albums, s.buildAlbum(folderparser.ParseEnhanced(c.Name(), name), filepath.Join(name, c.Name()), filepath.Join(bandPath, name, c.Name())))
			}
			continue
		}

		albums = append(albums, s.buildAlbum(folderparser.Parse(name), name, filepath.Join(bandPath, name)))
	}
	return albums, nil
}

func (s *Scanner) buildAlbum(parsed folderparser.ParseResult, folderPath, absPath string) model.Album {
	return model.Album{
		AlbumName:  parsed.AlbumName,
		Year:       parsed.Year,
		Type:       parsed.AlbumType,
		Edition:    parsed.Edition,
		FolderPath: folderPath,
		TrackCount: countMusicFiles(absPath),
	}
}

// countMusicFiles counts immediate children of dir matching
// musicExtensions.
func countMusicFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(musicExtensions, strings.ToLower(e.Name())); ok {
			count++
		}
	}
	return count
}

// reconcileAlbums applies spec.md §4.6 step 3's reconciliation rules
// against the existing per-band metadata.
func reconcileAlbums(existing model.BandMetadata, disk []model.Album) model.BandMetadata {
	byName := make(map[string]model.Album, len(existing.Albums))
	for _, a := range existing.Albums {
		byName[a.AlbumName] = a
	}
	missingByName := make(map[string]model.Album, len(existing.AlbumsMissing))
	for _, a := range existing.AlbumsMissing {
		missingByName[a.AlbumName] = a
	}

	seen := make(map[string]struct{}, len(disk))
	var albums []model.Album

	for _, d := range disk {
		seen[d.AlbumName] = struct{}{}

		if prior, ok := missingByName[d.AlbumName]; ok {
			albums = append(albums, mergeAlbum(prior, d))
			continue
		}
		if prior, ok := byName[d.AlbumName]; ok {
			albums = append(albums, mergeAlbum(prior, d))
			continue
		}
		albums = append(albums, d)
	}

	var missing []model.Album
	for name, a := range byName {
		if _, ok := seen[name]; !ok {
			a.Missing = true
			missing = append(missing, a)
		}
	}
	for name, a := range missingByName {
		if _, ok := seen[name]; !ok {
			missing = append(missing, a)
		}
	}

	result := existing
	result.Albums = albums
	result.AlbumsMissing = missing
	result.RecomputeAlbumsCount()
	return result
}

// mergeAlbum preserves user-authored fields on a retained album entry
// when the fresh disk parse would otherwise produce an empty value
// (spec.md §4.6 step 3).
func mergeAlbum(prior, fresh model.Album) model.Album {
	merged := fresh
	if merged.Genres == nil {
		merged.Genres = prior.Genres
	}
	if merged.Duration == "" {
		merged.Duration = prior.Duration
	}
	if merged.Edition == "" {
		merged.Edition = prior.Edition
	}
	merged.Missing = false
	return merged
}
