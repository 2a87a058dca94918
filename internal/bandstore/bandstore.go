// Package bandstore manages the per-band metadata file that lives
// alongside each band's music folder.
package bandstore

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/cratalog/cratalog/internal/apperr"
	"github.com/cratalog/cratalog/internal/atomicstore"
	"github.com/cratalog/cratalog/internal/logging"
	"github.com/cratalog/cratalog/internal/model"
)

// MetadataFileName is the per-band store's file name, relative to the
// band's folder.
const MetadataFileName = ".band_metadata.json"

// Store manages BandMetadata documents under a music root.
type Store struct {
	musicRoot string
	files     *atomicstore.Store
}

// New constructs a Store rooted at musicRoot, using files for the
// underlying locked/atomic JSON I/O.
func New(musicRoot string, files *atomicstore.Store) *Store {
	return &Store{musicRoot: musicRoot, files: files}
}

// MetadataPath returns the absolute path of bandFolder's metadata file.
func (s *Store) MetadataPath(bandFolder string) string {
	return filepath.Join(s.musicRoot, bandFolder, MetadataFileName)
}

// SaveResult summarizes a completed save_band_metadata call.
type SaveResult struct {
	BandName    string
	AlbumsCount int
	Path        string
	SavedAt     time.Time
}

// SaveBandMetadata writes incoming as bandFolder's metadata, preserve-
// merging analyze and folder_structure from the existing document when
// incoming does not explicitly supply them (spec.md §4.4 step 2).
func (s *Store) SaveBandMetadata(bandFolder string, incoming model.BandMetadata) (SaveResult, error) {
	path := s.MetadataPath(bandFolder)

	var existing model.BandMetadata
	err := s.files.Load(path, &existing)
	switch {
	case err == nil:
		if incoming.Analyze == nil {
			incoming.Analyze = existing.Analyze
		}
		if incoming.FolderStructure == nil {
			incoming.FolderStructure = existing.FolderStructure
		}
	case isNotFound(err):
		// No existing document: incoming is authoritative.
	case isDataCorrupt(err):
		// spec.md §7: corrupt existing data is treated as "no existing
		// data" for preserve-merge purposes; the caller's data wins.
		logging.Named("bandstore").Warn("existing metadata corrupt, treating as absent",
			logging.PathField(path))
	default:
		return SaveResult{}, apperr.NewStorageError(apperr.OpSaveBandMetadata, path, err)
	}

	now := time.Now()
	incoming.RecomputeAlbumsCount()
	incoming.LastUpdated = now
	incoming.LastMetadataSaved = &now

	if err := s.files.Save(path, incoming); err != nil {
		return SaveResult{}, apperr.NewStorageError(apperr.OpSaveBandMetadata, path, err)
	}

	return SaveResult{
		BandName:    incoming.BandName,
		AlbumsCount: incoming.AlbumsCount,
		Path:        path,
		SavedAt:     now,
	}, nil
}

// LoadBandMetadata loads bandFolder's metadata, or a NotFoundError if
// none exists yet.
func (s *Store) LoadBandMetadata(bandFolder string) (model.BandMetadata, error) {
	path := s.MetadataPath(bandFolder)
	var md model.BandMetadata
	if err := s.files.Load(path, &md); err != nil {
		if isNotFound(err) {
			return model.BandMetadata{}, apperr.NewNotFoundError(apperr.OpLoadBandMetadata, bandFolder)
		}
		return model.BandMetadata{}, err
	}
	return md, nil
}

// CollectionBandNames is the minimal view of the collection SaveBandAnalyze
// needs to reconcile similar-bands lists.
type CollectionBandNames interface {
	BandNames() []string
}

// SaveBandAnalyze loads or creates bandFolder's metadata, reconciles
// analysis.SimilarBands/SimilarBandsMissing against the current
// collection, reduces each AlbumAnalysis to its stored shape, and
// atomically writes the result (spec.md §4.4 save_band_analyze).
func (s *Store) SaveBandAnalyze(bandFolder string, analysis model.BandAnalysis, collection CollectionBandNames) (SaveResult, error) {
	md, err := s.LoadBandMetadata(bandFolder)
	if err != nil {
		if !isNotFound(err) {
			return SaveResult{}, apperr.NewStorageError(apperr.OpSaveBandAnalyze, bandFolder, err)
		}
		md = model.BandMetadata{BandName: bandFolder}
	}

	present, missing := ReconcileSimilarBands(analysis.SimilarBands, analysis.SimilarBandsMissing, collection.BandNames())
	analysis.SimilarBands = present
	analysis.SimilarBandsMissing = missing

	reduced := make(map[string]model.AlbumAnalysis, len(analysis.Albums))
	for name, a := range analysis.Albums {
		reduced[name] = model.AlbumAnalysis{AlbumName: a.AlbumName, Review: a.Review, Rate: a.Rate}
	}
	analysis.Albums = reduced

	md.Analyze = &analysis
	return s.SaveBandMetadata(bandFolder, md)
}

// ReconcileSimilarBands partitions the union of present and missing
// candidate names by case-insensitive membership in knownBands,
// returning two disjoint, deduplicated lists whose union is the input
// union (spec.md §4.4 step 2, §8 property 4).
func ReconcileSimilarBands(present, missing []string, knownBands []string) (resolvedPresent, resolvedMissing []string) {
	known := make(map[string]struct{}, len(knownBands))
	for _, n := range knownBands {
		known[strings.ToLower(n)] = struct{}{}
	}

	seen := make(map[string]struct{})
	var presentOut, missingOut []string
	add := func(name string) {
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		if _, ok := known[key]; ok {
			presentOut = append(presentOut, name)
		} else {
			missingOut = append(missingOut, name)
		}
	}

	for _, n := range present {
		add(n)
	}
	for _, n := range missing {
		add(n)
	}

	return presentOut, missingOut
}

func isNotFound(err error) bool {
	var nf *apperr.NotFoundError
	return errors.As(err, &nf)
}

func isDataCorrupt(err error) bool {
	var dc *apperr.DataCorruptError
	return errors.As(err, &dc)
}
