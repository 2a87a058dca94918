// Package collection manages the top-level collection index document
// that aggregates a summary of every band under the music root.
package collection

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/cratalog/cratalog/internal/apperr"
	"github.com/cratalog/cratalog/internal/atomicstore"
	"github.com/cratalog/cratalog/internal/model"
)

// IndexFileName is the collection index's file name, relative to the
// music root.
const IndexFileName = ".collection_index.json"

// MetadataVersion names the version of the index document format this
// package reads and writes. It is not stored in the saved index:
// CollectionIndex has no version field.
const MetadataVersion = "1"

// Store manages the collection index document.
type Store struct {
	path  string
	files *atomicstore.Store
}

// New constructs a Store for the index file under musicRoot.
func New(musicRoot string, files *atomicstore.Store) *Store {
	return &Store{path: filepath.Join(musicRoot, IndexFileName), files: files}
}

// Load reads the current index, returning an empty index if none
// exists yet.
func (s *Store) Load() (model.CollectionIndex, error) {
	var idx model.CollectionIndex
	err := s.files.Load(s.path, &idx)
	if err == nil {
		return idx, nil
	}
	var nf *apperr.NotFoundError
	if errors.As(err, &nf) {
		return model.CollectionIndex{}, nil
	}
	return model.CollectionIndex{}, apperr.NewStorageError(apperr.OpUpdateIndex, s.path, err)
}

// Update upserts entries (by band name) into the index, recomputes
// stats, advances LastUpdated, and atomically saves.
func (s *Store) Update(entries []model.BandIndexEntry) (model.CollectionIndex, error) {
	idx, err := s.Load()
	if err != nil {
		return model.CollectionIndex{}, err
	}

	for _, e := range entries {
		idx.UpsertBand(e)
	}
	idx.RecomputeStats()
	idx.LastUpdated = time.Now()

	if err := s.files.Save(s.path, idx); err != nil {
		return model.CollectionIndex{}, apperr.NewStorageError(apperr.OpUpdateIndex, s.path, err)
	}
	return idx, nil
}

// Replace overwrites the index's band list wholesale (used by Scanner
// after a full rescan, so bands removed from disk are dropped rather
// than merely left stale). The saved insight, if any, is kept.
func (s *Store) Replace(entries []model.BandIndexEntry) (model.CollectionIndex, error) {
	idx := model.CollectionIndex{Bands: entries}
	if existing, err := s.Load(); err == nil {
		idx.Insights = existing.Insights
	}
	idx.RecomputeStats()
	idx.LastUpdated = time.Now()

	if err := s.files.Save(s.path, idx); err != nil {
		return model.CollectionIndex{}, apperr.NewStorageError(apperr.OpUpdateIndex, s.path, err)
	}
	return idx, nil
}

// SaveInsight replaces the collection's single CollectionInsight and
// persists the index (spec.md §4.5, §6: insights is one value or null,
// never a list).
func (s *Store) SaveInsight(insight model.CollectionInsight) error {
	idx, err := s.Load()
	if err != nil {
		return err
	}

	idx.Insights = &insight
	idx.LastUpdated = time.Now()

	if err := s.files.Save(s.path, idx); err != nil {
		return apperr.NewStorageError(apperr.OpSaveInsight, s.path, err)
	}
	return nil
}

// BandNames implements bandstore.CollectionBandNames against the
// current on-disk index, so SaveBandAnalyze's similar-bands
// reconciliation always checks against the latest scan.
func (s *Store) BandNames() []string {
	idx, err := s.Load()
	if err != nil {
		return nil
	}
	names := make([]string, len(idx.Bands))
	for i, b := range idx.Bands {
		names[i] = b.BandName
	}
	return names
}

// NameMatches reports whether query is a case-insensitive substring of
// name, used by QueryEngine's text search.
func NameMatches(name, query string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(query))
}

