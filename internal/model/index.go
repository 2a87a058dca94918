package model

import (
	"sort"
	"time"
)

// BandIndexEntry is one row of the collection index (spec.md §3, §6):
// a lightweight summary of a band, maintained by Scanner without
// requiring a full BandMetadata load for listing/query operations.
// Invariant (spec.md §3, §8 property 2): AlbumsCount == LocalAlbumsCount
// + AlbumsMissing.
type BandIndexEntry struct {
	BandName              string         `json:"name"`
	FolderPath             string         `json:"folder_path"`
	AlbumsCount            int            `json:"albums_count"`
	LocalAlbumsCount       int            `json:"local_albums_count"`
	AlbumsMissing          int            `json:"missing_albums_count"`
	HasMetadata            bool           `json:"has_metadata"`
	Genres                 []string       `json:"genres"`
	StructureType          StructureType  `json:"structure_type,omitempty"`
	StructureScore         int            `json:"compliance_score,omitempty"`
	HasAnalysis            bool           `json:"has_analysis"`
	Rate                   int            `json:"rate,omitempty"`
	AlbumTypeDistribution  map[string]int `json:"album_type_distribution,omitempty"`
	LastScanned            time.Time      `json:"last_scanned"`
	LastUpdated            time.Time      `json:"last_updated"`
}

// CollectionStats are aggregate counters recomputed on every collection
// index update (spec.md §4.5).
type CollectionStats struct {
	TotalBands            int            `json:"total_bands"`
	TotalAlbums           int            `json:"total_albums"`
	TotalLocalAlbums      int            `json:"total_local_albums"`
	TotalMissingAlbums    int            `json:"total_missing_albums"`
	BandsByStructure      map[string]int `json:"bands_by_structure"`
	AverageStructureScore float64        `json:"average_structure_score"`
	// CompletionPercentage is total_local_albums / total_albums × 100,
	// with the 0/0 case mapped to 100.0 (spec.md §4.5).
	CompletionPercentage float64  `json:"completion_percentage"`
	TopGenres            []string `json:"top_genres"`
}

// CollectionInsight is a caller-authored, freeform annotation attached
// to the collection as a whole (spec.md §4.5's save_insight operation),
// analogous to BandAnalysis but collection-scoped.
type CollectionInsight struct {
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectionIndex is the top-level collection document (spec.md §3, §6).
// Insights is a single caller-authored annotation or nil — save_insight
// replaces it wholesale rather than appending (spec.md §4.5, §6).
type CollectionIndex struct {
	Bands       []BandIndexEntry   `json:"bands"`
	Stats       CollectionStats    `json:"stats"`
	Insights    *CollectionInsight `json:"insights"`
	LastUpdated time.Time          `json:"last_updated"`
}

// topGenresCount bounds how many genres RecomputeStats keeps in
// TopGenres.
const topGenresCount = 10

// RecomputeStats rebuilds Stats from Bands from scratch, per spec.md
// §4.5's "stats are always derived, never hand-edited" rule.
func (c *CollectionIndex) RecomputeStats() {
	stats := CollectionStats{
		BandsByStructure: make(map[string]int),
	}

	genreCounts := make(map[string]int)
	var scoreSum int
	for _, b := range c.Bands {
		stats.TotalBands++
		stats.TotalAlbums += b.AlbumsCount
		stats.TotalLocalAlbums += b.LocalAlbumsCount
		stats.TotalMissingAlbums += b.AlbumsMissing
		stats.BandsByStructure[b.StructureType.String()]++
		scoreSum += b.StructureScore
		for _, g := range b.Genres {
			genreCounts[g]++
		}
	}

	if stats.TotalBands > 0 {
		stats.AverageStructureScore = float64(scoreSum) / float64(stats.TotalBands)
	}

	// spec.md §4.5: completion_percentage = total_local_albums /
	// total_albums × 100, with totals==0 mapped to 100.0.
	if stats.TotalAlbums == 0 {
		stats.CompletionPercentage = 100.0
	} else {
		stats.CompletionPercentage = float64(stats.TotalLocalAlbums) / float64(stats.TotalAlbums) * 100
	}

	stats.TopGenres = topGenres(genreCounts, topGenresCount)

	c.Stats = stats
}

// topGenres returns up to n genre names ordered by descending frequency,
// breaking ties alphabetically for a deterministic result.
func topGenres(counts map[string]int, n int) []string {
	names := make([]string, 0, len(counts))
	for g := range counts {
		names = append(names, g)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

// FindBand returns the index for bandName and whether it exists.
func (c *CollectionIndex) FindBand(bandName string) (BandIndexEntry, bool) {
	for _, b := range c.Bands {
		if b.BandName == bandName {
			return b, true
		}
	}
	return BandIndexEntry{}, false
}

// UpsertBand inserts or replaces the entry for entry.BandName.
func (c *CollectionIndex) UpsertBand(entry BandIndexEntry) {
	for i, b := range c.Bands {
		if b.BandName == entry.BandName {
			c.Bands[i] = entry
			return
		}
	}
	c.Bands = append(c.Bands, entry)
}

// RemoveBand deletes the entry for bandName, if present.
func (c *CollectionIndex) RemoveBand(bandName string) {
	out := c.Bands[:0]
	for _, b := range c.Bands {
		if b.BandName != bandName {
			out = append(out, b)
		}
	}
	c.Bands = out
}
