package model

import (
	"encoding/json"
	"time"
)

// AlbumAnalysis is the reduced per-album shape spec.md §4.4 step 3
// describes: no derived fields, just the caller-authored review data.
type AlbumAnalysis struct {
	AlbumName string `json:"album_name"`
	Review    string `json:"review"`
	Rate      int    `json:"rate"`
}

// BandAnalysis is user-authored review data (spec.md §3). Albums is
// keyed by album name, per spec.md §3. The two similar-bands lists are
// always disjoint; see bandstore's ReconcileSimilarBands for how that
// invariant is maintained.
type BandAnalysis struct {
	Review              string                   `json:"review"`
	Rate                int                      `json:"rate"`
	Albums              map[string]AlbumAnalysis `json:"albums"`
	SimilarBands        []string                 `json:"similar_bands"`
	SimilarBandsMissing []string                 `json:"similar_bands_missing"`
}

// BandMetadata is one artist's per-band store document (spec.md §3, §6).
type BandMetadata struct {
	BandName   string   `json:"band_name"`
	Formed     string   `json:"formed"`
	Genres     []string `json:"genres"`
	Origin     string   `json:"origin"`
	Members    []string `json:"members"`
	Description string  `json:"description"`

	Albums        []Album `json:"albums"`
	AlbumsMissing []Album `json:"albums_missing"`
	AlbumsCount   int     `json:"albums_count"`

	LastUpdated       time.Time  `json:"last_updated"`
	LastMetadataSaved *time.Time `json:"last_metadata_saved"`

	Analyze         *BandAnalysis    `json:"analyze"`
	FolderStructure *FolderStructure `json:"folder_structure"`
}

// bandMetadataWire mirrors BandMetadata's JSON shape but leaves
// AlbumsMissing as a raw message so UnmarshalJSON can detect whether the
// document used the old single-array-plus-missing-bool shape.
type bandMetadataWire struct {
	BandName    string   `json:"band_name"`
	Formed      string   `json:"formed"`
	Genres      []string `json:"genres"`
	Origin      string   `json:"origin"`
	Members     []string `json:"members"`
	Description string   `json:"description"`

	Albums        []Album          `json:"albums"`
	AlbumsMissing *[]Album         `json:"albums_missing"`
	AlbumsCount   int              `json:"albums_count"`

	LastUpdated       time.Time        `json:"last_updated"`
	LastMetadataSaved *time.Time       `json:"last_metadata_saved"`
	Analyze           *BandAnalysis    `json:"analyze"`
	FolderStructure   *FolderStructure `json:"folder_structure"`
}

// UnmarshalJSON implements the backward-compatibility rule in spec.md §6:
// a document with only a single "albums" array, where some entries carry
// "missing": true, is accepted; those entries are split into
// AlbumsMissing. A document that already has "albums_missing" is taken
// as authoritative and the per-entry Missing flags are ignored.
func (m *BandMetadata) UnmarshalJSON(data []byte) error {
	var wire bandMetadataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	m.BandName = wire.BandName
	m.Formed = wire.Formed
	m.Genres = wire.Genres
	m.Origin = wire.Origin
	m.Members = wire.Members
	m.Description = wire.Description
	m.AlbumsCount = wire.AlbumsCount
	m.LastUpdated = wire.LastUpdated
	m.LastMetadataSaved = wire.LastMetadataSaved
	m.Analyze = wire.Analyze
	m.FolderStructure = wire.FolderStructure

	if wire.AlbumsMissing != nil {
		m.Albums = wire.Albums
		m.AlbumsMissing = *wire.AlbumsMissing
		return nil
	}

	// Old shape: split the single array by the Missing flag.
	m.Albums = make([]Album, 0, len(wire.Albums))
	m.AlbumsMissing = nil
	for _, a := range wire.Albums {
		if a.Missing {
			m.AlbumsMissing = append(m.AlbumsMissing, a)
		} else {
			m.Albums = append(m.Albums, a)
		}
	}
	return nil
}

// MarshalJSON drops the legacy Missing flag's authority: it is still
// written per-album for readers that only understand the old shape, set
// according to which array the album actually lives in.
func (m BandMetadata) MarshalJSON() ([]byte, error) {
	albums := withMissingFlag(m.Albums, false)
	missing := withMissingFlag(m.AlbumsMissing, true)

	wire := bandMetadataWire{
		BandName:          m.BandName,
		Formed:            m.Formed,
		Genres:            m.Genres,
		Origin:            m.Origin,
		Members:           m.Members,
		Description:       m.Description,
		Albums:            albums,
		AlbumsMissing:     &missing,
		AlbumsCount:       m.AlbumsCount,
		LastUpdated:       m.LastUpdated,
		LastMetadataSaved: m.LastMetadataSaved,
		Analyze:           m.Analyze,
		FolderStructure:   m.FolderStructure,
	}
	return json.Marshal(wire)
}

func withMissingFlag(albums []Album, missing bool) []Album {
	out := make([]Album, len(albums))
	for i, a := range albums {
		a.Missing = missing
		out[i] = a
	}
	return out
}

// RecomputeAlbumsCount enforces the invariant
// albums_count = len(albums) + len(albums_missing) (spec.md §3, §8
// property 1).
func (m *BandMetadata) RecomputeAlbumsCount() {
	m.AlbumsCount = len(m.Albums) + len(m.AlbumsMissing)
}

// HasDuplicateAlbumNames reports whether any album name appears in both
// Albums and AlbumsMissing, which would violate spec.md §3's invariant.
func (m *BandMetadata) HasDuplicateAlbumNames() bool {
	present := make(map[string]struct{}, len(m.Albums))
	for _, a := range m.Albums {
		present[a.AlbumName] = struct{}{}
	}
	for _, a := range m.AlbumsMissing {
		if _, ok := present[a.AlbumName]; ok {
			return true
		}
	}
	return false
}
