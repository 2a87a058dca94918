// Package query implements the paginated, filtered, sorted band listing
// described in spec.md §4.9, operating over the collection index plus
// on-demand per-band metadata loads.
package query

import (
	"sort"
	"strings"

	"github.com/cratalog/cratalog/internal/bandstore"
	"github.com/cratalog/cratalog/internal/collection"
	"github.com/cratalog/cratalog/internal/model"
)

// SortField is one of the sortable columns spec.md §4.9 names.
type SortField int

const (
	SortByName SortField = iota
	SortByAlbumsCount
	SortByLastUpdated
	SortByCompletion
	SortByCompliance
)

// Order is ascending or descending.
type Order int

const (
	Ascending Order = iota
	Descending
)

const (
	minPageSize     = 1
	maxPageSize     = 100
	defaultPageSize = 20
)

// Request is every optional filter/sort/pagination knob spec.md §4.9
// describes.
type Request struct {
	Text             string
	Genre            string
	HasMetadata      *bool
	HasMissingAlbums *bool
	HasAlbumOfType   *model.AlbumType
	ComplianceLevel  *model.ConsistencyLevel
	StructureType    *model.StructureType

	IncludeAlbums bool
	AlbumsFilter  string // "", "local", or "missing"

	SortField SortField
	Order     Order

	Page     int
	PageSize int
}

// AlbumDetail is one album's detail payload (spec.md §4.9).
type AlbumDetail struct {
	AlbumName  string          `json:"album_name"`
	Year       string          `json:"year"`
	Type       model.AlbumType `json:"type"`
	Edition    string          `json:"edition"`
	TrackCount int             `json:"track_count"`
	Missing    bool            `json:"missing"`
	FolderPath string          `json:"folder_path"`
}

// BandResult is one row of a query response.
type BandResult struct {
	model.BandIndexEntry
	Completion float64       `json:"completion"`
	Compliance model.ConsistencyLevel `json:"compliance"`
	Albums     []AlbumDetail `json:"albums,omitempty"`
}

// Response is the full paginated query result.
type Response struct {
	Bands       []BandResult `json:"bands"`
	TotalBands  int          `json:"total_bands"`
	Page        int          `json:"page"`
	PageSize    int          `json:"page_size"`
	PageCount   int          `json:"page_count"`
	HasNext     bool         `json:"has_next"`
	HasPrevious bool         `json:"has_previous"`
}

// Engine answers Requests against a collection index and per-band
// metadata store.
type Engine struct {
	collection *collection.Store
	bands      *bandstore.Store
}

// New constructs a query Engine.
func New(coll *collection.Store, bands *bandstore.Store) *Engine {
	return &Engine{collection: coll, bands: bands}
}

// Run executes req and returns a paginated, filtered, sorted response.
func (e *Engine) Run(req Request) (Response, error) {
	idx, err := e.collection.Load()
	if err != nil {
		return Response{}, err
	}

	normalizePage(&req)

	candidates := make([]BandResult, 0, len(idx.Bands))
	for _, entry := range idx.Bands {
		result := BandResult{
			BandIndexEntry: entry,
			Completion:     completion(entry.AlbumsCount, entry.AlbumsMissing),
			Compliance:     model.ConsistencyFromScore(entry.StructureScore),
		}

		if !e.matchesIndexFilters(req, result) {
			continue
		}

		var md model.BandMetadata
		needsMetadata := req.IncludeAlbums || req.HasAlbumOfType != nil ||
			(req.Text != "" && wantsAlbumTextMatch(req))
		if needsMetadata {
			md, err = e.bands.LoadBandMetadata(entry.BandName)
			if err != nil {
				md = model.BandMetadata{BandName: entry.BandName}
			}
		}

		if req.HasAlbumOfType != nil && !hasAlbumOfType(md, *req.HasAlbumOfType) {
			continue
		}

		if req.Text != "" && !matchesText(req.Text, entry, md, req.IncludeAlbums) {
			continue
		}

		if req.IncludeAlbums {
			result.Albums = albumDetails(md, req.AlbumsFilter)
		}

		candidates = append(candidates, result)
	}

	sortResults(candidates, req.SortField, req.Order)

	total := len(candidates)
	pageCount := (total + req.PageSize - 1) / req.PageSize
	if pageCount == 0 {
		pageCount = 1
	}

	start := (req.Page - 1) * req.PageSize
	end := start + req.PageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Response{
		Bands:       candidates[start:end],
		TotalBands:  total,
		Page:        req.Page,
		PageSize:    req.PageSize,
		PageCount:   pageCount,
		HasNext:     req.Page < pageCount,
		HasPrevious: req.Page > 1,
	}, nil
}

func normalizePage(req *Request) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < minPageSize {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}
}

func completion(albumsCount, missingCount int) float64 {
	if albumsCount == 0 {
		return 100
	}
	present := albumsCount - missingCount
	return float64(present) / float64(albumsCount) * 100
}

func wantsAlbumTextMatch(req Request) bool {
	return req.IncludeAlbums
}

func (e *Engine) matchesIndexFilters(req Request, result BandResult) bool {
	entry := result.BandIndexEntry

	if req.Genre != "" && !genreMatches(entry.Genres, req.Genre) {
		return false
	}
	if req.HasMetadata != nil && entry.HasMetadata != *req.HasMetadata {
		return false
	}
	if req.HasMissingAlbums != nil && (entry.AlbumsMissing > 0) != *req.HasMissingAlbums {
		return false
	}
	if req.ComplianceLevel != nil && result.Compliance != *req.ComplianceLevel {
		return false
	}
	if req.StructureType != nil && entry.StructureType != *req.StructureType {
		return false
	}
	return true
}

func genreMatches(genres []string, query string) bool {
	query = strings.ToLower(query)
	for _, g := range genres {
		if strings.Contains(strings.ToLower(g), query) {
			return true
		}
	}
	return false
}

func hasAlbumOfType(md model.BandMetadata, albumType model.AlbumType) bool {
	for _, a := range md.Albums {
		if a.Type == albumType {
			return true
		}
	}
	for _, a := range md.AlbumsMissing {
		if a.Type == albumType {
			return true
		}
	}
	return false
}

func matchesText(query string, entry model.BandIndexEntry, md model.BandMetadata, includeAlbums bool) bool {
	if collection.NameMatches(entry.BandName, query) {
		return true
	}
	if !includeAlbums {
		return false
	}
	lower := strings.ToLower(query)
	for _, a := range md.Albums {
		if strings.Contains(strings.ToLower(a.AlbumName), lower) {
			return true
		}
	}
	for _, a := range md.AlbumsMissing {
		if strings.Contains(strings.ToLower(a.AlbumName), lower) {
			return true
		}
	}
	return false
}

func albumDetails(md model.BandMetadata, filter string) []AlbumDetail {
	var details []AlbumDetail
	if filter != "missing" {
		for _, a := range md.Albums {
			details = append(details, toDetail(a, false))
		}
	}
	if filter != "local" {
		for _, a := range md.AlbumsMissing {
			details = append(details, toDetail(a, true))
		}
	}
	return details
}

func toDetail(a model.Album, missing bool) AlbumDetail {
	return AlbumDetail{
		AlbumName:  a.AlbumName,
		Year:       a.Year,
		Type:       a.Type,
		Edition:    a.Edition,
		TrackCount: a.TrackCount,
		Missing:    missing,
		FolderPath: a.FolderPath,
	}
}

func sortResults(results []BandResult, field SortField, order Order) {
	less := func(i, j int) bool {
		a, b := results[i], results[j]
		switch field {
		case SortByAlbumsCount:
			return a.AlbumsCount < b.AlbumsCount
		case SortByLastUpdated:
			return a.LastUpdated.Before(b.LastUpdated)
		case SortByCompletion:
			return a.Completion < b.Completion
		case SortByCompliance:
			return a.StructureScore < b.StructureScore
		default:
			return strings.ToLower(a.BandName) < strings.ToLower(b.BandName)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if order == Descending {
			return less(j, i)
		}
		return less(i, j)
	})
}
