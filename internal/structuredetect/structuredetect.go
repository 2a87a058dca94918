// Package structuredetect classifies a band folder's on-disk layout and
// scores how well it matches the canonical naming scheme.
package structuredetect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cratalog/cratalog/internal/folderparser"
	"github.com/cratalog/cratalog/internal/model"
)

// albumEntry is one discovered album folder, direct or nested under a
// type folder.
type albumEntry struct {
	parse      folderparser.ParseResult
	folderPath string
	inTypeFolder bool
}

// Detector walks a band directory and classifies its structure
// (spec.md §4.2).
type Detector struct{}

// New constructs a Detector.
func New() *Detector {
	return &Detector{}
}

// Analyze walks the immediate children of bandDir and produces the
// band's FolderStructure.
func (d *Detector) Analyze(bandDir string) (*model.FolderStructure, error) {
	entries, err := os.ReadDir(bandDir)
	if err != nil {
		return nil, fmt.Errorf("read band dir %s: %w", bandDir, err)
	}

	var albums []albumEntry
	typeFoldersFound := make([]string, 0)

	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		if model.IsTypeFolderName(name) {
			children, err := os.ReadDir(filepath.Join(bandDir, name))
			if err != nil {
				continue
			}
			hasAlbumChildren := false
			for _, c := range children {
				if c.IsDir() && !strings.HasPrefix(c.Name(), ".") {
					hasAlbumChildren = true
					break
				}
			}
			if !hasAlbumChildren {
				typeFoldersFound = append(typeFoldersFound, name)
				continue
			}

			typeFoldersFound = append(typeFoldersFound, name)
			for _, c := range children {
				if !c.IsDir() || strings.HasPrefix(c.Name(), ".") {
					continue
				}
				albums = append(albums, albumEntry{
					parse:        folderparser.ParseEnhanced(c.Name(), name),
					folderPath:   filepath.Join(name, c.Name()),
					inTypeFolder: true,
				})
			}
			continue
		}

		albums = append(albums, albumEntry{
			parse:      folderparser.Parse(name),
			folderPath: name,
		})
	}

	return d.score(albums, typeFoldersFound), nil
}

// score turns the discovered albums into the aggregate FolderStructure.
func (d *Detector) score(albums []albumEntry, typeFoldersFound []string) *model.FolderStructure {
	result := &model.FolderStructure{
		DetectedPatterns: []string{},
		TypeFoldersFound: typeFoldersFound,
		Recommendations:  []model.StructureIssue{},
		Issues:           []model.StructureIssue{},
	}

	result.AlbumsAnalyzed = len(albums)
	if len(albums) == 0 {
		result.StructureType = model.StructureUnknown
		result.Consistency = model.ConsistencyUnknown
		result.Recommendations, result.Issues = buildIssuesAndRecommendations(albums, typeFoldersFound, result)
		return result
	}

	patternCounts := make(map[model.PatternType]int)
	var complianceSum int
	nested, direct := 0, 0

	for _, a := range albums {
		patternCounts[a.parse.PatternType]++

		if a.parse.Year != "" {
			result.AlbumsWithYear++
		} else {
			result.AlbumsWithoutYear++
		}
		if a.inTypeFolder {
			result.AlbumsInTypeFolders++
			nested++
		} else {
			direct++
		}

		complianceSum += albumComplianceScore(a)
	}

	result.DetectedPatterns = patternNames(patternCounts)

	mostCommonCount := 0
	for _, c := range patternCounts {
		if c > mostCommonCount {
			mostCommonCount = c
		}
	}
	consistencyScore := int(float64(mostCommonCount) / float64(len(albums)) * 100)
	result.ConsistencyScore = consistencyScore
	result.Consistency = model.ConsistencyFromScore(consistencyScore)

	avgCompliance := float64(complianceSum) / float64(len(albums))
	yearPrefixRatio := float64(result.AlbumsWithYear) / float64(len(albums))
	typeOrgBonus := int(float64(result.AlbumsInTypeFolders) / float64(len(albums)) * 20)

	overall := avgCompliance*0.6 + float64(consistencyScore)*0.3 + yearPrefixRatio*10 + float64(typeOrgBonus)
	result.StructureScore = clamp(roundInt(overall), 0, 100)

	result.StructureType = classify(nested, direct, patternCounts)

	result.Recommendations, result.Issues = buildIssuesAndRecommendations(albums, typeFoldersFound, result)

	return result
}

// albumComplianceScore implements the per-album scoring rule (spec.md
// §4.2): start at 100, apply penalties/bonuses, clamp to [0,100].
func albumComplianceScore(a albumEntry) int {
	score := 100
	p := a.parse

	if p.Year == "" {
		score -= 30
	} else if !model.ValidYear(p.Year) {
		score -= 15
	}

	if len(p.AlbumName) < 2 {
		score -= 40
	}

	if p.Edition != "" {
		if folderparser.IsNormalizedEdition(p.Edition) {
			score += 5
		} else {
			score -= 5
		}
	}

	if a.inTypeFolder {
		score += 10
	}

	return clamp(score, 0, 100)
}

func classify(nested, direct int, patternCounts map[model.PatternType]int) model.StructureType {
	switch {
	case nested > 0 && direct == 0:
		return model.StructureEnhanced
	case nested > 0 && direct > 0:
		return model.StructureMixed
	default:
		for p, count := range patternCounts {
			if count > 0 && p.IsDefaultFamily() {
				return model.StructureDefault
			}
		}
		return model.StructureLegacy
	}
}

func buildIssuesAndRecommendations(albums []albumEntry, typeFoldersFound []string, result *model.FolderStructure) (recs, issues []model.StructureIssue) {
	for _, a := range albums {
		if a.parse.Year == "" {
			recs = append(recs, model.StructureIssue{
				Kind:    model.IssueMissingYearPrefix,
				Message: fmt.Sprintf("%q has no year prefix", a.parse.AlbumName),
				Album:   a.parse.AlbumName,
			})
		}
		if a.parse.Edition != "" && !folderparser.IsNormalizedEdition(a.parse.Edition) {
			issues = append(issues, model.StructureIssue{
				Kind:    model.IssueNonStandardEdition,
				Message: fmt.Sprintf("%q has a non-standard edition format", a.parse.AlbumName),
				Album:   a.parse.AlbumName,
			})
		}
		if len(a.parse.AlbumName) < 2 {
			issues = append(issues, model.StructureIssue{
				Kind:    model.IssueAlbumNameTooShort,
				Message: fmt.Sprintf("album name %q is too short", a.parse.AlbumName),
				Album:   a.parse.AlbumName,
			})
		}
	}

	if result.StructureType == model.StructureMixed {
		issues = append(issues, model.StructureIssue{
			Kind:    model.IssueMixedDirectAndNested,
			Message: "band folder mixes type-folder-nested and direct album folders",
		})
	}

	for _, tf := range typeFoldersFound {
		hasAlbum := false
		for _, a := range albums {
			if a.inTypeFolder && strings.HasPrefix(a.folderPath, tf+string(filepath.Separator)) {
				hasAlbum = true
				break
			}
		}
		if !hasAlbum {
			issues = append(issues, model.StructureIssue{
				Kind:    model.IssueEmptyTypeFolder,
				Message: fmt.Sprintf("type folder %q contains no albums", tf),
			})
		}
	}

	if len(result.DetectedPatterns) > 3 {
		recs = append(recs, model.StructureIssue{
			Kind:    model.IssueTooManyPatterns,
			Message: fmt.Sprintf("band folder mixes %d distinct naming patterns", len(result.DetectedPatterns)),
		})
	}

	return recs, issues
}

func patternNames(counts map[model.PatternType]int) []string {
	names := make([]string, 0, len(counts))
	for p, c := range counts {
		if c > 0 {
			names = append(names, p.String())
		}
	}
	sort.Strings(names)
	return names
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func roundInt(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
