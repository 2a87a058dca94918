// Package folderparser turns album and band folder names into the
// structured fields the rest of the system reasons about: year, album
// name, edition, and naming pattern.
package folderparser

import (
	"regexp"
	"strings"

	"github.com/cratalog/cratalog/internal/model"
)

var (
	// reDefaultWithParen matches "YYYY - Name (Parenthetical)".
	reDefaultWithParen = regexp.MustCompile(`^(\d{4})\s*-\s*(.+?)\s*\(([^)]+)\)\s*$`)
	// reDefaultNoParen matches "YYYY - Name" with no trailing parenthetical.
	reDefaultNoParen = regexp.MustCompile(`^(\d{4})\s*-\s*(.+)$`)
	// reLegacyWithParen matches "Name (Parenthetical)".
	reLegacyWithParen = regexp.MustCompile(`^(.+?)\s*\(([^)]+)\)\s*$`)

	reMultiSpace    = regexp.MustCompile(`\s+`)
	rePunctNoSpace  = regexp.MustCompile(`([.,:])(\S)`)
	reTrailingDots  = regexp.MustCompile(`\.{2,}\s*$`)
	reTrailingComma = regexp.MustCompile(`,\s*$`)
)

// editionVocabulary maps a lowercase edition keyword to its canonical
// display form.
var editionVocabulary = map[string]string{
	"deluxe":          "Deluxe Edition",
	"deluxe edition":  "Deluxe Edition",
	"limited":         "Limited Edition",
	"limited edition":  "Limited Edition",
	"anniversary":     "Anniversary Edition",
	"remastered":      "Remastered",
	"remaster":        "Remastered",
	"remix":           "Remix",
	"special":         "Special Edition",
	"special edition": "Special Edition",
	"expanded":        "Expanded Edition",
	"director's cut":  "Director's Cut",
	"directors cut":   "Director's Cut",
	"collector's":     "Collector's Edition",
	"collectors":      "Collector's Edition",
	"premium":         "Premium Edition",
	"ultimate":        "Ultimate Edition",
	"bonus":           "Bonus Edition",
	"extended":        "Extended Edition",
	"platinum":        "Platinum Edition",
	"gold":            "Gold Edition",
	"complete":        "Complete Edition",
	"definitive":      "Definitive Edition",
}

// typeKeywordsInEdition are type-ish words the edition slot also
// accepts, per spec.md §4.1 ("plus type keywords Live, Demo,
// Instrumental, Split, Acoustic, Unplugged").
var typeKeywordsInEdition = map[string]string{
	"live":         "Live",
	"demo":         "Demo",
	"instrumental": "Instrumental",
	"split":        "Split",
	"acoustic":     "Acoustic",
	"unplugged":    "Unplugged",
}

// normalizeEdition returns the canonical form of a parenthetical and
// whether it is recognized as an edition keyword at all.
func normalizeEdition(raw string) (canonical string, known bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := editionVocabulary[key]; ok {
		return canon, true
	}
	if canon, ok := typeKeywordsInEdition[key]; ok {
		return canon, true
	}
	return raw, false
}

// IsNormalizedEdition reports whether raw is already in its canonical
// display form, used by StructureDetector's compliance scoring.
func IsNormalizedEdition(raw string) bool {
	canon, known := normalizeEdition(raw)
	return known && canon == raw
}

// normalizeAlbumName applies spec.md §4.1's whitespace and punctuation
// cleanup rules.
func normalizeAlbumName(name string) string {
	name = strings.TrimSpace(name)
	name = reMultiSpace.ReplaceAllString(name, " ")
	name = reTrailingDots.ReplaceAllString(name, "")
	name = reTrailingComma.ReplaceAllString(name, "")
	name = rePunctNoSpace.ReplaceAllString(name, "$1 $2")
	return strings.TrimSpace(name)
}

// ParseResult is FolderParser's output for a single folder name.
type ParseResult struct {
	Year        string
	AlbumName   string
	Edition     string
	PatternType model.PatternType
	AlbumType   model.AlbumType
}

// Parse classifies a folder name in isolation, without any type-folder
// context (spec.md §4.1, patterns 1-5).
func Parse(folderName string) ParseResult {
	folderName = strings.TrimSpace(folderName)
	if folderName == "" {
		return ParseResult{PatternType: model.PatternInvalid, AlbumType: model.AlbumTypeAlbum}
	}

	if m := reDefaultWithParen.FindStringSubmatch(folderName); m != nil {
		year, rawName, rawEdition := m[1], m[2], m[3]
		if model.ValidYear(year) {
			if canon, known := normalizeEdition(rawEdition); known {
				name := normalizeAlbumName(rawName)
				return ParseResult{
					Year:        year,
					AlbumName:   name,
					Edition:     canon,
					PatternType: model.PatternDefaultWithEdition,
					AlbumType:   model.DetectAlbumTypeFromText(name + " " + canon),
				}
			}
			// Unknown parenthetical: fold it back into the album name,
			// per spec.md §4.1 pattern 2.
			name := normalizeAlbumName(rawName + " (" + rawEdition + ")")
			return ParseResult{
				Year:        year,
				AlbumName:   name,
				PatternType: model.PatternDefaultNoEdition,
				AlbumType:   model.DetectAlbumTypeFromText(name),
			}
		}
	}

	if m := reDefaultNoParen.FindStringSubmatch(folderName); m != nil {
		year, rawName := m[1], m[2]
		if model.ValidYear(year) {
			name := normalizeAlbumName(rawName)
			return ParseResult{
				Year:        year,
				AlbumName:   name,
				PatternType: model.PatternDefaultNoEdition,
				AlbumType:   model.DetectAlbumTypeFromText(name),
			}
		}
	}

	if m := reLegacyWithParen.FindStringSubmatch(folderName); m != nil {
		rawName, rawEdition := m[1], m[2]
		if canon, known := normalizeEdition(rawEdition); known {
			name := normalizeAlbumName(rawName)
			return ParseResult{
				AlbumName:   name,
				Edition:     canon,
				PatternType: model.PatternLegacyWithEdition,
				AlbumType:   model.DetectAlbumTypeFromText(name + " " + canon),
			}
		}
	}

	name := normalizeAlbumName(folderName)
	if name == "" {
		return ParseResult{PatternType: model.PatternInvalid, AlbumType: model.AlbumTypeAlbum}
	}
	return ParseResult{
		AlbumName:   name,
		PatternType: model.PatternLegacyNoEdition,
		AlbumType:   model.DetectAlbumTypeFromText(name),
	}
}

// ParseEnhanced classifies an album folder that lives one level below a
// type-folder parent (spec.md §4.1's "Enhanced-structure parsing"). If
// parentDirName is a recognized type folder, the result's pattern gets
// the enhanced_ prefix and AlbumType is taken from the parent rather
// than detected from text.
func ParseEnhanced(folderName, parentDirName string) ParseResult {
	result := Parse(folderName)
	if !model.IsTypeFolderName(parentDirName) {
		return result
	}
	result.AlbumType = model.ParseAlbumType(parentDirName)
	result.PatternType = result.PatternType.Enhanced()
	return result
}
