package folderparser

import (
	"testing"

	"github.com/cratalog/cratalog/internal/model"
)

func TestParse_DefaultWithEdition(t *testing.T) {
	got := Parse("1994 - Burn My Eyes (Remastered)")
	if got.Year != "1994" {
		t.Errorf("Year = %q, want 1994", got.Year)
	}
	if got.AlbumName != "Burn My Eyes" {
		t.Errorf("AlbumName = %q, want %q", got.AlbumName, "Burn My Eyes")
	}
	if got.Edition != "Remastered" {
		t.Errorf("Edition = %q, want Remastered", got.Edition)
	}
	if got.PatternType != model.PatternDefaultWithEdition {
		t.Errorf("PatternType = %v, want default_with_edition", got.PatternType)
	}
}

func TestParse_DefaultWithUnknownParenthetical(t *testing.T) {
	got := Parse("1994 - Burn My Eyes (Japan Import)")
	if got.Year != "1994" {
		t.Errorf("Year = %q, want 1994", got.Year)
	}
	if got.AlbumName != "Burn My Eyes (Japan Import)" {
		t.Errorf("AlbumName = %q, want folded parenthetical", got.AlbumName)
	}
	if got.Edition != "" {
		t.Errorf("Edition = %q, want empty", got.Edition)
	}
	if got.PatternType != model.PatternDefaultNoEdition {
		t.Errorf("PatternType = %v, want default_no_edition", got.PatternType)
	}
}

func TestParse_DefaultNoEdition(t *testing.T) {
	got := Parse("1994 - Burn My Eyes")
	if got.PatternType != model.PatternDefaultNoEdition {
		t.Errorf("PatternType = %v, want default_no_edition", got.PatternType)
	}
	if got.AlbumName != "Burn My Eyes" {
		t.Errorf("AlbumName = %q", got.AlbumName)
	}
}

func TestParse_LegacyWithEdition(t *testing.T) {
	got := Parse("Burn My Eyes (Deluxe)")
	if got.PatternType != model.PatternLegacyWithEdition {
		t.Errorf("PatternType = %v, want legacy_with_edition", got.PatternType)
	}
	if got.Edition != "Deluxe Edition" {
		t.Errorf("Edition = %q, want Deluxe Edition", got.Edition)
	}
	if got.Year != "" {
		t.Errorf("Year = %q, want empty", got.Year)
	}
}

func TestParse_LegacyNoEdition(t *testing.T) {
	got := Parse("Burn My Eyes")
	if got.PatternType != model.PatternLegacyNoEdition {
		t.Errorf("PatternType = %v, want legacy_no_edition", got.PatternType)
	}
	if got.AlbumName != "Burn My Eyes" {
		t.Errorf("AlbumName = %q", got.AlbumName)
	}
}

func TestParse_InvalidYearFallsBackToLegacy(t *testing.T) {
	got := Parse("1600 - Too Old")
	if got.PatternType != model.PatternLegacyNoEdition {
		t.Errorf("PatternType = %v, want legacy_no_edition for out-of-range year", got.PatternType)
	}
	if got.Year != "" {
		t.Errorf("Year = %q, want empty for invalid year", got.Year)
	}
}

func TestParse_Empty(t *testing.T) {
	got := Parse("")
	if got.PatternType != model.PatternInvalid {
		t.Errorf("PatternType = %v, want invalid", got.PatternType)
	}
}

func TestParse_AlbumNameNormalization(t *testing.T) {
	got := Parse("1994 - Burn  My   Eyes")
	if got.AlbumName != "Burn My Eyes" {
		t.Errorf("AlbumName = %q, want collapsed whitespace", got.AlbumName)
	}

	got = Parse("1994 - Vol.1,The Beginning")
	if got.AlbumName != "Vol. 1, The Beginning" {
		t.Errorf("AlbumName = %q, want punctuation spaced", got.AlbumName)
	}

	got = Parse("1994 - Trailing Dots...")
	if got.AlbumName != "Trailing Dots" {
		t.Errorf("AlbumName = %q, want trailing dots stripped", got.AlbumName)
	}

	got = Parse("1994 - Trailing Comma,")
	if got.AlbumName != "Trailing Comma" {
		t.Errorf("AlbumName = %q, want trailing comma stripped", got.AlbumName)
	}
}

func TestParse_TypeKeywordDetection(t *testing.T) {
	got := Parse("1999 - Unplugged In New York")
	if got.AlbumType != model.AlbumTypeAlbum {
		t.Errorf("AlbumType = %v, want Album for plain text without keyword in name", got.AlbumType)
	}

	got = Parse("1999 - Live At Wembley (Live)")
	if got.AlbumType != model.AlbumTypeLive {
		t.Errorf("AlbumType = %v, want Live", got.AlbumType)
	}
}

func TestParseEnhanced_TypeFolderParent(t *testing.T) {
	got := ParseEnhanced("1994 - Burn My Eyes", "Albums")
	if got.PatternType != model.PatternEnhancedDefaultNoEdition {
		t.Errorf("PatternType = %v, want enhanced_default_no_edition", got.PatternType)
	}
	if got.AlbumType != model.AlbumTypeAlbum {
		t.Errorf("AlbumType = %v, want Album", got.AlbumType)
	}

	got = ParseEnhanced("Pantera Tribute", "Live")
	if got.AlbumType != model.AlbumTypeLive {
		t.Errorf("AlbumType = %v, want Live from type-folder parent", got.AlbumType)
	}
	if got.PatternType != model.PatternEnhancedLegacyNoEdition {
		t.Errorf("PatternType = %v, want enhanced_legacy_no_edition", got.PatternType)
	}
}

func TestParseEnhanced_NonTypeFolderParentIsDirect(t *testing.T) {
	got := ParseEnhanced("1994 - Burn My Eyes", "Machine Head")
	if got.PatternType != model.PatternDefaultNoEdition {
		t.Errorf("PatternType = %v, want unenhanced default_no_edition for non-type parent", got.PatternType)
	}
}

func TestIsNormalizedEdition(t *testing.T) {
	if !IsNormalizedEdition("Deluxe Edition") {
		t.Error("IsNormalizedEdition(\"Deluxe Edition\") = false, want true")
	}
	if IsNormalizedEdition("deluxe") {
		t.Error("IsNormalizedEdition(\"deluxe\") = true, want false (not canonical form)")
	}
	if IsNormalizedEdition("Not An Edition") {
		t.Error("IsNormalizedEdition(\"Not An Edition\") = true, want false (unknown keyword)")
	}
}
