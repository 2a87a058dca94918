package engine

import (
	"encoding/json"
	"os"

	"github.com/RaveNoX/go-jsoncommentstrip"

	"github.com/cratalog/cratalog/internal/apperr"
	"github.com/cratalog/cratalog/internal/model"
)

// overridesDocument is the on-disk shape of a migration overrides file:
// per-album forced types and an exclude list, authored by hand alongside
// `//` line comments explaining each override (spec.md §4.8 "Overrides").
type overridesDocument struct {
	Types   map[string]string `json:"types"`
	Exclude []string          `json:"exclude"`
}

// LoadOverrides reads a JSON overrides file that may contain `//` line
// comments and merges it into req's TypeOverrides/ExcludeAlbums.
func LoadOverrides(req Request, path string) (Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return req, apperr.NewStorageError(apperr.OpPlanMigration, path, err)
	}
	defer f.Close()

	var doc overridesDocument
	if err := json.NewDecoder(jsoncommentstrip.Strip(f)).Decode(&doc); err != nil {
		return req, apperr.NewDataCorruptError(apperr.OpPlanMigration, path, err)
	}

	if req.TypeOverrides == nil {
		req.TypeOverrides = make(map[string]model.AlbumType, len(doc.Types))
	}
	for album, typeName := range doc.Types {
		req.TypeOverrides[album] = model.ParseAlbumType(typeName)
	}

	if req.ExcludeAlbums == nil {
		req.ExcludeAlbums = make(map[string]bool, len(doc.Exclude))
	}
	for _, album := range doc.Exclude {
		req.ExcludeAlbums[album] = true
	}

	return req, nil
}
