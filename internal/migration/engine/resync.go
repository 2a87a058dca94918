package engine

import (
	"path/filepath"

	"github.com/cratalog/cratalog/internal/folderparser"
	"github.com/cratalog/cratalog/internal/migration/integrity"
	"github.com/cratalog/cratalog/internal/model"
	"github.com/cratalog/cratalog/internal/structuredetect"
)

// Finalize runs the post-execution integrity check and, if it passes,
// resynchronizes per-band metadata and the collection index (spec.md
// §4.8 "Post-execution integrity check", §4.8.2).
func (e *Engine) Finalize(req Request, result model.MigrationResult) (model.MigrationResult, integrity.Report, error) {
	metadataPath := e.bands.MetadataPath(req.BandName)
	report := integrity.Check(req.BandFolder, metadataPath, result.Operations)

	if report.DataLoss() || result.State != model.MigrationCompleted {
		result.State = model.MigrationFailed
		return result, report, nil
	}

	if err := e.resyncMetadata(req, result); err != nil {
		return result, report, err
	}

	structure, err := structuredetect.New().Analyze(req.BandFolder)
	if err == nil {
		result.ScoreAfter = structure.StructureScore
	}

	return result, report, nil
}

// resyncMetadata implements spec.md §4.8.2.
func (e *Engine) resyncMetadata(req Request, result model.MigrationResult) error {
	md, err := e.bands.LoadBandMetadata(req.BandName)
	if err != nil {
		md = model.BandMetadata{BandName: req.BandName}
	}

	byName := make(map[string]*model.AlbumMigrationOperation, len(result.Operations))
	for i := range result.Operations {
		op := &result.Operations[i]
		if op.State == model.OperationCompleted {
			byName[op.AlbumName] = op
		}
	}

	// spec.md §4.8.2 step 3: albums with no operation this run still need
	// folder_path recomputed under the post-migration target shape, since
	// the band's overall structure type (and thus every album's expected
	// location) may have changed.
	for i, a := range md.Albums {
		if op, ok := byName[a.AlbumName]; ok {
			md.Albums[i].Type = op.AlbumType
			md.Albums[i].FolderPath = relativeFolderPath(req.BandFolder, op.DestPath)
			continue
		}

		parse := folderparser.ParseResult{
			Year:      a.Year,
			AlbumName: a.AlbumName,
			Edition:   a.Edition,
			AlbumType: a.Type,
		}
		target := computeTargetPath(req.BandFolder, req.MigrationType, parse, a.Type)
		md.Albums[i].FolderPath = relativeFolderPath(req.BandFolder, target)
	}

	if md.FolderStructure != nil {
		switch req.MigrationType {
		case model.MigrationDefaultToEnhanced, model.MigrationMixedToEnhanced:
			md.FolderStructure.StructureType = model.StructureEnhanced
		case model.MigrationLegacyToDefault, model.MigrationEnhancedToDefault:
			md.FolderStructure.StructureType = model.StructureDefault
		}
	}

	saveRes, err := e.bands.SaveBandMetadata(req.BandName, md)
	if err != nil {
		return err
	}

	typeDistribution := make(map[string]int)
	for _, a := range md.Albums {
		typeDistribution[a.Type.String()]++
	}

	idx, _ := e.collection.Load()
	existing, found := idx.FindBand(req.BandName)
	if !found {
		existing = model.BandIndexEntry{BandName: req.BandName, FolderPath: req.BandName}
	}
	existing.LocalAlbumsCount = len(md.Albums)
	existing.AlbumsMissing = len(md.AlbumsMissing)
	existing.AlbumsCount = existing.LocalAlbumsCount + existing.AlbumsMissing
	existing.HasMetadata = true
	existing.LastUpdated = saveRes.SavedAt
	if md.FolderStructure != nil {
		existing.StructureType = md.FolderStructure.StructureType
		existing.StructureScore = md.FolderStructure.StructureScore
	}
	existing.AlbumTypeDistribution = typeDistribution

	_, err = e.collection.Update([]model.BandIndexEntry{existing})
	return err
}

func relativeFolderPath(bandFolder, absPath string) string {
	rel, err := filepath.Rel(bandFolder, absPath)
	if err != nil {
		return absPath
	}
	return rel
}
