// Package integrity verifies a completed migration moved data safely.
package integrity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/cratalog/cratalog/internal/model"
)

const musicExtensions = "*.{mp3,flac,wav,aac,m4a,ogg,wma,mp4,m4p}"

// Report is the outcome of an integrity check (spec.md §4.8.1).
type Report struct {
	AlbumsVerified   int
	FilesMissing     int
	PermissionIssues int
	Problems         []string
}

// DataLoss reports whether the check discovered a data-loss condition,
// which per spec.md §4.8.1 is the only thing that blocks on its own.
func (r Report) DataLoss() bool {
	return r.FilesMissing > 0
}

// Check verifies every completed operation plus the band folder and
// metadata file as a whole (spec.md §4.8.1).
func Check(bandFolder, metadataPath string, operations []model.AlbumMigrationOperation) Report {
	var report Report

	for _, op := range operations {
		if op.State != model.OperationCompleted {
			continue
		}

		info, err := os.Stat(op.DestPath)
		if err != nil {
			report.FilesMissing++
			report.Problems = append(report.Problems, "target missing: "+op.DestPath)
			continue
		}
		if !info.IsDir() {
			report.PermissionIssues++
			report.Problems = append(report.Problems, "target is not a directory: "+op.DestPath)
			continue
		}

		if op.Type == model.OperationMove {
			if _, err := os.Stat(op.SourcePath); err == nil {
				report.Problems = append(report.Problems, "source still exists after move: "+op.SourcePath)
			}
		}

		entries, err := os.ReadDir(op.DestPath)
		if err != nil {
			report.PermissionIssues++
			report.Problems = append(report.Problems, "target unreadable: "+op.DestPath)
			continue
		}
		if len(entries) == 0 {
			report.FilesMissing++
			report.Problems = append(report.Problems, "target contains no files: "+op.DestPath)
			continue
		}

		if !hasMusicFile(entries) {
			report.Problems = append(report.Problems, "target contains no recognized music file: "+op.DestPath)
		}

		report.AlbumsVerified++
	}

	if _, err := os.Stat(bandFolder); err != nil {
		report.Problems = append(report.Problems, "band folder no longer exists: "+bandFolder)
	} else {
		checkNoAlbumsAtRoot(bandFolder, &report)
	}

	if metadataPath != "" {
		if data, err := os.ReadFile(metadataPath); err == nil {
			var v map[string]any
			if err := json.Unmarshal(data, &v); err != nil {
				report.Problems = append(report.Problems, "metadata file does not parse as a JSON object: "+metadataPath)
			}
		}
	}

	return report
}

func hasMusicFile(entries []os.DirEntry) bool {
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := doublestar.Match(musicExtensions, strings.ToLower(e.Name())); ok {
			return true
		}
	}
	return false
}

// checkNoAlbumsAtRoot flags every album folder (a non-type-folder
// directory holding a recognized music file) directly under the band
// root. Check runs it whatever the migration's target structure, so
// after a migration to the Default layout each album at the root is
// reported as a problem; these reports do not count toward DataLoss.
func checkNoAlbumsAtRoot(bandFolder string, report *Report) {
	entries, err := os.ReadDir(bandFolder)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") || model.IsTypeFolderName(name) {
			continue
		}
		if looksLikeAlbumFolder(filepath.Join(bandFolder, name)) {
			report.Problems = append(report.Problems, "album folder found directly under band root: "+name)
		}
	}
}

func looksLikeAlbumFolder(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	return hasMusicFile(entries)
}
