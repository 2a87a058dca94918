// Command cratalog-validate scans a music root and reports folder
// structure compliance, exiting non-zero when issues are found.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/kelseyhightower/envconfig"

	"github.com/cratalog/cratalog/internal/atomicstore"
	"github.com/cratalog/cratalog/internal/bandstore"
	"github.com/cratalog/cratalog/internal/collection"
	"github.com/cratalog/cratalog/internal/config"
	"github.com/cratalog/cratalog/internal/logging"
	"github.com/cratalog/cratalog/internal/model"
	"github.com/cratalog/cratalog/internal/scanner"
)

const (
	exitOK       = 0
	exitErrors   = 1
	exitWarnings = 2
)

// cliConfig holds this tool's own knobs, separate from the shared
// music-root/lock/backup settings in internal/config.
type cliConfig struct {
	Verbose bool `envconfig:"VERBOSE" default:"false"`
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func main() {
	os.Exit(run())
}

func run() int {
	var cli cliConfig
	_ = envconfig.Process("CRATALOG_VALIDATE", &cli)

	logger, err := logging.Init(logging.Config{Development: cli.Verbose})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		return exitErrors
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitErrors
	}

	start := time.Now()

	files := atomicstore.New(cfg.LockTimeout, cfg.BackupRetention)
	defer files.Close()
	bands := bandstore.New(cfg.MusicRoot, files)
	coll := collection.New(cfg.MusicRoot, files)
	s := scanner.New(cfg.MusicRoot, bands, coll, cfg.ScanWorkers, nil)

	progress := make(chan scanner.Progress, 16)
	done := make(chan error, 1)
	go func() { done <- s.Scan(progress) }()
	for p := range progress {
		if cli.Verbose {
			fmt.Fprintf(os.Stderr, "scanning: %s (%d/%d)\n", p.Phase, p.Current, p.Total)
		}
	}
	if err := <-done; err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		return exitErrors
	}

	idx, err := coll.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load collection index: %v\n", err)
		return exitErrors
	}

	type bandReport struct {
		name      string
		structure *model.FolderStructure
	}

	var reports []bandReport
	var totalErrors, totalWarnings int

	names := make([]string, 0, len(idx.Bands))
	for _, b := range idx.Bands {
		names = append(names, b.BandName)
	}
	sort.Strings(names)

	for _, name := range names {
		md, err := bands.LoadBandMetadata(name)
		if err != nil || md.FolderStructure == nil {
			continue
		}
		reports = append(reports, bandReport{name: name, structure: md.FolderStructure})
		for _, issue := range md.FolderStructure.Issues {
			switch issue.Kind {
			case model.IssueMissingYearPrefix, model.IssueInvalidYear, model.IssueEmptyTypeFolder:
				totalErrors++
			default:
				totalWarnings++
			}
		}
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("cratalog-validate — %s", cfg.MusicRoot)))
	fmt.Println()

	for _, r := range reports {
		statusStyle := okStyle
		if r.structure.NeedsMigration() {
			statusStyle = warnStyle
		}
		if len(r.structure.Issues) > 0 {
			statusStyle = errStyle
		}

		line := fmt.Sprintf("%-40s %-14s score=%-4d issues=%d",
			r.name, r.structure.StructureType.String(), r.structure.StructureScore, len(r.structure.Issues))
		fmt.Println(statusStyle.Render(line))

		for _, issue := range r.structure.Issues {
			fmt.Println(dimStyle.Render("    - " + issue.Message))
		}
	}

	fmt.Println()
	fmt.Printf("%d bands scanned, %s of JSON state under %s\n",
		len(reports), humanize.Bytes(uint64(indexSize(cfg.MusicRoot))), filepath.Base(cfg.MusicRoot))
	fmt.Printf("errors=%d warnings=%d (checked in %s)\n",
		totalErrors, totalWarnings, time.Since(start).Round(time.Millisecond))

	switch {
	case totalErrors > 0:
		return exitErrors
	case totalWarnings > 0:
		return exitWarnings
	default:
		return exitOK
	}
}

func indexSize(musicRoot string) int64 {
	info, err := os.Stat(filepath.Join(musicRoot, collection.IndexFileName))
	if err != nil {
		return 0
	}
	return info.Size()
}
