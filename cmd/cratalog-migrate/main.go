// Command cratalog-migrate validates and (after confirmation) executes a
// folder structure migration for a single band.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cratalog/cratalog/internal/atomicstore"
	"github.com/cratalog/cratalog/internal/bandstore"
	"github.com/cratalog/cratalog/internal/collection"
	"github.com/cratalog/cratalog/internal/config"
	"github.com/cratalog/cratalog/internal/logging"
	"github.com/cratalog/cratalog/internal/migration/engine"
	"github.com/cratalog/cratalog/internal/migration/validator"
	"github.com/cratalog/cratalog/internal/model"
)

var migrationTypes = map[string]model.MigrationType{
	"default-to-enhanced": model.MigrationDefaultToEnhanced,
	"legacy-to-default":   model.MigrationLegacyToDefault,
	"mixed-to-enhanced":   model.MigrationMixedToEnhanced,
	"enhanced-to-default": model.MigrationEnhancedToDefault,
}

func main() {
	band := flag.String("band", "", "band folder name under the music root")
	migType := flag.String("type", "", "one of: default-to-enhanced, legacy-to-default, mixed-to-enhanced, enhanced-to-default")
	yes := flag.Bool("yes", false, "skip the confirmation prompt")
	force := flag.Bool("force", false, "proceed past Error-severity validation issues")
	dryRun := flag.Bool("dry-run", false, "plan and validate only, never touch the filesystem")
	backup := flag.Bool("backup", false, "copy the band folder aside before migrating")
	overridesPath := flag.String("overrides", "", "path to a migration overrides JSON file")
	flag.Parse()

	if *band == "" || *migType == "" {
		fmt.Fprintln(os.Stderr, "usage: cratalog-migrate -band <name> -type <migration-type> [-yes] [-dry-run] [-backup] [-overrides path]")
		os.Exit(2)
	}
	mt, ok := migrationTypes[*migType]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -type %q\n", *migType)
		os.Exit(2)
	}

	logger, err := logging.Init(logging.Config{Development: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	files := atomicstore.New(cfg.LockTimeout, cfg.BackupRetention)
	defer files.Close()
	bands := bandstore.New(cfg.MusicRoot, files)
	coll := collection.New(cfg.MusicRoot, files)
	eng := engine.New(bands, coll)

	req := engine.Request{
		BandName:       *band,
		BandFolder:     filepath.Join(cfg.MusicRoot, *band),
		MigrationType:  mt,
		DryRun:         *dryRun,
		BackupOriginal: *backup,
		Force:          *force,
	}

	if *overridesPath != "" {
		req, err = engine.LoadOverrides(req, *overridesPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load overrides: %v\n", err)
			os.Exit(1)
		}
	}

	ops, err := eng.Plan(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "plan: %v\n", err)
		os.Exit(1)
	}

	report := validator.Validate(validator.Request{
		BandFolder:    req.BandFolder,
		MigrationType: mt,
		Operations:    ops,
		DryRun:        *dryRun,
		Force:         *force,
	})

	if !report.Passes(*force) {
		printReport(report)
		fmt.Fprintln(os.Stderr, "validation blocked this migration; rerun with -force to override Error-level issues")
		os.Exit(1)
	}

	if len(ops) == 0 {
		fmt.Println("nothing to migrate")
		return
	}

	printReport(report)

	if !*yes {
		confirmed, err := confirmPrompt(ops)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		if !confirmed {
			fmt.Println("aborted")
			return
		}
	}

	result, err := eng.Run(req, ops)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}

	if req.DryRun {
		fmt.Println("dry run complete, no files were moved")
		return
	}

	finalResult, integrityReport, err := eng.Finalize(req, result)
	if err != nil {
		fmt.Fprintf(os.Stderr, "post-migration resync failed: %v\n", err)
		os.Exit(1)
	}
	if integrityReport.DataLoss() {
		fmt.Fprintln(os.Stderr, "integrity check found data loss:")
		for _, p := range integrityReport.Problems {
			fmt.Fprintln(os.Stderr, "  - "+p)
		}
		os.Exit(1)
	}

	fmt.Printf("migration complete: %d of %d albums moved, structure score now %d\n",
		finalResult.CompletedCount(), len(finalResult.Operations), finalResult.ScoreAfter)
}

func printReport(r validator.Report) {
	if len(r.Issues) == 0 {
		fmt.Println("no validation issues")
		return
	}
	for _, issue := range r.Issues {
		fmt.Printf("[%s] %s\n", issue.Severity, issue.Message)
	}
}

var (
	promptTitleStyle = lipgloss.NewStyle().Bold(true)
	promptOpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type confirmModel struct {
	ops       []model.AlbumMigrationOperation
	confirmed bool
	done      bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch keyMsg.String() {
	case "y", "Y":
		m.confirmed = true
		m.done = true
		return m, tea.Quit
	case "n", "N", "esc", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(promptTitleStyle.Render(fmt.Sprintf("%d album(s) will move:", len(m.ops))))
	b.WriteString("\n")
	for _, op := range m.ops {
		b.WriteString(promptOpStyle.Render(fmt.Sprintf("  %s -> %s", op.SourcePath, op.DestPath)))
		b.WriteString("\n")
	}
	b.WriteString("\nProceed? [y/N] ")
	return b.String()
}

func confirmPrompt(ops []model.AlbumMigrationOperation) (bool, error) {
	p := tea.NewProgram(confirmModel{ops: ops})
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	return final.(confirmModel).confirmed, nil
}
