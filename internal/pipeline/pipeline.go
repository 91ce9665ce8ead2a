// Package pipeline runs the offline data steps in order: degree programs,
// curriculum tree, module pages, CSV export and vector indexing.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/config"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/curriculum"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/database"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/scrape"
)

// Collector is the scraping side of the pipeline.
type Collector interface {
	CollectPrograms(ctx context.Context, programsURL string) (int, error)
	CollectCurriculum(ctx context.Context, programID, curriculumURL string) ([]curriculum.Entry, error)
	CollectModules(ctx context.Context, entries []database.CurriculumEntry) (*scrape.Result, error)
}

// Indexer embeds and stores the courses of a program.
type Indexer interface {
	Run(ctx context.Context, programID string) (int, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	ProgramID string
	Steps     []StepResult
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the five data steps for one program.
type Pipeline struct {
	cfg       *config.Config
	db        *database.DB
	collector Collector
	indexer   Indexer
	exportDir string
	log       *logger.Logger
}

// New creates a new pipeline. indexer may be nil, in which case the index
// step is reported as skipped.
func New(cfg *config.Config, db *database.DB, collector Collector, indexer Indexer, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		cfg:       cfg,
		db:        db,
		collector: collector,
		indexer:   indexer,
		exportDir: cfg.GetDataDir(),
		log:       log,
	}
}

// Run executes all steps. A failing programs step is reported and the run
// continues with the configured curriculum URL; a failing curriculum step
// stops the run.
func (p *Pipeline) Run(ctx context.Context, programID string, retryFailed bool) *Result {
	r := &Result{ProgramID: programID}

	// Step 1: Programs
	r.Steps = append(r.Steps, p.runPrograms(ctx))

	// Step 2: Curriculum
	step := p.runCurriculum(ctx, programID)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 3: Modules
	step = p.runModules(ctx, programID, retryFailed)
	r.Steps = append(r.Steps, step)
	if ctx.Err() != nil {
		return r
	}

	// Step 4: Export
	r.Steps = append(r.Steps, p.runExport())

	// Step 5: Index
	r.Steps = append(r.Steps, p.runIndex(ctx, programID))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun(programID string) *Result {
	r := &Result{ProgramID: programID}

	step := StepResult{Name: "Programs"}
	if programs, err := p.db.GetPrograms(); err != nil {
		step.Summary, step.Err = fmt.Sprintf("[dry-run] reading degree programs: %v", err), err
	} else {
		step.Summary = fmt.Sprintf("[dry-run] %d degree programs already in DB", len(programs))
	}
	r.Steps = append(r.Steps, step)

	url, err := p.CurriculumURL(programID)
	summary := fmt.Sprintf("[dry-run] Would load curriculum of %s from %s", programID, url)
	if err != nil {
		summary = fmt.Sprintf("[dry-run] %v", err)
	}
	r.Steps = append(r.Steps, StepResult{Name: "Curriculum", Summary: summary})

	step = StepResult{Name: "Modules"}
	if needing, err := p.db.GetEntriesNeedingModules(programID, false); err != nil {
		step.Summary, step.Err = fmt.Sprintf("[dry-run] reading curriculum entries: %v", err), err
	} else {
		step.Summary = fmt.Sprintf("[dry-run] %d curriculum entries need module pages", len(needing))
	}
	r.Steps = append(r.Steps, step)

	r.Steps = append(r.Steps, StepResult{
		Name:    "Export",
		Summary: fmt.Sprintf("[dry-run] Would export CSV tables to %s", p.exportDir),
	})

	if p.indexer == nil {
		r.Steps = append(r.Steps, StepResult{Name: "Index", Summary: "[dry-run] No vector index configured"})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    "Index",
			Summary: fmt.Sprintf("[dry-run] Would index courses of %s", programID),
		})
	}
	return r
}

// CurriculumURL returns the curriculum page of programID: the configured URL
// for the configured program, else the link stored with the degree program.
func (p *Pipeline) CurriculumURL(programID string) (string, error) {
	if programID == p.cfg.Scrape.ProgramID && p.cfg.Scrape.CurriculumURL != "" {
		return p.cfg.Scrape.CurriculumURL, nil
	}
	programs, err := p.db.GetPrograms()
	if err != nil {
		return "", err
	}
	for _, prog := range programs {
		if prog.ID == programID && prog.CurriculumLink != "" {
			return prog.CurriculumLink, nil
		}
	}
	return "", fmt.Errorf("no curriculum link known for program %s; run 'advisor collect programs' first", programID)
}

func (p *Pipeline) runPrograms(ctx context.Context) StepResult {
	p.log.Info("Step 1/5: Collecting degree programs...")
	n, err := p.collector.CollectPrograms(ctx, p.cfg.Scrape.ProgramsURL)
	if err != nil {
		p.log.Warn("degree program collection failed", "error", err)
		return StepResult{Name: "Programs", Err: err}
	}
	return StepResult{Name: "Programs", Summary: fmt.Sprintf("Stored %d degree programs", n)}
}

func (p *Pipeline) runCurriculum(ctx context.Context, programID string) StepResult {
	p.log.Info("Step 2/5: Collecting curriculum tree...", "program_id", programID)
	url, err := p.CurriculumURL(programID)
	if err != nil {
		return StepResult{Name: "Curriculum", Err: err}
	}
	entries, err := p.collector.CollectCurriculum(ctx, programID, url)
	if err != nil {
		return StepResult{Name: "Curriculum", Err: err}
	}
	linked := 0
	for _, e := range entries {
		if e.Link != "" {
			linked++
		}
	}
	return StepResult{
		Name:    "Curriculum",
		Summary: fmt.Sprintf("Parsed %d curriculum entries (%d with module links)", len(entries), linked),
	}
}

func (p *Pipeline) runModules(ctx context.Context, programID string, retryFailed bool) StepResult {
	p.log.Info("Step 3/5: Collecting module pages...")
	entries, err := p.db.GetEntriesNeedingModules(programID, retryFailed)
	if err != nil {
		return StepResult{Name: "Modules", Err: err}
	}
	res, err := p.collector.CollectModules(ctx, entries)
	if res == nil {
		res = &scrape.Result{}
	}
	return StepResult{
		Name: "Modules",
		Summary: fmt.Sprintf("Processed %d modules: %d primary, %d fallback, %d failed, %d skipped",
			res.Processed, res.Primary, res.Fallback, res.Failed, res.Skipped),
		Err: err,
	}
}

func (p *Pipeline) runExport() StepResult {
	p.log.Info("Step 4/5: Exporting CSV tables...", "dir", p.exportDir)
	counts, err := p.db.ExportCSV(p.exportDir)
	if err != nil {
		return StepResult{Name: "Export", Err: err}
	}
	return StepResult{
		Name:    "Export",
		Summary: fmt.Sprintf("Exported %d courses to %s", counts[database.ModuleDetailsCSV], p.exportDir),
	}
}

func (p *Pipeline) runIndex(ctx context.Context, programID string) StepResult {
	if p.indexer == nil {
		return StepResult{Name: "Index", Summary: "Skipped: no vector index configured"}
	}
	p.log.Info("Step 5/5: Indexing courses...")
	n, err := p.indexer.Run(ctx, programID)
	if err != nil {
		return StepResult{Name: "Index", Err: errors.Join(fmt.Errorf("indexed %d courses before failing", n), err)}
	}
	return StepResult{Name: "Index", Summary: fmt.Sprintf("Indexed %d courses", n)}
}
