// Package scrape drives the page sources over degree programs, curriculum
// trees and module handbook pages and persists the parsed results.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/curriculum"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/database"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/fetch"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/metrics"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/module"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/retry"
)

var errBrowserPage = errors.New("page served a browser-not-supported notice")

// Store is the persistence the collector writes to.
type Store interface {
	UpsertPrograms(programs []curriculum.DegreeProgram) (int, error)
	SaveCurriculum(programID string, entries []curriculum.Entry) error
	SaveModule(rec *module.Record) error
}

// TreeBrowser is an interactive session able to expand the curriculum tree
// before its markup is read.
type TreeBrowser interface {
	Navigate(ctx context.Context, pageURL string) error
	SwitchToEnglish(ctx context.Context) error
	ExpandTree(ctx context.Context, maxDepth, batchSize int) (int, error)
	HTML(ctx context.Context) (string, error)
}

// Options tunes a Collector.
type Options struct {
	BaseURL   string
	MaxDepth  int
	BatchSize int
	Retry     retry.Policy
	// Pacing is the minimum gap between module pages; Jitter adds a random
	// extra delay up to its value.
	Pacing time.Duration
	Jitter time.Duration
}

// Collector scrapes pages one at a time.
type Collector struct {
	source  fetch.Source
	tree    TreeBrowser
	store   Store
	opts    Options
	limiter *rate.Limiter
	log     *logger.Logger
	metrics *metrics.Metrics
}

// Result holds the counts of a module collection run.
type Result struct {
	Processed int
	Primary   int
	Fallback  int
	Failed    int
	Skipped   int
}

// New creates a collector. tree may be nil, in which case curriculum pages
// are read through source without expanding the tree.
func New(source fetch.Source, tree TreeBrowser, store Store, opts Options, log *logger.Logger, m *metrics.Metrics) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = curriculum.DefaultBaseURL
	}
	limit := rate.Inf
	if opts.Pacing > 0 {
		limit = rate.Every(opts.Pacing)
	}
	if opts.Retry.Retryable == nil {
		opts.Retry.Retryable = fetch.Retryable
	}
	return &Collector{
		source:  source,
		tree:    tree,
		store:   store,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		metrics: m,
	}
}

func (c *Collector) policy(item string) retry.Policy {
	p := c.opts.Retry
	p.Notify = func(attempt int, err error, wait time.Duration) {
		c.log.Warn("attempt failed, retrying", "item", item, "attempt", attempt, "wait", wait, "error", err)
	}
	return p
}

// CollectPrograms scrapes the degree program list and stores it.
func (c *Collector) CollectPrograms(ctx context.Context, programsURL string) (int, error) {
	if programsURL == "" {
		programsURL = curriculum.ProgramsURL(c.opts.BaseURL)
	}
	var page fetch.Page
	err := c.policy("programs").Do(ctx, func(ctx context.Context) error {
		var err error
		page, err = c.source.Fetch(ctx, programsURL)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("loading program list: %w", err)
	}

	programs, err := curriculum.ExtractPrograms(page.HTML, c.opts.BaseURL)
	if err != nil {
		return 0, err
	}
	n, err := c.store.UpsertPrograms(programs)
	if err != nil {
		return 0, fmt.Errorf("storing programs: %w", err)
	}
	c.log.Info("degree programs collected", "programs", n)
	return n, nil
}

// CollectCurriculum loads the curriculum tree of one program, parses it and
// replaces the stored entries.
func (c *Collector) CollectCurriculum(ctx context.Context, programID, curriculumURL string) ([]curriculum.Entry, error) {
	html, err := c.curriculumHTML(ctx, curriculumURL)
	if err != nil {
		return nil, err
	}

	rows, err := curriculum.ExtractRows(html, c.opts.BaseURL)
	if err != nil {
		return nil, err
	}
	entries := curriculum.Parse(programID, rows)
	if err := c.store.SaveCurriculum(programID, entries); err != nil {
		return nil, fmt.Errorf("storing curriculum: %w", err)
	}
	c.log.Info("curriculum collected", "program_id", programID, "rows", len(rows), "entries", len(entries))
	return entries, nil
}

func (c *Collector) curriculumHTML(ctx context.Context, curriculumURL string) (string, error) {
	if c.tree == nil {
		var page fetch.Page
		err := c.policy("curriculum").Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = c.source.Fetch(ctx, curriculumURL)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("loading curriculum: %w", err)
		}
		return page.HTML, nil
	}

	err := c.policy("curriculum").Do(ctx, func(ctx context.Context) error {
		return c.tree.Navigate(ctx, curriculumURL)
	})
	if err != nil {
		return "", fmt.Errorf("loading curriculum: %w", err)
	}
	if err := c.tree.SwitchToEnglish(ctx); err != nil {
		c.log.Warn("language switch failed, continuing with page language", "error", err)
	}
	clicks, err := c.tree.ExpandTree(ctx, c.opts.MaxDepth, c.opts.BatchSize)
	if err != nil {
		return "", fmt.Errorf("expanding curriculum tree after %d clicks: %w", clicks, err)
	}
	c.log.Info("curriculum tree expanded", "clicks", clicks)
	return c.tree.HTML(ctx)
}

// CollectModules scrapes and stores one module record per entry. Failed
// pages are retried by the policy and then stored as failed; a dead browser
// session ends the batch and the remaining entries count as skipped.
func (c *Collector) CollectModules(ctx context.Context, entries []database.CurriculumEntry) (*Result, error) {
	result := &Result{}
	for i, e := range entries {
		if err := c.pace(ctx); err != nil {
			result.Skipped += len(entries) - i
			return result, err
		}

		rec, err := c.collectModule(ctx, e)
		if errors.Is(err, fetch.ErrSessionDead) {
			result.Skipped += len(entries) - i
			c.metrics.ScrapeItem("skipped")
			c.log.Error("browser session died, stopping batch", "remaining", len(entries)-i)
			return result, nil
		}
		if ctx.Err() != nil {
			result.Skipped += len(entries) - i
			return result, ctx.Err()
		}
		if err != nil {
			c.log.Warn("module page failed", "curriculum_id", e.ID, "link", e.Link, "error", err)
		}

		if err := c.store.SaveModule(rec); err != nil {
			c.log.Error("storing module failed", "curriculum_id", e.ID, "error", err)
			rec.ExtractionMethod = module.MethodFailed
		}

		result.Processed++
		switch rec.ExtractionMethod {
		case module.MethodPrimary:
			result.Primary++
		case module.MethodFallback:
			result.Fallback++
		default:
			result.Failed++
		}
		c.metrics.ScrapeItem(string(rec.ExtractionMethod))
		c.log.Debug("module collected", "curriculum_id", e.ID, "method", rec.ExtractionMethod)
	}
	c.log.Info("module collection complete",
		"processed", result.Processed, "primary", result.Primary,
		"fallback", result.Fallback, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

func (c *Collector) collectModule(ctx context.Context, e database.CurriculumEntry) (*module.Record, error) {
	rec := module.NewRecord(e.ID, e.Link)
	if e.Link == "" {
		return rec, nil
	}
	err := c.policy(e.Link).Do(ctx, func(ctx context.Context) error {
		page, err := c.source.Fetch(ctx, e.Link)
		if err != nil {
			return err
		}
		if module.HasBrowserError(page.HTML) {
			return errBrowserPage
		}
		doc, err := module.ParseDocument(page.HTML, page.URL)
		if err != nil {
			return retry.Permanent(err)
		}
		module.Normalize(doc, rec)
		return nil
	})
	return rec, err
}

func (c *Collector) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	if c.opts.Jitter <= 0 {
		return nil
	}
	t := time.NewTimer(rand.N(c.opts.Jitter))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
