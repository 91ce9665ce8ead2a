package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/advisor"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/catalog"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/database"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/fetch"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/llm"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/metrics"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/retry"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/scrape"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/studyplan"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/vectorindex"
)

// modulePageSelector marks a rendered module handbook page.
const modulePageSelector = "ca-entry"

// newCollector builds the page sources selected by scrape.source. The
// curriculum tree is expanded in its own browser tab unless the source is
// plain HTTP.
func newCollector(db *database.DB, m *metrics.Metrics) (*scrape.Collector, func()) {
	sc := cfg.Scrape
	browserOpts := fetch.BrowserOptions{
		Headless:     sc.Headless,
		PageTimeout:  sc.PageTimeout,
		WaitSelector: modulePageSelector,
		Logger:       log.With("component", "browser"),
	}

	var (
		source fetch.Source
		tree   *fetch.BrowserSource
	)
	switch strings.ToLower(sc.Source) {
	case "http":
		source = fetch.NewHTTPSource(sc.HTTPTimeout)
	case "browser":
		source = fetch.NewBrowserSource(browserOpts)
		tree = fetch.NewBrowserSource(fetch.BrowserOptions{Headless: sc.Headless, PageTimeout: sc.PageTimeout, Logger: browserOpts.Logger})
	default:
		source = &fetch.HybridSource{
			HTTP:    fetch.NewHTTPSource(sc.HTTPTimeout),
			Browser: fetch.NewBrowserSource(browserOpts),
		}
		tree = fetch.NewBrowserSource(fetch.BrowserOptions{Headless: sc.Headless, PageTimeout: sc.PageTimeout, Logger: browserOpts.Logger})
	}

	opts := scrape.Options{
		BaseURL:   sc.BaseURL,
		MaxDepth:  sc.MaxDepth,
		BatchSize: sc.BatchSize,
		Retry: retry.Policy{
			MaxAttempts: sc.MaxRetries,
			Initial:     sc.BackoffInitial,
			Max:         sc.BackoffMax,
		},
		Pacing: sc.Pacing,
		Jitter: sc.PacingJitter,
	}

	var collector *scrape.Collector
	if tree != nil {
		collector = scrape.New(source, tree, db, opts, log.With("component", "scrape"), m)
	} else {
		collector = scrape.New(source, nil, db, opts, log.With("component", "scrape"), m)
	}
	return collector, func() {
		if err := source.Close(); err != nil {
			log.Warn("closing page source failed", "error", err)
		}
		if tree != nil {
			tree.Close()
		}
	}
}

// openCatalog chains the relational course table, the CSV fallback and the
// optional Redis cache.
func openCatalog(db *database.DB) (catalog.Store, func(), error) {
	closers := []func() error{}
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				log.Warn("closing course store failed", "error", err)
			}
		}
	}

	var primary *catalog.SQLStore
	if catalog.IsPostgresDSN(cfg.Storage.CourseDSN) {
		pg, err := catalog.OpenPostgres(cfg.Storage.CourseDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("opening course table: %w", err)
		}
		closers = append(closers, pg.Close)
		primary = pg
	} else {
		primary = catalog.NewSQLiteStore(db.Conn())
	}

	var store catalog.Store = &catalog.FallbackStore{
		Primary:  primary,
		Fallback: catalog.NewCSVStore(cfg.CSVSearchDirs()),
		Log:      log.With("component", "catalog"),
	}

	if cfg.Storage.RedisAddr != "" {
		client := catalog.NewRedisClient(cfg.Storage.RedisAddr, os.Getenv("ADVISOR_REDIS_PASSWORD"), 0)
		cache := catalog.NewRedisCache(store, client, cfg.Storage.CacheTTL, log.With("component", "course_cache"))
		closers = append(closers, cache.Close)
		store = cache
	}
	return store, closeAll, nil
}

func describeCatalog() string {
	desc := "local sqlite"
	if catalog.IsPostgresDSN(cfg.Storage.CourseDSN) {
		desc = "postgres"
	}
	if path, err := catalog.FindCSV(cfg.CSVSearchDirs()); err == nil {
		desc += ", csv fallback " + path
	}
	if cfg.Storage.RedisAddr != "" {
		desc += ", redis cache " + cfg.Storage.RedisAddr
	}
	return desc
}

func pingCatalog(ctx context.Context, store catalog.Store) error {
	p, ok := store.(catalog.Pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.Ping(ctx)
}

// openIndex connects the configured vector backend. createMissing creates the
// collection or table when it does not exist yet.
func openIndex(ctx context.Context, createMissing bool) (vectorindex.Index, error) {
	vc := cfg.Vector
	switch strings.ToLower(vc.Backend) {
	case "pgvector":
		return vectorindex.NewPGVector(ctx, vectorindex.PGVectorConfig{
			DSN:           vc.DSN,
			Table:         vc.Collection,
			Dimension:     vc.Dimension,
			CreateMissing: createMissing,
		}, log.With("component", "vectorindex"))
	case "qdrant":
		return vectorindex.NewQdrant(ctx, vectorindex.QdrantConfig{
			URL:           vc.URL,
			Collection:    vc.Collection,
			Dimension:     vc.Dimension,
			CreateMissing: createMissing,
			Timeout:       10 * time.Second,
		}, log.With("component", "vectorindex"))
	default:
		return nil, fmt.Errorf("unknown vector backend %q", vc.Backend)
	}
}

func newIndexer(ctx context.Context, db *database.DB) (*vectorindex.Indexer, func(), error) {
	embedder, err := llm.NewEmbedder(llmOptions())
	if err != nil {
		return nil, nil, err
	}
	idx, err := openIndex(ctx, true)
	if err != nil {
		return nil, nil, err
	}
	if err := checkEmbedder(ctx, embedder, idx); err != nil {
		idx.Close()
		return nil, nil, err
	}
	store, closeStore, err := openCatalog(db)
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	indexer := &vectorindex.Indexer{
		Catalog:  store,
		Embedder: embedder,
		Index:    idx,
		Retry: retry.Policy{
			MaxAttempts: cfg.Scrape.MaxRetries,
			Initial:     2 * time.Second,
			Max:         cfg.Scrape.BackoffMax,
		},
		Log: log.With("component", "indexer"),
	}
	return indexer, func() {
		closeStore()
		idx.Close()
	}, nil
}

// newEngine constructs the chat engine once. A dimension mismatch between
// embedder and index is fatal.
func newEngine(ctx context.Context, m *metrics.Metrics) (*advisor.Engine, func(), error) {
	opts := llmOptions()
	provider, err := llm.NewProvider(opts)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := llm.NewEmbedder(opts)
	if err != nil {
		return nil, nil, err
	}
	idx, err := openIndex(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	if err := checkEmbedder(ctx, embedder, idx); err != nil {
		idx.Close()
		return nil, nil, err
	}

	ec := advisor.Config{
		Embedder:  embedder,
		Index:     idx,
		Provider:  provider,
		TopK:      cfg.Chat.TopK,
		MaxTokens: cfg.LLM.MaxTokens,
		Logger:    log.With("component", "advisor"),
		Metrics:   m,
	}
	if cfg.Chat.StudyPlanURL != "" {
		ec.Plans = studyplan.New(cfg.Chat.StudyPlanURL, cfg.Chat.StudyPlanTimeout, log.With("component", "studyplan"))
	}
	engine, err := advisor.New(ec)
	if err != nil {
		idx.Close()
		return nil, nil, err
	}
	if !provider.IsConfigured() {
		log.Warn("chat provider is not reachable yet", "provider", opts.Provider)
	}
	return engine, func() {
		if err := idx.Close(); err != nil {
			log.Warn("closing vector index failed", "error", err)
		}
	}, nil
}
