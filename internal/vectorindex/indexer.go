package vectorindex

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/catalog"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/llm"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/retry"
)

// Indexer embeds catalog courses and stores them in an index.
type Indexer struct {
	Catalog     catalog.Store
	Embedder    llm.Embedder
	Index       Index
	BatchSize   int
	Concurrency int
	// Retry bounds embedding attempts per batch. The zero policy tries once.
	Retry retry.Policy
	Log   *logger.Logger
}

// Run indexes every course of programID (all programs when empty) and
// returns the number of stored points. Courses without content or name are
// skipped.
func (ix *Indexer) Run(ctx context.Context, programID string) (int, error) {
	log := ix.Log
	if log == nil {
		log = logger.Nop()
	}
	batchSize := ix.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	concurrency := ix.Concurrency
	if concurrency <= 0 {
		concurrency = 2
	}

	courses, err := ix.Catalog.Courses(ctx, programID)
	if err != nil {
		return 0, fmt.Errorf("loading courses: %w", err)
	}
	var todo []catalog.CourseInfo
	for _, c := range courses {
		if c.ModuleID != "" && c.Name != "" {
			todo = append(todo, c)
		}
	}
	log.Info("indexing courses", "courses", len(todo), "program", programID, "batch_size", batchSize)

	var stored atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for start := 0; start < len(todo); start += batchSize {
		batch := todo[start:min(start+batchSize, len(todo))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = DocumentText(c)
			}
			var vecs [][]float64
			err := ix.Retry.Do(gctx, func(ctx context.Context) error {
				var err error
				vecs, err = ix.Embedder.Embed(ctx, texts)
				return err
			})
			if err != nil {
				return fmt.Errorf("embedding batch: %w", err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("embedding batch: got %d vectors for %d courses", len(vecs), len(batch))
			}
			points := make([]Point, len(batch))
			for i, c := range batch {
				points[i] = Point{Course: c, Vector: vecs[i]}
			}
			if err := ix.Index.Upsert(gctx, points); err != nil {
				return err
			}
			n := stored.Add(int64(len(points)))
			log.Debug("indexed batch", "stored", n, "total", len(todo))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(stored.Load()), err
	}
	return int(stored.Load()), nil
}
