package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

// PGVectorConfig configures the Postgres pgvector backend.
type PGVectorConfig struct {
	DSN       string
	Table     string
	Dimension int
	// CreateMissing creates the extension and table when absent.
	CreateMissing bool
}

// PGVector is an Index stored in a Postgres table with a pgvector column.
// Scores are cosine similarities (1 - cosine distance).
type PGVector struct {
	pool  *pgxpool.Pool
	table string
	dim   int
	log   *logger.Logger
}

// NewPGVector connects and, when asked, creates the schema.
func NewPGVector(ctx context.Context, cfg PGVectorConfig, log *logger.Logger) (*PGVector, error) {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Dimension <= 0 {
		return nil, opErr("bootstrap", OperationErrorValidation, "vector dimension must be positive", nil)
	}
	if cfg.Table == "" {
		cfg.Table = "course_embeddings"
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, classifyCallError("bootstrap", "connecting to postgres failed", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyCallError("bootstrap", "postgres ping failed", err)
	}

	p := &PGVector{pool: pool, table: pgx.Identifier{cfg.Table}.Sanitize(), dim: cfg.Dimension, log: log}
	if cfg.CreateMissing {
		if err := p.createSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	log.Info("pgvector index selected", "table", cfg.Table, "vector_dim", cfg.Dimension)
	return p, nil
}

func (p *PGVector) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			point_id TEXT PRIMARY KEY,
			module_id TEXT NOT NULL,
			study_program_id TEXT NOT NULL DEFAULT '',
			payload JSONB NOT NULL,
			embedding vector(%d) NOT NULL
		)`, p.table, p.dim),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS course_embeddings_program_idx ON %s (study_program_id)`, p.table),
	}
	for _, s := range stmts {
		if _, err := p.pool.Exec(ctx, s); err != nil {
			return opErr("create_schema", OperationErrorQueryFailed, "creating pgvector schema failed", err)
		}
	}
	return nil
}

func (p *PGVector) Dimension() int { return p.dim }

func (p *PGVector) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return classifyCallError("ping", "postgres ping failed", err)
	}
	return nil
}

func (p *PGVector) Close() error {
	p.pool.Close()
	return nil
}

func (p *PGVector) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`INSERT INTO %s (point_id, module_id, study_program_id, payload, embedding)
		VALUES ($1, $2, $3, $4, $5::float8[]::vector)
		ON CONFLICT (point_id) DO UPDATE SET
			module_id = excluded.module_id,
			study_program_id = excluded.study_program_id,
			payload = excluded.payload,
			embedding = excluded.embedding`, p.table)
	for _, pt := range points {
		if err := validateVector(op, pt.Vector, p.dim); err != nil {
			return err
		}
		pl, err := payload(pt.Course)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
		}
		raw, err := json.Marshal(pl)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
		}
		batch.Queue(query, pt.ID(), pt.Course.ModuleID, pt.Course.StudyProgramID, raw, pt.Vector)
	}

	if err := p.pool.SendBatch(ctx, batch).Close(); err != nil {
		return opErr(op, OperationErrorQueryFailed, "upserting embeddings failed", err)
	}
	return nil
}

func (p *PGVector) Search(ctx context.Context, vector []float64, limit int, programID string) ([]Hit, error) {
	const op = "query"
	if err := validateVector(op, vector, p.dim); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	query, args := searchQuery(p.table, vector, limit, programID)
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, opErr(op, OperationErrorQueryFailed, "similarity query failed", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			raw   []byte
			score float64
		)
		if err := rows.Scan(&raw, &score); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "scan hit failed", err)
		}
		var pl map[string]any
		if err := json.Unmarshal(raw, &pl); err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "decode payload failed", err)
		}
		h, err := hitFromPayload(pl, score)
		if err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "decode payload failed", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(op, OperationErrorQueryFailed, "reading hits failed", err)
	}
	return hits, nil
}

func searchQuery(table string, vector []float64, limit int, programID string) (string, []any) {
	args := []any{vector, limit}
	where := ""
	if programID != "" {
		where = "WHERE study_program_id = $3"
		args = append(args, programID)
	}
	query := fmt.Sprintf(`SELECT payload, 1 - (embedding <=> $1::float8[]::vector) AS score
		FROM %s %s
		ORDER BY embedding <=> $1::float8[]::vector
		LIMIT $2`, table, where)
	return query, args
}
