package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

const maxErrorBodyBytes = 1024

// QdrantConfig configures the Qdrant REST backend.
type QdrantConfig struct {
	URL        string
	Collection string
	Dimension  int
	// CreateMissing creates the collection and its program index when the
	// collection does not exist yet.
	CreateMissing bool
	Timeout       time.Duration
}

// Qdrant is an Index backed by the Qdrant REST API.
type Qdrant struct {
	log     *logger.Logger
	cfg     QdrantConfig
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewQdrant connects to Qdrant and verifies readiness and the collection's
// vector size.
func NewQdrant(ctx context.Context, cfg QdrantConfig, log *logger.Logger) (*Qdrant, error) {
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Collection) == "" {
		return nil, opErr("bootstrap", OperationErrorValidation, "qdrant url and collection are required", nil)
	}
	if cfg.Dimension <= 0 {
		return nil, opErr("bootstrap", OperationErrorValidation, "vector dimension must be positive", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	q := &Qdrant{
		log:     log.With("service", "QdrantIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
	if err := q.verifyReady(ctx); err != nil {
		return nil, err
	}
	q.log.Info("qdrant index selected", "url", q.baseURL, "collection", cfg.Collection, "vector_dim", cfg.Dimension)
	return q, nil
}

func (q *Qdrant) Dimension() int { return q.cfg.Dimension }

func (q *Qdrant) Close() error {
	q.http.CloseIdleConnections()
	return nil
}

// Ping checks the readiness endpoint.
func (q *Qdrant) Ping(ctx context.Context) error {
	const op = "ping"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	resp, err := q.http.Do(req)
	if err != nil {
		return classifyCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

func (q *Qdrant) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"
	if err := q.Ping(ctx); err != nil {
		return err
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := q.doJSON(ctx, op, http.MethodGet, q.collectionPath(""), nil, &result)
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound && q.cfg.CreateMissing {
		return q.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != q.cfg.Dimension {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf("qdrant collection %q vector size mismatch: expected=%d actual=%d",
				q.cfg.Collection, q.cfg.Dimension, size),
		}
	}
	return nil
}

func (q *Qdrant) createCollection(ctx context.Context) error {
	const op = "create_collection"
	req := map[string]any{
		"vectors": map[string]any{"size": q.cfg.Dimension, "distance": "Cosine"},
	}
	if err := q.doJSON(ctx, op, http.MethodPut, q.collectionPath(""), req, nil); err != nil {
		return err
	}
	index := map[string]any{"field_name": "study_program_id", "field_schema": "keyword"}
	if err := q.doJSON(ctx, op, http.MethodPut, q.collectionPath("/index?wait=true"), index, nil); err != nil {
		return err
	}
	q.log.Info("qdrant collection created", "collection", q.cfg.Collection, "vector_dim", q.cfg.Dimension)
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}

	out := make([]map[string]any, 0, len(points))
	for _, p := range points {
		if strings.TrimSpace(p.Course.ModuleID) == "" {
			return opErr(op, OperationErrorValidation, "module id is required", nil)
		}
		if err := validateVector(op, p.Vector, q.cfg.Dimension); err != nil {
			return err
		}
		pl, err := payload(p.Course)
		if err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode payload failed", err)
		}
		out = append(out, map[string]any{"id": p.ID(), "vector": p.Vector, "payload": pl})
	}
	return q.doJSON(ctx, op, http.MethodPut, q.collectionPath("/points?wait=true"), map[string]any{"points": out}, nil)
}

func (q *Qdrant) Search(ctx context.Context, vector []float64, limit int, programID string) ([]Hit, error) {
	const op = "query"
	if err := validateVector(op, vector, q.cfg.Dimension); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if programID != "" {
		req["filter"] = map[string]any{
			"must": []any{
				map[string]any{"key": "study_program_id", "match": map[string]any{"value": programID}},
			},
		}
	}

	var raw []qdrantSearchResultItem
	if err := q.doJSON(ctx, op, http.MethodPost, q.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(raw))
	for _, item := range raw {
		h, err := hitFromPayload(item.Payload, item.Score)
		if err != nil {
			return nil, opErr(op, OperationErrorDecodeFailed, "decode payload failed", err)
		}
		if programID != "" && h.StudyProgramID != programID {
			continue
		}
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

func (q *Qdrant) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.http.Do(req)
	if err != nil {
		return classifyCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := parseEnvelopeStatus(envelope.Status); msg != "" {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", s)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return "qdrant status=" + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func (q *Qdrant) collectionPath(suffix string) string {
	return "/collections/" + q.cfg.Collection + suffix
}
