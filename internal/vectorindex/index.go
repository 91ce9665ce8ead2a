// Package vectorindex stores course embeddings and answers nearest-neighbour
// queries, optionally restricted to one study program.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/catalog"
)

// Hit is one retrieved course with its similarity score.
type Hit struct {
	catalog.CourseInfo
	Score float64 `json:"score"`
}

// Point is one course ready to be stored.
type Point struct {
	Course catalog.CourseInfo
	Vector []float64
}

// ID derives a stable point id from the course's program and module id.
func (p Point) ID() string {
	return PointID(p.Course.StudyProgramID, p.Course.ModuleID)
}

var pointIDNamespace = uuid.MustParse("6d1f3c0a-8a5e-4f54-9a57-3f0f6b1c2e11")

// PointID returns the deterministic UUID for a (program, module) pair.
func PointID(programID, moduleID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(programID+"|"+moduleID)).String()
}

// Index is a vector store of courses.
type Index interface {
	// Search returns up to limit hits by descending score. A non-empty
	// programID restricts hits to that study program.
	Search(ctx context.Context, vector []float64, limit int, programID string) ([]Hit, error)
	Upsert(ctx context.Context, points []Point) error
	Dimension() int
	Ping(ctx context.Context) error
	Close() error
}

// CheckDimension fails when the embedder and the index disagree on vector
// size.
func CheckDimension(idx Index, embedderDim int) error {
	if idx.Dimension() != embedderDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: "check_dimension",
			Message: fmt.Sprintf("embedding dimension mismatch: index=%d embedder=%d",
				idx.Dimension(), embedderDim),
		}
	}
	return nil
}

// DocumentText is the text embedded for a course.
func DocumentText(c catalog.CourseInfo) string {
	var parts []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, label+": "+v)
		}
	}
	add("Course", c.Name)
	add("Module ID", c.ModuleID)
	add("Category", c.Category)
	add("Subcategory", c.Subcategory)
	add("Content", c.Content)
	add("Learning Outcomes", c.LearningOutcomes)
	add("Assessment", c.Assessment)
	add("Prerequisites", c.Prerequisites)
	add("Responsible", c.Responsible)
	if c.Credits != nil {
		parts = append(parts, fmt.Sprintf("Credits: %d ECTS", *c.Credits))
	}
	add("Language", c.Language)
	add("Level", c.ModuleLevel)
	return strings.Join(parts, " | ")
}

// payload flattens a course into the stored scalar fields plus the
// denormalized content text.
func payload(c catalog.CourseInfo) (map[string]any, error) {
	c.Certainty = nil
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	out["study_program_id"] = c.StudyProgramID
	out["document"] = DocumentText(c)
	return out, nil
}

func hitFromPayload(p map[string]any, score float64) (Hit, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return Hit{}, err
	}
	var h Hit
	if err := json.Unmarshal(raw, &h.CourseInfo); err != nil {
		return Hit{}, err
	}
	h.Score = score
	s := score
	h.Certainty = &s
	return h, nil
}

func validateVector(op string, v []float64, dim int) error {
	if len(v) == 0 {
		return opErr(op, OperationErrorValidation, "vector required", nil)
	}
	if dim > 0 && len(v) != dim {
		return opErr(op, OperationErrorValidation,
			fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", dim, len(v)), nil)
	}
	return nil
}
