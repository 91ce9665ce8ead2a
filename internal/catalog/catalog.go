// Package catalog answers course lookups from the persisted course table,
// with a CSV fallback and an optional Redis read-through cache.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/logger"
)

// ErrNotFound is returned when no course carries the requested module id.
var ErrNotFound = errors.New("course not found")

// CourseInfo is one row of the course table as served to clients.
type CourseInfo struct {
	ModuleID         string   `json:"module_id"`
	Name             string   `json:"name"`
	Content          string   `json:"content"`
	Category         string   `json:"category"`
	Subcategory      string   `json:"subcategory"`
	Credits          *int     `json:"credits"`
	Responsible      string   `json:"responsible"`
	ModuleLevel      string   `json:"module_level"`
	Occurrence       string   `json:"occurrence"`
	Assessment       string   `json:"description_of_achievement_and_assessment_methods"`
	LearningOutcomes string   `json:"intended_learning_outcomes"`
	Certainty        *float64 `json:"certainty"`

	StudyProgramID string `json:"study_program_id,omitempty"`
	Language       string `json:"language,omitempty"`
	Prerequisites  string `json:"prerequisites_recommended,omitempty"`
	Link           string `json:"link,omitempty"`
}

// Store looks up courses.
type Store interface {
	// Course returns the course with moduleID or ErrNotFound.
	Course(ctx context.Context, moduleID string) (*CourseInfo, error)
	// Courses lists courses, restricted to programID when it is not empty.
	Courses(ctx context.Context, programID string) ([]CourseInfo, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FallbackStore serves from Primary and switches to Fallback whenever
// Primary fails for a reason other than a missing course.
type FallbackStore struct {
	Primary  Store
	Fallback Store
	Log      *logger.Logger
}

func (s *FallbackStore) Course(ctx context.Context, moduleID string) (*CourseInfo, error) {
	c, err := s.Primary.Course(ctx, moduleID)
	if err == nil || errors.Is(err, ErrNotFound) {
		return c, err
	}
	s.warn("course lookup", err)
	c, ferr := s.Fallback.Course(ctx, moduleID)
	if ferr != nil && !errors.Is(ferr, ErrNotFound) {
		return nil, fmt.Errorf("course lookup: %w", errors.Join(err, ferr))
	}
	return c, ferr
}

func (s *FallbackStore) Courses(ctx context.Context, programID string) ([]CourseInfo, error) {
	cs, err := s.Primary.Courses(ctx, programID)
	if err == nil {
		return cs, nil
	}
	s.warn("course listing", err)
	cs, ferr := s.Fallback.Courses(ctx, programID)
	if ferr != nil {
		return nil, fmt.Errorf("course listing: %w", errors.Join(err, ferr))
	}
	return cs, nil
}

// Ping reports whether at least one side is reachable.
func (s *FallbackStore) Ping(ctx context.Context) error {
	perr := ping(ctx, s.Primary)
	if perr == nil {
		return nil
	}
	if ferr := ping(ctx, s.Fallback); ferr != nil {
		return errors.Join(perr, ferr)
	}
	return nil
}

func (s *FallbackStore) warn(op string, err error) {
	if s.Log != nil {
		s.Log.Warn("course table unreachable, using CSV fallback", "operation", op, "error", err)
	}
}

func ping(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
