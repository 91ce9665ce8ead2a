package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// CSVFiles is the per-directory search order for the course table export.
var CSVFiles = []string{"module_details.csv", "module_details_scraped.csv", "modules.csv"}

var headerAliases = map[string]string{
	"course_code": "module_id",
	"course_name": "name",
}

// CSVStore serves courses from the first course table CSV found across
// Dirs. The file is loaded on first use.
type CSVStore struct {
	Dirs []string

	once    sync.Once
	path    string
	courses []CourseInfo
	byID    map[string]int
	err     error
}

// NewCSVStore creates a store searching dirs in order.
func NewCSVStore(dirs []string) *CSVStore {
	return &CSVStore{Dirs: dirs}
}

// FindCSV returns the first existing course table file.
func FindCSV(dirs []string) (string, error) {
	for _, dir := range dirs {
		for _, name := range CSVFiles {
			p := filepath.Join(dir, name)
			if info, err := os.Stat(p); err == nil && !info.IsDir() {
				return p, nil
			}
		}
	}
	return "", fmt.Errorf("no course CSV found in %s", strings.Join(dirs, ", "))
}

// Path returns the file the store loaded, once loaded.
func (s *CSVStore) Path() string {
	return s.path
}

func (s *CSVStore) load() error {
	s.once.Do(func() {
		s.path, s.err = FindCSV(s.Dirs)
		if s.err != nil {
			return
		}
		f, err := os.Open(s.path)
		if err != nil {
			s.err = fmt.Errorf("opening %s: %w", s.path, err)
			return
		}
		defer f.Close()
		s.courses, s.err = readCourses(f)
		if s.err != nil {
			s.err = fmt.Errorf("reading %s: %w", s.path, s.err)
			return
		}
		s.byID = make(map[string]int, len(s.courses))
		for i, c := range s.courses {
			if _, ok := s.byID[c.ModuleID]; !ok {
				s.byID[c.ModuleID] = i
			}
		}
	})
	return s.err
}

func (s *CSVStore) Ping(context.Context) error {
	return s.load()
}

func (s *CSVStore) Course(_ context.Context, moduleID string) (*CourseInfo, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	i, ok := s.byID[moduleID]
	if !ok {
		return nil, ErrNotFound
	}
	c := s.courses[i]
	return &c, nil
}

func (s *CSVStore) Courses(_ context.Context, programID string) ([]CourseInfo, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	var out []CourseInfo
	for _, c := range s.courses {
		if c.Name == "" {
			continue
		}
		if programID != "" && c.StudyProgramID != programID {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}

func readCourses(r io.Reader) ([]CourseInfo, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if alias, ok := headerAliases[h]; ok {
			if _, taken := cols[alias]; !taken {
				cols[alias] = i
			}
			continue
		}
		cols[h] = i
	}

	var out []CourseInfo
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		get := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		c := CourseInfo{
			ModuleID:         get("module_id"),
			Name:             get("name"),
			Content:          get("content"),
			Category:         get("category"),
			Subcategory:      get("subcategory"),
			Credits:          parseCredits(get("credits")),
			Responsible:      get("responsible"),
			ModuleLevel:      get("module_level"),
			Occurrence:       get("occurrence"),
			Assessment:       get("description_of_achievement_and_assessment_methods"),
			LearningOutcomes: get("intended_learning_outcomes"),
			StudyProgramID:   get("study_program_id"),
			Language:         get("language"),
			Prerequisites:    get("prerequisites_recommended"),
			Link:             get("link"),
		}
		if c.ModuleID == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
