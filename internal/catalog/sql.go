package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/module"
)

const courseColumns = `module_id, name, content, category, subcategory, credits, responsible,
	module_level, occurrence, description_of_achievement_and_assessment_methods,
	intended_learning_outcomes, study_program_id, language, prerequisites_recommended, link`

// SQLStore reads the curriculums_x_module_details course table.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// IsPostgresDSN reports whether dsn addresses a Postgres server.
func IsPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// OpenPostgres opens the shared course table through the pgx driver.
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening course table: %w", err)
	}
	return &SQLStore{db: db, postgres: true}, nil
}

// NewSQLiteStore reads the course view of the local scrape database.
func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Close closes connections the store opened itself.
func (s *SQLStore) Close() error {
	if s.postgres {
		return s.db.Close()
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Course(ctx context.Context, moduleID string) (*CourseInfo, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+courseColumns+`
		FROM curriculums_x_module_details WHERE module_id = ? LIMIT 1`), moduleID)
	if err != nil {
		return nil, fmt.Errorf("querying course %s: %w", moduleID, err)
	}
	defer rows.Close()

	courses, err := scanCourses(rows)
	if err != nil {
		return nil, err
	}
	if len(courses) == 0 {
		return nil, ErrNotFound
	}
	return &courses[0], nil
}

func (s *SQLStore) Courses(ctx context.Context, programID string) ([]CourseInfo, error) {
	query := `SELECT ` + courseColumns + `
		FROM curriculums_x_module_details WHERE module_id IS NOT NULL AND name IS NOT NULL`
	var args []any
	if programID != "" {
		query += " AND study_program_id = ?"
		args = append(args, programID)
	}
	query += " ORDER BY module_id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	defer rows.Close()
	return scanCourses(rows)
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanCourses(rows *sql.Rows) ([]CourseInfo, error) {
	var out []CourseInfo
	for rows.Next() {
		var (
			c       CourseInfo
			cols    [15]sql.NullString
			targets = make([]any, len(cols))
		)
		for i := range cols {
			targets[i] = &cols[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scanning course: %w", err)
		}
		c.ModuleID = cols[0].String
		c.Name = cols[1].String
		c.Content = cols[2].String
		c.Category = cols[3].String
		c.Subcategory = cols[4].String
		c.Credits = parseCredits(cols[5].String)
		c.Responsible = cols[6].String
		c.ModuleLevel = cols[7].String
		c.Occurrence = cols[8].String
		c.Assessment = cols[9].String
		c.LearningOutcomes = cols[10].String
		c.StudyProgramID = cols[11].String
		c.Language = cols[12].String
		c.Prerequisites = cols[13].String
		c.Link = cols[14].String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(errors.New("reading courses"), err)
	}
	return out, nil
}

func parseCredits(s string) *int {
	if n, ok := module.ExtractInt(s); ok {
		return &n
	}
	return nil
}
