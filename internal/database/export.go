package database

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Export file names. ModuleDetailsCSV has the course table shape read by the
// catalog's CSV fallback.
const (
	ModuleDetailsCSV  = "module_details.csv"
	CurriculumCSV     = "curriculum.csv"
	DegreeProgramsCSV = "degree_programs.csv"
)

var exports = []struct {
	file  string
	query string
}{
	{ModuleDetailsCSV, "SELECT * FROM curriculums_x_module_details ORDER BY study_program_id, module_id"},
	{CurriculumCSV, `SELECT study_program_id, sequence_id, name_level1, name_level2, name_level3,
		link, credits, grading_flag FROM curriculum_entries ORDER BY study_program_id, sequence_id`},
	{DegreeProgramsCSV, `SELECT id, degree, curriculum, field_of_studies, ects_credits, semester,
		curriculum_link, handbook_link FROM degree_programs ORDER BY id`},
}

// ExportCSV writes the course table, the curriculum entries and the degree
// programs as CSV files into dir. It returns the row count per file.
func (db *DB) ExportCSV(dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	counts := make(map[string]int, len(exports))
	for _, e := range exports {
		n, err := db.exportQuery(filepath.Join(dir, e.file), e.query)
		if err != nil {
			return counts, fmt.Errorf("exporting %s: %w", e.file, err)
		}
		counts[e.file] = n
	}
	return counts, nil
}

func (db *DB) exportQuery(path, query string) (int, error) {
	rows, err := db.conn.Query(query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return 0, err
	}

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	record := make([]string, len(cols))

	n := 0
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return n, err
		}
		for i, v := range values {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return n, err
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return n, err
	}
	return n, f.Close()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
