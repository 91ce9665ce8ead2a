package database

import (
	"fmt"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/curriculum"
)

// UpsertPrograms stores degree programs keyed by program id. Returns the
// number of rows written.
func (db *DB) UpsertPrograms(programs []curriculum.DegreeProgram) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO degree_programs
		(id, degree, curriculum, field_of_studies, ects_credits, semester, curriculum_link, handbook_link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			degree = excluded.degree,
			curriculum = excluded.curriculum,
			field_of_studies = excluded.field_of_studies,
			ects_credits = excluded.ects_credits,
			semester = excluded.semester,
			curriculum_link = excluded.curriculum_link,
			handbook_link = excluded.handbook_link,
			collected_at = datetime('now')`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, p := range programs {
		if p.ID == "" {
			continue
		}
		if _, err := stmt.Exec(p.ID, p.Degree, p.Curriculum, p.FieldOfStudies, p.ECTS, p.Semester, p.CurriculumLink, p.HandbookLink); err != nil {
			return 0, fmt.Errorf("storing program %s: %w", p.ID, err)
		}
		n++
	}
	return n, tx.Commit()
}

// GetPrograms returns all stored degree programs ordered by id.
func (db *DB) GetPrograms() ([]curriculum.DegreeProgram, error) {
	rows, err := db.conn.Query(`SELECT id, degree, curriculum, field_of_studies, ects_credits,
		semester, curriculum_link, handbook_link FROM degree_programs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []curriculum.DegreeProgram
	for rows.Next() {
		var p curriculum.DegreeProgram
		if err := rows.Scan(&p.ID, &p.Degree, &p.Curriculum, &p.FieldOfStudies, &p.ECTS,
			&p.Semester, &p.CurriculumLink, &p.HandbookLink); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
