package database

import (
	"database/sql"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/curriculum"
)

// SaveCurriculum stores the parsed entries of one program. Entries are keyed
// by (program, sequence id) so row ids, and the module records pointing at
// them, survive a re-scrape. Entries beyond the new sequence are removed
// together with their module records, and a module record whose entry now
// points at a different page is dropped so it gets collected again.
func (db *DB) SaveCurriculum(programID string, entries []curriculum.Entry) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO curriculum_entries
		(study_program_id, sequence_id, name_level1, name_level2, name_level3, link, credits, grading_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(study_program_id, sequence_id) DO UPDATE SET
			name_level1 = excluded.name_level1,
			name_level2 = excluded.name_level2,
			name_level3 = excluded.name_level3,
			link = excluded.link,
			credits = excluded.credits,
			grading_flag = excluded.grading_flag,
			collected_at = datetime('now')`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.Exec(programID, e.SequenceID, e.NameLevel1, e.NameLevel2, e.NameLevel3,
			e.Link, e.Credits, e.GradingFlag); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM module_details
		WHERE COALESCE(transformed_link, '') != ''
		AND EXISTS (SELECT 1 FROM curriculum_entries c
			WHERE c.id = module_details.curriculum_id
			AND c.study_program_id = ?
			AND c.link IS NOT module_details.transformed_link)`, programID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM module_details WHERE curriculum_id IN
		(SELECT id FROM curriculum_entries WHERE study_program_id = ? AND sequence_id > ?)`,
		programID, len(entries)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM curriculum_entries WHERE study_program_id = ? AND sequence_id > ?`,
		programID, len(entries)); err != nil {
		return err
	}
	return tx.Commit()
}

// GetCurriculum returns the stored entries of a program in sequence order.
func (db *DB) GetCurriculum(programID string) ([]CurriculumEntry, error) {
	rows, err := db.conn.Query(`SELECT id, study_program_id, sequence_id, name_level1, name_level2,
		name_level3, link, credits, grading_flag
		FROM curriculum_entries WHERE study_program_id = ? ORDER BY sequence_id`, programID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// GetEntriesNeedingModules returns linked entries of a program without a
// module record. With retryFailed, entries whose record failed are included.
// An empty programID selects all programs.
func (db *DB) GetEntriesNeedingModules(programID string, retryFailed bool) ([]CurriculumEntry, error) {
	query := `SELECT c.id, c.study_program_id, c.sequence_id, c.name_level1, c.name_level2,
		c.name_level3, c.link, c.credits, c.grading_flag
		FROM curriculum_entries c LEFT JOIN module_details m ON m.curriculum_id = c.id
		WHERE c.link <> ''`
	var args []any
	if programID != "" {
		query += " AND c.study_program_id = ?"
		args = append(args, programID)
	}
	if retryFailed {
		query += " AND (m.curriculum_id IS NULL OR m.extraction_method = 'failed')"
	} else {
		query += " AND m.curriculum_id IS NULL"
	}
	query += " ORDER BY c.study_program_id, c.sequence_id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]CurriculumEntry, error) {
	var out []CurriculumEntry
	for rows.Next() {
		var e CurriculumEntry
		if err := rows.Scan(&e.ID, &e.ProgramID, &e.SequenceID, &e.NameLevel1, &e.NameLevel2,
			&e.NameLevel3, &e.Link, &e.Credits, &e.GradingFlag); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
