package database

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/AET-DevOps25/team-stratton-oakmont/internal/module"
)

// SaveModule stores rec, replacing an earlier record for the same curriculum
// entry.
func (db *DB) SaveModule(rec *module.Record) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(moduleColumns)), ", ")
	var updates []string
	for _, c := range moduleColumns[1:] {
		updates = append(updates, c+" = excluded."+c)
	}
	updates = append(updates, "scraped_at = datetime('now')")

	_, err := db.conn.Exec(`INSERT INTO module_details (`+strings.Join(moduleColumns, ", ")+`)
		VALUES (`+placeholders+`)
		ON CONFLICT(curriculum_id) DO UPDATE SET `+strings.Join(updates, ", "),
		moduleFields(rec)...)
	return err
}

// GetModule returns the record stored for a curriculum entry, or nil.
func (db *DB) GetModule(curriculumID int64) (*module.Record, error) {
	rec := &module.Record{}
	err := db.conn.QueryRow(`SELECT `+strings.Join(moduleColumns, ", ")+`
		FROM module_details WHERE curriculum_id = ?`, curriculumID).Scan(moduleFields(rec)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetStats returns aggregate database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM degree_programs", &s.Programs},
		{"SELECT COUNT(*) FROM curriculum_entries", &s.Entries},
		{"SELECT COUNT(*) FROM curriculum_entries WHERE link <> ''", &s.LinkedEntries},
		{"SELECT COUNT(*) FROM module_details", &s.Modules},
		{"SELECT COUNT(*) FROM module_details WHERE extraction_method = 'primary'", &s.PrimaryModules},
		{"SELECT COUNT(*) FROM module_details WHERE extraction_method = 'fallback'", &s.FallbackModules},
		{"SELECT COUNT(*) FROM module_details WHERE extraction_method = 'failed'", &s.FailedModules},
	}

	for _, q := range queries {
		if err := db.conn.QueryRow(q.sql).Scan(q.dest); err != nil {
			return nil, err
		}
	}

	return s, nil
}
