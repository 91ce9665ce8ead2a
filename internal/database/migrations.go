package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS degree_programs (
    id TEXT PRIMARY KEY,
    degree TEXT,
    curriculum TEXT,
    field_of_studies TEXT,
    ects_credits TEXT,
    semester TEXT,
    curriculum_link TEXT,
    handbook_link TEXT,
    collected_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS curriculum_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    study_program_id TEXT NOT NULL,
    sequence_id INTEGER NOT NULL,
    name_level1 TEXT NOT NULL DEFAULT '',
    name_level2 TEXT NOT NULL DEFAULT '',
    name_level3 TEXT NOT NULL DEFAULT '',
    link TEXT NOT NULL DEFAULT '',
    credits TEXT NOT NULL DEFAULT '',
    grading_flag TEXT NOT NULL DEFAULT '',
    collected_at TEXT DEFAULT (datetime('now')),
    UNIQUE (study_program_id, sequence_id)
);

CREATE TABLE IF NOT EXISTS module_details (
    curriculum_id INTEGER PRIMARY KEY REFERENCES curriculum_entries(id),
    transformed_link TEXT,
    module_id TEXT,
    name TEXT,
    credits INTEGER,
    version TEXT,
    valid TEXT,
    responsible TEXT,
    organisation TEXT,
    note TEXT,
    module_level TEXT,
    abbreviation TEXT,
    subtitle TEXT,
    duration TEXT,
    occurrence TEXT,
    language TEXT,
    related_programs TEXT,
    total_hours INTEGER,
    contact_hours INTEGER,
    self_study_hours INTEGER,
    description_of_achievement_and_assessment_methods TEXT,
    exam_retake_next_semester TEXT,
    exam_retake_at_the_end_of_semester TEXT,
    prerequisites_recommended TEXT,
    intended_learning_outcomes TEXT,
    content TEXT,
    teaching_and_learning_methods TEXT,
    media TEXT,
    reading_list TEXT,
    extraction_method TEXT NOT NULL CHECK(extraction_method IN ('primary', 'fallback', 'failed')),
    scraped_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_curriculum_entries_program ON curriculum_entries(study_program_id);
CREATE INDEX IF NOT EXISTS idx_module_details_module_id ON module_details(module_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "course table view",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
DROP VIEW IF EXISTS curriculums_x_module_details;
CREATE VIEW curriculums_x_module_details AS
SELECT
    c.study_program_id,
    c.name_level1 AS category,
    c.name_level2 AS subcategory,
    CASE WHEN c.name_level3 <> '' THEN c.name_level3 ELSE c.name_level2 END AS course_id_and_name,
    c.link,
    m.module_id,
    m.name,
    m.credits,
    m.version,
    m.valid,
    m.responsible,
    m.organisation,
    m.note,
    m.module_level,
    m.abbreviation,
    m.subtitle,
    m.duration,
    m.occurrence,
    m.language,
    m.related_programs,
    m.total_hours,
    m.contact_hours,
    m.self_study_hours,
    m.description_of_achievement_and_assessment_methods,
    m.exam_retake_next_semester,
    m.exam_retake_at_the_end_of_semester,
    m.prerequisites_recommended,
    m.intended_learning_outcomes,
    m.content,
    m.teaching_and_learning_methods,
    m.media,
    m.reading_list,
    m.extraction_method
FROM module_details m
JOIN curriculum_entries c ON c.id = m.curriculum_id;
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
