package database

import (
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/curriculum"
	"github.com/AET-DevOps25/team-stratton-oakmont/internal/module"
)

// CurriculumEntry is a stored curriculum entry with its row id, which module
// records reference as curriculum_id.
type CurriculumEntry struct {
	ID int64
	curriculum.Entry
}

// Stats contains aggregate database statistics.
type Stats struct {
	Programs        int
	Entries         int
	LinkedEntries   int
	Modules         int
	PrimaryModules  int
	FallbackModules int
	FailedModules   int
}

// moduleColumns lists module_details columns in the order moduleFields
// yields record fields.
var moduleColumns = []string{
	"curriculum_id",
	"transformed_link",
	module.FieldModuleID,
	module.FieldName,
	module.FieldCredits,
	module.FieldVersion,
	module.FieldValid,
	module.FieldResponsible,
	module.FieldOrganisation,
	module.FieldNote,
	module.FieldModuleLevel,
	module.FieldAbbreviation,
	module.FieldSubtitle,
	module.FieldDuration,
	module.FieldOccurrence,
	module.FieldLanguage,
	module.FieldRelatedPrograms,
	module.FieldTotalHours,
	module.FieldContactHours,
	module.FieldSelfStudyHours,
	module.FieldAssessment,
	module.FieldRetakeNext,
	module.FieldRetakeEnd,
	module.FieldPrerequisites,
	module.FieldLearningOutcomes,
	module.FieldContent,
	module.FieldTeachingMethods,
	module.FieldMedia,
	module.FieldReadingList,
	"extraction_method",
}

// moduleFields returns pointers to r's fields, usable both as insert
// arguments and as scan destinations.
func moduleFields(r *module.Record) []any {
	return []any{
		&r.CurriculumID,
		&r.TransformedLink,
		&r.ModuleID,
		&r.Name,
		&r.Credits,
		&r.Version,
		&r.Valid,
		&r.Responsible,
		&r.Organisation,
		&r.Note,
		&r.ModuleLevel,
		&r.Abbreviation,
		&r.Subtitle,
		&r.Duration,
		&r.Occurrence,
		&r.Language,
		&r.RelatedPrograms,
		&r.TotalHours,
		&r.ContactHours,
		&r.SelfStudyHours,
		&r.Assessment,
		&r.RetakeNext,
		&r.RetakeEnd,
		&r.Prerequisites,
		&r.LearningOutcomes,
		&r.Content,
		&r.TeachingMethods,
		&r.Media,
		&r.ReadingList,
		&r.ExtractionMethod,
	}
}
