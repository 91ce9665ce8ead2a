// Package module normalizes scraped module handbook pages into fixed-schema
// module records.
package module

// Method records which extraction layer produced a record's identity.
type Method string

const (
	MethodPrimary  Method = "primary"
	MethodFallback Method = "fallback"
	MethodFailed   Method = "failed"
)

// Canonical field names. They double as course table column names.
const (
	FieldModuleID         = "module_id"
	FieldName             = "name"
	FieldCredits          = "credits"
	FieldVersion          = "version"
	FieldValid            = "valid"
	FieldResponsible      = "responsible"
	FieldOrganisation     = "organisation"
	FieldNote             = "note"
	FieldModuleLevel      = "module_level"
	FieldAbbreviation     = "abbreviation"
	FieldSubtitle         = "subtitle"
	FieldDuration         = "duration"
	FieldOccurrence       = "occurrence"
	FieldLanguage         = "language"
	FieldRelatedPrograms  = "related_programs"
	FieldTotalHours       = "total_hours"
	FieldContactHours     = "contact_hours"
	FieldSelfStudyHours   = "self_study_hours"
	FieldAssessment       = "description_of_achievement_and_assessment_methods"
	FieldRetakeNext       = "exam_retake_next_semester"
	FieldRetakeEnd        = "exam_retake_at_the_end_of_semester"
	FieldPrerequisites    = "prerequisites_recommended"
	FieldLearningOutcomes = "intended_learning_outcomes"
	FieldContent          = "content"
	FieldTeachingMethods  = "teaching_and_learning_methods"
	FieldMedia            = "media"
	FieldReadingList      = "reading_list"
)

// Record is the normalized description of one module. Nil means unknown.
type Record struct {
	CurriculumID    int64  `json:"curriculum_id"`
	TransformedLink string `json:"transformed_link"`

	ModuleID         *string `json:"module_id"`
	Name             *string `json:"name"`
	Credits          *int    `json:"credits"`
	Version          *string `json:"version"`
	Valid            *string `json:"valid"`
	Responsible      *string `json:"responsible"`
	Organisation     *string `json:"organisation"`
	Note             *string `json:"note"`
	ModuleLevel      *string `json:"module_level"`
	Abbreviation     *string `json:"abbreviation"`
	Subtitle         *string `json:"subtitle"`
	Duration         *string `json:"duration"`
	Occurrence       *string `json:"occurrence"`
	Language         *string `json:"language"`
	RelatedPrograms  *string `json:"related_programs"`
	TotalHours       *int    `json:"total_hours"`
	ContactHours     *int    `json:"contact_hours"`
	SelfStudyHours   *int    `json:"self_study_hours"`
	Assessment       *string `json:"description_of_achievement_and_assessment_methods"`
	RetakeNext       *string `json:"exam_retake_next_semester"`
	RetakeEnd        *string `json:"exam_retake_at_the_end_of_semester"`
	Prerequisites    *string `json:"prerequisites_recommended"`
	LearningOutcomes *string `json:"intended_learning_outcomes"`
	Content          *string `json:"content"`
	TeachingMethods  *string `json:"teaching_and_learning_methods"`
	Media            *string `json:"media"`
	ReadingList      *string `json:"reading_list"`

	ExtractionMethod Method `json:"extraction_method"`
}

// NewRecord returns an empty record for one lookup attempt.
func NewRecord(curriculumID int64, link string) *Record {
	return &Record{CurriculumID: curriculumID, TransformedLink: link, ExtractionMethod: MethodFailed}
}

// Identified reports whether the record carries an id or a name.
func (r *Record) Identified() bool {
	return r.ModuleID != nil || r.Name != nil
}

func (r *Record) textSlot(field string) **string {
	switch field {
	case FieldModuleID:
		return &r.ModuleID
	case FieldName:
		return &r.Name
	case FieldVersion:
		return &r.Version
	case FieldValid:
		return &r.Valid
	case FieldResponsible:
		return &r.Responsible
	case FieldOrganisation:
		return &r.Organisation
	case FieldNote:
		return &r.Note
	case FieldModuleLevel:
		return &r.ModuleLevel
	case FieldAbbreviation:
		return &r.Abbreviation
	case FieldSubtitle:
		return &r.Subtitle
	case FieldDuration:
		return &r.Duration
	case FieldOccurrence:
		return &r.Occurrence
	case FieldLanguage:
		return &r.Language
	case FieldRelatedPrograms:
		return &r.RelatedPrograms
	case FieldAssessment:
		return &r.Assessment
	case FieldRetakeNext:
		return &r.RetakeNext
	case FieldRetakeEnd:
		return &r.RetakeEnd
	case FieldPrerequisites:
		return &r.Prerequisites
	case FieldLearningOutcomes:
		return &r.LearningOutcomes
	case FieldContent:
		return &r.Content
	case FieldTeachingMethods:
		return &r.TeachingMethods
	case FieldMedia:
		return &r.Media
	case FieldReadingList:
		return &r.ReadingList
	}
	return nil
}

func (r *Record) numberSlot(field string) **int {
	switch field {
	case FieldCredits:
		return &r.Credits
	case FieldTotalHours:
		return &r.TotalHours
	case FieldContactHours:
		return &r.ContactHours
	case FieldSelfStudyHours:
		return &r.SelfStudyHours
	}
	return nil
}

// Has reports whether field already carries a value.
func (r *Record) Has(field string) bool {
	if s := r.textSlot(field); s != nil {
		return *s != nil
	}
	if n := r.numberSlot(field); n != nil {
		return *n != nil
	}
	return false
}

// Set stores raw under field after cleanup. It never overwrites a filled
// field and reports whether the value was accepted.
func (r *Record) Set(field, raw string) bool {
	if r.Has(field) {
		return false
	}
	if n := r.numberSlot(field); n != nil {
		v, ok := ExtractInt(raw)
		if !ok {
			return false
		}
		*n = &v
		return true
	}
	s := r.textSlot(field)
	if s == nil {
		return false
	}
	v, ok := cleanText(field, raw)
	if !ok {
		return false
	}
	*s = &v
	return true
}

// Text returns the string form of field, or "" when unknown.
func (r *Record) Text(field string) string {
	if s := r.textSlot(field); s != nil && *s != nil {
		return **s
	}
	if n := r.numberSlot(field); n != nil && *n != nil {
		return itoa(**n)
	}
	return ""
}
