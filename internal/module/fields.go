package module

// FieldSpec maps a canonical field to the page labels it may appear under,
// in priority order.
type FieldSpec struct {
	Name   string
	Labels []string
}

// Fields is the label dictionary for module handbook pages in English and
// German.
var Fields = []FieldSpec{
	{FieldModuleID, []string{"Module ID", "Modul-ID", "Module Number", "Modulnummer", "ID"}},
	{FieldName, []string{"Module Name", "Modulbezeichnung", "Name", "Title"}},
	{FieldCredits, []string{"Credits", "Credits (ECTS)", "ECTS", "ECTS-Credits"}},
	{FieldVersion, []string{"Version", "Module Version", "Modulversion"}},
	{FieldValid, []string{"Valid", "Valid from", "Gültig ab", "Gültig"}},
	{FieldResponsible, []string{"Module Responsible", "Responsible", "Modulverantwortliche(r)", "Modulverantwortung"}},
	{FieldOrganisation, []string{"Organisation", "Organization", "Organisationseinheit"}},
	{FieldNote, []string{"Note", "Notes", "Anmerkung"}},
	{FieldModuleLevel, []string{"Module Level", "Modulniveau", "Level"}},
	{FieldAbbreviation, []string{"Abbreviation", "Kurzbezeichnung", "Kürzel"}},
	{FieldSubtitle, []string{"Subtitle", "Untertitel"}},
	{FieldDuration, []string{"Duration", "Duration of Module", "Moduldauer", "Dauer"}},
	{FieldOccurrence, []string{"Occurrence", "Frequency", "Angebotsturnus", "Turnus"}},
	{FieldLanguage, []string{"Language", "Unterrichtssprache", "Sprache"}},
	{FieldRelatedPrograms, []string{"Related Programs", "Related Programmes", "Zugeordnete Studiengänge"}},
	{FieldTotalHours, []string{"Total Hours", "Total Workload", "Gesamtstunden"}},
	{FieldContactHours, []string{"Contact Hours", "Präsenzstunden", "Kontaktstunden"}},
	{FieldSelfStudyHours, []string{"Self-study Hours", "Self-Study", "Eigenstudiumsstunden", "Eigenstudium"}},
	{FieldAssessment, []string{"Description of achievement and assessment methods", "Assessment", "Beschreibung der Studien-/ Prüfungsleistungen", "Prüfungsleistungen"}},
	{FieldRetakeNext, []string{"Exam retake next semester", "Wiederholungsmöglichkeit Folgesemester"}},
	{FieldRetakeEnd, []string{"Exam retake at the end of semester", "Wiederholungsmöglichkeit Semesterende"}},
	{FieldPrerequisites, []string{"Prerequisites (recommended)", "Recommended Prerequisites", "Prerequisites", "Empfohlene Voraussetzungen"}},
	{FieldLearningOutcomes, []string{"Intended Learning Outcomes", "Learning Outcomes", "Angestrebte Lernergebnisse", "Lernergebnisse"}},
	{FieldContent, []string{"Content", "Contents", "Inhalt"}},
	{FieldTeachingMethods, []string{"Teaching and Learning Methods", "Lehr- und Lernmethoden"}},
	{FieldMedia, []string{"Media", "Medienform", "Medien"}},
	{FieldReadingList, []string{"Reading List", "Literature", "Literatur"}},
}

// positionalFields lists the fields laid out as the first eight ca-entry
// blocks of a handbook page.
var positionalFields = []string{
	FieldName,
	FieldModuleID,
	FieldCredits,
	FieldVersion,
	FieldValid,
	FieldResponsible,
	FieldOrganisation,
	FieldNote,
}

// BrowserErrorPhrases mark pages served to unsupported clients.
var BrowserErrorPhrases = []string{
	"nicht für diesen browser optimiert",
	"not optimised for your browser",
	"not optimized for your browser",
	"browser wird nicht unterstützt",
	"browser is not supported",
}
