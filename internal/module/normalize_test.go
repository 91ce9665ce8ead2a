package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labelledPage = `<html><body>
<ca-entry><div class="ca-entry-label">Module ID</div><div class="ca-entry-content">IN2003</div></ca-entry>
<ca-entry><div class="ca-entry-label">Name</div><div class="ca-entry-content">Efficient Algorithms and Data Structures</div></ca-entry>
<ca-entry><span class="ca-entry-label">Credits:</span><div class="ca-entry-content">8 ECTS credits</div></ca-entry>
<table>
  <tr><th>Total Hours</th><td>240</td></tr>
  <tr><th>Contact Hours</th><td>-</td></tr>
  <tr><th>Self-study Hours</th><td>150</td></tr>
  <tr><td>Module Responsible</td><td>Prof. Dr. Harald Räcke</td></tr>
  <tr><td>Prerequisites (recommended)</td><td>-</td></tr>
  <tr><td>Prerequisites</td><td>IN0007 Fundamentals of Algorithms</td></tr>
</table>
<dl><dt>Language</dt><dd>English</dd><dt>Content:</dt><dd> Sorting, graphs. </dd></dl>
</body></html>`

func parse(t *testing.T, html string) *Document {
	t.Helper()
	doc, err := ParseDocument(html, "https://campus.tum.de/tumonline/wbModHb.detail?pKnotenNr=1")
	require.NoError(t, err)
	return doc
}

func TestNormalizeLabelMatching(t *testing.T) {
	rec := Normalize(parse(t, labelledPage), NewRecord(7, "https://example.org/m"))

	require.NotNil(t, rec.ModuleID)
	assert.Equal(t, "IN2003", *rec.ModuleID)
	require.NotNil(t, rec.Name)
	assert.Equal(t, "Efficient Algorithms and Data Structures", *rec.Name)
	require.NotNil(t, rec.Credits)
	assert.Equal(t, 8, *rec.Credits)
	require.NotNil(t, rec.TotalHours)
	assert.Equal(t, 240, *rec.TotalHours)
	assert.Nil(t, rec.ContactHours)
	require.NotNil(t, rec.SelfStudyHours)
	assert.Equal(t, 150, *rec.SelfStudyHours)
	require.NotNil(t, rec.Responsible)
	assert.Equal(t, "Harald Räcke", *rec.Responsible)
	require.NotNil(t, rec.Prerequisites)
	assert.Equal(t, "IN0007 Fundamentals of Algorithms", *rec.Prerequisites)
	assert.Equal(t, "English", rec.Text(FieldLanguage))
	assert.Equal(t, "Sorting, graphs.", rec.Text(FieldContent))
	assert.Nil(t, rec.ReadingList)

	assert.Equal(t, MethodPrimary, rec.ExtractionMethod)
	assert.Equal(t, int64(7), rec.CurriculumID)
	assert.Equal(t, "https://example.org/m", rec.TransformedLink)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	doc := parse(t, labelledPage)
	first := Normalize(doc, NewRecord(1, ""))
	snapshot := *first

	second := Normalize(doc, first)
	assert.Equal(t, snapshot, *second)
}

const positionalPage = `<html><body>
<ca-entry><div class="ca-entry-content">Business Process Management Fundamentals</div></ca-entry>
<ca-entry><div class="ca-entry-content">0000001234</div></ca-entry>
<ca-entry><div class="ca-entry-content">6</div></ca-entry>
<ca-entry><div class="ca-entry-content">v4</div></ca-entry>
<ca-entry><div class="ca-entry-content">WiSe 2024/25 - </div></ca-entry>
<ca-entry><div class="ca-entry-content">Krcmar, Helmut</div></ca-entry>
<ca-entry><div class="ca-entry-content">Chair of Information Systems</div></ca-entry>
<ca-entry>Note text without container</ca-entry>
</body></html>`

func TestNormalizePositionalLayout(t *testing.T) {
	rec := Normalize(parse(t, positionalPage), NewRecord(2, ""))

	assert.Equal(t, "Business Process Management Fundamentals", rec.Text(FieldName))
	assert.Equal(t, "0000001234", rec.Text(FieldModuleID))
	assert.Equal(t, "6", rec.Text(FieldCredits))
	assert.Equal(t, "v4", rec.Text(FieldVersion))
	assert.Equal(t, "WiSe 2024/25 -", rec.Text(FieldValid))
	assert.Equal(t, "Krcmar, Helmut", rec.Text(FieldResponsible))
	assert.Equal(t, "Chair of Information Systems", rec.Text(FieldOrganisation))
	assert.Equal(t, "Note text without container", rec.Text(FieldNote))
	assert.Equal(t, MethodPrimary, rec.ExtractionMethod)
}

func TestNormalizeFreeTextFallback(t *testing.T) {
	page := `<html><body>
<p>Advanced Topics in Machine Learning</p>
<span>0012345</span>
<p>An unexpected error happened on this page</p>
</body></html>`

	rec := Normalize(parse(t, page), NewRecord(3, ""))
	assert.Equal(t, "Advanced Topics in Machine Learning", rec.Text(FieldName))
	assert.Equal(t, "0012345", rec.Text(FieldModuleID))
	assert.Equal(t, MethodFallback, rec.ExtractionMethod)
}

func TestNormalizeFailedOnBrowserErrorPage(t *testing.T) {
	page := `<html><body>
<p>Short</p>
<p>Diese Seite ist nicht für diesen Browser optimiert</p>
<p>Your browser is not supported by this application</p>
</body></html>`

	rec := Normalize(parse(t, page), NewRecord(4, ""))
	assert.False(t, rec.Identified())
	assert.Equal(t, MethodFailed, rec.ExtractionMethod)
}

func TestRecordSetNumericExtraction(t *testing.T) {
	rec := NewRecord(0, "")

	assert.True(t, rec.Set(FieldCredits, "6 ECTS credits"))
	require.NotNil(t, rec.Credits)
	assert.Equal(t, 6, *rec.Credits)

	assert.False(t, rec.Set(FieldTotalHours, "-"))
	assert.Nil(t, rec.TotalHours)

	assert.False(t, rec.Set(FieldContactHours, "Credits may vary according to SPO version"))
	assert.Nil(t, rec.ContactHours)
}

func TestRecordSetNeverOverwrites(t *testing.T) {
	rec := NewRecord(0, "")
	require.True(t, rec.Set(FieldName, "Original Name"))
	assert.False(t, rec.Set(FieldName, "Different Name"))
	assert.Equal(t, "Original Name", rec.Text(FieldName))

	require.True(t, rec.Set(FieldCredits, "5"))
	assert.False(t, rec.Set(FieldCredits, "10"))
	assert.Equal(t, "5", rec.Text(FieldCredits))
}

func TestRecordSetRejectsPlaceholders(t *testing.T) {
	rec := NewRecord(0, "")
	assert.False(t, rec.Set(FieldLanguage, "  "))
	assert.False(t, rec.Set(FieldLanguage, "-"))
	assert.False(t, rec.Set("unknown_field", "x"))
	assert.Nil(t, rec.Language)
}

func TestCleanResponsible(t *testing.T) {
	cases := map[string]string{
		"Prof. Dr. Helmut Krcmar":                   "Helmut Krcmar",
		"Krcmar, Helmut":                            "Krcmar, Helmut",
		"Prof. Dr. Anna Meier, Prof. Dr. Jan Weber": "Anna Meier, Jan Weber",
		"PD Dr. rer. nat. Lisa Schmidt":             "Lisa Schmidt",
		"n.n.":                                      "n.n.",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanResponsible(in), "input %q", in)
	}
}

func TestExtractInt(t *testing.T) {
	v, ok := ExtractInt("approx. 180 h")
	assert.True(t, ok)
	assert.Equal(t, 180, v)

	_, ok = ExtractInt("none")
	assert.False(t, ok)
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	doc := parse(t, `<table><tr><th>TOTAL HOURS:</th><td>90</td></tr></table>`)
	v, ok := doc.Lookup("total hours")
	assert.True(t, ok)
	assert.Equal(t, "90", v)

	_, ok = doc.Lookup("Media")
	assert.False(t, ok)
}

func TestHasBrowserError(t *testing.T) {
	assert.True(t, HasBrowserError("<p>This page is NOT OPTIMIZED FOR YOUR BROWSER</p>"))
	assert.False(t, HasBrowserError("<p>Efficient Algorithms</p>"))
}
