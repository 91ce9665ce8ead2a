package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const curriculumPage = `<html><body><table>
<tr class="coRow hi"><td>Name</td><td>Link</td><td>Type</td><td>Credits</td><td>GF</td></tr>
<tr class="coRow kn100" id="kn100">
  <td><div><span><a href="#"><span>Required Modules</span></a><a><span>ignored</span></a></span></div></td>
  <td><div><span><a href="#">-</a></span></div></td>
  <td></td>
  <td><div><span>60</span></div></td>
  <td><div><span></span></div></td>
</tr>
<tr class="coRow kn101 kn100 invisible" id="kn101">
  <td><div><span><a><span>Hidden</span></a></span></div></td>
</tr>
<tr class="coRow kn102 kn100" id="kn102">
  <td><div><span><a><span>IN2003 Efficient Algorithms</span></a></span></div></td>
  <td><div><span><a href="wbModHb.detail?pKnotenNr=102">open</a></span></div></td>
  <td></td>
  <td><div><span> 8 </span></div></td>
  <td><div><span>Y</span></div></td>
</tr>
<tr class="coRow" id="header-2"><td>no node id</td></tr>
</table></body></html>`

func TestExtractRows(t *testing.T) {
	rows, err := ExtractRows(curriculumPage, DefaultBaseURL)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "kn100", rows[0].NodeID)
	assert.Equal(t, []string{"kn100"}, rows[0].AncestorTags)
	assert.Equal(t, "Required Modules", rows[0].DisplayName)
	assert.Equal(t, "", rows[0].Link)
	assert.Equal(t, "60", rows[0].CreditsText)

	assert.Equal(t, []string{"kn102", "kn100"}, rows[1].AncestorTags)
	assert.Equal(t, "IN2003 Efficient Algorithms", rows[1].DisplayName)
	assert.Equal(t, "https://campus.tum.de/tumonline/wbModHb.detail?pKnotenNr=102", rows[1].Link)
	assert.Equal(t, "8", rows[1].CreditsText)
	assert.Equal(t, "Y", rows[1].GradingFlag)
}

func TestExtractRowsFeedsParser(t *testing.T) {
	rows, err := ExtractRows(curriculumPage, DefaultBaseURL)
	require.NoError(t, err)

	entries := Parse("121", rows)
	require.Len(t, entries, 2)
	assert.Equal(t, "Required Modules", entries[1].NameLevel1)
	assert.Equal(t, "IN2003 Efficient Algorithms", entries[1].NameLevel2)
}

func TestNormalizeLink(t *testing.T) {
	cases := map[string]string{
		"":                        "",
		"#":                       "",
		"  ":                      "",
		"wbModHb.detail?x=1":      "https://campus.tum.de/tumonline/wbModHb.detail?x=1",
		"/wbModHb.detail?x=1":     "https://campus.tum.de/tumonline/wbModHb.detail?x=1",
		"https://example.org/a/b": "https://example.org/a/b",
	}
	for href, want := range cases {
		assert.Equal(t, want, NormalizeLink(DefaultBaseURL, href), "href %q", href)
	}
	assert.Equal(t, "https://campus.tum.de/tumonline/a", NormalizeLink("", "a"))
}

const programsPage = `<html><body><form><table><tbody>
<tr><th>Degree</th><th>ID</th><th>Curriculum</th><th>Field</th><th>ECTS</th><th>Semester</th></tr>
<tr>
  <td>Master of Science</td><td>1621</td>
  <td><div><span><a href="wbstpcs.showSpoTree?pStpStpNr=4997">Information Systems</a></span><span>|</span><span><a href="javascript:void(0)">Handbook</a></span></div></td>
  <td>Informatics</td><td>120</td><td>4</td>
</tr>
<tr><td>too</td><td>short</td></tr>
</tbody></table></form></body></html>`

func TestExtractPrograms(t *testing.T) {
	programs, err := ExtractPrograms(programsPage, DefaultBaseURL)
	require.NoError(t, err)
	require.Len(t, programs, 1)

	p := programs[0]
	assert.Equal(t, "Master of Science", p.Degree)
	assert.Equal(t, "1621", p.ID)
	assert.Equal(t, "Information Systems|Handbook", p.Curriculum)
	assert.Equal(t, "Informatics", p.FieldOfStudies)
	assert.Equal(t, "120", p.ECTS)
	assert.Equal(t, "4", p.Semester)
	assert.Equal(t, "https://campus.tum.de/tumonline/wbstpcs.showSpoTree?pStpStpNr=4997", p.CurriculumLink)
	assert.Equal(t, "", p.HandbookLink)
}

func TestProgramsURL(t *testing.T) {
	assert.Contains(t, ProgramsURL(DefaultBaseURL+"/"), "https://campus.tum.de/tumonline/wbstpportfolio.wbStpList?")
}
