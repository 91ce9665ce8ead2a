package curriculum

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(id string, tags []string, name string) Row {
	return Row{NodeID: id, AncestorTags: tags, DisplayName: name}
}

func names(e Entry) [3]string {
	return [3]string{e.NameLevel1, e.NameLevel2, e.NameLevel3}
}

func TestParseBuildsHierarchy(t *testing.T) {
	rows := []Row{
		row("kn1", []string{"kn1"}, "Required Modules"),
		row("kn2", []string{"kn2", "kn1"}, "Informatics"),
		{NodeID: "kn3", AncestorTags: []string{"kn3", "kn1", "kn2"}, DisplayName: "IN2003 Efficient Algorithms",
			Link: "https://campus.tum.de/tumonline/x", CreditsText: "8", GradingFlag: "Y"},
		row("kn4", []string{"kn4"}, "Electives"),
	}

	entries := Parse("121", rows)
	require.Len(t, entries, 4)

	assert.Equal(t, [3]string{"Required Modules", "", ""}, names(entries[0]))
	assert.Equal(t, [3]string{"Required Modules", "Informatics", ""}, names(entries[1]))
	assert.Equal(t, [3]string{"Required Modules", "Informatics", "IN2003 Efficient Algorithms"}, names(entries[2]))
	assert.Equal(t, [3]string{"Electives", "", ""}, names(entries[3]))

	assert.Equal(t, "8", entries[2].Credits)
	assert.Equal(t, "Y", entries[2].GradingFlag)
	assert.Equal(t, "https://campus.tum.de/tumonline/x", entries[2].Link)
	for i, e := range entries {
		assert.Equal(t, "121", e.ProgramID)
		assert.Equal(t, i+1, e.SequenceID)
	}
}

func TestParseFirstRowExemption(t *testing.T) {
	rows := []Row{
		row("k1", []string{"k1"}, "[Core]"),
		row("k2", []string{"k2", "k1"}, "Algorithms"),
	}

	entries := Parse("121", rows)
	require.Len(t, entries, 2)
	assert.Equal(t, "[Core]", entries[1].NameLevel1)
	assert.Equal(t, "Algorithms", entries[1].NameLevel2)
}

func TestParseBracketSkipRule(t *testing.T) {
	rows := []Row{
		row("k0", []string{"k0"}, "Overview"),
		row("k1", []string{"k1"}, "[Core]"),
		row("k2", []string{"k2", "k1"}, "X"),
		row("k3", []string{"k3", "k1"}, "Y"),
	}

	entries := Parse("121", rows)
	require.Len(t, entries, 2)
	assert.Equal(t, "Overview", entries[0].NameLevel1)
	assert.Equal(t, "[Core]", entries[1].NameLevel1)
}

func TestParseSkippedRowDoesNotUpdateState(t *testing.T) {
	rows := []Row{
		row("k0", []string{"k0"}, "Overview"),
		row("k1", []string{"k1"}, "[Core]"),
		row("k2", []string{"k2", "k1"}, "Hidden"),
		row("k5", []string{"k5"}, "Electives"),
		row("k6", []string{"k6", "k5"}, "Seminar"),
		row("k7", []string{"k7", "k5", "k2"}, "Orphan"),
	}

	entries := Parse("121", rows)
	require.Len(t, entries, 5)
	assert.Equal(t, [3]string{"Electives", "Seminar", ""}, names(entries[3]))
	// k2 was skipped, so its name was never recorded.
	assert.Equal(t, [3]string{"Electives", "", "Orphan"}, names(entries[4]))
}

func TestParseBracketedSiblingDoesNotSkip(t *testing.T) {
	rows := []Row{
		row("k0", []string{"k0"}, "Overview"),
		row("k1", []string{"k1"}, "[Core]"),
		row("k2", []string{"k2"}, "Electives"),
	}
	assert.Len(t, Parse("121", rows), 3)
}

func TestParseDropsInvalidLevels(t *testing.T) {
	rows := []Row{
		row("k0", nil, "No tags"),
		row("k1", []string{"k1"}, "Root"),
		row("k9", []string{"k9", "k1", "k2", "k3"}, "Too deep"),
		row("k2", []string{"k2", "k1"}, "Child"),
	}

	entries := Parse("121", rows)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].SequenceID)
	assert.Equal(t, 2, entries[1].SequenceID)
	assert.Equal(t, "Child", entries[1].NameLevel2)
}

func TestParseMissingAncestorResolvesEmpty(t *testing.T) {
	rows := []Row{
		row("k3", []string{"k3", "k1", "k2"}, "Leaf"),
	}

	entries := Parse("121", rows)
	require.Len(t, entries, 1)
	assert.Equal(t, [3]string{"", "", "Leaf"}, names(entries[0]))
}

func TestParseLevelInvariant(t *testing.T) {
	rows := []Row{
		row("a", []string{"a"}, "A"),
		row("b", []string{"b", "a"}, "B"),
		row("c", []string{"c", "a", "b"}, "C"),
		row("d", []string{"d", "a"}, "D"),
		row("e", []string{"e"}, "E"),
	}
	want := [][3]string{
		{"A", "", ""},
		{"A", "B", ""},
		{"A", "B", "C"},
		{"A", "D", ""},
		{"E", "", ""},
	}

	entries := Parse("42", rows)
	require.Len(t, entries, len(want))
	for i := range want {
		assert.Equal(t, want[i], names(entries[i]), "entry %d", i)
	}
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, Parse("121", nil))
}
