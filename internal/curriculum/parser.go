// Package curriculum rebuilds a degree program's category tree from the
// flattened row list rendered by the campus management system.
package curriculum

import "strings"

// MaxLevel is the deepest category level kept in the flat table.
const MaxLevel = 3

// Row is one row of the flattened tree as scraped, in document order.
type Row struct {
	NodeID string
	// AncestorTags names the row itself followed by its ancestors, so its
	// length is the row's level.
	AncestorTags []string
	DisplayName  string
	Link         string
	CreditsText  string
	GradingFlag  string
}

// Level returns the depth of the row in the tree.
func (r Row) Level() int {
	return len(r.AncestorTags)
}

// Bracketed reports whether the row is a collapsed summary node.
func (r Row) Bracketed() bool {
	return strings.HasPrefix(r.DisplayName, "[")
}

// Entry is one emitted row of the curriculum table.
type Entry struct {
	ProgramID   string `json:"program_id"`
	NameLevel1  string `json:"name_level1"`
	NameLevel2  string `json:"name_level2"`
	NameLevel3  string `json:"name_level3"`
	Link        string `json:"link"`
	Credits     string `json:"credits"`
	GradingFlag string `json:"grading_flag"`
	SequenceID  int    `json:"sequence_id"`
}

// Parse turns rows into curriculum entries for programID. Rows deeper than
// MaxLevel or without tags are dropped, and the children of a bracketed
// summary row are omitted unless that row is the first one accepted.
func Parse(programID string, rows []Row) []Entry {
	var (
		namesByID  = make(map[string]string)
		entries    []Entry
		prevLevel  = -1
		prevBraced = false
		isFirst    = true
	)

	for _, row := range rows {
		level := row.Level()
		if level == 0 || level > MaxLevel {
			continue
		}
		if !isFirst && prevBraced && level > prevLevel {
			continue
		}

		namesByID[row.NodeID] = row.DisplayName

		var name1, name2, name3 string
		switch level {
		case 1:
			name1 = row.DisplayName
		case 2:
			name1 = namesByID[row.AncestorTags[1]]
			name2 = row.DisplayName
		case 3:
			name1 = namesByID[row.AncestorTags[1]]
			name2 = namesByID[row.AncestorTags[2]]
			name3 = row.DisplayName
		}

		entries = append(entries, Entry{
			ProgramID:   programID,
			NameLevel1:  name1,
			NameLevel2:  name2,
			NameLevel3:  name3,
			Link:        row.Link,
			Credits:     row.CreditsText,
			GradingFlag: row.GradingFlag,
			SequenceID:  len(entries) + 1,
		})

		prevLevel = level
		prevBraced = row.Bracketed()
		isFirst = false
	}

	return entries
}
