package extraction

import (
	"strings"

	"github.com/jonathan/cv-matcher/internal/types"
)

// SegmentSections splits the document's tables into raw assignment blocks.
//
// A block opens at a row starting with "Roll:" or "Role:" and collects the
// following rows until the next such row or the end of the table. Row text is
// the row's distinct non-empty cells joined with " | "; a row whose text was
// already seen in the same table is skipped, which collapses merged cells
// that Word repeats across the grid.
func SegmentSections(doc *types.Document) []string {
	sections := []string{}
	if doc == nil {
		return sections
	}

	for _, table := range doc.Tables {
		var current []string
		seen := make(map[string]bool)

		for _, row := range table {
			text := rowText(row)
			if text == "" || seen[text] {
				continue
			}
			seen[text] = true

			switch {
			case roleStartPattern.MatchString(text):
				if len(current) > 0 {
					sections = append(sections, strings.Join(current, "\n"))
				}
				current = []string{text}
			case current != nil:
				current = append(current, text)
			}
		}

		if len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
		}
	}

	return sections
}

// rowText flattens a table row into its distinct non-empty cells joined with " | "
func rowText(row []string) string {
	return strings.Join(distinctCells(row), " | ")
}

// distinctCells returns the trimmed, non-empty cells of a row with repeats removed
func distinctCells(row []string) []string {
	out := make([]string, 0, len(row))
	seen := make(map[string]bool, len(row))
	for _, c := range row {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
