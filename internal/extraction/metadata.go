// Package extraction turns a résumé's table/paragraph structure into a
// redacted, normalized profile.
//
// The résumé template is semi-structured: applicant identity and the two
// free-text sections sit at fixed table coordinates, while assignments are
// label-driven ("Roll:"/"Role:", "Kund:"/"Client:", "Period:" ...). Every
// function here is a pure read of its input and is safe for concurrent use.
package extraction

import (
	"strings"

	"github.com/jonathan/cv-matcher/internal/types"
)

// Template coordinates (table, row, cell), zero-based
var (
	nameCoord         = [3]int{0, 1, 1}
	introductionCoord = [3]int{1, 0, 0}
	educationCoord    = [3]int{2, 2, 0}
)

// ExtractName reads the applicant's name from the template's header table and
// splits it at the first space. Both parts are empty when the cell is missing
// or holds a single word.
func ExtractName(doc *types.Document) (first, last string) {
	name, ok := doc.Cell(nameCoord[0], nameCoord[1], nameCoord[2])
	if !ok {
		return "", ""
	}

	first, last, found := strings.Cut(strings.TrimSpace(name), " ")
	if !found {
		return "", ""
	}
	return first, strings.TrimSpace(last)
}

// ExtractIntroduction returns the introduction text, or "" when absent.
func ExtractIntroduction(doc *types.Document) string {
	return positionalOrHeading(doc, introductionCoord, introductionHeadings)
}

// ExtractEducation returns the education text, or "" when absent.
func ExtractEducation(doc *types.Document) string {
	return positionalOrHeading(doc, educationCoord, educationHeadings)
}

// positionalOrHeading prefers the template coordinate and falls back to the
// text that follows a matching heading.
func positionalOrHeading(doc *types.Document, coord [3]int, headings []string) string {
	if text, ok := doc.Cell(coord[0], coord[1], coord[2]); ok {
		if text = strings.TrimSpace(text); text != "" {
			return text
		}
	}
	return findUnderHeading(doc, headings)
}

// findUnderHeading searches tables, then paragraphs, for a heading and returns
// the first non-empty text after it.
func findUnderHeading(doc *types.Document, headings []string) string {
	if doc == nil {
		return ""
	}

	for _, table := range doc.Tables {
		for i, row := range table {
			cells := distinctCells(row)
			if len(cells) == 0 || !isHeading(cells[0], headings) {
				continue
			}
			// Heading and body in the same row
			if len(cells) > 1 {
				return strings.Join(cells[1:], "\n")
			}
			for _, next := range table[i+1:] {
				if rest := distinctCells(next); len(rest) > 0 {
					return strings.Join(rest, "\n")
				}
			}
		}
	}

	for i, para := range doc.Paragraphs {
		if !isHeading(para, headings) {
			continue
		}
		for _, next := range doc.Paragraphs[i+1:] {
			if next = strings.TrimSpace(next); next != "" {
				return next
			}
		}
	}

	return ""
}

func isHeading(text string, headings []string) bool {
	text = strings.TrimSuffix(strings.TrimSpace(text), ":")
	for _, h := range headings {
		if strings.EqualFold(text, h) {
			return true
		}
	}
	return false
}
