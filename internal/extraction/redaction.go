package extraction

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/cv-matcher/internal/types"
)

// RedactionMarker replaces every redacted term
const RedactionMarker = "[REDACTED]"

// RedactionSet is an immutable set of case-sensitive terms to scrub from output.
// The zero value is an empty set.
type RedactionSet struct {
	terms []string // longest first, so "Anna" wins over "Ann" at the same position
}

// NewRedactionSet builds a set from the given terms. Empty and whitespace-only
// terms are dropped and duplicates collapse.
func NewRedactionSet(terms ...string) RedactionSet {
	seen := make(map[string]bool, len(terms))
	kept := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		kept = append(kept, term)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if len(kept[i]) != len(kept[j]) {
			return len(kept[i]) > len(kept[j])
		}
		return kept[i] < kept[j]
	})

	return RedactionSet{terms: kept}
}

// Len returns the number of effective terms
func (s RedactionSet) Len() int {
	return len(s.terms)
}

// Terms returns a copy of the effective terms
func (s RedactionSet) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Contains reports whether term is in the set
func (s RedactionSet) Contains(term string) bool {
	for _, t := range s.terms {
		if t == term {
			return true
		}
	}
	return false
}

// Text replaces whole-word occurrences of any term in text with RedactionMarker.
// A match must not be preceded or followed by a letter, digit or underscore.
func (s RedactionSet) Text(text string) string {
	if len(s.terms) == 0 || text == "" {
		return text
	}

	var sb strings.Builder
	changed := false
	prev := rune(-1)

	for i := 0; i < len(text); {
		if !isWordRune(prev) {
			if term := s.matchAt(text, i); term != "" {
				sb.WriteString(RedactionMarker)
				i += len(term)
				prev, _ = utf8.DecodeLastRuneInString(term)
				changed = true
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		sb.WriteString(text[i : i+size])
		prev = r
		i += size
	}

	if !changed {
		return text
	}
	return sb.String()
}

// matchAt returns the longest term starting at i that ends on a word boundary
func (s RedactionSet) matchAt(text string, i int) string {
	for _, term := range s.terms {
		if !strings.HasPrefix(text[i:], term) {
			continue
		}
		next, _ := utf8.DecodeRuneInString(text[i+len(term):])
		if i+len(term) == len(text) || !isWordRune(next) {
			return term
		}
	}
	return ""
}

func isWordRune(r rune) bool {
	if r < 0 {
		return false
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Redact scrubs the customer, description and every expertise entry of a.
// With an empty set the assignment is returned as is.
func Redact(a types.Assignment, set RedactionSet) types.Assignment {
	if set.Len() == 0 {
		return a
	}

	out := a
	out.Customer = set.Text(a.Customer)
	out.Description = set.Text(a.Description)
	if a.Expertise != nil {
		out.Expertise = make([]string, len(a.Expertise))
		for i, skill := range a.Expertise {
			out.Expertise[i] = set.Text(skill)
		}
	}
	return out
}
