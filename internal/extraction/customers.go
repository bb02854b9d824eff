package extraction

import (
	"strings"

	"github.com/jonathan/cv-matcher/internal/types"
)

// DetectCustomers collects every distinct client name labeled "Kund:" or
// "Client:" in any table row or paragraph, in encounter order. Rows are
// flattened the same way SegmentSections flattens them, so the detected name
// is the value NormalizeSection later captures as the customer.
func DetectCustomers(doc *types.Document) []string {
	names := []string{}
	if doc == nil {
		return names
	}

	seen := make(map[string]bool)
	add := func(text string) {
		m := customerPattern.FindStringSubmatch(text)
		if m == nil {
			return
		}
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, table := range doc.Tables {
		for _, row := range table {
			add(rowText(row))
		}
	}
	for _, para := range doc.Paragraphs {
		add(para)
	}

	return names
}

// RedactionTerms builds the set of terms to scrub from a document: the
// applicant's first and last name plus every detected client.
func RedactionTerms(doc *types.Document) RedactionSet {
	first, last := ExtractName(doc)
	terms := append([]string{first, last}, DetectCustomers(doc)...)
	return NewRedactionSet(terms...)
}
