package extraction

import "regexp"

// Labels appear in either Swedish or English in the same template.
// Field captures stop at the " | " cell separator so a row flattened from
// several cells yields one value per label.
var (
	roleStartPattern = regexp.MustCompile(`^(?:Roll|Role):`)
	rolePattern      = regexp.MustCompile(`(?:Roll|Role):\s*\|?\s*([^|\n]+)`)
	customerPattern  = regexp.MustCompile(`(?:Kund|Client):\s*\|?\s*([^|\n]+)`)
	periodPattern    = regexp.MustCompile(`Period:\s*\|?\s*([\d\-–\s]+)`)

	descriptionLabel = regexp.MustCompile(`(?:Beskrivning|Description):?\s*\|?\s*`)
	descriptionStop  = regexp.MustCompile(`Expertise?\b`)
	expertisePattern = regexp.MustCompile(`(?s)Expertise?\s*\|(.+)`)
)

// periodSeparator splits a date range; only the en dash separates, a hyphen
// belongs to the YYYY-MM value itself.
const periodSeparator = "–"

// Headings used to locate the introduction and education sections when the
// template coordinates are empty.
var (
	introductionHeadings = []string{"Introduktion", "Introduction", "Sammanfattning", "Summary"}
	educationHeadings    = []string{"Utbildning", "Education"}
)
