package extraction

import (
	"github.com/jonathan/cv-matcher/internal/types"
)

// Report describes what ExtractProfileWithReport did with each raw section
type Report struct {
	Sections int              // raw sections found
	Dropped  []DroppedSection // sections that failed to normalize
	Redacted int              // effective redaction terms
}

// DroppedSection is a raw section left out of the profile
type DroppedSection struct {
	Index int
	Err   error
}

// ExtractProfile runs the full pipeline over doc. title is carried into the
// profile unchanged (callers pass the uploaded file name).
func ExtractProfile(doc *types.Document, title string) types.ExtractedProfile {
	profile, _ := ExtractProfileWithReport(doc, title)
	return profile
}

// ExtractProfileWithReport is ExtractProfile plus a report of dropped sections.
func ExtractProfileWithReport(doc *types.Document, title string) (types.ExtractedProfile, Report) {
	profile := types.ExtractedProfile{
		Title:        title,
		Introduction: ExtractIntroduction(doc),
		Education:    ExtractEducation(doc),
		Assignments:  []types.Assignment{},
	}

	set := RedactionTerms(doc)
	sections := SegmentSections(doc)
	report := Report{Sections: len(sections), Redacted: set.Len()}

	for i, section := range sections {
		assignment, err := NormalizeSection(section, set)
		if err != nil {
			report.Dropped = append(report.Dropped, DroppedSection{Index: i, Err: err})
			continue
		}
		profile.Assignments = append(profile.Assignments, assignment)
	}

	return profile, report
}
