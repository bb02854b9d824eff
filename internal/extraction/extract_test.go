package extraction

import (
	"strings"
	"sync"
	"testing"

	"github.com/jonathan/cv-matcher/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endToEndDoc() *types.Document {
	return &types.Document{
		Tables: [][][]string{
			{{"Profile", ""}, {"Name", "Jane Doe"}},
			{{"Backend engineer."}},
			{{"Education"}, {""}, {"M.Sc."}},
			{{"Role: Engineer | Client: Acme | Period: 2020-01 – 2020-12 | Description Worked on X. Expertise | Go | SQL"}},
		},
		Paragraphs: []string{"Client: Acme"},
	}
}

func TestExtractProfile_EndToEnd(t *testing.T) {
	profile := ExtractProfile(endToEndDoc(), "jane.docx")

	assert.Equal(t, "jane.docx", profile.Title)
	assert.Equal(t, "Backend engineer.", profile.Introduction)
	assert.Equal(t, "M.Sc.", profile.Education)

	require.Len(t, profile.Assignments, 1)
	a := profile.Assignments[0]
	assert.Equal(t, "Engineer", a.Role)
	assert.Equal(t, RedactionMarker, a.Customer)
	assert.Equal(t, "01/2020", a.DateStart)
	assert.Equal(t, "12/2020", a.DateEnd)
	assert.Contains(t, a.Description, "Worked on X.")
	assert.Equal(t, []string{"Go", "SQL"}, a.Expertise)
}

func TestExtractProfile_RedactsApplicantName(t *testing.T) {
	doc := endToEndDoc()
	doc.Tables = append(doc.Tables, [][]string{
		{"Roll:", "Tech lead"},
		{"Beskrivning", "Jane ledde teamet hos Acme. Doehring-metoden användes."},
		{"Expertis", "Go | Jane's toolkit"},
	})

	profile := ExtractProfile(doc, "cv.docx")
	require.Len(t, profile.Assignments, 2)

	a := profile.Assignments[1]
	assert.Equal(t, "Tech lead", a.Role)
	assert.Equal(t, "[REDACTED] ledde teamet hos [REDACTED]. Doehring-metoden användes.", a.Description)
	assert.Equal(t, []string{"Go", "[REDACTED]'s toolkit"}, a.Expertise)
}

func TestExtractProfile_NoAssignments(t *testing.T) {
	doc := &types.Document{
		Tables:     [][][]string{{{"Name", "Jane Doe"}}},
		Paragraphs: []string{"Just a cover letter"},
	}

	profile, report := ExtractProfileWithReport(doc, "letter.docx")
	assert.NotNil(t, profile.Assignments)
	assert.Empty(t, profile.Assignments)
	assert.Equal(t, 0, report.Sections)
	assert.Empty(t, report.Dropped)
}

func TestExtractProfile_DropsSectionsWithMalformedPeriod(t *testing.T) {
	doc := &types.Document{
		Tables: [][][]string{
			{
				{"Role: First", "Period: 2020-01 – 2020-06"},
				{"Role: Second", "Period: 20-01"},
				{"Role: Third"},
			},
		},
	}

	profile, report := ExtractProfileWithReport(doc, "cv.docx")

	require.Len(t, profile.Assignments, 2)
	assert.Equal(t, "First", profile.Assignments[0].Role)
	assert.Equal(t, "Third", profile.Assignments[1].Role)

	assert.Equal(t, 3, report.Sections)
	require.Len(t, report.Dropped, 1)
	assert.Equal(t, 1, report.Dropped[0].Index)
	var periodErr *PeriodError
	assert.ErrorAs(t, report.Dropped[0].Err, &periodErr)
}

func TestExtractProfile_EmptyDocument(t *testing.T) {
	profile := ExtractProfile(&types.Document{}, "empty.docx")

	assert.Equal(t, types.ExtractedProfile{
		Title:       "empty.docx",
		Assignments: []types.Assignment{},
	}, profile)
}

func TestExtractProfile_Idempotent(t *testing.T) {
	doc := endToEndDoc()
	first := ExtractProfile(doc, "a")
	second := ExtractProfile(doc, "a")
	assert.Equal(t, first, second)
	assert.Equal(t, endToEndDoc(), doc, "document must not be mutated")
}

func TestExtractProfile_Concurrent(t *testing.T) {
	doc := endToEndDoc()
	want := ExtractProfile(doc, "cv")

	var wg sync.WaitGroup
	results := make([]types.ExtractedProfile, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ExtractProfile(doc, "cv")
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestExtractProfile_RoleRowWithSplitCells(t *testing.T) {
	doc := &types.Document{
		Tables: [][][]string{
			{{}, {"", "Per Nilsson"}},
			{
				{"Roll:", "Arkitekt", "Arkitekt"},
				{"Kund:", "Volvo"},
				{"Period:", "2018-09 – "},
				{"Beskrivning", strings.Join([]string{"Ansvarade för plattformen på Volvo.", "Per drev arbetet."}, "\n")},
				{"Expertis", "Kotlin | Kafka"},
			},
		},
	}

	profile := ExtractProfile(doc, "per.docx")
	require.Len(t, profile.Assignments, 1)

	a := profile.Assignments[0]
	assert.Equal(t, "Arkitekt", a.Role)
	assert.Equal(t, RedactionMarker, a.Customer)
	assert.Equal(t, "09/2018", a.DateStart)
	assert.Equal(t, "", a.DateEnd)
	assert.Equal(t, "Ansvarade för plattformen på [REDACTED].\n[REDACTED] drev arbetet.", a.Description)
	assert.Equal(t, []string{"Kotlin", "Kafka"}, a.Expertise)
}

func TestExtractProfile_RedactsClientFollowedByMoreCells(t *testing.T) {
	doc := &types.Document{
		Tables: [][][]string{
			{
				{"Roll:", "Utvecklare"},
				{"Kund:", "Acme", "Period:", "2020-01 – 2020-06"},
				{"Beskrivning", "Built for Acme."},
				{"Expertis", "Go"},
			},
		},
	}

	profile := ExtractProfile(doc, "cv.docx")
	require.Len(t, profile.Assignments, 1)

	a := profile.Assignments[0]
	assert.Equal(t, RedactionMarker, a.Customer)
	assert.Equal(t, "01/2020", a.DateStart)
	assert.Equal(t, "06/2020", a.DateEnd)
	assert.Equal(t, "Built for [REDACTED].", a.Description)
}

func TestExtractProfile_RedactsMergedClientCell(t *testing.T) {
	// a gridSpan=2 value cell arrives repeated once per spanned column
	doc := &types.Document{
		Tables: [][][]string{
			{
				{"Role:", "Developer", "Developer"},
				{"Client:", "Acme", "Acme"},
				{"Description", "Built for Acme", "Built for Acme"},
				{"Expertise", "Go | Acme SDK", "Go | Acme SDK"},
			},
		},
	}

	profile := ExtractProfile(doc, "cv.docx")
	require.Len(t, profile.Assignments, 1)

	a := profile.Assignments[0]
	assert.Equal(t, "Developer", a.Role)
	assert.Equal(t, RedactionMarker, a.Customer)
	assert.Equal(t, "Built for [REDACTED]", a.Description)
	assert.Equal(t, []string{"Go", "[REDACTED] SDK"}, a.Expertise)
}
