// Package observability renders human-readable summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/cv-matcher/internal/types"
)

const (
	// boxWidth is the outer width of a printed box, in runes
	boxWidth = 60
	// maxItemsToShow caps list sections
	maxItemsToShow = 5
)

// labelOrder is the display order of skill verdicts
var labelOrder = []string{
	types.MatchLabelMatch,
	types.MatchLabelPartial,
	types.MatchLabelMissing,
	types.MatchLabelUnsure,
}

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintJobListing outputs the fetched listing and its required skills.
func (p *Printer) PrintJobListing(listing *types.JobListing) {
	if listing == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name:  %s\n", listing.Name)
	fmt.Fprintf(&sb, "URL:   %s\n", listing.URL)
	if len(listing.RequiredSkills) > 0 {
		sb.WriteString("\nRequired skills:\n")
		writeList(&sb, listing.RequiredSkills, maxItemsToShow)
	}

	p.printBox("JOB LISTING", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProfile outputs the redacted profile extracted from a CV.
func (p *Printer) PrintProfile(profile *types.ExtractedProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "File:         %s\n", profile.Title)
	fmt.Fprintf(&sb, "Education:    %s\n", profile.Education)
	fmt.Fprintf(&sb, "Assignments:  %d\n", len(profile.Assignments))

	count := min(len(profile.Assignments), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\n")
	}
	for i := 0; i < count; i++ {
		a := profile.Assignments[i]
		fmt.Fprintf(&sb, "• %s @ %s", a.Role, a.Customer)
		if a.DateStart != "" {
			fmt.Fprintf(&sb, " (%s – %s)", a.DateStart, orDash(a.DateEnd))
		}
		sb.WriteString("\n")
		if len(a.Expertise) > 0 {
			fmt.Fprintf(&sb, "  [%s]\n", strings.Join(a.Expertise, ", "))
		}
	}
	if len(profile.Assignments) > maxItemsToShow {
		fmt.Fprintf(&sb, "... and %d more\n", len(profile.Assignments)-maxItemsToShow)
	}

	p.printBox("EXTRACTED PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMatchResult outputs a verdict grouped by match label.
func (p *Printer) PrintMatchResult(cvName string, result *types.MatchResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Match:  %s\n\n", orDash(string(result.PercentageMatch)))
	for _, line := range wrap(result.Summary, boxWidth-4) {
		sb.WriteString(line + "\n")
	}

	byLabel := make(map[string][]types.SkillMatch)
	for _, s := range result.Skills {
		byLabel[s.MatchLabel] = append(byLabel[s.MatchLabel], s)
	}
	for _, label := range labelOrder {
		skills := byLabel[label]
		if len(skills) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n%s (%d):\n", label, len(skills))
		for _, s := range skills {
			sb.WriteString("  • " + s.Skill)
			if s.LevelOfImportance != "" {
				sb.WriteString(" (" + s.LevelOfImportance + ")")
			}
			sb.WriteString("\n")
		}
	}

	p.printBox("MATCH: "+cvName, strings.TrimSuffix(sb.String(), "\n"))
}

func writeList(sb *strings.Builder, items []string, limit int) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		fmt.Fprintf(sb, "  • %s\n", items[i])
	}
	if len(items) > limit {
		fmt.Fprintf(sb, "  ... and %d more\n", len(items)-limit)
	}
}

// wrap breaks text into lines of at most width runes on word boundaries
func wrap(text string, width int) []string {
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && utf8.RuneCountInString(line.String())+1+utf8.RuneCountInString(word) > width {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return truncate(s, width)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
