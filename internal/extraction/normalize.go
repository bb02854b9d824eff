package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/cv-matcher/internal/types"
)

const (
	periodInputLayout  = "2006-1"
	periodOutputLayout = "01/2006"
)

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// NormalizeSection parses one raw assignment block into an Assignment and
// redacts it with set. Missing labels yield empty fields; a malformed
// "Period:" value yields a *PeriodError.
func NormalizeSection(text string, set RedactionSet) (types.Assignment, error) {
	text = lineBreaks.Replace(text)

	a := types.Assignment{
		Role:        firstCapture(rolePattern, text),
		Customer:    firstCapture(customerPattern, text),
		Description: extractDescription(text),
		Expertise:   extractExpertise(text),
	}

	if m := periodPattern.FindStringSubmatch(text); m != nil {
		start, end, err := ParsePeriod(m[1])
		if err != nil {
			return types.Assignment{}, err
		}
		a.DateStart, a.DateEnd = start, end
	}

	return Redact(a, set), nil
}

// ParsePeriod converts "YYYY-MM – YYYY-MM" into MM/YYYY start and end dates.
// Either side may be empty; the end is empty when no en dash is present.
func ParsePeriod(period string) (start, end string, err error) {
	parts := strings.Split(period, periodSeparator)

	if start, err = formatMonth(parts[0]); err != nil {
		return "", "", err
	}
	if len(parts) > 1 {
		if end, err = formatMonth(parts[1]); err != nil {
			return "", "", err
		}
	}
	return start, end, nil
}

func formatMonth(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	t, err := time.Parse(periodInputLayout, value)
	if err != nil {
		return "", &PeriodError{Value: value, Cause: err}
	}
	return t.Format(periodOutputLayout), nil
}

func firstCapture(pattern *regexp.Regexp, text string) string {
	if m := pattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// extractDescription returns the text after the description label up to the
// expertise label or the end of the block, line breaks included.
func extractDescription(text string) string {
	loc := descriptionLabel.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if stop := descriptionStop.FindStringIndex(rest); stop != nil {
		rest = rest[:stop[0]]
	}
	return strings.TrimSpace(rest)
}

// extractExpertise splits the pipe-separated list after the expertise label
func extractExpertise(text string) []string {
	skills := []string{}
	m := expertisePattern.FindStringSubmatch(text)
	if m == nil {
		return skills
	}
	for _, skill := range strings.Split(m[1], "|") {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}
	return skills
}
