package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Match labels the language model assigns to each skill
const (
	MatchLabelMatch   = "MATCH"
	MatchLabelPartial = "PARTIAL"
	MatchLabelMissing = "MISSING"
	MatchLabelUnsure  = "UNSURE"
)

// MatchResult is the scored comparison of one CV against one job listing
type MatchResult struct {
	Summary         string       `json:"summary"`
	PercentageMatch Percentage   `json:"percentage_match"`
	Skills          []SkillMatch `json:"skills"`
}

// SkillMatch is a single skill verdict inside a MatchResult
type SkillMatch struct {
	Skill             string `json:"skill"`
	Reason            string `json:"reason,omitempty"`
	LevelOfImportance string `json:"levelOfImportance,omitempty"` // e.g. "MUST HAVE", "SHOULD HAVE"
	MatchLabel        string `json:"matchLabel,omitempty"`        // MATCH, PARTIAL, MISSING or UNSURE
}

// Percentage is the model's own compatibility rating.
// Models return it as 85, 85.5, "85" or "85%"; it is kept as text.
type Percentage string

// UnmarshalJSON accepts both numbers and strings
func (p *Percentage) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Percentage(strings.TrimSpace(s))
		return nil
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fmt.Errorf("percentage_match must be a number or string, got %s", trimmed)
	}
	*p = Percentage(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Value returns the numeric rating, or false if the text carries no number
func (p Percentage) Value() (float64, bool) {
	s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(string(p)), "%"))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
