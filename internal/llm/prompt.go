package llm

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/cv-matcher/internal/prompts"
	"github.com/jonathan/cv-matcher/internal/types"
)

const promptFile = "matching.json"

// BuildMatchPrompt renders the comparison prompt for one CV and one listing.
// Both sides are embedded as JSON so field boundaries survive.
func BuildMatchPrompt(profile types.ExtractedProfile, listing types.JobListing) (string, error) {
	template, err := prompts.Get(promptFile, "match")
	if err != nil {
		return "", err
	}
	instructions, err := prompts.Get(promptFile, "match-instructions")
	if err != nil {
		return "", err
	}

	listingJSON, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode job listing: %w", err)
	}
	profileJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}

	return prompts.Format(template, map[string]string{
		"Listing":      string(listingJSON),
		"Profile":      string(profileJSON),
		"Instructions": instructions,
	}), nil
}
