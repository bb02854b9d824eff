package types

// JobListing is the job side of a match, as fetched from the listing site
type JobListing struct {
	URL            string   `json:"url"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RequiredSkills []string `json:"required_skills"`
}
