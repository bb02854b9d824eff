package types

// ExtractedProfile is the redacted, normalized view of a résumé
type ExtractedProfile struct {
	Title        string       `json:"title"`
	Introduction string       `json:"introduction"`
	Education    string       `json:"education"`
	Assignments  []Assignment `json:"assignments"`
}

// Assignment is one engagement from the résumé's assignment history.
// Dates use the MM/YYYY form or are empty.
type Assignment struct {
	Role        string   `json:"role"`
	Customer    string   `json:"customer"`
	DateStart   string   `json:"date_start"`
	DateEnd     string   `json:"date_end"`
	Description string   `json:"description"`
	Expertise   []string `json:"expertise"`
}
