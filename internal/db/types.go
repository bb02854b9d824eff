package db

import (
	"time"

	"github.com/google/uuid"
)

// MatchGroup is one submission: a job listing and the CVs matched against it
type MatchGroup struct {
	ID            uuid.UUID       `json:"id"`
	JobListingURL string          `json:"job_listing_url"`
	CreatedAt     time.Time       `json:"created_at"`
	Responses     []MatchResponse `json:"responses,omitempty"`
}

// MatchGroupSummary is a listing row for match groups
type MatchGroupSummary struct {
	ID            uuid.UUID `json:"id"`
	JobListingURL string    `json:"job_listing_url"`
	CreatedAt     time.Time `json:"created_at"`
	ResponseCount int       `json:"response_count"`
}

// MatchResponse is the stored verdict for one CV
type MatchResponse struct {
	ID              uuid.UUID    `json:"id"`
	MatchGroupID    *uuid.UUID   `json:"match_group_id,omitempty"`
	Position        int          `json:"position"`
	Summary         string       `json:"summary"`
	PercentageMatch string       `json:"percentage_match"`
	CVName          string       `json:"cv_name"`
	JobListingName  string       `json:"job_listing_name"`
	JobListingURL   string       `json:"job_listing_url"`
	CreatedAt       time.Time    `json:"created_at"`
	Skills          []MatchSkill `json:"skills"`
}

// MatchSkill is one skill verdict of a MatchResponse
type MatchSkill struct {
	ID                int64     `json:"id"`
	ResponseID        uuid.UUID `json:"response_id"`
	SkillName         string    `json:"skill"`
	Reason            string    `json:"reason"`
	LevelOfImportance string    `json:"level_of_importance"`
	MatchLabel        string    `json:"match_label"`
}

// MatchResponseInput holds the fields written by SaveMatchResponse
type MatchResponseInput struct {
	ID              uuid.UUID // zero assigns a new id
	Summary         string
	PercentageMatch string
	CVName          string
	JobListingName  string
	JobListingURL   string
	Skills          []MatchSkillInput
}

// MatchSkillInput holds one skill row to insert
type MatchSkillInput struct {
	SkillName         string
	Reason            string
	LevelOfImportance string
	MatchLabel        string
}
