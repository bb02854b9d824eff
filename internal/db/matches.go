package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/cv-matcher/internal/types"
)

// NewMatchResponseInput converts a model verdict into the row shape stored.
func NewMatchResponseInput(cvName string, listing types.JobListing, result *types.MatchResult) MatchResponseInput {
	in := MatchResponseInput{
		CVName:         cvName,
		JobListingName: listing.Name,
		JobListingURL:  listing.URL,
	}
	if result == nil {
		return in
	}

	in.Summary = result.Summary
	in.PercentageMatch = string(result.PercentageMatch)
	in.Skills = make([]MatchSkillInput, 0, len(result.Skills))
	for _, s := range result.Skills {
		in.Skills = append(in.Skills, MatchSkillInput{
			SkillName:         s.Skill,
			Reason:            s.Reason,
			LevelOfImportance: s.LevelOfImportance,
			MatchLabel:        s.MatchLabel,
		})
	}
	return in
}

// CreateMatchGroup inserts a new match group for a job listing
func (db *DB) CreateMatchGroup(ctx context.Context, jobListingURL string) (*MatchGroup, error) {
	group := MatchGroup{ID: uuid.New(), JobListingURL: jobListingURL}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO match_groups (id, job_listing_url)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		group.ID, jobListingURL,
	).Scan(&group.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create match group: %w", err)
	}
	return &group, nil
}

// SaveMatchResponse stores a verdict and its skills in one transaction and
// returns the response id. The response is not yet part of a group.
// Saving the same in.ID twice is a no-op, so a retry after a commit whose
// reply was lost does not store a duplicate.
func (db *DB) SaveMatchResponse(ctx context.Context, in MatchResponseInput) (uuid.UUID, error) {
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	err := pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO match_responses (id, summary, percentage_match, cv_name, job_listing_name, job_listing_url)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO NOTHING`,
			id, in.Summary, nullIfEmpty(in.PercentageMatch), nullIfEmpty(in.CVName),
			nullIfEmpty(in.JobListingName), nullIfEmpty(in.JobListingURL),
		)
		if err != nil {
			return fmt.Errorf("insert response: %w", err)
		}

		if tag.RowsAffected() == 0 || len(in.Skills) == 0 {
			return nil
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"match_skills"},
			[]string{"response_id", "skill_name", "reason", "level_of_importance", "match_label"},
			pgx.CopyFromSlice(len(in.Skills), func(i int) ([]any, error) {
				s := in.Skills[i]
				return []any{id, s.SkillName, nullIfEmpty(s.Reason), nullIfEmpty(s.LevelOfImportance), nullIfEmpty(s.MatchLabel)}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert skills: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save match response: %w", err)
	}
	return id, nil
}

// AttachToGroup links a saved response to a group at the given position
func (db *DB) AttachToGroup(ctx context.Context, groupID, responseID uuid.UUID, position int) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE match_responses SET match_group_id = $1, position = $2 WHERE id = $3`,
		groupID, position, responseID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach response %s to group %s: %w", responseID, groupID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match response %s: %w", responseID, ErrNotFound)
	}
	return nil
}

// GetMatchGroup returns a group with its responses (in upload order) and
// their skills. It returns nil, nil when the group does not exist.
func (db *DB) GetMatchGroup(ctx context.Context, groupID uuid.UUID) (*MatchGroup, error) {
	var group MatchGroup
	err := db.pool.QueryRow(ctx,
		`SELECT id, job_listing_url, created_at FROM match_groups WHERE id = $1`,
		groupID,
	).Scan(&group.ID, &group.JobListingURL, &group.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match group: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM match_responses
		 WHERE match_group_id = $1
		 ORDER BY position, created_at`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list match responses: %w", err)
	}
	group.Responses, err = pgx.CollectRows(rows, scanResponse)
	if err != nil {
		return nil, fmt.Errorf("failed to scan match responses: %w", err)
	}

	if err := db.loadSkills(ctx, group.Responses); err != nil {
		return nil, err
	}
	return &group, nil
}

// GetMatchResponse returns one response with its skills, or nil, nil
func (db *DB) GetMatchResponse(ctx context.Context, responseID uuid.UUID) (*MatchResponse, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+responseColumns+` FROM match_responses WHERE id = $1`,
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get match response: %w", err)
	}
	response, err := pgx.CollectExactlyOneRow(rows, scanResponse)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get match response: %w", err)
	}

	responses := []MatchResponse{response}
	if err := db.loadSkills(ctx, responses); err != nil {
		return nil, err
	}
	return &responses[0], nil
}

// ListMatchGroups returns the most recent groups first
func (db *DB) ListMatchGroups(ctx context.Context, limit int) ([]MatchGroupSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.pool.Query(ctx,
		`SELECT g.id, g.job_listing_url, g.created_at, COUNT(r.id)
		 FROM match_groups g
		 LEFT JOIN match_responses r ON r.match_group_id = g.id
		 GROUP BY g.id
		 ORDER BY g.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list match groups: %w", err)
	}
	defer rows.Close()

	groups := []MatchGroupSummary{}
	for rows.Next() {
		var g MatchGroupSummary
		if err := rows.Scan(&g.ID, &g.JobListingURL, &g.CreatedAt, &g.ResponseCount); err != nil {
			return nil, fmt.Errorf("failed to scan match group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list match groups: %w", err)
	}
	return groups, nil
}

// DeleteMatchGroup deletes a group with its responses and skills (via cascade)
func (db *DB) DeleteMatchGroup(ctx context.Context, groupID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM match_groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("failed to delete match group: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("match group %s: %w", groupID, ErrNotFound)
	}
	return nil
}

const responseColumns = `id, match_group_id, position, summary,
	COALESCE(percentage_match, ''), COALESCE(cv_name, ''),
	COALESCE(job_listing_name, ''), COALESCE(job_listing_url, ''), created_at`

func scanResponse(row pgx.CollectableRow) (MatchResponse, error) {
	var r MatchResponse
	err := row.Scan(&r.ID, &r.MatchGroupID, &r.Position, &r.Summary,
		&r.PercentageMatch, &r.CVName, &r.JobListingName, &r.JobListingURL, &r.CreatedAt)
	r.Skills = []MatchSkill{}
	return r, err
}

// loadSkills fills the Skills of every response with a single query
func (db *DB) loadSkills(ctx context.Context, responses []MatchResponse) error {
	if len(responses) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(responses))
	index := make(map[uuid.UUID]int, len(responses))
	for i, r := range responses {
		ids[i] = r.ID
		index[r.ID] = i
	}

	rows, err := db.pool.Query(ctx,
		`SELECT id, response_id, skill_name, COALESCE(reason, ''),
		        COALESCE(level_of_importance, ''), COALESCE(match_label, '')
		 FROM match_skills
		 WHERE response_id = ANY($1)
		 ORDER BY id`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("failed to list match skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s MatchSkill
		if err := rows.Scan(&s.ID, &s.ResponseID, &s.SkillName, &s.Reason, &s.LevelOfImportance, &s.MatchLabel); err != nil {
			return fmt.Errorf("failed to scan match skill: %w", err)
		}
		i := index[s.ResponseID]
		responses[i].Skills = append(responses[i].Skills, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to list match skills: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
