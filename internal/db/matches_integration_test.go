//go:build integration

package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testListingURL = "https://app.whoz.com/shared/task/integration-test"

func getTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, db.Migrate(ctx))

	_, _ = db.pool.Exec(ctx, "DELETE FROM match_groups WHERE job_listing_url = $1", testListingURL)
	_, _ = db.pool.Exec(ctx, "DELETE FROM match_responses WHERE job_listing_url = $1 AND match_group_id IS NULL", testListingURL)

	t.Cleanup(db.Close)
	return db
}

func TestIntegration_Migrate_Idempotent(t *testing.T) {
	db := getTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
}

func TestIntegration_MatchGroup_Lifecycle(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()

	group, err := db.CreateMatchGroup(ctx, testListingURL)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, group.ID)
	assert.False(t, group.CreatedAt.IsZero())

	second, err := db.SaveMatchResponse(ctx, MatchResponseInput{
		Summary:         "Partial fit",
		PercentageMatch: "55%",
		CVName:          "john.docx",
		JobListingURL:   testListingURL,
	})
	require.NoError(t, err)

	first, err := db.SaveMatchResponse(ctx, MatchResponseInput{
		Summary:         "Strong fit",
		PercentageMatch: "90",
		CVName:          "jane.docx",
		JobListingName:  "Go Developer",
		JobListingURL:   testListingURL,
		Skills: []MatchSkillInput{
			{SkillName: "Go", Reason: "Daily use", LevelOfImportance: "MUST HAVE", MatchLabel: "MATCH"},
			{SkillName: "Kubernetes", MatchLabel: "PARTIAL"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, db.AttachToGroup(ctx, group.ID, first, 0))
	require.NoError(t, db.AttachToGroup(ctx, group.ID, second, 1))

	t.Run("get group in upload order", func(t *testing.T) {
		got, err := db.GetMatchGroup(ctx, group.ID)
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, testListingURL, got.JobListingURL)
		require.Len(t, got.Responses, 2)
		assert.Equal(t, first, got.Responses[0].ID)
		assert.Equal(t, second, got.Responses[1].ID)

		jane := got.Responses[0]
		assert.Equal(t, "jane.docx", jane.CVName)
		assert.Equal(t, "90", jane.PercentageMatch)
		require.Len(t, jane.Skills, 2)
		assert.Equal(t, "Go", jane.Skills[0].SkillName)
		assert.Equal(t, "MUST HAVE", jane.Skills[0].LevelOfImportance)
		assert.Equal(t, "", jane.Skills[1].Reason)

		assert.NotNil(t, got.Responses[1].Skills)
		assert.Empty(t, got.Responses[1].Skills)
	})

	t.Run("get single response", func(t *testing.T) {
		got, err := db.GetMatchResponse(ctx, first)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.MatchGroupID)
		assert.Equal(t, group.ID, *got.MatchGroupID)
		assert.Len(t, got.Skills, 2)
	})

	t.Run("list groups", func(t *testing.T) {
		groups, err := db.ListMatchGroups(ctx, 100)
		require.NoError(t, err)

		var found *MatchGroupSummary
		for i := range groups {
			if groups[i].ID == group.ID {
				found = &groups[i]
			}
		}
		require.NotNil(t, found)
		assert.Equal(t, 2, found.ResponseCount)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, db.DeleteMatchGroup(ctx, group.ID))

		got, err := db.GetMatchGroup(ctx, group.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		response, err := db.GetMatchResponse(ctx, first)
		require.NoError(t, err)
		assert.Nil(t, response)

		err = db.DeleteMatchGroup(ctx, group.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestIntegration_MissingRows(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()

	group, err := db.GetMatchGroup(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, group)

	response, err := db.GetMatchResponse(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, response)

	err = db.AttachToGroup(ctx, uuid.New(), uuid.New(), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIntegration_UnattachedResponseSurvives(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()

	id, err := db.SaveMatchResponse(ctx, MatchResponseInput{Summary: "orphan", JobListingURL: testListingURL})
	require.NoError(t, err)

	got, err := db.GetMatchResponse(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.MatchGroupID)
	assert.Equal(t, "orphan", got.Summary)
}

func TestIntegration_SaveMatchResponse_SameIDStoresOnce(t *testing.T) {
	db := getTestDB(t)
	ctx := context.Background()

	in := MatchResponseInput{
		ID:            uuid.New(),
		Summary:       "Good fit",
		CVName:        "jane.docx",
		JobListingURL: testListingURL,
		Skills:        []MatchSkillInput{{SkillName: "Go", MatchLabel: "MATCH"}},
	}

	first, err := db.SaveMatchResponse(ctx, in)
	require.NoError(t, err)
	second, err := db.SaveMatchResponse(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in.ID, first)
	assert.Equal(t, first, second)

	resp, err := db.GetMatchResponse(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Len(t, resp.Skills, 1)
}
