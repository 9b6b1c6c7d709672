package db

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_InsertAndList(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	for i, id := range []string{"b", "a", "c"} {
		require.NoError(t, q.InsertTrailRecord(ctx, InsertTrailRecordParams{
			ID:        id,
			Timestamp: int64(100 - i),
			Agent:     "Reviewer",
			Model:     "N/A",
			Action:    "CODE_ANALYSIS",
			Iteration: int64(i + 1),
			Status:    "FAIL",
		}))
	}

	rows, err := q.ListTrailRecords(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Insertion order wins over timestamps.
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, "a", rows[1].ID)
	assert.Equal(t, "c", rows[2].ID)
	assert.Equal(t, int64(3), rows[2].Iteration)
}

func TestQueries_DuplicateID(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	params := InsertTrailRecordParams{ID: "dup", Agent: "System", Model: "N/A", Action: "SYSTEM", Status: "INFO"}
	require.NoError(t, q.InsertTrailRecord(ctx, params))
	assert.Error(t, q.InsertTrailRecord(ctx, params))
}

func TestQueries_Get(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	_, err := q.GetTrailRecord(ctx, "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, q.InsertTrailRecord(ctx, InsertTrailRecordParams{
		ID: "x", Agent: "Verifier", Model: "N/A", Action: "DEBUG", Decision: "ACCEPTED", Status: "SUCCESS",
	}))

	row, err := q.GetTrailRecord(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "ACCEPTED", row.Decision)
}

func TestWithTx_RollsBack(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	err := database.WithTx(ctx, func(q *Queries) error {
		if err := q.InsertTrailRecord(ctx, InsertTrailRecordParams{ID: "t", Agent: "System", Model: "N/A", Action: "SYSTEM", Status: "INFO"}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	rows, err := database.Queries().ListTrailRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
