package trail_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/internal/core/trail/trailtest"
)

func TestNew(t *testing.T) {
	a := trail.New(trail.AgentReviewer, trail.ActionCodeAnalysis, trail.StatusSuccess)
	b := trail.New(trail.AgentReviewer, trail.ActionCodeAnalysis, trail.StatusSuccess)

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "N/A", a.Model)
	assert.False(t, a.Timestamp.IsZero())
}

func TestFilterApply(t *testing.T) {
	records := []trail.Record{
		{ID: "1", File: "a.py", RunID: "r1"},
		{ID: "2", File: "b.py", RunID: "r1"},
		{ID: "3", File: "a.py", RunID: "r2"},
		{ID: "4", File: "a.py", RunID: "r2"},
	}

	ids := func(rs []trail.Record) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(trail.Filter{}.Apply(records)))
	assert.Equal(t, []string{"1", "3", "4"}, ids(trail.Filter{File: "a.py"}.Apply(records)))
	assert.Equal(t, []string{"3", "4"}, ids(trail.Filter{RunID: "r2"}.Apply(records)))
	assert.Equal(t, []string{"4"}, ids(trail.Filter{File: "a.py", Limit: 1}.Apply(records)))
}

func TestRecorderGet(t *testing.T) {
	ctx := context.Background()
	rec := trailtest.NewRecorder()

	_, err := rec.Get(ctx, "first")
	require.ErrorIs(t, err, trail.ErrNotFound)

	require.NoError(t, rec.Append(ctx, trail.Record{ID: "first"}))
	require.NoError(t, rec.Append(ctx, trail.Record{ID: "second"}))

	got, err := rec.Get(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", got.ID)
}
