package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/core/trail"
)

func newStore(t *testing.T) *TrailStore {
	t.Helper()
	return NewTrailStore(filepath.Join(t.TempDir(), "logs", "experiment_data.json"))
}

func TestTrailStore_ListMissingFile(t *testing.T) {
	store := newStore(t)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTrailStore_AppendPreservesOrder(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var ids []string
	for _, agent := range []trail.Agent{trail.AgentSystem, trail.AgentReviewer, trail.AgentRepairer} {
		rec := trail.New(agent, trail.ActionSystem, trail.StatusInfo)
		ids = append(ids, rec.ID)
		require.NoError(t, store.Append(ctx, rec))
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, rec := range records {
		assert.Equal(t, ids[i], rec.ID)
	}

	_, err = os.Stat(store.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestTrailStore_FileIsJSONArray(t *testing.T) {
	store := newStore(t)
	rec := trail.New(trail.AgentReviewer, trail.ActionCodeAnalysis, trail.StatusFail)
	rec.Input = "a.py"
	rec.Output = "REQUIRES_FIX: bad"
	require.NoError(t, store.Append(context.Background(), rec))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "Reviewer", raw[0]["agent"])
	assert.Equal(t, "a.py", raw[0]["input_summary"])
	assert.Equal(t, "REQUIRES_FIX: bad", raw[0]["output_summary"])
	assert.Equal(t, "FAIL", raw[0]["status"])
}

func TestTrailStore_Get(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := trail.New(trail.AgentVerifier, trail.ActionDebug, trail.StatusSuccess)
	require.NoError(t, store.Append(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, trail.ErrNotFound)
}

func TestTrailStore_CorruptFileRecovered(t *testing.T) {
	store := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o755))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o644))

	_, err := store.List(context.Background())
	require.Error(t, err, "listing does not hide corruption")

	require.NoError(t, store.Append(context.Background(), trail.New(trail.AgentSystem, trail.ActionSystem, trail.StatusInfo)))

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)

	backups, _ := filepath.Glob(store.Path() + ".corrupt.*")
	require.Len(t, backups, 1)
	data, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestTrailStore_ConcurrentAppends(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, trail.New(trail.AgentReviewer, trail.ActionCodeAnalysis, trail.StatusSuccess)))
		}()
	}
	wg.Wait()

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 25)
}
