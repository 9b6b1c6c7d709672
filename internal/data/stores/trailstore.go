package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/internal/data/db"
)

const (
	appendRetries = 3
	appendBackoff = 50 * time.Millisecond
)

// TrailStore implements trail.Store using SQLite.
type TrailStore struct {
	db *db.DB
}

var _ trail.Store = (*TrailStore)(nil)

// NewTrailStore creates a new SQLite-backed trail store.
func NewTrailStore(db *db.DB) *TrailStore {
	return &TrailStore{db: db}
}

// Append inserts rec, retrying briefly while the database is busy.
func (s *TrailStore) Append(ctx context.Context, rec trail.Record) error {
	params := db.InsertTrailRecordParams{
		ID:            rec.ID,
		RunID:         rec.RunID,
		Timestamp:     rec.Timestamp.UnixNano(),
		Agent:         string(rec.Agent),
		Model:         rec.Model,
		Action:        string(rec.Action),
		File:          rec.File,
		Iteration:     int64(rec.Iteration),
		Decision:      rec.Decision,
		Artifact:      rec.Artifact,
		InputSummary:  rec.Input,
		OutputSummary: rec.Output,
		Status:        string(rec.Status),
	}

	var err error
	wait := appendBackoff
	for i := 0; i < appendRetries; i++ {
		err = s.db.Queries().InsertTrailRecord(ctx, params)
		if err == nil || !IsBusyError(err) {
			break
		}
		time.Sleep(wait)
		wait *= 2
	}
	if err != nil {
		return fmt.Errorf("failed to insert trail record: %w", err)
	}
	return nil
}

// List returns all records in append order.
func (s *TrailStore) List(ctx context.Context) ([]trail.Record, error) {
	rows, err := s.db.Queries().ListTrailRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trail records: %w", err)
	}

	records := make([]trail.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, rowToRecord(row))
	}
	return records, nil
}

// Get returns a record by ID. Returns trail.ErrNotFound if not found.
func (s *TrailStore) Get(ctx context.Context, id string) (trail.Record, error) {
	row, err := s.db.Queries().GetTrailRecord(ctx, id)
	if IsNotFoundError(err) {
		return trail.Record{}, trail.ErrNotFound
	}
	if err != nil {
		return trail.Record{}, fmt.Errorf("failed to get trail record: %w", err)
	}
	return rowToRecord(row), nil
}

func rowToRecord(row db.TrailRecord) trail.Record {
	return trail.Record{
		ID:        row.ID,
		RunID:     row.RunID,
		Timestamp: time.Unix(0, row.Timestamp),
		Agent:     trail.Agent(row.Agent),
		Model:     row.Model,
		Action:    trail.Action(row.Action),
		File:      row.File,
		Iteration: int(row.Iteration),
		Decision:  row.Decision,
		Artifact:  row.Artifact,
		Input:     row.InputSummary,
		Output:    row.OutputSummary,
		Status:    trail.Status(row.Status),
	}
}
