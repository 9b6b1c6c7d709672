package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the statements used by the stores.
type Queries struct {
	db DBTX
}

// New binds queries to a connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TrailRecord is a row of trail_records.
type TrailRecord struct {
	Seq           int64
	ID            string
	RunID         string
	Timestamp     int64
	Agent         string
	Model         string
	Action        string
	File          string
	Iteration     int64
	Decision      string
	Artifact      string
	InputSummary  string
	OutputSummary string
	Status        string
}

const insertTrailRecord = `
INSERT INTO trail_records (
    id, run_id, timestamp, agent, model, action, file, iteration,
    decision, artifact, input_summary, output_summary, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// InsertTrailRecordParams holds the columns written by InsertTrailRecord.
type InsertTrailRecordParams struct {
	ID            string
	RunID         string
	Timestamp     int64
	Agent         string
	Model         string
	Action        string
	File          string
	Iteration     int64
	Decision      string
	Artifact      string
	InputSummary  string
	OutputSummary string
	Status        string
}

func (q *Queries) InsertTrailRecord(ctx context.Context, arg InsertTrailRecordParams) error {
	_, err := q.db.ExecContext(ctx, insertTrailRecord,
		arg.ID,
		arg.RunID,
		arg.Timestamp,
		arg.Agent,
		arg.Model,
		arg.Action,
		arg.File,
		arg.Iteration,
		arg.Decision,
		arg.Artifact,
		arg.InputSummary,
		arg.OutputSummary,
		arg.Status,
	)
	return err
}

const listTrailRecords = `
SELECT seq, id, run_id, timestamp, agent, model, action, file, iteration,
       decision, artifact, input_summary, output_summary, status
FROM trail_records
ORDER BY seq ASC
`

func (q *Queries) ListTrailRecords(ctx context.Context) ([]TrailRecord, error) {
	rows, err := q.db.QueryContext(ctx, listTrailRecords)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []TrailRecord
	for rows.Next() {
		var i TrailRecord
		if err := rows.Scan(
			&i.Seq,
			&i.ID,
			&i.RunID,
			&i.Timestamp,
			&i.Agent,
			&i.Model,
			&i.Action,
			&i.File,
			&i.Iteration,
			&i.Decision,
			&i.Artifact,
			&i.InputSummary,
			&i.OutputSummary,
			&i.Status,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTrailRecord = `
SELECT seq, id, run_id, timestamp, agent, model, action, file, iteration,
       decision, artifact, input_summary, output_summary, status
FROM trail_records
WHERE id = ?
`

func (q *Queries) GetTrailRecord(ctx context.Context, id string) (TrailRecord, error) {
	row := q.db.QueryRowContext(ctx, getTrailRecord, id)
	var i TrailRecord
	err := row.Scan(
		&i.Seq,
		&i.ID,
		&i.RunID,
		&i.Timestamp,
		&i.Agent,
		&i.Model,
		&i.Action,
		&i.File,
		&i.Iteration,
		&i.Decision,
		&i.Artifact,
		&i.InputSummary,
		&i.OutputSummary,
		&i.Status,
	)
	return i, err
}
