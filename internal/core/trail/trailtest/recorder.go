// Package trailtest provides an in-memory trail sink for tests.
package trailtest

import (
	"context"
	"sync"

	"github.com/colonyops/refinery/internal/core/trail"
)

// Recorder collects appended records in memory. Set Err to make Append fail.
type Recorder struct {
	mu      sync.Mutex
	records []trail.Record

	Err error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append stores rec unless Err is set.
func (r *Recorder) Append(_ context.Context, rec trail.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return r.Err
	}
	r.records = append(r.records, rec)
	return nil
}

// List returns a copy of the stored records, oldest first.
func (r *Recorder) List(_ context.Context) ([]trail.Record, error) {
	return r.Records(), nil
}

// Get returns the record with the given ID.
func (r *Recorder) Get(_ context.Context, id string) (trail.Record, error) {
	for _, rec := range r.Records() {
		if rec.ID == id {
			return rec, nil
		}
	}
	return trail.Record{}, trail.ErrNotFound
}

// Records returns a copy of the stored records.
func (r *Recorder) Records() []trail.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]trail.Record, len(r.records))
	copy(out, r.records)
	return out
}

// ByAgent returns the stored records produced by agent.
func (r *Recorder) ByAgent(agent trail.Agent) []trail.Record {
	var out []trail.Record
	for _, rec := range r.Records() {
		if rec.Agent == agent {
			out = append(out, rec)
		}
	}
	return out
}

// Last returns the newest record and false when the recorder is empty.
func (r *Recorder) Last() (trail.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) == 0 {
		return trail.Record{}, false
	}
	return r.records[len(r.records)-1], true
}
