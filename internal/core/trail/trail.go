// Package trail defines the append-only audit record written for every
// controller transition and the sink contract that stores them.
package trail

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by readers when no record matches.
var ErrNotFound = errors.New("trail record not found")

// Agent identifies the component that produced a record.
type Agent string

const (
	AgentSystem   Agent = "System"
	AgentReviewer Agent = "Reviewer"
	AgentRepairer Agent = "Repairer"
	AgentVerifier Agent = "Verifier"
)

// Action classifies the step a record describes.
type Action string

const (
	ActionCodeAnalysis Action = "CODE_ANALYSIS"
	ActionDebug        Action = "DEBUG"
	ActionFix          Action = "FIX"
	ActionSystem       Action = "SYSTEM"
)

// Status is the outcome class of a record.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFail    Status = "FAIL"
	StatusInfo    Status = "INFO"
)

// Record is one immutable trail entry.
type Record struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Agent     Agent     `json:"agent"`
	Model     string    `json:"model"`
	Action    Action    `json:"action"`
	File      string    `json:"file,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Artifact  string    `json:"artifact,omitempty"`
	Input     string    `json:"input_summary"`
	Output    string    `json:"output_summary"`
	Status    Status    `json:"status"`
}

// New returns a record with a fresh ID and timestamp. Model defaults to
// "N/A" when the producing component does not call a model.
func New(agent Agent, action Action, status Status) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Agent:     agent,
		Model:     "N/A",
		Action:    action,
		Status:    status,
	}
}

// Sink receives records in emission order. Implementations must preserve
// order and must be safe for concurrent Append calls without interleaving
// a single record's fields.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Reader reads stored records back. List returns them oldest first; Get
// returns ErrNotFound for an unknown ID.
type Reader interface {
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (Record, error)
}

// Store is a Sink that can also be read back.
type Store interface {
	Sink
	Reader
}

// Filter narrows a record listing.
type Filter struct {
	File  string
	RunID string
	Limit int // keep only the newest Limit records; 0 means all
}

// Apply returns the records matching f, preserving order.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.File != "" && r.File != f.File {
			continue
		}
		if f.RunID != "" && r.RunID != f.RunID {
			continue
		}
		out = append(out, r)
	}

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[len(out)-f.Limit:]
	}
	return out
}
