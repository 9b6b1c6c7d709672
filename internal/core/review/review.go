// Package review defines the decision types exchanged with reviewers,
// rewriters and verifiers, and the interfaces those collaborators satisfy.
package review

import "context"

// Decision is a reviewer's verdict on an artifact.
type Decision string

const (
	DecisionAccepted    Decision = "ACCEPTED"
	DecisionRequiresFix Decision = "REQUIRES_FIX"
)

// IsValid reports whether d is one of the known decisions.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionAccepted, DecisionRequiresFix:
		return true
	default:
		return false
	}
}

// Outcome is the immutable result of one review.
type Outcome struct {
	Decision Decision `json:"decision"`
	Issues   []string `json:"issues"`
}

// Accepted returns true if the reviewer accepted the artifact.
func (o Outcome) Accepted() bool {
	return o.Decision == DecisionAccepted
}

// Repair is the result of one rewrite: the sandbox-relative path of a newly
// written artifact.
type Repair struct {
	NewPath string `json:"new_path"`
}

// Verdict is a verifier's advisory result.
type Verdict string

const (
	VerdictAccepted Verdict = "ACCEPTED"
	VerdictRejected Verdict = "REJECTED"
)

// Reviewer inspects an artifact and decides whether it needs another repair.
// path is sandbox-relative and has already been authorized for reading.
type Reviewer interface {
	Name() string
	Review(ctx context.Context, path string) (Outcome, error)
}

// Rewriter produces a repaired copy of an artifact. It never overwrites path
// in place; the returned path names a new file that embeds iteration.
type Rewriter interface {
	Name() string
	Repair(ctx context.Context, path string, prior Outcome, iteration int) (Repair, error)
}

// Verifier runs an independent acceptance check. It never fails: any
// infrastructure problem is reported as VerdictRejected.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, path string, iteration int) Verdict
}

// Detailer is implemented by collaborators that can describe their most
// recent result, e.g. the tail of a test run.
type Detailer interface {
	Detail() string
}
