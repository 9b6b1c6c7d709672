// Package heuristic implements a deterministic marker-based reviewer and
// rewriter. A file is accepted once it carries the marker; the rewriter
// stamps the marker into a new artifact.
package heuristic

import (
	"context"
	"fmt"
	"strings"

	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
)

// Issues reported for every file that lacks the marker.
var defaultIssues = []string{
	"heuristic: potential bugs",
	"heuristic: style needs work",
}

// Reviewer accepts files that contain Marker.
type Reviewer struct {
	sb     *sandbox.Sandbox
	marker string
}

// NewReviewer creates a marker reviewer.
func NewReviewer(sb *sandbox.Sandbox, marker string) *Reviewer {
	return &Reviewer{sb: sb, marker: marker}
}

func (r *Reviewer) Name() string { return "heuristic" }

func (r *Reviewer) Review(_ context.Context, path string) (review.Outcome, error) {
	data, err := r.sb.ReadFile(path)
	if err != nil {
		return review.Outcome{}, err
	}

	if strings.Contains(string(data), r.marker) {
		return review.Outcome{Decision: review.DecisionAccepted, Issues: []string{}}, nil
	}

	issues := make([]string, len(defaultIssues))
	copy(issues, defaultIssues)
	return review.Outcome{Decision: review.DecisionRequiresFix, Issues: issues}, nil
}

// Rewriter writes a copy of the file with a header carrying the marker and
// every "ERROR" token commented out.
type Rewriter struct {
	sb            *sandbox.Sandbox
	marker        string
	commentPrefix string
}

// NewRewriter creates a marker rewriter. commentPrefix is the line comment
// token of the target language, e.g. "#" or "//".
func NewRewriter(sb *sandbox.Sandbox, marker, commentPrefix string) *Rewriter {
	return &Rewriter{sb: sb, marker: marker, commentPrefix: commentPrefix}
}

func (w *Rewriter) Name() string { return "heuristic" }

func (w *Rewriter) Repair(_ context.Context, path string, prior review.Outcome, iteration int) (review.Repair, error) {
	data, err := w.sb.ReadFile(path)
	if err != nil {
		return review.Repair{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - iteration %d\n", w.marker, iteration)
	fmt.Fprintf(&b, "%s repaired by refinery (%d issues)\n\n", w.commentPrefix, len(prior.Issues))
	b.WriteString(strings.ReplaceAll(string(data), "ERROR", w.commentPrefix+" ERROR FIXED"))

	out := review.ArtifactPath(path, iteration)
	if err := w.sb.WriteFile(out, []byte(b.String())); err != nil {
		return review.Repair{}, err
	}

	return review.Repair{NewPath: out}, nil
}
