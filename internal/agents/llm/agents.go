package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
)

// Reviewer asks a model to review a file.
type Reviewer struct {
	sb      *sandbox.Sandbox
	client  Client
	timeout time.Duration
}

// NewReviewer creates a model-backed reviewer. A zero timeout disables it.
func NewReviewer(sb *sandbox.Sandbox, client Client, timeout time.Duration) *Reviewer {
	return &Reviewer{sb: sb, client: client, timeout: timeout}
}

func (r *Reviewer) Name() string  { return "llm" }
func (r *Reviewer) Model() string { return r.client.Model() }

// Review returns the model's decision. Model and parse errors are returned,
// never turned into an acceptance.
func (r *Reviewer) Review(ctx context.Context, path string) (review.Outcome, error) {
	code, err := r.sb.ReadFile(path)
	if err != nil {
		return review.Outcome{}, err
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	answer, err := r.client.Complete(ctx, reviewPrompt(path, string(code)))
	if err != nil {
		return review.Outcome{}, err
	}

	return ParseReview(answer)
}

// Rewriter asks a model to fix a file and writes its answer as a new
// artifact next to the input.
type Rewriter struct {
	sb      *sandbox.Sandbox
	client  Client
	timeout time.Duration
}

// NewRewriter creates a model-backed rewriter. A zero timeout disables it.
func NewRewriter(sb *sandbox.Sandbox, client Client, timeout time.Duration) *Rewriter {
	return &Rewriter{sb: sb, client: client, timeout: timeout}
}

func (w *Rewriter) Name() string  { return "llm" }
func (w *Rewriter) Model() string { return w.client.Model() }

func (w *Rewriter) Repair(ctx context.Context, path string, prior review.Outcome, iteration int) (review.Repair, error) {
	code, err := w.sb.ReadFile(path)
	if err != nil {
		return review.Repair{}, err
	}

	ctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	answer, err := w.client.Complete(ctx, fixPrompt(path, string(code), prior.Issues))
	if err != nil {
		return review.Repair{}, err
	}

	fixed := StripFences(answer)
	if fixed == "" {
		return review.Repair{}, fmt.Errorf("fix %s: %w", path, ErrEmptyResponse)
	}

	out := review.ArtifactPath(path, iteration)
	if err := w.sb.WriteFile(out, []byte(fixed+"\n")); err != nil {
		return review.Repair{}, err
	}
	return review.Repair{NewPath: out}, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
