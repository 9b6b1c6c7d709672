package refinery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
)

// scriptedReviewer returns decisions in order and repeats the last one.
type scriptedReviewer struct {
	mu        sync.Mutex
	decisions []review.Decision
	err       error
	calls     []string
}

func (r *scriptedReviewer) Name() string { return "scripted" }

func (r *scriptedReviewer) Review(_ context.Context, path string) (review.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, path)
	if r.err != nil {
		return review.Outcome{}, r.err
	}

	d := r.decisions[len(r.decisions)-1]
	if i := len(r.calls) - 1; i < len(r.decisions) {
		d = r.decisions[i]
	}

	out := review.Outcome{Decision: d}
	if d == review.DecisionRequiresFix {
		out.Issues = []string{fmt.Sprintf("issue in %s", path)}
	}
	return out, nil
}

func alwaysFix() *scriptedReviewer {
	return &scriptedReviewer{decisions: []review.Decision{review.DecisionRequiresFix}}
}

func acceptAfter(fixes int) *scriptedReviewer {
	ds := make([]review.Decision, 0, fixes+1)
	for range fixes {
		ds = append(ds, review.DecisionRequiresFix)
	}
	return &scriptedReviewer{decisions: append(ds, review.DecisionAccepted)}
}

// copyRewriter writes the next artifact through the sandbox, or returns a
// canned path/error when set.
type copyRewriter struct {
	sb         *sandbox.Sandbox
	err        error
	path       string
	iterations []int
}

func (w *copyRewriter) Name() string  { return "copy" }
func (w *copyRewriter) Model() string { return "copy-v1" }

func (w *copyRewriter) Repair(_ context.Context, path string, _ review.Outcome, iteration int) (review.Repair, error) {
	w.iterations = append(w.iterations, iteration)
	if w.err != nil {
		return review.Repair{}, w.err
	}
	if w.path != "" {
		return review.Repair{NewPath: w.path}, nil
	}

	data, err := w.sb.ReadFile(path)
	if err != nil {
		return review.Repair{}, err
	}
	out := review.ArtifactPath(path, iteration)
	if err := w.sb.WriteFile(out, data); err != nil {
		return review.Repair{}, err
	}
	return review.Repair{NewPath: out}, nil
}

type fixedVerifier struct {
	verdicts []review.Verdict
	calls    int
}

func (v *fixedVerifier) Name() string { return "fixed" }

func (v *fixedVerifier) Verify(context.Context, string, int) review.Verdict {
	i := min(v.calls, len(v.verdicts)-1)
	v.calls++
	return v.verdicts[i]
}

func newSandbox(t *testing.T, files ...string) *sandbox.Sandbox {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("print('hi')\n"), 0o644))
	}
	sb, err := sandbox.New(root)
	require.NoError(t, err)
	return sb
}

func spec(path string, maxIter int) TargetSpec {
	return TargetSpec{Path: path, FileExt: ".py", MaxIterations: maxIter}
}

// panickyReviewer panics when asked about path and accepts everything else.
type panickyReviewer struct{ path string }

func (r panickyReviewer) Name() string { return "panicky" }

func (r panickyReviewer) Review(_ context.Context, path string) (review.Outcome, error) {
	if path == r.path {
		panic("nil map in vendor client")
	}
	return review.Outcome{Decision: review.DecisionAccepted}, nil
}

type panickyRewriter struct{}

func (panickyRewriter) Name() string { return "panicky" }

func (panickyRewriter) Repair(context.Context, string, review.Outcome, int) (review.Repair, error) {
	panic("index out of range")
}

type panickyVerifier struct{}

func (panickyVerifier) Name() string { return "panicky" }

func (panickyVerifier) Verify(context.Context, string, int) review.Verdict {
	panic("test runner crashed")
}
