// Package judge implements a verifier that runs a test command against the
// repaired artifact.
package judge

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/refinery/internal/core/logging"
	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
	"github.com/colonyops/refinery/pkg/executil"
	"github.com/colonyops/refinery/pkg/tmpl"
)

// tailBytes is how much command output is kept for the trail.
const tailBytes = 500

// Verifier accepts an artifact when the command exits zero.
type Verifier struct {
	sb      *sandbox.Sandbox
	exec    executil.Executor
	command string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	detail string
}

var _ review.Detailer = (*Verifier)(nil)

// New creates a command verifier. command is a tmpl.CommandData template.
func New(sb *sandbox.Sandbox, exec executil.Executor, command string, timeout time.Duration) *Verifier {
	return &Verifier{
		sb:      sb,
		exec:    exec,
		command: command,
		timeout: timeout,
		log:     logging.Component("judge"),
	}
}

func (v *Verifier) Name() string { return "command" }

// Verify never fails: rendering, sandbox and execution problems all yield
// VerdictRejected.
func (v *Verifier) Verify(ctx context.Context, p string, iteration int) review.Verdict {
	verdict, detail := v.verify(ctx, p, iteration)

	v.mu.Lock()
	v.detail = detail
	v.mu.Unlock()

	v.log.Debug().Ctx(ctx).Str("verdict", string(verdict)).Str("detail", detail).Msg("verified")
	return verdict
}

func (v *Verifier) verify(ctx context.Context, p string, iteration int) (review.Verdict, string) {
	if _, err := v.sb.AuthorizeRead(p); err != nil {
		return review.VerdictRejected, err.Error()
	}

	cmd, err := tmpl.Render(v.command, tmpl.CommandData{
		Path:      p,
		Dir:       path.Dir(p),
		Root:      v.sb.Root(),
		Iteration: iteration,
	})
	if err != nil {
		return review.VerdictRejected, fmt.Sprintf("render verify command: %v", err)
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	out, runErr := executil.RunShell(ctx, v.exec, v.sb.Root(), cmd)
	code, ran := executil.ExitCode(runErr)
	tail := strings.TrimSpace(executil.Tail(out, tailBytes))

	switch {
	case !ran:
		return review.VerdictRejected, runErr.Error()
	case code != 0:
		return review.VerdictRejected, fmt.Sprintf("exit %d: %s", code, tail)
	default:
		return review.VerdictAccepted, tail
	}
}

// Detail returns the outcome of the most recent Verify call.
func (v *Verifier) Detail() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.detail
}
