// Package lint implements a reviewer that runs an external linter and
// accepts a file when its score reaches a threshold.
package lint

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/refinery/internal/core/logging"
	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
	"github.com/colonyops/refinery/pkg/executil"
	"github.com/colonyops/refinery/pkg/tmpl"
)

// ErrNoScore is returned when the linter output carries no score line.
var ErrNoScore = errors.New("no score in linter output")

const maxIssues = 20

var (
	scoreRe   = regexp.MustCompile(`rated at (-?[0-9.]+)/10`)
	messageRe = regexp.MustCompile(`^\S+:\d+:\d+: [A-Z]\d{4}: .+`)
)

// Options configures a Reviewer.
type Options struct {
	Command  string        // template rendered with tmpl.CommandData
	MinScore float64       // accept at or above
	Timeout  time.Duration // 0 means no timeout
}

// Reviewer scores files with a linter command.
type Reviewer struct {
	sb   *sandbox.Sandbox
	exec executil.Executor
	opts Options
	log  zerolog.Logger
}

// NewReviewer creates a lint reviewer.
func NewReviewer(sb *sandbox.Sandbox, exec executil.Executor, opts Options) *Reviewer {
	return &Reviewer{sb: sb, exec: exec, opts: opts, log: logging.Component("lint")}
}

func (r *Reviewer) Name() string { return "lint" }

func (r *Reviewer) Review(ctx context.Context, p string) (review.Outcome, error) {
	if _, err := r.sb.AuthorizeRead(p); err != nil {
		return review.Outcome{}, err
	}

	cmd, err := tmpl.Render(r.opts.Command, tmpl.CommandData{
		Path: p,
		Dir:  path.Dir(p),
		Root: r.sb.Root(),
	})
	if err != nil {
		return review.Outcome{}, fmt.Errorf("render lint command: %w", err)
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	out, runErr := executil.RunShell(ctx, r.exec, r.sb.Root(), cmd)
	if _, ran := executil.ExitCode(runErr); !ran {
		// Linters exit non-zero when they find issues; only a command that
		// never ran is a failure.
		return review.Outcome{}, fmt.Errorf("run lint: %w", runErr)
	}

	score, err := Score(out)
	if err != nil {
		return review.Outcome{}, fmt.Errorf("lint %s: %w: %s", p, err, executil.Tail(out, 200))
	}

	r.log.Debug().Ctx(ctx).Float64("score", score).Float64("min", r.opts.MinScore).Msg("lint scored")

	if score >= r.opts.MinScore {
		return review.Outcome{Decision: review.DecisionAccepted, Issues: []string{}}, nil
	}

	issues := []string{fmt.Sprintf("lint score %.2f/10 is below %.2f", score, r.opts.MinScore)}
	issues = append(issues, Messages(out, maxIssues)...)
	return review.Outcome{Decision: review.DecisionRequiresFix, Issues: issues}, nil
}

// Score extracts the "rated at X/10" score from linter output.
func Score(out []byte) (float64, error) {
	m := scoreRe.FindSubmatch(out)
	if m == nil {
		return 0, ErrNoScore
	}
	return strconv.ParseFloat(string(m[1]), 64)
}

// Messages returns up to limit "file:line:col: C0000: text" lines.
func Messages(out []byte, limit int) []string {
	var msgs []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() && len(msgs) < limit {
		if line := sc.Text(); messageRe.MatchString(line) {
			msgs = append(msgs, line)
		}
	}
	return msgs
}
