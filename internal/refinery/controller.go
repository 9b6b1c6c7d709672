// Package refinery drives files through bounded review and repair rounds.
package refinery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/refinery/internal/core/logging"
	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
	"github.com/colonyops/refinery/internal/core/trail"
)

// Outcome is the terminal state of a file.
type Outcome string

const (
	OutcomeAccepted      Outcome = "ACCEPTED"
	OutcomeMaxIterations Outcome = "MAX_ITERATIONS_REACHED"
	OutcomeError         Outcome = "ERROR"
)

// ErrorKind classifies why a file ended in OutcomeError.
type ErrorKind string

const (
	ErrorKindNone                ErrorKind = ""
	ErrorKindSandboxViolation    ErrorKind = "sandbox_violation"
	ErrorKindNotFound            ErrorKind = "not_found"
	ErrorKindNotAFile            ErrorKind = "not_a_file"
	ErrorKindCollaboratorFailure ErrorKind = "collaborator_failure"
	ErrorKindCancelled           ErrorKind = "cancelled"
)

var (
	// ErrInvalidDecision is returned when a reviewer answers with an unknown
	// decision.
	ErrInvalidDecision = errors.New("invalid review decision")
	// ErrCollaboratorPanic wraps a panic raised inside a reviewer, rewriter
	// or verifier.
	ErrCollaboratorPanic = errors.New("collaborator panicked")
)

// FileTask is the working state of one file. It is owned by the controller
// for the duration of Process.
type FileTask struct {
	OriginalPath string           `json:"original_path"`
	CurrentPath  string           `json:"current_path"`
	Iteration    int              `json:"iteration"`
	History      []review.Outcome `json:"history"`
}

// Result is what Process reports for one file.
type Result struct {
	Task     FileTask       `json:"task"`
	Outcome  Outcome        `json:"outcome"`
	Kind     ErrorKind      `json:"error_kind,omitempty"`
	Err      error          `json:"-"`
	Reviews  int            `json:"reviews"`
	Repairs  int            `json:"repairs"`
	Verdict  review.Verdict `json:"verdict,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Failed reports whether the file ended in anything but acceptance.
func (r Result) Failed() bool {
	return r.Outcome != OutcomeAccepted
}

// Options configures optional controller behavior.
type Options struct {
	RunID    string
	Observer Observer
	Log      *zerolog.Logger
}

// Controller runs the review/repair state machine for one file at a time.
type Controller struct {
	reviewer review.Reviewer
	rewriter review.Rewriter
	verifier review.Verifier // nil disables verification
	sink     trail.Sink
	sb       *sandbox.Sandbox
	runID    string
	observer Observer
	log      zerolog.Logger
}

// NewController wires a controller. verifier may be nil.
func NewController(
	reviewer review.Reviewer,
	rewriter review.Rewriter,
	verifier review.Verifier,
	sink trail.Sink,
	sb *sandbox.Sandbox,
	opts Options,
) *Controller {
	c := &Controller{
		reviewer: reviewer,
		rewriter: rewriter,
		verifier: verifier,
		sink:     sink,
		sb:       sb,
		runID:    opts.RunID,
		observer: opts.Observer,
		log:      logging.Component("controller"),
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	if opts.Log != nil {
		c.log = *opts.Log
	}
	return c
}

// Process drives path through review rounds until it is accepted, the
// budget in spec.MaxIterations is spent, or something fails. It always
// appends exactly one terminal trail record.
func (c *Controller) Process(ctx context.Context, path string, spec TargetSpec) Result {
	start := time.Now()
	ctx = logging.WithFile(ctx, path)

	task := FileTask{OriginalPath: path, CurrentPath: path}
	res := c.run(ctx, &task, spec)
	res.Task = task
	res.Duration = time.Since(start)

	c.finish(ctx, res)
	c.observer.ObserveFile(res.Outcome, res.Reviews, res.Duration)
	return res
}

func (c *Controller) run(ctx context.Context, task *FileTask, spec TargetSpec) Result {
	var res Result

	for {
		round := task.Iteration + 1
		ctx := logging.WithIteration(ctx, round)

		if err := ctx.Err(); err != nil {
			return c.fail(res, ErrorKindCancelled, fmt.Errorf("round %d: %w", round, err))
		}

		if _, err := c.sb.AuthorizeRead(task.CurrentPath); err != nil {
			return c.fail(res, classify(err), fmt.Errorf("authorize %s: %w", task.CurrentPath, err))
		}

		c.log.Debug().Ctx(ctx).Str("path", task.CurrentPath).Msg("reviewing")
		var outcome review.Outcome
		err := recovered("reviewer", func() (err error) {
			outcome, err = c.reviewer.Review(ctx, task.CurrentPath)
			return err
		})
		if err == nil && !outcome.Decision.IsValid() {
			err = fmt.Errorf("%w: %q", ErrInvalidDecision, outcome.Decision)
		}
		c.recordReview(ctx, task, round, outcome, err)
		if err != nil {
			return c.fail(res, ErrorKindCollaboratorFailure, fmt.Errorf("review %s: %w", task.CurrentPath, err))
		}

		res.Reviews++
		task.History = append(task.History, outcome)
		c.observer.ObserveReview(outcome.Decision)

		if outcome.Accepted() {
			res.Outcome = OutcomeAccepted
			return res
		}

		if round >= spec.MaxIterations {
			res.Outcome = OutcomeMaxIterations
			return res
		}

		if spec.DryRun {
			c.append(ctx, c.record(task, round, trail.AgentRepairer, trail.ActionFix, trail.StatusInfo, func(r *trail.Record) {
				r.Input = task.CurrentPath
				r.Output = "dry run: repair skipped"
			}))
			task.Iteration++
			continue
		}

		c.log.Debug().Ctx(ctx).Int("issues", len(outcome.Issues)).Msg("repairing")
		repair, err := c.repair(ctx, task, outcome, round)
		c.observer.ObserveRepair(err == nil)
		if err != nil {
			return c.fail(res, classifyRepair(err), err)
		}

		res.Repairs++
		task.CurrentPath = repair.NewPath
		task.Iteration++

		if c.verifier != nil {
			verdict := c.verify(ctx, task.CurrentPath, round)
			res.Verdict = verdict
			c.observer.ObserveVerify(verdict)
			c.recordVerify(ctx, task, round, verdict)

			if verdict == review.VerdictAccepted {
				res.Outcome = OutcomeAccepted
				return res
			}
		}
	}
}

// repair invokes the rewriter and authorizes its output before the task
// adopts it.
func (c *Controller) repair(ctx context.Context, task *FileTask, prior review.Outcome, round int) (review.Repair, error) {
	in := task.CurrentPath

	var repair review.Repair
	err := recovered("rewriter", func() (err error) {
		repair, err = c.rewriter.Repair(ctx, in, prior, round)
		return err
	})
	if err == nil {
		if repair.NewPath == "" {
			err = fmt.Errorf("rewriter returned an empty path")
		} else if _, authErr := c.sb.AuthorizeRead(repair.NewPath); authErr != nil {
			err = fmt.Errorf("authorize repair output %s: %w", repair.NewPath, authErr)
		}
	}

	status := trail.StatusSuccess
	if err != nil {
		status = trail.StatusFail
	}
	c.append(ctx, c.record(task, round, trail.AgentRepairer, trail.ActionFix, status, func(r *trail.Record) {
		r.Model = modelOf(c.rewriter)
		r.Input = fmt.Sprintf("%s (%d issues)", in, len(prior.Issues))
		if err != nil {
			r.Output = err.Error()
			return
		}
		r.Artifact = repair.NewPath
		r.Output = repair.NewPath
	}))

	if err != nil {
		return review.Repair{}, fmt.Errorf("repair %s: %w", in, err)
	}
	return repair, nil
}

func (c *Controller) recordReview(ctx context.Context, task *FileTask, round int, outcome review.Outcome, err error) {
	status := trail.StatusFail
	if err == nil && outcome.Accepted() {
		status = trail.StatusSuccess
	}

	c.append(ctx, c.record(task, round, trail.AgentReviewer, trail.ActionCodeAnalysis, status, func(r *trail.Record) {
		r.Model = modelOf(c.reviewer)
		r.Input = task.CurrentPath
		if err != nil {
			r.Output = err.Error()
			return
		}
		r.Decision = string(outcome.Decision)
		r.Output = summarize(outcome)
	}))
}

func (c *Controller) recordVerify(ctx context.Context, task *FileTask, round int, verdict review.Verdict) {
	status := trail.StatusFail
	if verdict == review.VerdictAccepted {
		status = trail.StatusSuccess
	}

	c.append(ctx, c.record(task, round, trail.AgentVerifier, trail.ActionDebug, status, func(r *trail.Record) {
		r.Model = modelOf(c.verifier)
		r.Input = task.CurrentPath
		r.Decision = string(verdict)
		r.Output = string(verdict)
		if d, ok := c.verifier.(review.Detailer); ok && d.Detail() != "" {
			r.Output = fmt.Sprintf("%s: %s", verdict, d.Detail())
		}
	}))
}

// finish appends the single terminal record for a file and logs the outcome.
func (c *Controller) finish(ctx context.Context, res Result) {
	status := trail.StatusFail
	if res.Outcome == OutcomeAccepted {
		status = trail.StatusSuccess
	}

	output := string(res.Outcome)
	if res.Err != nil {
		output = fmt.Sprintf("%s (%s): %v", res.Outcome, res.Kind, res.Err)
	}

	task := res.Task
	c.append(ctx, c.record(&task, task.Iteration+1, trail.AgentSystem, trail.ActionSystem, status, func(r *trail.Record) {
		r.Input = task.OriginalPath
		r.Decision = string(res.Outcome)
		r.Artifact = task.CurrentPath
		r.Output = output
	}))

	evt := c.log.Info()
	if res.Outcome == OutcomeError {
		evt = c.log.Warn().Err(res.Err).Str("kind", string(res.Kind))
	}
	evt.Ctx(ctx).
		Str("outcome", string(res.Outcome)).
		Str("artifact", task.CurrentPath).
		Int("reviews", res.Reviews).
		Int("repairs", res.Repairs).
		Msg("file finished")
}

func (c *Controller) fail(res Result, kind ErrorKind, err error) Result {
	res.Outcome = OutcomeError
	res.Kind = kind
	res.Err = err
	return res
}

func (c *Controller) record(task *FileTask, round int, agent trail.Agent, action trail.Action, status trail.Status, fill func(r *trail.Record)) trail.Record {
	rec := trail.New(agent, action, status)
	rec.RunID = c.runID
	rec.File = task.OriginalPath
	rec.Iteration = round
	fill(&rec)
	return rec
}

// append writes rec to the sink. Failures are logged and never abort the
// file.
func (c *Controller) append(ctx context.Context, rec trail.Record) {
	if err := c.sink.Append(ctx, rec); err != nil {
		c.log.Warn().Ctx(ctx).Err(err).
			Str("agent", string(rec.Agent)).
			Str("action", string(rec.Action)).
			Str("status", string(rec.Status)).
			Msg("trail append failed")
	}
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, sandbox.ErrOutsideSandbox):
		return ErrorKindSandboxViolation
	case errors.Is(err, sandbox.ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, sandbox.ErrNotAFile):
		return ErrorKindNotAFile
	default:
		return ErrorKindCollaboratorFailure
	}
}

// verify runs the verifier. A panicking verifier counts as a rejection.
func (c *Controller) verify(ctx context.Context, p string, round int) (verdict review.Verdict) {
	err := recovered("verifier", func() error {
		verdict = c.verifier.Verify(ctx, p, round)
		return nil
	})
	if err != nil {
		c.log.Error().Ctx(ctx).Err(err).Str("file", p).Msg("verifier failed")
		return review.VerdictRejected
	}
	return verdict
}

// recovered calls fn and turns a panic inside it into an error so one
// misbehaving collaborator fails a single file instead of the whole run.
func recovered(role string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrCollaboratorPanic, role, r)
		}
	}()
	return fn()
}

// classifyRepair keeps sandbox violations distinct; anything else the
// rewriter produced is a collaborator failure even if it surfaced as a
// missing file.
func classifyRepair(err error) ErrorKind {
	if errors.Is(err, sandbox.ErrOutsideSandbox) {
		return ErrorKindSandboxViolation
	}
	return ErrorKindCollaboratorFailure
}

func summarize(o review.Outcome) string {
	if len(o.Issues) == 0 {
		return string(o.Decision)
	}
	return fmt.Sprintf("%s: %s", o.Decision, strings.Join(o.Issues, "; "))
}

// modelOf returns the model name of collaborators backed by a language
// model, or the trail default.
func modelOf(v any) string {
	if m, ok := v.(interface{ Model() string }); ok && m.Model() != "" {
		return m.Model()
	}
	return "N/A"
}
