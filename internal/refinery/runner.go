package refinery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/colonyops/refinery/internal/core/discovery"
	"github.com/colonyops/refinery/internal/core/logging"
	"github.com/colonyops/refinery/internal/core/sandbox"
	"github.com/colonyops/refinery/internal/core/trail"
)

// Report aggregates the results of one run.
type Report struct {
	RunID      string        `json:"run_id"`
	Target     string        `json:"target"`
	DryRun     bool          `json:"dry_run"`
	Files      []Result      `json:"files"`
	Accepted   int           `json:"accepted"`
	MaxReached int           `json:"max_iterations_reached"`
	Errors     int           `json:"errors"`
	Cancelled  bool          `json:"cancelled"`
	Duration   time.Duration `json:"duration"`
}

// Failed reports whether any file ended without acceptance.
func (r Report) Failed() bool {
	return r.MaxReached > 0 || r.Errors > 0
}

func (r *Report) add(res Result) {
	r.Files = append(r.Files, res)
	switch res.Outcome {
	case OutcomeAccepted:
		r.Accepted++
	case OutcomeMaxIterations:
		r.MaxReached++
	default:
		r.Errors++
	}
}

// Runner discovers files for a target and feeds them through a Controller
// one at a time.
type Runner struct {
	ctrl *Controller
	sb   *sandbox.Sandbox
	log  zerolog.Logger
}

// NewRunner creates a Runner. Trail records go to the controller's sink and
// share its run ID; a fresh ID is assigned when the controller has none.
func NewRunner(ctrl *Controller, sb *sandbox.Sandbox) *Runner {
	if ctrl.runID == "" {
		ctrl.runID = uuid.NewString()
	}
	return &Runner{
		ctrl: ctrl,
		sb:   sb,
		log:  logging.Component("runner"),
	}
}

// RunID returns the identifier stamped on every record of this runner.
func (r *Runner) RunID() string {
	return r.ctrl.runID
}

// Run validates spec, discovers files and processes them sequentially.
// Cancelling ctx stops the run at the next file boundary.
func (r *Runner) Run(ctx context.Context, spec TargetSpec) (Report, error) {
	start := time.Now()
	report := Report{RunID: r.RunID(), Target: spec.Path, DryRun: spec.DryRun}

	if err := spec.Validate(); err != nil {
		return report, fmt.Errorf("invalid target: %w", err)
	}

	r.system(ctx, trail.StatusInfo, describe(spec), "run started")
	r.log.Info().
		Str("run_id", report.RunID).
		Str("target", spec.Path).
		Str("file_ext", spec.FileExt).
		Int("max_iterations", spec.MaxIterations).
		Bool("dry_run", spec.DryRun).
		Msg("run started")

	files, err := discovery.Discover(r.sb, spec.discoveryTarget())
	if err != nil {
		r.system(ctx, trail.StatusFail, spec.Path, err.Error())
		return report, err
	}

	if len(files) == 0 {
		r.system(ctx, trail.StatusInfo, spec.Path, "nothing to do")
		r.log.Info().Str("target", spec.Path).Msg("nothing to do")
	}

	for _, file := range files {
		if ctx.Err() != nil {
			report.Cancelled = true
			r.log.Warn().Str("next", file).Msg("run cancelled, skipping remaining files")
			break
		}

		report.add(r.ctrl.Process(ctx, file, spec))
	}

	report.Duration = time.Since(start)

	summary := fmt.Sprintf("files=%d accepted=%d max_iterations_reached=%d errors=%d",
		len(report.Files), report.Accepted, report.MaxReached, report.Errors)
	if report.Cancelled {
		summary += " cancelled"
	}
	r.system(ctx, trail.StatusInfo, spec.Path, summary)
	r.log.Info().
		Int("files", len(report.Files)).
		Int("accepted", report.Accepted).
		Int("max_reached", report.MaxReached).
		Int("errors", report.Errors).
		Dur("elapsed", report.Duration).
		Msg("run finished")

	return report, nil
}

func (r *Runner) system(ctx context.Context, status trail.Status, input, output string) {
	rec := trail.New(trail.AgentSystem, trail.ActionSystem, status)
	rec.RunID = r.RunID()
	rec.Input = input
	rec.Output = output
	r.ctrl.append(ctx, rec)
}

func describe(spec TargetSpec) string {
	s := fmt.Sprintf("target=%s ext=%s max_iterations=%d", spec.Path, spec.FileExt, spec.MaxIterations)
	if spec.DryRun {
		s += " dry_run"
	}
	return s
}
