// Package app wires configuration into the sandbox, agents, trail sink and
// metrics that the commands operate on.
package app

import (
	"context"
	"fmt"

	"github.com/colonyops/refinery/internal/agents/heuristic"
	"github.com/colonyops/refinery/internal/agents/judge"
	"github.com/colonyops/refinery/internal/agents/lint"
	"github.com/colonyops/refinery/internal/agents/llm"
	"github.com/colonyops/refinery/internal/core/config"
	"github.com/colonyops/refinery/internal/core/doctor"
	"github.com/colonyops/refinery/internal/core/review"
	"github.com/colonyops/refinery/internal/core/sandbox"
	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/internal/refinery"
	"github.com/colonyops/refinery/pkg/executil"
)

// App is the central entry point for all refinery operations.
// Commands consume App instead of cherry-picking raw dependencies.
// Expensive resources are opened on first use and released by Close.
type App struct {
	Config *config.Config

	exec       executil.Executor
	sb         *sandbox.Sandbox
	trail      trail.Store
	closeTrail func() error
}

// New constructs an App from explicit dependencies.
func New(cfg *config.Config, exec executil.Executor) *App {
	return &App{
		Config: cfg,
		exec:   exec,
	}
}

// Sandbox opens the configured sandbox root.
func (a *App) Sandbox() (*sandbox.Sandbox, error) {
	if a.sb != nil {
		return a.sb, nil
	}

	sb, err := sandbox.New(a.Config.SandboxRoot)
	if err != nil {
		return nil, fmt.Errorf("open sandbox: %w", err)
	}
	a.sb = sb
	return sb, nil
}

// Trail opens the configured trail store.
func (a *App) Trail() (trail.Store, error) {
	if a.trail != nil {
		return a.trail, nil
	}

	store, closer, err := OpenTrail(a.Config.Trail)
	if err != nil {
		return nil, err
	}
	a.trail, a.closeTrail = store, closer
	return store, nil
}

// Agents are the collaborators selected by configuration.
type Agents struct {
	Reviewer review.Reviewer
	Rewriter review.Rewriter
	Verifier review.Verifier // nil when verification is disabled
}

// Agents builds the reviewer, rewriter and optional verifier.
func (a *App) Agents(ctx context.Context) (Agents, error) {
	sb, err := a.Sandbox()
	if err != nil {
		return Agents{}, err
	}

	cfg := a.Config.Agents

	var client llm.Client
	if a.Config.UsesLLM() {
		client, err = llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			return Agents{}, fmt.Errorf("create llm client: %w", err)
		}
	}

	var agents Agents

	switch cfg.Reviewer {
	case config.ReviewerHeuristic:
		agents.Reviewer = heuristic.NewReviewer(sb, cfg.Heuristic.Marker)
	case config.ReviewerLint:
		agents.Reviewer = lint.NewReviewer(sb, a.exec, lint.Options{
			Command:  cfg.Lint.Command,
			MinScore: cfg.Lint.MinScore,
			Timeout:  cfg.Timeout,
		})
	case config.ReviewerLLM:
		agents.Reviewer = llm.NewReviewer(sb, client, cfg.Timeout)
	default:
		return Agents{}, fmt.Errorf("unknown reviewer %q", cfg.Reviewer)
	}

	switch cfg.Rewriter {
	case config.RewriterHeuristic:
		agents.Rewriter = heuristic.NewRewriter(sb, cfg.Heuristic.Marker, cfg.Heuristic.CommentPrefix)
	case config.RewriterLLM:
		agents.Rewriter = llm.NewRewriter(sb, client, cfg.Timeout)
	default:
		return Agents{}, fmt.Errorf("unknown rewriter %q", cfg.Rewriter)
	}

	switch cfg.Verifier {
	case config.VerifierNone:
	case config.VerifierCommand:
		agents.Verifier = judge.New(sb, a.exec, cfg.Verify.Command, cfg.Timeout)
	default:
		return Agents{}, fmt.Errorf("unknown verifier %q", cfg.Verifier)
	}

	return agents, nil
}

// NewRunner builds a runner over the configured sandbox, agents and trail.
// observer may be nil.
func (a *App) NewRunner(ctx context.Context, observer refinery.Observer) (*refinery.Runner, error) {
	sb, err := a.Sandbox()
	if err != nil {
		return nil, err
	}

	agents, err := a.Agents(ctx)
	if err != nil {
		return nil, err
	}

	sink, err := a.Trail()
	if err != nil {
		return nil, err
	}

	ctrl := refinery.NewController(agents.Reviewer, agents.Rewriter, agents.Verifier, sink, sb, refinery.Options{
		Observer: observer,
	})
	return refinery.NewRunner(ctrl, sb), nil
}

// RunChecks executes all doctor checks and returns the tallied report.
func (a *App) RunChecks(ctx context.Context, configPath string) doctor.Report {
	checks := []doctor.Check{
		doctor.NewConfigCheck(a.Config, configPath),
		doctor.NewSandboxCheck(a.Config.SandboxRoot, a.Config.FileExt, a.Config.Exclude),
		doctor.NewToolsCheck(a.Config.Agents),
		doctor.NewProviderKeyCheck(a.Config),
	}
	return doctor.Run(ctx, checks)
}

// Close releases the trail store.
func (a *App) Close() error {
	if a.closeTrail == nil {
		return nil
	}

	err := a.closeTrail()
	a.trail, a.closeTrail = nil, nil
	if err != nil {
		return fmt.Errorf("close trail: %w", err)
	}
	return nil
}
