// Package initcmd implements the interactive config wizard behind
// `refinery init`.
package initcmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/huh"

	"github.com/colonyops/refinery/internal/core/config"
	"github.com/colonyops/refinery/internal/core/styles"
)

// ErrNotInteractive is returned when prompts are needed but stdin is not a
// terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal; use --yes to accept defaults")

// WizardOptions configures the wizard behavior.
type WizardOptions struct {
	ConfigPath  string
	Yes         bool // skip prompts, use defaults
	Force       bool // overwrite existing config
	Interactive bool // stdin is a terminal
	Out         io.Writer
}

// Wizard orchestrates the init process.
type Wizard struct {
	opts WizardOptions
}

// NewWizard creates a new init wizard.
func NewWizard(opts WizardOptions) *Wizard {
	return &Wizard{opts: opts}
}

// Run executes the wizard.
func (w *Wizard) Run(_ context.Context) error {
	if !w.opts.Yes && !w.opts.Interactive {
		return ErrNotInteractive
	}

	if ConfigExists(w.opts.ConfigPath) && !w.opts.Force {
		if w.opts.Yes {
			return fmt.Errorf("config exists at %s; use --force to overwrite", w.opts.ConfigPath)
		}

		var overwrite bool
		err := huh.NewConfirm().
			Title("Config file already exists").
			Description(w.opts.ConfigPath + "\nOverwrite? (a backup will be created)").
			Value(&overwrite).
			Run()
		if err != nil {
			return err
		}
		if !overwrite {
			w.printf(styles.TextMutedStyle, "Init cancelled")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if !w.opts.Yes {
		if err := promptUser(&cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid answers: %w", err)
	}

	if ConfigExists(w.opts.ConfigPath) {
		backupPath, err := BackupConfig(w.opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("backup config: %w", err)
		}
		if backupPath != "" {
			w.printf(styles.TextSuccessStyle, "%s Backed up config to: %s", styles.IconPass, backupPath)
		}
	}

	if err := cfg.Save(w.opts.ConfigPath); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	w.printf(styles.TextSuccessStyle, "%s Created config: %s", styles.IconPass, w.opts.ConfigPath)

	w.printNextSteps(&cfg)
	return nil
}

func promptUser(cfg *config.Config) error {
	maxIterations := strconv.Itoa(cfg.MaxIterations)
	var verifyCommand bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Sandbox directory").
				Description("Every file refinery reads or writes must live under this directory").
				Value(&cfg.SandboxRoot),
			huh.NewInput().
				Title("File extension").
				Description("Files picked up when the target is a directory").
				Value(&cfg.FileExt).
				Validate(config.FileExt),
			huh.NewInput().
				Title("Max iterations").
				Description("Review rounds per file before giving up").
				Value(&maxIterations).
				Validate(validatePositive),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Reviewer").
				Options(huh.NewOptions(config.ReviewerHeuristic, config.ReviewerLint, config.ReviewerLLM)...).
				Value(&cfg.Agents.Reviewer),
			huh.NewSelect[string]().
				Title("Rewriter").
				Options(huh.NewOptions(config.RewriterHeuristic, config.RewriterLLM)...).
				Value(&cfg.Agents.Rewriter),
			huh.NewConfirm().
				Title("Run a test command after each repair?").
				Description(cfg.Agents.Verify.Command).
				Value(&verifyCommand),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Model provider").
				Options(huh.NewOptions(config.ProviderGemini, config.ProviderOpenAI)...).
				Value(&cfg.Agents.LLM.Provider),
		).WithHideFunc(func() bool { return !cfg.UsesLLM() }),
	)

	if err := form.Run(); err != nil {
		return err
	}

	cfg.MaxIterations, _ = strconv.Atoi(maxIterations)
	if verifyCommand {
		cfg.Agents.Verifier = config.VerifierCommand
	}
	if cfg.Agents.LLM.Provider == config.ProviderOpenAI {
		cfg.Agents.LLM.Model = "gpt-4o-mini"
		cfg.Agents.LLM.APIKeyEnv = "OPENAI_API_KEY"
	}
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return fmt.Errorf("must be a whole number of at least 1")
	}
	return nil
}

func (w *Wizard) printNextSteps(cfg *config.Config) {
	w.printf(styles.TextForegroundBoldStyle, "\nNext Steps")

	step := 1
	w.printf(styles.TextForegroundStyle, "  %d. Put the files to refine under %s/", step, cfg.SandboxRoot)
	step++

	if cfg.UsesLLM() {
		w.printf(styles.TextForegroundStyle, "  %d. Export $%s", step, cfg.Agents.LLM.APIKeyEnv)
		step++
	}

	w.printf(styles.TextForegroundStyle, "  %d. Run 'refinery doctor', then 'refinery run %s'", step, cfg.SandboxRoot)
}

type renderer interface {
	Render(strs ...string) string
}

func (w *Wizard) printf(style renderer, format string, args ...any) {
	if w.opts.Out == nil {
		return
	}
	_, _ = fmt.Fprintln(w.opts.Out, style.Render(fmt.Sprintf(format, args...)))
}
