package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hay-kot/criterio"

	"github.com/colonyops/refinery/internal/core/styles"
	"github.com/colonyops/refinery/pkg/tmpl"
)

// Validate checks that the configuration is structurally valid.
func (c *Config) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if c.SandboxRoot == "" {
		errs = errs.Append("sandbox_root", fmt.Errorf("cannot be empty"))
	}
	if c.MaxIterations < 1 {
		errs = errs.Append("max_iterations", fmt.Errorf("must be at least 1, got %d", c.MaxIterations))
	}
	if err := FileExt(c.FileExt); err != nil {
		errs = errs.Append("file_ext", err)
	}
	for i, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = errs.Append(fmt.Sprintf("exclude[%d]", i), fmt.Errorf("invalid pattern %q", p))
		}
	}

	if !oneOf(c.Agents.Reviewer, ReviewerHeuristic, ReviewerLint, ReviewerLLM) {
		errs = errs.Append("agents.reviewer", fmt.Errorf("unknown reviewer %q", c.Agents.Reviewer))
	}
	if !oneOf(c.Agents.Rewriter, RewriterHeuristic, RewriterLLM) {
		errs = errs.Append("agents.rewriter", fmt.Errorf("unknown rewriter %q", c.Agents.Rewriter))
	}
	if !oneOf(c.Agents.Verifier, VerifierNone, VerifierCommand) {
		errs = errs.Append("agents.verifier", fmt.Errorf("unknown verifier %q", c.Agents.Verifier))
	}
	if c.Agents.Timeout < 0 {
		errs = errs.Append("agents.timeout", fmt.Errorf("cannot be negative"))
	}
	if c.Agents.Lint.MinScore < 0 || c.Agents.Lint.MinScore > 10 {
		errs = errs.Append("agents.lint.min_score", fmt.Errorf("must be between 0 and 10"))
	}
	if c.UsesLLM() && !oneOf(c.Agents.LLM.Provider, ProviderGemini, ProviderOpenAI) {
		errs = errs.Append("agents.llm.provider", fmt.Errorf("unknown provider %q", c.Agents.LLM.Provider))
	}

	if !oneOf(c.Trail.Backend, TrailJSON, TrailSQLite) {
		errs = errs.Append("trail.backend", fmt.Errorf("unknown backend %q", c.Trail.Backend))
	}
	if c.Trail.Path == "" {
		errs = errs.Append("trail.path", fmt.Errorf("cannot be empty"))
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		errs = errs.Append("theme", fmt.Errorf("unknown theme %q (available: %s)", c.Theme, strings.Join(styles.ThemeNames(), ", ")))
	}

	return errs.ToError()
}

// ValidateDeep performs Validate plus checks that touch the filesystem:
// the config file itself, the sandbox root and the command templates.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("sandbox_root", c.SandboxRoot, isDirectory),
		c.validateTemplates(),
	)
}

// FileExt validates an extension filter: it must start with "." and name
// something after the dot.
func FileExt(ext string) error {
	if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
		return fmt.Errorf("extension %q must start with \".\"", ext)
	}
	if strings.ContainsAny(ext, `/\`) {
		return fmt.Errorf("extension %q cannot contain a path separator", ext)
	}
	return nil
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

func isDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}

func (c *Config) validateTemplates() error {
	var errs criterio.FieldErrorsBuilder

	if c.Agents.Reviewer == ReviewerLint {
		if err := tmpl.Check(c.Agents.Lint.Command); err != nil {
			errs = errs.Append("agents.lint.command", fmt.Errorf("template error: %w", err))
		}
	}
	if c.Agents.Verifier == VerifierCommand {
		if err := tmpl.Check(c.Agents.Verify.Command); err != nil {
			errs = errs.Append("agents.verify.command", fmt.Errorf("template error: %w", err))
		}
	}

	return errs.ToError()
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
