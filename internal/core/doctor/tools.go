package doctor

import (
	"context"
	"os/exec"
	"strings"

	"github.com/colonyops/refinery/internal/core/config"
	"github.com/colonyops/refinery/pkg/tmpl"
)

// lookPathFunc is the function used to find executables on PATH.
// Package-level variable to allow test overrides.
var lookPathFunc = exec.LookPath

// ToolsCheck verifies that the executables the configured agents shell out
// to are available on $PATH.
type ToolsCheck struct {
	agents config.AgentsConfig
}

// NewToolsCheck creates a new tools check.
func NewToolsCheck(agents config.AgentsConfig) *ToolsCheck {
	return &ToolsCheck{agents: agents}
}

func (c *ToolsCheck) Name() string {
	return "Tools"
}

func (c *ToolsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	needsShell := c.agents.Reviewer == config.ReviewerLint || c.agents.Verifier == config.VerifierCommand
	if !needsShell {
		result.Items = append(result.Items, CheckItem{
			Label:  "shell",
			Status: StatusPass,
			Detail: "no command-backed agents configured",
		})
		return result
	}

	result.Items = append(result.Items, lookup("sh", "sh", StatusFail))

	if c.agents.Reviewer == config.ReviewerLint {
		result.Items = append(result.Items, commandItem("lint", c.agents.Lint.Command))
	}
	if c.agents.Verifier == config.VerifierCommand {
		result.Items = append(result.Items, commandItem("verify", c.agents.Verify.Command))
	}

	return result
}

// commandItem resolves the program named by the first word of a rendered
// command template. A missing program is a warning because the command may
// rely on shell builtins or aliases.
func commandItem(label, command string) CheckItem {
	rendered, err := tmpl.Render(command, tmpl.CommandData{Path: "main", Dir: ".", Root: "."})
	if err != nil {
		return CheckItem{Label: label, Status: StatusFail, Detail: err.Error()}
	}

	fields := strings.Fields(rendered)
	if len(fields) == 0 {
		return CheckItem{Label: label, Status: StatusFail, Detail: "empty command"}
	}

	return lookup(label, fields[0], StatusWarn)
}

func lookup(label, program string, missing Status) CheckItem {
	path, err := lookPathFunc(program)
	if err != nil {
		return CheckItem{
			Label:  label,
			Status: missing,
			Detail: program + " not found on PATH",
		}
	}
	return CheckItem{Label: label, Status: StatusPass, Detail: path}
}
