package refinery

import (
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/colonyops/refinery/internal/core/config"
	"github.com/colonyops/refinery/internal/core/discovery"
)

// TargetSpec describes one run: what to process and how far to go.
type TargetSpec struct {
	Path          string   // sandbox-relative file or directory
	FileExt       string   // extension filter for directory targets, e.g. ".py"
	MaxIterations int      // review rounds allowed per file
	DryRun        bool     // review only, never invoke the rewriter
	Exclude       []string // doublestar patterns matched against base names
}

// Validate checks the spec for values the controller cannot work with.
func (s TargetSpec) Validate() error {
	var errs criterio.FieldErrorsBuilder

	if s.Path == "" {
		errs = errs.Append("target", fmt.Errorf("cannot be empty"))
	}
	if s.MaxIterations < 1 {
		errs = errs.Append("max_iterations", fmt.Errorf("must be greater than 0, got %d", s.MaxIterations))
	}
	if err := config.FileExt(s.FileExt); err != nil {
		errs = errs.Append("file_ext", err)
	}

	return errs.ToError()
}

func (s TargetSpec) discoveryTarget() discovery.Target {
	return discovery.Target{
		Path:    s.Path,
		FileExt: s.FileExt,
		Exclude: s.Exclude,
	}
}
