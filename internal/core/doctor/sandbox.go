package doctor

import (
	"context"
	"fmt"

	"github.com/colonyops/refinery/internal/core/discovery"
	"github.com/colonyops/refinery/internal/core/sandbox"
)

// SandboxCheck verifies that the sandbox root opens and reports how many
// files a run over the whole sandbox would pick up.
type SandboxCheck struct {
	root    string
	ext     string
	exclude []string
}

// NewSandboxCheck creates a sandbox check.
func NewSandboxCheck(root, ext string, exclude []string) *SandboxCheck {
	return &SandboxCheck{root: root, ext: ext, exclude: exclude}
}

func (c *SandboxCheck) Name() string {
	return "Sandbox"
}

func (c *SandboxCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	sb, err := sandbox.New(c.root)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:   c.root,
			Status:  StatusFail,
			Detail:  err.Error(),
			Fixable: true,
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "root",
		Status: StatusPass,
		Detail: sb.Root(),
	})

	files, err := discovery.Discover(sb, discovery.Target{Path: ".", FileExt: c.ext, Exclude: c.exclude})
	switch {
	case err != nil:
		result.Items = append(result.Items, CheckItem{
			Label:  "discovery",
			Status: StatusFail,
			Detail: err.Error(),
		})
	case len(files) == 0:
		result.Items = append(result.Items, CheckItem{
			Label:  "discovery",
			Status: StatusWarn,
			Detail: fmt.Sprintf("no %s files found", c.ext),
		})
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "discovery",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d %s files", len(files), c.ext),
		})
	}

	return result
}
