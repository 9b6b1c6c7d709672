package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/refinery/internal/app"
	"github.com/colonyops/refinery/internal/core/doctor"
	"github.com/colonyops/refinery/internal/core/styles"
	"github.com/colonyops/refinery/pkg/iojson"
)

type DoctorCmd struct {
	flags  *Flags
	app    *app.App
	format string
}

func NewDoctorCmd(flags *Flags, app *app.App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: app}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your refinery setup",
		UsageText:   "refinery doctor [options]",
		Description: "Runs diagnostic checks on configuration, the sandbox, external tools and model provider keys.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	rep := cmd.app.RunChecks(ctx, cmd.flags.ConfigPath)

	switch cmd.format {
	case "json":
		if err := iojson.WriteWith(c.Root().Writer, os.Stderr, doctorJSON{Healthy: rep.Healthy(), Report: rep}); err != nil {
			return err
		}
	case "text":
		cmd.outputText(os.Stderr, rep)
	default:
		return fmt.Errorf("invalid --format %q: must be text or json", cmd.format)
	}

	if !rep.Healthy() {
		return cli.Exit("", 1)
	}
	return nil
}

type doctorJSON struct {
	Healthy bool `json:"healthy"`
	doctor.Report
}

func (cmd *DoctorCmd) outputText(w io.Writer, rep doctor.Report) {
	divider := styles.TextMutedStyle.Render(strings.Repeat("─", 40))

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.TextPrimaryBoldStyle.Render("Refinery Doctor"))
	_, _ = fmt.Fprintln(w, divider)
	_, _ = fmt.Fprintln(w)

	for _, result := range rep.Checks {
		_, _ = fmt.Fprintf(w, "%s %s\n", statusIcon(result.Status()), styles.TextForegroundBoldStyle.Render(result.Name))

		for _, item := range result.Items {
			var detail string
			if item.Detail != "" {
				detail = " " + styles.TextMutedStyle.Render(item.Detail)
			}

			_, _ = fmt.Fprintf(w, "  %s %s%s\n", statusIcon(item.Status), item.Label, detail)
		}

		_, _ = fmt.Fprintln(w)
	}

	summary := fmt.Sprintf("%s  %s  %s",
		styles.TextSuccessStyle.Render(fmt.Sprintf("%d passed", rep.Passed)),
		styles.TextWarningStyle.Render(fmt.Sprintf("%d warnings", rep.Warned)),
		styles.TextErrorStyle.Render(fmt.Sprintf("%d failed", rep.Failed)),
	)
	_, _ = fmt.Fprintln(w, summary)

	if rep.Fixable > 0 {
		_, _ = fmt.Fprintln(w)
		hint := styles.TextMutedStyle.Render(fmt.Sprintf("Run 'refinery init' or create %s to fix %d issue(s)", cmd.app.Config.SandboxRoot, rep.Fixable))
		_, _ = fmt.Fprintln(w, hint)
	}
}

func statusIcon(s doctor.Status) string {
	switch s {
	case doctor.StatusWarn:
		return styles.TextWarningStyle.Render(styles.IconWarn)
	case doctor.StatusFail:
		return styles.TextErrorStyle.Render(styles.IconFail)
	default:
		return styles.TextSuccessStyle.Render(styles.IconPass)
	}
}
