package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/colonyops/refinery/internal/core/styles"
	"github.com/colonyops/refinery/internal/refinery"
)

// writeReport prints a per-file table and a summary box for a run.
func writeReport(w io.Writer, report refinery.Report) {
	title := styles.TextPrimaryBoldStyle.Render("refinery run") + " " + styles.TextMutedStyle.Render(report.RunID)
	if report.DryRun {
		title += " " + styles.DryRunBadgeStyle.Render("DRY RUN")
	}
	_, _ = fmt.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, styles.DividerStyle.Render(strings.Repeat("─", 60)))

	if len(report.Files) == 0 {
		_, _ = fmt.Fprintln(w, styles.TextMutedStyle.Render("nothing to do: no matching files under "+report.Target))
		return
	}

	fileWidth := len("FILE")
	for _, f := range report.Files {
		fileWidth = max(fileWidth, len(f.Task.OriginalPath))
	}

	_, _ = fmt.Fprintln(w, styles.ColumnHeadStyle.Render(
		fmt.Sprintf("  %-*s  %-24s  %6s  %7s  %s", fileWidth, "FILE", "OUTCOME", "ROUNDS", "REPAIRS", "ARTIFACT"),
	))

	for _, f := range report.Files {
		icon, style := outcomeStyle(f.Outcome)
		outcome := string(f.Outcome)
		if f.Kind != refinery.ErrorKindNone {
			outcome += " (" + string(f.Kind) + ")"
		}

		_, _ = fmt.Fprintf(w, "%s %s  %s  %s  %s  %s\n",
			style.Render(icon),
			styles.FileLabelStyle.Render(fmt.Sprintf("%-*s", fileWidth, f.Task.OriginalPath)),
			style.Render(fmt.Sprintf("%-24s", outcome)),
			styles.IterationStyle.Render(fmt.Sprintf("%6d", f.Reviews)),
			styles.IterationStyle.Render(fmt.Sprintf("%7d", f.Repairs)),
			styles.ArtifactStyle.Render(artifact(f)),
		)
		if f.Err != nil {
			_, _ = fmt.Fprintf(w, "  %s\n", styles.TextErrorStyle.Render(f.Err.Error()))
		}
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, styles.SummaryBoxStyle.Render(summaryLine(report)))
}

func summaryLine(report refinery.Report) string {
	parts := []string{
		styles.TextForegroundBoldStyle.Render(fmt.Sprintf("%d files", len(report.Files))),
		styles.TextSuccessStyle.Render(fmt.Sprintf("%d accepted", report.Accepted)),
		styles.TextWarningStyle.Render(fmt.Sprintf("%d max iterations", report.MaxReached)),
		styles.TextErrorStyle.Render(fmt.Sprintf("%d errors", report.Errors)),
		styles.TextMutedStyle.Render(report.Duration.Round(time.Millisecond).String()),
	}
	if report.Cancelled {
		parts = append(parts, styles.TextErrorStyle.Render("cancelled"))
	}
	return strings.Join(parts, "  ")
}

func outcomeStyle(o refinery.Outcome) (string, lipgloss.Style) {
	switch o {
	case refinery.OutcomeAccepted:
		return styles.IconPass, styles.TextSuccessStyle
	case refinery.OutcomeMaxIterations:
		return styles.IconWarn, styles.TextWarningStyle
	default:
		return styles.IconFail, styles.TextErrorStyle
	}
}

func artifact(f refinery.Result) string {
	if f.Task.CurrentPath == f.Task.OriginalPath {
		return "-"
	}
	return f.Task.CurrentPath
}
