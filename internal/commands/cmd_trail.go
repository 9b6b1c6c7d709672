package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/colonyops/refinery/internal/app"
	"github.com/colonyops/refinery/internal/core/styles"
	"github.com/colonyops/refinery/internal/core/trail"
	"github.com/colonyops/refinery/pkg/iojson"
)

type TrailCmd struct {
	flags *Flags
	app   *app.App

	format string
	file   string
	runID  string
	id     string
	limit  int
}

// NewTrailCmd creates a new trail command
func NewTrailCmd(flags *Flags, app *app.App) *TrailCmd {
	return &TrailCmd{flags: flags, app: app}
}

// Register adds the trail command to the application
func (cmd *TrailCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "trail",
		Usage:     "Show the audit trail of past runs",
		UsageText: "refinery trail [options]",
		Description: `Lists trail records oldest first. Filter by the file a record is about or by
run ID, and keep only the newest --limit records. --id shows one record in
full, without truncating its input and output summaries.

Markdown output is rendered for the terminal; when stdout is not a terminal
the raw markdown is printed instead.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json, markdown)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "only records about this sandbox-relative file",
				Destination: &cmd.file,
			},
			&cli.StringFlag{
				Name:        "run",
				Usage:       "only records from this run ID",
				Destination: &cmd.runID,
			},
			&cli.StringFlag{
				Name:        "id",
				Usage:       "show the single record with this ID",
				Destination: &cmd.id,
			},
			&cli.IntFlag{
				Name:        "limit",
				Aliases:     []string{"n"},
				Usage:       "keep only the newest N records (0 for all)",
				Destination: &cmd.limit,
			},
		},
		ShellComplete: TrailFileCompleter(cmd.app),
		Action:        cmd.run,
	})

	return app
}

func (cmd *TrailCmd) run(ctx context.Context, c *cli.Command) error {
	if cmd.limit < 0 {
		return fmt.Errorf("invalid --limit %d: must not be negative", cmd.limit)
	}

	if cmd.id != "" && (cmd.file != "" || cmd.runID != "" || cmd.limit != 0) {
		return fmt.Errorf("--id cannot be combined with --file, --run or --limit")
	}

	store, err := cmd.app.Trail()
	if err != nil {
		return err
	}

	if cmd.id != "" {
		return cmd.show(ctx, c.Root().Writer, store)
	}

	records, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("list trail: %w", err)
	}
	records = trail.Filter{File: cmd.file, RunID: cmd.runID, Limit: cmd.limit}.Apply(records)

	out := c.Root().Writer

	switch cmd.format {
	case "json":
		return iojson.WriteWith(out, os.Stderr, records)
	case "markdown":
		return writeMarkdown(out, records)
	case "text":
		writeTrailTable(out, records)
		return nil
	default:
		return fmt.Errorf("invalid --format %q: must be text, json or markdown", cmd.format)
	}
}

func (cmd *TrailCmd) show(ctx context.Context, out io.Writer, store trail.Reader) error {
	rec, err := store.Get(ctx, cmd.id)
	if err != nil {
		return fmt.Errorf("get trail record %s: %w", cmd.id, err)
	}

	switch cmd.format {
	case "json":
		return iojson.WriteWith(out, os.Stderr, rec)
	case "markdown":
		return writeMarkdown(out, []trail.Record{rec})
	case "text":
		writeTrailRecord(out, rec)
		return nil
	default:
		return fmt.Errorf("invalid --format %q: must be text, json or markdown", cmd.format)
	}
}

// writeTrailRecord prints every field of rec, one per line.
func writeTrailRecord(out io.Writer, rec trail.Record) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fields := [][2]string{
		{"ID", rec.ID},
		{"Run", dash(rec.RunID)},
		{"Time", rec.Timestamp.Format("2006-01-02 15:04:05")},
		{"Agent", string(rec.Agent)},
		{"Model", rec.Model},
		{"Action", string(rec.Action)},
		{"File", dash(rec.File)},
		{"Iteration", fmt.Sprint(rec.Iteration)},
		{"Decision", dash(rec.Decision)},
		{"Artifact", dash(rec.Artifact)},
		{"Status", string(rec.Status)},
		{"Input", dash(rec.Input)},
		{"Output", dash(rec.Output)},
	}
	for _, f := range fields {
		_, _ = fmt.Fprintf(w, "%s:\t%s\n", f[0], f[1])
	}
	_ = w.Flush()
}

func writeTrailTable(out io.Writer, records []trail.Record) {
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "No trail records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tAGENT\tACTION\tFILE\tITER\tSTATUS\tOUTPUT")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Agent, r.Action, dash(r.File), r.Iteration, r.Status, oneLine(r.Output, 60))
	}
	_ = w.Flush()
}

// trailMarkdown renders records as a markdown document, one table per run.
func trailMarkdown(records []trail.Record) string {
	var b strings.Builder
	b.WriteString("# Refinery trail\n")

	if len(records) == 0 {
		b.WriteString("\n_No trail records found._\n")
		return b.String()
	}

	run := "\x00"
	for _, r := range records {
		if r.RunID != run {
			run = r.RunID
			fmt.Fprintf(&b, "\n## Run `%s`\n\n", dash(run))
			b.WriteString("| Time | Agent | Action | File | Iter | Decision | Status | Output |\n")
			b.WriteString("|---|---|---|---|---|---|---|---|\n")
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %s | %s | %s |\n",
			r.Timestamp.Format("15:04:05"), r.Agent, r.Action, cell(r.File), r.Iteration,
			cell(r.Decision), r.Status, cell(oneLine(r.Output, 80)))
	}
	return b.String()
}

func writeMarkdown(out io.Writer, records []trail.Record) error {
	md := trailMarkdown(records)

	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(out, md)
		return err
	}

	width := 100
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}

	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render trail: %w", err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func cell(s string) string {
	return strings.ReplaceAll(dash(s), "|", `\|`)
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit-1]) + "…"
	}
	return s
}
