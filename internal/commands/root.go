package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/colonyops/refinery/internal/app"
)

// NewRoot builds the refinery command tree with its global flags. Hooks
// that open resources are attached by the caller.
func NewRoot(flags *Flags, a *app.App) *cli.Command {
	root := &cli.Command{
		Name:      "refinery",
		Usage:     "Review and repair source files in a sandbox, one bounded loop per file",
		UsageText: "refinery [global options] command [command options]",
		Description: `Refinery submits source files to a reviewer. Files the reviewer rejects go to
a rewriter, which writes a repaired copy, and the copy is reviewed again until
it is accepted or the iteration budget runs out. Every read and write stays
inside the sandbox directory and every decision is appended to the trail.

Run 'refinery init' to create a config, 'refinery doctor' to check the setup
and 'refinery run' to process files.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("REFINERY_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to a JSON log file (defaults to human-readable logs on stderr)",
				Sources:     cli.EnvVars("REFINERY_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("REFINERY_CONFIG"),
				Value:       DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
		},
	}

	root = NewRunCmd(flags, a).Register(root)
	root = NewTrailCmd(flags, a).Register(root)
	root = NewDoctorCmd(flags, a).Register(root)
	root = NewInitCmd(flags).Register(root)
	root = NewConfigValidateCmd(flags).Register(root)

	return root
}
