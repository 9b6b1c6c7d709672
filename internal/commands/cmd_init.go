package commands

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	initcmd "github.com/colonyops/refinery/internal/commands/init"
)

type InitCmd struct {
	flags *Flags
	yes   bool
	force bool
}

func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Create a refinery configuration with an interactive wizard",
		UsageText: "refinery init [options]",
		Description: `Writes a config file (refinery.yaml by default, or --config) after asking
for the sandbox directory, file extension, iteration budget and agents.

Use --yes to accept all defaults without prompts.
Use --force to overwrite existing configuration; a .bak copy is kept.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "yes",
				Aliases:     []string{"y"},
				Usage:       "accept defaults without prompting",
				Destination: &cmd.yes,
			},
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "overwrite existing configuration",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *InitCmd) run(ctx context.Context, c *cli.Command) error {
	wizard := initcmd.NewWizard(initcmd.WizardOptions{
		ConfigPath:  cmd.flags.ConfigPath,
		Yes:         cmd.yes,
		Force:       cmd.force,
		Interactive: term.IsTerminal(int(os.Stdin.Fd())),
		Out:         c.Root().ErrWriter,
	})
	return wizard.Run(ctx)
}
