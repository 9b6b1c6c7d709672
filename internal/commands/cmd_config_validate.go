package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/refinery/internal/core/styles"
	"github.com/colonyops/refinery/pkg/iojson"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:        "validate",
				Usage:       "Validate configuration file",
				UsageText:   "refinery config validate [options]",
				Description: "Validates the configuration file, checking field values, command templates and the sandbox directory.",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

type fieldErrorJSON struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(_ context.Context, c *cli.Command) error {
	err := cmd.flags.Config.ValidateDeep(cmd.flags.ConfigPath)
	fields := fieldErrors(err)

	if cmd.format == "json" {
		out := struct {
			Valid  bool             `json:"valid"`
			Errors []fieldErrorJSON `json:"errors,omitempty"`
		}{
			Valid:  err == nil,
			Errors: fields,
		}
		if werr := iojson.WriteWith(c.Root().Writer, os.Stderr, out); werr != nil {
			return werr
		}
	} else {
		w := c.Root().ErrWriter
		for _, fe := range fields {
			_, _ = fmt.Fprintf(w, "%s %s: %s\n", styles.TextErrorStyle.Render(styles.IconFail), fe.Field, fe.Message)
		}
		if err == nil {
			_, _ = fmt.Fprintln(w, styles.TextSuccessStyle.Render(styles.IconPass+" Configuration is valid"))
		} else {
			_, _ = fmt.Fprintln(w, styles.TextErrorStyle.Render(fmt.Sprintf("%d error(s) found", len(fields))))
		}
	}

	if err != nil {
		return cli.Exit("", 1)
	}
	return nil
}

func fieldErrors(err error) []fieldErrorJSON {
	if err == nil {
		return nil
	}

	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		return []fieldErrorJSON{{Field: "config", Message: err.Error()}}
	}

	out := make([]fieldErrorJSON, 0, len(fe))
	for _, e := range fe {
		out = append(out, fieldErrorJSON{Field: e.Field, Message: e.Err.Error()})
	}
	return out
}
