package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/refinery/internal/app"
)

// TrailFileCompleter returns a ShellCompleteFunc that suggests the files
// mentioned in the trail, for use with `trail --file`.
//
// When the user's last typed argument starts with "-" and is not --file,
// it falls back to the default flag completion behavior.
func TrailFileCompleter(a *app.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' && last != "--file" && last != "-f" {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		store, err := a.Trail()
		if err != nil {
			return
		}
		records, err := store.List(ctx)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		seen := make(map[string]bool)
		for _, r := range records {
			if r.File == "" || seen[r.File] {
				continue
			}
			seen[r.File] = true
			_, _ = fmt.Fprintln(w, r.File)
		}
	}
}
