package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func statsCommand() *cli.Command {
	var cfg config

	flags := globalFlags(&cfg)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, extensionFlags(&cfg)...)

	return &cli.Command{
		Name:  "stats",
		Usage: "Show statistics about stored knowledge and usage",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggerContext(ctx)

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.registry.Execute(ctx, "get_statistics", map[string]any{})
			if err != nil {
				return goerr.Wrap(err, "failed to collect statistics")
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to render statistics")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", out)
			return nil
		},
	}
}
