package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func storeCommand() *cli.Command {
	var (
		cfg   config
		title string
		url   string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Document title",
			Required:    true,
			Destination: &title,
		},
		&cli.StringFlag{
			Name:        "url",
			Usage:       "Source URL of the document",
			Destination: &url,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, extensionFlags(&cfg)...)

	return &cli.Command{
		Name:      "store",
		Usage:     "Store a document for retrieval (body from file or stdin)",
		ArgsUsage: "[file]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggerContext(ctx)

			var body []byte
			var err error
			if path := c.Args().First(); path != "" {
				body, err = os.ReadFile(path)
				if err != nil {
					return goerr.Wrap(err, "failed to read document file", goerr.V("path", path))
				}
			} else {
				body, err = io.ReadAll(os.Stdin)
				if err != nil {
					return goerr.Wrap(err, "failed to read document from stdin")
				}
			}
			if len(body) == 0 {
				return goerr.New("document body is empty")
			}

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			// Goes through the tool so the ingest policy applies
			result, err := rt.registry.Execute(ctx, "store_document", map[string]any{
				"title":   title,
				"content": string(body),
				"url":     url,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to store document")
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to render result")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", out)
			return nil
		},
	}
}
