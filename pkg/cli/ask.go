package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/kotae/pkg/model"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

func askCommand() *cli.Command {
	var (
		cfg         config
		profilePath string
		showTrace   bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "profile",
			Usage:       "Path to a YAML personalization profile",
			Sources:     cli.EnvVars("KOTAE_PROFILE"),
			Destination: &profilePath,
		},
		&cli.BoolFlag{
			Name:        "trace",
			Usage:       "Print the per-stage reasoning trace",
			Destination: &showTrace,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)
	flags = append(flags, extensionFlags(&cfg)...)

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask a question, or start an interactive session",
		ArgsUsage: "[question]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.loggerContext(ctx)

			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}

			rt, err := cfg.newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.close()

			w := c.Root().Writer

			if question := strings.TrimSpace(strings.Join(c.Args().Slice(), " ")); question != "" {
				return askOnce(ctx, rt, w, question, profile, showTrace)
			}

			return askLoop(ctx, rt, w, profile, showTrace)
		},
	}
}

// loadProfile reads a personalization profile from a YAML file. An empty
// path means no profile.
func loadProfile(path string) (*model.Profile, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read profile file", goerr.V("path", path))
	}

	var profile model.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, goerr.Wrap(err, "failed to parse profile file", goerr.V("path", path))
	}
	return &profile, nil
}

func askOnce(ctx context.Context, rt *runtime, w io.Writer, question string, profile *model.Profile, showTrace bool) error {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(os.Stderr), spinner.WithSuffix(" thinking..."))
	sp.Start()
	response, err := rt.pipeline.Execute(ctx, question, profile)
	sp.Stop()
	if err != nil {
		return goerr.Wrap(err, "failed to process query")
	}

	printResponse(w, response, showTrace)
	return nil
}

func askLoop(ctx context.Context, rt *runtime, w io.Writer, profile *model.Profile, showTrace bool) error {
	rl, err := readline.New("> ")
	if err != nil {
		return goerr.Wrap(err, "failed to initialize prompt")
	}
	defer rl.Close()

	fmt.Fprintln(w, "Interactive session started. Type 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			break
		}

		question := strings.TrimSpace(line)
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		if err := askOnce(ctx, rt, w, question, profile, showTrace); err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
		}
	}

	fmt.Fprintln(w, "Session ended.")
	return nil
}

func printResponse(w io.Writer, response *model.Response, showTrace bool) {
	fmt.Fprintf(w, "\n%s\n\n", response.Answer)
	fmt.Fprintf(w, "  strategy:   %s\n", response.Strategy)
	fmt.Fprintf(w, "  confidence: %.0f%%\n", response.Confidence)
	if len(response.Sources) > 0 {
		fmt.Fprintf(w, "  sources:    %s\n", strings.Join(response.Sources, ", "))
	}

	if showTrace {
		fmt.Fprintln(w, "\n  reasoning:")
		for _, stage := range []string{"perception", "recall", "decision_1", "action_1", "decision_2", "action_2", "decision_3", "action_3"} {
			steps, ok := response.ReasoningFlow[stage]
			if !ok {
				continue
			}
			fmt.Fprintf(w, "    [%s]\n", stage)
			for _, step := range steps {
				fmt.Fprintf(w, "      %s\n", step)
			}
		}
	}
}
