package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/cgtcalc/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	runOptions
	config string
}

func (*assistCmd) Name() string { return "assist" }
func (*assistCmd) Synopsis() string {
	return "start an interactive session with the AI tax adviser"
}
func (*assistCmd) Usage() string {
	return `cgt assist [-year <year>] [question...]

  Computes the capital gains report and starts an interactive session with
  an AI adviser that answers questions about it.

`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	c.runOptions.setFlags(f)
	f.StringVar(&c.config, "config", "", "Config file (YAML or JSON), overrides the input flags")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	initialPrompt := ""
	if f.NArg() > 0 {
		initialPrompt = strings.Join(f.Args(), " ")
	}

	if c.config != "" {
		if err := c.applyConfig(c.config); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			return subcommands.ExitUsageError
		}
	}

	report, err := run(c.runOptions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing capital gains: %v\n", err)
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	adviser := agent.NewAdviser(report)
	a := agent.New(os.Stdout, os.Stdin, adviser)

	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
