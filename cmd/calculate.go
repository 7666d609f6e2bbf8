package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cgtcalc/renderer"
	"github.com/google/subcommands"
)

// calculateCmd holds the flags for the 'calculate' subcommand.
type calculateCmd struct {
	runOptions
	config string
}

func (*calculateCmd) Name() string     { return "calculate" }
func (*calculateCmd) Synopsis() string { return "compute the capital gains report for a tax year" }
func (*calculateCmd) Usage() string {
	return `cgt calculate [-year <year>] [-transactions <file>] [-rates <file>] [-prices <file>]

  Computes the UK capital gains report for the tax year: disposals matched
  under the HMRC share matching rules, total gain, loss and taxable gain.

Usage Examples:
# Report on tax year 2023/2024 from the default transactions.csv.
$ cgt calculate -year 2023

`
}

func (c *calculateCmd) SetFlags(f *flag.FlagSet) {
	c.runOptions.setFlags(f)
	f.StringVar(&c.config, "config", "", "Config file (YAML or JSON), overrides the input flags")
}

func (c *calculateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	printMarkdown(renderer.ReportMarkdown(report))
	return subcommands.ExitSuccess
}
