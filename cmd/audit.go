package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cgtcalc/renderer"
	"github.com/google/subcommands"
)

// auditCmd holds the flags for the 'audit' subcommand.
type auditCmd struct {
	runOptions
	config string
}

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "print the full calculation trail for a tax year" }
func (*auditCmd) Usage() string {
	return `cgt audit [-year <year>] [-transactions <file>] [-rates <file>] [-prices <file>]

  Prints, day by day, every acquisition and disposal of the tax year with the
  quantity slices matched under each share matching rule. This is the detail
  behind the figures of 'cgt calculate'.

`
}

func (c *auditCmd) SetFlags(f *flag.FlagSet) {
	c.runOptions.setFlags(f)
	f.StringVar(&c.config, "config", "", "Config file (YAML or JSON), overrides the input flags")
}

func (c *auditCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	printMarkdown(renderer.AuditMarkdown(report))
	return subcommands.ExitSuccess
}
