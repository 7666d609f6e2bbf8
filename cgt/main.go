package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/cgtcalc/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// completion describes the CLI for shell completion. Complete() exits the
// process when invoked by the shell, and is a no-op otherwise.
func completion() {
	inputs := map[string]complete.Predictor{
		"year":         predict.Something,
		"transactions": predict.Files("*.csv"),
		"rates":        predict.Files("*.csv"),
		"prices":       predict.Files("*.csv"),
		"config":       predict.Files("*"),
		"fetch-rates":  predict.Nothing,
		"fetch-prices": predict.Nothing,
		"no-checks":    predict.Nothing,
	}
	(&complete.Command{
		Sub: map[string]*complete.Command{
			"calculate": {Flags: inputs},
			"audit":     {Flags: inputs},
			"assist":    {Flags: inputs},
			"rates": {Flags: map[string]complete.Predictor{
				"rates": predict.Files("*.csv"),
				"month": predict.Something,
			}},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}).Complete("cgt")
}

func main() {
	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
