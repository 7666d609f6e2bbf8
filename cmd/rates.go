package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cgtcalc"
	"github.com/etnz/cgtcalc/date"
	"github.com/google/subcommands"
)

// ratesCmd holds the flags for the 'rates' subcommand.
type ratesCmd struct {
	rates string
	month string
}

func (*ratesCmd) Name() string     { return "rates" }
func (*ratesCmd) Synopsis() string { return "fetch HMRC monthly exchange rates" }
func (*ratesCmd) Usage() string {
	return `cgt rates -month <YYYY-MM-DD> [-rates <file>]

  Fetches the official HMRC monthly exchange rates for the month containing
  the given date and records them in the rates file.

`
}

func (c *ratesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.rates, "rates", "exchange_rates.csv", "HMRC monthly exchange rates file")
	f.StringVar(&c.month, "month", date.Today().String(), "Any date within the month to fetch")
}

func (c *ratesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := date.Parse(c.month)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing month: %v\n", err)
		return subcommands.ExitUsageError
	}

	table, err := cgtcalc.ReadExchangeRates(c.rates)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading exchange rates: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := table.FetchMonthlyRates(cgtcalc.DailyClient(), on.StartOfMonth()); err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching rates: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := saveRates(c.rates, table); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing rates file %q: %v\n", c.rates, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Recorded HMRC rates for %s in %s\n", on.StartOfMonth(), c.rates)
	return subcommands.ExitSuccess
}
