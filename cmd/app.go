// Package cmd implements the CLI application to compute UK capital gains.
package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/etnz/cgtcalc"
	"github.com/etnz/cgtcalc/date"
	"github.com/google/subcommands"
)

// Commands lists the subcommands of the application.
// A main package will call Register() on each and Execute() on the user-selected one.
var Commands = []subcommands.Command{
	&calculateCmd{},
	&auditCmd{},
	&ratesCmd{},
	&assistCmd{},
}

// runOptions gathers everything a calculation run needs, from flags or from
// a config file.
type runOptions struct {
	year         int
	transactions string
	rates        string
	prices       string
	renames      map[string]string
	allowance    float64
	fetchRates   bool
	fetchPrices  bool
	noChecks     bool
}

// setFlags registers the options shared by the calculation commands.
func (o *runOptions) setFlags(f *flag.FlagSet) {
	f.IntVar(&o.year, "year", int(cgtcalc.TaxYearOf(date.Today()))-1, "Tax year to report on, by its starting calendar year")
	f.StringVar(&o.transactions, "transactions", "transactions.csv", "Broker transactions file (raw CSV format)")
	f.StringVar(&o.rates, "rates", "exchange_rates.csv", "HMRC monthly exchange rates file")
	f.StringVar(&o.prices, "prices", "", "Initial prices file for vestings and spin-offs")
	f.Float64Var(&o.allowance, "allowance", 0, "Override the annual exempt amount, in GBP")
	f.BoolVar(&o.fetchRates, "fetch-rates", false, "Fetch missing monthly rates from HMRC and update the rates file")
	f.BoolVar(&o.fetchPrices, "fetch-prices", false, "Fetch current market prices and report unrealized gains")
	f.BoolVar(&o.noChecks, "no-checks", false, "Disable the engine consistency checks")
}

// apply merges a config file into the options. Flags left at their defaults
// yield to the file.
func (o *runOptions) applyConfig(path string) error {
	cfg, err := cgtcalc.LoadConfig(path)
	if err != nil {
		return err
	}
	o.year = cfg.TaxYear
	o.transactions = cfg.Inputs.Transactions
	if cfg.Inputs.ExchangeRates != "" {
		o.rates = cfg.Inputs.ExchangeRates
	}
	if cfg.Inputs.InitialPrices != "" {
		o.prices = cfg.Inputs.InitialPrices
	}
	o.renames = cfg.TickerRenames
	if o.allowance == 0 {
		o.allowance = cfg.Allowance
	}
	o.noChecks = o.noChecks || cfg.NoConsistencyChecks
	o.fetchPrices = o.fetchPrices || cfg.FetchPrices
	return nil
}

// run loads the inputs and computes the report.
func run(o runOptions) (*cgtcalc.CapitalGainsReport, error) {
	transactions, err := cgtcalc.ReadRawTransactions(o.transactions)
	if err != nil {
		return nil, fmt.Errorf("cannot load transactions: %w", err)
	}
	cgtcalc.SortTransactions(transactions)

	table, err := cgtcalc.ReadExchangeRates(o.rates)
	if err != nil {
		return nil, fmt.Errorf("cannot load exchange rates: %w", err)
	}
	if o.fetchRates {
		if err := fetchMissingRates(table, transactions); err != nil {
			return nil, err
		}
		if o.rates != "" {
			if err := saveRates(o.rates, table); err != nil {
				return nil, err
			}
		}
	}
	converter := cgtcalc.NewCurrencyConverter(table)

	prices := cgtcalc.NewInitialPrices()
	if o.prices != "" {
		if prices, err = cgtcalc.ReadInitialPrices(o.prices); err != nil {
			return nil, fmt.Errorf("cannot load initial prices: %w", err)
		}
	}

	var opts []cgtcalc.Option
	if o.allowance > 0 {
		opts = append(opts, cgtcalc.WithAllowance(cgtcalc.GBP(o.allowance)))
	}
	if len(o.renames) > 0 {
		opts = append(opts, cgtcalc.WithTickerRenames(o.renames))
	}
	if o.noChecks {
		opts = append(opts, cgtcalc.WithoutConsistencyChecks())
	}
	if o.fetchPrices {
		opts = append(opts, cgtcalc.WithPriceProvider(cgtcalc.NewYahooQuotes(converter)))
	}

	calculator := cgtcalc.NewCalculator(cgtcalc.TaxYear(o.year), converter, prices, opts...)
	acquisitions, disposals, err := calculator.Normalize(transactions)
	if err != nil {
		return nil, err
	}
	return calculator.Calculate(acquisitions, disposals)
}

// fetchMissingRates downloads the HMRC monthly rates for every month a
// non-GBP transaction needs and the table does not cover yet.
func fetchMissingRates(table cgtcalc.RateTable, transactions []cgtcalc.BrokerTransaction) error {
	client := cgtcalc.DailyClient()
	converter := cgtcalc.NewCurrencyConverter(table)
	fetched := map[date.Date]bool{}
	for _, tx := range transactions {
		if tx.Currency == "" || tx.Currency == cgtcalc.UKCurrency {
			continue
		}
		month := tx.Date.StartOfMonth()
		if fetched[month] {
			continue
		}
		if _, err := converter.Rate(tx.Currency, tx.Date); err == nil {
			continue
		}
		if err := table.FetchMonthlyRates(client, month); err != nil {
			return fmt.Errorf("cannot fetch rates for %s: %w", month, err)
		}
		fetched[month] = true
	}
	return nil
}

func saveRates(path string, table cgtcalc.RateTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return cgtcalc.WriteExchangeRates(f, table)
}
