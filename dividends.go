package cgtcalc

import (
	"log"

	"github.com/etnz/cgtcalc/date"
	"github.com/shopspring/decimal"
)

// TaxTreaty describes the double-taxation treaty applying to dividends paid
// from a given country.
type TaxTreaty struct {
	Country     string
	CountryRate decimal.Decimal // withholding rate applied at source
	TreatyRate  decimal.Decimal // rate creditable against UK tax
}

// Double taxation treaty rates keyed by the dividend currency.
// https://www.gov.uk/hmrc-internal-manuals/double-taxation-relief
var doubleTaxationRules = map[string]TaxTreaty{
	"GBP": {Country: "UK", CountryRate: decimal.Zero, TreatyRate: decimal.Zero},
	"USD": {Country: "USA", CountryRate: decimal.RequireFromString("0.15"), TreatyRate: decimal.RequireFromString("0.15")},
	"PLN": {Country: "Poland", CountryRate: decimal.RequireFromString("0.19"), TreatyRate: decimal.RequireFromString("0.1")},
}

// Dividend is one dividend payment with its withheld tax and, when it could
// be determined, the treaty that applies to it.
type Dividend struct {
	Date   date.Date
	Symbol string
	Amount Money // gross amount, reporting currency
	Tax    Money // tax withheld, reporting currency, >= 0
	Treaty *TaxTreaty
}

// approxEqual reports whether two amounts differ by less than a penny.
// Brokers round withheld tax in undocumented ways.
func approxEqual(a, b Money) bool {
	return a.Sub(b).Abs().LessThan(GBP(decimal.RequireFromString("0.01")))
}

// processDividend builds a Dividend, resolving the double-taxation treaty
// from the payment currency and warning when the withheld tax does not match
// the treaty rate.
func processDividend(on date.Date, symbol string, currency string, amount, tax Money) Dividend {
	treaty, ok := doubleTaxationRules[currency]
	if !ok {
		log.Printf("WARNING: taxation treaty for %s currency is missing (ticker: %s), double taxation rules cannot be determined", currency, symbol)
		return Dividend{Date: on, Symbol: symbol, Amount: amount, Tax: tax}
	}
	expected := amount.Mul(Q(treaty.CountryRate))
	if !tax.IsZero() && !approxEqual(expected, tax) {
		log.Printf("WARNING: withheld tax %s on %s dividend does not match the %s treaty rate (expected %s)",
			tax.Round(2), symbol, treaty.Country, expected.Round(2))
		return Dividend{Date: on, Symbol: symbol, Amount: amount, Tax: tax}
	}
	return Dividend{Date: on, Symbol: symbol, Amount: amount, Tax: tax, Treaty: &treaty}
}
