package cgtcalc

import (
	"time"

	"github.com/etnz/cgtcalc/date"
)

// TaxYear identifies a UK tax year by its starting calendar year: tax year
// 2020 runs from 6 April 2020 to 5 April 2021.
type TaxYear int

// Start returns 6 April of the starting year.
func (y TaxYear) Start() date.Date { return date.New(int(y), time.April, 6) }

// End returns 5 April of the following year.
func (y TaxYear) End() date.Date { return date.New(int(y)+1, time.April, 5) }

// Contains reports whether d falls within the tax year, boundaries included.
func (y TaxYear) Contains(d date.Date) bool {
	return !d.Before(y.Start()) && !d.After(y.End())
}

// TaxYearOf returns the tax year containing d.
func TaxYearOf(d date.Date) TaxYear {
	y := TaxYear(d.Year())
	if d.Before(y.Start()) {
		y--
	}
	return y
}

// Annual exempt amount for capital gains.
// https://www.gov.uk/guidance/capital-gains-tax-rates-and-allowances
var capitalGainsAllowances = map[TaxYear]int64{
	2014: 11000,
	2015: 11100,
	2016: 11100,
	2017: 11300,
	2018: 11700,
	2019: 12000,
	2020: 12300,
	2021: 12300,
	2022: 12300,
	2023: 6000,
	2024: 3000,
	2025: 3000,
}

// Annual dividend allowance. https://www.gov.uk/tax-on-dividends
var dividendAllowances = map[TaxYear]int64{
	2019: 2000,
	2020: 2000,
	2021: 2000,
	2022: 2000,
	2023: 1000,
	2024: 500,
	2025: 500,
}

// Allowance returns the capital gains tax-free allowance for the year.
// Unknown years return false: the report flags it instead of failing.
func (y TaxYear) Allowance() (Money, bool) {
	v, ok := capitalGainsAllowances[y]
	if !ok {
		return Money{}, false
	}
	return GBP(v), true
}

// DividendAllowance returns the dividend allowance for the year.
func (y TaxYear) DividendAllowance() (Money, bool) {
	v, ok := dividendAllowances[y]
	if !ok {
		return Money{}, false
	}
	return GBP(v), true
}
