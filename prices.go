package cgtcalc

import (
	"github.com/etnz/cgtcalc/date"
	"github.com/shopspring/decimal"
)

// InitialPrices holds per-unit market prices used for acquisitions with no
// cash settlement (stock vesting and spin-offs) that carry no explicit price.
type InitialPrices struct {
	prices map[date.Date]map[string]decimal.Decimal
}

// NewInitialPrices creates an empty table.
func NewInitialPrices() *InitialPrices {
	return &InitialPrices{prices: make(map[date.Date]map[string]decimal.Decimal)}
}

// Add records the price of a symbol on a date, in the reporting currency.
func (p *InitialPrices) Add(on date.Date, symbol string, price decimal.Decimal) {
	if p.prices[on] == nil {
		p.prices[on] = make(map[string]decimal.Decimal)
	}
	p.prices[on][symbol] = price
}

// Get returns the per-unit price for (date, symbol), in the currency of the
// transaction that needs it. A missing price is fatal: a vesting without a
// price cannot enter the pool.
func (p *InitialPrices) Get(on date.Date, symbol string) (decimal.Decimal, error) {
	price, ok := p.prices[on][symbol]
	if !ok {
		return decimal.Zero, &InitialPriceMissingError{Symbol: symbol, Date: on}
	}
	return price, nil
}
