package cgtcalc

import (
	"fmt"
	"strings"
)

// RuleType names the HMRC share-matching rule that produced a calculation
// entry.
type RuleType string

const (
	Section104      RuleType = "SECTION_104"
	SameDay         RuleType = "SAME_DAY"
	BedAndBreakfast RuleType = "BED_AND_BREAKFAST"
)

// Name returns the rule name with spaces, for reports.
func (r RuleType) Name() string { return strings.ReplaceAll(string(r), "_", " ") }

// CalculationEntry is one immutable step of the audit trail: a quantity slice
// matched under one rule, with the pool snapshot after the mutation.
//
// Amount is the disposal proceeds for the slice when positive, or the
// negative acquisition cost when the entry records an acquisition.
type CalculationEntry struct {
	Rule          RuleType
	Quantity      Quantity
	Amount        Money
	AllowableCost Money
	Fees          Money
	Gain          Money
	NewQuantity   Quantity // pool quantity after this entry
	NewPoolCost   Money    // pool cost after this entry

	// BedAndBreakfastDayIndex is 0 unless the entry was produced by the
	// lookahead rule, in which case it is the day index of the matched
	// future acquisition.
	BedAndBreakfastDayIndex int
}

// newEntry builds a CalculationEntry, enforcing the construction-time
// invariant gain == amount - allowableCost for disposal entries. A violation
// is an engine defect, not bad input, hence the panic.
func newEntry(e CalculationEntry) CalculationEntry {
	if e.Amount.IsPositive() && !e.Gain.Equal(e.Amount.Sub(e.AllowableCost)) {
		panic(fmt.Sprintf("calculation entry gain %s != amount %s - allowable cost %s",
			e.Gain, e.Amount, e.AllowableCost))
	}
	return e
}

func (e CalculationEntry) String() string {
	return fmt.Sprintf("%s, quantity: %s, disposal proceeds: %s, allowable cost: %s, fees: %s, gain: %s",
		e.Rule.Name(), e.Quantity, e.Amount, e.AllowableCost, e.Fees, e.Gain)
}

// CalculationLog is the engine's full audit trail: per day index, per event
// ("buy$SYMBOL" / "sell$SYMBOL"), the ordered calculation entries. Only
// entries within the target tax year are retained.
type CalculationLog map[int]map[string][]CalculationEntry

func (l CalculationLog) add(dayIndex int, event string, entries []CalculationEntry) {
	if len(entries) == 0 {
		return
	}
	if l[dayIndex] == nil {
		l[dayIndex] = make(map[string][]CalculationEntry)
	}
	l[dayIndex][event] = entries
}

// BuyEvent and SellEvent build calculation log event keys.
func BuyEvent(symbol string) string  { return "buy$" + symbol }
func SellEvent(symbol string) string { return "sell$" + symbol }

// Position is the Section 104 pool state of one security: total quantity
// held and total pooled cost.
type Position struct {
	Quantity Quantity
	Cost     Money
}

// Add returns the element-wise sum of two positions.
func (p Position) Add(o Position) Position {
	return Position{Quantity: p.Quantity.Add(o.Quantity), Cost: p.Cost.Add(o.Cost)}
}

// Sub returns the element-wise difference of two positions.
func (p Position) Sub(o Position) Position {
	return Position{Quantity: p.Quantity.Sub(o.Quantity), Cost: p.Cost.Sub(o.Cost)}
}

// PortfolioEntry is one holding of the final report.
type PortfolioEntry struct {
	Symbol   string
	Quantity Quantity
	Cost     Money

	// Unrealized gain at current market price, nil when no price is known.
	Unrealized *Money
}

func (e PortfolioEntry) String() string {
	return fmt.Sprintf("  %s: %s, %s", e.Symbol, e.Quantity.Round(2), e.Cost.Round(2))
}
