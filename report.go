package cgtcalc

import (
	"fmt"
	"strings"
)

// CapitalGainsReport is the outcome of a full calculation run: the tax year
// totals, the open positions at year end, and the complete audit trail.
//
// CapitalLoss is negative or zero. Allowance is nil when no annual exempt
// amount is known for the year; the report is still valid, only taxable gain
// is unavailable.
type CapitalGainsReport struct {
	TaxYear          TaxYear
	Portfolio        []PortfolioEntry
	DisposalCount    int
	DisposalProceeds Money
	AllowableCosts   Money
	CapitalGain      Money
	CapitalLoss      Money
	Allowance        *Money

	Dividends       Money
	DividendTax     Money
	DividendRecords []Dividend
	Interest        Money
	ExcessIncome    Money

	CalculationLog CalculationLog
}

// TotalGain is the net chargeable gain: gains plus losses.
func (r *CapitalGainsReport) TotalGain() Money {
	return r.CapitalGain.Add(r.CapitalLoss)
}

// TaxableGain is the net gain after the annual exempt amount, floored at
// zero. It returns false when the allowance for the year is unknown.
func (r *CapitalGainsReport) TaxableGain() (Money, bool) {
	if r.Allowance == nil {
		return GBP(0), false
	}
	taxable := r.TotalGain().Sub(*r.Allowance)
	if taxable.IsNegative() {
		return GBP(0), true
	}
	return taxable, true
}

// aggregate derives the report totals from the calculation log. Every sell
// event contributes one disposal: its proceeds are the sum of the entry
// amounts and its gain the penny-rounded sum of the entry gains.
func (r *CapitalGainsReport) aggregate() {
	proceeds, costs, gains, losses := GBP(0), GBP(0), GBP(0), GBP(0)
	count := 0
	for _, events := range r.CalculationLog {
		for event, entries := range events {
			if !strings.HasPrefix(event, "sell$") {
				continue
			}
			eventProceeds, eventGain := GBP(0), GBP(0)
			for _, e := range entries {
				eventProceeds = eventProceeds.Add(e.Amount)
				eventGain = eventGain.Add(e.Gain)
			}
			eventGain = eventGain.Round(2)
			count++
			proceeds = proceeds.Add(eventProceeds)
			costs = costs.Add(eventProceeds.Sub(eventGain))
			if eventGain.IsPositive() {
				gains = gains.Add(eventGain)
			} else {
				losses = losses.Add(eventGain)
			}
		}
	}
	r.DisposalCount = count
	r.DisposalProceeds = proceeds.Round(2)
	r.AllowableCosts = costs.Round(2)
	r.CapitalGain = gains.Round(2)
	r.CapitalLoss = losses.Round(2)
}

func (r *CapitalGainsReport) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Portfolio at the end of %d/%d tax year:\n", r.TaxYear, r.TaxYear+1)
	for _, entry := range r.Portfolio {
		fmt.Fprintf(&sb, "%s\n", entry)
	}
	fmt.Fprintf(&sb, "For tax year %d/%d:\n", r.TaxYear, r.TaxYear+1)
	fmt.Fprintf(&sb, "Number of disposals: %d\n", r.DisposalCount)
	fmt.Fprintf(&sb, "Disposal proceeds: %s\n", r.DisposalProceeds)
	fmt.Fprintf(&sb, "Allowable costs: %s\n", r.AllowableCosts)
	fmt.Fprintf(&sb, "Capital gain: %s\n", r.CapitalGain)
	fmt.Fprintf(&sb, "Capital loss: %s\n", r.CapitalLoss.Abs())
	fmt.Fprintf(&sb, "Total capital gain: %s\n", r.TotalGain())
	if taxable, ok := r.TaxableGain(); ok {
		fmt.Fprintf(&sb, "Taxable capital gain: %s\n", taxable)
	} else {
		fmt.Fprintf(&sb, "WARNING: no allowance for tax year %d/%d\n", r.TaxYear, r.TaxYear+1)
	}
	return sb.String()
}
