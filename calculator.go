package cgtcalc

import (
	"log"
	"maps"
	"slices"

	"github.com/etnz/cgtcalc/date"
)

// bedAndBreakfastDays is the HMRC lookahead window: a disposal is matched
// against acquisitions of the same security within the next 30 calendar days.
const bedAndBreakfastDays = 30

// processAcquisition folds one day's acquisitions of one security into the
// Section 104 pool. If an earlier disposal claimed part of this purchase
// under the 30-day rule, the claimed shares enter the pool at the cost
// recorded in the claim, not at the purchase price: the purchase cost of
// those shares was already consumed by the disposal.
func (c *Calculator) processAcquisition(acquisitions, claims TransactionLog, pool map[string]Position, symbol string, dayIndex int) ([]CalculationEntry, error) {
	bucket, _ := acquisitions.Get(dayIndex, symbol)
	originalAmount := bucket.Amount
	position := pool[symbol]
	var entries []CalculationEntry

	// A zero quantity bucket is legal (management fees raise the pool cost
	// without adding shares), a negative one is not.
	if bucket.Quantity.IsNegative() {
		return nil, calculationErrorf("negative acquisition quantity %s for %s on %s", bucket.Quantity, symbol, date.FromIndex(dayIndex))
	}
	if !bucket.Amount.IsPositive() {
		return nil, calculationErrorf("non-positive acquisition amount %s for %s on %s", bucket.Amount, symbol, date.FromIndex(dayIndex))
	}

	amount := bucket.Amount
	var claimed TransactionData
	if bucket.Quantity.IsPositive() {
		price := bucket.Amount.Div(bucket.Quantity)
		if claim, ok := claims.Get(dayIndex, symbol); ok {
			claimed = claim
			if claim.Quantity.GreaterThan(bucket.Quantity) {
				return nil, calculationErrorf("claimed quantity %s exceeds acquired quantity %s for %s on %s",
					claim.Quantity, bucket.Quantity, symbol, date.FromIndex(dayIndex))
			}
			amount = amount.Sub(price.Mul(claim.Quantity)).Add(claim.Amount)
			if !amount.IsPositive() {
				return nil, calculationErrorf("non-positive pooled cost %s for %s on %s after claim substitution",
					amount, symbol, date.FromIndex(dayIndex))
			}
			entries = append(entries, newEntry(CalculationEntry{
				Rule:          BedAndBreakfast,
				Quantity:      claim.Quantity,
				Amount:        claim.Amount.Neg(),
				AllowableCost: originalAmount,
				Fees:          claim.Fees,
				NewQuantity:   position.Quantity.Add(claim.Quantity),
				NewPoolCost:   position.Cost.Add(claim.Amount),
			}))
		}
	}
	pool[symbol] = position.Add(Position{Quantity: bucket.Quantity, Cost: amount})
	if bucket.Quantity.Sub(claimed.Quantity).IsPositive() || claimed.Quantity.IsZero() {
		entries = append(entries, newEntry(CalculationEntry{
			Rule:          Section104,
			Quantity:      bucket.Quantity.Sub(claimed.Quantity),
			Amount:        amount.Sub(claimed.Amount).Neg(),
			AllowableCost: originalAmount,
			Fees:          bucket.Fees,
			NewQuantity:   position.Quantity.Add(bucket.Quantity),
			NewPoolCost:   position.Cost.Add(amount),
		}))
	}
	return entries, nil
}

// processDisposal matches one day's disposals of one security against the
// HMRC rules in priority order: same-day acquisitions first, then
// acquisitions within the next 30 days (nearest first), then the Section 104
// pool. It returns the chargeable gain rounded to pennies and the audit
// entries, one per matched slice.
func (c *Calculator) processDisposal(acquisitions, disposals, claims TransactionLog, pool map[string]Position, symbol string, dayIndex int) (Money, []CalculationEntry, error) {
	bucket, _ := disposals.Get(dayIndex, symbol)
	remaining := bucket.Quantity
	proceeds := bucket.Amount
	disposalPrice := bucket.Amount.Div(bucket.Quantity)
	position := pool[symbol]
	if remaining.GreaterThan(position.Quantity) {
		return GBP(0), nil, calculationErrorf("disposing %s shares of %s on %s with only %s held",
			remaining, symbol, date.FromIndex(dayIndex), position.Quantity)
	}
	gain := GBP(0)
	var entries []CalculationEntry

	// Same day rule.
	if sameDay, ok := acquisitions.Get(dayIndex, symbol); ok {
		var claimedQuantity Quantity
		if claim, ok := claims.Get(dayIndex, symbol); ok {
			claimedQuantity = claim.Quantity
		}
		if claimedQuantity.GreaterThan(sameDay.Quantity) {
			return GBP(0), nil, calculationErrorf("claimed quantity %s exceeds acquired quantity %s for %s on %s",
				claimedQuantity, sameDay.Quantity, symbol, date.FromIndex(dayIndex))
		}
		available := MinQuantity(remaining, sameDay.Quantity.Sub(claimedQuantity))
		if available.IsPositive() {
			acquisitionPrice := sameDay.Amount.Div(sameDay.Quantity)
			sliceProceeds := disposalPrice.Mul(available)
			allowable := acquisitionPrice.Mul(available)
			sliceGain := sliceProceeds.Sub(allowable)
			gain = gain.Add(sliceGain)
			remaining = remaining.Sub(available)
			proceeds = proceeds.Sub(sliceProceeds)
			// Same day shares never enter the Section 104 holding.
			position.Quantity = position.Quantity.Sub(available)
			position.Cost = position.Cost.Sub(allowable)
			if position.Quantity.IsZero() && !position.Cost.Round(10).IsZero() {
				return GBP(0), nil, calculationErrorf("cost %s left on an empty %s pool", position.Cost, symbol)
			}
			entries = append(entries, newEntry(CalculationEntry{
				Rule:          SameDay,
				Quantity:      available,
				Amount:        sliceProceeds,
				AllowableCost: allowable,
				Fees:          sameDay.Fees,
				Gain:          sliceGain,
				NewQuantity:   position.Quantity,
				NewPoolCost:   position.Cost,
			}))
		}
	}

	// Bed and breakfast rule, nearest future acquisition first.
	if remaining.IsPositive() {
		for i := 1; i <= bedAndBreakfastDays; i++ {
			searchIndex := dayIndex + i
			acq, ok := acquisitions.Get(searchIndex, symbol)
			if !ok {
				continue
			}
			var claimedQuantity Quantity
			if claim, ok := claims.Get(searchIndex, symbol); ok {
				claimedQuantity = claim.Quantity
			}
			if claimedQuantity.GreaterThan(acq.Quantity) {
				return GBP(0), nil, calculationErrorf("claimed quantity %s exceeds acquired quantity %s for %s on %s",
					claimedQuantity, acq.Quantity, symbol, date.FromIndex(searchIndex))
			}
			// Shares the future day's own disposal will take under the same
			// day rule are not available for matching here.
			var shielded Quantity
			if futureDisposal, ok := disposals.Get(searchIndex, symbol); ok {
				shielded = MinQuantity(futureDisposal.Quantity, acq.Quantity)
			}
			// Fee-only buckets, fully claimed and fully shielded
			// acquisitions cannot match.
			if !acq.Quantity.Sub(claimedQuantity).Sub(shielded).IsPositive() {
				continue
			}
			log.Printf("WARNING: bed and breakfasting %s, disposed on %s and acquired again on %s",
				symbol, date.FromIndex(dayIndex), date.FromIndex(searchIndex))
			available := MinQuantity(remaining, acq.Quantity.Sub(claimedQuantity).Sub(shielded))
			acquisitionPrice := acq.Amount.Div(acq.Quantity)
			sliceProceeds := disposalPrice.Mul(available)
			allowable := acquisitionPrice.Mul(available)
			sliceGain := sliceProceeds.Sub(allowable)
			gain = gain.Add(sliceGain)
			remaining = remaining.Sub(available)
			proceeds = proceeds.Sub(sliceProceeds)
			// The matched shares leave the pool at average cost, and the
			// future acquisition will re-enter them at the same cost.
			delta := position.Cost.Div(position.Quantity).Mul(available)
			position.Quantity = position.Quantity.Sub(available)
			position.Cost = position.Cost.Sub(delta)
			if position.Quantity.IsZero() && !position.Cost.Round(10).IsZero() {
				return GBP(0), nil, calculationErrorf("cost %s left on an empty %s pool", position.Cost, symbol)
			}
			claims.Add(searchIndex, symbol, TransactionData{Quantity: available, Amount: delta, Fees: GBP(0)})
			entries = append(entries, newEntry(CalculationEntry{
				Rule:                    BedAndBreakfast,
				Quantity:                available,
				Amount:                  sliceProceeds,
				AllowableCost:           allowable,
				Fees:                    acq.Fees,
				Gain:                    sliceGain,
				NewQuantity:             position.Quantity,
				NewPoolCost:             position.Cost,
				BedAndBreakfastDayIndex: searchIndex,
			}))
			if !remaining.IsPositive() {
				break
			}
		}
	}

	// Section 104 remainder at average pool cost.
	if remaining.IsPositive() {
		allowable := position.Cost.Mul(remaining).Div(position.Quantity)
		sliceGain := proceeds.Sub(allowable)
		gain = gain.Add(sliceGain)
		position.Quantity = position.Quantity.Sub(remaining)
		position.Cost = position.Cost.Sub(allowable)
		if position.Quantity.IsZero() && !position.Cost.Round(10).IsZero() {
			return GBP(0), nil, calculationErrorf("cost %s left on an empty %s pool", position.Cost, symbol)
		}
		entries = append(entries, newEntry(CalculationEntry{
			Rule:          Section104,
			Quantity:      remaining,
			Amount:        proceeds,
			AllowableCost: allowable,
			Fees:          bucket.Fees,
			Gain:          sliceGain,
			NewQuantity:   position.Quantity,
			NewPoolCost:   position.Cost,
		}))
	}
	pool[symbol] = position
	return gain.Round(2), entries, nil
}

// Calculate is the second pass: it replays every acquisition and disposal in
// day order from the epoch to the end of the tax year, applying the share
// matching rules, and aggregates the in-year results into a report.
//
// Running it twice on the same logs yields the same report: the logs are
// read-only inputs and all per-day iteration is in sorted symbol order.
func (c *Calculator) Calculate(acquisitions, disposals TransactionLog) (*CapitalGainsReport, error) {
	startIndex := c.year.Start().Index()
	endIndex := c.year.End().Index()
	claims := make(TransactionLog)
	pool := make(map[string]Position)
	calculations := make(CalculationLog)

	for dayIndex := 0; dayIndex <= endIndex; dayIndex++ {
		for _, symbol := range slices.Sorted(maps.Keys(acquisitions[dayIndex])) {
			entries, err := c.processAcquisition(acquisitions, claims, pool, symbol, dayIndex)
			if err != nil {
				return nil, err
			}
			if dayIndex >= startIndex {
				calculations.add(dayIndex, BuyEvent(symbol), entries)
			}
		}
		for _, symbol := range slices.Sorted(maps.Keys(disposals[dayIndex])) {
			gain, entries, err := c.processDisposal(acquisitions, disposals, claims, pool, symbol, dayIndex)
			if err != nil {
				return nil, err
			}
			if dayIndex < startIndex {
				continue
			}
			if c.checks {
				bucket, _ := disposals.Get(dayIndex, symbol)
				if err := checkDisposalEntries(symbol, dayIndex, bucket, gain, entries); err != nil {
					return nil, err
				}
			}
			calculations.add(dayIndex, SellEvent(symbol), entries)
		}
	}
	log.Println("Second pass completed")

	report := &CapitalGainsReport{
		TaxYear:         c.year,
		Portfolio:       c.portfolioEntries(pool),
		Dividends:       c.dividendTotal.Round(2),
		DividendTax:     c.dividendTax.Neg().Round(2),
		DividendRecords: c.dividends,
		Interest:        c.interest.Round(2),
		ExcessIncome:    c.eriIncome.Round(2),
		CalculationLog:  calculations,
	}
	if c.allowance != nil {
		report.Allowance = c.allowance
	} else if allowance, ok := c.year.Allowance(); ok {
		report.Allowance = &allowance
	}
	report.aggregate()
	return report, nil
}

// checkDisposalEntries re-derives the disposal totals from the audit entries
// and compares them with the aggregated bucket. Quantities must agree
// exactly, proceeds to ten decimal places, gains to the penny.
func checkDisposalEntries(symbol string, dayIndex int, bucket TransactionData, gain Money, entries []CalculationEntry) error {
	var quantity Quantity
	proceeds, total := GBP(0), GBP(0)
	for _, e := range entries {
		quantity = quantity.Add(e.Quantity)
		proceeds = proceeds.Add(e.Amount)
		total = total.Add(e.Gain)
	}
	if !quantity.Equal(bucket.Quantity) {
		return calculationErrorf("disposal of %s on %s: entry quantities sum to %s, expected %s",
			symbol, date.FromIndex(dayIndex), quantity, bucket.Quantity)
	}
	if !proceeds.Round(10).Equal(bucket.Amount.Round(10)) {
		return calculationErrorf("disposal of %s on %s: entry proceeds sum to %s, expected %s",
			symbol, date.FromIndex(dayIndex), proceeds, bucket.Amount)
	}
	if !total.Round(2).Equal(gain) {
		return calculationErrorf("disposal of %s on %s: entry gains sum to %s, expected %s",
			symbol, date.FromIndex(dayIndex), total.Round(2), gain)
	}
	return nil
}

// portfolioEntries snapshots the open positions at the end of the tax year,
// with unrealized gains when a price provider is configured.
func (c *Calculator) portfolioEntries(pool map[string]Position) []PortfolioEntry {
	var entries []PortfolioEntry
	for _, symbol := range slices.Sorted(maps.Keys(pool)) {
		position := pool[symbol]
		if !position.Quantity.IsPositive() {
			continue
		}
		entry := PortfolioEntry{Symbol: symbol, Quantity: position.Quantity, Cost: position.Cost}
		if c.quotes != nil {
			if price, err := c.quotes.Price(symbol); err != nil {
				log.Printf("WARNING: no market price for %s: %v", symbol, err)
			} else {
				unrealized := price.Mul(position.Quantity).Sub(position.Cost).Round(2)
				entry.Unrealized = &unrealized
			}
		}
		entries = append(entries, entry)
	}
	return entries
}
