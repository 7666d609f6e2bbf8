package cgtcalc

import (
	"cmp"
	"log"
	"maps"
	"slices"

	"github.com/etnz/cgtcalc/date"
)

// eriTaxDateOffsetMonths is the delay between a fund's excess reported
// income date and the date the income becomes taxable.
const eriTaxDateOffsetMonths = 6

// Default ticker renames applied during normalization.
var defaultTickerRenames = map[string]string{
	"FB": "META",
}

type balanceKey struct {
	broker   string
	currency string
}

// Calculator computes a capital gains report for one tax year. It is created
// fresh per run; nothing persists across runs.
type Calculator struct {
	year      TaxYear
	converter *CurrencyConverter
	prices    *InitialPrices
	quotes    PriceProvider
	renames   map[string]string
	allowance *Money
	checks    bool

	// First pass results, consumed by Calculate.
	dividends     []Dividend
	dividendTotal Money
	dividendTax   Money
	interest      Money
	eriIncome     Money
	totalProceeds Money
	balances      map[balanceKey]Money
	holdings      map[string]Quantity
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTickerRenames adds symbol renames on top of the defaults.
func WithTickerRenames(renames map[string]string) Option {
	return func(c *Calculator) {
		for from, to := range renames {
			c.renames[from] = to
		}
	}
}

// WithoutConsistencyChecks disables the engine self-checks. Only useful to
// diagnose malformed inputs; a report produced this way is not trustworthy.
func WithoutConsistencyChecks() Option {
	return func(c *Calculator) { c.checks = false }
}

// WithPriceProvider enables unrealized gains in the report.
func WithPriceProvider(p PriceProvider) Option {
	return func(c *Calculator) { c.quotes = p }
}

// WithAllowance overrides the annual exempt amount for the year.
func WithAllowance(allowance Money) Option {
	return func(c *Calculator) { c.allowance = &allowance }
}

// NewCalculator creates a calculator for the given tax year. The converter
// and initial price table are injected so tests can run on fixture data.
func NewCalculator(year TaxYear, converter *CurrencyConverter, prices *InitialPrices, opts ...Option) *Calculator {
	c := &Calculator{
		year:      year,
		converter: converter,
		prices:    prices,
		renames:   maps.Clone(defaultTickerRenames),
		checks:    true,
		balances:  make(map[balanceKey]Money),
		holdings:  make(map[string]Quantity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) rename(symbol string) string {
	if to, ok := c.renames[symbol]; ok {
		return to
	}
	return symbol
}

// Normalize is the first pass: it validates the broker transactions, keeps a
// running cash balance per (broker, currency), converts everything to GBP,
// accumulates the tax year's income totals, and aggregates acquisitions and
// disposals into day-indexed logs.
//
// Transactions must arrive date-sorted; within a day they are processed in
// input order, which is the documented tie-break (only the balance
// validation is sensitive to it, the engine aggregates per day).
func (c *Calculator) Normalize(transactions []BrokerTransaction) (acquisitions, disposals TransactionLog, err error) {
	acquisitions = make(TransactionLog)
	disposals = make(TransactionLog)

	var last date.Date
	for _, tx := range transactions {
		if tx.Date.Before(last) {
			return nil, nil, newTransactionError(&CalculationError{Message: "transactions out of date order"}, tx, "previous date %s", last)
		}
		if tx.Date.Before(date.Epoch) {
			return nil, nil, newTransactionError(&CalculationError{Message: "transaction predates the epoch"}, tx, "epoch %s", date.Epoch)
		}
		last = tx.Date

		if err := c.normalizeOne(tx, acquisitions, disposals); err != nil {
			return nil, nil, err
		}
	}
	c.logSummary()
	return acquisitions, disposals, nil
}

func (c *Calculator) normalizeOne(tx BrokerTransaction, acquisitions, disposals TransactionLog) error {
	key := balanceKey{broker: tx.Broker, currency: tx.Currency}
	balance := c.balances[key]

	switch tx.Action {
	case ActionTransfer:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)

	case ActionBuy:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)
		if err := c.addAcquisition(acquisitions, tx); err != nil {
			return err
		}

	case ActionSell:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)
		if err := c.addDisposal(disposals, tx); err != nil {
			return err
		}
		if c.year.Contains(tx.Date) {
			gbp, err := c.converter.toGBPFor(*tx.Amount, tx)
			if err != nil {
				return err
			}
			c.totalProceeds = c.totalProceeds.Add(gbp)
		}

	case ActionFee:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		if tx.Symbol == "" {
			return newTransactionError(ErrSymbolMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)
		// A management fee is a cost-only pool addition: zero quantity,
		// amount and fees both equal to the fee.
		gbpFee, err := c.converter.toGBPFor(tx.Amount.Neg(), tx)
		if err != nil {
			return err
		}
		acquisitions.Add(tx.Date.Index(), c.rename(tx.Symbol), TransactionData{
			Quantity: Q(0), Amount: gbpFee, Fees: gbpFee,
		})

	case ActionStockActivity, ActionSpinOff:
		if err := c.addAcquisition(acquisitions, tx); err != nil {
			return err
		}

	case ActionDividend, ActionCapitalGain:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)
		if c.year.Contains(tx.Date) {
			gbp, err := c.converter.toGBPFor(*tx.Amount, tx)
			if err != nil {
				return err
			}
			c.dividendTotal = c.dividendTotal.Add(gbp)
			c.dividends = append(c.dividends, processDividend(tx.Date, c.rename(tx.Symbol), tx.Currency, gbp, GBP(0)))
		}

	case ActionTax, ActionAdjustment:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)
		if c.year.Contains(tx.Date) {
			gbp, err := c.converter.toGBPFor(*tx.Amount, tx)
			if err != nil {
				return err
			}
			c.dividendTax = c.dividendTax.Add(gbp)
		}

	case ActionInterest:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		balance = balance.Add(*tx.Amount)
		if c.year.Contains(tx.Date) {
			gbp, err := c.converter.toGBPFor(*tx.Amount, tx)
			if err != nil {
				return err
			}
			c.interest = c.interest.Add(gbp)
		}

	case ActionExcessIncome:
		// Notional distribution: no cash moves, the amount is taxed as
		// income six months later and raises the Section 104 pool cost.
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		if tx.Symbol == "" {
			return newTransactionError(ErrSymbolMissing, tx, "")
		}
		gbp, err := c.converter.toGBPFor(*tx.Amount, tx)
		if err != nil {
			return err
		}
		if c.year.Contains(tx.Date.AddMonths(eriTaxDateOffsetMonths)) {
			c.eriIncome = c.eriIncome.Add(gbp)
		}
		acquisitions.Add(tx.Date.Index(), c.rename(tx.Symbol), TransactionData{
			Quantity: Q(0), Amount: gbp, Fees: GBP(0),
		})

	default:
		return newTransactionError(&CalculationError{Message: "action not processed"}, tx, "action %s", tx.Action)
	}

	if balance.IsNegative() {
		return calculationErrorf("reached a negative balance (%s) for broker %s (%s) after transaction: %s",
			balance.Round(2), tx.Broker, tx.Currency, tx)
	}
	c.balances[key] = balance
	return nil
}

// addAcquisition validates a BUY, STOCK_ACTIVITY or SPIN_OFF and adds it to
// the acquisition log.
func (c *Calculator) addAcquisition(acquisitions TransactionLog, tx BrokerTransaction) error {
	if tx.Symbol == "" {
		return newTransactionError(ErrSymbolMissing, tx, "")
	}
	if tx.Quantity == nil || !tx.Quantity.IsPositive() {
		return newTransactionError(ErrQuantityNotPositive, tx, "")
	}
	symbol := c.rename(tx.Symbol)
	quantity := *tx.Quantity

	// Only for data validation; cost tracking is the engine's job.
	c.holdings[symbol] = c.holdings[symbol].Add(quantity)

	var amount Money
	switch tx.Action {
	case ActionStockActivity, ActionSpinOff:
		// Vesting or spin-off: no cash settlement, the cost basis is the
		// market price at grant, supplied or looked up.
		price := tx.Price
		if price == nil {
			p, err := c.prices.Get(tx.Date, symbol)
			if err != nil {
				return err
			}
			m := M(p, tx.Currency)
			price = &m
		}
		amount = price.Mul(quantity)
	default:
		if tx.Amount == nil {
			return newTransactionError(ErrAmountMissing, tx, "")
		}
		if tx.Price == nil {
			return newTransactionError(ErrPriceMissing, tx, "")
		}
		calculated := tx.Price.Mul(quantity).Add(tx.Fees).Round(2)
		if !tx.Amount.Equal(calculated.Neg()) {
			return newTransactionError(ErrAmountDiscrepancy, tx, "calculated %s", calculated.Neg())
		}
		amount = tx.Amount.Neg()
	}

	gbpAmount, err := c.converter.toGBPFor(amount, tx)
	if err != nil {
		return err
	}
	gbpFees, err := c.converter.toGBPFor(tx.Fees, tx)
	if err != nil {
		return err
	}
	acquisitions.Add(tx.Date.Index(), symbol, TransactionData{
		Quantity: quantity, Amount: gbpAmount, Fees: gbpFees,
	})
	return nil
}

// addDisposal validates a SELL and adds it to the disposal log.
func (c *Calculator) addDisposal(disposals TransactionLog, tx BrokerTransaction) error {
	if tx.Symbol == "" {
		return newTransactionError(ErrSymbolMissing, tx, "")
	}
	symbol := c.rename(tx.Symbol)
	held, ok := c.holdings[symbol]
	if !ok {
		return newTransactionError(&CalculationError{Message: "sell of a symbol never owned"}, tx, "reversed order?")
	}
	if tx.Quantity == nil || !tx.Quantity.IsPositive() {
		return newTransactionError(ErrQuantityNotPositive, tx, "")
	}
	quantity := *tx.Quantity
	if held.LessThan(quantity) {
		return newTransactionError(&CalculationError{Message: "sell of more than the held quantity"}, tx, "held %s", held)
	}
	c.holdings[symbol] = held.Sub(quantity)
	if c.holdings[symbol].IsZero() {
		delete(c.holdings, symbol)
	}

	if tx.Amount == nil {
		return newTransactionError(ErrAmountMissing, tx, "")
	}
	if tx.Price == nil {
		return newTransactionError(ErrPriceMissing, tx, "")
	}
	calculated := tx.Price.Mul(quantity).Sub(tx.Fees).Round(2)
	if !tx.Amount.Equal(calculated) {
		return newTransactionError(ErrAmountDiscrepancy, tx, "calculated %s", calculated)
	}

	gbpAmount, err := c.converter.toGBPFor(*tx.Amount, tx)
	if err != nil {
		return err
	}
	gbpFees, err := c.converter.toGBPFor(tx.Fees, tx)
	if err != nil {
		return err
	}
	disposals.Add(tx.Date.Index(), symbol, TransactionData{
		Quantity: quantity, Amount: gbpAmount, Fees: gbpFees,
	})
	return nil
}

// logSummary reports the first pass results. Purely observational.
func (c *Calculator) logSummary() {
	log.Println("First pass completed")
	for _, symbol := range slices.Sorted(maps.Keys(c.holdings)) {
		log.Printf("  holding %s: %s", symbol, c.holdings[symbol].Round(2))
	}
	for _, key := range slices.SortedFunc(maps.Keys(c.balances), func(a, b balanceKey) int {
		if a.broker != b.broker {
			return cmp.Compare(a.broker, b.broker)
		}
		return cmp.Compare(a.currency, b.currency)
	}) {
		log.Printf("  balance %s (%s): %s", key.broker, key.currency, c.balances[key].Round(2))
	}
	log.Printf("Dividends: %s", c.dividendTotal.Round(2))
	log.Printf("Dividend taxes: %s", c.dividendTax.Neg().Round(2))
	log.Printf("Interest: %s", c.interest.Round(2))
	log.Printf("Disposal proceeds: %s", c.totalProceeds.Round(2))
}
