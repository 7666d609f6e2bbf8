package cgtcalc

import (
	"fmt"
	"strings"

	"github.com/etnz/cgtcalc/date"
)

// ActionType identifies what a broker transaction did.
type ActionType string

// Action taxonomy. Broker parsers map their own vocabulary onto these.
const (
	ActionBuy           ActionType = "BUY"
	ActionSell          ActionType = "SELL"
	ActionTransfer      ActionType = "TRANSFER"
	ActionStockActivity ActionType = "STOCK_ACTIVITY" // vesting of stock awards
	ActionDividend      ActionType = "DIVIDEND"
	ActionTax           ActionType = "TAX" // tax withheld on dividends
	ActionFee           ActionType = "FEE"
	ActionAdjustment    ActionType = "ADJUSTMENT"
	ActionCapitalGain   ActionType = "CAPITAL_GAIN" // fund capital gain distribution
	ActionSpinOff       ActionType = "SPIN_OFF"
	ActionInterest      ActionType = "INTEREST"
	ActionExcessIncome  ActionType = "EXCESS_REPORTED_INCOME"
)

// ParseActionType parses an action name as found in raw transaction files.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionBuy, ActionSell, ActionTransfer, ActionStockActivity,
		ActionDividend, ActionTax, ActionFee, ActionAdjustment,
		ActionCapitalGain, ActionSpinOff, ActionInterest, ActionExcessIncome:
		return a, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// BrokerTransaction is one already-parsed broker record. It is immutable once
// constructed. Optional fields are pointers: a nil Quantity is a transaction
// with no quantity at all, which is not the same as a zero quantity.
//
// Price and Amount are in the transaction's original Currency; the sign
// convention for Amount is negative for cash outflows (buys) and positive
// for inflows (sells, income).
type BrokerTransaction struct {
	Date        date.Date
	Action      ActionType
	Symbol      string // empty for pure cash events
	Description string
	Quantity    *Quantity
	Price       *Money // per unit
	Fees        Money  // always >= 0
	Amount      *Money
	Currency    string
	Broker      string
}

// String renders the transaction on one line, for error messages and logs.
func (t BrokerTransaction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", t.Date, t.Action)
	if t.Symbol != "" {
		fmt.Fprintf(&b, " %s", t.Symbol)
	}
	if t.Quantity != nil {
		fmt.Fprintf(&b, " quantity: %s", t.Quantity)
	}
	if t.Price != nil {
		fmt.Fprintf(&b, " price: %s", t.Price)
	}
	if !t.Fees.IsZero() {
		fmt.Fprintf(&b, " fees: %s", t.Fees)
	}
	if t.Amount != nil {
		fmt.Fprintf(&b, " amount: %s", t.Amount)
	}
	fmt.Fprintf(&b, " (%s, %s)", t.Currency, t.Broker)
	return b.String()
}
