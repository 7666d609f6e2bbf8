package cgtcalc

import (
	"errors"
	"fmt"

	"github.com/etnz/cgtcalc/date"
)

// Validation failures on a single transaction. All are fatal: a malformed
// input must be fixed, not worked around, or the tax figures are wrong.
var (
	ErrAmountMissing       = errors.New("amount missing")
	ErrSymbolMissing       = errors.New("symbol missing")
	ErrPriceMissing        = errors.New("price missing")
	ErrQuantityNotPositive = errors.New("positive quantity required")
	ErrAmountDiscrepancy   = errors.New("calculated amount differs from supplied amount")
)

// TransactionError reports a validation failure together with the full
// offending transaction.
type TransactionError struct {
	Err    error
	Tx     BrokerTransaction
	Detail string
}

func (e *TransactionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%v (%s) for transaction: %s", e.Err, e.Detail, e.Tx)
	}
	return fmt.Sprintf("%v for transaction: %s", e.Err, e.Tx)
}

func (e *TransactionError) Unwrap() error { return e.Err }

func newTransactionError(err error, tx BrokerTransaction, format string, args ...any) error {
	return &TransactionError{Err: err, Tx: tx, Detail: fmt.Sprintf(format, args...)}
}

// CalculationError reports an inconsistency found while processing the
// transaction history: a negative running balance, or an engine invariant
// that failed to hold. Both invalidate the whole run.
type CalculationError struct {
	Message string
}

func (e *CalculationError) Error() string { return e.Message }

func calculationErrorf(format string, args ...any) error {
	return &CalculationError{Message: fmt.Sprintf(format, args...)}
}

// RateMissingError reports a missing exchange rate.
type RateMissingError struct {
	Currency string
	Date     date.Date
}

func (e *RateMissingError) Error() string {
	return fmt.Sprintf("no GBP/%s exchange rate for %s", e.Currency, e.Date)
}

// InitialPriceMissingError reports a missing vesting or spin-off price.
type InitialPriceMissingError struct {
	Symbol string
	Date   date.Date
}

func (e *InitialPriceMissingError) Error() string {
	return fmt.Sprintf("no initial price for %s on %s", e.Symbol, e.Date)
}
