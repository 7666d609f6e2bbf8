package cgtcalc

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/etnz/cgtcalc/date"
	"github.com/shopspring/decimal"
)

// rawColumns is the broker-agnostic interchange format:
// date,action,symbol,quantity,price,fees,amount,currency,broker
const rawColumns = 9

// ParseError describes a malformed row of an input file.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

func parseErrorf(file string, line int, format string, args ...any) error {
	return &ParseError{File: file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// parseDecimal parses a decimal field, tolerating thousands separators.
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// ParseRawTransactions reads broker transactions from the raw interchange
// format. A header row is skipped when present. The amount column may be
// empty: it is then derived from quantity, price and fees, negative for
// purchases.
func ParseRawTransactions(r io.Reader, file string) ([]BrokerTransaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = rawColumns
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}
	var transactions []BrokerTransaction
	for i, row := range rows {
		if i == 0 && row[0] == "date" {
			continue
		}
		tx, err := parseRawRow(row, file, i+1)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func parseRawRow(row []string, file string, line int) (BrokerTransaction, error) {
	var tx BrokerTransaction
	on, err := date.Parse(row[0])
	if err != nil {
		return tx, parseErrorf(file, line, "invalid date %q: %v", row[0], err)
	}
	action, err := ParseActionType(row[1])
	if err != nil {
		return tx, parseErrorf(file, line, "%v", err)
	}
	currency := strings.TrimSpace(row[7])
	tx = BrokerTransaction{
		Date:     on,
		Action:   action,
		Symbol:   strings.TrimSpace(row[2]),
		Currency: currency,
		Broker:   strings.TrimSpace(row[8]),
	}
	if row[3] != "" {
		value, err := parseDecimal(row[3])
		if err != nil {
			return tx, parseErrorf(file, line, "invalid quantity %q: %v", row[3], err)
		}
		quantity := Q(value)
		tx.Quantity = &quantity
	}
	if row[4] != "" {
		value, err := parseDecimal(row[4])
		if err != nil {
			return tx, parseErrorf(file, line, "invalid price %q: %v", row[4], err)
		}
		price := M(value, currency)
		tx.Price = &price
	}
	if row[5] != "" {
		value, err := parseDecimal(row[5])
		if err != nil {
			return tx, parseErrorf(file, line, "invalid fees %q: %v", row[5], err)
		}
		tx.Fees = M(value, currency)
	} else {
		tx.Fees = M(0, currency)
	}
	switch {
	case row[6] != "":
		value, err := parseDecimal(row[6])
		if err != nil {
			return tx, parseErrorf(file, line, "invalid amount %q: %v", row[6], err)
		}
		amount := M(value, currency)
		tx.Amount = &amount
	case tx.Quantity != nil && tx.Price != nil:
		amount := tx.Price.Mul(*tx.Quantity)
		if action == ActionBuy {
			amount = amount.Abs().Neg()
		}
		amount = amount.Sub(tx.Fees)
		tx.Amount = &amount
	}
	return tx, nil
}

// ReadRawTransactions loads a raw transactions file. A missing file is only
// a warning: runs are routinely assembled from several optional inputs.
func ReadRawTransactions(path string) ([]BrokerTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("WARNING: couldn't locate transactions file %q", path)
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseRawTransactions(f, path)
}

// SortTransactions orders transactions by date, preserving the input order
// within a day. The calculator depends on that order being stable.
func SortTransactions(transactions []BrokerTransaction) {
	slices.SortStableFunc(transactions, func(a, b BrokerTransaction) int {
		return a.Date.Index() - b.Date.Index()
	})
}

// ParseExchangeRates reads the month,currency,rate interchange format into a
// rate table. The month column holds the first day of the month.
func ParseExchangeRates(r io.Reader, file string) (RateTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}
	table := make(RateTable)
	for i, row := range rows {
		if i == 0 && row[0] == "month" {
			continue
		}
		on, err := date.Parse(row[0])
		if err != nil {
			return nil, parseErrorf(file, i+1, "invalid month %q: %v", row[0], err)
		}
		rate, err := parseDecimal(row[2])
		if err != nil {
			return nil, parseErrorf(file, i+1, "invalid rate %q: %v", row[2], err)
		}
		table.Add(on, strings.TrimSpace(row[1]), rate)
	}
	return table, nil
}

// ReadExchangeRates loads a rate file, returning an empty table when the
// file does not exist yet.
func ReadExchangeRates(path string) (RateTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(RateTable), nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseExchangeRates(f, path)
}

// WriteExchangeRates persists a rate table in the same interchange format,
// sorted so the file diffs cleanly between runs.
func WriteExchangeRates(w io.Writer, table RateTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"month", "currency", "rate"}); err != nil {
		return err
	}
	months := slices.SortedFunc(maps.Keys(table), func(a, b date.Date) int { return a.Index() - b.Index() })
	for _, month := range months {
		for _, currency := range slices.Sorted(maps.Keys(table[month])) {
			record := []string{month.String(), currency, table[month][currency].String()}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// ParseInitialPrices reads the date,symbol,price format used to seed vesting
// and spin-off prices.
func ParseInitialPrices(r io.Reader, file string) (*InitialPrices, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 3
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", file, err)
	}
	prices := NewInitialPrices()
	for i, row := range rows {
		if i == 0 && row[0] == "date" {
			continue
		}
		on, err := date.Parse(row[0])
		if err != nil {
			return nil, parseErrorf(file, i+1, "invalid date %q: %v", row[0], err)
		}
		price, err := parseDecimal(row[2])
		if err != nil {
			return nil, parseErrorf(file, i+1, "invalid price %q: %v", row[2], err)
		}
		prices.Add(on, strings.TrimSpace(row[1]), price)
	}
	return prices, nil
}

// ReadInitialPrices loads an initial prices file; a missing file yields an
// empty table.
func ReadInitialPrices(path string) (*InitialPrices, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewInitialPrices(), nil
		}
		return nil, err
	}
	defer f.Close()
	return ParseInitialPrices(f, path)
}
