package cgtcalc

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/etnz/cgtcalc/date"
	"github.com/shopspring/decimal"
)

// RateTable holds GBP exchange rates: units of foreign currency per one GBP,
// keyed by date (HMRC publishes one table per month, keyed by its first day,
// but daily entries are accepted too).
type RateTable map[date.Date]map[string]decimal.Decimal

// Add records a rate for a currency on a date.
func (t RateTable) Add(on date.Date, currency string, rate decimal.Decimal) {
	if t[on] == nil {
		t[on] = make(map[string]decimal.Decimal)
	}
	t[on][strings.ToUpper(currency)] = rate
}

// CurrencyConverter converts amounts to GBP using a rate table.
// The engine never computes exchange rates itself; it calls the converter
// once per monetary field it ingests.
type CurrencyConverter struct {
	rates RateTable
}

// NewCurrencyConverter creates a converter over the given table. The table is
// owned by the converter for the duration of one calculator run.
func NewCurrencyConverter(rates RateTable) *CurrencyConverter {
	if rates == nil {
		rates = make(RateTable)
	}
	return &CurrencyConverter{rates: rates}
}

// Rate returns the GBP/currency rate on a date, falling back to the monthly
// rate when no daily entry exists.
func (c *CurrencyConverter) Rate(currency string, on date.Date) (decimal.Decimal, error) {
	currency = strings.ToUpper(currency)
	if rate, ok := c.rates[on][currency]; ok {
		return rate, nil
	}
	if rate, ok := c.rates[on.StartOfMonth()][currency]; ok {
		return rate, nil
	}
	return decimal.Zero, &RateMissingError{Currency: currency, Date: on}
}

// ToGBP converts an amount from its own currency to GBP at the given date.
func (c *CurrencyConverter) ToGBP(amount Money, on date.Date) (Money, error) {
	if amount.Currency() == UKCurrency || amount.Currency() == "" {
		return M(amount.Decimal(), UKCurrency), nil
	}
	rate, err := c.Rate(amount.Currency(), on)
	if err != nil {
		return Money{}, err
	}
	return amount.DivRate(rate, UKCurrency), nil
}

// toGBPFor converts a transaction's monetary field at the transaction date.
func (c *CurrencyConverter) toGBPFor(amount Money, tx BrokerTransaction) (Money, error) {
	return c.ToGBP(amount, tx.Date)
}

// monthlyRates mirrors the XML document served by the HMRC monthly exchange
// rates endpoints.
type monthlyRates struct {
	Rates []struct {
		CurrencyCode string `xml:"currencyCode"`
		RateNew      string `xml:"rateNew"`
	} `xml:"exchangeRate"`
}

// FetchMonthlyRates downloads the official HMRC exchange rate table for the
// month containing the given date and merges it into the table. Purely a
// convenience for keeping a local rate file up to date; the engine itself is
// offline.
func (t RateTable) FetchMonthlyRates(client *http.Client, on date.Date) error {
	month := on.StartOfMonth()
	var addr string
	if month.Year() < 2021 {
		addr = fmt.Sprintf("http://www.hmrc.gov.uk/softwaredevelopers/rates/exrates-monthly-%02d%02d.xml",
			int(month.Month()), month.Year()%100)
	} else {
		addr = fmt.Sprintf("https://www.trade-tariff.service.gov.uk/uk/api/exchange_rates/files/monthly_xml_%04d-%02d.xml",
			month.Year(), int(month.Month()))
	}
	resp, err := client.Get(addr)
	if err != nil {
		return fmt.Errorf("cannot fetch HMRC rates for %s: %w", month, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot fetch HMRC rates for %s: %s", month, resp.Status)
	}
	var doc monthlyRates
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("invalid HMRC rates document for %s: %w", month, err)
	}
	for _, r := range doc.Rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(r.RateNew))
		if err != nil {
			return fmt.Errorf("invalid rate %q for %s in %s document: %w", r.RateNew, r.CurrencyCode, month, err)
		}
		t.Add(month, r.CurrencyCode, rate)
	}
	return nil
}
