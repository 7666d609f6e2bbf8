package cgtcalc

import (
	"errors"
	"testing"

	"github.com/etnz/cgtcalc/date"
	"github.com/shopspring/decimal"
)

func TestConverterMonthlyFallback(t *testing.T) {
	rates := make(RateTable)
	rates.Add(date.MustParse("2020-05-01"), "USD", decimal.RequireFromString("1.25"))
	rates.Add(date.MustParse("2020-05-15"), "usd", decimal.RequireFromString("1.30"))
	converter := NewCurrencyConverter(rates)

	// Daily entry wins, currency lookup is case-insensitive.
	rate, err := converter.Rate("USD", date.MustParse("2020-05-15"))
	if err != nil || !rate.Equal(decimal.RequireFromString("1.30")) {
		t.Errorf("rate %s (%v), want 1.30", rate, err)
	}
	// Any other day of the month falls back to the monthly rate.
	rate, err = converter.Rate("USD", date.MustParse("2020-05-20"))
	if err != nil || !rate.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("rate %s (%v), want 1.25", rate, err)
	}

	_, err = converter.Rate("USD", date.MustParse("2020-06-20"))
	var missing *RateMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want a rate missing error", err)
	}
}

func TestConverterToGBP(t *testing.T) {
	rates := make(RateTable)
	rates.Add(date.MustParse("2020-05-01"), "USD", decimal.NewFromInt(2))
	converter := NewCurrencyConverter(rates)

	got, err := converter.ToGBP(M(100, "USD"), date.MustParse("2020-05-15"))
	if err != nil || !got.Equal(GBP(50)) {
		t.Errorf("converted %s (%v), want 50 GBP", got, err)
	}
	if got.Currency() != UKCurrency {
		t.Errorf("currency %s, want %s", got.Currency(), UKCurrency)
	}

	// GBP amounts pass through without needing any rate.
	got, err = converter.ToGBP(GBP(42), date.MustParse("2025-01-01"))
	if err != nil || !got.Equal(GBP(42)) {
		t.Errorf("converted %s (%v), want 42 GBP", got, err)
	}
}
