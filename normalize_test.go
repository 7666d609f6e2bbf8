package cgtcalc

import (
	"errors"
	"testing"

	"github.com/etnz/cgtcalc/date"
	"github.com/shopspring/decimal"
)

func normalize(t *testing.T, transactions []BrokerTransaction, opts ...Option) error {
	t.Helper()
	c := NewCalculator(2020, NewCurrencyConverter(nil), NewInitialPrices(), opts...)
	_, _, err := c.Normalize(transactions)
	return err
}

func TestNormalizeValidation(t *testing.T) {
	q, p := Q(3), GBP(5)
	zero := Q(0)
	amount := GBP(-16)
	on := date.MustParse("2020-05-01")

	cases := []struct {
		name string
		tx   BrokerTransaction
		want error
	}{
		{
			name: "buy without amount",
			tx:   BrokerTransaction{Date: on, Action: ActionBuy, Symbol: "FOO", Quantity: &q, Price: &p, Currency: UKCurrency},
			want: ErrAmountMissing,
		},
		{
			name: "buy without symbol",
			tx:   BrokerTransaction{Date: on, Action: ActionBuy, Quantity: &q, Price: &p, Amount: &amount, Currency: UKCurrency},
			want: ErrSymbolMissing,
		},
		{
			name: "buy without price",
			tx:   BrokerTransaction{Date: on, Action: ActionBuy, Symbol: "FOO", Quantity: &q, Amount: &amount, Currency: UKCurrency},
			want: ErrPriceMissing,
		},
		{
			name: "buy without quantity",
			tx:   BrokerTransaction{Date: on, Action: ActionBuy, Symbol: "FOO", Price: &p, Amount: &amount, Currency: UKCurrency},
			want: ErrQuantityNotPositive,
		},
		{
			name: "buy with zero quantity",
			tx:   BrokerTransaction{Date: on, Action: ActionBuy, Symbol: "FOO", Quantity: &zero, Price: &p, Amount: &amount, Currency: UKCurrency},
			want: ErrQuantityNotPositive,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := normalize(t, []BrokerTransaction{transferTx("2020-05-01", 100), tc.tx})
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestNormalizeAmountDiscrepancy(t *testing.T) {
	// 3 * 5 + 1 = 16, not 20.
	err := normalize(t, []BrokerTransaction{
		transferTx("2020-05-01", 100),
		buyTx("2020-05-01", "FOO", 3, 5, 1, -20),
	})
	if !errors.Is(err, ErrAmountDiscrepancy) {
		t.Errorf("got %v, want %v", err, ErrAmountDiscrepancy)
	}

	err = normalize(t, []BrokerTransaction{
		transferTx("2020-05-01", 100),
		buyTx("2020-05-01", "FOO", 3, 5, 1, -16),
		sellTx("2020-05-02", "FOO", 3, 6, 1, 20),
	})
	if !errors.Is(err, ErrAmountDiscrepancy) {
		t.Errorf("got %v, want %v", err, ErrAmountDiscrepancy)
	}
}

func TestNormalizeRejectsOversell(t *testing.T) {
	err := normalize(t, []BrokerTransaction{
		transferTx("2020-05-01", 100),
		sellTx("2020-05-02", "FOO", 3, 6, 1, 17),
	})
	if err == nil {
		t.Error("selling a symbol never owned should fail")
	}

	err = normalize(t, []BrokerTransaction{
		transferTx("2020-05-01", 100),
		buyTx("2020-05-01", "FOO", 3, 5, 1, -16),
		sellTx("2020-05-02", "FOO", 5, 6, 1, 29),
	})
	if err == nil {
		t.Error("selling more than the held quantity should fail")
	}
}

func TestNormalizeRejectsNegativeBalance(t *testing.T) {
	err := normalize(t, []BrokerTransaction{
		buyTx("2020-05-01", "FOO", 3, 5, 1, -16),
	})
	var calcErr *CalculationError
	if !errors.As(err, &calcErr) {
		t.Errorf("got %v, want a calculation error", err)
	}

	// The balance is kept per broker: funding one does not fund the other.
	funded := transferTx("2020-05-01", 100)
	funded.Broker = "other"
	err = normalize(t, []BrokerTransaction{
		funded,
		buyTx("2020-05-01", "FOO", 3, 5, 1, -16),
	})
	if !errors.As(err, &calcErr) {
		t.Errorf("got %v, want a calculation error", err)
	}
}

func TestNormalizeRejectsOutOfOrderDates(t *testing.T) {
	err := normalize(t, []BrokerTransaction{
		transferTx("2020-05-02", 100),
		transferTx("2020-05-01", 100),
	})
	if err == nil {
		t.Error("out of order transactions should fail")
	}
}

func TestNormalizeRejectsPreEpochDates(t *testing.T) {
	err := normalize(t, []BrokerTransaction{
		transferTx("2009-12-31", 100),
	})
	if err == nil {
		t.Error("transactions before the epoch should fail")
	}
}

func TestNormalizeFeeRaisesPoolCost(t *testing.T) {
	fee := GBP(-5)
	report := runCalculator(t, 2020, []BrokerTransaction{
		transferTx("2020-05-01", 200),
		buyTx("2020-05-01", "FOO", 10, 10, 0, -100),
		{Date: date.MustParse("2020-06-01"), Action: ActionFee, Symbol: "FOO", Amount: &fee, Currency: UKCurrency},
		sellTx("2020-07-01", "FOO", 10, 20, 0, 200),
	})
	if got := report.TotalGain(); !got.Equal(mustGBP(t, "95")) {
		t.Errorf("total gain %s, want 95", got)
	}
}

func TestNormalizeDefaultTickerRename(t *testing.T) {
	// FB records and META records are one holding.
	report := runCalculator(t, 2020, []BrokerTransaction{
		transferTx("2020-05-01", 200),
		buyTx("2020-05-01", "FB", 10, 10, 0, -100),
		sellTx("2020-06-01", "META", 10, 20, 0, 200),
	})
	if got := report.TotalGain(); !got.Equal(mustGBP(t, "100")) {
		t.Errorf("total gain %s, want 100", got)
	}
	if report.CalculationLog[date.MustParse("2020-06-01").Index()][SellEvent("META")] == nil {
		t.Error("disposal should be logged under META")
	}
}

func TestNormalizeCustomTickerRename(t *testing.T) {
	c := NewCalculator(2020, NewCurrencyConverter(nil), NewInitialPrices(),
		WithTickerRenames(map[string]string{"OLD": "NEW"}))
	acquisitions, disposals, err := c.Normalize([]BrokerTransaction{
		transferTx("2020-05-01", 200),
		buyTx("2020-05-01", "OLD", 10, 10, 0, -100),
		sellTx("2020-06-01", "NEW", 10, 20, 0, 200),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if _, ok := acquisitions.Get(date.MustParse("2020-05-01").Index(), "NEW"); !ok {
		t.Error("acquisition should be recorded under NEW")
	}
	if _, ok := disposals.Get(date.MustParse("2020-06-01").Index(), "NEW"); !ok {
		t.Error("disposal should be recorded under NEW")
	}
}

func TestNormalizeStockActivity(t *testing.T) {
	vestQ := Q(10)
	vest := BrokerTransaction{
		Date: date.MustParse("2020-05-01"), Action: ActionStockActivity,
		Symbol: "FOO", Quantity: &vestQ, Currency: UKCurrency,
	}

	// Without a price anywhere the vesting cannot be costed.
	c := NewCalculator(2020, NewCurrencyConverter(nil), NewInitialPrices())
	_, _, err := c.Normalize([]BrokerTransaction{vest})
	var missing *InitialPriceMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want an initial price missing error", err)
	}

	prices := NewInitialPrices()
	prices.Add(date.MustParse("2020-05-01"), "FOO", decimal.NewFromInt(15))
	c = NewCalculator(2020, NewCurrencyConverter(nil), prices)
	acquisitions, disposals, err := c.Normalize([]BrokerTransaction{
		vest,
		sellTx("2020-06-01", "FOO", 10, 20, 0, 200),
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	report, err := c.Calculate(acquisitions, disposals)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if got := report.TotalGain(); !got.Equal(mustGBP(t, "50")) {
		t.Errorf("total gain %s, want 50", got)
	}
}

func TestNormalizeExcessReportedIncome(t *testing.T) {
	eri := GBP(50)
	report := runCalculator(t, 2020, []BrokerTransaction{
		transferTx("2020-04-10", 100),
		buyTx("2020-04-10", "FND", 10, 10, 0, -100),
		{Date: date.MustParse("2020-05-01"), Action: ActionExcessIncome, Symbol: "FND", Amount: &eri, Currency: UKCurrency},
		sellTx("2020-06-01", "FND", 10, 20, 0, 200),
	})
	// The notional income raises the pool cost from 100 to 150.
	if got := report.TotalGain(); !got.Equal(mustGBP(t, "50")) {
		t.Errorf("total gain %s, want 50", got)
	}
	if !report.ExcessIncome.Equal(mustGBP(t, "50")) {
		t.Errorf("excess income %s, want 50", report.ExcessIncome)
	}
}

func TestNormalizeExcessReportedIncomeTaxedSixMonthsLater(t *testing.T) {
	// Reported 1 Nov 2020, taxed 1 May 2021: tax year 2021, not 2020.
	eri := GBP(50)
	report := runCalculator(t, 2020, []BrokerTransaction{
		transferTx("2020-04-10", 100),
		buyTx("2020-04-10", "FND", 10, 10, 0, -100),
		{Date: date.MustParse("2020-11-01"), Action: ActionExcessIncome, Symbol: "FND", Amount: &eri, Currency: UKCurrency},
	})
	if !report.ExcessIncome.IsZero() {
		t.Errorf("excess income %s, want 0", report.ExcessIncome)
	}
}

func TestNormalizeIncome(t *testing.T) {
	dividend, tax, interest := GBP(100), GBP(-15), GBP(5)
	report := runCalculator(t, 2020, []BrokerTransaction{
		transferTx("2020-04-10", 100),
		buyTx("2020-04-10", "FOO", 10, 10, 0, -100),
		{Date: date.MustParse("2020-05-01"), Action: ActionDividend, Symbol: "FOO", Amount: &dividend, Currency: UKCurrency},
		{Date: date.MustParse("2020-05-01"), Action: ActionTax, Symbol: "FOO", Amount: &tax, Currency: UKCurrency},
		{Date: date.MustParse("2020-06-01"), Action: ActionInterest, Amount: &interest, Currency: UKCurrency},
	})
	if !report.Dividends.Equal(mustGBP(t, "100")) {
		t.Errorf("dividends %s, want 100", report.Dividends)
	}
	if !report.DividendTax.Equal(mustGBP(t, "15")) {
		t.Errorf("dividend tax %s, want 15", report.DividendTax)
	}
	if !report.Interest.Equal(mustGBP(t, "5")) {
		t.Errorf("interest %s, want 5", report.Interest)
	}
	if len(report.DividendRecords) != 1 {
		t.Fatalf("dividend records %v, want 1", report.DividendRecords)
	}
	if rec := report.DividendRecords[0]; rec.Symbol != "FOO" || !rec.Amount.Equal(mustGBP(t, "100")) {
		t.Errorf("dividend record %+v, want FOO 100", rec)
	}
}

func TestNormalizeConvertsToReportingCurrency(t *testing.T) {
	rates := make(RateTable)
	// 2 USD per GBP throughout.
	rates.Add(date.MustParse("2020-05-01"), "USD", decimal.NewFromInt(2))
	rates.Add(date.MustParse("2020-06-01"), "USD", decimal.NewFromInt(2))

	q := Q(10)
	buyPrice, buyAmount := M(10, "USD"), M(-100, "USD")
	sellPrice, sellAmount := M(30, "USD"), M(300, "USD")
	transfer := M(100, "USD")
	c := NewCalculator(2020, NewCurrencyConverter(rates), NewInitialPrices())
	acquisitions, disposals, err := c.Normalize([]BrokerTransaction{
		{Date: date.MustParse("2020-05-04"), Action: ActionTransfer, Amount: &transfer, Currency: "USD"},
		{Date: date.MustParse("2020-05-04"), Action: ActionBuy, Symbol: "FOO", Quantity: &q,
			Price: &buyPrice, Fees: M(0, "USD"), Amount: &buyAmount, Currency: "USD"},
		{Date: date.MustParse("2020-06-15"), Action: ActionSell, Symbol: "FOO", Quantity: &q,
			Price: &sellPrice, Fees: M(0, "USD"), Amount: &sellAmount, Currency: "USD"},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	report, err := c.Calculate(acquisitions, disposals)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	// 50 GBP cost, 150 GBP proceeds.
	if got := report.TotalGain(); !got.Equal(mustGBP(t, "100")) {
		t.Errorf("total gain %s, want 100", got)
	}
	if !report.DisposalProceeds.Equal(mustGBP(t, "150")) {
		t.Errorf("proceeds %s, want 150", report.DisposalProceeds)
	}
}

func TestNormalizeMissingRate(t *testing.T) {
	q := Q(10)
	price, amount := M(10, "USD"), M(-100, "USD")
	transfer := M(100, "USD")
	c := NewCalculator(2020, NewCurrencyConverter(nil), NewInitialPrices())
	_, _, err := c.Normalize([]BrokerTransaction{
		{Date: date.MustParse("2020-05-04"), Action: ActionTransfer, Amount: &transfer, Currency: "USD"},
		{Date: date.MustParse("2020-05-04"), Action: ActionBuy, Symbol: "FOO", Quantity: &q,
			Price: &price, Fees: M(0, "USD"), Amount: &amount, Currency: "USD"},
	})
	var missing *RateMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("got %v, want a rate missing error", err)
	}
	if missing.Currency != "USD" {
		t.Errorf("missing currency %s, want USD", missing.Currency)
	}
}
