package cgtcalc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tax_year: 2020
inputs:
  transactions: transactions.csv
  exchange_rates: rates.csv
ticker_renames:
  OLD: NEW
fetch_prices: true
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2020, cfg.TaxYear)
	assert.Equal(t, "transactions.csv", cfg.Inputs.Transactions)
	assert.Equal(t, "rates.csv", cfg.Inputs.ExchangeRates)
	assert.Equal(t, map[string]string{"OLD": "NEW"}, cfg.TickerRenames)
	assert.True(t, cfg.FetchPrices)
	assert.False(t, cfg.NoConsistencyChecks)
}

func TestLoadConfigJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "tax_year": 2023,
  "inputs": {"transactions": "transactions.csv"},
  "no_consistency_checks": true
}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2023, cfg.TaxYear)
	assert.True(t, cfg.NoConsistencyChecks)
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.Validate(), "tax year is required")

	cfg = &Config{TaxYear: 1800, Inputs: InputsConfig{Transactions: "t.csv"}}
	assert.Error(t, cfg.Validate(), "tax year out of range")

	cfg = &Config{TaxYear: 2020}
	assert.Error(t, cfg.Validate(), "transactions file is required")

	cfg = &Config{TaxYear: 2020, Inputs: InputsConfig{Transactions: "t.csv"}}
	assert.NoError(t, cfg.Validate())
}

func TestConfigSaveAndReload(t *testing.T) {
	cfg := &Config{
		TaxYear:       2021,
		Inputs:        InputsConfig{Transactions: "t.csv", InitialPrices: "p.csv"},
		TickerRenames: map[string]string{"FB": "META"},
	}
	for _, name := range []string{"config.yaml", "config.json"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, cfg.SaveToFile(path))
		loaded, err := LoadConfig(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg.TaxYear, loaded.TaxYear, name)
		assert.Equal(t, cfg.Inputs, loaded.Inputs, name)
		assert.Equal(t, cfg.TickerRenames, loaded.TickerRenames, name)
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := &Config{
		TaxYear:             2020,
		Inputs:              InputsConfig{Transactions: "t.csv"},
		TickerRenames:       map[string]string{"OLD": "NEW"},
		NoConsistencyChecks: true,
	}
	opts := cfg.Options()
	assert.Len(t, opts, 2)

	c := NewCalculator(2020, NewCurrencyConverter(nil), NewInitialPrices(), opts...)
	assert.False(t, c.checks)
	assert.Equal(t, "NEW", c.rename("OLD"))
	assert.Equal(t, "META", c.rename("FB"))

	cfg.Allowance = 5000
	opts = cfg.Options()
	assert.Len(t, opts, 3)
	c = NewCalculator(2020, NewCurrencyConverter(nil), NewInitialPrices(), opts...)
	if assert.NotNil(t, c.allowance) {
		assert.True(t, c.allowance.Equal(GBP(5000)))
	}
}
