package cgtcalc

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config gathers a calculation run: the tax year, the input files and the
// tuning knobs that are otherwise flags.
type Config struct {
	TaxYear int          `json:"tax_year" yaml:"tax_year"`
	Inputs  InputsConfig `json:"inputs" yaml:"inputs"`

	// Allowance overrides the built-in annual exempt amount table, in GBP.
	Allowance float64 `json:"allowance,omitempty" yaml:"allowance,omitempty"`

	// TickerRenames are applied on top of the built-in defaults.
	TickerRenames map[string]string `json:"ticker_renames,omitempty" yaml:"ticker_renames,omitempty"`

	// NoConsistencyChecks disables the engine self-checks.
	NoConsistencyChecks bool `json:"no_consistency_checks,omitempty" yaml:"no_consistency_checks,omitempty"`

	// FetchPrices enables market quotes and unrealized gains in the report.
	FetchPrices bool `json:"fetch_prices,omitempty" yaml:"fetch_prices,omitempty"`
}

// InputsConfig lists the input files of a run. All paths are optional except
// the transactions file.
type InputsConfig struct {
	Transactions  string `json:"transactions" yaml:"transactions"`
	ExchangeRates string `json:"exchange_rates,omitempty" yaml:"exchange_rates,omitempty"`
	InitialPrices string `json:"initial_prices,omitempty" yaml:"initial_prices,omitempty"`
}

// LoadConfig loads configuration from a file (JSON or YAML based on content)
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.TaxYear == 0 {
		return fmt.Errorf("tax_year is required")
	}
	if c.TaxYear < 2000 || c.TaxYear > 2100 {
		return fmt.Errorf("tax_year %d is out of range", c.TaxYear)
	}
	if c.Inputs.Transactions == "" {
		return fmt.Errorf("inputs.transactions is required")
	}
	return nil
}

// Options converts the configuration into calculator options.
func (c *Config) Options() []Option {
	var opts []Option
	if c.Allowance > 0 {
		opts = append(opts, WithAllowance(GBP(c.Allowance)))
	}
	if len(c.TickerRenames) > 0 {
		opts = append(opts, WithTickerRenames(c.TickerRenames))
	}
	if c.NoConsistencyChecks {
		opts = append(opts, WithoutConsistencyChecks())
	}
	return opts
}
