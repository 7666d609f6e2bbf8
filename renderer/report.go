package renderer

import (
	"fmt"
	"strings"

	"github.com/etnz/cgtcalc"
)

// ReportMarkdown renders the tax year summary as a markdown document.
func ReportMarkdown(r *cgtcalc.CapitalGainsReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Capital Gains Report %d/%d\n\n", r.TaxYear, r.TaxYear+1)

	if len(r.Portfolio) > 0 {
		fmt.Fprint(&b, "## Portfolio at Year End\n\n")
		fmt.Fprintln(&b, "| Security | Quantity | Pool Cost | Unrealized |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|")
		for _, entry := range r.Portfolio {
			unrealized := "?"
			if entry.Unrealized != nil {
				unrealized = entry.Unrealized.SignedString()
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				entry.Symbol,
				entry.Quantity.Round(2),
				entry.Cost.Round(2),
				unrealized,
			)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprint(&b, "## Disposals\n\n")
	fmt.Fprintln(&b, "| | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Number of disposals | %d |\n", r.DisposalCount)
	fmt.Fprintf(&b, "| Disposal proceeds | %s |\n", r.DisposalProceeds)
	fmt.Fprintf(&b, "| Allowable costs | %s |\n", r.AllowableCosts)
	fmt.Fprintf(&b, "| Capital gain | %s |\n", r.CapitalGain)
	fmt.Fprintf(&b, "| Capital loss | %s |\n", r.CapitalLoss.Abs())
	fmt.Fprintf(&b, "| **Total capital gain** | **%s** |\n", r.TotalGain().SignedString())
	if r.Allowance != nil {
		taxable, _ := r.TaxableGain()
		fmt.Fprintf(&b, "| Annual exempt amount | %s |\n", *r.Allowance)
		fmt.Fprintf(&b, "| **Taxable gain** | **%s** |\n", taxable)
	} else {
		fmt.Fprintf(&b, "\nNo annual exempt amount is known for %d/%d: taxable gain not computed.\n", r.TaxYear, r.TaxYear+1)
	}
	fmt.Fprintln(&b)

	if !r.Dividends.IsZero() || !r.DividendTax.IsZero() || !r.Interest.IsZero() || !r.ExcessIncome.IsZero() {
		fmt.Fprint(&b, "## Income\n\n")
		fmt.Fprintln(&b, "| | |")
		fmt.Fprintln(&b, "|:---|---:|")
		if !r.Dividends.IsZero() || !r.DividendTax.IsZero() {
			fmt.Fprintf(&b, "| Dividends | %s |\n", r.Dividends)
			fmt.Fprintf(&b, "| Dividend tax withheld | %s |\n", r.DividendTax)
			for _, d := range r.DividendRecords {
				fmt.Fprintf(&b, "| %s %s | %s |\n", d.Date, d.Symbol, d.Amount.Round(2))
			}
		}
		if !r.Interest.IsZero() {
			fmt.Fprintf(&b, "| Interest | %s |\n", r.Interest)
		}
		if !r.ExcessIncome.IsZero() {
			fmt.Fprintf(&b, "| Excess reported income | %s |\n", r.ExcessIncome)
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}
