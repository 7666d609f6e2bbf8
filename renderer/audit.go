package renderer

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/etnz/cgtcalc"
	"github.com/etnz/cgtcalc/date"
)

// AuditMarkdown renders the full calculation trail: one section per day of
// the tax year with activity, one subsection per buy or sell event, one
// table row per matched slice.
func AuditMarkdown(r *cgtcalc.CapitalGainsReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Calculation Trail %d/%d\n\n", r.TaxYear, r.TaxYear+1)

	for _, dayIndex := range slices.Sorted(maps.Keys(r.CalculationLog)) {
		events := r.CalculationLog[dayIndex]
		fmt.Fprintf(&b, "## %s\n\n", date.FromIndex(dayIndex))
		for _, event := range slices.Sorted(maps.Keys(events)) {
			kind, symbol, _ := strings.Cut(event, "$")
			switch kind {
			case "buy":
				fmt.Fprintf(&b, "### Acquisition of %s\n\n", symbol)
			case "sell":
				fmt.Fprintf(&b, "### Disposal of %s\n\n", symbol)
			default:
				fmt.Fprintf(&b, "### %s\n\n", event)
			}
			writeEntries(&b, kind, events[event])
		}
	}

	return b.String()
}

func writeEntries(b *strings.Builder, kind string, entries []cgtcalc.CalculationEntry) {
	if kind == "sell" {
		fmt.Fprintln(b, "| Rule | Quantity | Proceeds | Allowable Cost | Gain | Pool Quantity | Pool Cost |")
		fmt.Fprintln(b, "|:---|---:|---:|---:|---:|---:|---:|")
		for _, e := range entries {
			rule := e.Rule.Name()
			if e.BedAndBreakfastDayIndex != 0 {
				rule = fmt.Sprintf("%s (acquired %s)", rule, date.FromIndex(e.BedAndBreakfastDayIndex))
			}
			fmt.Fprintf(b, "| %s | %s | %s | %s | %s | %s | %s |\n",
				rule,
				e.Quantity.Round(4),
				e.Amount.Round(2),
				e.AllowableCost.Round(2),
				e.Gain.Round(2).SignedString(),
				e.NewQuantity.Round(4),
				e.NewPoolCost.Round(2),
			)
		}
		fmt.Fprintln(b)
		return
	}
	fmt.Fprintln(b, "| Rule | Quantity | Cost Added | Pool Quantity | Pool Cost |")
	fmt.Fprintln(b, "|:---|---:|---:|---:|---:|")
	for _, e := range entries {
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			e.Rule.Name(),
			e.Quantity.Round(4),
			e.Amount.Neg().Round(2),
			e.NewQuantity.Round(4),
			e.NewPoolCost.Round(2),
		)
	}
	fmt.Fprintln(b)
}
