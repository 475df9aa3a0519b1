package quotes

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Simplici0/voltquote/internal/pricing"
)

// Pounds formats v as £1,234.56, dropping pence on whole amounts.
func Pounds(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	if v == float64(int64(v)) {
		return sign + "£" + humanize.Comma(int64(v))
	}
	return sign + "£" + humanize.FormatFloat("#,###.##", v)
}

// RenderText renders the customer proposal as plain text. Every figure comes
// from the stored pricing; nothing is recomputed here.
func RenderText(q Quote, companyName string) string {
	var b strings.Builder
	p := q.Pricing

	fmt.Fprintf(&b, "%s\n", companyName)
	fmt.Fprintf(&b, "Battery storage proposal %s\n", q.Reference)
	fmt.Fprintf(&b, "Prepared for %s", q.Customer.Name)
	if q.Customer.Postcode != "" {
		fmt.Fprintf(&b, ", %s", q.Customer.Postcode)
	}
	fmt.Fprintf(&b, "\nValid until %s\n\n", q.ValidUntil.Format("2 January 2006"))

	b.WriteString("System\n")
	for _, item := range q.LineItems {
		fmt.Fprintf(&b, "  %-44s %3d x %10s\n", item.Description, item.Quantity, Pounds(item.UnitPrice))
	}
	if p.BatteryCapacityKWh > 0 {
		fmt.Fprintf(&b, "  Total storage capacity: %s kWh\n", humanize.Ftoa(p.BatteryCapacityKWh))
	}

	b.WriteString("\nPrice\n")
	fmt.Fprintf(&b, "  Subtotal   %12s\n", Pounds(p.Subtotal))
	fmt.Fprintf(&b, "  VAT (%s%%) %12s\n", humanize.Ftoa(p.VATRate*100), Pounds(p.VATAmount))
	fmt.Fprintf(&b, "  Total      %12s\n", Pounds(p.Total))
	fmt.Fprintf(&b, "  Deposit    %12s\n", Pounds(p.Deposit))

	b.WriteString("\nEstimated annual savings\n")
	fmt.Fprintf(&b, "  Load shifting     %10s\n", Pounds(p.LoadShiftSavings))
	if p.ExportRevenue > 0 {
		fmt.Fprintf(&b, "  Solar self-use    %10s\n", Pounds(p.ExportRevenue))
	}
	if p.EVTaxSavings > 0 {
		fmt.Fprintf(&b, "  EV charging       %10s\n", Pounds(p.EVTaxSavings))
	}
	fmt.Fprintf(&b, "  Total             %10s\n", Pounds(p.AnnualSavings))
	if p.PaybackYears > 0 {
		fmt.Fprintf(&b, "  Payback period    %s years\n", humanize.Ftoa(p.PaybackYears))
	}

	if len(p.Projections) > 0 {
		b.WriteString("\nTen year projection\n")
		WriteProjection(&b, p.Projections)
	}

	if q.Notes != "" {
		fmt.Fprintf(&b, "\nNotes\n  %s\n", q.Notes)
	}
	return b.String()
}

// WriteProjection writes one row per projection year.
func WriteProjection(b *strings.Builder, points []pricing.ProjectionPoint) {
	fmt.Fprintf(b, "  %4s %10s %12s\n", "Year", "Savings", "Cumulative")
	for _, pt := range points {
		fmt.Fprintf(b, "  %4d %10s %12s\n", pt.Year, Pounds(pt.Savings), Pounds(pt.CumulativeSavings))
	}
}
