package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Simplici0/voltquote/internal/pricing"
	"github.com/Simplici0/voltquote/internal/quotes"
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price a quote described in a YAML file without touching the database",
	Example: `  voltquote price --input quote.yaml
  voltquote price --input quote.yaml --json`,
	RunE: runPrice,
}

func init() {
	priceCmd.Flags().StringP("input", "i", "", "YAML file with the quote draft")
	priceCmd.Flags().Bool("json", false, "print the priced quote as JSON")
	_ = priceCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(priceCmd)
}

// priceInput is a quote draft plus the battery capacities its line items
// refer to, keyed by product id.
type priceInput struct {
	quotes.Draft      `yaml:",inline"`
	BatteryCapacities map[string]float64 `yaml:"battery_capacities"`
}

func loadPriceInput(path string) (priceInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return priceInput{}, fmt.Errorf("read %s: %w", path, err)
	}
	var in priceInput
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return priceInput{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := in.Draft.Validate(); err != nil {
		return priceInput{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func runPrice(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("input")
	asJSON, _ := cmd.Flags().GetBool("json")

	in, err := loadPriceInput(path)
	if err != nil {
		return err
	}
	priced := in.Draft.Price(pricing.CapacityTable(in.BatteryCapacities))

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(priced)
	}
	return writePriced(out, in.Draft, priced)
}

func writePriced(w io.Writer, d quotes.Draft, p pricing.PricedQuote) error {
	var b strings.Builder
	if d.Customer.Name != "" {
		fmt.Fprintf(&b, "Customer: %s\n", d.Customer.Name)
	}
	fmt.Fprintf(&b, "Battery capacity: %s kWh\n\n", humanize.Ftoa(p.BatteryCapacityKWh))

	fmt.Fprintf(&b, "Products      %12s\n", quotes.Pounds(p.ProductPrice))
	fmt.Fprintf(&b, "Installation  %12s\n", quotes.Pounds(p.InstallationCost))
	fmt.Fprintf(&b, "Subtotal      %12s\n", quotes.Pounds(p.Subtotal))
	fmt.Fprintf(&b, "VAT           %12s\n", quotes.Pounds(p.VATAmount))
	fmt.Fprintf(&b, "Total         %12s\n", quotes.Pounds(p.Total))
	fmt.Fprintf(&b, "Deposit       %12s\n", quotes.Pounds(p.Deposit))
	fmt.Fprintf(&b, "Margin        %12s (%s%%)\n\n", quotes.Pounds(p.Margin), humanize.Ftoa(p.MarginPercentage))

	fmt.Fprintf(&b, "Annual savings %s", quotes.Pounds(p.AnnualSavings))
	if p.PaybackYears > 0 {
		fmt.Fprintf(&b, ", payback %s years", humanize.Ftoa(p.PaybackYears))
	}
	b.WriteString("\n")
	if len(p.Projections) > 0 {
		b.WriteString("\n")
		quotes.WriteProjection(&b, p.Projections)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
