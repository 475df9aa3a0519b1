package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind discriminates quote line items.
type Kind string

const (
	KindBattery      Kind = "battery"
	KindInverter     Kind = "inverter"
	KindInstallation Kind = "installation"
	KindOther        Kind = "other"
)

// InstallationDescription is used for the installation line added to saved quotes.
const InstallationDescription = "Professional Installation & Commissioning"

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBattery, KindInverter, KindInstallation, KindOther:
		return true
	default:
		return false
	}
}

// LineItem is a single priced line of a quote.
type LineItem struct {
	ID          string  `json:"id" yaml:"id,omitempty"`
	Kind        Kind    `json:"type" yaml:"type"`
	ProductID   string  `json:"product_id,omitempty" yaml:"product_id,omitempty"`
	Description string  `json:"description" yaml:"description"`
	Quantity    int     `json:"quantity" yaml:"quantity"`
	UnitPrice   float64 `json:"unit_price" yaml:"unit_price"`
	CostPrice   float64 `json:"cost_price" yaml:"cost_price"`
}

// Validate checks the values the authoring workflow must reject before pricing.
func (li LineItem) Validate() error {
	if !li.Kind.Valid() {
		return fmt.Errorf("type %q is not one of battery, inverter, installation, other", li.Kind)
	}
	if li.Quantity < 1 {
		return fmt.Errorf("quantity must be >= 1")
	}
	if li.UnitPrice < 0 {
		return fmt.Errorf("unit_price must be >= 0")
	}
	if li.CostPrice < 0 {
		return fmt.Errorf("cost_price must be >= 0")
	}
	return nil
}

// Totals are the line item sums; installation cost is tracked separately.
type Totals struct {
	ProductCost      decimal.Decimal
	ProductPrice     decimal.Decimal
	InstallationCost decimal.Decimal
	Subtotal         decimal.Decimal
}

// Aggregate sums cost and sale price over every non-installation line and adds
// the installation cost to form the subtotal.
func Aggregate(items []LineItem, installationCost float64) Totals {
	cost := decimal.Zero
	price := decimal.Zero
	for _, item := range items {
		if item.Kind == KindInstallation {
			// Priced through installationCost.
			continue
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		cost = cost.Add(money(item.CostPrice).Mul(qty))
		price = price.Add(money(item.UnitPrice).Mul(qty))
	}

	install := money(installationCost)
	return Totals{
		ProductCost:      cost,
		ProductPrice:     price,
		InstallationCost: install,
		Subtotal:         price.Add(install),
	}
}

// InstallationLine builds the installation line stored with a quote. Its cost
// price follows the same hard-cost share the margin calculation assumes.
func InstallationLine(cost float64) LineItem {
	return LineItem{
		Kind:        KindInstallation,
		Description: InstallationDescription,
		Quantity:    1,
		UnitPrice:   cost,
		CostPrice:   money(cost).Mul(decimal.NewFromFloat(InstallationCostShare)).Round(2).InexactFloat64(),
	}
}

// WithInstallationLine returns items with every installation line replaced by
// a single line priced at cost, appended last. The first replaced line keeps
// its ID. The input slice is not modified.
func WithInstallationLine(items []LineItem, cost float64) []LineItem {
	out := make([]LineItem, 0, len(items)+1)
	install := InstallationLine(cost)
	for _, item := range items {
		if item.Kind != KindInstallation {
			out = append(out, item)
			continue
		}
		if install.ID == "" {
			install.ID = item.ID
		}
	}
	return append(out, install)
}
