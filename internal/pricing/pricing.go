package pricing

import "github.com/shopspring/decimal"

const (
	// VATRate applies to domestic battery storage installations (zero-rated).
	VATRate = 0.0
	// DepositRate is the share of the total taken as deposit.
	DepositRate = 0.25
	// InstallationCostShare is the assumed hard-cost share of the installation price.
	InstallationCostShare = 0.6
)

// PricedQuote is the full pricing output for a quote. Money is in pounds:
// subtotal, VAT, total and margin to the penny; savings and deposit to the pound.
type PricedQuote struct {
	ProductCost        float64 `json:"product_cost"`
	ProductPrice       float64 `json:"product_price"`
	InstallationCost   float64 `json:"installation_cost"`
	Subtotal           float64 `json:"subtotal"`
	VATRate            float64 `json:"vat_rate"`
	VATAmount          float64 `json:"vat_amount"`
	Total              float64 `json:"total"`
	TotalCost          float64 `json:"total_cost"`
	Deposit            float64 `json:"deposit"`
	Margin             float64 `json:"margin"`
	MarginPercentage   float64 `json:"margin_percentage"`
	BatteryCapacityKWh float64 `json:"battery_capacity_kwh"`

	LoadShiftSavings float64 `json:"load_shift_savings"`
	ExportRevenue    float64 `json:"export_revenue"`
	EVTaxSavings     float64 `json:"ev_tax_savings"`
	AnnualSavings    float64 `json:"annual_savings"`
	PaybackYears     float64 `json:"payback_years"`

	Projections []ProjectionPoint `json:"roi_projections"`
}

// ComputeQuotePricing prices a quote from its current inputs. It never fails:
// missing or degenerate inputs resolve to zero-valued outputs. The result is
// rebuilt from scratch on every call and the inputs are not modified.
func ComputeQuotePricing(items []LineItem, installationCost float64, tariff Tariff, customer CustomerProfile, catalogue BatteryCatalogue) PricedQuote {
	totals := Aggregate(items, installationCost)

	vatRate := decimal.NewFromFloat(VATRate)
	vatAmount := totals.Subtotal.Mul(vatRate)
	total := totals.Subtotal.Add(vatAmount)
	totalCost := totals.ProductCost.Add(totals.InstallationCost.Mul(decimal.NewFromFloat(InstallationCostShare)))
	profit := total.Sub(totalCost)

	marginPct := decimal.Zero
	if total.IsPositive() {
		marginPct = profit.Div(total).Mul(decimal.NewFromInt(100))
	}
	deposit := roundHalfUp(total.Mul(decimal.NewFromFloat(DepositRate)), 0)

	capacity := BatteryCapacity(items, catalogue)
	savings := CalculateSavings(capacity, tariff, customer)
	annual := savings.Annual()

	return PricedQuote{
		ProductCost:        pence(totals.ProductCost),
		ProductPrice:       pence(totals.ProductPrice),
		InstallationCost:   pence(totals.InstallationCost),
		Subtotal:           pence(totals.Subtotal),
		VATRate:            VATRate,
		VATAmount:          pence(vatAmount),
		Total:              pence(total),
		TotalCost:          pence(totalCost),
		Deposit:            deposit.InexactFloat64(),
		Margin:             pence(profit),
		MarginPercentage:   pence(marginPct),
		BatteryCapacityKWh: capacity,

		LoadShiftSavings: roundTo(savings.LoadShift, 0),
		ExportRevenue:    roundTo(savings.ExportRevenue, 0),
		EVTaxSavings:     roundTo(savings.EVTax, 0),
		AnnualSavings:    roundTo(annual, 0),
		PaybackYears:     Payback(total.InexactFloat64(), annual),

		Projections: Project(savings),
	}
}
