package catalogue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/voltquote/internal/pricing"
)

var (
	// ErrNotFound is returned when a product or manufacturer does not exist.
	ErrNotFound = errors.New("catalogue: not found")
	// ErrUnknownManufacturer is returned when a product references a missing manufacturer.
	ErrUnknownManufacturer = errors.New("catalogue: manufacturer_id does not exist")
)

// Manufacturer makes batteries and inverters.
type Manufacturer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Website      string `json:"website,omitempty"`
	SupportEmail string `json:"support_email,omitempty"`
	SupportPhone string `json:"support_phone,omitempty"`
	Active       bool   `json:"is_active"`
}

// Battery is a battery storage product.
// Units: capacity kWh, power kW, efficiency 0..1, prices £.
type Battery struct {
	ID               string  `json:"id"`
	ManufacturerID   string  `json:"manufacturer_id"`
	ManufacturerName string  `json:"manufacturer_name"`
	Model            string  `json:"model"`
	CapacityKWh      float64 `json:"capacity_kwh"`
	PowerKW          float64 `json:"power_kw"`
	Chemistry        string  `json:"chemistry,omitempty"`
	WarrantyYears    int     `json:"warranty_years"`
	CycleLife        int     `json:"cycle_life"`
	Efficiency       float64 `json:"efficiency"`
	CostPrice        float64 `json:"cost_price"`
	RRP              float64 `json:"rrp"`
	Active           bool    `json:"is_active"`
}

// Inverter is a hybrid or battery inverter product.
type Inverter struct {
	ID               string  `json:"id"`
	ManufacturerID   string  `json:"manufacturer_id"`
	ManufacturerName string  `json:"manufacturer_name"`
	Model            string  `json:"model"`
	PowerKW          float64 `json:"power_kw"`
	Phases           int     `json:"phases"`
	Efficiency       float64 `json:"efficiency"`
	WarrantyYears    int     `json:"warranty_years"`
	CostPrice        float64 `json:"cost_price"`
	RRP              float64 `json:"rrp"`
	Active           bool    `json:"is_active"`
}

func (b Battery) Validate() error {
	if strings.TrimSpace(b.ManufacturerID) == "" {
		return errors.New("manufacturer_id is required")
	}
	if strings.TrimSpace(b.Model) == "" {
		return errors.New("model is required")
	}
	if b.CapacityKWh <= 0 {
		return errors.New("capacity_kwh must be > 0")
	}
	if b.PowerKW <= 0 {
		return errors.New("power_kw must be > 0")
	}
	if b.Efficiency < 0 || b.Efficiency > 1 {
		return errors.New("efficiency must be in [0, 1]")
	}
	if b.WarrantyYears < 0 || b.CycleLife < 0 {
		return errors.New("warranty_years and cycle_life must be >= 0")
	}
	return validatePrices(b.CostPrice, b.RRP)
}

func (i Inverter) Validate() error {
	if strings.TrimSpace(i.ManufacturerID) == "" {
		return errors.New("manufacturer_id is required")
	}
	if strings.TrimSpace(i.Model) == "" {
		return errors.New("model is required")
	}
	if i.PowerKW <= 0 {
		return errors.New("power_kw must be > 0")
	}
	if i.Phases != 1 && i.Phases != 3 {
		return errors.New("phases must be 1 or 3")
	}
	if i.Efficiency < 0 || i.Efficiency > 1 {
		return errors.New("efficiency must be in [0, 1]")
	}
	if i.WarrantyYears < 0 {
		return errors.New("warranty_years must be >= 0")
	}
	return validatePrices(i.CostPrice, i.RRP)
}

func validatePrices(cost, rrp float64) error {
	if cost < 0 {
		return errors.New("cost_price must be >= 0")
	}
	if rrp < 0 {
		return errors.New("rrp must be >= 0")
	}
	return nil
}

// LineItem builds the quote line added when an installer picks this battery.
func (b Battery) LineItem() pricing.LineItem {
	return pricing.LineItem{
		Kind:        pricing.KindBattery,
		ProductID:   b.ID,
		Description: fmt.Sprintf("%s %s", b.ManufacturerName, b.Model),
		Quantity:    1,
		UnitPrice:   b.RRP,
		CostPrice:   b.CostPrice,
	}
}

// LineItem builds the quote line added when an installer picks this inverter.
func (i Inverter) LineItem() pricing.LineItem {
	return pricing.LineItem{
		Kind:        pricing.KindInverter,
		ProductID:   i.ID,
		Description: fmt.Sprintf("%s %s", i.ManufacturerName, i.Model),
		Quantity:    1,
		UnitPrice:   i.RRP,
		CostPrice:   i.CostPrice,
	}
}
