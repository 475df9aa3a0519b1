package pricing

import (
	"math"
)

// Savings model constants. They mirror the assumptions printed on proposals.
const (
	DaysPerYear = 365

	// Time-of-use path.
	UsableDepthOfDischarge = 0.9
	DailyCycles            = 1
	RoundTripEfficiency    = 0.8

	// Flat tariff path.
	FlatUsableFraction  = 0.8
	FlatDisplacedImport = 0.5

	// Existing solar.
	SolarYieldKWhPerKWp  = 900
	StoredExportShare    = 0.4
	SelfConsumptionShare = 0.7

	// Electric vehicle.
	EVKWhPerMile      = 0.3
	PetrolCostPerMile = 0.15

	// Projection.
	AnnualInflation = 0.03
	ProjectionYears = 10
)

// CustomerProfile is the subset of customer details the savings model uses.
// A zero SolarCapacityKWp or EVMileagePerYear means the value was not given.
type CustomerProfile struct {
	AnnualConsumptionKWh float64 `json:"annual_consumption_kwh" yaml:"annual_consumption_kwh"`
	ExistingSolar        bool    `json:"existing_solar" yaml:"existing_solar"`
	SolarCapacityKWp     float64 `json:"solar_capacity_kwp,omitempty" yaml:"solar_capacity_kwp,omitempty"`
	HasEV                bool    `json:"has_ev" yaml:"has_ev"`
	EVMileagePerYear     float64 `json:"ev_mileage_per_year,omitempty" yaml:"ev_mileage_per_year,omitempty"`
}

// Savings holds the unrounded annual savings components in £/year.
type Savings struct {
	LoadShift     float64
	ExportRevenue float64
	EVTax         float64
}

// Annual is the sum of all three components.
func (s Savings) Annual() float64 {
	return s.LoadShift + s.ExportRevenue + s.EVTax
}

// CalculateSavings estimates the annual savings of a battery of the given
// capacity. A zero capacity yields zero savings in every component.
func CalculateSavings(capacityKWh float64, tariff Tariff, customer CustomerProfile) Savings {
	if capacityKWh <= 0 {
		return Savings{}
	}

	var s Savings

	peak, offPeak, timeOfUse := tariff.TimeOfUseRates()
	if timeOfUse {
		usable := capacityKWh * UsableDepthOfDischarge
		delta := peak - offPeak
		s.LoadShift = usable * DailyCycles * DaysPerYear * delta * RoundTripEfficiency
	} else {
		s.LoadShift = capacityKWh * FlatUsableFraction * DaysPerYear * tariff.ImportRate * FlatDisplacedImport
	}

	if customer.ExistingSolar && customer.SolarCapacityKWp > 0 {
		generation := customer.SolarCapacityKWp * SolarYieldKWhPerKWp
		stored := math.Min(generation*StoredExportShare, capacityKWh*DaysPerYear)
		selfConsumed := stored * SelfConsumptionShare
		s.ExportRevenue = selfConsumed * (tariff.ImportRate - tariff.ExportRate)
	}

	if customer.HasEV && customer.EVMileagePerYear > 0 {
		rate := tariff.ImportRate
		if timeOfUse {
			rate = offPeak
		}
		evCostPerMile := EVKWhPerMile * rate
		s.EVTax = customer.EVMileagePerYear * (PetrolCostPerMile - evCostPerMile)
	}

	return s
}

// Payback returns total / annualSavings in years rounded to one decimal place,
// or 0 when there are no positive savings.
func Payback(total, annualSavings float64) float64 {
	if annualSavings <= 0 || math.IsNaN(annualSavings) || math.IsInf(annualSavings, 0) {
		return 0
	}
	return roundTo(total/annualSavings, 1)
}

// ProjectionPoint is one year of the savings projection, in whole pounds.
type ProjectionPoint struct {
	Year              int     `json:"year"`
	Savings           float64 `json:"savings"`
	CumulativeSavings float64 `json:"cumulative_savings"`
	EVTaxSavings      float64 `json:"ev_tax_savings"`
	ExportRevenue     float64 `json:"export_revenue"`
	LoadShiftSavings  float64 `json:"load_shift_savings"`
}

// Project inflates the annual savings over ProjectionYears years.
//
// Savings and CumulativeSavings cover load shifting and export revenue only;
// EV savings are reported per year but not rolled up. CumulativeSavings is the
// inflated yearly figure multiplied by the year number, not a running sum.
func Project(s Savings) []ProjectionPoint {
	base := s.LoadShift + s.ExportRevenue
	points := make([]ProjectionPoint, 0, ProjectionYears)
	for year := 1; year <= ProjectionYears; year++ {
		inflation := math.Pow(1+AnnualInflation, float64(year-1))
		points = append(points, ProjectionPoint{
			Year:              year,
			Savings:           roundTo(base*inflation, 0),
			CumulativeSavings: roundTo(base*inflation*float64(year), 0),
			EVTaxSavings:      roundTo(s.EVTax*inflation, 0),
			ExportRevenue:     roundTo(s.ExportRevenue*inflation, 0),
			LoadShiftSavings:  roundTo(s.LoadShift*inflation, 0),
		})
	}
	return points
}
