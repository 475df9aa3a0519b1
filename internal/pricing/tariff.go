package pricing

import (
	"errors"
	"fmt"
	"time"
)

// Tariff describes the customer's electricity pricing in £/kWh (standing charge in £/day).
type Tariff struct {
	ImportRate     float64  `json:"import_rate" yaml:"import_rate"`
	ExportRate     float64  `json:"export_rate" yaml:"export_rate"`
	StandingCharge float64  `json:"standing_charge" yaml:"standing_charge"`
	HasTimeOfUse   bool     `json:"has_time_of_use" yaml:"has_time_of_use"`
	PeakRate       *float64 `json:"peak_rate,omitempty" yaml:"peak_rate,omitempty"`
	OffPeakRate    *float64 `json:"off_peak_rate,omitempty" yaml:"off_peak_rate,omitempty"`
	PeakHoursStart string   `json:"peak_hours_start,omitempty" yaml:"peak_hours_start,omitempty"`
	PeakHoursEnd   string   `json:"peak_hours_end,omitempty" yaml:"peak_hours_end,omitempty"`
}

const peakHoursLayout = "15:04"

// Validate reports whether the tariff is internally consistent.
// The calculator does not call it; it is used where user input is accepted.
func (t Tariff) Validate() error {
	if t.ImportRate < 0 {
		return errors.New("import_rate must be >= 0")
	}
	if t.ExportRate < 0 {
		return errors.New("export_rate must be >= 0")
	}
	if t.StandingCharge < 0 {
		return errors.New("standing_charge must be >= 0")
	}
	if t.PeakRate != nil && *t.PeakRate < 0 {
		return errors.New("peak_rate must be >= 0")
	}
	if t.OffPeakRate != nil && *t.OffPeakRate < 0 {
		return errors.New("off_peak_rate must be >= 0")
	}
	if t.HasTimeOfUse && (t.PeakRate == nil || t.OffPeakRate == nil) {
		return errors.New("peak_rate and off_peak_rate are required when has_time_of_use is set")
	}
	if err := validateClock("peak_hours_start", t.PeakHoursStart); err != nil {
		return err
	}
	return validateClock("peak_hours_end", t.PeakHoursEnd)
}

func validateClock(field, v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(peakHoursLayout, v); err != nil {
		return fmt.Errorf("%s must be HH:MM", field)
	}
	return nil
}

// TimeOfUseRates returns the peak and off-peak rates when time-of-use pricing
// applies. ok is false when the flag is off or either rate is missing or
// negative, in which case callers use the flat import rate.
func (t Tariff) TimeOfUseRates() (peak, offPeak float64, ok bool) {
	if !t.HasTimeOfUse || t.PeakRate == nil || t.OffPeakRate == nil {
		return 0, 0, false
	}
	if *t.PeakRate < 0 || *t.OffPeakRate < 0 {
		return 0, 0, false
	}
	return *t.PeakRate, *t.OffPeakRate, true
}

// Rate is a convenience for building optional tariff rates.
func Rate(v float64) *float64 {
	return &v
}
