package quotes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Simplici0/voltquote/internal/pricing"
)

var (
	ErrNotFound          = errors.New("quotes: not found")
	ErrNotEditable       = errors.New("quotes: only draft quotes can be edited")
	ErrInvalidTransition = errors.New("quotes: invalid status transition")
)

// Status is the lifecycle position of a quote.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusViewed   Status = "viewed"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

var transitions = map[Status][]Status{
	StatusDraft:  {StatusSent},
	StatusSent:   {StatusViewed, StatusAccepted, StatusRejected, StatusExpired},
	StatusViewed: {StatusAccepted, StatusRejected, StatusExpired},
}

// CanTransition reports whether a quote in status s may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Pending reports whether the quote is with the customer awaiting a decision.
func (s Status) Pending() bool {
	return s == StatusSent || s == StatusViewed
}

type InstallationType string

const (
	Residential InstallationType = "residential"
	Commercial  InstallationType = "commercial"
)

// Customer is the contact and usage data captured on the quote form.
type Customer struct {
	Name     string `json:"name" yaml:"name"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone    string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address  string `json:"address,omitempty" yaml:"address,omitempty"`
	Postcode string `json:"postcode,omitempty" yaml:"postcode,omitempty"`

	pricing.CustomerProfile `yaml:",inline"`
}

// Quote is a persisted, priced proposal.
type Quote struct {
	ID               string              `json:"id"`
	CompanyID        string              `json:"company_id"`
	InstallerID      string              `json:"installer_id"`
	InstallerName    string              `json:"installer_name"`
	Reference        string              `json:"reference"`
	Status           Status              `json:"status"`
	InstallationType InstallationType    `json:"installation_type"`
	Customer         Customer            `json:"customer"`
	Tariff           pricing.Tariff      `json:"tariff"`
	InstallationCost float64             `json:"installation_cost"`
	LineItems        []pricing.LineItem  `json:"line_items"`
	Pricing          pricing.PricedQuote `json:"pricing"`
	Notes            string              `json:"notes"`
	ValidUntil       time.Time           `json:"valid_until"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	SentAt           *time.Time          `json:"sent_at,omitempty"`
	ViewedAt         *time.Time          `json:"viewed_at,omitempty"`
	AcceptedAt       *time.Time          `json:"accepted_at,omitempty"`
}

// Draft is the editable input of a quote.
type Draft struct {
	Status           Status             `json:"status,omitempty" yaml:"status,omitempty"`
	InstallationType InstallationType   `json:"installation_type" yaml:"installation_type"`
	Customer         Customer           `json:"customer" yaml:"customer"`
	Tariff           pricing.Tariff     `json:"tariff" yaml:"tariff"`
	InstallationCost float64            `json:"installation_cost" yaml:"installation_cost"`
	LineItems        []pricing.LineItem `json:"line_items" yaml:"line_items"`
	Notes            string             `json:"notes" yaml:"notes"`
}

// Validate rejects inputs the pricing engine would otherwise accept silently.
func (d Draft) Validate() error {
	switch d.Status {
	case "", StatusDraft, StatusSent:
	default:
		return fmt.Errorf("status must be draft or sent")
	}
	switch d.InstallationType {
	case "", Residential, Commercial:
	default:
		return fmt.Errorf("installation_type must be residential or commercial")
	}
	if strings.TrimSpace(d.Customer.Name) == "" {
		return fmt.Errorf("customer.name is required")
	}
	if d.Customer.AnnualConsumptionKWh < 0 {
		return fmt.Errorf("customer.annual_consumption_kwh must be >= 0")
	}
	if d.Customer.SolarCapacityKWp < 0 {
		return fmt.Errorf("customer.solar_capacity_kwp must be >= 0")
	}
	if d.Customer.EVMileagePerYear < 0 {
		return fmt.Errorf("customer.ev_mileage_per_year must be >= 0")
	}
	if err := d.Tariff.Validate(); err != nil {
		return fmt.Errorf("tariff: %w", err)
	}
	if d.InstallationCost < 0 {
		return fmt.Errorf("installation_cost must be >= 0")
	}
	seen := make(map[string]bool, len(d.LineItems))
	for i, item := range d.LineItems {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("line_items[%d]: %w", i, err)
		}
		if item.ID != "" {
			if seen[item.ID] {
				return fmt.Errorf("line_items[%d]: duplicate id %q", i, item.ID)
			}
			seen[item.ID] = true
		}
	}
	return nil
}

func (d Draft) normalized() Draft {
	if d.Status == "" {
		d.Status = StatusDraft
	}
	if d.InstallationType == "" {
		d.InstallationType = Residential
	}
	d.Customer.Name = strings.TrimSpace(d.Customer.Name)
	d.Notes = strings.TrimSpace(d.Notes)
	return d
}

// Price runs the pricing engine over the draft.
func (d Draft) Price(catalogue pricing.BatteryCatalogue) pricing.PricedQuote {
	return pricing.ComputeQuotePricing(d.LineItems, d.InstallationCost, d.Tariff, d.Customer.CustomerProfile, catalogue)
}

// Actor is the signed-in installer a quote is created or changed by.
type Actor struct {
	UserID    string
	CompanyID string
	Name      string
}

// Stats are the dashboard counters for one company.
type Stats struct {
	TotalQuotes    int     `json:"total_quotes"`
	DraftQuotes    int     `json:"draft_quotes"`
	AcceptedQuotes int     `json:"accepted_quotes"`
	PendingQuotes  int     `json:"pending_quotes"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalMargin    float64 `json:"total_margin"`
	AverageValue   float64 `json:"average_quote_value"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Summary is the list view of a quote.
type Summary struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Status       Status    `json:"status"`
	CustomerName string    `json:"customer_name"`
	Total        float64   `json:"total"`
	Notes        string    `json:"notes"`
	ValidUntil   time.Time `json:"valid_until"`
	CreatedAt    time.Time `json:"created_at"`
}
