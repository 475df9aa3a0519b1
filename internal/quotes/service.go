package quotes

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/voltquote/internal/db"
	"github.com/Simplici0/voltquote/internal/pricing"
)

// ValidationError wraps input the quote workflow refuses to price or store.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Catalogue provides the product data used to price a quote.
type Catalogue interface {
	CapacityTable(ctx context.Context) (pricing.CapacityTable, error)
	// ProductLine returns the line a product of the given kind adds to a
	// quote. ok is false when no such product exists.
	ProductLine(ctx context.Context, kind pricing.Kind, productID string) (line pricing.LineItem, ok bool, err error)
}

// Service is the quote authoring workflow: every create or edit reprices the
// quote in full from its current inputs.
type Service struct {
	db        *sql.DB
	catalogue Catalogue
	logger    *slog.Logger
	validity  time.Duration
	now       func() time.Time
}

func NewService(database *sql.DB, catalogue Catalogue, logger *slog.Logger, validity time.Duration) *Service {
	return &Service{
		db:        database,
		catalogue: catalogue,
		logger:    logger,
		validity:  validity,
		now:       time.Now,
	}
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

// Preview prices a draft without storing it.
func (s *Service) Preview(ctx context.Context, d Draft) (pricing.PricedQuote, error) {
	d, table, err := s.prepare(ctx, d)
	if err != nil {
		return pricing.PricedQuote{}, err
	}
	return d.Price(table), nil
}

// prepare validates and normalizes a draft, completes its product lines from
// the catalogue and snapshots battery capacities for pricing.
func (s *Service) prepare(ctx context.Context, d Draft) (Draft, pricing.CapacityTable, error) {
	if err := d.Validate(); err != nil {
		return Draft{}, nil, &ValidationError{Err: err}
	}
	d = d.normalized()

	items, err := s.fillProductLines(ctx, d.LineItems)
	if err != nil {
		return Draft{}, nil, err
	}
	d.LineItems = items

	table, err := s.catalogue.CapacityTable(ctx)
	if err != nil {
		return Draft{}, nil, err
	}
	return d, table, nil
}

// fillProductLines copies RRP to unit price, cost to cost price and the
// product name to the description for battery and inverter lines that name a
// product but leave those fields empty. The input slice is not modified.
func (s *Service) fillProductLines(ctx context.Context, items []pricing.LineItem) ([]pricing.LineItem, error) {
	out := make([]pricing.LineItem, len(items))
	copy(out, items)
	for i, item := range out {
		if (item.Kind != pricing.KindBattery && item.Kind != pricing.KindInverter) || item.ProductID == "" {
			continue
		}
		if item.UnitPrice != 0 && item.CostPrice != 0 && item.Description != "" {
			continue
		}
		product, ok, err := s.catalogue.ProductLine(ctx, item.Kind, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &ValidationError{Err: fmt.Errorf("line_items[%d]: unknown %s product %q", i, item.Kind, item.ProductID)}
		}
		if item.UnitPrice == 0 {
			item.UnitPrice = product.UnitPrice
		}
		if item.CostPrice == 0 {
			item.CostPrice = product.CostPrice
		}
		if item.Description == "" {
			item.Description = product.Description
		}
		out[i] = item
	}
	return out, nil
}

// Create stores a new quote in draft or sent status with the next reference
// for the current year.
func (s *Service) Create(ctx context.Context, actor Actor, d Draft) (Quote, error) {
	d, table, err := s.prepare(ctx, d)
	if err != nil {
		return Quote{}, err
	}

	now := s.timestamp()
	q := Quote{
		ID:            uuid.NewString(),
		CompanyID:     actor.CompanyID,
		InstallerID:   actor.UserID,
		InstallerName: actor.Name,
		Status:        d.Status,
		ValidUntil:    now.Add(s.validity),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	applyDraft(&q, d, table)
	if q.Status == StatusSent {
		q.SentAt = &now
	}

	err = db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		st := store{db: tx}
		ref, err := st.nextReference(ctx, now.Year())
		if err != nil {
			return err
		}
		q.Reference = ref
		return st.insert(ctx, q)
	})
	if err != nil {
		return Quote{}, err
	}

	s.logger.Info("quote created",
		"quote_id", q.ID,
		"reference", q.Reference,
		"status", q.Status,
		"total", q.Pricing.Total,
	)
	return q, nil
}

// Update replaces the content of a draft quote and reprices it.
func (s *Service) Update(ctx context.Context, actor Actor, id string, d Draft) (Quote, error) {
	d, table, err := s.prepare(ctx, d)
	if err != nil {
		return Quote{}, err
	}

	var q Quote
	err = db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		st := store{db: tx}
		current, err := st.get(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrNotEditable
		}
		q = current
		applyDraft(&q, d, table)
		q.UpdatedAt = s.timestamp()
		return st.replaceContent(ctx, q)
	})
	if err != nil {
		return Quote{}, err
	}

	s.logger.Info("quote repriced",
		"quote_id", q.ID,
		"reference", q.Reference,
		"total", q.Pricing.Total,
	)
	return q, nil
}

func applyDraft(q *Quote, d Draft, catalogue pricing.BatteryCatalogue) {
	q.InstallationType = d.InstallationType
	q.Customer = d.Customer
	q.Tariff = d.Tariff
	q.InstallationCost = d.InstallationCost
	q.Notes = d.Notes
	q.LineItems = assignLineItemIDs(pricing.WithInstallationLine(d.LineItems, d.InstallationCost))
	q.Pricing = pricing.ComputeQuotePricing(q.LineItems, q.InstallationCost, q.Tariff, q.Customer.CustomerProfile, catalogue)
}

// Transition moves a quote along its lifecycle.
func (s *Service) Transition(ctx context.Context, actor Actor, id string, to Status) (Quote, error) {
	var q Quote
	err := db.InTx(ctx, s.db, func(tx *sql.Tx) error {
		st := store{db: tx}
		current, err := st.get(ctx, actor.CompanyID, id)
		if err != nil {
			return err
		}
		if !current.Status.CanTransition(to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, to)
		}
		ok, err := st.updateStatus(ctx, id, current.Status, to, s.timestamp())
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidTransition
		}
		q, err = st.get(ctx, actor.CompanyID, id)
		return err
	})
	if err != nil {
		return Quote{}, err
	}

	s.logger.Info("quote status changed", "quote_id", q.ID, "reference", q.Reference, "status", q.Status)
	return q, nil
}

func (s *Service) Get(ctx context.Context, companyID, id string) (Quote, error) {
	return store{db: s.db}.get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, companyID, query string) ([]Summary, error) {
	return store{db: s.db}.list(ctx, companyID, query)
}

func (s *Service) Stats(ctx context.Context, companyID string) (Stats, error) {
	return store{db: s.db}.stats(ctx, companyID)
}

// ExpireOverdue marks sent and viewed quotes past their validity as expired.
func (s *Service) ExpireOverdue(ctx context.Context) (int64, error) {
	n, err := store{db: s.db}.expireOverdue(ctx, s.timestamp())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired overdue quotes", "count", n)
	}
	return n, nil
}
