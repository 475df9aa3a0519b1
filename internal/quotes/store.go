package quotes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/voltquote/internal/pricing"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// store persists quotes. Timestamps are stored as RFC3339 UTC text, which
// sorts and compares correctly as strings.
type store struct {
	db DBTX
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func parseNullTime(raw sql.NullString) (*time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	t, err := parseTime(raw.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// nextReference returns QT-<year>-<NNNN>, numbering quotes per calendar year.
func (s store) nextReference(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("QT-%d-", year)
	var last int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(CAST(substr(reference, ?) AS INTEGER)), 0)
		FROM quotes
		WHERE reference LIKE ?
	`, len(prefix)+1, prefix+"%").Scan(&last)
	if err != nil {
		return "", fmt.Errorf("query last quote reference: %w", err)
	}
	return fmt.Sprintf("%s%04d", prefix, last+1), nil
}

func (s store) insert(ctx context.Context, q Quote) error {
	customerJSON, tariffJSON, pricingJSON, err := encodeQuote(q)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (
			id, company_id, installer_id, installer_name, reference, status, installation_type,
			customer_name, customer_json, tariff_json, installation_cost, pricing_json, total, margin,
			notes, valid_until, created_at, updated_at, sent_at, viewed_at, accepted_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		q.ID, q.CompanyID, q.InstallerID, q.InstallerName, q.Reference, string(q.Status), string(q.InstallationType),
		q.Customer.Name, customerJSON, tariffJSON, q.InstallationCost, pricingJSON, q.Pricing.Total, q.Pricing.Margin,
		q.Notes, formatTime(q.ValidUntil), formatTime(q.CreatedAt), formatTime(q.UpdatedAt),
		nullTime(q.SentAt), nullTime(q.ViewedAt), nullTime(q.AcceptedAt),
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return s.insertLineItems(ctx, q.ID, q.LineItems)
}

// replaceContent rewrites the editable content and pricing of a draft quote.
func (s store) replaceContent(ctx context.Context, q Quote) error {
	customerJSON, tariffJSON, pricingJSON, err := encodeQuote(q)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE quotes
		SET
			installation_type = ?,
			customer_name = ?,
			customer_json = ?,
			tariff_json = ?,
			installation_cost = ?,
			pricing_json = ?,
			total = ?,
			margin = ?,
			notes = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`,
		string(q.InstallationType), q.Customer.Name, customerJSON, tariffJSON, q.InstallationCost,
		pricingJSON, q.Pricing.Total, q.Pricing.Margin, q.Notes, formatTime(q.UpdatedAt),
		q.ID, string(StatusDraft),
	)
	if err != nil {
		return fmt.Errorf("update quote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotEditable
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM quote_line_items WHERE quote_id = ?`, q.ID); err != nil {
		return fmt.Errorf("delete quote line items: %w", err)
	}
	return s.insertLineItems(ctx, q.ID, q.LineItems)
}

func (s store) insertLineItems(ctx context.Context, quoteID string, items []pricing.LineItem) error {
	for i, item := range items {
		var productID any
		if item.ProductID != "" {
			productID = item.ProductID
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO quote_line_items (
				id, quote_id, position, kind, product_id, description, quantity, unit_price, cost_price
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, quoteID, i, string(item.Kind), productID, item.Description, item.Quantity, item.UnitPrice, item.CostPrice)
		if err != nil {
			return fmt.Errorf("insert quote line item %d: %w", i, err)
		}
	}
	return nil
}

// updateStatus moves a quote from one status to another, stamping the matching
// timestamp column. It reports false when the quote was no longer in from.
func (s store) updateStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error) {
	stamp := formatTime(at)
	next := string(to)
	result, err := s.db.ExecContext(ctx, `
		UPDATE quotes
		SET
			status = ?,
			updated_at = ?,
			sent_at = CASE WHEN ? = 'sent' THEN ? ELSE sent_at END,
			viewed_at = CASE WHEN ? = 'viewed' THEN ? ELSE viewed_at END,
			accepted_at = CASE WHEN ? = 'accepted' THEN ? ELSE accepted_at END
		WHERE id = ? AND status = ?
	`, next, stamp, next, stamp, next, stamp, next, stamp, id, string(from))
	if err != nil {
		return false, fmt.Errorf("update quote status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// expireOverdue marks sent and viewed quotes whose validity ended before now.
func (s store) expireOverdue(ctx context.Context, now time.Time) (int64, error) {
	stamp := formatTime(now)
	result, err := s.db.ExecContext(ctx, `
		UPDATE quotes
		SET status = ?, updated_at = ?
		WHERE status IN (?, ?) AND valid_until < ?
	`, string(StatusExpired), stamp, string(StatusSent), string(StatusViewed), stamp)
	if err != nil {
		return 0, fmt.Errorf("expire overdue quotes: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

func (s store) get(ctx context.Context, companyID, id string) (Quote, error) {
	var q Quote
	var customerJSON, tariffJSON, pricingJSON string
	var validUntil, createdAt, updatedAt string
	var sentAt, viewedAt, acceptedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id, company_id, installer_id, installer_name, reference, status, installation_type,
			customer_json, tariff_json, installation_cost, pricing_json, notes,
			valid_until, created_at, updated_at, sent_at, viewed_at, accepted_at
		FROM quotes
		WHERE id = ? AND company_id = ?
	`, id, companyID).Scan(
		&q.ID, &q.CompanyID, &q.InstallerID, &q.InstallerName, &q.Reference, &q.Status, &q.InstallationType,
		&customerJSON, &tariffJSON, &q.InstallationCost, &pricingJSON, &q.Notes,
		&validUntil, &createdAt, &updatedAt, &sentAt, &viewedAt, &acceptedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Quote{}, ErrNotFound
	}
	if err != nil {
		return Quote{}, fmt.Errorf("query quote: %w", err)
	}

	if err := json.Unmarshal([]byte(customerJSON), &q.Customer); err != nil {
		return Quote{}, fmt.Errorf("decode quote customer: %w", err)
	}
	if err := json.Unmarshal([]byte(tariffJSON), &q.Tariff); err != nil {
		return Quote{}, fmt.Errorf("decode quote tariff: %w", err)
	}
	if err := json.Unmarshal([]byte(pricingJSON), &q.Pricing); err != nil {
		return Quote{}, fmt.Errorf("decode quote pricing: %w", err)
	}
	if q.ValidUntil, err = parseTime(validUntil); err != nil {
		return Quote{}, err
	}
	if q.CreatedAt, err = parseTime(createdAt); err != nil {
		return Quote{}, err
	}
	if q.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Quote{}, err
	}
	if q.SentAt, err = parseNullTime(sentAt); err != nil {
		return Quote{}, err
	}
	if q.ViewedAt, err = parseNullTime(viewedAt); err != nil {
		return Quote{}, err
	}
	if q.AcceptedAt, err = parseNullTime(acceptedAt); err != nil {
		return Quote{}, err
	}

	q.LineItems, err = s.lineItems(ctx, q.ID)
	if err != nil {
		return Quote{}, err
	}
	return q, nil
}

func (s store) lineItems(ctx context.Context, quoteID string) ([]pricing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, COALESCE(product_id, ''), description, quantity, unit_price, cost_price
		FROM quote_line_items
		WHERE quote_id = ?
		ORDER BY position
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote line items: %w", err)
	}
	defer rows.Close()

	items := make([]pricing.LineItem, 0)
	for rows.Next() {
		var item pricing.LineItem
		if err := rows.Scan(&item.ID, &item.Kind, &item.ProductID, &item.Description, &item.Quantity, &item.UnitPrice, &item.CostPrice); err != nil {
			return nil, fmt.Errorf("scan quote line item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote line items: %w", err)
	}
	return items, nil
}

// list returns the company's quotes, newest first, optionally filtered by a
// substring of the reference, customer name or notes.
func (s store) list(ctx context.Context, companyID, query string) ([]Summary, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, reference, status, customer_name, total, notes, valid_until, created_at
		FROM quotes
		WHERE company_id = ?
			AND (? = '' OR reference LIKE ? OR customer_name LIKE ? OR notes LIKE ?)
		ORDER BY created_at DESC, reference DESC
	`, companyID, query, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	out := make([]Summary, 0)
	for rows.Next() {
		var item Summary
		var validUntil, createdAt string
		if err := rows.Scan(&item.ID, &item.Reference, &item.Status, &item.CustomerName, &item.Total, &item.Notes, &validUntil, &createdAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		if item.ValidUntil, err = parseTime(validUntil); err != nil {
			return nil, err
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return out, nil
}

func (s store) stats(ctx context.Context, companyID string) (Stats, error) {
	var st Stats
	var totalValue float64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('sent', 'viewed') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN total ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN margin ELSE 0 END), 0),
			COALESCE(SUM(total), 0)
		FROM quotes
		WHERE company_id = ?
	`, companyID).Scan(
		&st.TotalQuotes, &st.DraftQuotes, &st.AcceptedQuotes, &st.PendingQuotes,
		&st.TotalRevenue, &st.TotalMargin, &totalValue,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("query quote stats: %w", err)
	}
	if st.TotalQuotes > 0 {
		st.AverageValue = math.Round(totalValue/float64(st.TotalQuotes)*100) / 100
		st.ConversionRate = math.Round(float64(st.AcceptedQuotes)/float64(st.TotalQuotes)*1000) / 10
	}
	return st, nil
}

func encodeQuote(q Quote) (customerJSON, tariffJSON, pricingJSON string, err error) {
	c, err := json.Marshal(q.Customer)
	if err != nil {
		return "", "", "", fmt.Errorf("encode quote customer: %w", err)
	}
	t, err := json.Marshal(q.Tariff)
	if err != nil {
		return "", "", "", fmt.Errorf("encode quote tariff: %w", err)
	}
	p, err := json.Marshal(q.Pricing)
	if err != nil {
		return "", "", "", fmt.Errorf("encode quote pricing: %w", err)
	}
	return string(c), string(t), string(p), nil
}

// assignLineItemIDs gives every line without an id a fresh one.
func assignLineItemIDs(items []pricing.LineItem) []pricing.LineItem {
	out := make([]pricing.LineItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}
