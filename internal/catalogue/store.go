package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

// Store reads and writes the product catalogue.
type Store struct {
	db  DBTX
	now func() time.Time
}

func NewStore(db DBTX) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func (s *Store) CreateManufacturer(ctx context.Context, m Manufacturer) (Manufacturer, error) {
	if m.Name == "" {
		return Manufacturer{}, errors.New("name is required")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manufacturers (id, name, website, support_email, support_phone, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Website, m.SupportEmail, m.SupportPhone, m.Active)
	if err != nil {
		return Manufacturer{}, fmt.Errorf("insert manufacturer: %w", err)
	}
	return m, nil
}

// ManufacturerByName returns ErrNotFound when no manufacturer has that name.
func (s *Store) ManufacturerByName(ctx context.Context, name string) (Manufacturer, error) {
	var m Manufacturer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, website, support_email, support_phone, is_active
		FROM manufacturers
		WHERE name = ?
	`, name).Scan(&m.ID, &m.Name, &m.Website, &m.SupportEmail, &m.SupportPhone, &m.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return Manufacturer{}, ErrNotFound
	}
	if err != nil {
		return Manufacturer{}, fmt.Errorf("query manufacturer: %w", err)
	}
	return m, nil
}

func (s *Store) ListManufacturers(ctx context.Context) ([]Manufacturer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, website, support_email, support_phone, is_active
		FROM manufacturers
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("query manufacturers: %w", err)
	}
	defer rows.Close()

	out := make([]Manufacturer, 0)
	for rows.Next() {
		var m Manufacturer
		if err := rows.Scan(&m.ID, &m.Name, &m.Website, &m.SupportEmail, &m.SupportPhone, &m.Active); err != nil {
			return nil, fmt.Errorf("scan manufacturer: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate manufacturers: %w", err)
	}
	return out, nil
}

func (s *Store) CreateBattery(ctx context.Context, b Battery) (Battery, error) {
	if err := b.Validate(); err != nil {
		return Battery{}, err
	}
	if err := s.requireManufacturer(ctx, b.ManufacturerID); err != nil {
		return Battery{}, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO battery_products (
			id, manufacturer_id, model, capacity_kwh, power_kw, chemistry,
			warranty_years, cycle_life, efficiency, cost_price, rrp, is_active, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.ManufacturerID, b.Model, b.CapacityKWh, b.PowerKW, b.Chemistry,
		b.WarrantyYears, b.CycleLife, b.Efficiency, b.CostPrice, b.RRP, b.Active, s.timestamp())
	if err != nil {
		return Battery{}, fmt.Errorf("insert battery product: %w", err)
	}
	return s.GetBattery(ctx, b.ID)
}

func (s *Store) UpdateBattery(ctx context.Context, b Battery) (Battery, error) {
	if err := b.Validate(); err != nil {
		return Battery{}, err
	}
	if err := s.requireManufacturer(ctx, b.ManufacturerID); err != nil {
		return Battery{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE battery_products
		SET
			manufacturer_id = ?,
			model = ?,
			capacity_kwh = ?,
			power_kw = ?,
			chemistry = ?,
			warranty_years = ?,
			cycle_life = ?,
			efficiency = ?,
			cost_price = ?,
			rrp = ?,
			is_active = ?,
			updated_at = ?
		WHERE id = ?
	`, b.ManufacturerID, b.Model, b.CapacityKWh, b.PowerKW, b.Chemistry, b.WarrantyYears,
		b.CycleLife, b.Efficiency, b.CostPrice, b.RRP, b.Active, s.timestamp(), b.ID)
	if err != nil {
		return Battery{}, fmt.Errorf("update battery product: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return Battery{}, err
	}
	return s.GetBattery(ctx, b.ID)
}

const batterySelect = `
	SELECT b.id, b.manufacturer_id, m.name, b.model, b.capacity_kwh, b.power_kw, b.chemistry,
		b.warranty_years, b.cycle_life, b.efficiency, b.cost_price, b.rrp, b.is_active
	FROM battery_products b
	JOIN manufacturers m ON m.id = b.manufacturer_id
`

func scanBattery(row interface{ Scan(...any) error }) (Battery, error) {
	var b Battery
	err := row.Scan(&b.ID, &b.ManufacturerID, &b.ManufacturerName, &b.Model, &b.CapacityKWh, &b.PowerKW,
		&b.Chemistry, &b.WarrantyYears, &b.CycleLife, &b.Efficiency, &b.CostPrice, &b.RRP, &b.Active)
	return b, err
}

func (s *Store) GetBattery(ctx context.Context, id string) (Battery, error) {
	b, err := scanBattery(s.db.QueryRowContext(ctx, batterySelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Battery{}, ErrNotFound
	}
	if err != nil {
		return Battery{}, fmt.Errorf("query battery product: %w", err)
	}
	return b, nil
}

// ListBatteries returns batteries ordered by manufacturer and capacity.
func (s *Store) ListBatteries(ctx context.Context, activeOnly bool) ([]Battery, error) {
	rows, err := s.db.QueryContext(ctx, batterySelect+`
		WHERE (? = FALSE OR b.is_active = TRUE)
		ORDER BY m.name, b.capacity_kwh, b.model
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("query battery products: %w", err)
	}
	defer rows.Close()

	out := make([]Battery, 0)
	for rows.Next() {
		b, err := scanBattery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan battery product: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battery products: %w", err)
	}
	return out, nil
}

func (s *Store) CreateInverter(ctx context.Context, i Inverter) (Inverter, error) {
	if err := i.Validate(); err != nil {
		return Inverter{}, err
	}
	if err := s.requireManufacturer(ctx, i.ManufacturerID); err != nil {
		return Inverter{}, err
	}
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inverter_products (
			id, manufacturer_id, model, power_kw, phases, efficiency,
			warranty_years, cost_price, rrp, is_active, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, i.ID, i.ManufacturerID, i.Model, i.PowerKW, i.Phases, i.Efficiency,
		i.WarrantyYears, i.CostPrice, i.RRP, i.Active, s.timestamp())
	if err != nil {
		return Inverter{}, fmt.Errorf("insert inverter product: %w", err)
	}
	return s.GetInverter(ctx, i.ID)
}

func (s *Store) UpdateInverter(ctx context.Context, i Inverter) (Inverter, error) {
	if err := i.Validate(); err != nil {
		return Inverter{}, err
	}
	if err := s.requireManufacturer(ctx, i.ManufacturerID); err != nil {
		return Inverter{}, err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE inverter_products
		SET
			manufacturer_id = ?,
			model = ?,
			power_kw = ?,
			phases = ?,
			efficiency = ?,
			warranty_years = ?,
			cost_price = ?,
			rrp = ?,
			is_active = ?,
			updated_at = ?
		WHERE id = ?
	`, i.ManufacturerID, i.Model, i.PowerKW, i.Phases, i.Efficiency, i.WarrantyYears,
		i.CostPrice, i.RRP, i.Active, s.timestamp(), i.ID)
	if err != nil {
		return Inverter{}, fmt.Errorf("update inverter product: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return Inverter{}, err
	}
	return s.GetInverter(ctx, i.ID)
}

const inverterSelect = `
	SELECT i.id, i.manufacturer_id, m.name, i.model, i.power_kw, i.phases, i.efficiency,
		i.warranty_years, i.cost_price, i.rrp, i.is_active
	FROM inverter_products i
	JOIN manufacturers m ON m.id = i.manufacturer_id
`

func scanInverter(row interface{ Scan(...any) error }) (Inverter, error) {
	var i Inverter
	err := row.Scan(&i.ID, &i.ManufacturerID, &i.ManufacturerName, &i.Model, &i.PowerKW, &i.Phases,
		&i.Efficiency, &i.WarrantyYears, &i.CostPrice, &i.RRP, &i.Active)
	return i, err
}

func (s *Store) GetInverter(ctx context.Context, id string) (Inverter, error) {
	i, err := scanInverter(s.db.QueryRowContext(ctx, inverterSelect+` WHERE i.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Inverter{}, ErrNotFound
	}
	if err != nil {
		return Inverter{}, fmt.Errorf("query inverter product: %w", err)
	}
	return i, nil
}

func (s *Store) ListInverters(ctx context.Context, activeOnly bool) ([]Inverter, error) {
	rows, err := s.db.QueryContext(ctx, inverterSelect+`
		WHERE (? = FALSE OR i.is_active = TRUE)
		ORDER BY m.name, i.power_kw, i.model
	`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("query inverter products: %w", err)
	}
	defer rows.Close()

	out := make([]Inverter, 0)
	for rows.Next() {
		i, err := scanInverter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inverter product: %w", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inverter products: %w", err)
	}
	return out, nil
}

// CapacityTable snapshots every battery's rated capacity, inactive ones
// included, so stored quotes referencing retired products still price.
func (s *Store) CapacityTable(ctx context.Context) (pricing.CapacityTable, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, capacity_kwh FROM battery_products`)
	if err != nil {
		return nil, fmt.Errorf("query battery capacities: %w", err)
	}
	defer rows.Close()

	table := make(pricing.CapacityTable)
	for rows.Next() {
		var id string
		var capacity float64
		if err := rows.Scan(&id, &capacity); err != nil {
			return nil, fmt.Errorf("scan battery capacity: %w", err)
		}
		table[id] = capacity
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate battery capacities: %w", err)
	}
	return table, nil
}

// ProductLine returns the quote line for a battery or inverter, inactive ones
// included. ok is false when no product of that kind has the id.
func (s *Store) ProductLine(ctx context.Context, kind pricing.Kind, id string) (pricing.LineItem, bool, error) {
	var (
		line pricing.LineItem
		err  error
	)
	switch kind {
	case pricing.KindBattery:
		var b Battery
		b, err = s.GetBattery(ctx, id)
		line = b.LineItem()
	case pricing.KindInverter:
		var i Inverter
		i, err = s.GetInverter(ctx, id)
		line = i.LineItem()
	default:
		return pricing.LineItem{}, false, nil
	}
	if errors.Is(err, ErrNotFound) {
		return pricing.LineItem{}, false, nil
	}
	if err != nil {
		return pricing.LineItem{}, false, err
	}
	return line, true, nil
}

func (s *Store) requireManufacturer(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM manufacturers WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check manufacturer existence: %w", err)
	}
	if !exists {
		return ErrUnknownManufacturer
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
