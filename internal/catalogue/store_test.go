package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Simplici0/voltquote/internal/db"
	"github.com/Simplici0/voltquote/internal/migrations"
	"github.com/Simplici0/voltquote/internal/pricing"
)

const sampleCatalogue = `
manufacturers:
  - name: GivEnergy
    website: https://givenergy.co.uk
    batteries:
      - model: All-in-One 13.5
        capacity_kwh: 13.5
        power_kw: 6
        chemistry: LFP
        warranty_years: 12
        cycle_life: 6000
        efficiency: 0.93
        cost_price: 4200
        rrp: 6500
      - model: Giv-Bat 9.5
        capacity_kwh: 9.5
        power_kw: 3.6
        cost_price: 2900
        rrp: 4400
    inverters:
      - model: Gen3 Hybrid 5kW
        power_kw: 5
        phases: 1
        efficiency: 0.97
        cost_price: 800
        rrp: 1200
  - name: Tesla
    batteries:
      - model: Powerwall 3
        capacity_kwh: 13.5
        power_kw: 11.5
        cost_price: 5500
        rrp: 8000
`

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "catalogue-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func importSample(t *testing.T, store *Store) {
	t.Helper()

	f, err := ParseFile([]byte(sampleCatalogue))
	if err != nil {
		t.Fatalf("parse catalogue: %v", err)
	}
	if _, err := store.Import(context.Background(), f); err != nil {
		t.Fatalf("import catalogue: %v", err)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	store := NewStore(openTestDB(t))
	f, err := ParseFile([]byte(sampleCatalogue))
	if err != nil {
		t.Fatalf("parse catalogue: %v", err)
	}

	stats, err := store.Import(context.Background(), f)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if stats.Manufacturers != 2 || stats.Batteries != 3 || stats.Inverters != 1 {
		t.Fatalf("unexpected first import stats: %+v", stats)
	}

	stats, err = store.Import(context.Background(), f)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if stats.Total() != 0 {
		t.Fatalf("expected second import to insert nothing, got %+v", stats)
	}
}

func TestListBatteriesOrderAndManufacturerName(t *testing.T) {
	store := NewStore(openTestDB(t))
	importSample(t, store)

	batteries, err := store.ListBatteries(context.Background(), true)
	if err != nil {
		t.Fatalf("list batteries: %v", err)
	}
	if len(batteries) != 3 {
		t.Fatalf("expected 3 batteries, got %d", len(batteries))
	}
	want := []string{"Giv-Bat 9.5", "All-in-One 13.5", "Powerwall 3"}
	for i, b := range batteries {
		if b.Model != want[i] {
			t.Fatalf("battery %d: expected %q, got %q", i, want[i], b.Model)
		}
	}
	if batteries[2].ManufacturerName != "Tesla" {
		t.Fatalf("expected manufacturer name Tesla, got %q", batteries[2].ManufacturerName)
	}
}

func TestInactiveBatteryHiddenFromListButStillResolvesCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	importSample(t, store)

	batteries, err := store.ListBatteries(ctx, true)
	if err != nil {
		t.Fatalf("list batteries: %v", err)
	}
	retired := batteries[0]
	retired.Active = false
	if _, err := store.UpdateBattery(ctx, retired); err != nil {
		t.Fatalf("update battery: %v", err)
	}

	active, err := store.ListBatteries(ctx, true)
	if err != nil {
		t.Fatalf("list active batteries: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active batteries, got %d", len(active))
	}
	all, err := store.ListBatteries(ctx, false)
	if err != nil {
		t.Fatalf("list all batteries: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 batteries in total, got %d", len(all))
	}

	table, err := store.CapacityTable(ctx)
	if err != nil {
		t.Fatalf("capacity table: %v", err)
	}
	capacity, ok := table.ResolveBatteryCapacity(retired.ID)
	if !ok || capacity != 9.5 {
		t.Fatalf("expected retired battery to resolve 9.5 kWh, got %v (ok=%v)", capacity, ok)
	}
}

func TestCapacityTableFeedsPricing(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	importSample(t, store)

	batteries, err := store.ListBatteries(ctx, true)
	if err != nil {
		t.Fatalf("list batteries: %v", err)
	}
	table, err := store.CapacityTable(ctx)
	if err != nil {
		t.Fatalf("capacity table: %v", err)
	}

	line := batteries[1].LineItem()
	line.Quantity = 2
	if line.Description != "GivEnergy All-in-One 13.5" {
		t.Fatalf("unexpected description %q", line.Description)
	}
	if got := pricing.BatteryCapacity([]pricing.LineItem{line}, table); got != 27 {
		t.Fatalf("expected 27 kWh, got %v", got)
	}
}

func TestProductLineCopiesCataloguePrices(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	importSample(t, store)

	batteries, err := store.ListBatteries(ctx, true)
	if err != nil {
		t.Fatalf("list batteries: %v", err)
	}
	inverters, err := store.ListInverters(ctx, true)
	if err != nil {
		t.Fatalf("list inverters: %v", err)
	}

	line, ok, err := store.ProductLine(ctx, pricing.KindBattery, batteries[1].ID)
	if err != nil || !ok {
		t.Fatalf("battery line: ok=%v err=%v", ok, err)
	}
	if line.UnitPrice != 6500 || line.CostPrice != 4200 || line.Description != "GivEnergy All-in-One 13.5" || line.Quantity != 1 {
		t.Fatalf("unexpected battery line: %+v", line)
	}

	line, ok, err = store.ProductLine(ctx, pricing.KindInverter, inverters[0].ID)
	if err != nil || !ok {
		t.Fatalf("inverter line: ok=%v err=%v", ok, err)
	}
	if line.Kind != pricing.KindInverter || line.UnitPrice != 1200 || line.CostPrice != 800 || line.Description != "GivEnergy Gen3 Hybrid 5kW" {
		t.Fatalf("unexpected inverter line: %+v", line)
	}

	for _, tt := range []struct {
		kind pricing.Kind
		id   string
	}{
		{pricing.KindBattery, inverters[0].ID},
		{pricing.KindInverter, "does-not-exist"},
		{pricing.KindOther, batteries[1].ID},
	} {
		if _, ok, err := store.ProductLine(ctx, tt.kind, tt.id); ok || err != nil {
			t.Fatalf("%s %s: expected no product, got ok=%v err=%v", tt.kind, tt.id, ok, err)
		}
	}
}

func TestUpdateMissingProductReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewStore(openTestDB(t))
	importSample(t, store)

	inverters, err := store.ListInverters(ctx, false)
	if err != nil {
		t.Fatalf("list inverters: %v", err)
	}
	missing := inverters[0]
	missing.ID = "does-not-exist"
	if _, err := store.UpdateInverter(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetBattery(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateBatteryRejectsInvalidInput(t *testing.T) {
	store := NewStore(openTestDB(t))
	_, err := store.CreateBattery(context.Background(), Battery{
		ManufacturerID: "m1",
		Model:          "Zero",
		CapacityKWh:    0,
		PowerKW:        3,
	})
	if err == nil {
		t.Fatal("expected validation error for zero capacity")
	}
}

func TestParseFileRequiresManufacturerName(t *testing.T) {
	if _, err := ParseFile([]byte("manufacturers:\n  - website: x\n")); err == nil {
		t.Fatal("expected error for unnamed manufacturer")
	}
}
