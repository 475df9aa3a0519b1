package catalogue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk catalogue used to seed a fresh database.
type File struct {
	Manufacturers []FileManufacturer `yaml:"manufacturers"`
}

type FileManufacturer struct {
	Name         string         `yaml:"name"`
	Website      string         `yaml:"website"`
	SupportEmail string         `yaml:"support_email"`
	SupportPhone string         `yaml:"support_phone"`
	Batteries    []FileBattery  `yaml:"batteries"`
	Inverters    []FileInverter `yaml:"inverters"`
}

type FileBattery struct {
	Model         string  `yaml:"model"`
	CapacityKWh   float64 `yaml:"capacity_kwh"`
	PowerKW       float64 `yaml:"power_kw"`
	Chemistry     string  `yaml:"chemistry"`
	WarrantyYears int     `yaml:"warranty_years"`
	CycleLife     int     `yaml:"cycle_life"`
	Efficiency    float64 `yaml:"efficiency"`
	CostPrice     float64 `yaml:"cost_price"`
	RRP           float64 `yaml:"rrp"`
}

type FileInverter struct {
	Model         string  `yaml:"model"`
	PowerKW       float64 `yaml:"power_kw"`
	Phases        int     `yaml:"phases"`
	Efficiency    float64 `yaml:"efficiency"`
	WarrantyYears int     `yaml:"warranty_years"`
	CostPrice     float64 `yaml:"cost_price"`
	RRP           float64 `yaml:"rrp"`
}

// ImportStats counts rows written by Import.
type ImportStats struct {
	Manufacturers int
	Batteries     int
	Inverters     int
}

// Total is the number of rows inserted.
func (s ImportStats) Total() int {
	return s.Manufacturers + s.Batteries + s.Inverters
}

// LoadFile parses a YAML catalogue file.
func LoadFile(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read catalogue file: %w", err)
	}
	return ParseFile(raw)
}

func ParseFile(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("parse catalogue file: %w", err)
	}
	for i, m := range f.Manufacturers {
		if m.Name == "" {
			return File{}, fmt.Errorf("manufacturers[%d]: name is required", i)
		}
	}
	return f, nil
}

// Import inserts manufacturers and products that are not present yet.
// Products are matched by manufacturer and model, so running it twice is a no-op
// and never overwrites prices edited through the admin API.
func (s *Store) Import(ctx context.Context, f File) (ImportStats, error) {
	var stats ImportStats
	for _, fm := range f.Manufacturers {
		m, err := s.ManufacturerByName(ctx, fm.Name)
		if errors.Is(err, ErrNotFound) {
			m, err = s.CreateManufacturer(ctx, Manufacturer{
				Name:         fm.Name,
				Website:      fm.Website,
				SupportEmail: fm.SupportEmail,
				SupportPhone: fm.SupportPhone,
				Active:       true,
			})
			if err != nil {
				return ImportStats{}, err
			}
			stats.Manufacturers++
		} else if err != nil {
			return ImportStats{}, err
		}

		for _, fb := range fm.Batteries {
			exists, err := s.productExists(ctx, "battery_products", m.ID, fb.Model)
			if err != nil {
				return ImportStats{}, err
			}
			if exists {
				continue
			}
			_, err = s.CreateBattery(ctx, Battery{
				ManufacturerID: m.ID,
				Model:          fb.Model,
				CapacityKWh:    fb.CapacityKWh,
				PowerKW:        fb.PowerKW,
				Chemistry:      fb.Chemistry,
				WarrantyYears:  fb.WarrantyYears,
				CycleLife:      fb.CycleLife,
				Efficiency:     fb.Efficiency,
				CostPrice:      fb.CostPrice,
				RRP:            fb.RRP,
				Active:         true,
			})
			if err != nil {
				return ImportStats{}, fmt.Errorf("%s %s: %w", fm.Name, fb.Model, err)
			}
			stats.Batteries++
		}

		for _, fi := range fm.Inverters {
			exists, err := s.productExists(ctx, "inverter_products", m.ID, fi.Model)
			if err != nil {
				return ImportStats{}, err
			}
			if exists {
				continue
			}
			_, err = s.CreateInverter(ctx, Inverter{
				ManufacturerID: m.ID,
				Model:          fi.Model,
				PowerKW:        fi.PowerKW,
				Phases:         fi.Phases,
				Efficiency:     fi.Efficiency,
				WarrantyYears:  fi.WarrantyYears,
				CostPrice:      fi.CostPrice,
				RRP:            fi.RRP,
				Active:         true,
			})
			if err != nil {
				return ImportStats{}, fmt.Errorf("%s %s: %w", fm.Name, fi.Model, err)
			}
			stats.Inverters++
		}
	}
	return stats, nil
}

// table is one of the two fixed product table names.
func (s *Store) productExists(ctx context.Context, table, manufacturerID, model string) (bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM `+table+` WHERE manufacturer_id = ? AND model = ?`,
		manufacturerID, model,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s: %w", table, err)
	}
	return true, nil
}
