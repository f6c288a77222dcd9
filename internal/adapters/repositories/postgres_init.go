package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Initialize the Postgres schema used by the geocode cache and pricing source.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		address TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createPricingQuery := `
	CREATE TABLE IF NOT EXISTS pricing_parameters (
		id BIGSERIAL PRIMARY KEY,
		price_per_kg DOUBLE PRECISION NOT NULL CHECK (price_per_kg > 0),
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_pricing_parameters_created_at
	ON pricing_parameters(created_at DESC);
	`

	statements := []string{
		createGeocodeCacheQuery,
		createPricingQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type PricingSeed struct {
	PricePerKg float64 `json:"price_per_kg"`
	Note       string  `json:"note"`
}

// ReadPricingSeed parses and validates a pricing seed file.
func ReadPricingSeed(jsonPath string) ([]PricingSeed, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed pricing: read %q: %w", jsonPath, err)
	}

	var data []PricingSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed pricing: parse json: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("seed pricing: %q has no entries", jsonPath)
	}

	for i, item := range data {
		if math.IsNaN(item.PricePerKg) || item.PricePerKg <= 0 {
			return nil, fmt.Errorf("seed pricing: invalid price_per_kg at index %d: %v", i+1, item.PricePerKg)
		}
	}

	return data, nil
}

// SeedFromJSON inserts the pricing rows from jsonPath when the table is empty.
// Rows are inserted in file order, so the last entry becomes current.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	if db == nil {
		return 0, errors.New("seed pricing: DB is nil")
	}

	rows, err := ReadPricingSeed(jsonPath)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed pricing: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM pricing_parameters;`).Scan(&existing); err != nil {
		return 0, fmt.Errorf("seed pricing: count rows: %w", err)
	}
	if existing > 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pricing_parameters (price_per_kg, note)
	VALUES ($1, $2);
	`)
	if err != nil {
		return 0, fmt.Errorf("seed pricing: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range rows {
		if _, err := stmt.ExecContext(ctx, p.PricePerKg, p.Note); err != nil {
			return 0, fmt.Errorf("seed pricing: insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed pricing: commit tx: %w", err)
	}

	return len(rows), nil
}
