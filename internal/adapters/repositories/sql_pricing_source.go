package repositories

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNoPricing is returned when pricing_parameters has no rows.
var ErrNoPricing = errors.New("no pricing parameters stored")

// SQLPricingSource reads the most recent pricing_parameters row.
type SQLPricingSource struct{ DB *sql.DB }

func NewSQLPricingSource(db *sql.DB) *SQLPricingSource {
	return &SQLPricingSource{DB: db}
}

func (s *SQLPricingSource) PricingParameters(ctx context.Context) (_ domain.PricingParameters, err error) {
	defer obs.Time(ctx, "pricing.sql.PricingParameters")(&err)

	if s.DB == nil {
		return domain.PricingParameters{}, errors.New("sql pricing source: DB is nil")
	}

	query := `
	SELECT price_per_kg
	FROM pricing_parameters
	ORDER BY created_at DESC, id DESC
	LIMIT 1;
	`
	var pricePerKg float64
	err = s.DB.QueryRowContext(ctx, query).Scan(&pricePerKg)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PricingParameters{}, ErrNoPricing
	}
	if err != nil {
		return domain.PricingParameters{}, fmt.Errorf("pricing parameters: query: %w", err)
	}

	return domain.PricingParameters{PricePerKg: pricePerKg}, nil
}
