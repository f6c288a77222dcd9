package services

import (
	"courier-dispatch-service/internal/domain"
	"fmt"
	"math"
)

const (
	EarthRadiusKm = 6371.0

	DefaultPricePerKg = 2.5
	PricePerKm        = 0.5
	InsuranceFee      = 5.0

	// Base travel time before the urgency factor is applied.
	MinutesPerKm = 5.0
)

// HaversineKm returns the great-circle distance between a and b.
// It approximates road distance; no routing is involved.
func HaversineKm(a, b domain.GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ComputeQuote derives distance, cost and ETA for a delivery.
//
//	cost = (weightKg*pricePerKg + distanceKm*PricePerKm) * urgencyMultiplier + insuranceFee
//	eta  = round(distanceKm*MinutesPerKm * urgencyTimeFactor), at least 1
//
// A nil point is unresolved. A non-positive PricePerKg in params falls back
// to DefaultPricePerKg. The function is pure.
func ComputeQuote(
	pickup *domain.GeoPoint,
	delivery *domain.GeoPoint,
	pkg domain.PackageSpec,
	params domain.PricingParameters,
) (domain.Quote, error) {
	if !(pkg.WeightKg > 0) || math.IsInf(pkg.WeightKg, 0) {
		return domain.Quote{}, fmt.Errorf("compute quote: weight %v kg: %w", pkg.WeightKg, domain.ErrInvalidWeight)
	}
	if pickup == nil || delivery == nil {
		return domain.Quote{}, fmt.Errorf("compute quote: unresolved address: %w", domain.ErrMissingCoordinates)
	}
	if err := pickup.Validate(); err != nil {
		return domain.Quote{}, fmt.Errorf("compute quote: pickup: %v: %w", err, domain.ErrMissingCoordinates)
	}
	if err := delivery.Validate(); err != nil {
		return domain.Quote{}, fmt.Errorf("compute quote: delivery: %v: %w", err, domain.ErrMissingCoordinates)
	}
	if !pkg.Urgency.Valid() {
		return domain.Quote{}, fmt.Errorf("compute quote: urgency %q: %w", pkg.Urgency, domain.ErrInvalidInput)
	}

	pricePerKg := params.PricePerKg
	if !(pricePerKg > 0) {
		pricePerKg = DefaultPricePerKg
	}

	distanceKm := HaversineKm(*pickup, *delivery)

	cost := (pkg.WeightKg*pricePerKg + distanceKm*PricePerKm) * pkg.Urgency.CostMultiplier()
	if pkg.Insured {
		cost += InsuranceFee
	}

	eta := int(math.Round(distanceKm * MinutesPerKm * pkg.Urgency.TimeFactor()))
	if eta < 1 {
		eta = 1
	}

	return domain.Quote{
		DistanceKm: distanceKm,
		CostAmount: cost,
		EtaMinutes: eta,
	}, nil
}
