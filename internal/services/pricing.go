package services

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/ports"
	"fmt"
)

// StaticPricing serves a fixed price per kg, typically from configuration.
type StaticPricing struct {
	PricePerKg float64
}

func (p StaticPricing) PricingParameters(ctx context.Context) (domain.PricingParameters, error) {
	if !(p.PricePerKg > 0) {
		return domain.PricingParameters{}, fmt.Errorf("static pricing: price per kg %v: %w", p.PricePerKg, domain.ErrInvalidInput)
	}
	return domain.PricingParameters{PricePerKg: p.PricePerKg}, nil
}

// FallbackPricing asks Primary first and uses Fallback when it fails.
type FallbackPricing struct {
	Primary  ports.PricingSource
	Fallback ports.PricingSource
}

func (p FallbackPricing) PricingParameters(ctx context.Context) (domain.PricingParameters, error) {
	params, err := p.Primary.PricingParameters(ctx)
	if err == nil && params.PricePerKg > 0 {
		return params, nil
	}
	if p.Fallback == nil {
		if err == nil {
			err = fmt.Errorf("price per kg %v: %w", params.PricePerKg, domain.ErrInvalidInput)
		}
		return domain.PricingParameters{}, fmt.Errorf("pricing parameters: %w", err)
	}
	return p.Fallback.PricingParameters(ctx)
}
