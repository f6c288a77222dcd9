package ports

import (
	"context"
	"courier-dispatch-service/internal/domain"
)

// PricingSource supplies the externally managed tariff parameters.
type PricingSource interface {
	PricingParameters(ctx context.Context) (domain.PricingParameters, error)
}
