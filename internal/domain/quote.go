package domain

// Quote is the computed distance, cost and ETA for a prospective delivery.
// It is always recomputed from its inputs and never edited in place.
type Quote struct {
	DistanceKm float64
	CostAmount float64
	EtaMinutes int
}

// PricingParameters is the externally sourced part of the tariff.
type PricingParameters struct {
	PricePerKg float64
}
