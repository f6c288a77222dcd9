package services

import (
	"courier-dispatch-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cadjehoun = domain.GeoPoint{Lat: 6.3703, Lng: 2.3912}
	ganhi     = domain.GeoPoint{Lat: 6.3725, Lng: 2.3945}
	porto     = domain.GeoPoint{Lat: 6.4969, Lng: 2.6289}
)

func smallParcel(u domain.Urgency, insured bool) domain.PackageSpec {
	return domain.PackageSpec{Category: domain.CategorySmall, WeightKg: 2, Urgency: u, Insured: insured}
}

func TestHaversine(t *testing.T) {
	// 1 degree of latitude on a 6371 km sphere.
	assert.InDelta(t, 111.195, HaversineKm(domain.GeoPoint{Lat: 1, Lng: 10}, domain.GeoPoint{Lat: 2, Lng: 10}), 0.001)
	assert.Equal(t, 0.0, HaversineKm(cadjehoun, cadjehoun))
	assert.Equal(t, HaversineKm(cadjehoun, porto), HaversineKm(porto, cadjehoun))
}

func TestComputeQuoteStandard(t *testing.T) {
	q, err := ComputeQuote(&cadjehoun, &ganhi, smallParcel(domain.UrgencyStandard, false), domain.PricingParameters{PricePerKg: 2.5})
	require.NoError(t, err)

	// Haversine gives 0.439 km for this pair.
	assert.InDelta(t, 0.439, q.DistanceKm, 0.005)
	assert.InDelta(t, 2*2.5+q.DistanceKm*0.5, q.CostAmount, 1e-9)
	assert.InDelta(t, 5.22, q.CostAmount, 0.01)
	assert.Equal(t, 2, q.EtaMinutes)
}

func TestComputeQuoteUrgentInsured(t *testing.T) {
	q, err := ComputeQuote(&cadjehoun, &ganhi, smallParcel(domain.UrgencyUrgent, true), domain.PricingParameters{PricePerKg: 2.5})
	require.NoError(t, err)

	assert.InDelta(t, (2*2.5+q.DistanceKm*0.5)*2+5, q.CostAmount, 1e-9)
	assert.InDelta(t, 15.44, q.CostAmount, 0.01)
	assert.Equal(t, 1, q.EtaMinutes)
}

func TestComputeQuoteDefaultsPricePerKg(t *testing.T) {
	withDefault, err := ComputeQuote(&cadjehoun, &ganhi, smallParcel(domain.UrgencyStandard, false), domain.PricingParameters{})
	require.NoError(t, err)
	explicit, err := ComputeQuote(&cadjehoun, &ganhi, smallParcel(domain.UrgencyStandard, false), domain.PricingParameters{PricePerKg: 2.5})
	require.NoError(t, err)

	assert.Equal(t, explicit, withDefault)
}

func TestComputeQuoteEtaFloor(t *testing.T) {
	q, err := ComputeQuote(&cadjehoun, &cadjehoun, smallParcel(domain.UrgencyStandard, false), domain.PricingParameters{PricePerKg: 2.5})
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.DistanceKm)
	assert.Equal(t, 1, q.EtaMinutes)
}

func TestComputeQuoteGuards(t *testing.T) {
	params := domain.PricingParameters{PricePerKg: 2.5}

	for _, w := range []float64{0, -1} {
		pkg := smallParcel(domain.UrgencyStandard, false)
		pkg.WeightKg = w
		_, err := ComputeQuote(&cadjehoun, &ganhi, pkg, params)
		assert.ErrorIs(t, err, domain.ErrInvalidWeight, "weight %v", w)
	}

	_, err := ComputeQuote(nil, &ganhi, smallParcel(domain.UrgencyStandard, false), params)
	assert.ErrorIs(t, err, domain.ErrMissingCoordinates)

	_, err = ComputeQuote(&cadjehoun, nil, smallParcel(domain.UrgencyStandard, false), params)
	assert.ErrorIs(t, err, domain.ErrMissingCoordinates)

	_, err = ComputeQuote(&cadjehoun, &domain.GeoPoint{}, smallParcel(domain.UrgencyStandard, false), params)
	assert.ErrorIs(t, err, domain.ErrMissingCoordinates)
}

func TestComputeQuoteMonotonic(t *testing.T) {
	params := domain.PricingParameters{PricePerKg: 2.5}
	urgencies := []domain.Urgency{domain.UrgencyStandard, domain.UrgencyExpress, domain.UrgencyUrgent}

	var prev *domain.Quote
	for _, u := range urgencies {
		q, err := ComputeQuote(&cadjehoun, &porto, smallParcel(u, false), params)
		require.NoError(t, err)
		if prev != nil {
			assert.GreaterOrEqual(t, q.CostAmount, prev.CostAmount, "cost at %s", u)
			assert.LessOrEqual(t, q.EtaMinutes, prev.EtaMinutes, "eta at %s", u)
		}
		prev = &q
	}

	lighter, err := ComputeQuote(&cadjehoun, &porto, domain.PackageSpec{WeightKg: 2, Urgency: domain.UrgencyExpress}, params)
	require.NoError(t, err)
	heavier, err := ComputeQuote(&cadjehoun, &porto, domain.PackageSpec{WeightKg: 10, Urgency: domain.UrgencyExpress}, params)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, heavier.CostAmount, lighter.CostAmount)

	near, err := ComputeQuote(&cadjehoun, &ganhi, smallParcel(domain.UrgencyStandard, false), params)
	require.NoError(t, err)
	far, err := ComputeQuote(&cadjehoun, &porto, smallParcel(domain.UrgencyStandard, false), params)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, far.CostAmount, near.CostAmount)
	assert.GreaterOrEqual(t, far.EtaMinutes, near.EtaMinutes)
}

func TestComputeQuoteSymmetricAndIdempotent(t *testing.T) {
	params := domain.PricingParameters{PricePerKg: 3}
	pkg := smallParcel(domain.UrgencyExpress, true)

	ab, err := ComputeQuote(&cadjehoun, &porto, pkg, params)
	require.NoError(t, err)
	ba, err := ComputeQuote(&porto, &cadjehoun, pkg, params)
	require.NoError(t, err)
	again, err := ComputeQuote(&cadjehoun, &porto, pkg, params)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
	assert.Equal(t, ab, again)
}
