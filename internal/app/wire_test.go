package app

import (
	"context"
	"courier-dispatch-service/internal/adapters/gateway"
	"courier-dispatch-service/internal/adapters/geocode"
	"courier-dispatch-service/internal/config"
	"courier-dispatch-service/internal/ports"
	"courier-dispatch-service/internal/services"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		GeocoderBaseURL:        "http://geocoder.invalid",
		GeocoderInterval:       time.Second,
		GeocoderMaxAttempts:    1,
		CountryBias:            "Benin",
		DefaultPricePerKg:      2.5,
		TrackingInterval:       10 * time.Second,
		TrackingDistanceStepKm: 0.1,
		GeocodeCacheTTL:        time.Hour,
	}
}

func mockGeocoder() *geocode.MockGeocoder {
	return geocode.NewMockGeocoder(map[string][]ports.GeocodeCandidate{
		"Cadjehoun, Benin": {{Lat: "6.3703", Lng: "2.3912"}},
		"Ganhi, Benin":     {{Lat: "6.3725", Lng: "2.3945"}},
	})
}

func TestNewWireWithoutStores(t *testing.T) {
	w, err := NewWire(context.Background(), testConfig(), WithGeocoder(mockGeocoder()))
	require.NoError(t, err)
	defer w.Close()

	assert.Nil(t, w.DB)
	assert.Nil(t, w.Redis)
	assert.Nil(t, w.Gateway)
	assert.Equal(t, services.StaticPricing{PricePerKg: 2.5}, w.Pricing)

	s, err := w.NewSession()
	require.NoError(t, err)
	require.NoError(t, s.SetPickupAddress("Cadjehoun"))
	require.NoError(t, s.SetDeliveryAddress("Ganhi"))

	q, err := s.RequestQuote(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 5.22, q.CostAmount, 0.01)

	_, err = w.Migrate(context.Background())
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestNewWireUsesRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisURL = "redis://" + mr.Addr()

	geo := mockGeocoder()
	w, err := NewWire(context.Background(), cfg, WithGeocoder(geo))
	require.NoError(t, err)
	defer w.Close()
	require.NotNil(t, w.Redis)

	_, err = w.Resolver.Resolve(context.Background(), "Ganhi", "Benin")
	require.NoError(t, err)
	assert.True(t, mr.Exists("geocode:Ganhi, Benin"))

	_, err = w.Resolver.Resolve(context.Background(), "Ganhi", "Benin")
	require.NoError(t, err)
	assert.Len(t, geo.Calls(), 1)
}

func TestNewWireBuildsGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.GatewayBaseURL = srv.URL
	cfg.GatewayToken = "tok"

	w, err := NewWire(context.Background(), cfg, WithGeocoder(mockGeocoder()))
	require.NoError(t, err)
	require.NotNil(t, w.Gateway)

	s, err := w.NewSession()
	require.NoError(t, err)
	couriers, err := s.AvailableCouriers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, couriers)
}

func TestNewWireRequiresGatewayCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.GatewayBaseURL = "http://orders.invalid"

	_, err := NewWire(context.Background(), cfg, WithGeocoder(mockGeocoder()))
	assert.ErrorContains(t, err, "GATEWAY_TOKEN")
}

func TestCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.GatewayToken = "tok"
	creds, err := Credentials(cfg)
	require.NoError(t, err)
	assert.Equal(t, gateway.StaticToken("tok"), creds)

	cfg.GatewayToken = ""
	cfg.GatewayJWTSecret = "s3cret"
	cfg.GatewayJWTSubject = "svc"
	creds, err = Credentials(cfg)
	require.NoError(t, err)
	assert.IsType(t, &gateway.JWTCredentials{}, creds)
}
