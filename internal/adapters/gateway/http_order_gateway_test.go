package gateway

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, h http.HandlerFunc) (*HTTPOrderGateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := NewHTTPOrderGateway(srv.URL+"/", StaticToken("secret-token"))
	require.NoError(t, err)
	return g, srv
}

func sampleDraft() domain.OrderDraft {
	pkg := domain.NewPackageSpec(domain.CategoryMedium)
	pkg.Urgency = domain.UrgencyExpress
	pkg.Insured = true
	return domain.OrderDraft{
		IdempotencyKey:  "4d7f7c1e-9b7a-4a51-8c55-1c7b1e9f0a11",
		PickupAddress:   domain.OrderAddress{Address: "Cadjehoun", Lat: 6.3703, Lng: 2.3912},
		DeliveryAddress: domain.OrderAddress{Address: "Ganhi", Lat: 6.3725, Lng: 2.3945},
		Package:         pkg,
		DistanceKm:      0.44,
		EstimatedTime:   2,
		Cost:            12.83,
		CourierID:       "courier-7",
	}
}

func TestCreateOrder(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "4d7f7c1e-9b7a-4a51-8c55-1c7b1e9f0a11", r.Header.Get("Idempotency-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "courier-7", body["courierId"])
		assert.Equal(t, 2.0, body["estimatedTime"])
		assert.Equal(t, "medium", body["packageType"])
		assert.Equal(t, "express", body["urgency"])
		assert.Equal(t, true, body["insured"])
		pickup := body["pickupAddress"].(map[string]any)
		assert.Equal(t, "Cadjehoun", pickup["address"])
		assert.Equal(t, 6.3703, pickup["lat"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ord-1"}`))
	})

	id, err := g.CreateOrder(context.Background(), sampleDraft())
	require.NoError(t, err)
	assert.Equal(t, "ord-1", id)
}

func TestCreateOrderRetriesWithSameKey(t *testing.T) {
	var calls atomic.Int32
	keys := make(chan string, 2)
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("Idempotency-Key")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"ord-2"}`))
	})

	id, err := g.CreateOrder(context.Background(), sampleDraft())
	require.NoError(t, err)
	assert.Equal(t, "ord-2", id)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, <-keys, <-keys)
}

func TestCreateOrderGivesUpAfterTwoAttempts(t *testing.T) {
	var calls atomic.Int32
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := g.CreateOrder(context.Background(), sampleDraft())
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCreateOrderRejectsMissingID(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := g.CreateOrder(context.Background(), sampleDraft())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, domain.ErrOrderNotFound},
		{http.StatusBadRequest, domain.ErrInvalidInput},
		{http.StatusUnauthorized, domain.ErrNetwork},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.code), func(t *testing.T) {
			var calls atomic.Int32
			g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.code)
			})

			_, err := g.GetOrder(context.Background(), "ord-9")
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	g, srv := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := g.ListUserOrders(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
}

func TestCredentialFailureSendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls.Add(1) }))
	defer srv.Close()

	g, err := NewHTTPOrderGateway(srv.URL, failingCredentials{})
	require.NoError(t, err)

	_, err = g.ListAvailableCouriers(context.Background())
	assert.ErrorContains(t, err, "credentials")
	assert.Zero(t, calls.Load())
}

type failingCredentials struct{}

func (failingCredentials) Token(context.Context) (string, error) {
	return "", errors.New("signing key unavailable")
}

func TestGetOrder(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/ord-3", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"id": "ord-3",
			"status": "IN_PROGRESS",
			"pickupAddress": {"address": "Cadjehoun", "lat": 6.3703, "lng": 2.3912},
			"deliveryAddress": {"address": "Porto-Novo", "lat": 6.4969, "lng": 2.6289},
			"distance": 29.5,
			"estimatedTime": 148,
			"cost": 19.75,
			"courierId": "courier-7",
			"createdAt": "2024-03-01T09:00:00Z"
		}`))
	})

	rec, err := g.GetOrder(context.Background(), "ord-3")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderRecord{
		ID:              "ord-3",
		Status:          domain.StatusInProgress,
		PickupAddress:   domain.OrderAddress{Address: "Cadjehoun", Lat: 6.3703, Lng: 2.3912},
		DeliveryAddress: domain.OrderAddress{Address: "Porto-Novo", Lat: 6.4969, Lng: 2.6289},
		DistanceKm:      29.5,
		EstimatedTime:   148,
		Cost:            19.75,
		CourierID:       "courier-7",
		CreatedAt:       time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}, rec)
}

func TestGetOrderRejectsUnknownStatus(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "ord-3", "status": "LOST"}`))
	})

	_, err := g.GetOrder(context.Background(), "ord-3")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListUserOrdersAndCouriers(t *testing.T) {
	g, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/orders/mine":
			_, _ = w.Write([]byte(`[{"id":"a","status":"PENDING"},{"id":"b","status":"DELIVERED"}]`))
		case "/couriers/available":
			_, _ = w.Write([]byte(`[{"id":"c1","fullName":"Afi Mensah","transport":"moto","rating":4.8,"deliveriesCount":312}]`))
		default:
			http.NotFound(w, r)
		}
	})

	orders, err := g.ListUserOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, domain.StatusPending, orders[0].Status)
	assert.Equal(t, domain.StatusDelivered, orders[1].Status)

	couriers, err := g.ListAvailableCouriers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Courier{{
		ID: "c1", FullName: "Afi Mensah", Transport: "moto", Rating: 4.8, DeliveriesCount: 312,
	}}, couriers)
}

func TestNewHTTPOrderGatewayValidates(t *testing.T) {
	_, err := NewHTTPOrderGateway(" ", StaticToken("t"))
	assert.Error(t, err)
	_, err = NewHTTPOrderGateway("http://orders.local", nil)
	assert.Error(t, err)
}
