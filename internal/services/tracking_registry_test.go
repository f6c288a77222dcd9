package services

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderTable is an in-memory gateway keyed by order id.
type orderTable struct {
	mu     sync.Mutex
	orders map[string]domain.OrderRecord
	gets   int
}

func (o *orderTable) CreateOrder(ctx context.Context, d domain.OrderDraft) (string, error) {
	return "", domain.ErrInvalidState
}

func (o *orderTable) GetOrder(ctx context.Context, id string) (domain.OrderRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.gets++
	rec, ok := o.orders[id]
	if !ok {
		return domain.OrderRecord{}, domain.ErrOrderNotFound
	}
	return rec, nil
}

func (o *orderTable) ListUserOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	return nil, nil
}

func (o *orderTable) setStatus(id string, s domain.OrderStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	rec := o.orders[id]
	rec.Status = s
	o.orders[id] = rec
}

func newOrderTable() *orderTable {
	return &orderTable{orders: map[string]domain.OrderRecord{
		"ord-1": {
			ID:              "ord-1",
			Status:          domain.StatusInProgress,
			PickupAddress:   domain.OrderAddress{Lat: cadjehoun.Lat, Lng: cadjehoun.Lng},
			DeliveryAddress: domain.OrderAddress{Lat: porto.Lat, Lng: porto.Lng},
			DistanceKm:      25,
			EstimatedTime:   40,
		},
		"ord-pending": {
			ID:              "ord-pending",
			Status:          domain.StatusPending,
			PickupAddress:   domain.OrderAddress{Lat: cadjehoun.Lat, Lng: cadjehoun.Lng},
			DeliveryAddress: domain.OrderAddress{Lat: porto.Lat, Lng: porto.Lng},
		},
	}}
}

func TestRegistryStartIsIdempotent(t *testing.T) {
	orders := newOrderTable()
	reg, err := NewTrackingRegistry(orders, WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	defer reg.StopAll()

	d, err := reg.Start(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, "ord-1", d.OrderID)
	assert.Equal(t, cadjehoun, d.CurrentLocation)

	_, err = reg.Start(context.Background(), "ord-1")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, 1, orders.gets)
}

func TestRegistryRejectsUntrackableOrders(t *testing.T) {
	reg, err := NewTrackingRegistry(newOrderTable())
	require.NoError(t, err)

	_, err = reg.Start(context.Background(), "ord-pending")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = reg.Start(context.Background(), "ord-missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = reg.Snapshot("ord-missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Zero(t, reg.Len())
}

func TestRegistryTerminalStatusStopsTracking(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	updates := make(chan domain.TrackedDelivery, 4)
	orders := newOrderTable()
	reg, err := NewTrackingRegistry(orders,
		WithClock(clock),
		WithOnUpdate(func(d domain.TrackedDelivery) { updates <- d }),
	)
	require.NoError(t, err)

	_, err = reg.Start(ctx, "ord-1")
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultTrackingInterval)
	waitUpdate(t, updates)

	orders.setStatus("ord-1", domain.StatusDelivered)
	d, err := reg.SyncStatus(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, d.Status)
	assert.Len(t, d.RouteHistory, 1)

	_, err = reg.Snapshot("ord-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	clock.Advance(time.Hour)
	assert.Empty(t, updates)
}

func TestRegistryStop(t *testing.T) {
	reg, err := NewTrackingRegistry(newOrderTable(), WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)

	_, err = reg.Start(context.Background(), "ord-1")
	require.NoError(t, err)

	require.NoError(t, reg.Stop("ord-1"))
	assert.Zero(t, reg.Len())
	assert.ErrorIs(t, reg.Stop("ord-1"), domain.ErrOrderNotFound)

	// A stopped order can be tracked again.
	_, err = reg.Start(context.Background(), "ord-1")
	require.NoError(t, err)
	reg.StopAll()
	assert.Zero(t, reg.Len())
}

func TestRegistryStartOutlivesRequestContext(t *testing.T) {
	reg, err := NewTrackingRegistry(newOrderTable(), WithClock(clockwork.NewFakeClock()))
	require.NoError(t, err)
	defer reg.StopAll()

	ctx, cancel := context.WithCancel(context.Background())
	_, err = reg.Start(ctx, "ord-1")
	require.NoError(t, err)
	cancel()

	d, err := reg.Snapshot("ord-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, d.Status)
	assert.Equal(t, 1, reg.Len())
}
