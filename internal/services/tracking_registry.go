package services

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/ports"
	"errors"
	"fmt"
	"sync"
)

// TrackingRegistry owns at most one running simulator per order.
type TrackingRegistry struct {
	gateway ports.OrderGateway
	opts    []SimulatorOption

	mu   sync.Mutex
	sims map[string]*TrackingSimulator
}

func NewTrackingRegistry(gateway ports.OrderGateway, opts ...SimulatorOption) (*TrackingRegistry, error) {
	if gateway == nil {
		return nil, errors.New("new tracking registry: order gateway is nil")
	}
	return &TrackingRegistry{
		gateway: gateway,
		opts:    opts,
		sims:    make(map[string]*TrackingSimulator),
	}, nil
}

// Start fetches the order and starts simulating it. Starting an order that
// is already tracked returns its current state.
func (r *TrackingRegistry) Start(ctx context.Context, orderID string) (domain.TrackedDelivery, error) {
	r.mu.Lock()
	if sim, ok := r.sims[orderID]; ok && !sim.Stopped() {
		r.mu.Unlock()
		return sim.Snapshot(), nil
	}
	r.mu.Unlock()

	order, err := r.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return domain.TrackedDelivery{}, fmt.Errorf("start tracking: %w", err)
	}
	d, err := domain.NewTrackedDelivery(order)
	if err != nil {
		return domain.TrackedDelivery{}, fmt.Errorf("start tracking: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have started it while the order was being fetched.
	if sim, ok := r.sims[orderID]; ok && !sim.Stopped() {
		return sim.Snapshot(), nil
	}

	sim := NewTrackingSimulator(d, r.opts...)
	// The ticker outlives the request that started it.
	if err := sim.Start(context.WithoutCancel(ctx)); err != nil {
		return domain.TrackedDelivery{}, fmt.Errorf("start tracking: %w", err)
	}
	r.sims[orderID] = sim

	return sim.Snapshot(), nil
}

func (r *TrackingRegistry) lookup(orderID string) (*TrackingSimulator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sim, ok := r.sims[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s is not tracked: %w", orderID, domain.ErrOrderNotFound)
	}
	return sim, nil
}

func (r *TrackingRegistry) Snapshot(orderID string) (domain.TrackedDelivery, error) {
	sim, err := r.lookup(orderID)
	if err != nil {
		return domain.TrackedDelivery{}, err
	}
	return sim.Snapshot(), nil
}

// UpdateStatus forwards an external status change. A status other than
// IN_PROGRESS stops the simulator and forgets the order.
func (r *TrackingRegistry) UpdateStatus(orderID string, status domain.OrderStatus) (domain.TrackedDelivery, error) {
	sim, err := r.lookup(orderID)
	if err != nil {
		return domain.TrackedDelivery{}, err
	}

	sim.SetStatus(status)
	snap := sim.Snapshot()
	if status != domain.StatusInProgress {
		r.forget(orderID, sim)
	}
	return snap, nil
}

// SyncStatus reads the order's status from the gateway and applies it.
func (r *TrackingRegistry) SyncStatus(ctx context.Context, orderID string) (domain.TrackedDelivery, error) {
	if _, err := r.lookup(orderID); err != nil {
		return domain.TrackedDelivery{}, err
	}
	order, err := r.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return domain.TrackedDelivery{}, fmt.Errorf("sync status: %w", err)
	}
	return r.UpdateStatus(orderID, order.Status)
}

// Stop cancels tracking for the order, e.g. when its viewer goes away.
func (r *TrackingRegistry) Stop(orderID string) error {
	sim, err := r.lookup(orderID)
	if err != nil {
		return err
	}
	sim.Stop()
	r.forget(orderID, sim)
	return nil
}

// StopAll cancels every simulator.
func (r *TrackingRegistry) StopAll() {
	r.mu.Lock()
	sims := r.sims
	r.sims = make(map[string]*TrackingSimulator)
	r.mu.Unlock()

	for _, sim := range sims {
		sim.Stop()
	}
}

func (r *TrackingRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sims)
}

func (r *TrackingRegistry) forget(orderID string, sim *TrackingSimulator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sims[orderID] == sim {
		delete(r.sims, orderID)
	}
}
