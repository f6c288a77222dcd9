package domain

import (
	"fmt"
	"time"
)

// RouteHistoryLimit bounds TrackedDelivery.RouteHistory.
const RouteHistoryLimit = 10

// RoutePoint is one entry of the simulated position log.
type RoutePoint struct {
	Time     time.Time
	Location GeoPoint
	Status   OrderStatus
}

// TrackedDelivery is the live view of one order while it is in progress.
type TrackedDelivery struct {
	OrderID             string
	Status              OrderStatus
	CurrentLocation     GeoPoint
	Destination         GeoPoint
	RemainingEtaMinutes int
	RemainingDistanceKm float64
	RouteHistory        []RoutePoint
}

// NewTrackedDelivery starts tracking an order that has just gone IN_PROGRESS.
// The courier is assumed to be at the pickup address.
func NewTrackedDelivery(order OrderRecord) (TrackedDelivery, error) {
	if order.Status != StatusInProgress {
		return TrackedDelivery{}, fmt.Errorf("track order %s: status %s: %w", order.ID, order.Status, ErrInvalidState)
	}

	start := order.PickupAddress.Point()
	if err := start.Validate(); err != nil {
		return TrackedDelivery{}, fmt.Errorf("track order %s: pickup: %v: %w", order.ID, err, ErrMissingCoordinates)
	}
	dest := order.DeliveryAddress.Point()
	if err := dest.Validate(); err != nil {
		return TrackedDelivery{}, fmt.Errorf("track order %s: delivery: %v: %w", order.ID, err, ErrMissingCoordinates)
	}

	return TrackedDelivery{
		OrderID:             order.ID,
		Status:              order.Status,
		CurrentLocation:     start,
		Destination:         dest,
		RemainingEtaMinutes: max(order.EstimatedTime, 1),
		RemainingDistanceKm: max(order.DistanceKm, 0.1),
	}, nil
}

// AppendHistory records p, keeping only the most recent RouteHistoryLimit
// entries. The slice is reallocated so earlier snapshots are not aliased.
func (d *TrackedDelivery) AppendHistory(p RoutePoint) {
	start := 0
	if n := len(d.RouteHistory) + 1; n > RouteHistoryLimit {
		start = n - RouteHistoryLimit
	}
	next := make([]RoutePoint, 0, RouteHistoryLimit)
	next = append(next, d.RouteHistory[min(start, len(d.RouteHistory)):]...)
	next = append(next, p)
	d.RouteHistory = next
}

// Clone returns a copy that shares no memory with d.
func (d TrackedDelivery) Clone() TrackedDelivery {
	out := d
	if d.RouteHistory != nil {
		out.RouteHistory = append([]RoutePoint(nil), d.RouteHistory...)
	}
	return out
}
