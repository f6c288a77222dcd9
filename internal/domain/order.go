package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether no further tracking updates happen in this status.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusInProgress, StatusDelivered, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("parse order status %q: %w", s, ErrInvalidInput)
}

// OrderAddress is an address as persisted by the order gateway.
type OrderAddress struct {
	Address string
	Lat     float64
	Lng     float64
}

func (a OrderAddress) Point() GeoPoint { return GeoPoint{Lat: a.Lat, Lng: a.Lng} }

// OrderDraft is what the quote session hands to the gateway on submit.
type OrderDraft struct {
	IdempotencyKey  string
	PickupAddress   OrderAddress
	DeliveryAddress OrderAddress
	Package         PackageSpec
	DistanceKm      float64
	EstimatedTime   int
	Cost            float64
	CourierID       string
}

// OrderRecord is an order as returned by the gateway.
type OrderRecord struct {
	ID              string
	Status          OrderStatus
	PickupAddress   OrderAddress
	DeliveryAddress OrderAddress
	DistanceKm      float64
	EstimatedTime   int
	Cost            float64
	CourierID       string
	CreatedAt       time.Time
}

// Courier is an entry of the courier availability source.
type Courier struct {
	ID              string
	FullName        string
	Transport       string
	Rating          float64
	DeliveriesCount int
}
