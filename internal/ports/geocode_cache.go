package ports

import (
	"context"
	"courier-dispatch-service/internal/domain"
)

// GeocodeCache maps normalized geocoder queries to resolved points.
type GeocodeCache interface {
	GetMany(ctx context.Context, queries []string) (map[string]domain.GeoPoint, error)
	PutMany(ctx context.Context, results map[string]domain.GeoPoint) error
}
