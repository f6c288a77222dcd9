package domain

import (
	"fmt"
	"math"
)

// GeoPoint is a resolved WGS84 coordinate in degrees.
// Values are immutable once resolved; use Validate before distance math.
type GeoPoint struct {
	Lat float64
	Lng float64
}

// NewGeoPoint builds a GeoPoint and rejects coordinates that cannot be used.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// Validate reports non-finite, out-of-range and null-island (0,0) coordinates.
func (p GeoPoint) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("geo point: non-finite coordinate (%v, %v)", p.Lat, p.Lng)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("geo point: lat %v out of range", p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("geo point: lng %v out of range", p.Lng)
	}
	if p.Lat == 0 && p.Lng == 0 {
		return fmt.Errorf("geo point: (0, 0) is not a resolved location")
	}
	return nil
}

// MoveToward returns the point a fraction of the way from p to dst,
// interpolating linearly in degree space.
func (p GeoPoint) MoveToward(dst GeoPoint, fraction float64) GeoPoint {
	return GeoPoint{
		Lat: p.Lat + (dst.Lat-p.Lat)*fraction,
		Lng: p.Lng + (dst.Lng-p.Lng)*fraction,
	}
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Address is free text typed by the user plus its resolved point, if any.
// Point is set only after a successful resolver call.
type Address struct {
	Text  string
	Point *GeoPoint
}

func (a Address) Resolved() bool { return a.Point != nil }
