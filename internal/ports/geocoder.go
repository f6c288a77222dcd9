package ports

import "context"

// GeocodeCandidate is one raw search hit. Coordinates are kept as the
// provider's text so the resolver owns parsing and validation.
type GeocodeCandidate struct {
	Lat         string
	Lng         string
	DisplayName string
}

// Geocoder is the external address search provider.
type Geocoder interface {
	// Search returns at most limit candidates for a free-text query, best first.
	Search(ctx context.Context, query string, limit int) ([]GeocodeCandidate, error)
}
