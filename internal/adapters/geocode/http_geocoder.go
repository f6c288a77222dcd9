package geocode

import (
	"bytes"
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"courier-dispatch-service/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPGeocoder implements ports.Geocoder against a Nominatim-style
// `GET /search?q=...&limit=N` endpoint. It performs a single attempt per
// call; pacing and retries belong to the resolver.
type HTTPGeocoder struct {
	session   *http.Client
	baseURL   string
	userAgent string
}

func NewHTTPGeocoder(baseURL, userAgent string) (*HTTPGeocoder, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("geocoder base url is empty")
	}

	return &HTTPGeocoder{
		session:   &http.Client{Timeout: 10 * time.Second},
		baseURL:   baseURL,
		userAgent: userAgent,
	}, nil
}

// coordinate accepts both "6.37" and 6.37.
type coordinate string

func (c *coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = coordinate(s)
		return nil
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("coordinate %s: not a number", b)
	}
	*c = coordinate(b)
	return nil
}

type searchResult struct {
	Lat         coordinate `json:"lat"`
	Lng         coordinate `json:"lng"`
	Lon         coordinate `json:"lon"`
	DisplayName string     `json:"display_name"`
}

func (g *HTTPGeocoder) Search(
	ctx context.Context,
	query string,
	limit int,
) (_ []ports.GeocodeCandidate, err error) {
	defer obs.Time(ctx, "geocoder.Search")(&err)

	if limit < 1 {
		limit = 1
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search", nil)
	if err != nil {
		return nil, fmt.Errorf("geocode search: create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("format", "json")
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.session.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}

	var decoded []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode geocode response: %v: %w", err, domain.ErrMalformedResponse)
	}

	out := make([]ports.GeocodeCandidate, 0, len(decoded))
	for _, r := range decoded {
		lng := r.Lng
		if lng == "" {
			lng = r.Lon
		}
		out = append(out, ports.GeocodeCandidate{
			Lat:         string(r.Lat),
			Lng:         string(lng),
			DisplayName: r.DisplayName,
		})
	}

	return out, nil
}
