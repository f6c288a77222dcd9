package services

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"courier-dispatch-service/internal/ports"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// RetryableError marks a geocoder failure worth another attempt
// (transport errors, 429 and 5xx responses).
type RetryableError interface {
	Retryable() bool
}

type ResolverOptions struct {
	// Minimum spacing between provider requests. Providers allow at most one
	// request per second.
	Interval    time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultResolverOptions() ResolverOptions {
	return ResolverOptions{
		Interval:    time.Second,
		MaxAttempts: 3,
		Backoff:     200 * time.Millisecond,
	}
}

// Resolver turns free-text addresses into GeoPoints.
//
// It coordinates:
//   - Address normalization and country biasing
//   - Optional persistent geocode caching
//   - Provider rate limiting and retry/backoff
//
// The resolver is safe for concurrent use; identical in-flight queries share
// a single provider call.
type Resolver struct {
	geocoder ports.Geocoder
	cache    ports.GeocodeCache
	limiter  *rate.Limiter
	group    singleflight.Group
	opts     ResolverOptions
}

// NewResolver builds a resolver. cache may be nil.
func NewResolver(geocoder ports.Geocoder, cache ports.GeocodeCache, opts ResolverOptions) (*Resolver, error) {
	if geocoder == nil {
		return nil, errors.New("new resolver: geocoder is nil")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("new resolver: interval must be positive, got %s", opts.Interval)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}

	return &Resolver{
		geocoder: geocoder,
		cache:    cache,
		limiter:  rate.NewLimiter(rate.Every(opts.Interval), 1),
		opts:     opts,
	}, nil
}

// normalize collapses whitespace so equivalent inputs share a cache key.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Query returns the provider query for an address, qualified by country.
func Query(addressText, countryBias string) string {
	q := normalize(addressText)
	if c := normalize(countryBias); c != "" && q != "" {
		q += ", " + c
	}
	return q
}

// Resolve geocodes addressText within countryBias.
func (r *Resolver) Resolve(ctx context.Context, addressText string, countryBias string) (_ domain.GeoPoint, err error) {
	defer obs.Time(ctx, "resolver.Resolve")(&err)

	if normalize(addressText) == "" {
		return domain.GeoPoint{}, fmt.Errorf("resolve address: empty text: %w", domain.ErrInvalidInput)
	}
	query := Query(addressText, countryBias)

	if r.cache != nil {
		hits, err := r.cache.GetMany(ctx, []string{query})
		if err != nil {
			obs.FromContext(ctx).WithError(err).Warn("geocode cache read failed")
		} else if p, ok := hits[query]; ok {
			return p, nil
		}
	}

	// The shared lookup is detached from the first caller so its
	// cancellation does not fail callers that joined the same flight.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(query, func() (any, error) {
		point, err := r.lookup(shared, query)
		if err != nil {
			return nil, err
		}
		if r.cache != nil {
			if err := r.cache.PutMany(shared, map[string]domain.GeoPoint{query: point}); err != nil {
				obs.FromContext(shared).WithError(err).Warn("geocode cache write failed")
			}
		}
		return point, nil
	})

	select {
	case <-ctx.Done():
		return domain.GeoPoint{}, fmt.Errorf("resolve address %q: %w", query, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.GeoPoint{}, fmt.Errorf("resolve address %q: %w", query, res.Err)
		}
		return res.Val.(domain.GeoPoint), nil
	}
}

// lookup calls the provider with rate limiting and exponential backoff on
// retryable failures.
func (r *Resolver) lookup(ctx context.Context, query string) (domain.GeoPoint, error) {
	backoff := r.opts.Backoff

	var lastErr error
	for attempt := 1; attempt <= r.opts.MaxAttempts; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.GeoPoint{}, ctxErr
			}
			// Wait fails early when the next token is past the deadline.
			return domain.GeoPoint{}, fmt.Errorf("geocoder rate limit: %v: %w", err, context.DeadlineExceeded)
		}

		candidates, err := r.geocoder.Search(ctx, query, 1)
		if err == nil {
			return firstCandidate(candidates)
		}
		lastErr = err

		var re RetryableError
		if !errors.As(err, &re) || !re.Retryable() || attempt == r.opts.MaxAttempts {
			break
		}

		obs.FromContext(ctx).WithError(err).WithField("attempt", attempt).Info("geocode retry")

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return domain.GeoPoint{}, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	if !errors.Is(lastErr, domain.ErrNetwork) && !errors.Is(lastErr, domain.ErrMalformedResponse) {
		lastErr = fmt.Errorf("%w: %w", domain.ErrNetwork, lastErr)
	}
	return domain.GeoPoint{}, lastErr
}

func firstCandidate(candidates []ports.GeocodeCandidate) (domain.GeoPoint, error) {
	if len(candidates) == 0 {
		return domain.GeoPoint{}, domain.ErrAddressNotFound
	}

	c := candidates[0]
	lat, err := parseCoordinate(c.Lat)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lat %q: %w", c.Lat, err)
	}
	lng, err := parseCoordinate(c.Lng)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("lng %q: %w", c.Lng, err)
	}

	p, err := domain.NewGeoPoint(lat, lng)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("%v: %w", err, domain.ErrMalformedResponse)
	}
	return p, nil
}

func parseCoordinate(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, domain.ErrMalformedResponse
	}
	return f, nil
}
