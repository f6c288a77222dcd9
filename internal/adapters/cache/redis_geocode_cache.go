package cache

import (
	"context"
	"courier-dispatch-service/internal/domain"
	"courier-dispatch-service/internal/platform/obs"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const geocodeKeyPrefix = "geocode:"

// RedisGeocodeCache stores points as "lat,lng" strings with a TTL so stale
// geocoder answers age out.
type RedisGeocodeCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisGeocodeCache returns a cache with the given entry lifetime; ttl <= 0
// keeps entries forever.
func NewRedisGeocodeCache(client redis.UniversalClient, ttl time.Duration) *RedisGeocodeCache {
	return &RedisGeocodeCache{client: client, ttl: max(ttl, 0)}
}

func geocodeKey(query string) string { return geocodeKeyPrefix + query }

func encodePoint(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}

func decodePoint(v string) (domain.GeoPoint, error) {
	latText, lngText, ok := strings.Cut(v, ",")
	if !ok {
		return domain.GeoPoint{}, fmt.Errorf("decode point %q: missing separator", v)
	}
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode point %q: %w", v, err)
	}
	lng, err := strconv.ParseFloat(lngText, 64)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("decode point %q: %w", v, err)
	}
	return domain.NewGeoPoint(lat, lng)
}

func (c *RedisGeocodeCache) GetMany(
	ctx context.Context,
	queries []string,
) (_ map[string]domain.GeoPoint, err error) {
	defer obs.Time(ctx, "geocode.cache.redis.GetMany")(&err)

	if c.client == nil {
		return nil, errors.New("geocode cache: redis client is nil")
	}

	uniq := uniqueKeys(queries)
	if len(uniq) == 0 {
		return map[string]domain.GeoPoint{}, nil
	}

	keys := make([]string, len(uniq))
	for i, q := range uniq {
		keys[i] = geocodeKey(q)
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get geocode cache: mget: %w", err)
	}

	out := make(map[string]domain.GeoPoint, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue // miss
		}
		p, err := decodePoint(s)
		if err != nil {
			obs.FromContext(ctx).WithField("address", uniq[i]).WithError(err).Warn("skipping invalid cached point")
			continue
		}
		out[uniq[i]] = p
	}

	return out, nil
}

func (c *RedisGeocodeCache) PutMany(ctx context.Context, results map[string]domain.GeoPoint) (err error) {
	defer obs.Time(ctx, "geocode.cache.redis.PutMany")(&err)

	if c.client == nil {
		return errors.New("geocode cache: redis client is nil")
	}
	if len(results) == 0 {
		return nil
	}

	for addr, p := range results {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("insert geocode cache: empty address key")
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("insert geocode cache %q: %w", addr, err)
		}
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for addr, p := range results {
			pipe.Set(ctx, geocodeKey(addr), encodePoint(p), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert geocode cache: %w", err)
	}

	return nil
}
