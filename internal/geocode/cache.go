package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"photo-sync-service/internal/storage"
)

// CachedGeocoder memoizes region lookups in Redis. Coordinates are rounded
// to five decimal places (roughly one meter) for the cache key; region names
// do not change at that resolution. Cache failures fall through to the
// wrapped geocoder.
type CachedGeocoder struct {
	inner Geocoder
	redis *storage.RedisClient
	ttl   time.Duration
}

// NewCachedGeocoder wraps a geocoder with a Redis result cache.
func NewCachedGeocoder(inner Geocoder, redis *storage.RedisClient, ttl time.Duration) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, redis: redis, ttl: ttl}
}

func cacheKey(lat, lng float64) string {
	return fmt.Sprintf("geo:%.5f,%.5f", lat, lng)
}

// Geocode resolves from cache when possible, otherwise queries the wrapped
// geocoder and stores the result.
func (c *CachedGeocoder) Geocode(ctx context.Context, lat, lng float64) Region {
	key := cacheKey(lat, lng)

	if data, err := c.redis.GetBytes(ctx, key); err == nil && data != nil {
		var region Region
		if err := json.Unmarshal(data, &region); err == nil {
			return region
		}
	} else if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("geocode cache read failed")
	}

	region := c.inner.Geocode(ctx, lat, lng)

	// Empty regions are not cached: the lookup may have failed transiently.
	if region == (Region{}) {
		return region
	}

	if data, err := json.Marshal(region); err == nil {
		if err := c.redis.SetBytes(ctx, key, data, c.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("geocode cache write failed")
		}
	}
	return region
}
