package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/avelinov/roadbook/internal/geo"
)

// Cache retention windows. A cached route is considered fresh for 24 hours
// and kept around for 7 days so a stale copy can still be served while a
// revalidation is in flight.
const (
	FreshTTL     = 24 * time.Hour
	RetentionTTL = 7 * 24 * time.Hour
)

const maxRetries = 2

// Freshness tells a consumer how final a RouteInfo is.
type Freshness string

const (
	// FreshnessLoading marks a value that is about to be replaced: a request
	// for the same stop sequence is still outstanding.
	FreshnessLoading Freshness = "loading"
	// FreshnessResolved marks a routed result from the routing service.
	FreshnessResolved Freshness = "resolved"
	// FreshnessStaleFallback marks a straight-line estimate used because the
	// routing service could not be reached.
	FreshnessStaleFallback Freshness = "stale-fallback"
)

// RouteInfo is the outward-facing route summary for a stop sequence.
type RouteInfo struct {
	DistanceKm    float64     `json:"distance_km"`
	DurationHours float64     `json:"duration_hours"`
	Geometry      []geo.Point `json:"geometry,omitempty"`
	Freshness     Freshness   `json:"freshness"`
}

// CachedRoute is a resolved route plus the time it was resolved, as stored
// in the cache.
type CachedRoute struct {
	Route      Route     `json:"route"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Fresh reports whether the cached route is still inside the freshness window.
func (c *CachedRoute) Fresh(now time.Time) bool {
	return now.Sub(c.ResolvedAt) < FreshTTL
}

// routeFetcher is the interface satisfied by Client.
type routeFetcher interface {
	FetchRoute(ctx context.Context, points []geo.Point) (*Route, error)
}

// RouteCache is the cache surface the resolver needs.
// Get returns nil, nil on a miss.
type RouteCache interface {
	Get(ctx context.Context, key string) (*CachedRoute, error)
	Set(ctx context.Context, key string, route CachedRoute) error
}

// Resolver turns an ordered stop sequence into RouteInfo, consulting the
// cache first and degrading to a straight-line estimate when the routing
// service is unreachable.
type Resolver struct {
	client routeFetcher
	cache  RouteCache
	log    *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(client routeFetcher, cache RouteCache, log *slog.Logger) *Resolver {
	return &Resolver{client: client, cache: cache, log: log, now: time.Now}
}

// CacheKey derives the identity of an ordered coordinate sequence.
// Coordinates are rounded to 4 decimal places so jitter below ~11 m does not
// produce a new identity.
func CacheKey(points []geo.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.4f,%.4f", p.Lat, p.Lng)
	}
	return strings.Join(parts, "|")
}

// Resolve returns route info for the points in order.
//
// Fewer than 2 points resolves to a zero value without any network call.
// Concurrent calls for the same rounded sequence share a single request.
// A fresh cached result short-circuits the network entirely; a stale-but-
// retained one is served as-is with a background revalidation. When the
// routing service fails after retries the straight-line estimate is returned
// marked stale-fallback.
func (r *Resolver) Resolve(ctx context.Context, points []geo.Point) RouteInfo {
	if len(points) < 2 {
		return RouteInfo{Freshness: FreshnessResolved}
	}

	key := CacheKey(points)

	cached, err := r.cache.Get(ctx, key)
	if err != nil {
		r.log.Warn("route cache get failed", "key", key, "err", err)
	}
	if cached != nil {
		if cached.Fresh(r.now()) {
			return resolvedInfo(cached.Route)
		}
		// Retained but stale: serve it now, revalidate out of band.
		go r.revalidate(context.WithoutCancel(ctx), key, points)
		return resolvedInfo(cached.Route)
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		return r.fetchAndStore(ctx, key, points), nil
	})

	return v.(RouteInfo)
}

// ResolveInto resolves the sequence and publishes progress into the store:
// first a loading marker, then the final value. The store discards results
// whose sequence has been superseded in the meantime.
func (r *Resolver) ResolveInto(ctx context.Context, points []geo.Point, store *Store) RouteInfo {
	key := CacheKey(points)
	store.Track(key)

	info := r.Resolve(ctx, points)
	store.Apply(key, info)
	return info
}

func (r *Resolver) fetchAndStore(ctx context.Context, key string, points []geo.Point) RouteInfo {
	route, err := r.fetchWithRetry(ctx, points)
	if err != nil {
		r.log.Warn("route fetch failed, using straight-line fallback", "key", key, "err", err)
		est := geo.EstimateRoute(points)
		return RouteInfo{
			DistanceKm:    est.DistanceKm,
			DurationHours: est.DurationHours,
			Geometry:      points,
			Freshness:     FreshnessStaleFallback,
		}
	}

	if err := r.cache.Set(ctx, key, CachedRoute{Route: *route, ResolvedAt: r.now()}); err != nil {
		r.log.Warn("route cache set failed", "key", key, "err", err)
	}

	return resolvedInfo(*route)
}

// fetchWithRetry retries transient failures up to maxRetries additional
// times. Out-of-bounds responses and cancellations are not retried.
func (r *Resolver) fetchWithRetry(ctx context.Context, points []geo.Point) (*Route, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		route, err := r.client.FetchRoute(ctx, points)
		if err == nil {
			return route, nil
		}
		lastErr = err
		if errors.Is(err, ErrInvalidRoute) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (r *Resolver) revalidate(ctx context.Context, key string, points []geo.Point) {
	route, err := r.fetchWithRetry(ctx, points)
	if err != nil {
		r.log.Warn("route revalidation failed", "key", key, "err", err)
		return
	}
	if err := r.cache.Set(ctx, key, CachedRoute{Route: *route, ResolvedAt: r.now()}); err != nil {
		r.log.Warn("route cache set failed after revalidation", "key", key, "err", err)
	}
}

func resolvedInfo(route Route) RouteInfo {
	return RouteInfo{
		DistanceKm:    route.DistanceKm,
		DurationHours: route.DurationHours,
		Geometry:      route.Geometry,
		Freshness:     FreshnessResolved,
	}
}
