package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avelinov/roadbook/internal/geo"
)

const httpTimeout = 10 * time.Second

// Sanity bounds for a routed result. Anything outside is treated as a
// corrupt response, not a transient failure.
const (
	maxDistanceKm    = 50000
	maxDurationHours = 2400
)

// ErrInvalidRoute marks a routing response whose numbers fall outside sane
// bounds. It is never retried.
var ErrInvalidRoute = errors.New("route data outside sane bounds")

// Route is a normalized routed path between ordered stops.
type Route struct {
	DistanceKm    float64     `json:"distance_km"`
	DurationHours float64     `json:"duration_hours"`
	Geometry      []geo.Point `json:"geometry"`
}

// Client fetches driving routes from an OSRM-compatible service.
type Client struct {
	baseURL string
	client  *http.Client
}

const osrmDefaultURL = "https://router.project-osrm.org"

// NewClient constructs a Client using the public OSRM instance.
func NewClient() *Client {
	return &Client{baseURL: osrmDefaultURL, client: &http.Client{Timeout: httpTimeout}}
}

// NewClientWithURL constructs a Client pointing at a custom base URL (for tests).
func NewClientWithURL(baseURL string) *Client {
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: httpTimeout}}
}

type osrmResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// FetchRoute requests a full-geometry driving route over the points in order.
// OSRM speaks meters and seconds and returns geometry as [lon, lat] pairs;
// the result is converted to km/hours and the geometry axes swapped to
// lat/lng before anything downstream sees it.
func (c *Client) FetchRoute(ctx context.Context, points []geo.Point) (*Route, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", len(points))
	}

	coords := make([]string, len(points))
	for i, p := range points {
		coords[i] = fmt.Sprintf("%f,%f", p.Lng, p.Lat)
	}

	endpoint := c.baseURL + "/route/v1/driving/" + strings.Join(coords, ";") +
		"?overview=full&geometries=geojson"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", endpoint, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing service returned status %d", resp.StatusCode)
	}

	var raw osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding routing response: %w", err)
	}

	if len(raw.Routes) == 0 || len(raw.Routes[0].Geometry.Coordinates) == 0 {
		return nil, errors.New("no route found")
	}

	r := raw.Routes[0]
	distanceKm := r.Distance / 1000
	durationHours := r.Duration / 3600

	if distanceKm <= 0 || distanceKm > maxDistanceKm || durationHours <= 0 || durationHours > maxDurationHours {
		return nil, fmt.Errorf("distance %.1f km, duration %.1f h: %w", distanceKm, durationHours, ErrInvalidRoute)
	}

	geometry := make([]geo.Point, 0, len(r.Geometry.Coordinates))
	for _, pair := range r.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		geometry = append(geometry, geo.Point{Lat: pair[1], Lng: pair[0]})
	}

	return &Route{
		DistanceKm:    distanceKm,
		DurationHours: durationHours,
		Geometry:      geometry,
	}, nil
}
