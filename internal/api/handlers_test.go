package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelinov/roadbook/internal/api"
	"github.com/avelinov/roadbook/internal/geo"
	"github.com/avelinov/roadbook/internal/geocoding"
	"github.com/avelinov/roadbook/internal/routing"
	"github.com/avelinov/roadbook/internal/trip"
)

// ---- mock implementations ----

type mockRepo struct {
	createTripFn       func(ctx context.Context, t trip.Trip) (*trip.Trip, error)
	getTripBySlugFn    func(ctx context.Context, slug string) (*trip.Trip, error)
	listTripsFn        func(ctx context.Context) ([]trip.Trip, error)
	deleteTripFn       func(ctx context.Context, slug string) (bool, error)
	listParticipantsFn func(ctx context.Context, tripID string) ([]trip.Participant, error)
	listStopsFn        func(ctx context.Context, tripID string) ([]trip.Stop, error)
	insertStopFn       func(ctx context.Context, s trip.Stop) (*trip.Stop, error)
	deleteStopFn       func(ctx context.Context, tripID, stopID string) (bool, error)
}

func (m *mockRepo) CreateTrip(ctx context.Context, t trip.Trip) (*trip.Trip, error) {
	return m.createTripFn(ctx, t)
}
func (m *mockRepo) GetTripBySlug(ctx context.Context, slug string) (*trip.Trip, error) {
	return m.getTripBySlugFn(ctx, slug)
}
func (m *mockRepo) ListTrips(ctx context.Context) ([]trip.Trip, error) {
	return m.listTripsFn(ctx)
}
func (m *mockRepo) DeleteTrip(ctx context.Context, slug string) (bool, error) {
	return m.deleteTripFn(ctx, slug)
}
func (m *mockRepo) ListParticipants(ctx context.Context, tripID string) ([]trip.Participant, error) {
	return m.listParticipantsFn(ctx, tripID)
}
func (m *mockRepo) ListStops(ctx context.Context, tripID string) ([]trip.Stop, error) {
	return m.listStopsFn(ctx, tripID)
}
func (m *mockRepo) InsertStop(ctx context.Context, s trip.Stop) (*trip.Stop, error) {
	return m.insertStopFn(ctx, s)
}
func (m *mockRepo) DeleteStop(ctx context.Context, tripID, stopID string) (bool, error) {
	return m.deleteStopFn(ctx, tripID, stopID)
}

type mockResolver struct {
	resolveIntoFn func(ctx context.Context, points []geo.Point, store *routing.Store) routing.RouteInfo
}

func (m *mockResolver) ResolveInto(ctx context.Context, points []geo.Point, store *routing.Store) routing.RouteInfo {
	return m.resolveIntoFn(ctx, points, store)
}

type mockSearcher struct {
	searchFn func(ctx context.Context, query string) []geocoding.Candidate
}

func (m *mockSearcher) Search(ctx context.Context, query string) []geocoding.Candidate {
	return m.searchFn(ctx, query)
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

const testToken = "secret-token"

func sampleTrip() *trip.Trip {
	return &trip.Trip{
		ID:          "trip-1",
		Title:       "Adriatic Coast",
		Slug:        "adriatic-coast-abc123",
		Description: "Kotor to Dubrovnik along the coast",
		OwnerID:     "user-1",
		StartDate:   "2026-06-01",
		EndDate:     "2026-06-10",
	}
}

func sampleStops() []trip.Stop {
	return []trip.Stop{
		{ID: "s1", TripID: "trip-1", Title: "Kotor", Lat: 42.43, Lng: 18.70, Category: trip.CategoryStart, Order: 0},
		{ID: "s2", TripID: "trip-1", Title: "Dubrovnik", Lat: 42.65, Lng: 18.09, Category: trip.CategoryEnd, Order: 1},
	}
}

func buildRouter(repo api.TripRepo, resolver api.RouteResolver, searcher api.LocationSearcher) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := api.NewHandlers(repo, resolver, searcher, api.NewRouteState(), log)
	return api.NewRouter(handlers, testToken, &mockPinger{}, &mockPinger{}, log)
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---- auth ----

func TestAuth_MissingToken(t *testing.T) {
	h := buildRouter(&mockRepo{}, &mockResolver{}, &mockSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongToken(t *testing.T) {
	h := buildRouter(&mockRepo{}, &mockResolver{}, &mockSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ---- health ----

func TestHealth_NoAuthRequired(t *testing.T) {
	h := buildRouter(&mockRepo{}, &mockResolver{}, &mockSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth_Degraded(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	handlers := api.NewHandlers(&mockRepo{}, &mockResolver{}, &mockSearcher{}, api.NewRouteState(), log)
	h := api.NewRouter(handlers, testToken, &mockPinger{err: errors.New("down")}, &mockPinger{}, log)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ---- trips ----

func TestCreateTrip_Success(t *testing.T) {
	repo := &mockRepo{
		createTripFn: func(_ context.Context, in trip.Trip) (*trip.Trip, error) {
			created := in
			created.ID = "trip-1"
			created.Slug = "adriatic-coast-abc123"
			return &created, nil
		},
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/trips", map[string]any{
		"title":       "Adriatic Coast",
		"description": "Kotor to Dubrovnik along the coast",
		"owner_id":    "user-1",
		"start_date":  "2026-06-01",
		"end_date":    "2026-06-10",
	})

	require.Equal(t, http.StatusCreated, rec.Code)

	var got trip.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "adriatic-coast-abc123", got.Slug)
}

func TestCreateTrip_Validation(t *testing.T) {
	h := buildRouter(&mockRepo{}, &mockResolver{}, &mockSearcher{})

	cases := []struct {
		name string
		body map[string]any
	}{
		{"short title", map[string]any{
			"title": "Go", "description": "long enough description", "owner_id": "u",
			"start_date": "2026-06-01", "end_date": "2026-06-10",
		}},
		{"short description", map[string]any{
			"title": "Adriatic Coast", "description": "short", "owner_id": "u",
			"start_date": "2026-06-01", "end_date": "2026-06-10",
		}},
		{"end before start", map[string]any{
			"title": "Adriatic Coast", "description": "long enough description", "owner_id": "u",
			"start_date": "2026-06-10", "end_date": "2026-06-01",
		}},
		{"missing owner", map[string]any{
			"title": "Adriatic Coast", "description": "long enough description",
			"start_date": "2026-06-01", "end_date": "2026-06-10",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/v1/trips", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetTrip_WithParticipantsAndStops(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, slug string) (*trip.Trip, error) {
			assert.Equal(t, "adriatic-coast-abc123", slug)
			return sampleTrip(), nil
		},
		listParticipantsFn: func(_ context.Context, tripID string) ([]trip.Participant, error) {
			return []trip.Participant{{ID: "p1", TripID: tripID, UserID: "user-1", Role: trip.RoleOwner}}, nil
		},
		listStopsFn: func(_ context.Context, _ string) ([]trip.Stop, error) {
			return sampleStops(), nil
		},
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/trips/adriatic-coast-abc123", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		trip.Trip
		Participants []trip.Participant `json:"participants"`
		Stops        []trip.Stop        `json:"stops"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "trip-1", got.ID)
	assert.Len(t, got.Participants, 1)
	assert.Len(t, got.Stops, 2)
}

func TestGetTrip_NotFound(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return nil, nil },
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/trips/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTrip(t *testing.T) {
	repo := &mockRepo{
		deleteTripFn: func(_ context.Context, slug string) (bool, error) {
			return slug == "adriatic-coast-abc123", nil
		},
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/trips/adriatic-coast-abc123", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, h, http.MethodDelete, "/api/v1/trips/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- stops ----

func TestAddStop_AppendsAfterExisting(t *testing.T) {
	var inserted trip.Stop
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return sampleTrip(), nil },
		listStopsFn: func(_ context.Context, _ string) ([]trip.Stop, error) {
			return []trip.Stop{{Order: 0, Category: trip.CategoryStart}, {Order: 3, Category: trip.CategoryStop}}, nil
		},
		insertStopFn: func(_ context.Context, s trip.Stop) (*trip.Stop, error) {
			inserted = s
			s.ID = "s3"
			return &s, nil
		},
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/trips/adriatic-coast-abc123/stops", map[string]any{
		"title":    "Perast",
		"lat":      42.4864,
		"lng":      18.6983,
		"category": "stop",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 4, inserted.Order, "new stop goes after the highest existing order")
	assert.Equal(t, "trip-1", inserted.TripID)
}

func TestAddStop_SecondStartRejected(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return sampleTrip(), nil },
		listStopsFn: func(_ context.Context, _ string) ([]trip.Stop, error) {
			return []trip.Stop{{Order: 0, Category: trip.CategoryStart}}, nil
		},
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/trips/adriatic-coast-abc123/stops", map[string]any{
		"title":    "Another Start",
		"lat":      42.0,
		"lng":      18.0,
		"category": "start",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAddStop_InvalidCoordinates(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return sampleTrip(), nil },
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodPost, "/api/v1/trips/adriatic-coast-abc123/stops", map[string]any{
		"title": "Nowhere",
		"lat":   95.0,
		"lng":   18.0,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteStop_NotFound(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return sampleTrip(), nil },
		deleteStopFn:    func(_ context.Context, _, _ string) (bool, error) { return false, nil },
	}
	h := buildRouter(repo, &mockResolver{}, &mockSearcher{})

	rec := doRequest(t, h, http.MethodDelete, "/api/v1/trips/adriatic-coast-abc123/stops/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- route ----

func TestGetRoute_PassesOrderedStopCoordinates(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return sampleTrip(), nil },
		listStopsFn:     func(_ context.Context, _ string) ([]trip.Stop, error) { return sampleStops(), nil },
	}
	resolver := &mockResolver{
		resolveIntoFn: func(_ context.Context, points []geo.Point, _ *routing.Store) routing.RouteInfo {
			require.Equal(t, []geo.Point{{Lat: 42.43, Lng: 18.70}, {Lat: 42.65, Lng: 18.09}}, points)
			return routing.RouteInfo{DistanceKm: 150, DurationHours: 1.5, Freshness: routing.FreshnessResolved}
		},
	}
	h := buildRouter(repo, resolver, &mockSearcher{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/trips/adriatic-coast-abc123/route", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got routing.RouteInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 150.0, got.DistanceKm)
	assert.Equal(t, routing.FreshnessResolved, got.Freshness)
}

func TestGetRoute_FallbackSurfaced(t *testing.T) {
	repo := &mockRepo{
		getTripBySlugFn: func(_ context.Context, _ string) (*trip.Trip, error) { return sampleTrip(), nil },
		listStopsFn:     func(_ context.Context, _ string) ([]trip.Stop, error) { return sampleStops(), nil },
	}
	resolver := &mockResolver{
		resolveIntoFn: func(_ context.Context, _ []geo.Point, _ *routing.Store) routing.RouteInfo {
			return routing.RouteInfo{DistanceKm: 55.3, DurationHours: 0.6, Freshness: routing.FreshnessStaleFallback}
		},
	}
	h := buildRouter(repo, resolver, &mockSearcher{})

	rec := doRequest(t, h, http.MethodGet, "/api/v1/trips/adriatic-coast-abc123/route", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got routing.RouteInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, routing.FreshnessStaleFallback, got.Freshness)
}

// ---- geocoding ----

func TestSearchLocations(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, query string) []geocoding.Candidate {
			assert.Equal(t, "123 Main St", query)
			return []geocoding.Candidate{{DisplayName: "123 Main St, Springfield", StreetNumber: "123"}}
		},
	}
	h := buildRouter(&mockRepo{}, &mockResolver{}, searcher)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/geocode?q=123+Main+St", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got []geocoding.Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "123", got[0].StreetNumber)
}

func TestSearchLocations_ShortQuery(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, _ string) []geocoding.Candidate { return []geocoding.Candidate{} },
	}
	h := buildRouter(&mockRepo{}, &mockResolver{}, searcher)

	rec := doRequest(t, h, http.MethodGet, "/api/v1/geocode?q=ab", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
