package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/avelinov/roadbook/internal/geo"
	"github.com/avelinov/roadbook/internal/trip"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo       TripRepo
	routes     RouteResolver
	locations  LocationSearcher
	routeState *RouteState
	log        *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
func NewHandlers(repo TripRepo, routes RouteResolver, locations LocationSearcher, routeState *RouteState, log *slog.Logger) *Handlers {
	return &Handlers{
		repo:       repo,
		routes:     routes,
		locations:  locations,
		routeState: routeState,
		log:        log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---- trips ----

type createTripRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

func (req createTripRequest) validate() string {
	if n := len(strings.TrimSpace(req.Title)); n < 3 || n > 100 {
		return "title must be between 3 and 100 characters"
	}
	if n := len(strings.TrimSpace(req.Description)); n < 10 || n > 500 {
		return "description must be between 10 and 500 characters"
	}
	if req.OwnerID == "" {
		return "owner_id is required"
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return "start_date must be a YYYY-MM-DD date"
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return "end_date must be a YYYY-MM-DD date"
	}
	if !start.Before(end) {
		return "end_date must be after start_date"
	}
	return ""
}

// CreateTrip handles POST /api/v1/trips.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.repo.CreateTrip(r.Context(), trip.Trip{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		OwnerID:     req.OwnerID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.log.Error("trip create failed", "title", req.Title, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create trip")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// ListTrips handles GET /api/v1/trips.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.repo.ListTrips(r.Context())
	if err != nil {
		h.log.Error("trip list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if trips == nil {
		trips = []trip.Trip{}
	}
	writeJSON(w, http.StatusOK, trips)
}

type tripDetailResponse struct {
	trip.Trip
	Participants []trip.Participant `json:"participants"`
	Stops        []trip.Stop        `json:"stops"`
}

// GetTrip handles GET /api/v1/trips/{slug}: the trip with its participants
// and its stops in itinerary order.
func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	t, err := h.repo.GetTripBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error("trip get failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}

	participants, err := h.repo.ListParticipants(r.Context(), t.ID)
	if err != nil {
		h.log.Error("participant list failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	stops, err := h.repo.ListStops(r.Context(), t.ID)
	if err != nil {
		h.log.Error("stop list failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if participants == nil {
		participants = []trip.Participant{}
	}
	if stops == nil {
		stops = []trip.Stop{}
	}

	writeJSON(w, http.StatusOK, tripDetailResponse{Trip: *t, Participants: participants, Stops: stops})
}

// DeleteTrip handles DELETE /api/v1/trips/{slug}.
func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	deleted, err := h.repo.DeleteTrip(r.Context(), slug)
	if err != nil {
		h.log.Error("trip delete failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---- stops ----

type addStopRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Category    string  `json:"category"`
}

// AddStop handles POST /api/v1/trips/{slug}/stops. The new stop is appended
// after the trip's current stops; at most one start and one end stop may
// exist per trip.
func (h *Handlers) AddStop(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	t, err := h.repo.GetTripBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error("trip get failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}

	var req addStopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	category := trip.Category(req.Category)
	if req.Category == "" {
		category = trip.CategoryStop
	}

	s := trip.Stop{
		TripID:      t.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Lat:         req.Lat,
		Lng:         req.Lng,
		Category:    category,
	}
	if err := trip.ValidateStop(s); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.repo.ListStops(r.Context(), t.ID)
	if err != nil {
		h.log.Error("stop list failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := trip.CheckCategoryLimits(existing, category); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.Order = trip.NextOrder(existing)

	created, err := h.repo.InsertStop(r.Context(), s)
	if err != nil {
		h.log.Error("stop insert failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to add stop")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// DeleteStop handles DELETE /api/v1/trips/{slug}/stops/{id}.
func (h *Handlers) DeleteStop(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	stopID := chi.URLParam(r, "id")

	t, err := h.repo.GetTripBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error("trip get failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}

	deleted, err := h.repo.DeleteStop(r.Context(), t.ID, stopID)
	if err != nil {
		h.log.Error("stop delete failed", "slug", slug, "stop", stopID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "stop not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ---- route ----

// GetRoute handles GET /api/v1/trips/{slug}/route: the routed path over the
// trip's stops in itinerary order. Fewer than 2 stops yields a zero route;
// when the routing service is down the response carries a straight-line
// estimate marked stale-fallback.
func (h *Handlers) GetRoute(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	t, err := h.repo.GetTripBySlug(r.Context(), slug)
	if err != nil {
		h.log.Error("trip get failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return
	}

	stops, err := h.repo.ListStops(r.Context(), t.ID)
	if err != nil {
		h.log.Error("stop list failed", "slug", slug, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	points := make([]geo.Point, len(stops))
	for i, s := range stops {
		points[i] = geo.Point{Lat: s.Lat, Lng: s.Lng}
	}

	info := h.routes.ResolveInto(r.Context(), points, h.routeState.ForTrip(t.ID))
	writeJSON(w, http.StatusOK, info)
}

// ---- geocoding ----

// SearchLocations handles GET /api/v1/geocode?q=.
// Queries shorter than 3 characters return an empty list without a lookup.
func (h *Handlers) SearchLocations(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := h.locations.Search(r.Context(), query)
	writeJSON(w, http.StatusOK, results)
}
