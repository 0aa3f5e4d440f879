package api

import (
	"context"

	"github.com/avelinov/roadbook/internal/geo"
	"github.com/avelinov/roadbook/internal/geocoding"
	"github.com/avelinov/roadbook/internal/routing"
	"github.com/avelinov/roadbook/internal/trip"
)

// TripRepo defines the storage operations needed by handlers.
type TripRepo interface {
	CreateTrip(ctx context.Context, t trip.Trip) (*trip.Trip, error)
	GetTripBySlug(ctx context.Context, slug string) (*trip.Trip, error)
	ListTrips(ctx context.Context) ([]trip.Trip, error)
	DeleteTrip(ctx context.Context, slug string) (bool, error)
	ListParticipants(ctx context.Context, tripID string) ([]trip.Participant, error)
	ListStops(ctx context.Context, tripID string) ([]trip.Stop, error)
	InsertStop(ctx context.Context, s trip.Stop) (*trip.Stop, error)
	DeleteStop(ctx context.Context, tripID, stopID string) (bool, error)
}

// RouteResolver defines the route resolution needed by handlers.
type RouteResolver interface {
	ResolveInto(ctx context.Context, points []geo.Point, store *routing.Store) routing.RouteInfo
}

// LocationSearcher defines the geocoding search needed by handlers.
type LocationSearcher interface {
	Search(ctx context.Context, query string) []geocoding.Candidate
}
