package api

import (
	"sync"

	"github.com/avelinov/roadbook/internal/routing"
)

// RouteState keeps one route-info store per trip, so every consumer of a
// trip's route observes the same freshest value and stale resolutions for
// superseded stop sequences are discarded in one place.
type RouteState struct {
	mu     sync.Mutex
	stores map[string]*routing.Store
}

// NewRouteState constructs an empty RouteState.
func NewRouteState() *RouteState {
	return &RouteState{stores: make(map[string]*routing.Store)}
}

// ForTrip returns the store for the given trip, creating it on first use.
func (rs *RouteState) ForTrip(tripID string) *routing.Store {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	store, ok := rs.stores[tripID]
	if !ok {
		store = routing.NewStore()
		rs.stores[tripID] = store
	}
	return store
}
