package routing

import "sync"

// Store holds the route info for the stop sequence currently being viewed
// and notifies subscribers when it changes. Each value is tagged with the
// cache key of the sequence that produced it; a result arriving for a
// sequence that has since been superseded is discarded rather than applied.
type Store struct {
	mu      sync.Mutex
	current string
	info    RouteInfo
	nextID  int
	subs    map[int]func(RouteInfo)
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(RouteInfo))}
}

// Track marks key as the active stop sequence and resets the visible value
// to a loading marker. Prior distance and duration are retained for display
// continuity; the loading freshness marks them non-final.
func (s *Store) Track(key string) {
	s.mu.Lock()
	s.current = key
	s.info.Freshness = FreshnessLoading
	info := s.info
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(info)
	}
}

// Apply sets the route info produced for key. It reports whether the value
// was applied; a value for a superseded key is dropped.
func (s *Store) Apply(key string, info RouteInfo) bool {
	s.mu.Lock()
	if key != s.current {
		s.mu.Unlock()
		return false
	}
	s.info = info
	subs := s.snapshot()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(info)
	}
	return true
}

// Get returns the current route info.
func (s *Store) Get() RouteInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Subscribe registers fn to run on every applied change and returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(RouteInfo)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// snapshot copies the subscriber list so callbacks run outside the lock.
func (s *Store) snapshot() []func(RouteInfo) {
	out := make([]func(RouteInfo), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
