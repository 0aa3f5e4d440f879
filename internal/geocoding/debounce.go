package geocoding

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a rapidly-changing query is
// acted on.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer runs fn with the latest value once the input has been quiet for
// the configured interval. Every Notify cancels the pending timer and
// reschedules, so fn only ever fires for the most recent value.
type Debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
	fn    func(string)
}

// NewDebouncer constructs a Debouncer around fn.
func NewDebouncer(wait time.Duration, fn func(string)) *Debouncer {
	return &Debouncer{wait: wait, fn: fn}
}

// Notify records a new input value and restarts the quiet-period timer.
func (d *Debouncer) Notify(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fn(value) })
}

// Stop cancels any pending invocation.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// LiveSearcher couples a Searcher to a debounced input stream: queries
// arrive keystroke by keystroke via SetQuery, a search is issued only after
// the quiet period, and a result that arrives for a query that has since
// been superseded is discarded instead of delivered. Generation counting
// compared at resolution time gives last-issued-wins, not last-to-complete.
type LiveSearcher struct {
	searcher *Searcher
	debounce *Debouncer
	deliver  func(query string, results []Candidate)

	mu  sync.Mutex
	gen uint64
}

// NewLiveSearcher constructs a LiveSearcher delivering results to deliver.
func NewLiveSearcher(searcher *Searcher, wait time.Duration, deliver func(string, []Candidate)) *LiveSearcher {
	ls := &LiveSearcher{searcher: searcher, deliver: deliver}
	ls.debounce = NewDebouncer(wait, ls.fire)
	return ls
}

// SetQuery records the latest query text. Supersedes any in-flight search.
func (ls *LiveSearcher) SetQuery(query string) {
	ls.mu.Lock()
	ls.gen++
	ls.mu.Unlock()

	ls.debounce.Notify(query)
}

// Close cancels any pending search.
func (ls *LiveSearcher) Close() {
	ls.debounce.Stop()
}

func (ls *LiveSearcher) fire(query string) {
	ls.mu.Lock()
	issued := ls.gen
	ls.mu.Unlock()

	results := ls.searcher.Search(context.Background(), query)

	ls.mu.Lock()
	stale := ls.gen != issued
	ls.mu.Unlock()
	if stale {
		return
	}

	ls.deliver(query, results)
}
