package usecases

import (
	"sync"
	"time"

	"github.com/arkaitzh/fleetfence/internal/core/domain"
	"github.com/arkaitzh/fleetfence/internal/pkg/geo"
)

// DefaultQuietPeriod is the debounce window applied when an Editor is created
// with a non-positive one.
const DefaultQuietPeriod = 300 * time.Millisecond

// Editor drives debounced revalidation of a boundary while it is being drawn.
// Each editing session owns its own Editor (and therefore its own timer —
// concurrent sessions never interfere). Edits replace the candidate boundary
// wholesale and re-arm the quiet-period timer; validation runs only once the
// timer fires with no further edits, so a burst of drag events costs a single
// validation pass on the final shape.
//
// Until the first pass completes, the published state is provisionally valid
// and empty.
type Editor struct {
	mu       sync.Mutex
	quiet    time.Duration
	timer    *time.Timer
	gen      uint64
	boundary domain.Boundary
	result   geo.Result
	publish  func(geo.Result)
	closed   bool
}

// NewEditor creates an Editor. publish, if non-nil, is invoked after every
// completed validation pass; it runs on the timer goroutine for debounced
// passes and on the caller's goroutine for Flush.
func NewEditor(quiet time.Duration, publish func(geo.Result)) *Editor {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Editor{
		quiet:   quiet,
		publish: publish,
		result:  geo.Result{Valid: true},
	}
}

// Update replaces the candidate boundary and restarts the quiet-period timer.
// It never validates synchronously; the previously published result stays
// current until the timer fires.
func (e *Editor) Update(points domain.Boundary) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	e.boundary = points
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(e.quiet, func() { e.fire(gen) })
}

// fire runs the debounced validation pass. The generation check drops timers
// that were superseded by a later Update between scheduling and firing, so a
// stale pass can never publish over a newer one.
func (e *Editor) fire(gen uint64) {
	e.mu.Lock()
	if e.closed || gen != e.gen {
		e.mu.Unlock()
		return
	}
	res := geo.ValidateBoundary(e.boundary)
	e.result = res
	e.timer = nil
	publish := e.publish
	e.mu.Unlock()

	if publish != nil {
		publish(res)
	}
}

// Flush cancels any pending timer and validates the current candidate
// immediately. Submit handlers call this instead of trusting a possibly
// stale debounced result.
func (e *Editor) Flush() geo.Result {
	e.mu.Lock()
	if e.closed {
		res := e.result
		e.mu.Unlock()
		return res
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
	res := geo.ValidateBoundary(e.boundary)
	e.result = res
	publish := e.publish
	e.mu.Unlock()

	if publish != nil {
		publish(res)
	}
	return res
}

// State returns the latest published result without blocking.
func (e *Editor) State() geo.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result
}

// Close cancels any pending timer. No further validation runs or
// publications happen after Close returns.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}
