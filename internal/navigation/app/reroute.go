package app

import (
	"fmt"
	"time"

	"smartparking/internal/navigation/domain"
)

// Reroute scheduling.
//
// The scheduler guarantees at most one in-flight reroute cycle: the rerouting
// flag is raised at arm time, so repeated off-route fixes landing during the
// debounce window are no-ops. Eligibility is evaluated at arm time only and
// never re-checked when the timer fires; a fix that comes back on-route
// during the window does not cancel the cycle. Every armed timer and every
// fetch carries the generation current at arm time, and results with a stale
// generation are discarded instead of applied.

// armRerouteLocked raises the rerouting flag and arms the single-shot
// debounce timer.
func (s *Session) armRerouteLocked(origin domain.Coordinate) {
	s.rerouting = true
	gen := s.generation
	s.rerouteTimer = time.AfterFunc(s.debounce, func() {
		s.enqueue(rerouteFireEvent{origin: origin, gen: gen})
	})
}

// cancelRerouteTimerLocked stops and releases an armed timer. Cancelling an
// already-fired or already-cancelled timer is a no-op.
func (s *Session) cancelRerouteTimerLocked() {
	if s.rerouteTimer != nil {
		s.rerouteTimer.Stop()
		s.rerouteTimer = nil
	}
}

// handleRerouteFireLocked issues the debounced fetch, unless the session
// moved on (stop, arrival, destination change, teardown) while the timer was
// armed.
func (s *Session) handleRerouteFireLocked(e rerouteFireEvent) []domain.Event {
	s.rerouteTimer = nil

	if s.closed || e.gen != s.generation || s.mode != domain.ModeNavigating {
		return nil
	}

	s.startRerouteFetchLocked(e.origin)
	return nil
}

func (s *Session) startRerouteFetchLocked(origin domain.Coordinate) {
	gen := s.generation
	dest := s.destination
	ctx := s.ctx
	go func() {
		route, err := s.provider.FetchRoute(ctx, origin, dest)
		s.enqueue(routeResultEvent{route: route, err: err, gen: gen, reroute: true})
	}()
}

// startFetchLocked launches the initial (non-reroute) route fetch.
func (s *Session) startFetchLocked(origin domain.Coordinate, reroute bool) {
	s.fetching = true
	gen := s.generation
	dest := s.destination
	ctx := s.ctx
	go func() {
		route, err := s.provider.FetchRoute(ctx, origin, dest)
		s.enqueue(routeResultEvent{route: route, err: err, gen: gen, reroute: reroute})
	}()
}

// handleRouteResultLocked applies a fetch completion. A result is stale when
// the session stopped, arrived, changed destination, or was torn down since
// the fetch started; stale results are discarded entirely.
func (s *Session) handleRouteResultLocked(e routeResultEvent) []domain.Event {
	if e.gen != s.generation {
		return nil
	}

	s.fetching = false

	if e.err != nil {
		if e.reroute {
			// the stale route stays active rather than dropping guidance;
			// off-route detection keeps re-triggering on later fixes
			s.rerouting = false
			s.lastErr = fmt.Errorf("%w: %v", domain.ErrRerouteFailed, e.err)
			return []domain.Event{s.eventLocked(domain.EventRerouteFailed)}
		}
		s.lastErr = e.err
		return []domain.Event{s.eventLocked(domain.EventRouteFailed)}
	}

	s.route = e.route
	s.stepIndex = 0
	s.rerouting = false
	s.lastErr = nil

	if e.reroute {
		return []domain.Event{s.eventLocked(domain.EventRouteReplaced)}
	}
	return []domain.Event{s.eventLocked(domain.EventRouteReady)}
}
