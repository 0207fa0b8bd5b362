package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"smartparking/internal/navigation/domain"
	"smartparking/internal/navigation/geo"
)

// Fixed navigation thresholds. These are design constants calibrated against
// the planar distance approximation in the geo package; they are never varied
// per route or per call.
const (
	ArrivalRadiusMeters = 25.0
	StepAdvanceMeters   = 35.0
	OffRouteMeters      = 120.0
	RerouteDebounce     = 1500 * time.Millisecond
)

// Session owns the mutable state of one navigation trip. All inputs
// (position fixes, route fetch results, timer firings, user commands) are
// serialized onto a single event queue consumed by one goroutine, so a
// handler always runs to completion before the next event is applied.
type Session struct {
	tripID string
	userID string
	logger *slog.Logger

	provider domain.RouteProvider
	source   domain.PositionSource
	notify   func(domain.Event)

	// debounce is RerouteDebounce outside of tests
	debounce time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	events    chan any
	done      chan struct{}
	closeOnce sync.Once

	mu           sync.Mutex
	mode         domain.Mode
	destination  domain.Coordinate
	route        *domain.Route
	stepIndex    int
	lastFix      *domain.Fix
	followCamera bool
	rerouting    bool
	fetching     bool
	lastErr      error
	generation   uint64
	sub          domain.Subscription
	rerouteTimer *time.Timer
	closed       bool
}

// SessionConfig wires a new session.
type SessionConfig struct {
	TripID      string
	UserID      string
	Destination domain.Coordinate
	Origin      *domain.Coordinate
	Provider    domain.RouteProvider
	Source      domain.PositionSource
	Logger      *slog.Logger
	Notify      func(domain.Event)
}

// internal queue events
type (
	fixEvent         struct{ fix domain.Fix }
	rerouteFireEvent struct {
		origin domain.Coordinate
		gen    uint64
	}
	routeResultEvent struct {
		route   *domain.Route
		err     error
		gen     uint64
		reroute bool
	}
	beginEvent      struct{ reply chan error }
	stopEvent       struct{ reply chan error }
	recenterEvent   struct{}
	manualPanEvent  struct{}
	changeDestEvent struct {
		dest  domain.Coordinate
		reply chan error
	}
	barrierEvent struct{ reply chan struct{} }
)

// NewSession creates a session in Preview mode and starts its event loop.
// When an origin is known it seeds the last fix and kicks off the initial
// route fetch immediately; otherwise the fetch is deferred to the first fix.
func NewSession(cfg SessionConfig) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		tripID:       cfg.TripID,
		userID:       cfg.UserID,
		logger:       cfg.Logger,
		provider:     cfg.Provider,
		source:       cfg.Source,
		notify:       cfg.Notify,
		debounce:     RerouteDebounce,
		ctx:          ctx,
		cancel:       cancel,
		events:       make(chan any, 64),
		done:         make(chan struct{}),
		mode:         domain.ModePreview,
		destination:  cfg.Destination,
		followCamera: false,
	}

	if cfg.Origin != nil {
		fix := domain.Fix{Coordinate: *cfg.Origin, ReceivedAt: time.Now().UTC()}
		s.lastFix = &fix
		s.startFetchLocked(*cfg.Origin, false)
	}

	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			s.teardown()
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// handle applies one event under the session lock, then fires notifications
// outside of it.
func (s *Session) handle(ev any) {
	var out []domain.Event

	s.mu.Lock()
	switch e := ev.(type) {
	case fixEvent:
		out = s.handleFixLocked(e.fix)
	case rerouteFireEvent:
		out = s.handleRerouteFireLocked(e)
	case routeResultEvent:
		out = s.handleRouteResultLocked(e)
	case beginEvent:
		out = s.handleBeginLocked(e.reply)
	case stopEvent:
		out = s.handleStopLocked(e.reply)
	case recenterEvent:
		if !s.followCamera {
			s.followCamera = true
			out = append(out, s.eventLocked(domain.EventCameraChanged))
		}
	case manualPanEvent:
		if s.followCamera {
			s.followCamera = false
			out = append(out, s.eventLocked(domain.EventCameraChanged))
		}
	case changeDestEvent:
		out = s.handleChangeDestinationLocked(e)
	case barrierEvent:
		close(e.reply)
	}
	s.mu.Unlock()

	if s.notify != nil {
		for _, e := range out {
			s.notify(e)
		}
	}
}

// handleFixLocked runs the per-fix update: arrival first, then step advance,
// then the off-route check. The off-route distance is measured against the
// step that was current when the fix began processing, even if this same fix
// advances the index.
func (s *Session) handleFixLocked(fix domain.Fix) []domain.Event {
	f := fix
	s.lastFix = &f

	if s.mode == domain.ModePreview {
		// no route yet and nothing in flight: use this fix as the origin
		if s.route == nil && !s.fetching && s.lastErr == nil {
			s.startFetchLocked(fix.Coordinate, false)
		}
		return nil
	}
	if s.mode != domain.ModeNavigating {
		return nil
	}

	if geo.DistanceMeters(fix.Coordinate, s.destination) < ArrivalRadiusMeters {
		s.generation++
		s.cancelRerouteTimerLocked()
		s.rerouting = false
		s.fetching = false
		s.unsubscribeLocked()
		s.mode = domain.ModeArrived
		return []domain.Event{s.eventLocked(domain.EventArrived)}
	}

	if s.route == nil || len(s.route.Steps) == 0 {
		return nil
	}

	var out []domain.Event
	current := s.route.Steps[s.stepIndex]

	if s.stepIndex+1 < len(s.route.Steps) {
		next := s.route.Steps[s.stepIndex+1]
		if geo.DistanceMeters(fix.Coordinate, next.Location) < StepAdvanceMeters {
			// advance by exactly one; overshoot resolves on the next fix
			s.stepIndex++
			out = append(out, s.eventLocked(domain.EventStepAdvanced))
		}
	}

	if !s.rerouting && geo.DistanceMeters(fix.Coordinate, current.Location) > OffRouteMeters {
		s.armRerouteLocked(fix.Coordinate)
		out = append(out, s.eventLocked(domain.EventRerouting))
	}

	return out
}

func (s *Session) handleBeginLocked(reply chan error) []domain.Event {
	if s.closed {
		reply <- domain.ErrSessionClosed
		return nil
	}
	if s.mode == domain.ModeNavigating {
		reply <- nil
		return nil
	}
	if s.mode == domain.ModeArrived {
		reply <- domain.ErrNoActiveTrip
		return nil
	}
	if s.route == nil {
		reply <- domain.ErrRouteUnavailable
		return nil
	}
	if s.lastFix == nil {
		reply <- domain.ErrPositionUnavailable
		return nil
	}

	sub, err := s.source.Subscribe(s.userID, func(f domain.Fix) {
		s.enqueue(fixEvent{fix: f})
	})
	if err != nil {
		s.lastErr = domain.ErrPositionUnavailable
		reply <- domain.ErrPositionUnavailable
		return nil
	}

	s.sub = sub
	s.mode = domain.ModeNavigating
	s.followCamera = true
	s.lastErr = nil
	reply <- nil
	return []domain.Event{s.eventLocked(domain.EventNavigationStarted)}
}

func (s *Session) handleStopLocked(reply chan error) []domain.Event {
	if s.mode != domain.ModeNavigating {
		reply <- nil
		return nil
	}

	s.generation++
	s.cancelRerouteTimerLocked()
	s.rerouting = false
	s.fetching = false
	s.unsubscribeLocked()
	s.mode = domain.ModePreview // the route is kept for a later begin
	reply <- nil
	return []domain.Event{s.eventLocked(domain.EventNavigationStopped)}
}

// handleChangeDestinationLocked treats a new destination as a new trip: the
// prior route and step index are discarded and a fresh route is fetched when
// an origin is known.
func (s *Session) handleChangeDestinationLocked(e changeDestEvent) []domain.Event {
	if s.closed {
		e.reply <- domain.ErrSessionClosed
		return nil
	}

	s.generation++
	s.cancelRerouteTimerLocked()
	s.rerouting = false
	s.fetching = false
	s.unsubscribeLocked()
	s.mode = domain.ModePreview
	s.destination = e.dest
	s.route = nil
	s.stepIndex = 0
	s.lastErr = nil

	if s.lastFix != nil {
		s.startFetchLocked(s.lastFix.Coordinate, false)
	}

	e.reply <- nil
	return []domain.Event{s.eventLocked(domain.EventDestinationChanged)}
}

// teardown releases every session resource. It runs exactly once, from the
// event loop, after Close cancels the context.
func (s *Session) teardown() {
	s.mu.Lock()
	s.generation++
	s.cancelRerouteTimerLocked()
	s.rerouting = false
	s.fetching = false
	s.unsubscribeLocked()
	s.closed = true
	s.mu.Unlock()
}

func (s *Session) unsubscribeLocked() {
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

func (s *Session) eventLocked(kind domain.EventKind) domain.Event {
	return domain.Event{
		Kind:     kind,
		TripID:   s.tripID,
		UserID:   s.userID,
		At:       time.Now().UTC(),
		Snapshot: s.snapshotLocked(),
	}
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		TripID:           s.tripID,
		UserID:           s.userID,
		Mode:             s.mode,
		Destination:      s.destination,
		Route:            s.route,
		CurrentStepIndex: s.stepIndex,
		FollowCamera:     s.followCamera,
		Rerouting:        s.rerouting,
	}
	if s.route != nil && s.stepIndex < len(s.route.Steps) {
		step := s.route.Steps[s.stepIndex]
		snap.CurrentStep = &step
	}
	if s.lastFix != nil {
		fix := *s.lastFix
		snap.LastFix = &fix
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

func (s *Session) enqueue(ev any) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// --- public API (the facade calls these) ---

// OnPosition feeds an externally received fix into the session. Outside of
// Navigating it only refreshes the last known position (and triggers the
// initial route fetch when none has been attempted yet).
func (s *Session) OnPosition(fix domain.Fix) {
	s.enqueue(fixEvent{fix: fix})
}

// Begin transitions Preview -> Navigating. It requires a fetched route and a
// known position, subscribes to the position source, and enables camera
// follow.
func (s *Session) Begin(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.events <- beginEvent{reply: reply}:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop transitions Navigating -> Preview, releasing the position subscription
// and any armed reroute timer. The active route is kept.
func (s *Session) Stop(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case s.events <- stopEvent{reply: reply}:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ChangeDestination starts a new trip toward dest within this session.
func (s *Session) ChangeDestination(ctx context.Context, dest domain.Coordinate) error {
	reply := make(chan error, 1)
	select {
	case s.events <- changeDestEvent{dest: dest, reply: reply}:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recenter re-enables camera follow after a manual pan.
func (s *Session) Recenter() {
	s.enqueue(recenterEvent{})
}

// ManualPan records that the user panned the viewport; camera follow stays
// off until an explicit recenter or a fresh Begin.
func (s *Session) ManualPan() {
	s.enqueue(manualPanEvent{})
}

// Snapshot returns a read-only copy of the current session state.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close tears the session down and waits for the event loop to release the
// position subscription and any armed timer. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

// flush waits until every event enqueued before it has been processed.
func (s *Session) flush() {
	reply := make(chan struct{})
	select {
	case s.events <- barrierEvent{reply: reply}:
	case <-s.done:
		return
	}
	select {
	case <-reply:
	case <-s.done:
	}
}
