package app

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartparking/internal/common/contextx"
	"smartparking/internal/common/log"
	"smartparking/internal/navigation/domain"
)

// AppService is the public facade over navigation sessions. It performs no
// navigation logic itself: commands are routed to the per-user session, and
// session transitions fan out to the repository, the message broker, and the
// connected client. One session per user; one trip per session at a time.
type AppService struct {
	provider  domain.RouteProvider
	source    domain.PositionSource
	sink      domain.PositionSink
	publisher domain.EventPublisher
	notifier  domain.Notifier
	repo      domain.TripRepository
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	events chan domain.Event
}

func NewAppService(
	provider domain.RouteProvider,
	source domain.PositionSource,
	sink domain.PositionSink,
	publisher domain.EventPublisher,
	notifier domain.Notifier,
	repo domain.TripRepository,
	logger *slog.Logger,
) *AppService {
	a := &AppService{
		provider:  provider,
		source:    source,
		sink:      sink,
		publisher: publisher,
		notifier:  notifier,
		repo:      repo,
		logger:    logger,
		sessions:  make(map[string]*Session),
		events:    make(chan domain.Event, 256),
	}
	go a.dispatchEvents()
	return a
}

// StartTrip creates a fresh navigation session toward dest. An existing
// session for the user is torn down first. The optional origin seeds the last
// known position and triggers the initial route fetch.
func (a *AppService) StartTrip(ctx context.Context, userID string, dest domain.Coordinate, origin *domain.Coordinate) (string, error) {
	if userID == "" {
		return "", domain.ErrInvalidUserID
	}
	if !validCoordinate(dest) {
		return "", domain.ErrInvalidCoordinates
	}
	if origin != nil && !validCoordinate(*origin) {
		return "", domain.ErrInvalidCoordinates
	}

	tripID := uuid.NewString()
	ctx = contextx.WithTripID(ctx, tripID)

	a.mu.Lock()
	if old, ok := a.sessions[userID]; ok {
		old.Close()
	}
	sess := NewSession(SessionConfig{
		TripID:      tripID,
		UserID:      userID,
		Destination: dest,
		Origin:      origin,
		Provider:    a.provider,
		Source:      a.source,
		Logger:      a.logger,
		Notify:      a.enqueueEvent,
	})
	a.sessions[userID] = sess
	a.mu.Unlock()

	// persistence is best-effort; a storage hiccup never blocks navigation
	if a.repo != nil {
		trip := domain.Trip{
			ID:          tripID,
			UserID:      userID,
			Destination: dest,
			Origin:      origin,
			Status:      domain.TripStatusActive,
			StartedAt:   time.Now().UTC(),
		}
		if err := a.repo.CreateTrip(ctx, trip); err != nil {
			log.Warn(ctx, a.logger, "trip_persist_fail", "Failed to persist trip", err)
		}
	}

	a.enqueueEvent(domain.Event{
		Kind:     domain.EventTripStarted,
		TripID:   tripID,
		UserID:   userID,
		At:       time.Now().UTC(),
		Snapshot: sess.Snapshot(),
	})

	return tripID, nil
}

// BeginNavigating starts turn-by-turn tracking for the user's active trip.
func (a *AppService) BeginNavigating(ctx context.Context, userID string) error {
	sess, err := a.session(userID)
	if err != nil {
		return err
	}
	return sess.Begin(ctx)
}

// StopNavigating halts tracking but keeps the trip and its route.
func (a *AppService) StopNavigating(ctx context.Context, userID string) error {
	sess, err := a.session(userID)
	if err != nil {
		return err
	}
	return sess.Stop(ctx)
}

// ChangeDestination retargets the active session to a new destination.
func (a *AppService) ChangeDestination(ctx context.Context, userID string, dest domain.Coordinate) error {
	if !validCoordinate(dest) {
		return domain.ErrInvalidCoordinates
	}
	sess, err := a.session(userID)
	if err != nil {
		return err
	}
	return sess.ChangeDestination(ctx, dest)
}

// RequestRecenter re-enables camera follow.
func (a *AppService) RequestRecenter(userID string) error {
	sess, err := a.session(userID)
	if err != nil {
		return err
	}
	sess.Recenter()
	return nil
}

// ReportManualPan records that the user panned the map viewport.
func (a *AppService) ReportManualPan(userID string) error {
	sess, err := a.session(userID)
	if err != nil {
		return err
	}
	sess.ManualPan()
	return nil
}

// OnPosition ingests one fix from the transport edge. While navigating the
// fix travels through the position source subscription; otherwise it is
// handed to the session directly so the last known position stays fresh.
func (a *AppService) OnPosition(ctx context.Context, userID string, fix domain.Fix) error {
	if !validCoordinate(fix.Coordinate) {
		return domain.ErrInvalidCoordinates
	}
	sess, err := a.session(userID)
	if err != nil {
		return err
	}

	snap := sess.Snapshot()
	if snap.Mode == domain.ModeNavigating && a.sink != nil {
		a.sink.Publish(userID, fix)
	} else {
		sess.OnPosition(fix)
	}

	if a.repo != nil {
		go func() {
			saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := a.repo.SaveFix(saveCtx, snap.TripID, userID, fix); err != nil {
				log.Warn(saveCtx, a.logger, "fix_persist_fail", "Failed to persist fix", err)
			}
		}()
	}
	return nil
}

// Snapshot returns the current state of the user's session.
func (a *AppService) Snapshot(userID string) (domain.Snapshot, error) {
	sess, err := a.session(userID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// EndTrip tears down the user's session and finalizes the trip record.
func (a *AppService) EndTrip(ctx context.Context, userID string) error {
	a.mu.Lock()
	sess, ok := a.sessions[userID]
	if ok {
		delete(a.sessions, userID)
	}
	a.mu.Unlock()
	if !ok {
		return domain.ErrNoActiveTrip
	}

	snap := sess.Snapshot()
	sess.Close()

	if a.repo != nil {
		status := domain.TripStatusEnded
		if snap.Mode == domain.ModeArrived {
			status = domain.TripStatusArrived
		}
		ctx = contextx.WithTripID(ctx, snap.TripID)
		if err := a.repo.SetTripStatus(ctx, snap.TripID, status); err != nil {
			log.Warn(ctx, a.logger, "trip_finalize_fail", "Failed to finalize trip", err)
		}
	}

	a.enqueueEvent(domain.Event{
		Kind:     domain.EventTripEnded,
		TripID:   snap.TripID,
		UserID:   userID,
		At:       time.Now().UTC(),
		Snapshot: snap,
	})
	return nil
}

// Shutdown closes every active session.
func (a *AppService) Shutdown() {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.sessions))
	for id, sess := range a.sessions {
		sessions = append(sessions, sess)
		delete(a.sessions, id)
	}
	a.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
}

func (a *AppService) session(userID string) (*Session, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}
	a.mu.RLock()
	sess, ok := a.sessions[userID]
	a.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNoActiveTrip
	}
	return sess, nil
}

func (a *AppService) enqueueEvent(ev domain.Event) {
	select {
	case a.events <- ev:
	default:
		// drop rather than stall a session loop on a saturated fan-out
		a.logger.Warn("event_dropped", "action", "event_dispatch", "kind", string(ev.Kind), "trip_id", ev.TripID)
	}
}

// dispatchEvents fans session transitions out to the broker and the client
// socket, preserving emission order.
func (a *AppService) dispatchEvents() {
	for ev := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		ctx = contextx.WithTripID(ctx, ev.TripID)

		if a.publisher != nil {
			if err := a.publisher.PublishEvent(ctx, ev); err != nil {
				log.Warn(ctx, a.logger, "event_publish_fail", "Failed to publish navigation event", err)
			}
		}
		if a.notifier != nil {
			if err := a.notifier.SendToUser(ctx, ev.UserID, ev); err != nil {
				log.Warn(ctx, a.logger, "ws_push_fail", "Failed to push snapshot to client", err)
			}
		}
		if a.repo != nil && ev.Kind == domain.EventArrived {
			if err := a.repo.SetTripStatus(ctx, ev.TripID, domain.TripStatusArrived); err != nil {
				log.Warn(ctx, a.logger, "trip_finalize_fail", "Failed to mark trip arrived", err)
			}
		}
		cancel()
	}
}

func validCoordinate(c domain.Coordinate) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return math.Abs(c.Latitude) <= 90 && math.Abs(c.Longitude) <= 180
}
