package app

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"smartparking/internal/navigation/domain"
)

// fakeBroker is an in-memory position source and sink for facade tests.
type fakeBroker struct {
	mu        sync.Mutex
	callbacks map[string]func(domain.Fix)
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{callbacks: make(map[string]func(domain.Fix))}
}

func (b *fakeBroker) Subscribe(userID string, fn func(domain.Fix)) (domain.Subscription, error) {
	b.mu.Lock()
	b.callbacks[userID] = fn
	b.mu.Unlock()
	return &fakeSub{}, nil
}

func (b *fakeBroker) Publish(userID string, fix domain.Fix) {
	b.mu.Lock()
	fn := b.callbacks[userID]
	b.mu.Unlock()
	if fn != nil {
		fn(fix)
	}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *fakePublisher) PublishEvent(ctx context.Context, ev domain.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) count(kind domain.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []any
}

func (n *fakeNotifier) SendToUser(ctx context.Context, userID string, msg any) error {
	n.mu.Lock()
	n.sent = append(n.sent, msg)
	n.mu.Unlock()
	return nil
}

type fakeRepo struct {
	mu       sync.Mutex
	trips    []domain.Trip
	fixes    int
	statuses map[string]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{statuses: make(map[string]string)}
}

func (r *fakeRepo) CreateTrip(ctx context.Context, trip domain.Trip) error {
	r.mu.Lock()
	r.trips = append(r.trips, trip)
	r.mu.Unlock()
	return nil
}

func (r *fakeRepo) SaveFix(ctx context.Context, tripID, userID string, fix domain.Fix) error {
	r.mu.Lock()
	r.fixes++
	r.mu.Unlock()
	return nil
}

func (r *fakeRepo) SetTripStatus(ctx context.Context, tripID, status string) error {
	r.mu.Lock()
	r.statuses[tripID] = status
	r.mu.Unlock()
	return nil
}

func (r *fakeRepo) status(tripID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[tripID]
}

func newTestService(t *testing.T, p *fakeProvider) (*AppService, *fakeBroker, *fakePublisher, *fakeRepo) {
	t.Helper()
	broker := newFakeBroker()
	pub := &fakePublisher{}
	repo := newFakeRepo()
	svc := NewAppService(p, broker, broker, pub, &fakeNotifier{}, repo, testLogger())
	t.Cleanup(svc.Shutdown)
	return svc, broker, pub, repo
}

func TestStartTripValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t, &fakeProvider{})

	if _, err := svc.StartTrip(context.Background(), "", dest, nil); !errors.Is(err, domain.ErrInvalidUserID) {
		t.Fatalf("empty user = %v, want ErrInvalidUserID", err)
	}

	bad := domain.Coordinate{Latitude: math.NaN(), Longitude: 76.85}
	if _, err := svc.StartTrip(context.Background(), "driver-1", bad, nil); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Fatalf("NaN destination = %v, want ErrInvalidCoordinates", err)
	}

	outOfRange := domain.Coordinate{Latitude: 91, Longitude: 0}
	if _, err := svc.StartTrip(context.Background(), "driver-1", dest, &outOfRange); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Fatalf("out-of-range origin = %v, want ErrInvalidCoordinates", err)
	}

	if _, err := svc.Snapshot("driver-1"); !errors.Is(err, domain.ErrNoActiveTrip) {
		t.Fatalf("snapshot without trip = %v, want ErrNoActiveTrip", err)
	}
	if err := svc.BeginNavigating(context.Background(), "driver-1"); !errors.Is(err, domain.ErrNoActiveTrip) {
		t.Fatalf("begin without trip = %v, want ErrNoActiveTrip", err)
	}
}

func TestTripLifecycle(t *testing.T) {
	p := &fakeProvider{}
	p.set(routeWithSteps(base, offset(base, 2500, 0), dest), nil)
	svc, _, pub, repo := newTestService(t, p)

	origin := base
	tripID, err := svc.StartTrip(context.Background(), "driver-1", dest, &origin)
	if err != nil {
		t.Fatalf("start trip: %v", err)
	}
	if tripID == "" {
		t.Fatalf("empty trip id")
	}

	repo.mu.Lock()
	nTrips := len(repo.trips)
	repo.mu.Unlock()
	if nTrips != 1 {
		t.Fatalf("persisted trips = %d, want 1", nTrips)
	}

	waitUntil(t, "trip_started published", func() bool { return pub.count(domain.EventTripStarted) == 1 })
	waitUntil(t, "route ready", func() bool {
		snap, err := svc.Snapshot("driver-1")
		return err == nil && snap.Route != nil
	})

	if err := svc.BeginNavigating(context.Background(), "driver-1"); err != nil {
		t.Fatalf("begin: %v", err)
	}

	// while navigating, fixes flow through the broker into the session
	near := offset(base, 10, 0)
	if err := svc.OnPosition(context.Background(), "driver-1", fixAt(near)); err != nil {
		t.Fatalf("on position: %v", err)
	}
	waitUntil(t, "fix applied", func() bool {
		snap, err := svc.Snapshot("driver-1")
		return err == nil && snap.LastFix != nil && snap.LastFix.Coordinate == near
	})
	waitUntil(t, "fix persisted", func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.fixes == 1
	})

	// arriving flips the persisted status without an explicit end call
	if err := svc.OnPosition(context.Background(), "driver-1", fixAt(offset(dest, -10, 0))); err != nil {
		t.Fatalf("arrival fix: %v", err)
	}
	waitUntil(t, "arrival persisted", func() bool { return repo.status(tripID) == domain.TripStatusArrived })
	waitUntil(t, "arrived published", func() bool { return pub.count(domain.EventArrived) == 1 })

	if err := svc.EndTrip(context.Background(), "driver-1"); err != nil {
		t.Fatalf("end trip: %v", err)
	}
	if repo.status(tripID) != domain.TripStatusArrived {
		t.Fatalf("final status = %q, want ARRIVED", repo.status(tripID))
	}
	waitUntil(t, "trip_ended published", func() bool { return pub.count(domain.EventTripEnded) == 1 })

	if _, err := svc.Snapshot("driver-1"); !errors.Is(err, domain.ErrNoActiveTrip) {
		t.Fatalf("snapshot after end = %v, want ErrNoActiveTrip", err)
	}
	if err := svc.EndTrip(context.Background(), "driver-1"); !errors.Is(err, domain.ErrNoActiveTrip) {
		t.Fatalf("double end = %v, want ErrNoActiveTrip", err)
	}
}

func TestStartTripReplacesExistingSession(t *testing.T) {
	p := &fakeProvider{}
	p.set(routeWithSteps(base, dest), nil)
	svc, _, _, _ := newTestService(t, p)

	origin := base
	first, err := svc.StartTrip(context.Background(), "driver-1", dest, &origin)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}

	second, err := svc.StartTrip(context.Background(), "driver-1", dest, &origin)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first == second {
		t.Fatalf("trip id reused")
	}

	snap, err := svc.Snapshot("driver-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TripID != second {
		t.Fatalf("active trip = %s, want %s", snap.TripID, second)
	}
}

func TestOnPositionBeforeNavigatingGoesDirect(t *testing.T) {
	p := &fakeProvider{}
	p.set(routeWithSteps(base, dest), nil)
	svc, broker, _, _ := newTestService(t, p)

	if _, err := svc.StartTrip(context.Background(), "driver-1", dest, nil); err != nil {
		t.Fatalf("start trip: %v", err)
	}

	// nothing is subscribed yet; the fix must still reach the session
	if err := svc.OnPosition(context.Background(), "driver-1", fixAt(base)); err != nil {
		t.Fatalf("on position: %v", err)
	}
	waitUntil(t, "fix applied in preview", func() bool {
		snap, err := svc.Snapshot("driver-1")
		return err == nil && snap.LastFix != nil
	})

	broker.mu.Lock()
	subscribed := len(broker.callbacks)
	broker.mu.Unlock()
	if subscribed != 0 {
		t.Fatalf("subscriptions before begin = %d, want 0", subscribed)
	}
}

func TestEndTripEndedWhenNotArrived(t *testing.T) {
	p := &fakeProvider{}
	p.set(routeWithSteps(base, dest), nil)
	svc, _, _, repo := newTestService(t, p)

	origin := base
	tripID, err := svc.StartTrip(context.Background(), "driver-1", dest, &origin)
	if err != nil {
		t.Fatalf("start trip: %v", err)
	}

	if err := svc.EndTrip(context.Background(), "driver-1"); err != nil {
		t.Fatalf("end trip: %v", err)
	}
	if repo.status(tripID) != domain.TripStatusEnded {
		t.Fatalf("status = %q, want ENDED", repo.status(tripID))
	}
}
