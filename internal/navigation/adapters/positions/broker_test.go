package positions

import (
	"errors"
	"testing"
	"time"

	"smartparking/internal/navigation/domain"
)

func fix(lat, lng float64) domain.Fix {
	return domain.Fix{
		Coordinate: domain.Coordinate{Latitude: lat, Longitude: lng},
		ReceivedAt: time.Now().UTC(),
	}
}

func TestBrokerDeliversPerUser(t *testing.T) {
	b := NewBroker()

	var got []domain.Fix
	sub, err := b.Subscribe("driver-1", func(f domain.Fix) { got = append(got, f) })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	var other int
	sub2, err := b.Subscribe("driver-2", func(domain.Fix) { other++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub2.Unsubscribe()

	b.Publish("driver-1", fix(43.22, 76.85))
	b.Publish("driver-1", fix(43.23, 76.86))
	b.Publish("driver-3", fix(1, 1)) // nobody listening

	if len(got) != 2 {
		t.Fatalf("delivered = %d, want 2", len(got))
	}
	if got[0].Latitude != 43.22 || got[1].Latitude != 43.23 {
		t.Fatalf("wrong fixes: %+v", got)
	}
	if other != 0 {
		t.Fatalf("cross-user delivery: %d", other)
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()

	calls := 0
	sub, err := b.Subscribe("driver-1", func(domain.Fix) { calls++ })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b.Publish("driver-1", fix(43.22, 76.85))
	sub.Unsubscribe()
	b.Publish("driver-1", fix(43.23, 76.86))

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}

	// idempotent
	sub.Unsubscribe()
	sub.Unsubscribe()
}

func TestBrokerRejectsEmptyUser(t *testing.T) {
	b := NewBroker()
	if _, err := b.Subscribe("", func(domain.Fix) {}); !errors.Is(err, domain.ErrInvalidUserID) {
		t.Fatalf("err = %v, want ErrInvalidUserID", err)
	}
}

func TestBrokerReplacementSubscription(t *testing.T) {
	b := NewBroker()

	first, second := 0, 0
	subA, _ := b.Subscribe("driver-1", func(domain.Fix) { first++ })
	subA.Unsubscribe()
	subB, _ := b.Subscribe("driver-1", func(domain.Fix) { second++ })
	defer subB.Unsubscribe()

	// a stale handle must not tear down the replacement
	subA.Unsubscribe()
	b.Publish("driver-1", fix(43.22, 76.85))

	if first != 0 || second != 1 {
		t.Fatalf("first = %d second = %d, want 0 and 1", first, second)
	}
}
