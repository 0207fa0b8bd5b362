package positions

import (
	"sync"

	"smartparking/internal/navigation/domain"
)

// Broker is an in-process position source. The transport edge publishes fixes
// into it; navigation sessions subscribe per user. Subscriptions are owned
// handles: after Unsubscribe returns, the callback never fires again.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(domain.Fix)
}

var (
	_ domain.PositionSource = (*Broker)(nil)
	_ domain.PositionSink   = (*Broker)(nil)
)

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[uint64]func(domain.Fix)),
	}
}

// Subscribe registers fn for the user's fixes and returns the handle that
// releases it.
func (b *Broker) Subscribe(userID string, fn func(domain.Fix)) (domain.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidUserID
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[uint64]func(domain.Fix))
	}
	b.subs[userID][id] = fn

	return &subscription{broker: b, userID: userID, id: id}, nil
}

// Publish delivers a fix to every subscriber of the user.
func (b *Broker) Publish(userID string, fix domain.Fix) {
	b.mu.RLock()
	fns := make([]func(domain.Fix), 0, len(b.subs[userID]))
	for _, fn := range b.subs[userID] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(fix)
	}
}

type subscription struct {
	broker *Broker
	userID string
	id     uint64
	once   sync.Once
}

// Unsubscribe releases the handle; calling it again is a no-op.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		defer s.broker.mu.Unlock()
		if fns, ok := s.broker.subs[s.userID]; ok {
			delete(fns, s.id)
			if len(fns) == 0 {
				delete(s.broker.subs, s.userID)
			}
		}
	})
}
