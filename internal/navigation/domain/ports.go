package domain

import (
	"context"
)

// RouteProvider fetches a drivable route between two points.
type RouteProvider interface {
	FetchRoute(ctx context.Context, origin, destination Coordinate) (*Route, error)
}

// Subscription is an owned handle on a position stream. Unsubscribe is
// idempotent; after it returns no further callbacks fire.
type Subscription interface {
	Unsubscribe()
}

// PositionSource delivers position fixes for a user at an
// environment-determined cadence.
type PositionSource interface {
	Subscribe(userID string, fn func(Fix)) (Subscription, error)
}

// PositionSink accepts fixes from the transport edge and fans them out to
// subscribers.
type PositionSink interface {
	Publish(userID string, fix Fix)
}

// EventPublisher pushes navigation events to the message broker.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// Notifier sends a message to a connected presentation client.
type Notifier interface {
	SendToUser(ctx context.Context, userID string, msg any) error
}

// TripRepository persists trips and received fixes.
type TripRepository interface {
	CreateTrip(ctx context.Context, trip Trip) error
	SaveFix(ctx context.Context, tripID, userID string, fix Fix) error
	SetTripStatus(ctx context.Context, tripID, status string) error
}
