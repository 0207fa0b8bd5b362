package domain

import "time"

// EventKind names a session state transition.
type EventKind string

const (
	EventTripStarted        EventKind = "trip_started"
	EventRouteReady         EventKind = "route_ready"
	EventRouteFailed        EventKind = "route_failed"
	EventNavigationStarted  EventKind = "navigation_started"
	EventStepAdvanced       EventKind = "step_advanced"
	EventRerouting          EventKind = "rerouting"
	EventRouteReplaced      EventKind = "route_replaced"
	EventRerouteFailed      EventKind = "reroute_failed"
	EventArrived            EventKind = "arrived"
	EventNavigationStopped  EventKind = "navigation_stopped"
	EventDestinationChanged EventKind = "destination_changed"
	EventCameraChanged      EventKind = "camera_changed"
	EventTripEnded          EventKind = "trip_ended"
)

// Event is emitted on every state transition together with the snapshot
// taken right after the transition applied.
type Event struct {
	Kind     EventKind `json:"kind"`
	TripID   string    `json:"trip_id"`
	UserID   string    `json:"user_id"`
	At       time.Time `json:"at"`
	Snapshot Snapshot  `json:"snapshot"`
}
