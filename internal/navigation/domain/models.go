package domain

import "time"

// Coordinate is a (latitude, longitude) pair in degrees. Values are taken as
// reported; GPS noise means out-of-range checks belong at the API edge, not
// here.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ManeuverKind enumerates the instruction at a step's location.
type ManeuverKind string

const (
	ManeuverDepart     ManeuverKind = "depart"
	ManeuverArrive     ManeuverKind = "arrive"
	ManeuverTurn       ManeuverKind = "turn"
	ManeuverMerge      ManeuverKind = "merge"
	ManeuverFork       ManeuverKind = "fork"
	ManeuverRoundabout ManeuverKind = "roundabout"
	ManeuverContinue   ManeuverKind = "continue"
	ManeuverEndOfRoad  ManeuverKind = "end of road"
	ManeuverNewName    ManeuverKind = "new name"
)

// Step is one maneuver of a route. Steps are immutable once part of a Route.
type Step struct {
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	RoadName        string       `json:"road_name"`
	Maneuver        ManeuverKind `json:"maneuver"`
	Modifier        string       `json:"modifier,omitempty"` // left, right, straight; empty when not applicable
	Location        Coordinate   `json:"location"`
}

// Route is an immutable fetched route. Replacing the active route is always a
// whole-object swap, never an in-place edit, so a *Route may be shared freely
// between a session and its snapshots.
type Route struct {
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	Geometry        []Coordinate `json:"geometry"`
	Steps           []Step       `json:"steps"`
}

// Fix is a single reported position sample with its receipt time.
type Fix struct {
	Coordinate
	ReceivedAt time.Time `json:"received_at"`
}

// Mode is the navigation session state.
type Mode string

const (
	ModePreview    Mode = "PREVIEW"
	ModeNavigating Mode = "NAVIGATING"
	ModeArrived    Mode = "ARRIVED"
)

// Trip is the persisted record of a navigation trip.
type Trip struct {
	ID          string
	UserID      string
	Destination Coordinate
	Origin      *Coordinate
	Status      string
	StartedAt   time.Time
}

const (
	TripStatusActive  = "ACTIVE"
	TripStatusArrived = "ARRIVED"
	TripStatusEnded   = "ENDED"
)

// Snapshot is a read-only copy of the session state handed to the
// presentation layer. The Route pointer is safe to retain (routes are
// immutable).
type Snapshot struct {
	TripID           string     `json:"trip_id"`
	UserID           string     `json:"user_id"`
	Mode             Mode       `json:"mode"`
	Destination      Coordinate `json:"destination"`
	Route            *Route     `json:"route,omitempty"`
	CurrentStepIndex int        `json:"current_step_index"`
	CurrentStep      *Step      `json:"current_step,omitempty"`
	LastFix          *Fix       `json:"last_fix,omitempty"`
	FollowCamera     bool       `json:"follow_camera"`
	Rerouting        bool       `json:"rerouting"`
	LastError        string     `json:"last_error,omitempty"`
}
