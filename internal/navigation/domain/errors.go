package domain

import "errors"

var (
	ErrRouteUnavailable    = errors.New("no usable route available")
	ErrMalformedRoute      = errors.New("provider returned a malformed route")
	ErrPositionUnavailable = errors.New("no live position available")
	ErrRerouteFailed       = errors.New("reroute fetch failed")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrInvalidUserID       = errors.New("invalid user ID")
	ErrNoActiveTrip        = errors.New("no active trip")
	ErrSessionClosed       = errors.New("navigation session closed")
)
