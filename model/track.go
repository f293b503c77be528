package model

import (
	"errors"
	"time"
)

var (
	// ErrEmptyRoute is returned when a route carries no waypoints.
	ErrEmptyRoute = errors.New("route has no waypoints")
	// ErrUnorderedRoute is returned when waypoint arrivals are not
	// chronologically non-decreasing.
	ErrUnorderedRoute = errors.New("route arrivals out of order")
)

// Waypoint is a single scheduled stop on a route. Immutable once loaded.
type Waypoint struct {
	// UID is a stable identifier derived from the raw destination key.
	UID  string
	Name string

	Lat float64
	Lon float64

	// Arrival is the scheduled arrival time at this waypoint.
	Arrival time.Time

	// Delivered is the cumulative delivered count at arrival, 0 when the
	// feed does not report one.
	Delivered int64
}

// Route is an ordered sequence of waypoints, chronological by arrival.
type Route struct {
	Waypoints []Waypoint
}

// Validate checks the route invariants: non-empty, arrivals non-decreasing.
func (r *Route) Validate() error {
	if r == nil || len(r.Waypoints) == 0 {
		return ErrEmptyRoute
	}
	for i := 1; i < len(r.Waypoints); i++ {
		if r.Waypoints[i].Arrival.Before(r.Waypoints[i-1].Arrival) {
			return ErrUnorderedRoute
		}
	}
	return nil
}

// First returns the first waypoint. The route must be non-empty.
func (r *Route) First() Waypoint { return r.Waypoints[0] }

// Last returns the final waypoint. The route must be non-empty.
func (r *Route) Last() Waypoint { return r.Waypoints[len(r.Waypoints)-1] }

// PositionSnapshot is a derived, transient view of the tracked entity at a
// single query time. Produced fresh on every query; never mutated.
type PositionSnapshot struct {
	Lat        float64
	Lon        float64
	Time       time.Time
	BearingDeg float64

	// Delivered is the cumulative delivered count at the most recently
	// reached waypoint.
	Delivered int64

	// Next references the next waypoint not yet reached; nil once the
	// route is exhausted.
	Next *Waypoint
}
