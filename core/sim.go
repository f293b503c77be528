package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/signalsfoundry/trackbeacon/model"
)

// ErrInvalidSpeed is returned when a simulator is configured with a
// non-positive ground speed.
var ErrInvalidSpeed = errors.New("ground speed must be positive")

// Config holds simulator construction parameters.
type Config struct {
	// Start is where the entity holds position before the first waypoint
	// is reached.
	Start LatLon

	// SpeedMps is the ground speed used when synthesizing a schedule from
	// leg distances (offline mode). Must be positive.
	SpeedMps float64
}

// Simulator advances a synthetic entity along an ordered route, producing
// position, bearing and next-waypoint answers at arbitrary query times.
//
// Leg bearings are held constant per leg (the initial great-circle bearing),
// not recomputed from successive fixes.
type Simulator struct {
	start LatLon
	speed float64

	// activeLeg caches the index of the last leg found so repeated queries
	// with advancing time skip already-completed legs. It only moves
	// forward as time passes a leg's arrival.
	activeLeg int
}

// NewSimulator validates the configuration and returns a Simulator.
func NewSimulator(cfg Config) (*Simulator, error) {
	if cfg.SpeedMps <= 0 {
		return nil, fmt.Errorf("%w: %v m/s", ErrInvalidSpeed, cfg.SpeedMps)
	}
	return &Simulator{start: cfg.Start, speed: cfg.SpeedMps}, nil
}

// SynthesizeSchedule fills in waypoint arrival times from great-circle leg
// distances at the configured ground speed, departing the start coordinate
// at departAt. Existing arrival times are overwritten.
func (s *Simulator) SynthesizeSchedule(r *model.Route, departAt time.Time) {
	at := departAt
	prev := s.start
	for i := range r.Waypoints {
		wp := &r.Waypoints[i]
		here := LatLon{Lat: wp.Lat, Lon: wp.Lon}
		at = at.Add(time.Duration(HaversineM(prev, here) / s.speed * float64(time.Second)))
		wp.Arrival = at
		prev = here
	}
}

// PositionAt returns the entity's position snapshot for the given query
// time. Before the first waypoint's arrival the entity holds the start
// coordinate; past the final waypoint's arrival it holds the last waypoint
// (terminal state).
func (s *Simulator) PositionAt(r *model.Route, now time.Time) (model.PositionSnapshot, error) {
	if err := r.Validate(); err != nil {
		return model.PositionSnapshot{}, err
	}

	first := r.First()
	if !now.After(first.Arrival) {
		next := first
		return model.PositionSnapshot{
			Lat:        s.start.Lat,
			Lon:        s.start.Lon,
			Time:       now,
			BearingDeg: InitialBearingDeg(s.start, LatLon{Lat: first.Lat, Lon: first.Lon}),
			Next:       &next,
		}, nil
	}

	last := r.Last()
	if !now.Before(last.Arrival) {
		return model.PositionSnapshot{
			Lat:       last.Lat,
			Lon:       last.Lon,
			Time:      now,
			Delivered: last.Delivered,
		}, nil
	}

	// Rewind when the cached leg is out of range or ahead of the query
	// time (a different route, or a backwards query).
	if s.activeLeg > len(r.Waypoints)-2 || r.Waypoints[s.activeLeg].Arrival.After(now) {
		s.activeLeg = 0
	}
	for s.activeLeg < len(r.Waypoints)-2 && r.Waypoints[s.activeLeg+1].Arrival.Before(now) {
		s.activeLeg++
	}
	prev := r.Waypoints[s.activeLeg]
	next := r.Waypoints[s.activeLeg+1]

	a := LatLon{Lat: prev.Lat, Lon: prev.Lon}
	b := LatLon{Lat: next.Lat, Lon: next.Lon}

	// Zero-duration legs count as instantaneous arrival.
	frac := 1.0
	if legDur := next.Arrival.Sub(prev.Arrival); legDur > 0 {
		frac = float64(now.Sub(prev.Arrival)) / float64(legDur)
	}
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}

	pos := Intermediate(a, b, frac)
	return model.PositionSnapshot{
		Lat:        pos.Lat,
		Lon:        pos.Lon,
		Time:       now,
		BearingDeg: InitialBearingDeg(a, b),
		Delivered:  prev.Delivered,
		Next:       &next,
	}, nil
}
