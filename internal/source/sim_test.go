package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/trackbeacon/core"
	"github.com/signalsfoundry/trackbeacon/model"
)

func TestNewSimSource_RejectsInvalidRoute(t *testing.T) {
	sim, err := core.NewSimulator(core.Config{SpeedMps: 100})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	if _, err := NewSimSource(sim, &model.Route{}, false, time.Time{}); !errors.Is(err, model.ErrEmptyRoute) {
		t.Fatalf("err = %v, want ErrEmptyRoute", err)
	}
}

func TestSimSource_SynthesizesScheduleFromDeparture(t *testing.T) {
	sim, err := core.NewSimulator(core.Config{Start: core.LatLon{Lat: 0, Lon: 0}, SpeedMps: 100})
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	route := &model.Route{Waypoints: []model.Waypoint{
		{UID: "a", Lat: 0, Lon: 1},
		{UID: "b", Lat: 0, Lon: 2},
	}}
	depart := time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)

	src, err := NewSimSource(sim, route, true, depart)
	if err != nil {
		t.Fatalf("NewSimSource: %v", err)
	}
	if !route.Waypoints[0].Arrival.After(depart) {
		t.Errorf("first arrival %v not after departure %v", route.Waypoints[0].Arrival, depart)
	}

	snap, err := src.CurrentState(context.Background(), depart)
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if snap.Next == nil || snap.Next.UID != "a" {
		t.Errorf("next at departure = %+v, want first waypoint", snap.Next)
	}
	if src.Route() != route {
		t.Error("Route() should return the bound route")
	}
}
