package source

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/trackbeacon/core"
	"github.com/signalsfoundry/trackbeacon/model"
)

// SimSource answers position queries from the local route simulator
// instead of a live feed.
type SimSource struct {
	sim   *core.Simulator
	route *model.Route
}

// NewSimSource validates the route and binds it to the simulator. When
// synthesize is true, waypoint arrival times are derived from leg
// distances at the simulator's ground speed, departing at departAt.
func NewSimSource(sim *core.Simulator, route *model.Route, synthesize bool, departAt time.Time) (*SimSource, error) {
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("simulated route: %w", err)
	}
	if synthesize {
		sim.SynthesizeSchedule(route, departAt)
	}
	return &SimSource{sim: sim, route: route}, nil
}

// CurrentState implements PositionSource.
func (s *SimSource) CurrentState(_ context.Context, now time.Time) (model.PositionSnapshot, error) {
	return s.sim.PositionAt(s.route, now)
}

// Route implements PositionSource.
func (s *SimSource) Route() *model.Route { return s.route }
