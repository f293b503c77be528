// Package source supplies the tracked entity's state on demand, either
// from a live HTTP feed or from the local route simulator. The
// implementation is selected once at startup; the broadcast loop never
// branches between them per tick.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/signalsfoundry/trackbeacon/model"
)

// ErrUnavailable is a package-level sentinel wrapped by fetch and parse
// failures of the live feed.
var ErrUnavailable = errors.New("position source unavailable")

// PositionSource answers position queries for the tracked entity.
type PositionSource interface {
	// CurrentState returns a fresh snapshot (position, bearing, delivered
	// count, next waypoint) for the query time.
	CurrentState(ctx context.Context, now time.Time) (model.PositionSnapshot, error)

	// Route returns the active route.
	Route() *model.Route
}
