package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/signalsfoundry/trackbeacon/internal/gazetteer"
	"github.com/signalsfoundry/trackbeacon/internal/logging"
	"github.com/signalsfoundry/trackbeacon/model"
)

// Destination is one raw destination record in a route document.
type Destination struct {
	ID string `json:"id"`

	// Location is a "lat, lon" pair; some feeds use the split fields
	// instead.
	Location string  `json:"location,omitempty"`
	Lat      float64 `json:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty"`

	// Arrival is the scheduled arrival in milliseconds since the epoch.
	Arrival int64 `json:"arrival,omitempty"`

	// Delivered is the cumulative delivered count at arrival.
	Delivered int64 `json:"delivered,omitempty"`
}

// routeDocument is the wire shape of a route feed. Either field name is
// accepted.
type routeDocument struct {
	Destinations []Destination `json:"destinations"`
	Stops        []Destination `json:"stops"`
}

func (d routeDocument) records() []Destination {
	if len(d.Destinations) > 0 {
		return d.Destinations
	}
	return d.Stops
}

// coords extracts a coordinate pair directly from the record, reporting
// whether one was present.
func (d Destination) coords() (float64, float64, bool) {
	if d.Location != "" {
		var lat, lon float64
		if _, err := fmt.Sscanf(d.Location, "%f, %f", &lat, &lon); err == nil {
			return lat, lon, true
		}
		if _, err := fmt.Sscanf(d.Location, "%f,%f", &lat, &lon); err == nil {
			return lat, lon, true
		}
	}
	if d.Lat != 0 || d.Lon != 0 {
		return d.Lat, d.Lon, true
	}
	return 0, 0, false
}

// BuildRoute assembles waypoints from raw destinations, consulting the
// gazetteer when a record carries no coordinates. Unresolvable
// destinations are dropped; that is advisory, never fatal.
func BuildRoute(dests []Destination, gz *gazetteer.Index, log logging.Logger) *model.Route {
	if log == nil {
		log = logging.Noop()
	}
	if gz == nil {
		gz = gazetteer.Empty()
	}

	route := &model.Route{}
	for _, d := range dests {
		if d.ID == "" {
			continue
		}

		name := gazetteer.FormatName(d.ID)
		lat, lon, ok := d.coords()
		if !ok {
			place, found := gz.Lookup(d.ID)
			if !found {
				log.Warn(context.Background(), "dropping unresolvable destination",
					logging.String("id", d.ID))
				continue
			}
			lat, lon = place.Lat, place.Lon
			name = place.Label()
		}

		route.Waypoints = append(route.Waypoints, model.Waypoint{
			UID:       d.ID,
			Name:      name,
			Lat:       lat,
			Lon:       lon,
			Arrival:   time.UnixMilli(d.Arrival).UTC(),
			Delivered: d.Delivered,
		})
	}
	return route
}

// LoadRouteFile reads a route document from disk, for offline operation.
func LoadRouteFile(path string, gz *gazetteer.Index, log logging.Logger) (*model.Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	var doc routeDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse route file %s: %w", path, err)
	}
	route := BuildRoute(doc.records(), gz, log)
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("route file %s: %w", path, err)
	}
	return route, nil
}
