package cot

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/signalsfoundry/trackbeacon/core"
	"github.com/signalsfoundry/trackbeacon/model"
)

const (
	defaultEntityStale   = 5 * time.Minute
	defaultWaypointStale = 24 * time.Hour
	defaultLinkStale     = 1 * time.Minute
	deleteStale          = 5 * time.Second

	markerColor = "-65536" // opaque red
	markerIcon  = "ad78aafb-83a6-4c07-b2b9-a897a8b6a38f/Markers/wht-circle.png"
)

// EncoderConfig holds the per-session identifiers and staleness windows
// baked into every encoded event.
type EncoderConfig struct {
	// EntityUID is the fixed identifier of the tracked subject.
	EntityUID string
	// Callsign is the display name of the tracked subject.
	Callsign string
	// LinkUID is the session's persistent relative-bearing line identifier.
	LinkUID string

	// GroupName and GroupRole label the entity's team affiliation.
	GroupName string
	GroupRole string

	// Staleness windows. Zero values take the defaults; these are
	// independent of the broadcast interval.
	EntityStale   time.Duration
	WaypointStale time.Duration
	LinkStale     time.Duration
}

// ApplyDefaults fills zero fields with sensible defaults.
func (c EncoderConfig) ApplyDefaults() EncoderConfig {
	if c.Callsign == "" {
		c.Callsign = c.EntityUID
	}
	if c.EntityStale <= 0 {
		c.EntityStale = defaultEntityStale
	}
	if c.WaypointStale <= 0 {
		c.WaypointStale = defaultWaypointStale
	}
	if c.LinkStale <= 0 {
		c.LinkStale = defaultLinkStale
	}
	return c
}

// Encoder converts position snapshots into CoT events. Identifiers for the
// entity and link events are stable across all calls within one session;
// the waypoint identifier changes only when the next waypoint changes.
type Encoder struct {
	cfg     EncoderConfig
	printer *message.Printer
}

// NewEncoder constructs an Encoder for one broadcast session.
func NewEncoder(cfg EncoderConfig) *Encoder {
	return &Encoder{
		cfg:     cfg.ApplyDefaults(),
		printer: message.NewPrinter(language.English),
	}
}

// Encode produces the event batch for one snapshot: the entity marker,
// and, when a next waypoint is known, the waypoint marker and the
// relative-bearing line. All events share the snapshot timestamp.
func (e *Encoder) Encode(snap model.PositionSnapshot) []*Event {
	events := []*Event{e.entityEvent(snap)}
	if snap.Next != nil {
		events = append(events,
			e.waypointEvent(snap.Time, *snap.Next),
			e.linkEvent(snap),
		)
	}
	return events
}

// EncodeDeletion produces the forced-removal event retracting the
// session's relative-bearing line. The entity and waypoint markers are
// left to expire via staleness.
func (e *Encoder) EncodeDeletion(now time.Time) *Event {
	stamp := FormatTime(now)
	return &Event{
		Version: "2.0",
		UID:     uuid.NewString(), // the deletion message itself, not the target
		Type:    TypeForceDelete,
		Time:    stamp,
		Start:   stamp,
		Stale:   FormatTime(now.Add(deleteStale)),
		How:     HowMachineGenerated,
		Point:   NewPoint(0, 0, 0),
		Detail: Detail{
			Link:        &Link{UID: e.cfg.LinkUID, Type: "none", Relation: "none"},
			ForceDelete: &ForceDelete{},
		},
	}
}

func (e *Encoder) entityEvent(snap model.PositionSnapshot) *Event {
	stamp := FormatTime(snap.Time)

	next := "none"
	if snap.Next != nil {
		next = snap.Next.Name
	}
	remarks := e.printer.Sprintf("Delivered: %d\nNext: %s", snap.Delivered, next)

	return &Event{
		Version: "2.0",
		UID:     e.cfg.EntityUID,
		Type:    TypeTrackedEntity,
		Time:    stamp,
		Start:   stamp,
		Stale:   FormatTime(snap.Time.Add(e.cfg.EntityStale)),
		How:     HowMachineGenerated,
		Point:   NewPoint(snap.Lat, snap.Lon, 0),
		Detail: Detail{
			Group:   &Group{Role: e.cfg.GroupRole, Name: e.cfg.GroupName},
			Contact: &Contact{Callsign: e.cfg.Callsign},
			Remarks: &Remarks{Text: remarks},
		},
	}
}

func (e *Encoder) waypointEvent(at time.Time, wp model.Waypoint) *Event {
	stamp := FormatTime(at)
	return &Event{
		Version: "2.0",
		UID:     wp.UID,
		Type:    TypeGroundPoint,
		Time:    stamp,
		Start:   stamp,
		Stale:   FormatTime(at.Add(e.cfg.WaypointStale)),
		How:     HowMachineGenerated,
		Point:   NewPoint(wp.Lat, wp.Lon, 0),
		Detail: Detail{
			Color:    &Color{ARGB: markerColor},
			Contact:  &Contact{Callsign: wp.Name},
			Remarks:  &Remarks{Text: "Next destination: " + wp.Name},
			UserIcon: &UserIcon{IconSetPath: markerIcon},
		},
	}
}

func (e *Encoder) linkEvent(snap model.PositionSnapshot) *Event {
	wp := snap.Next
	rangeM, bearingDeg, inclRad := core.RangeBearing(
		core.LatLon{Lat: snap.Lat, Lon: snap.Lon}, 0,
		core.LatLon{Lat: wp.Lat, Lon: wp.Lon}, 0,
	)

	stamp := FormatTime(snap.Time)
	return &Event{
		Version: "2.0",
		UID:     e.cfg.LinkUID,
		Type:    TypeRangeBearing,
		Time:    stamp,
		Start:   stamp,
		Stale:   FormatTime(snap.Time.Add(e.cfg.LinkStale)),
		How:     HowMachineGenerated,
		Access:  "Undefined",
		Point:   NewPoint(snap.Lat, snap.Lon, 0),
		Detail: Detail{
			Range:        &ValueAttr{Value: strconv.FormatFloat(rangeM, 'f', 1, 64)},
			Bearing:      &ValueAttr{Value: strconv.FormatFloat(bearingDeg, 'f', 1, 64)},
			Inclination:  &ValueAttr{Value: strconv.FormatFloat(inclRad, 'f', 6, 64)},
			RangeUID:     &ValueAttr{Value: wp.UID},
			RangeUnits:   &ValueAttr{Value: "1"},
			BearingUnits: &ValueAttr{Value: "0"},
			NorthRef:     &ValueAttr{Value: "1"},
			Color:        &Color{Value: markerColor},
			StrokeColor:  &ValueAttr{Value: markerColor},
			StrokeWeight: &ValueAttr{Value: "3.0"},
			StrokeStyle:  &ValueAttr{Value: "solid"},
			Link:         &Link{UID: e.cfg.EntityUID, Type: TypeTrackedEntity, Relation: "p-p"},
			Contact:      &Contact{Callsign: "R&B to " + wp.Name},
			Remarks:      &Remarks{},
		},
	}
}
