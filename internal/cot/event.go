// Package cot models Cursor-on-Target event records and encodes tracked
// entity state into them.
package cot

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Type codes for the four event variants on the wire.
const (
	// TypeTrackedEntity marks the moving subject itself.
	TypeTrackedEntity = "a-n-A-C"
	// TypeGroundPoint marks a ground destination.
	TypeGroundPoint = "a-u-G"
	// TypeRangeBearing is a relative-bearing line between two objects.
	TypeRangeBearing = "u-rb-a"
	// TypeForceDelete instructs consumers to remove a previously announced
	// object.
	TypeForceDelete = "t-x-d-d"
)

// HowMachineGenerated marks events produced by automation rather than a
// human operator.
const HowMachineGenerated = "m-g"

// timeLayout is RFC 3339 with millisecond precision and a literal Z, the
// format TAK-family consumers expect.
const timeLayout = "2006-01-02T15:04:05.000Z"

// unknownError is the ce/le attribute value meaning "no error estimate".
const unknownError = "9999999.0"

// Event is a single CoT event record.
type Event struct {
	XMLName xml.Name `xml:"event"`
	Version string   `xml:"version,attr"`
	UID     string   `xml:"uid,attr"`
	Type    string   `xml:"type,attr"`
	Time    string   `xml:"time,attr"`
	Start   string   `xml:"start,attr"`
	Stale   string   `xml:"stale,attr"`
	How     string   `xml:"how,attr"`
	Access  string   `xml:"access,attr,omitempty"`

	Point  Point  `xml:"point"`
	Detail Detail `xml:"detail"`
}

// Point is the event's geographic anchor.
type Point struct {
	Lat string `xml:"lat,attr"`
	Lon string `xml:"lon,attr"`
	HAE string `xml:"hae,attr"`
	CE  string `xml:"ce,attr"`
	LE  string `xml:"le,attr"`
}

// Detail carries the free-form payload. Which children are present depends
// on the event type; absent children are omitted from the XML.
type Detail struct {
	Group *Group `xml:"__group,omitempty"`

	Range        *ValueAttr `xml:"range,omitempty"`
	Bearing      *ValueAttr `xml:"bearing,omitempty"`
	Inclination  *ValueAttr `xml:"inclination,omitempty"`
	RangeUID     *ValueAttr `xml:"rangeUID,omitempty"`
	RangeUnits   *ValueAttr `xml:"rangeUnits,omitempty"`
	BearingUnits *ValueAttr `xml:"bearingUnits,omitempty"`
	NorthRef     *ValueAttr `xml:"northRef,omitempty"`

	Color        *Color     `xml:"color,omitempty"`
	StrokeColor  *ValueAttr `xml:"strokeColor,omitempty"`
	StrokeWeight *ValueAttr `xml:"strokeWeight,omitempty"`
	StrokeStyle  *ValueAttr `xml:"strokeStyle,omitempty"`

	Link    *Link    `xml:"link,omitempty"`
	Contact *Contact `xml:"contact,omitempty"`
	Remarks *Remarks `xml:"remarks,omitempty"`

	UserIcon    *UserIcon    `xml:"usericon,omitempty"`
	ForceDelete *ForceDelete `xml:"__forcedelete,omitempty"`
}

// Group identifies the team and role of the tracked entity.
type Group struct {
	Role string `xml:"role,attr"`
	Name string `xml:"name,attr"`
	Abbr string `xml:"abbr,attr,omitempty"`
}

// ValueAttr is a detail child with a single value attribute.
type ValueAttr struct {
	Value string `xml:"value,attr"`
}

// Color carries either an argb or a value attribute depending on the
// hosting event type.
type Color struct {
	ARGB  string `xml:"argb,attr,omitempty"`
	Value string `xml:"value,attr,omitempty"`
}

// Link relates this event to another object by UID.
type Link struct {
	UID      string `xml:"uid,attr"`
	Type     string `xml:"type,attr"`
	Relation string `xml:"relation,attr"`
}

// Contact carries the display callsign.
type Contact struct {
	Callsign string `xml:"callsign,attr"`
}

// Remarks is free-text detail.
type Remarks struct {
	Text string `xml:",chardata"`
}

// UserIcon selects a marker icon on TAK-family consumers.
type UserIcon struct {
	IconSetPath string `xml:"iconsetpath,attr"`
}

// ForceDelete is the empty marker element in a deletion event.
type ForceDelete struct{}

// Marshal serializes the event with an XML declaration, ready for the
// wire.
func (e *Event) Marshal() ([]byte, error) {
	body, err := xml.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal cot event %s: %w", e.UID, err)
	}
	return append([]byte(xml.Header), body...), nil
}

// NewPoint formats a geographic anchor with unknown error estimates.
func NewPoint(lat, lon, hae float64) Point {
	return Point{
		Lat: fmt.Sprintf("%.6f", lat),
		Lon: fmt.Sprintf("%.6f", lon),
		HAE: fmt.Sprintf("%.1f", hae),
		CE:  unknownError,
		LE:  unknownError,
	}
}

// FormatTime renders t in the CoT timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
