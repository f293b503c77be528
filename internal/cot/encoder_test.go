package cot

import (
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/trackbeacon/model"
)

var encodeTime = time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)

func testEncoder() *Encoder {
	return NewEncoder(EncoderConfig{
		EntityUID: "TRACKER-1",
		LinkUID:   "rb-session-uid",
		GroupName: "Cyan",
		GroupRole: "Team Member",
	})
}

func snapshotWithNext() model.PositionSnapshot {
	return model.PositionSnapshot{
		Lat:        10,
		Lon:        20,
		Time:       encodeTime,
		BearingDeg: 45,
		Delivered:  1234567,
		Next: &model.Waypoint{
			UID:  "london_gb",
			Name: "London, GB",
			Lat:  51.5,
			Lon:  -0.12,
		},
	}
}

func TestEncode_BatchShapeWithNextWaypoint(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	wantTypes := []string{TypeTrackedEntity, TypeGroundPoint, TypeRangeBearing}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("events[%d].Type = %q, want %q", i, events[i].Type, want)
		}
	}
}

func TestEncode_TerminalSnapshotEmitsOnlyEntity(t *testing.T) {
	snap := snapshotWithNext()
	snap.Next = nil

	events := testEncoder().Encode(snap)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1 in terminal state", len(events))
	}
	if events[0].Type != TypeTrackedEntity {
		t.Errorf("event type = %q, want %q", events[0].Type, TypeTrackedEntity)
	}
}

func TestEncode_EventsShareSnapshotTimestamp(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())

	want := "2025-12-24T12:00:00.000Z"
	for _, ev := range events {
		if ev.Time != want {
			t.Errorf("%s event time = %q, want %q", ev.Type, ev.Time, want)
		}
		if ev.Start != ev.Time {
			t.Errorf("%s event start = %q, want equal to time", ev.Type, ev.Start)
		}
	}
}

func TestEncode_IdenticalSnapshotsYieldIdenticalIdentifiers(t *testing.T) {
	enc := testEncoder()
	first := enc.Encode(snapshotWithNext())
	second := enc.Encode(snapshotWithNext())

	for i := range first {
		if first[i].UID != second[i].UID {
			t.Errorf("events[%d] UID changed across encodes: %q then %q",
				i, first[i].UID, second[i].UID)
		}
	}
}

func TestEncode_StalenessWindowsPerEventType(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())

	wantStale := map[string]string{
		TypeTrackedEntity: FormatTime(encodeTime.Add(5 * time.Minute)),
		TypeGroundPoint:   FormatTime(encodeTime.Add(24 * time.Hour)),
		TypeRangeBearing:  FormatTime(encodeTime.Add(time.Minute)),
	}
	for _, ev := range events {
		if ev.Stale != wantStale[ev.Type] {
			t.Errorf("%s stale = %q, want %q", ev.Type, ev.Stale, wantStale[ev.Type])
		}
	}
}

func TestEncode_EntityRemarksGroupThousands(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())

	remarks := events[0].Detail.Remarks
	if remarks == nil {
		t.Fatal("entity event has no remarks")
	}
	if !strings.Contains(remarks.Text, "Delivered: 1,234,567") {
		t.Errorf("remarks = %q, want grouped delivered count", remarks.Text)
	}
	if !strings.Contains(remarks.Text, "Next: London, GB") {
		t.Errorf("remarks = %q, want next destination name", remarks.Text)
	}
}

func TestEncode_WaypointUsesDestinationIdentifier(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())

	wp := events[1]
	if wp.UID != "london_gb" {
		t.Errorf("waypoint UID = %q, want destination key", wp.UID)
	}
	if wp.Detail.UserIcon == nil || !strings.HasSuffix(wp.Detail.UserIcon.IconSetPath, "wht-circle.png") {
		t.Errorf("waypoint icon = %+v, want white circle marker", wp.Detail.UserIcon)
	}
	if wp.Detail.Color == nil || wp.Detail.Color.ARGB != "-65536" {
		t.Errorf("waypoint color = %+v, want argb -65536", wp.Detail.Color)
	}
}

func TestEncode_LinkGeometryAndParent(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())

	link := events[2]
	if link.UID != "rb-session-uid" {
		t.Errorf("link UID = %q, want session link identifier", link.UID)
	}
	d := link.Detail
	if d.Range == nil || d.Bearing == nil || d.Inclination == nil {
		t.Fatalf("link detail missing geometry: %+v", d)
	}
	if d.RangeUID == nil || d.RangeUID.Value != "london_gb" {
		t.Errorf("rangeUID = %+v, want next waypoint UID", d.RangeUID)
	}
	if d.Link == nil || d.Link.UID != "TRACKER-1" || d.Link.Relation != "p-p" {
		t.Errorf("parent link = %+v, want entity UID with p-p relation", d.Link)
	}
	if d.Contact == nil || d.Contact.Callsign != "R&B to London, GB" {
		t.Errorf("link callsign = %+v", d.Contact)
	}
	// The anchor is the entity position, not the waypoint.
	if link.Point.Lat != "10.000000" || link.Point.Lon != "20.000000" {
		t.Errorf("link anchor = (%s, %s), want entity position", link.Point.Lat, link.Point.Lon)
	}
}

func TestEncodeDeletion_TargetsSessionLink(t *testing.T) {
	enc := testEncoder()

	del := enc.EncodeDeletion(encodeTime)
	if del.Type != TypeForceDelete {
		t.Fatalf("deletion type = %q, want %q", del.Type, TypeForceDelete)
	}
	if del.Detail.Link == nil || del.Detail.Link.UID != "rb-session-uid" {
		t.Errorf("deletion target = %+v, want session link identifier", del.Detail.Link)
	}
	if del.Detail.ForceDelete == nil {
		t.Error("deletion event missing __forcedelete marker")
	}
	if del.UID == "rb-session-uid" {
		t.Error("deletion message UID must differ from its target")
	}
	if other := enc.EncodeDeletion(encodeTime); other.UID == del.UID {
		t.Error("deletion message UID should be fresh per event")
	}
	if del.Stale != FormatTime(encodeTime.Add(5*time.Second)) {
		t.Errorf("deletion stale = %q, want 5s window", del.Stale)
	}
}

func TestMarshal_WireShape(t *testing.T) {
	events := testEncoder().Encode(snapshotWithNext())

	payload, err := events[0].Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(payload)
	if !strings.HasPrefix(s, "<?xml") {
		t.Errorf("payload missing XML declaration: %.40q", s)
	}
	for _, want := range []string{
		`uid="TRACKER-1"`,
		`type="a-n-A-C"`,
		`how="m-g"`,
		`ce="9999999.0"`,
		`le="9999999.0"`,
		`<__group role="Team Member" name="Cyan">`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("payload missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "access=") {
		t.Errorf("entity event should omit access attribute:\n%s", s)
	}

	linkPayload, err := events[2].Marshal()
	if err != nil {
		t.Fatalf("Marshal link: %v", err)
	}
	if !strings.Contains(string(linkPayload), `access="Undefined"`) {
		t.Errorf("link event missing access attribute:\n%s", linkPayload)
	}
}
