package timectrl

import (
	"testing"
	"time"
)

func TestWithOffset_ZeroReturnsBase(t *testing.T) {
	base := SystemClock{}
	if got := WithOffset(base, 0); got != base {
		t.Errorf("WithOffset(base, 0) = %T, want the base clock unchanged", got)
	}
}

func TestOffsetClock_ShiftsReadings(t *testing.T) {
	start := time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)
	manual := NewManualClock(start)

	ahead := WithOffset(manual, 2*time.Hour)
	if got := ahead.Now(); !got.Equal(start.Add(2 * time.Hour)) {
		t.Errorf("positive offset Now() = %v, want %v", got, start.Add(2*time.Hour))
	}

	behind := WithOffset(manual, -30*time.Minute)
	if got := behind.Now(); !got.Equal(start.Add(-30 * time.Minute)) {
		t.Errorf("negative offset Now() = %v, want %v", got, start.Add(-30*time.Minute))
	}
}

func TestManualClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 12, 24, 12, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	if got := clock.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}

	clock.Advance(90 * time.Second)
	if got := clock.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("after Advance, Now() = %v", got)
	}

	later := start.Add(time.Hour)
	clock.Set(later)
	if got := clock.Now(); !got.Equal(later) {
		t.Errorf("after Set, Now() = %v, want %v", got, later)
	}
}

func TestSystemClock_ReportsUTC(t *testing.T) {
	if loc := (SystemClock{}).Now().Location(); loc != time.UTC {
		t.Errorf("SystemClock location = %v, want UTC", loc)
	}
}
