package timezone

import (
	"testing"
	"time"

	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/stretchr/testify/assert"
)

func mustLoc(t *testing.T, name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestZoneOf(t *testing.T) {
	tbl := NewAreaCodeTable()
	zone, ok := tbl.ZoneOf("+14155551234")
	assert.True(t, ok)
	assert.Equal(t, "America/Los_Angeles", zone)

	_, ok = tbl.ZoneOf("+442071234567")
	assert.False(t, ok)
}

func TestWithinWindow_DisabledAlwaysTrue(t *testing.T) {
	o := New(NewAreaCodeTable(), func() time.Time { return time.Now() })
	assert.True(t, o.WithinWindow("America/Los_Angeles", domain.CallingWindow{Enabled: false}))
}

func TestWithinWindow_BoundaryAtNextValidInstant(t *testing.T) {
	loc := mustLoc(t, "America/Los_Angeles")
	// Saturday 10:00 local.
	sat := time.Date(2026, 8, 1, 10, 0, 0, 0, loc) // 2026-08-01 is a Saturday
	o := New(NewAreaCodeTable(), func() time.Time { return sat.UTC() })
	window := domain.CallingWindow{Enabled: true, StartHour: 9, EndHour: 20, DaysOfWeek: domain.IntSlice{1, 2, 3, 4, 5}}

	assert.False(t, o.WithinWindow("America/Los_Angeles", window))

	next := o.NextValidInstant("America/Los_Angeles", window)
	assert.True(t, withinWindowAt(next.In(loc), window))
	before := next.Add(-time.Minute)
	assert.False(t, withinWindowAt(before.In(loc), window))

	// Expect Monday 09:00 local.
	nextLocal := next.In(loc)
	assert.Equal(t, time.Monday, nextLocal.Weekday())
	assert.Equal(t, 9, nextLocal.Hour())
}

func TestWithinWindow_InWindow(t *testing.T) {
	loc := mustLoc(t, "America/Los_Angeles")
	tue := time.Date(2026, 8, 4, 11, 0, 0, 0, loc) // Tuesday
	o := New(NewAreaCodeTable(), func() time.Time { return tue.UTC() })
	window := domain.CallingWindow{Enabled: true, StartHour: 9, EndHour: 20, DaysOfWeek: domain.IntSlice{1, 2, 3, 4, 5}}
	assert.True(t, o.WithinWindow("America/Los_Angeles", window))
}

func TestWithinWindow_NoZoneIsOpen(t *testing.T) {
	o := New(NewAreaCodeTable(), func() time.Time { return time.Now() })
	window := domain.CallingWindow{Enabled: true, StartHour: 9, EndHour: 20, DaysOfWeek: domain.IntSlice{1, 2, 3, 4, 5}}
	assert.True(t, o.WithinWindow("", window))
}
