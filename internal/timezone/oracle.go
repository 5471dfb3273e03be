// Package timezone implements the Timezone Oracle of §4.2: mapping a
// destination number to an IANA zone, evaluating calling windows, and
// computing the next valid instant. The phone->zone table is an embedded,
// pluggable, in-memory US/CA area-code map per §9 Design Notes.
package timezone

import (
	"time"

	"github.com/passthekeys/outbound-core/internal/domain"
)

// ZoneTable maps E.164 numbers to IANA zones. The default implementation
// covers only US/CA area codes, matching the source system's shape; callers
// may supply their own for other regions.
type ZoneTable interface {
	ZoneOf(e164 string) (string, bool)
}

// Oracle evaluates calling windows against a ZoneTable and a Clock.
type Oracle struct {
	table ZoneTable
	now   func() time.Time
}

func New(table ZoneTable, now func() time.Time) *Oracle {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Oracle{table: table, now: now}
}

// ZoneOf returns the IANA zone for a destination number, or ("", false) if
// no entry matches.
func (o *Oracle) ZoneOf(e164 string) (string, bool) {
	return o.table.ZoneOf(e164)
}

// WithinWindow reports whether `window` is open right now in `zone`. A
// disabled window is always open. A zone that cannot be evaluated (empty)
// is treated as open, since the window cannot be evaluated without a zone
// (§9 Design Notes).
func (o *Oracle) WithinWindow(zone string, window domain.CallingWindow) bool {
	if !window.Enabled {
		return true
	}
	if zone == "" {
		return true
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return true
	}
	return withinWindowAt(o.now().In(loc), window)
}

func withinWindowAt(local time.Time, window domain.CallingWindow) bool {
	if !dayAllowed(int(local.Weekday()), window.DaysOfWeek) {
		return false
	}
	hour := local.Hour()
	if window.StartHour <= window.EndHour {
		return hour >= window.StartHour && hour < window.EndHour
	}
	// overnight window (e.g. 22 -> 6) — accept for completeness even though
	// the literal scenarios in §8 never exercise it.
	return hour >= window.StartHour || hour < window.EndHour
}

func dayAllowed(weekday int, days domain.IntSlice) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == weekday {
			return true
		}
	}
	return false
}

// NextValidInstant returns the earliest UTC instant strictly >= now such
// that WithinWindow holds, honoring DST at the time of the call rather than
// the time of scheduling (§4.2). It tests now itself, then walks forward
// one minute at a time for up to 8 days, evaluating every step in the zone
// so DST transitions are handled correctly.
func (o *Oracle) NextValidInstant(zone string, window domain.CallingWindow) time.Time {
	now := o.now()
	if !window.Enabled || zone == "" {
		return now
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return now
	}

	local := now.In(loc)
	// Top of the current hour. The scan below does not start from it: it
	// tests the exact `local` minute first, then steps forward from there.
	cursor := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	if cursor.Before(local) {
		// keep cursor at/after now; we test the exact `local` minute first.
	}

	if withinWindowAt(local, window) {
		return local.UTC()
	}

	// Advance minute-by-hour granularity is too coarse for a tie-break at
	// exactly startHour; step forward in 1-minute increments up to 8 days
	// (covers any days_of_week configuration) to find the earliest instant
	// the window opens, honoring DST because each step re-evaluates using
	// the zone-aware time.
	cursor = local
	limit := local.AddDate(0, 0, 8)
	for cursor.Before(limit) {
		cursor = cursor.Add(time.Minute)
		if withinWindowAt(cursor, window) {
			return cursor.UTC()
		}
	}
	// No valid instant found in the search horizon (e.g. empty DaysOfWeek
	// with enabled=true, StartHour==EndHour); fall back to now to avoid an
	// infinite scheduling delay.
	return now
}
