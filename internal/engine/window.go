package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/RivalWatch/internal/types"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// ResolveNow returns the override date when set, else the clock's current time.
func ResolveNow(override string, clock Clock) (time.Time, error) {
	override = strings.TrimSpace(override)
	if override == "" {
		if clock == nil {
			clock = SystemClock
		}
		return clock(), nil
	}
	t, err := time.Parse(types.DateLayout, override)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid window end %q: want YYYY-MM-DD", override)
	}
	return t, nil
}

// Window is an inclusive range of calendar dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow returns the window ending on now's calendar date and starting
// days before it.
func NewWindow(now time.Time, days int) Window {
	end := calendarDate(now)
	return Window{Start: end.AddDate(0, 0, -days), End: end}
}

// Contains reports whether date (YYYY-MM-DD) falls inside the window,
// boundaries included. Empty or unparsable dates are outside.
func (w Window) Contains(date string) bool {
	t, err := time.Parse(types.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// ContainsTime reports whether t's calendar date falls inside the window.
func (w Window) ContainsTime(t time.Time) bool {
	d := calendarDate(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// StartString returns the first day as YYYY-MM-DD.
func (w Window) StartString() string { return w.Start.Format(types.DateLayout) }

// EndString returns the last day as YYYY-MM-DD.
func (w Window) EndString() string { return w.End.Format(types.DateLayout) }

func (w Window) String() string {
	return w.StartString() + " ~ " + w.EndString()
}

// calendarDate drops the time of day, keeping the date as seen in t's location.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
