package domain

import (
	"fmt"
	"time"
)

// Hotels operate on local dates at a fixed UTC+8 offset; the booking API wants
// absolute UTC instants. A bare date means midnight local time on that date.
var LocalZone = time.FixedZone("UTC+8", 8*60*60)

const localDateLayout = "2006-01-02"

// StayWindow is a normalized check-in/check-out instant pair (UTC).
type StayWindow struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// ParseStayWindow builds a StayWindow from raw config strings. Each value is
// either a local date ("2026-04-04") or a full RFC 3339 instant taken as-is.
// An empty checkout defaults to check-in plus one day.
func ParseStayWindow(checkin, checkout string) (StayWindow, error) {
	in, err := parseInstant(checkin)
	if err != nil {
		return StayWindow{}, fmt.Errorf("check-in %q: %w", checkin, err)
	}
	var out time.Time
	if checkout == "" {
		out = in.Add(24 * time.Hour)
	} else {
		out, err = parseInstant(checkout)
		if err != nil {
			return StayWindow{}, fmt.Errorf("check-out %q: %w", checkout, err)
		}
	}
	w := StayWindow{CheckIn: in, CheckOut: out}
	if !w.CheckOut.After(w.CheckIn) {
		return StayWindow{}, fmt.Errorf("check-out %s is not after check-in %s",
			w.LocalCheckOut(), w.LocalCheckIn())
	}
	return w, nil
}

func parseInstant(v string) (time.Time, error) {
	if t, err := time.Parse(localDateLayout, v); err == nil {
		// midnight local time on that date, expressed in UTC
		local := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, LocalZone)
		return local.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a local date or RFC 3339 instant")
	}
	return t.UTC(), nil
}

// Nights is at least 1 for any valid window.
func (w StayWindow) Nights() int {
	n := int(w.CheckOut.Sub(w.CheckIn) / (24 * time.Hour))
	if n < 1 {
		n = 1
	}
	return n
}

// LocalCheckIn returns the check-in date as shown to the user (UTC+8).
func (w StayWindow) LocalCheckIn() string {
	return w.CheckIn.In(LocalZone).Format(localDateLayout)
}

func (w StayWindow) LocalCheckOut() string {
	return w.CheckOut.In(LocalZone).Format(localDateLayout)
}

// API wire format: ISO-8601 UTC with milliseconds, e.g. 2026-04-03T16:00:00.000Z.
const wireLayout = "2006-01-02T15:04:05.000Z"

func (w StayWindow) WireCheckIn() string  { return w.CheckIn.UTC().Format(wireLayout) }
func (w StayWindow) WireCheckOut() string { return w.CheckOut.UTC().Format(wireLayout) }
