package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses a local "HH:MM" time of day into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed time of day %q", s)
	}
	return h*60 + m, nil
}

// allowedWindow returns the start (minutes since local midnight) and
// duration of the complement of the quiet window [quietStart, quietEnd).
// The allowed window always opens at quiet_end: when the quiet window wraps
// past midnight (start > end) the allowed window sits inside one day; when
// it does not, the allowed window itself wraps into the next day. Equal
// bounds mean no quiet window at all.
func allowedWindow(quietStart, quietEnd int) (start, duration int) {
	if quietStart == quietEnd {
		return quietEnd, minutesPerDay
	}
	quiet := quietEnd - quietStart
	if quiet < 0 {
		quiet += minutesPerDay
	}
	return quietEnd, minutesPerDay - quiet
}

// daySlots computes the send instants for one calendar day in the user's
// timezone, converted to UTC. Slots sit at the center of equal buckets of
// the allowed window, which keeps them away from the quiet-hour boundaries.
// The local offset is derived per calendar day, so DST transitions on that
// date are honored.
func daySlots(year int, month time.Month, day int, loc *time.Location, quietStart, quietEnd, frequency int) []time.Time {
	start, duration := allowedWindow(quietStart, quietEnd)
	widthSec := float64(duration*60) / float64(frequency)

	slots := make([]time.Time, 0, frequency)
	for i := 0; i < frequency; i++ {
		offsetSec := start*60 + int((float64(i)+0.5)*widthSec)
		slot := time.Date(year, month, day, 0, 0, offsetSec, 0, loc)
		slots = append(slots, slot.UTC())
	}
	return slots
}
