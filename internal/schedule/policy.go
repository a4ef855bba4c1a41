package schedule

import "time"

// Decision is the outcome of a lead-time check. Computed fresh per
// evaluation, never stored.
type Decision struct {
	Allowed    bool
	HoursUntil float64
	Past       bool
}

// Evaluate applies a lead-time window to an event start. The caller picks
// the window: booking creation and booking modification use independently
// configured thresholds.
func Evaluate(eventStart, now time.Time, leadHours int) Decision {
	until := eventStart.Sub(now).Hours()
	past := until <= 0
	return Decision{
		Allowed:    !past && until >= float64(leadHours),
		HoursUntil: until,
		Past:       past,
	}
}
