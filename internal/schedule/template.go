package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Template maps a weekday to the ordered business-local start times
// ("HH:MM") offered on that day. Days without an entry have no availability.
type Template map[time.Weekday][]string

// ParseTemplate decodes the weekly template from its JSON config form,
// an object keyed by weekday number 0-6 (0 = Sunday).
func ParseTemplate(raw string) (Template, error) {
	var byDay map[string][]string
	if err := json.Unmarshal([]byte(raw), &byDay); err != nil {
		return nil, fmt.Errorf("parse weekly template: %w", err)
	}

	tpl := make(Template, len(byDay))
	for k, times := range byDay {
		day, err := strconv.Atoi(k)
		if err != nil || day < 0 || day > 6 {
			return nil, fmt.Errorf("weekly template: invalid weekday key %q", k)
		}
		for _, hhmm := range times {
			if _, err := parseHHMM(hhmm); err != nil {
				return nil, fmt.Errorf("weekly template: day %d: %w", day, err)
			}
		}
		tpl[time.Weekday(day)] = times
	}
	return tpl, nil
}

// TimesFor returns the configured start times for a weekday in their
// configured order; nil when the day has no availability.
func (t Template) TimesFor(day time.Weekday) []string {
	return t[day]
}

func parseHHMM(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	s = s[:5] // "09:00:00" -> "09:00"
	tt, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, err
	}
	return tt, nil
}
