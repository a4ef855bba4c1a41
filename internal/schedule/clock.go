package schedule

import (
	"fmt"
	"time"
)

// SlotDuration is the fixed length of a consultation.
const SlotDuration = 30 * time.Minute

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// BusinessStart builds the absolute start instant of a slot from its
// business-local date and "HH:MM" time. All booking times are re-derived
// through this function; client-local fields are display-only.
func BusinessStart(businessLoc *time.Location, date, hhmm string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, businessLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	tod, err := parseHHMM(hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, businessLoc), nil
}

// ClientView renders an instant as the wall-clock date and time seen in the
// client's timezone.
func ClientView(start time.Time, clientLoc *time.Location) (date, hhmm string) {
	local := start.In(clientLoc)
	return local.Format(DateLayout), local.Format(TimeLayout)
}

// CandidateBusinessDates returns the business-local dates whose slots could
// render on the requested client-local date. Timezone offsets never exceed a
// day, so the requested date and its two neighbors cover every case.
func CandidateBusinessDates(clientDate string) ([]string, error) {
	d, err := time.Parse(DateLayout, clientDate)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", clientDate, err)
	}
	return []string{
		d.AddDate(0, 0, -1).Format(DateLayout),
		d.Format(DateLayout),
		d.AddDate(0, 0, 1).Format(DateLayout),
	}, nil
}

// BusinessDayBounds returns the [00:00:00, 23:59:59] span of a
// business-local date, used to fetch a whole day of busy periods at once.
func BusinessDayBounds(businessLoc *time.Location, date string) (time.Time, time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, businessLoc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, businessLoc)
	end := time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, businessLoc)
	return start, end, nil
}

// Overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
