package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/schedule"
)

// AvailabilityService computes joinable slots for a client-local date by
// expanding the weekly template and subtracting calendar busy periods.
type AvailabilityService struct {
	Calendar        gateway.Calendar
	Template        schedule.Template
	BusinessLoc     *time.Location
	CreateLeadHours int

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewAvailability(cal gateway.Calendar, tpl schedule.Template, businessLoc *time.Location, createLeadHours int) *AvailabilityService {
	return &AvailabilityService{
		Calendar:        cal,
		Template:        tpl,
		BusinessLoc:     businessLoc,
		CreateLeadHours: createLeadHours,
		Now:             time.Now,
	}
}

// AvailableSlots returns the slots joinable on clientDate as seen from
// clientTZ, ordered by client-local start time. A calendar failure aborts
// the whole query; no partial results.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, clientDate, clientTZ string) ([]models.Slot, error) {
	clientLoc, err := time.LoadLocation(clientTZ)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrValidation, clientTZ)
	}

	candidates, err := schedule.CandidateBusinessDates(clientDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.Now()

	type timedSlot struct {
		slot  models.Slot
		start time.Time
	}
	var found []timedSlot

	for _, businessDate := range candidates {
		dayStart, dayEnd, err := schedule.BusinessDayBounds(s.BusinessLoc, businessDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}

		// One busy-period fetch per business day, not per slot.
		busy, err := s.Calendar.ListEvents(ctx, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}

		for _, hhmm := range s.Template.TimesFor(dayStart.Weekday()) {
			start, err := schedule.BusinessStart(s.BusinessLoc, businessDate, hhmm)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			end := start.Add(schedule.SlotDuration)

			if !schedule.Evaluate(start, now, s.CreateLeadHours).Allowed {
				continue
			}
			if overlapsAny(start, end, busy) {
				continue
			}

			displayDate, displayTime := schedule.ClientView(start, clientLoc)
			if displayDate != clientDate {
				continue
			}
			found = append(found, timedSlot{
				slot: models.Slot{
					BusinessDate:      businessDate,
					BusinessTime:      hhmm,
					ClientDisplayDate: displayDate,
					ClientDisplayTime: displayTime,
				},
				start: start,
			})
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].start.Before(found[j].start) })

	out := make([]models.Slot, len(found))
	for i, ts := range found {
		out[i] = ts.slot
	}
	return out, nil
}

func overlapsAny(start, end time.Time, busy []gateway.BusyPeriod) bool {
	for _, p := range busy {
		if schedule.Overlaps(start, end, p.Start, p.End) {
			return true
		}
	}
	return false
}
