package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// BusyPeriod is an occupied span on the shared calendar.
type BusyPeriod struct {
	Start time.Time
	End   time.Time
}

// Event is the calendar entry written for a confirmed booking.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Calendar is the capability surface the core needs from the remote
// calendar. The calendar is the arbiter of slot occupancy.
type Calendar interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]BusyPeriod, error)
	HasConflict(ctx context.Context, start, end time.Time) (bool, error)
	InsertEvent(ctx context.Context, ev Event) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// GoogleCalendar implements Calendar against a single Google calendar owned
// by the service account.
type GoogleCalendar struct {
	srv        *calendar.Service
	calendarID string
	timezone   string
	timeout    time.Duration
}

func NewGoogleCalendar(ctx context.Context, credentialsJSON []byte, calendarID, timezone string, timeout time.Duration) (*GoogleCalendar, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, calendar.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	srv, err := calendar.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleCalendar{srv: srv, calendarID: calendarID, timezone: timezone, timeout: timeout}, nil
}

func (g *GoogleCalendar) ListEvents(ctx context.Context, from, to time.Time) ([]BusyPeriod, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	events, err := g.srv.Events.List(g.calendarID).
		SingleEvents(true).
		OrderBy("startTime").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		MaxResults(250).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	var busy []BusyPeriod
	for _, item := range events.Items {
		if item.Status == "cancelled" {
			continue
		}
		start, okS := parseEventTime(item.Start)
		end, okE := parseEventTime(item.End)
		if !okS || !okE {
			continue
		}
		busy = append(busy, BusyPeriod{Start: start, End: end})
	}
	return busy, nil
}

func (g *GoogleCalendar) HasConflict(ctx context.Context, start, end time.Time) (bool, error) {
	periods, err := g.ListEvents(ctx, start, end)
	if err != nil {
		return false, err
	}
	for _, p := range periods {
		if start.Before(p.End) && p.Start.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (g *GoogleCalendar) InsertEvent(ctx context.Context, ev Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	created, err := g.srv.Events.Insert(g.calendarID, &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: g.timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: g.timezone,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return created.Id, nil
}

// DeleteEvent is idempotent: an already-absent event counts as deleted.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err := g.srv.Events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && (gerr.Code == 404 || gerr.Code == 410) {
			return nil
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

func parseEventTime(edt *calendar.EventDateTime) (time.Time, bool) {
	if edt == nil {
		return time.Time{}, false
	}
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		return t, err == nil
	}
	if edt.Date != "" {
		t, err := time.Parse("2006-01-02", edt.Date)
		return t, err == nil
	}
	return time.Time{}, false
}
