package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/notify"
	"booking-service/internal/repository"
	"booking-service/internal/schedule"
)

// BookingService orchestrates the booking lifecycle across the calendar,
// the meeting provider and the system of record. Required steps abort the
// operation on failure; cleanup and notification are best effort.
type BookingService struct {
	Repo     repository.Bookings
	Calendar gateway.Calendar
	Meetings gateway.Meetings
	Notifier notify.Notifier
	Log      *zap.Logger

	Template        schedule.Template
	BusinessLoc     *time.Location
	CreateLeadHours int
	ModifyLeadHours int

	Now func() time.Time
}

type CreateInput struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Message      string
	BusinessDate string
	BusinessTime string
	Locale       string
}

// View is the self-service management state for one cancellation token.
type View struct {
	Booking                    models.Booking `json:"booking"`
	CanReschedule              bool           `json:"can_reschedule"`
	CanCancel                  bool           `json:"can_cancel"`
	IsRedirectedFromOldBooking bool           `json:"is_redirected_from_old_booking"`
}

func NewBooking(repo repository.Bookings, cal gateway.Calendar, meetings gateway.Meetings, notifier notify.Notifier, log *zap.Logger, tpl schedule.Template, businessLoc *time.Location, createLeadHours, modifyLeadHours int) *BookingService {
	return &BookingService{
		Repo:            repo,
		Calendar:        cal,
		Meetings:        meetings,
		Notifier:        notifier,
		Log:             log,
		Template:        tpl,
		BusinessLoc:     businessLoc,
		CreateLeadHours: createLeadHours,
		ModifyLeadHours: modifyLeadHours,
		Now:             time.Now,
	}
}

// Create reserves a slot: conflict check, meeting, calendar event, then the
// booking row. No row is written when any required step fails.
func (s *BookingService) Create(ctx context.Context, in CreateInput) (*models.Booking, error) {
	if err := validateContact(in); err != nil {
		return nil, err
	}

	start, err := s.offeredStart(in.BusinessDate, in.BusinessTime)
	if err != nil {
		return nil, err
	}
	end := start.Add(schedule.SlotDuration)

	if err := s.checkCreateWindow(start); err != nil {
		return nil, err
	}

	conflict, err := s.Calendar.HasConflict(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: conflict check: %v", ErrUpstream, err)
	}
	if conflict {
		return nil, ErrSlotOccupied
	}

	booking := &models.Booking{
		CancellationToken: uuid.NewString(),
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Email:             in.Email,
		Phone:             in.Phone,
		Message:           in.Message,
		EventStart:        start,
		Status:            models.StatusConfirmed,
	}

	if err := s.provision(ctx, booking); err != nil {
		return nil, err
	}

	if err := s.Repo.Insert(ctx, booking); err != nil {
		s.cleanupResources(ctx, booking.CalendarEventID, booking.MeetingID)
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	s.notifyAsync(func(ctx context.Context) error {
		return s.Notifier.BookingCreated(ctx, *booking, in.Locale)
	})
	return booking, nil
}

// Reschedule moves a chain's live booking to a new slot. A chain can be
// rescheduled at most once; lifting that limit is a product decision, not a
// code one.
func (s *BookingService) Reschedule(ctx context.Context, token string, in CreateInput) (*models.Booking, error) {
	_, current, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if current.Status != models.StatusConfirmed {
		return nil, ErrInvalidStatus
	}
	if current.OriginalBookingID != "" {
		return nil, ErrAlreadyRescheduled
	}

	if err := s.checkModifyWindow(current.EventStart); err != nil {
		return nil, err
	}

	start, err := s.offeredStart(in.BusinessDate, in.BusinessTime)
	if err != nil {
		return nil, err
	}
	end := start.Add(schedule.SlotDuration)

	if err := s.checkCreateWindow(start); err != nil {
		return nil, err
	}

	conflict, err := s.Calendar.HasConflict(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: conflict check: %v", ErrUpstream, err)
	}
	if conflict {
		return nil, ErrSlotOccupied
	}

	// Old resources go first, best effort: the new reservation matters more
	// than perfect cleanup of the old one.
	s.cleanupResources(ctx, current.CalendarEventID, current.MeetingID)

	next := &models.Booking{
		CancellationToken: current.CancellationToken,
		FirstName:         current.FirstName,
		LastName:          current.LastName,
		Email:             current.Email,
		Phone:             current.Phone,
		Message:           current.Message,
		EventStart:        start,
		Status:            models.StatusConfirmed,
		OriginalBookingID: current.ID,
	}

	if err := s.provision(ctx, next); err != nil {
		return nil, err
	}

	if err := s.Repo.Insert(ctx, next); err != nil {
		s.cleanupResources(ctx, next.CalendarEventID, next.MeetingID)
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	if err := s.Repo.UpdateStatus(ctx, current.ID, models.StatusRescheduled); err != nil {
		// The new row is committed; the stale status is an operational
		// concern, not a user-facing failure.
		s.Log.Error("mark booking rescheduled failed",
			zap.String("booking_id", current.ID), zap.Error(err))
	}

	old := *current
	s.notifyAsync(func(ctx context.Context) error {
		return s.Notifier.BookingRescheduled(ctx, old, *next, in.Locale)
	})
	return next, nil
}

// Cancel terminates a chain's live booking. The status update is the
// authoritative state change and completes before any cleanup runs.
func (s *BookingService) Cancel(ctx context.Context, token, locale string) error {
	_, current, err := s.resolveToken(ctx, token)
	if err != nil {
		return err
	}
	if current.Status != models.StatusConfirmed {
		return ErrInvalidStatus
	}

	if err := s.checkModifyWindow(current.EventStart); err != nil {
		return err
	}

	if err := s.Repo.UpdateStatus(ctx, current.ID, models.StatusCancelled); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}

	s.cleanupResources(ctx, current.CalendarEventID, current.MeetingID)

	b := *current
	s.notifyAsync(func(ctx context.Context) error {
		return s.Notifier.BookingCancelled(ctx, b, locale)
	})
	return nil
}

// ManagementView resolves a token to the chain's current booking and
// reports which self-service actions remain open.
func (s *BookingService) ManagementView(ctx context.Context, token string) (*View, error) {
	base, current, err := s.resolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	decision := schedule.Evaluate(current.EventStart, s.Now(), s.ModifyLeadHours)
	confirmed := current.Status == models.StatusConfirmed

	return &View{
		Booking:                    *current,
		CanReschedule:              decision.Allowed && confirmed && current.OriginalBookingID == "",
		CanCancel:                  decision.Allowed && confirmed,
		IsRedirectedFromOldBooking: current.ID != base.ID,
	}, nil
}

func (s *BookingService) ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return s.Repo.ListUpcoming(ctx, from, to)
}

// resolveToken finds the booking the token was minted for and the latest
// descendant in its chain.
func (s *BookingService) resolveToken(ctx context.Context, token string) (base, current *models.Booking, err error) {
	base, err = s.Repo.FindByToken(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("find booking: %w", err)
	}
	if base == nil {
		return nil, nil, ErrNotFound
	}
	current, err = s.Repo.FindLatestInChain(ctx, base.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("walk booking chain: %w", err)
	}
	if current == nil {
		current = base
	}
	return base, current, nil
}

// offeredStart validates the requested business-local slot against the
// weekly template and returns its absolute start instant. The instant is
// always re-derived from business-local fields.
func (s *BookingService) offeredStart(businessDate, businessTime string) (time.Time, error) {
	start, err := schedule.BusinessStart(s.BusinessLoc, businessDate, businessTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	for _, hhmm := range s.Template.TimesFor(start.Weekday()) {
		if hhmm == businessTime {
			return start, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s %s is not an offered slot", ErrValidation, businessDate, businessTime)
}

func (s *BookingService) checkCreateWindow(start time.Time) error {
	d := schedule.Evaluate(start, s.Now(), s.CreateLeadHours)
	if d.Past {
		return ErrPastEvent
	}
	if !d.Allowed {
		return ErrTooSoon
	}
	return nil
}

func (s *BookingService) checkModifyWindow(eventStart time.Time) error {
	d := schedule.Evaluate(eventStart, s.Now(), s.ModifyLeadHours)
	if d.Past {
		return ErrPastEvent
	}
	if !d.Allowed {
		return ErrTooLateToModify
	}
	return nil
}

// provision creates the meeting then the calendar event, in that order: the
// event description embeds the attendee's join link. On a partial failure
// the meeting is compensated away.
func (s *BookingService) provision(ctx context.Context, b *models.Booking) error {
	topic := fmt.Sprintf("Consultation: %s %s", b.FirstName, b.LastName)

	meeting, err := s.Meetings.CreateMeeting(ctx, topic, b.EventStart,
		int(schedule.SlotDuration.Minutes()),
		[]gateway.Attendee{{Email: b.Email, FirstName: b.FirstName, LastName: b.LastName}})
	if err != nil {
		return fmt.Errorf("%w: create meeting: %v", ErrUpstream, err)
	}
	b.MeetingID = meeting.ID
	b.MeetingJoinURL = meeting.JoinURL
	if link, ok := meeting.JoinURLByEmail[b.Email]; ok && link != "" {
		b.MeetingJoinURL = link
	}

	eventID, err := s.Calendar.InsertEvent(ctx, gateway.Event{
		Summary:     topic,
		Description: s.eventDescription(b),
		Start:       b.EventStart,
		End:         b.EventStart.Add(schedule.SlotDuration),
	})
	if err != nil {
		if derr := s.Meetings.DeleteMeeting(ctx, b.MeetingID); derr != nil {
			s.Log.Warn("meeting cleanup after event failure",
				zap.String("meeting_id", b.MeetingID), zap.Error(derr))
		}
		return fmt.Errorf("%w: insert calendar event: %v", ErrUpstream, err)
	}
	b.CalendarEventID = eventID
	return nil
}

// eventDescription embeds contact details and the join link for staff
// reading the calendar directly. User-supplied fields are flattened to a
// single line each.
func (s *BookingService) eventDescription(b *models.Booking) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s %s\n", oneLine(b.FirstName), oneLine(b.LastName))
	fmt.Fprintf(&sb, "Email: %s\n", oneLine(b.Email))
	if b.Phone != "" {
		fmt.Fprintf(&sb, "Phone: %s\n", oneLine(b.Phone))
	}
	if b.Message != "" {
		fmt.Fprintf(&sb, "Message: %s\n", oneLine(b.Message))
	}
	fmt.Fprintf(&sb, "Join: %s\n", b.MeetingJoinURL)
	return sb.String()
}

// cleanupResources deletes external resources best effort. The two deletes
// are independent and run concurrently; failures are logged individually.
func (s *BookingService) cleanupResources(ctx context.Context, calendarEventID, meetingID string) {
	var wg sync.WaitGroup
	if calendarEventID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Calendar.DeleteEvent(ctx, calendarEventID); err != nil {
				s.Log.Warn("calendar event cleanup failed",
					zap.String("event_id", calendarEventID), zap.Error(err))
			}
		}()
	}
	if meetingID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Meetings.DeleteMeeting(ctx, meetingID); err != nil {
				s.Log.Warn("meeting cleanup failed",
					zap.String("meeting_id", meetingID), zap.Error(err))
			}
		}()
	}
	wg.Wait()
}

// notifyAsync runs a notification off the request path with its own
// timeout. Failures never affect the committed operation.
func (s *BookingService) notifyAsync(fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.Log.Warn("notification failed", zap.Error(err))
		}
	}()
}

func validateContact(in CreateInput) error {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return fmt.Errorf("%w: first and last name required", ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return nil
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
