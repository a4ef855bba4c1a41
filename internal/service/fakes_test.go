package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"booking-service/internal/gateway"
	"booking-service/internal/models"
	"booking-service/internal/repository"
)

type fakeCalendar struct {
	mu       sync.Mutex
	busy     []gateway.BusyPeriod
	inserted []gateway.Event
	deleted  []string

	listErr   error
	insertErr error
	deleteErr error

	nextID int
}

func (f *fakeCalendar) ListEvents(_ context.Context, from, to time.Time) ([]gateway.BusyPeriod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []gateway.BusyPeriod
	for _, p := range f.busy {
		if from.Before(p.End) && p.Start.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCalendar) HasConflict(ctx context.Context, start, end time.Time) (bool, error) {
	periods, err := f.ListEvents(ctx, start, end)
	if err != nil {
		return false, err
	}
	return len(periods) > 0, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, ev gateway.Event) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.nextID++
	f.inserted = append(f.inserted, ev)
	f.busy = append(f.busy, gateway.BusyPeriod{Start: ev.Start, End: ev.End})
	return fmt.Sprintf("ev%d", f.nextID), nil
}

// DeleteEvent mirrors the real gateway's idempotency: deleting an unknown
// id succeeds.
func (f *fakeCalendar) DeleteEvent(_ context.Context, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

type fakeMeetings struct {
	mu      sync.Mutex
	created int
	deleted []string

	createErr error
	deleteErr error
}

func (f *fakeMeetings) CreateMeeting(_ context.Context, topic string, start time.Time, durationMin int, attendees []gateway.Attendee) (gateway.Meeting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return gateway.Meeting{}, f.createErr
	}
	f.created++
	id := fmt.Sprintf("m%d", f.created)
	m := gateway.Meeting{
		ID:             id,
		JoinURL:        "https://meet.example/" + id,
		JoinURLByEmail: make(map[string]string, len(attendees)),
	}
	for _, a := range attendees {
		m.JoinURLByEmail[a.Email] = "https://meet.example/" + id + "?reg=" + a.Email
	}
	return m, nil
}

func (f *fakeMeetings) DeleteMeeting(_ context.Context, meetingID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, meetingID)
	return nil
}

// fakeRepo is an in-memory system of record implementing the same chain
// semantics as the Postgres repository.
type fakeRepo struct {
	mu        sync.Mutex
	rows      []*models.Booking
	nextID    int
	insertErr error
	clock     time.Time
}

var _ repository.Bookings = (*fakeRepo)(nil)

func (r *fakeRepo) Insert(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.nextID++
	b.ID = fmt.Sprintf("b%d", r.nextID)
	r.clock = r.clock.Add(time.Second)
	b.CreatedAt = r.clock
	cp := *b
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *fakeRepo) FindByToken(_ context.Context, token string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest *models.Booking
	for _, b := range r.rows {
		if b.CancellationToken != token {
			continue
		}
		if oldest == nil || b.CreatedAt.Before(oldest.CreatedAt) {
			oldest = b
		}
	}
	if oldest == nil {
		return nil, nil
	}
	cp := *oldest
	return &cp, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byID(id)
	if b == nil {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) FindLatestInChain(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := r.byID(id)
	if cur == nil {
		return nil, nil
	}
	for {
		var next *models.Booking
		for _, b := range r.rows {
			if b.OriginalBookingID == cur.ID {
				if next == nil || b.CreatedAt.After(next.CreatedAt) {
					next = b
				}
			}
		}
		if next == nil {
			cp := *cur
			return &cp, nil
		}
		cur = next
	}
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status models.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := r.byID(id)
	if b == nil {
		return fmt.Errorf("no booking %s", id)
	}
	b.Status = status
	now := time.Now()
	switch status.TimestampColumn() {
	case "cancelled_at":
		b.CancelledAt = &now
	case "rescheduled_at":
		b.RescheduledAt = &now
	}
	return nil
}

func (r *fakeRepo) ListUpcoming(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.rows {
		if b.Status == models.StatusConfirmed && !b.EventStart.Before(from) && b.EventStart.Before(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) byID(id string) *models.Booking {
	for _, b := range r.rows {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (r *fakeRepo) confirmedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.rows {
		if b.Status == models.StatusConfirmed {
			n++
		}
	}
	return n
}

type fakeNotifier struct {
	mu          sync.Mutex
	created     int
	rescheduled int
	cancelled   int
	err         error
	done        chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 16)}
}

func (n *fakeNotifier) BookingCreated(context.Context, models.Booking, string) error {
	n.mu.Lock()
	n.created++
	n.mu.Unlock()
	n.done <- struct{}{}
	return n.err
}

func (n *fakeNotifier) BookingRescheduled(context.Context, models.Booking, models.Booking, string) error {
	n.mu.Lock()
	n.rescheduled++
	n.mu.Unlock()
	n.done <- struct{}{}
	return n.err
}

func (n *fakeNotifier) BookingCancelled(context.Context, models.Booking, string) error {
	n.mu.Lock()
	n.cancelled++
	n.mu.Unlock()
	n.done <- struct{}{}
	return n.err
}

func (n *fakeNotifier) wait(timeout time.Duration) bool {
	select {
	case <-n.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
