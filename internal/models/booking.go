package models

import "time"

type BookingStatus string

const (
	StatusConfirmed   BookingStatus = "confirmed"
	StatusCancelled   BookingStatus = "cancelled"
	StatusRescheduled BookingStatus = "rescheduled"
)

// TimestampColumn maps a status to the column stamped when a booking enters
// that status. Empty string means no extra column is touched.
func (s BookingStatus) TimestampColumn() string {
	switch s {
	case StatusCancelled:
		return "cancelled_at"
	case StatusRescheduled:
		return "rescheduled_at"
	case StatusConfirmed:
		return ""
	}
	return ""
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

type Booking struct {
	ID                string        `json:"id"`
	CancellationToken string        `json:"cancellation_token,omitempty"`
	FirstName         string        `json:"first_name"`
	LastName          string        `json:"last_name"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone,omitempty"`
	Message           string        `json:"message,omitempty"`
	EventStart        time.Time     `json:"event_start"`
	Status            BookingStatus `json:"status"`
	CalendarEventID   string        `json:"-"`
	MeetingID         string        `json:"-"`
	MeetingJoinURL    string        `json:"meeting_join_url,omitempty"`
	OriginalBookingID string        `json:"original_booking_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	RescheduledAt     *time.Time    `json:"rescheduled_at,omitempty"`
}

// Slot is a derived bookable interval; never persisted. Equality is defined
// by the business-local (date, time) pair.
type Slot struct {
	BusinessDate      string `json:"business_date"`
	BusinessTime      string `json:"business_time"`
	ClientDisplayDate string `json:"client_display_date"`
	ClientDisplayTime string `json:"client_display_time"`
}
