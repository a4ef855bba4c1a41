package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-service/internal/models"
)

// Bookings is the system of record for booking rows.
type Bookings interface {
	Insert(ctx context.Context, b *models.Booking) error
	FindByToken(ctx context.Context, token string) (*models.Booking, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	// FindLatestInChain follows original_booking_id references forward from
	// the given booking to the newest descendant.
	FindLatestInChain(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type PG struct {
	DB *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{DB: pool}
}

const bookingColumns = `id, cancellation_token, first_name, last_name, email, phone, message,
	event_start, status, calendar_event_id, meeting_id, meeting_join_url,
	original_booking_id, created_at, cancelled_at, rescheduled_at`

func (r *PG) Insert(ctx context.Context, b *models.Booking) error {
	q := `INSERT INTO bookings
		(id, cancellation_token, first_name, last_name, email, phone, message,
		 event_start, status, calendar_event_id, meeting_id, meeting_join_url,
		 original_booking_id, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12,'')::uuid, now())
		RETURNING id, created_at`

	return r.DB.QueryRow(ctx, q,
		b.CancellationToken, b.FirstName, b.LastName, b.Email, b.Phone, b.Message,
		b.EventStart.UTC(), string(b.Status), b.CalendarEventID, b.MeetingID, b.MeetingJoinURL,
		b.OriginalBookingID,
	).Scan(&b.ID, &b.CreatedAt)
}

// FindByToken resolves a cancellation token to the booking it was minted
// for: the oldest row carrying it. Chain walking is the caller's concern.
func (r *PG) FindByToken(ctx context.Context, token string) (*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE cancellation_token=$1 ORDER BY created_at ASC LIMIT 1`
	return r.queryOne(ctx, q, token)
}

func (r *PG) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id=$1`
	return r.queryOne(ctx, q, id)
}

func (r *PG) FindLatestInChain(ctx context.Context, id string) (*models.Booking, error) {
	cur, err := r.FindByID(ctx, id)
	if err != nil || cur == nil {
		return cur, err
	}
	for {
		q := `SELECT ` + bookingColumns + ` FROM bookings
		      WHERE original_booking_id=$1 ORDER BY created_at DESC LIMIT 1`
		next, err := r.queryOne(ctx, q, cur.ID)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return cur, nil
		}
		cur = next
	}
}

// UpdateStatus sets the status and stamps its timestamp column, if the
// status has one. The column comes from a closed switch over the status
// enum, never from input.
func (r *PG) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid status %q", status)
	}

	q := `UPDATE bookings SET status=$1 WHERE id=$2`
	if col := status.TimestampColumn(); col != "" {
		q = fmt.Sprintf(`UPDATE bookings SET status=$1, %s=now() WHERE id=$2`, col)
	}

	res, err := r.DB.Exec(ctx, q, string(status), id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PG) ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE status='confirmed' AND event_start >= $1 AND event_start < $2
	      ORDER BY event_start`
	rows, err := r.DB.Query(ctx, q, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PG) queryOne(ctx context.Context, q string, args ...any) (*models.Booking, error) {
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return scanBooking(rows)
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	var status string
	var original *string
	err := row.Scan(&b.ID, &b.CancellationToken, &b.FirstName, &b.LastName, &b.Email,
		&b.Phone, &b.Message, &b.EventStart, &status, &b.CalendarEventID,
		&b.MeetingID, &b.MeetingJoinURL, &original, &b.CreatedAt,
		&b.CancelledAt, &b.RescheduledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	b.Status = models.BookingStatus(status)
	if original != nil {
		b.OriginalBookingID = *original
	}
	return &b, nil
}
