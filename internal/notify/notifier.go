package notify

import (
	"context"

	"go.uber.org/zap"

	"booking-service/internal/models"
)

// Notifier delivers user-facing communication for booking events. Callers
// treat every method as best effort: failures are logged, never propagated.
type Notifier interface {
	BookingCreated(ctx context.Context, b models.Booking, locale string) error
	BookingRescheduled(ctx context.Context, old, updated models.Booking, locale string) error
	BookingCancelled(ctx context.Context, b models.Booking, locale string) error
}

// LogNotifier records booking events to the log. It stands in for the real
// mail pipeline in development and tests.
type LogNotifier struct {
	Log *zap.Logger
}

func NewLog(log *zap.Logger) *LogNotifier {
	return &LogNotifier{Log: log}
}

func (n *LogNotifier) BookingCreated(_ context.Context, b models.Booking, locale string) error {
	n.Log.Info("booking created",
		zap.String("booking_id", b.ID),
		zap.String("email", b.Email),
		zap.Time("event_start", b.EventStart),
		zap.String("locale", locale))
	return nil
}

func (n *LogNotifier) BookingRescheduled(_ context.Context, old, updated models.Booking, locale string) error {
	n.Log.Info("booking rescheduled",
		zap.String("old_booking_id", old.ID),
		zap.String("booking_id", updated.ID),
		zap.Time("old_event_start", old.EventStart),
		zap.Time("event_start", updated.EventStart),
		zap.String("locale", locale))
	return nil
}

func (n *LogNotifier) BookingCancelled(_ context.Context, b models.Booking, locale string) error {
	n.Log.Info("booking cancelled",
		zap.String("booking_id", b.ID),
		zap.Time("event_start", b.EventStart),
		zap.String("locale", locale))
	return nil
}
