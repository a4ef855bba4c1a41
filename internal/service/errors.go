package service

import "errors"

// Closed set of domain failures. The HTTP layer maps these to statuses and
// stable error codes; nothing here knows about transports.
var (
	ErrNotFound           = errors.New("booking not found")
	ErrInvalidStatus      = errors.New("booking is not in a modifiable status")
	ErrTooSoon            = errors.New("requested time is too soon")
	ErrTooLateToModify    = errors.New("too close to the event to modify")
	ErrPastEvent          = errors.New("event is already past")
	ErrSlotOccupied       = errors.New("time slot occupied")
	ErrAlreadyRescheduled = errors.New("booking was already rescheduled once")
	ErrValidation         = errors.New("invalid input")
	ErrUpstream           = errors.New("upstream service failure")
)
