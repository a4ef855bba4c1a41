package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"booking-service/internal/service"
)

type App struct {
	Availability *service.AvailabilityService
	Bookings     *service.BookingService
	Log          *zap.Logger
}

// GET /api/slots?date=YYYY-MM-DD&timezone=IANA
func (a *App) GetSlotsHandler(c *gin.Context) {
	date := c.Query("date")
	tz := c.DefaultQuery("timezone", "Asia/Tokyo")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date required (YYYY-MM-DD)", "code": "VALIDATION_ERROR"})
		return
	}

	slots, err := a.Availability.AvailableSlots(c.Request.Context(), date, tz)
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "count": len(slots)})
}

type createBookingReq struct {
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Phone        string `json:"phone,omitempty"`
	Message      string `json:"message,omitempty"`
	BusinessDate string `json:"business_date" binding:"required"`
	BusinessTime string `json:"business_time" binding:"required"`
	Locale       string `json:"locale,omitempty"`
}

// POST /api/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
		return
	}

	booking, err := a.Bookings.Create(c.Request.Context(), service.CreateInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		BusinessDate: req.BusinessDate,
		BusinessTime: req.BusinessTime,
		Locale:       req.Locale,
	})
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, booking)
}

type rescheduleReq struct {
	BusinessDate string `json:"business_date" binding:"required"`
	BusinessTime string `json:"business_time" binding:"required"`
	Locale       string `json:"locale,omitempty"`
}

// POST /api/bookings/:token/reschedule
func (a *App) RescheduleBookingHandler(c *gin.Context) {
	token := c.Param("token")
	var req rescheduleReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
		return
	}

	booking, err := a.Bookings.Reschedule(c.Request.Context(), token, service.CreateInput{
		BusinessDate: req.BusinessDate,
		BusinessTime: req.BusinessTime,
		Locale:       req.Locale,
	})
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

type cancelReq struct {
	Locale string `json:"locale,omitempty"`
}

// POST /api/bookings/:token/cancel
func (a *App) CancelBookingHandler(c *gin.Context) {
	token := c.Param("token")
	var req cancelReq
	_ = c.ShouldBindJSON(&req) // body is optional

	if err := a.Bookings.Cancel(c.Request.Context(), token, req.Locale); err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GET /api/bookings/:token
func (a *App) GetBookingHandler(c *gin.Context) {
	view, err := a.Bookings.ManagementView(c.Request.Context(), c.Param("token"))
	if err != nil {
		a.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /api/admin/bookings?from=ISO&to=ISO
func (a *App) ListBookingsHandler(c *gin.Context) {
	from := time.Now().UTC()
	to := from.AddDate(0, 1, 0)

	if fromStr := c.Query("from"); fromStr != "" {
		t, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from", "code": "VALIDATION_ERROR"})
			return
		}
		from = t
	}
	if toStr := c.Query("to"); toStr != "" {
		t, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to", "code": "VALIDATION_ERROR"})
			return
		}
		to = t
	}
	if !from.Before(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be before to", "code": "VALIDATION_ERROR"})
		return
	}

	bookings, err := a.Bookings.ListUpcoming(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// renderError maps the closed service error set onto HTTP. The mapping
// lives only here; the service layer knows nothing about statuses.
func (a *App) renderError(c *gin.Context, err error) {
	code, status := classify(err)
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		a.Log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "BOOKING_NOT_FOUND", http.StatusNotFound
	case errors.Is(err, service.ErrInvalidStatus):
		return "INVALID_STATUS", http.StatusConflict
	case errors.Is(err, service.ErrAlreadyRescheduled):
		return "INVALID_STATUS", http.StatusConflict
	case errors.Is(err, service.ErrSlotOccupied):
		return "TIME_SLOT_OCCUPIED", http.StatusConflict
	case errors.Is(err, service.ErrTooSoon):
		return "NEW_TIME_TOO_SOON", http.StatusBadRequest
	case errors.Is(err, service.ErrTooLateToModify):
		return "TOO_LATE_TO_RESCHEDULE", http.StatusBadRequest
	case errors.Is(err, service.ErrPastEvent):
		return "PAST_EVENT", http.StatusBadRequest
	case errors.Is(err, service.ErrValidation):
		return "VALIDATION_ERROR", http.StatusBadRequest
	case errors.Is(err, service.ErrUpstream):
		return "UPSTREAM_FAILURE", http.StatusBadGateway
	}
	return "INTERNAL_ERROR", http.StatusInternalServerError
}
