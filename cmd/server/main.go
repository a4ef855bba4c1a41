package main

import (
	"context"
	"log"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"booking-service/internal/app"
	"booking-service/internal/config"
	"booking-service/internal/gateway"
	"booking-service/internal/logger"
	"booking-service/internal/notify"
	"booking-service/internal/repository"
	"booking-service/internal/schedule"
	"booking-service/internal/server"
	"booking-service/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog := logger.New(cfg.LogLevel, cfg.LogPretty)
	defer zlog.Sync()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("connect to db", zap.Error(err))
	}
	defer pool.Close()

	businessLoc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		zlog.Fatal("load business timezone", zap.String("tz", cfg.BusinessTimezone), zap.Error(err))
	}

	template, err := schedule.ParseTemplate(cfg.WeeklyTemplate)
	if err != nil {
		zlog.Fatal("parse weekly template", zap.Error(err))
	}

	gatewayTimeout := time.Duration(cfg.GatewayTimeoutSeconds) * time.Second

	calendar, err := gateway.NewGoogleCalendar(ctx, []byte(cfg.GoogleCredentialsJSON),
		cfg.GoogleCalendarID, cfg.BusinessTimezone, gatewayTimeout)
	if err != nil {
		zlog.Fatal("init google calendar", zap.Error(err))
	}

	meetings := gateway.NewZoomClient(cfg.ZoomAccountID, cfg.ZoomClientID,
		cfg.ZoomClientSecret, gatewayTimeout, zlog)

	repo := repository.NewPG(pool)
	notifier := notify.NewLog(zlog)

	availability := service.NewAvailability(calendar, template, businessLoc, cfg.CreateLeadHours)
	bookings := service.NewBooking(repo, calendar, meetings, notifier, zlog,
		template, businessLoc, cfg.CreateLeadHours, cfg.ModifyLeadHours)

	appInstance := &app.App{
		Availability: availability,
		Bookings:     bookings,
		Log:          zlog,
	}

	router := gin.Default()

	api := router.Group("/api")
	{
		api.GET("/slots", appInstance.GetSlotsHandler)

		bookingsGroup := api.Group("/bookings")
		{
			bookingsGroup.POST("", appInstance.CreateBookingHandler)
			bookingsGroup.GET("/:token", appInstance.GetBookingHandler)
			bookingsGroup.POST("/:token/reschedule", appInstance.RescheduleBookingHandler)
			bookingsGroup.POST("/:token/cancel", appInstance.CancelBookingHandler)
		}

		admin := api.Group("/admin")
		admin.Use(app.AuthMiddleware(cfg.StaticTokens, cfg.JWTHMACSecret))
		{
			admin.GET("/bookings", appInstance.ListBookingsHandler)
		}
	}

	if err := server.Run(router, cfg.Port, zlog); err != nil {
		zlog.Fatal("server", zap.Error(err))
	}
}
