package config

import (
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// DB
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Scheduling
	BusinessTimezone string `envconfig:"BUSINESS_TIMEZONE" default:"Asia/Tokyo"`
	// JSON object keyed by weekday number 0-6, e.g. {"1":["10:00","11:00"]}.
	// Falls back to DefaultWeeklyTemplate when unset.
	WeeklyTemplate  string `envconfig:"WEEKLY_TEMPLATE"`
	CreateLeadHours int    `envconfig:"CREATE_LEAD_HOURS" default:"4"`
	ModifyLeadHours int    `envconfig:"MODIFY_LEAD_HOURS" default:"24"`

	// Google Calendar
	GoogleCalendarID      string `envconfig:"GOOGLE_CALENDAR_ID" default:"primary"`
	GoogleCredentialsJSON string `envconfig:"GOOGLE_CREDENTIALS_JSON"`

	// Zoom (server-to-server OAuth)
	ZoomAccountID    string `envconfig:"ZOOM_ACCOUNT_ID"`
	ZoomClientID     string `envconfig:"ZOOM_CLIENT_ID"`
	ZoomClientSecret string `envconfig:"ZOOM_CLIENT_SECRET"`

	// Staff auth
	StaticTokens  string `envconfig:"STATIC_TOKENS"`
	JWTHMACSecret string `envconfig:"JWT_HMAC_SECRET"`

	// Network
	Port                  string `envconfig:"PORT" default:"8080"`
	GatewayTimeoutSeconds int    `envconfig:"GATEWAY_TIMEOUT_SECONDS" default:"10"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// DefaultWeeklyTemplate offers weekday consultations, Friday afternoon
// excluded. Tag syntax cannot carry quoted JSON, so the fallback lives here.
const DefaultWeeklyTemplate = `{
	"1": ["10:00", "11:00", "14:00", "15:00"],
	"2": ["10:00", "11:00", "14:00", "15:00"],
	"3": ["10:00", "11:00", "14:00", "15:00"],
	"4": ["10:00", "11:00", "14:00", "15:00"],
	"5": ["10:00", "11:00"]
}`

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	if c.WeeklyTemplate == "" {
		c.WeeklyTemplate = DefaultWeeklyTemplate
	}
	return c, err
}
