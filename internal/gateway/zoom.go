package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Attendee is one person to register for a meeting.
type Attendee struct {
	Email     string
	FirstName string
	LastName  string
}

// Meeting is a provisioned meeting room. JoinURLByEmail holds the
// personalized registrant links; attendees whose registration failed fall
// back to the generic join URL.
type Meeting struct {
	ID             string
	JoinURL        string
	JoinURLByEmail map[string]string
}

// Meetings is the capability surface for the meeting-room provider.
type Meetings interface {
	CreateMeeting(ctx context.Context, topic string, start time.Time, durationMin int, attendees []Attendee) (Meeting, error)
	DeleteMeeting(ctx context.Context, meetingID string) error
}

// ZoomClient implements Meetings over Zoom's server-to-server OAuth API.
// The access token is cached with its expiry and refreshed transparently.
type ZoomClient struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthURL      string
	HTTP         *http.Client
	Log          *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewZoomClient(accountID, clientID, clientSecret string, timeout time.Duration, log *zap.Logger) *ZoomClient {
	return &ZoomClient{
		AccountID:    accountID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      "https://api.zoom.us/v2",
		AuthURL:      "https://zoom.us/oauth/token",
		HTTP:         &http.Client{Timeout: timeout},
		Log:          log,
	}
}

// accessToken returns a cached token, fetching a fresh one when the cached
// token is within a minute of expiring.
func (z *ZoomClient) accessToken(ctx context.Context) (string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	if z.token != "" && time.Now().Before(z.tokenExpiry.Add(-1*time.Minute)) {
		return z.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "account_credentials")
	form.Set("account_id", z.AccountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.AuthURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(z.ClientID, z.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := z.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoom token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("zoom token request: status %d: %s", resp.StatusCode, string(body))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("zoom token decode: %w", err)
	}

	z.token = tok.AccessToken
	z.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return z.token, nil
}

func (z *ZoomClient) CreateMeeting(ctx context.Context, topic string, start time.Time, durationMin int, attendees []Attendee) (Meeting, error) {
	var out Meeting

	payload := map[string]any{
		"topic":      topic,
		"type":       2, // scheduled
		"start_time": start.UTC().Format("2006-01-02T15:04:05Z"),
		"duration":   durationMin,
		"timezone":   "UTC",
		// approval_type 0 auto-approves registrants
		"settings": map[string]any{
			"approval_type":                  0,
			"waiting_room":                   false,
			"join_before_host":               true,
			"registrants_email_notification": false,
		},
	}

	var created struct {
		ID      int64  `json:"id"`
		JoinURL string `json:"join_url"`
	}
	if err := z.call(ctx, http.MethodPost, "/users/me/meetings", payload, &created); err != nil {
		return out, fmt.Errorf("create meeting: %w", err)
	}

	out.ID = strconv.FormatInt(created.ID, 10)
	out.JoinURL = created.JoinURL
	out.JoinURLByEmail = make(map[string]string, len(attendees))

	for _, a := range attendees {
		var reg struct {
			JoinURL string `json:"join_url"`
		}
		body := map[string]any{
			"email":      a.Email,
			"first_name": a.FirstName,
			"last_name":  a.LastName,
		}
		err := z.call(ctx, http.MethodPost, "/meetings/"+out.ID+"/registrants", body, &reg)
		if err != nil {
			// Registration is per-attendee best effort; the generic link
			// still works for anyone we could not register.
			z.Log.Warn("zoom registrant add failed",
				zap.String("meeting_id", out.ID),
				zap.String("email", a.Email),
				zap.Error(err))
			out.JoinURLByEmail[a.Email] = created.JoinURL
			continue
		}
		out.JoinURLByEmail[a.Email] = reg.JoinURL
	}
	return out, nil
}

func (z *ZoomClient) DeleteMeeting(ctx context.Context, meetingID string) error {
	err := z.call(ctx, http.MethodDelete, "/meetings/"+meetingID, nil, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete meeting %s: %w", meetingID, err)
	}
	return nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("zoom api: status %d: %s", e.code, e.body)
}

func (z *ZoomClient) call(ctx context.Context, method, path string, payload, out any) error {
	token, err := z.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, z.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := z.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(raw)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
