package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestZoom(t *testing.T, handler http.Handler) (*ZoomClient, *httptest.Server, *int32) {
	t.Helper()
	var tokenCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		if user, pass, ok := r.BasicAuth(); !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.Handle("/", handler)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	z := NewZoomClient("acc", "cid", "secret", 5*time.Second, zap.NewNop())
	z.BaseURL = ts.URL
	z.AuthURL = ts.URL + "/oauth/token"
	return z, ts, &tokenCalls
}

func TestZoomCreateMeeting(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/users/me/meetings":
			json.NewEncoder(w).Encode(map[string]any{"id": 12345, "join_url": "https://zoom.example/j/12345"})
		case r.Method == http.MethodPost && r.URL.Path == "/meetings/12345/registrants":
			var body struct {
				Email string `json:"email"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			json.NewEncoder(w).Encode(map[string]any{"join_url": "https://zoom.example/j/12345?reg=" + body.Email})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	z, _, tokenCalls := newTestZoom(t, handler)

	m, err := z.CreateMeeting(context.Background(), "Consultation", time.Now().Add(48*time.Hour), 30,
		[]Attendee{{Email: "a@example.com", FirstName: "A", LastName: "B"}})
	if err != nil {
		t.Fatalf("CreateMeeting() = %v", err)
	}
	if m.ID != "12345" {
		t.Errorf("meeting id = %s, want 12345", m.ID)
	}
	if got := m.JoinURLByEmail["a@example.com"]; got != "https://zoom.example/j/12345?reg=a@example.com" {
		t.Errorf("registrant link = %s", got)
	}

	// Second call reuses the cached token.
	if _, err := z.CreateMeeting(context.Background(), "Again", time.Now().Add(72*time.Hour), 30, nil); err != nil {
		t.Fatalf("second CreateMeeting() = %v", err)
	}
	if n := atomic.LoadInt32(tokenCalls); n != 1 {
		t.Errorf("token requests = %d, want 1 (cache)", n)
	}
}

func TestZoomRegistrantFailureIsSkipped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/me/meetings":
			json.NewEncoder(w).Encode(map[string]any{"id": 9, "join_url": "https://zoom.example/j/9"})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	z, _, _ := newTestZoom(t, handler)

	m, err := z.CreateMeeting(context.Background(), "Consultation", time.Now(), 30,
		[]Attendee{{Email: "a@example.com"}})
	if err != nil {
		t.Fatalf("CreateMeeting() = %v, registrant failure must not be fatal", err)
	}
	if got := m.JoinURLByEmail["a@example.com"]; got != "https://zoom.example/j/9" {
		t.Errorf("fallback link = %s, want generic join url", got)
	}
}

func TestZoomDeleteMeetingIdempotent(t *testing.T) {
	var deletes int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete && r.URL.Path == "/meetings/9" {
			if atomic.AddInt32(&deletes, 1) == 1 {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	z, _, _ := newTestZoom(t, handler)

	if err := z.DeleteMeeting(context.Background(), "9"); err != nil {
		t.Fatalf("first DeleteMeeting() = %v", err)
	}
	if err := z.DeleteMeeting(context.Background(), "9"); err != nil {
		t.Fatalf("second DeleteMeeting() = %v, want nil (already gone)", err)
	}
}

func TestZoomTokenRefreshAfterExpiry(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})
	z, _, tokenCalls := newTestZoom(t, handler)

	if err := z.DeleteMeeting(context.Background(), "1"); err != nil {
		t.Fatalf("DeleteMeeting() = %v", err)
	}
	// Force the cached token past its refresh margin.
	z.mu.Lock()
	z.tokenExpiry = time.Now().Add(-time.Hour)
	z.mu.Unlock()

	if err := z.DeleteMeeting(context.Background(), "2"); err != nil {
		t.Fatalf("DeleteMeeting() after expiry = %v", err)
	}
	if n := atomic.LoadInt32(tokenCalls); n != 2 {
		t.Errorf("token requests = %d, want 2 (refresh)", n)
	}
}
