package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestLogger_TagsRequests(t *testing.T) {
	var sawID string
	handler := RequestLogger(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawID = w.Header().Get("X-Request-ID")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts", nil))

	if len(sawID) != 8 {
		t.Errorf("expected an 8-char request ID, got %q", sawID)
	}
	if rec.Header().Get("X-Request-ID") != sawID {
		t.Errorf("request ID not echoed in response headers")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("status not passed through: %d", rec.Code)
	}
}

func TestWithTimeout_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := WithTimeout(250 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stats", nil))

	if !ok {
		t.Fatal("request context has no deadline")
	}
	if remaining := time.Until(deadline); remaining > 250*time.Millisecond {
		t.Errorf("deadline %v further out than the configured timeout", remaining)
	}
}

func TestWithTimeout_CancelsSlowHandlers(t *testing.T) {
	done := make(chan error, 1)
	handler := WithTimeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			done <- r.Context().Err()
		case <-time.After(2 * time.Second):
			done <- nil
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stats", nil))

	if err := <-done; err == nil {
		t.Fatal("slow handler was not canceled")
	}
}
