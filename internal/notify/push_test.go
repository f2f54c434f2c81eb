package notify

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPushSender_Send(t *testing.T) {
	var gotTitle, gotPriority, gotTags, gotAuth, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("X-Title")
		gotPriority = r.Header.Get("X-Priority")
		gotTags = r.Header.Get("X-Tags")
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender, err := NewPushSender(PushConfig{URL: server.URL, AccessToken: "secret-token"})
	if err != nil {
		t.Fatalf("new push sender: %v", err)
	}

	err = sender.Send(context.Background(), &Notification{
		Title:    "Service down: billing",
		Message:  "connection refused",
		Priority: 5,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if gotTitle != "[CRITICAL] Service down: billing" {
		t.Errorf("X-Title = %q", gotTitle)
	}
	if gotPriority != "urgent" {
		t.Errorf("X-Priority = %q, want urgent", gotPriority)
	}
	if gotTags != "red_circle" {
		t.Errorf("X-Tags = %q, want red_circle", gotTags)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody != "connection refused" {
		t.Errorf("body = %q, want the message", gotBody)
	}
}

func TestPushSender_PriorityMapping(t *testing.T) {
	var gotPriority string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPriority = r.Header.Get("X-Priority")
	}))
	defer server.Close()

	sender, err := NewPushSender(PushConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("new push sender: %v", err)
	}

	tests := []struct {
		priority int
		want     string
	}{
		{1, "min"},
		{3, "default"},
		{5, "urgent"},
		{0, "min"},     // clamped up
		{9, "urgent"},  // clamped down
	}
	for _, tt := range tests {
		if err := sender.Send(context.Background(), &Notification{Title: "t", Message: "m", Priority: tt.priority}); err != nil {
			t.Fatalf("send priority %d: %v", tt.priority, err)
		}
		if gotPriority != tt.want {
			t.Errorf("priority %d → header %q, want %q", tt.priority, gotPriority, tt.want)
		}
	}
}

func TestPushSender_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic does not exist", http.StatusNotFound)
	}))
	defer server.Close()

	sender, err := NewPushSender(PushConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("new push sender: %v", err)
	}

	err = sender.Send(context.Background(), &Notification{Title: "t", Message: "m", Priority: 3})
	if err == nil {
		t.Fatal("non-2xx response must be an error")
	}
}

func TestPushConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://ntfy.example.com/alerts", false},
		{"http", "http://localhost:8080/alerts", false},
		{"empty", "", true},
		{"no scheme", "ntfy.example.com/alerts", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := PushConfig{URL: tt.url}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
