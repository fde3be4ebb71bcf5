package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/helpdesk/internal/config"
)

func TestNewSelectsDriver(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.NotificationConfig
		wantErr bool
	}{
		{"default log", config.NotificationConfig{}, false},
		{"webhook without url", config.NotificationConfig{Driver: "webhook"}, true},
		{"webhook", config.NotificationConfig{Driver: "webhook", WebhookURL: "http://127.0.0.1:1/hook"}, false},
		{"kafka without brokers", config.NotificationConfig{Driver: "kafka"}, true},
		{"kafka", config.NotificationConfig{Driver: "kafka", KafkaBrokers: []string{"127.0.0.1:9092"}}, false},
		{"unknown", config.NotificationConfig{Driver: "pigeon"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := New(tc.cfg, zap.NewNop())
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			_ = n.Close()
		})
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core), "noreply@example.com")

	err := n.Send(context.Background(), Notification{Recipient: "admin@example.com", Subject: "New Ticket Created: x", Body: "b"})
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	entries := logs.FilterMessage("notification").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d notification entries, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["recipient"]; got != "admin@example.com" {
		t.Fatalf("recipient field = %v", got)
	}
}

func TestWebhookNotifierDelivers(t *testing.T) {
	var received Notification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, 0, nil)
	want := Notification{Recipient: "customer1@example.com", Subject: "Update on your ticket: x", Body: "body"}
	if err := n.Send(context.Background(), want); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if received != want {
		t.Fatalf("received %+v, want %+v", received, want)
	}
}

func TestWebhookNotifierRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, 2, nil)
	n.backoff = time.Millisecond
	if err := n.Send(context.Background(), Notification{Recipient: "r"}); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestWebhookNotifierGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second, 1, nil)
	n.backoff = time.Millisecond
	if err := n.Send(context.Background(), Notification{Recipient: "r"}); err == nil {
		t.Fatal("Send() should fail when every attempt fails")
	}
}
