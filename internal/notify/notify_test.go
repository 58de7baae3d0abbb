package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingChannel struct {
	mu       sync.Mutex
	name     string
	err      error
	received []string
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Send(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.received = append(c.received, text)
	return c.err
}

func TestDispatcherSkipsNilChannels(t *testing.T) {
	d := NewDispatcher(nil, &recordingChannel{name: "a"}, nil)
	if !d.IsConfigured() {
		t.Fatal("dispatcher with one channel reports unconfigured")
	}
	if got := d.Describe(); got != "a" {
		t.Fatalf("Describe = %q, want a", got)
	}
}

func TestDispatcherEmpty(t *testing.T) {
	d := NewDispatcher()
	if d.IsConfigured() {
		t.Fatal("empty dispatcher reports configured")
	}
	if got := d.Describe(); got != "none" {
		t.Fatalf("Describe = %q, want none", got)
	}
	// Must be a no-op, not a panic.
	d.Notify(context.Background(), "hello")
}

func TestDispatcherDescribeJoinsNames(t *testing.T) {
	d := NewDispatcher(&recordingChannel{name: "webhook"}, &recordingChannel{name: "telegram"})
	if got := d.Describe(); got != "webhook, telegram" {
		t.Fatalf("Describe = %q", got)
	}
}

func TestNotifyContinuesPastFailures(t *testing.T) {
	failing := &recordingChannel{name: "broken", err: errors.New("boom")}
	working := &recordingChannel{name: "ok"}
	d := NewDispatcher(failing, working)

	d.Notify(context.Background(), "upload done")

	if len(failing.received) != 1 {
		t.Fatalf("failing channel got %d messages, want 1", len(failing.received))
	}
	if len(working.received) != 1 {
		t.Fatalf("working channel got %d messages, want 1", len(working.received))
	}
	if working.received[0] != "upload done" {
		t.Fatalf("delivered %q, want upload done", working.received[0])
	}
}

func TestWebhookChannelSend(t *testing.T) {
	var gotBody string
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, "secret", 5*time.Second)
	if ch.Name() != "webhook" {
		t.Fatalf("Name = %q", ch.Name())
	}
	if err := ch.Send(context.Background(), "upload done"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotBody != "upload done" {
		t.Fatalf("body = %q, want upload done", gotBody)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestWebhookChannelServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch := NewWebhookChannel(server.URL, "", 5*time.Second)
	if err := ch.Send(context.Background(), "hello"); err == nil {
		t.Fatal("Send succeeded against failing server")
	}
}
