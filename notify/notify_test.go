package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vexrag/vexrag/config"
)

func TestNullNotifierIsNoOp(t *testing.T) {
	var n NullNotifier
	n.Start("doc.md", 6)
	n.Notify(ProgressEvent{Stage: StageChunking, Message: "chunking"})
	n.Finish(true, "done")
}

func TestConsoleNotifierWritesOutput(t *testing.T) {
	var buf bytes.Buffer
	c := &ConsoleNotifier{Output: &buf, ShowProgressBar: true}

	c.Start("docs/readme.md", 6)
	c.Notify(ProgressEvent{Stage: StageChunking, Message: "chunking", Current: 1, Total: 3})
	c.Finish(true, "indexed 3 chunks")

	out := buf.String()
	if !bytes.Contains([]byte(out), []byte("readme.md")) {
		t.Errorf("expected output to mention file name, got %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("indexed 3 chunks")) {
		t.Errorf("expected output to mention finish message, got %q", out)
	}
}

func TestWebhookNotifierSendsProgressPayload(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "generic", nil, 0, nil, 2*time.Second)
	w.Notify(ProgressEvent{Stage: StageChunking, Message: "chunking", Current: 1, Total: 2})

	select {
	case body := <-received:
		if body["event"] != "indexing_progress" {
			t.Errorf("event = %v, want indexing_progress", body["event"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for webhook POST")
	}
}

func TestWebhookNotifierRateLimitsProgress(t *testing.T) {
	var count int
	done := make(chan struct{}, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		done <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "generic", nil, time.Hour, nil, 2*time.Second)
	w.Notify(ProgressEvent{Stage: StageChunking, Message: "first"})
	w.Notify(ProgressEvent{Stage: StageChunking, Message: "second"})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
	time.Sleep(50 * time.Millisecond)

	if count != 1 {
		t.Errorf("expected exactly one POST within the rate-limit window, got %d", count)
	}
}

func TestWebhookNotifierCompleteAlwaysBypassesRateLimit(t *testing.T) {
	var count int
	done := make(chan struct{}, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count++
		done <- struct{}{}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "generic", nil, time.Hour, nil, 2*time.Second)
	w.Notify(ProgressEvent{Stage: StageChunking, Message: "first"})
	<-done
	w.Finish(true, "done")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Finish to send regardless of rate limit")
	}

	if count != 2 {
		t.Errorf("expected 2 POSTs (one progress, one finish), got %d", count)
	}
}

func TestCompositeNotifierFansOutAndSwallowsPanics(t *testing.T) {
	var buf bytes.Buffer
	good := &ConsoleNotifier{Output: &buf}
	bad := panickingNotifier{}

	c := NewCompositeNotifier(good, bad)
	c.Start("doc.md", 6)
	c.Notify(ProgressEvent{Stage: StageChunking, Message: "chunking", Total: 1, Current: 1})
	c.Finish(true, "ok")

	if buf.Len() == 0 {
		t.Error("expected the good notifier to still receive events despite the bad one panicking")
	}
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(ProgressEvent)  { panic("boom") }
func (panickingNotifier) Start(string, int)     { panic("boom") }
func (panickingNotifier) Finish(bool, string)   { panic("boom") }

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("VEXRAG_TEST_WEBHOOK_TOKEN", "abc123")
	got := substituteEnvVars("https://hooks.example.com/${VEXRAG_TEST_WEBHOOK_TOKEN}")
	want := "https://hooks.example.com/abc123"
	if got != want {
		t.Errorf("substituteEnvVars = %q, want %q", got, want)
	}
}

func TestSubstituteEnvVarsLeavesUnresolvedPlaceholder(t *testing.T) {
	got := substituteEnvVars("https://hooks.example.com/${VEXRAG_DOES_NOT_EXIST}")
	want := "https://hooks.example.com/${VEXRAG_DOES_NOT_EXIST}"
	if got != want {
		t.Errorf("substituteEnvVars = %q, want %q", got, want)
	}
}

func TestFromConfigDefaultsToNull(t *testing.T) {
	n := FromConfig(config.NotificationsConfig{})
	if _, ok := n.(NullNotifier); !ok {
		t.Errorf("expected NullNotifier when nothing is enabled, got %T", n)
	}
}

func TestFromConfigConsoleOnly(t *testing.T) {
	n := FromConfig(config.NotificationsConfig{Console: config.ConsoleNotifierConfig{Enabled: true}})
	if _, ok := n.(*ConsoleNotifier); !ok {
		t.Errorf("expected *ConsoleNotifier, got %T", n)
	}
}

func TestFromConfigBothEnabledComposes(t *testing.T) {
	n := FromConfig(config.NotificationsConfig{
		Console: config.ConsoleNotifierConfig{Enabled: true},
		Webhook: config.WebhookNotifierConfig{Enabled: true, URL: "https://example.com/hook", Template: "generic", MinIntervalSeconds: 2.0},
	})
	if _, ok := n.(*CompositeNotifier); !ok {
		t.Errorf("expected *CompositeNotifier when both sinks enabled, got %T", n)
	}
}
