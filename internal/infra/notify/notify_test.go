package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/vietddude/healer/internal/core/domain"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
)

func testEvent() *domain.Event {
	return &domain.Event{
		ID:        "evt-1",
		TaskID:    "task-1",
		Level:     domain.LevelCritical,
		Message:   "task sync failed after 5 attempts",
		Timestamp: time.Now(),
	}
}

func TestOpsChannel_PublishesToFeed(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient(redisclient.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	n := NewOpsChannel(client, "ops-alerts")
	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	feed, err := client.RecentFeed(context.Background(), "ops-alerts", 10)
	if err != nil {
		t.Fatalf("RecentFeed failed: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("expected 1 feed entry, got %d", len(feed))
	}

	var got domain.Event
	if err := json.Unmarshal([]byte(feed[0]), &got); err != nil {
		t.Fatalf("feed entry is not valid JSON: %v", err)
	}
	if got.ID != "evt-1" || got.Level != domain.LevelCritical {
		t.Errorf("unexpected feed entry: %+v", got)
	}
}

func TestOpsChannel_FeedNewestFirst(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := redisclient.NewClient(redisclient.Config{URL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	n := NewOpsChannel(client, "ops")
	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		event := testEvent()
		event.ID = id
		if err := n.Notify(context.Background(), event); err != nil {
			t.Fatalf("Notify failed: %v", err)
		}
	}

	feed, _ := client.RecentFeed(context.Background(), "ops", 2)
	if len(feed) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(feed))
	}
	var head domain.Event
	json.Unmarshal([]byte(feed[0]), &head)
	if head.ID != "evt-3" {
		t.Errorf("expected newest entry first, got %s", head.ID)
	}
}

func TestWebhook_PostsEvent(t *testing.T) {
	var received *domain.Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		var event domain.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		received = &event
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewWebhook("pager", server.URL)
	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if received == nil || received.TaskID != "task-1" {
		t.Errorf("unexpected delivered event: %+v", received)
	}
}

func TestWebhook_ServerErrorIsReported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := NewWebhook("pager", server.URL)
	if err := n.Notify(context.Background(), testEvent()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestWebhook_UnreachableEndpoint(t *testing.T) {
	n := NewWebhook("pager", "http://127.0.0.1:1/hook")
	if err := n.Notify(context.Background(), testEvent()); err == nil {
		t.Error("expected error for unreachable endpoint")
	}
}

func TestLogNotifier_AlwaysSucceeds(t *testing.T) {
	n := &LogNotifier{Channel: "pager"}
	if err := n.Notify(context.Background(), testEvent()); err != nil {
		t.Errorf("Notify failed: %v", err)
	}
	if n.Name() != "log:pager" {
		t.Errorf("unexpected name %q", n.Name())
	}
}
