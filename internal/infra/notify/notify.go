// Package notify holds the delivery channels used by the escalation ladder.
// Deliveries are best-effort: callers log failures and never propagate them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vietddude/healer/internal/core/domain"
	redisclient "github.com/vietddude/healer/internal/infra/redis"
)

// Notifier delivers one escalation event to an external channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event *domain.Event) error
}

// LogNotifier writes the event to the structured log only. Used as a
// fallback when a channel is not configured.
type LogNotifier struct {
	Channel string
}

func (n *LogNotifier) Name() string { return "log:" + n.Channel }

func (n *LogNotifier) Notify(ctx context.Context, event *domain.Event) error {
	slog.Info("escalation notification",
		"channel", n.Channel,
		"task_id", event.TaskID,
		"level", event.Level.String(),
		"message", event.Message,
	)
	return nil
}

// OpsChannel publishes events to a Redis channel consumed by the operations
// feed.
type OpsChannel struct {
	client  *redisclient.Client
	channel string
}

// NewOpsChannel creates a Redis-backed operations notifier.
func NewOpsChannel(client *redisclient.Client, channel string) *OpsChannel {
	if channel == "" {
		channel = "ops"
	}
	return &OpsChannel{client: client, channel: channel}
}

func (n *OpsChannel) Name() string { return "ops:" + n.channel }

func (n *OpsChannel) Notify(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return n.client.Publish(ctx, n.channel, payload)
}

// Webhook posts the event as JSON to an external endpoint. It backs both the
// pager (alerting) and the ticket-opening channels.
type Webhook struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier for the named channel.
func NewWebhook(name, url string) *Webhook {
	return &Webhook{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (n *Webhook) Name() string { return n.name }

func (n *Webhook) Notify(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
