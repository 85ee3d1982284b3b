// Package slack posts newly raised vessel alerts to Slack via incoming
// webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/vesselwatch/internal/alerting"
)

const (
	maxMessageLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier sends alerts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

// Notify posts a single alert to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, a alerting.Alert) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(a))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(a alerting.Alert) map[string]any {
	return map[string]any{
		// fallback for notifications that don't render blocks
		"text": truncate(a.Message, maxMessageLen),
		"blocks": []map[string]any{
			headerBlock(a),
			{"type": "divider"},
			messageBlock(a),
			fieldsBlock(a),
			contextBlock(a),
		},
	}
}

func headerBlock(a alerting.Alert) map[string]any {
	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": fmt.Sprintf("%s %s: %s", typeEmoji(a.Type), typeTitle(a.Type), a.VesselID),
		},
	}
}

func messageBlock(a alerting.Alert) map[string]any {
	text := truncate(a.Message, maxMessageLen)
	if text == "" {
		text = "_No details._"
	}
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": text,
		},
	}
}

func fieldsBlock(a alerting.Alert) map[string]any {
	return map[string]any{
		"type": "section",
		"fields": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Vessel:* %s", a.VesselID),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Type:* %s", a.Type),
			},
		},
	}
}

func contextBlock(a alerting.Alert) map[string]any {
	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("vesselwatch • %s • %s", a.Type, a.EmittedAt.UTC().Format("2006-01-02 15:04 UTC")),
			},
		},
	}
}

func typeEmoji(t alerting.Type) string {
	switch t {
	case alerting.TypeBoundary:
		return "\U0001f534" // red circle
	case alerting.TypePiracy:
		return "\U0001f7e0" // orange circle
	case alerting.TypeSpeed:
		return "\U0001f7e1" // yellow circle
	default:
		return "⚪" // white circle
	}
}

func typeTitle(t alerting.Type) string {
	switch t {
	case alerting.TypeBoundary:
		return "Boundary Violation"
	case alerting.TypePiracy:
		return "Piracy Risk"
	case alerting.TypeSpeed:
		return "High Speed"
	default:
		return "Vessel Alert"
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
