package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// WebhookDispatcher posts notifications to configured webhook URLs
// (Discord-style embeds, which most chat webhooks accept). It is an
// optional fan-out target next to the queue dispatcher.
type WebhookDispatcher struct {
	httpClient  *http.Client
	webhookURLs []string
	enabled     bool
	logger      zerolog.Logger
}

// NewWebhookDispatcher creates a webhook dispatcher. With no URLs it is
// disabled and every dispatch is a no-op.
func NewWebhookDispatcher(webhookURLs []string, logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		webhookURLs: webhookURLs,
		enabled:     len(webhookURLs) > 0,
		logger:      logger.With().Str("component", "webhook-dispatcher").Logger(),
	}
}

// Dispatch posts the notification to every configured webhook. One
// failing webhook does not block the others.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, n *Notification) error {
	if !d.enabled {
		return nil
	}

	var lastErr error
	for _, webhookURL := range d.webhookURLs {
		if err := d.send(ctx, webhookURL, n); err != nil {
			lastErr = err
			d.logger.Error().
				Err(err).
				Str("webhook", webhookURL).
				Str("symbol", n.Symbol).
				Str("rule_id", n.RuleID).
				Msg("failed to send webhook")
			continue
		}

		d.logger.Debug().
			Str("webhook", webhookURL).
			Str("symbol", n.Symbol).
			Str("rule_id", n.RuleID).
			Msg("webhook sent")
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrDispatchFailed, lastErr)
	}
	return nil
}

func (d *WebhookDispatcher) send(ctx context.Context, webhookURL string, n *Notification) error {
	payload, err := json.Marshal(formatPayload(n))
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func formatPayload(n *Notification) map[string]interface{} {
	title := fmt.Sprintf("%s %s", kindEmoji(n.Kind), n.Symbol)

	fields := []map[string]interface{}{
		{"name": "Price", "value": fmt.Sprintf("$%.6f", n.CurrentPrice), "inline": true},
		{"name": "Threshold", "value": fmt.Sprintf("%.6f", n.Threshold), "inline": true},
		{"name": "Change", "value": fmt.Sprintf("%.2f%%", n.ChangePercent), "inline": true},
		{"name": "Time", "value": n.TriggeredAt.UTC().Format("15:04:05 UTC"), "inline": true},
	}

	return map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":     title,
				"color":     kindColor(n.Kind),
				"fields":    fields,
				"timestamp": n.TriggeredAt.Format(time.RFC3339),
				"footer": map[string]interface{}{
					"text": "Price Alert",
				},
			},
		},
	}
}

func kindColor(kind RuleKind) int {
	switch kind {
	case KindPriceAbove, KindPriceIncrease:
		return 0x00FF00 // green for upside
	case KindPriceBelow, KindPriceDecrease:
		return 0xFF0000 // red for downside
	default:
		return 0x0099FF
	}
}

func kindEmoji(kind RuleKind) string {
	switch kind {
	case KindPriceAbove:
		return "🚨 Price Above"
	case KindPriceBelow:
		return "🚨 Price Below"
	case KindPriceIncrease:
		return "📈 Price Increase"
	case KindPriceDecrease:
		return "📉 Price Decrease"
	case KindHighVolatility:
		return "⚡ High Volatility"
	case KindTrendChange:
		return "🔄 Trend Change"
	default:
		return "🔔"
	}
}
