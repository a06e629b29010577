package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PriceWatch/internal/domain/models"
	xhttp "PriceWatch/pkg/http"
	applogger "PriceWatch/pkg/logger"
)

// RetryConfig bounds webhook delivery attempts.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetry = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    5 * time.Second,
}

// WebhookNotifier posts notifications to a Discord or Slack incoming
// webhook. The payload shape is picked from the URL.
type WebhookNotifier struct {
	url     string
	botName string
	client  *xhttp.Client
	retry   RetryConfig
	log     *applogger.Logger
}

func NewWebhookNotifier(url, botName string, client *xhttp.Client, retry RetryConfig, l *applogger.Logger) *WebhookNotifier {
	if botName == "" {
		botName = "PriceWatch"
	}
	if client == nil {
		client = xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	}
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetry
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &WebhookNotifier{url: url, botName: botName, client: client, retry: retry, log: l}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// Enabled reports whether a URL is configured.
func (w *WebhookNotifier) Enabled() bool { return w.url != "" }

func (w *WebhookNotifier) Notify(ctx context.Context, e models.AlertEvent) error {
	if !w.Enabled() {
		return nil
	}
	payload := w.payload(fmt.Sprintf("**%s**\n%s", e.Title, e.Message))

	var lastErr error
	delay := w.retry.BaseDelay
	for attempt := 1; attempt <= w.retry.MaxAttempts; attempt++ {
		lastErr = w.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    w.url,
			Body:   payload,
		}, nil)
		if lastErr == nil {
			return nil
		}
		var se *xhttp.StatusError
		if errors.As(lastErr, &se) && !se.Retryable() {
			break
		}
		if attempt == w.retry.MaxAttempts {
			break
		}
		w.log.Warn("webhook delivery failed, retrying",
			applogger.Int("attempt", attempt),
			applogger.Duration("delay_ms", delay),
			applogger.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > w.retry.MaxDelay {
			delay = w.retry.MaxDelay
		}
	}
	return fmt.Errorf("webhook delivery: %w", lastErr)
}

func (w *WebhookNotifier) payload(msg string) map[string]string {
	if strings.Contains(w.url, "discord") {
		return map[string]string{
			"content":  msg,
			"username": w.botName,
		}
	}
	return map[string]string{
		"text":     msg,
		"username": w.botName,
	}
}
