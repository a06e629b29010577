package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"PriceWatch/internal/domain/models"
	applogger "PriceWatch/pkg/logger"
	"PriceWatch/pkg/metrics"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() models.AlertEvent {
	item := models.Item{Key: "AK-47 | Redline (Field-Tested)"}
	a := models.Alert{Kind: models.AlertBuy, Threshold: decimal.RequireFromString("5")}
	price := decimal.RequireFromString("4.5")
	return models.NewAlertEvent(item, a, price, models.NewNotification(item, a, price), time.Now())
}

var fastRetry = RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestWebhookDisabled(t *testing.T) {
	w := NewWebhookNotifier("", "", nil, fastRetry, nil)
	assert.False(t, w.Enabled())
	assert.NoError(t, w.Notify(context.Background(), sampleEvent()))
}

func TestWebhookPayloads(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	t.Run("slack", func(t *testing.T) {
		w := NewWebhookNotifier(srv.URL, "Bot", nil, fastRetry, applogger.Nop())
		require.NoError(t, w.Notify(context.Background(), sampleEvent()))
		assert.Equal(t, "Bot", received["username"])
		assert.Contains(t, received["text"], "Price Alert: BUY!")
		assert.Contains(t, received["text"], "Price hit 4.5! (buy threshold 5)")
	})

	t.Run("discord", func(t *testing.T) {
		w := NewWebhookNotifier(srv.URL+"/discord/webhook", "Bot", nil, fastRetry, applogger.Nop())
		require.NoError(t, w.Notify(context.Background(), sampleEvent()))
		assert.Contains(t, received["content"], "Price Alert: BUY!")
	})
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "", nil, fastRetry, applogger.Nop())
	require.NoError(t, w.Notify(context.Background(), sampleEvent()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(srv.URL, "", nil, fastRetry, applogger.Nop())
	assert.Error(t, w.Notify(context.Background(), sampleEvent()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

type stubNotifier struct {
	name  string
	err   error
	calls int
}

func (s *stubNotifier) Name() string { return s.name }
func (s *stubNotifier) Notify(context.Context, models.AlertEvent) error {
	s.calls++
	return s.err
}

func TestMultiNotifierDeliversToAll(t *testing.T) {
	bad := &stubNotifier{name: "kafka", err: errors.New("broker down")}
	good := &stubNotifier{name: "log"}
	m := NewMultiNotifier(metrics.Nop{}, bad, nil, good)

	err := m.Notify(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka: broker down")
	assert.Equal(t, 1, bad.calls)
	assert.Equal(t, 1, good.calls)
	assert.Equal(t, 2, m.Len())
}

func TestLogNotifier(t *testing.T) {
	n := NewLogNotifier(applogger.Nop())
	assert.NoError(t, n.Notify(context.Background(), sampleEvent()))
	assert.Equal(t, "log", SinkName(n))
}
