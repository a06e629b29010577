package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	pkgkafka "PriceWatch/pkg/kafka"
	applogger "PriceWatch/pkg/logger"
)

// NotificationDispatcher consumes alert events from Kafka and delivers them
// to the outbound notifier (the webhook). Returning an error makes the
// consumer retry and eventually park the message on the DLQ.
type NotificationDispatcher struct {
	topic    string
	notifier domrepo.Notifier
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewNotificationDispatcher(topic string, notifier domrepo.Notifier, metrics domrepo.Metrics, l *applogger.Logger) *NotificationDispatcher {
	return &NotificationDispatcher{
		topic:    topic,
		notifier: notifier,
		metrics:  metrics,
		log:      l.With(applogger.String("component", "dispatcher")),
	}
}

func (d *NotificationDispatcher) Topic() string { return d.topic }

func (d *NotificationDispatcher) Handle(ctx context.Context, b []byte) error {
	var ev models.AlertEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		d.metrics.RecordError("dispatch_unmarshal")
		return fmt.Errorf("decode alert event: %w", err)
	}
	if ev.ItemKey == "" || ev.Title == "" {
		d.metrics.RecordError("dispatch_invalid")
		return fmt.Errorf("alert event %q is missing item or title", ev.ID)
	}
	if !ev.TriggeredAt.IsZero() {
		d.metrics.RecordLatency("dispatch_e2e", time.Since(ev.TriggeredAt).Seconds())
	}

	if err := d.notifier.Notify(ctx, ev); err != nil {
		d.metrics.RecordNotifyError("dispatch")
		d.log.Warn("deliver alert event",
			applogger.String("event_id", ev.ID),
			applogger.String("item", ev.ItemKey),
			applogger.Error(err),
		)
		return err
	}
	d.log.Debug("alert event delivered", applogger.String("event_id", ev.ID))
	return nil
}

var _ pkgkafka.MessageHandler = (*NotificationDispatcher)(nil)
