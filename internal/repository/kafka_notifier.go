package repository

import (
	"context"
	"fmt"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
)

// EventProducer is the part of pkg/kafka.Producer the notifier needs.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaNotifier publishes triggered alerts to a topic. Delivery to the user
// happens in the consumer (usecase.NotificationDispatcher). Events are keyed
// by item so one item's events stay ordered.
type KafkaNotifier struct {
	producer EventProducer
	topic    string
}

func NewKafkaNotifier(producer EventProducer, topic string) domrepo.Notifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, e models.AlertEvent) error {
	if err := n.producer.Publish(ctx, n.topic, []byte(e.ItemKey), e); err != nil {
		return fmt.Errorf("publish alert event: %w", err)
	}
	return nil
}

// Name identifies the sink in logs and metrics.
func (n *KafkaNotifier) Name() string { return "kafka" }
