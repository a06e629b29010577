package notify

import (
	"context"
	"errors"
	"fmt"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	applogger "PriceWatch/pkg/logger"
)

// Named is implemented by notifiers that report a sink name for metrics.
type Named interface {
	Name() string
}

// SinkName returns n's name or "unknown".
func SinkName(n domrepo.Notifier) string {
	if named, ok := n.(Named); ok {
		return named.Name()
	}
	return "unknown"
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	log *applogger.Logger
}

func NewLogNotifier(l *applogger.Logger) *LogNotifier {
	return &LogNotifier{log: l}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, e models.AlertEvent) error {
	n.log.Info(e.Title,
		applogger.String("event_id", e.ID),
		applogger.String("item", e.ItemKey),
		applogger.String("kind", string(e.Kind)),
		applogger.Decimal("price", e.Price),
		applogger.Decimal("threshold", e.Threshold),
		applogger.String("message", e.Message),
	)
	return nil
}

// MultiNotifier delivers to every sink. One failing sink does not stop the
// others; failures are counted per sink and returned joined.
type MultiNotifier struct {
	sinks   []domrepo.Notifier
	metrics domrepo.Metrics
}

func NewMultiNotifier(metrics domrepo.Metrics, sinks ...domrepo.Notifier) *MultiNotifier {
	out := make([]domrepo.Notifier, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &MultiNotifier{sinks: out, metrics: metrics}
}

func (m *MultiNotifier) Name() string { return "multi" }

func (m *MultiNotifier) Notify(ctx context.Context, e models.AlertEvent) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, e); err != nil {
			name := SinkName(s)
			if m.metrics != nil {
				m.metrics.RecordNotifyError(name)
			}
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of sinks.
func (m *MultiNotifier) Len() int { return len(m.sinks) }
