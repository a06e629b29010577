package repository

import (
	"context"
	"time"

	"PriceWatch/internal/domain/models"

	"github.com/shopspring/decimal"
)

// AlertStore persists the alert list of each item under "alerts:<itemKey>".
// Implementations do not retry; errors wrap models.ErrStorageFailure.
type AlertStore interface {
	Load(ctx context.Context, itemKey string) ([]models.Alert, error)
	Save(ctx context.Context, itemKey string, alerts []models.Alert) error
	Clear(ctx context.Context, itemKey string) error
}

// PriceSource returns the current representative price of an item.
// A transient miss is reported as models.ErrPriceUnavailable.
type PriceSource interface {
	CurrentPrice(ctx context.Context, item models.Item) (decimal.Decimal, error)
}

// PriceSourceFunc adapts a function to PriceSource.
type PriceSourceFunc func(ctx context.Context, item models.Item) (decimal.Decimal, error)

func (f PriceSourceFunc) CurrentPrice(ctx context.Context, item models.Item) (decimal.Decimal, error) {
	return f(ctx, item)
}

// QuoteSource is an optional PriceSource capability: it prices buy and sell
// alerts separately. The evaluator prefers it when present.
type QuoteSource interface {
	CurrentQuote(ctx context.Context, item models.Item) (models.Quote, error)
}

// HistorySource returns the raw price history of an item.
type HistorySource interface {
	History(ctx context.Context, item models.Item) ([]models.PriceSample, error)
}

// ItemResolver is the page adapter: it turns an item key into a fully
// identified Item or fails with models.ErrAdapterUnavailable.
type ItemResolver interface {
	Resolve(ctx context.Context, itemKey, displayName string) (models.Item, error)
}

// Notifier delivers a (title, message) pair to the user.
type Notifier interface {
	Notify(ctx context.Context, event models.AlertEvent) error
}

// CandleSink receives chart updates for rendering.
type CandleSink interface {
	PublishCandles(itemKey string, tf models.Timeframe, candles []models.Candle)
	PublishRange(itemKey string, zoom models.ZoomWindow, r models.Range)
	PublishEvaluation(itemKey string, res models.EvaluationResult)
}

// Archive stores price samples and trigger events for offline analysis.
type Archive interface {
	StoreSamples(ctx context.Context, itemKey string, samples []models.PriceSample) error
	StoreEvent(ctx context.Context, event models.AlertEvent) error
	Close() error
}

// Locker serialises evaluation cycles of one item across replicas.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordEvaluation(itemKey string, outcome string)
	RecordTriggered(itemKey string, kind models.AlertKind)
	RecordNotifyError(sink string)
	RecordLastPrice(itemKey string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
