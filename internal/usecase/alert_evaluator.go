package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	applogger "PriceWatch/pkg/logger"
)

const defaultEvalLockTTL = 30 * time.Second

// AlertEvaluator runs one poll cycle for an item: fetch the live price,
// consume every alert it crosses and notify once per consumed alert.
type AlertEvaluator struct {
	store    domrepo.AlertStore
	notifier domrepo.Notifier
	archive  domrepo.Archive
	locker   domrepo.Locker
	metrics  domrepo.Metrics
	log      *applogger.Logger
	lockTTL  time.Duration
	now      func() time.Time

	// items serialises cycles of one item within the process; locker
	// extends that across replicas.
	items sync.Map
}

// NewAlertEvaluator wires the evaluator. archive and locker may be nil.
func NewAlertEvaluator(
	store domrepo.AlertStore,
	notifier domrepo.Notifier,
	archive domrepo.Archive,
	locker domrepo.Locker,
	metrics domrepo.Metrics,
	l *applogger.Logger,
) *AlertEvaluator {
	if archive == nil {
		archive = noopArchive{}
	}
	return &AlertEvaluator{
		store:    store,
		notifier: notifier,
		archive:  archive,
		locker:   locker,
		metrics:  metrics,
		log:      l.With(applogger.String("component", "evaluator")),
		lockTTL:  defaultEvalLockTTL,
		now:      time.Now,
	}
}

// Evaluate runs one cycle. Only storage failures are returned; a missing
// price or a failed notification is reported in the result.
//
// Triggered alerts are removed before notifications go out, and the
// alert list is re-read after the price fetch so that nothing is awaited
// between the final read and the write.
func (e *AlertEvaluator) Evaluate(ctx context.Context, item models.Item, prices domrepo.PriceSource) (res models.EvaluationResult, err error) {
	start := e.now()
	res = models.EvaluationResult{
		ItemKey:   item.Key,
		Triggered: []models.Alert{},
		Remaining: []models.Alert{},
	}
	// Named results: the stamp must land on the value the caller receives.
	defer func() {
		res.EvaluatedAt = e.now().UTC()
		e.metrics.RecordLatency("evaluate", e.now().Sub(start).Seconds())
	}()

	mu := e.itemMutex(item.Key)
	mu.Lock()
	defer mu.Unlock()

	if e.locker != nil {
		lockKey := "evaluate:" + item.Key
		ok, err := e.locker.TryLock(ctx, lockKey, e.lockTTL)
		switch {
		case err != nil:
			// Lock backend down: evaluate anyway, single replica is the norm.
			e.log.Warn("evaluation lock unavailable", applogger.String("item", item.Key), applogger.Error(err))
		case !ok:
			res.Skipped = models.SkipLocked
			e.metrics.RecordEvaluation(item.Key, string(models.SkipLocked))
			return res, nil
		default:
			defer func() {
				if err := e.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
					e.log.Warn("evaluation unlock failed", applogger.String("item", item.Key), applogger.Error(err))
				}
			}()
		}
	}

	alerts, err := e.store.Load(ctx, item.Key)
	if err != nil {
		e.metrics.RecordError("alert_load")
		return res, err
	}
	if len(alerts) == 0 {
		res.Skipped = models.SkipNoAlerts
		e.metrics.RecordEvaluation(item.Key, string(models.SkipNoAlerts))
		return res, nil
	}

	quote, err := currentQuote(ctx, prices, item)
	if err != nil {
		if !errors.Is(err, models.ErrPriceUnavailable) {
			e.metrics.RecordError("price_fetch")
		}
		e.log.Debug("price unavailable, skipping", applogger.String("item", item.Key), applogger.Error(err))
		res.Skipped = models.SkipPriceUnavailable
		e.metrics.RecordEvaluation(item.Key, string(models.SkipPriceUnavailable))
		return res, nil
	}
	price := quote.Buy
	res.Price = &price
	if quote.Split() {
		sell := quote.Sell
		res.SellPrice = &sell
	}
	f, _ := price.Float64()
	e.metrics.RecordLastPrice(item.Key, f)

	// Fresh read: alerts may have been edited while the price was in flight.
	alerts, err = e.store.Load(ctx, item.Key)
	if err != nil {
		e.metrics.RecordError("alert_load")
		return res, err
	}
	triggered, remaining := models.PartitionQuote(alerts, quote)
	res.Remaining = append(res.Remaining, remaining...)
	if len(triggered) == 0 {
		res.Skipped = models.SkipNone
		if len(alerts) == 0 {
			res.Skipped = models.SkipNoAlerts
		}
		e.metrics.RecordEvaluation(item.Key, "idle")
		return res, nil
	}

	if err := e.store.Save(ctx, item.Key, remaining); err != nil {
		// Nothing was consumed; the next tick retries with the same alerts.
		e.metrics.RecordError("alert_save")
		res.Remaining = append(res.Remaining[:0], alerts...)
		return res, err
	}
	res.Triggered = append(res.Triggered, triggered...)

	at := e.now()
	for _, a := range triggered {
		hit := quote.For(a.Kind)
		n := models.NewNotification(item, a, hit)
		ev := models.NewAlertEvent(item, a, hit, n, at)
		e.metrics.RecordTriggered(item.Key, a.Kind)
		e.log.Info("alert triggered",
			applogger.String("item", item.Key),
			applogger.String("kind", string(a.Kind)),
			applogger.Decimal("threshold", a.Threshold),
			applogger.Decimal("price", hit),
			applogger.String("event_id", ev.ID),
		)

		if err := e.notifier.Notify(ctx, ev); err != nil {
			res.NotifyErrors = append(res.NotifyErrors, err.Error())
			e.log.Warn("notification failed, alert already consumed",
				applogger.String("item", item.Key),
				applogger.String("event_id", ev.ID),
				applogger.Error(err),
			)
		}
		if err := e.archive.StoreEvent(ctx, ev); err != nil {
			e.log.Warn("archive alert event", applogger.String("event_id", ev.ID), applogger.Error(err))
		}
	}
	e.metrics.RecordEvaluation(item.Key, "triggered")
	return res, nil
}

func currentQuote(ctx context.Context, prices domrepo.PriceSource, item models.Item) (models.Quote, error) {
	if qs, ok := prices.(domrepo.QuoteSource); ok {
		return qs.CurrentQuote(ctx, item)
	}
	p, err := prices.CurrentPrice(ctx, item)
	if err != nil {
		return models.Quote{}, err
	}
	return models.FlatQuote(p), nil
}

func (e *AlertEvaluator) itemMutex(key string) *sync.Mutex {
	mu, _ := e.items.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

type noopArchive struct{}

func (noopArchive) StoreSamples(context.Context, string, []models.PriceSample) error { return nil }
func (noopArchive) StoreEvent(context.Context, models.AlertEvent) error              { return nil }
func (noopArchive) Close() error                                                     { return nil }
