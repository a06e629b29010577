package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	"PriceWatch/internal/repository"
	"PriceWatch/pkg/cache"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newMemStore(t *testing.T) domrepo.AlertStore {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	return repository.NewCacheAlertStore(mem)
}

// hookStore wraps a store with failure injection and a hook on Load.
type hookStore struct {
	domrepo.AlertStore
	mu      sync.Mutex
	loads   int
	saves   int
	loadErr error
	saveErr error
	onLoad  func(n int)
}

func (s *hookStore) Load(ctx context.Context, key string) ([]models.Alert, error) {
	s.mu.Lock()
	s.loads++
	n, err, hook := s.loads, s.loadErr, s.onLoad
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook(n)
	}
	return s.AlertStore.Load(ctx, key)
}

func (s *hookStore) Save(ctx context.Context, key string, alerts []models.Alert) error {
	s.mu.Lock()
	s.saves++
	err := s.saveErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.AlertStore.Save(ctx, key, alerts)
}

type fakePrices struct {
	mu    sync.Mutex
	calls int
	price decimal.Decimal
	err   error
	// during runs inside the fetch, after the first alert read.
	during func()
}

func (p *fakePrices) CurrentPrice(context.Context, models.Item) (decimal.Decimal, error) {
	p.mu.Lock()
	p.calls++
	during := p.during
	p.mu.Unlock()
	if during != nil {
		during()
	}
	return p.price, p.err
}

func (p *fakePrices) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []models.AlertEvent
	err    error
}

func (n *fakeNotifier) Notify(_ context.Context, e models.AlertEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return n.err
}

func (n *fakeNotifier) Events() []models.AlertEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.AlertEvent(nil), n.events...)
}

type fakeLocker struct {
	held bool
	err  error
}

func (l *fakeLocker) TryLock(context.Context, string, time.Duration) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return !l.held, nil
}

func (l *fakeLocker) Unlock(context.Context, string) error { return nil }

type fakeHistory struct {
	samples []models.PriceSample
	err     error
}

func (h *fakeHistory) History(context.Context, models.Item) ([]models.PriceSample, error) {
	return h.samples, h.err
}

type fakeResolver struct {
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (r *fakeResolver) Resolve(_ context.Context, key, name string) (models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return models.Item{}, r.err
	}
	if r.calls <= r.failures {
		return models.Item{}, models.ErrAdapterUnavailable
	}
	return models.Item{Key: key, DisplayName: name, NameID: "42", Currency: 1}, nil
}

type recordingSink struct {
	mu          sync.Mutex
	candles     int
	ranges      int
	evaluations int
}

func (s *recordingSink) PublishCandles(string, models.Timeframe, []models.Candle) {
	s.mu.Lock()
	s.candles++
	s.mu.Unlock()
}

func (s *recordingSink) PublishRange(string, models.ZoomWindow, models.Range) {
	s.mu.Lock()
	s.ranges++
	s.mu.Unlock()
}

func (s *recordingSink) PublishEvaluation(string, models.EvaluationResult) {
	s.mu.Lock()
	s.evaluations++
	s.mu.Unlock()
}

func (s *recordingSink) Evaluations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluations
}

var errBoom = errors.New("boom")
