package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"PriceWatch/internal/domain/models"
	applogger "PriceWatch/pkg/logger"
	"PriceWatch/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(ts string, price string) models.PriceSample {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return models.PriceSample{Time: t, Price: dec(price), Volume: 1}
}

type managerDeps struct {
	resolver *fakeResolver
	history  *fakeHistory
	sink     *recordingSink
	prices   *fakePrices
}

func newTestManager(t *testing.T, cfg SessionConfig, deps managerDeps) *SessionManager {
	t.Helper()
	store := newMemStore(t)
	if deps.sink == nil {
		deps.sink = &recordingSink{}
	}
	if deps.prices == nil {
		deps.prices = &fakePrices{price: dec("1")}
	}
	ev := NewAlertEvaluator(store, &fakeNotifier{}, nil, nil, metrics.Nop{}, applogger.Nop())
	sched := NewPollScheduler(ev, deps.prices, deps.sink, time.Hour, applogger.Nop())
	m := NewSessionManager(cfg, deps.resolver, deps.history, sched, NewAlertService(store, applogger.Nop()), deps.sink, nil, applogger.Nop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.CloseAll(ctx)
	})
	return m
}

func threeDays() []models.PriceSample {
	return []models.PriceSample{
		sample("2024-03-01T10:00:00Z", "2"),
		sample("2024-03-01T11:00:00Z", "3"),
		sample("2024-03-02T10:00:00Z", "1"),
		sample("2024-04-15T10:00:00Z", "4"),
	}
}

func TestSessionManagerOpen(t *testing.T) {
	deps := managerDeps{resolver: &fakeResolver{}, history: &fakeHistory{samples: threeDays()}, sink: &recordingSink{}}
	m := newTestManager(t, SessionConfig{}, deps)

	s, created, err := m.Open(context.Background(), "knife", "Knife")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := m.Open(context.Background(), "knife", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, s, again)

	tf, candles := s.Candles()
	assert.Equal(t, models.TimeframeDay, tf)
	require.Len(t, candles, 3)
	assert.True(t, candles[0].Open.Equal(dec("2")))
	assert.True(t, candles[0].Close.Equal(dec("3")))

	snap, err := m.Snapshot(context.Background(), "knife")
	require.NoError(t, err)
	assert.True(t, snap.Polling)
	assert.Equal(t, 4, snap.Samples)
	assert.Equal(t, 2, snap.CandleCounts[models.TimeframeMonth])
	require.NotNil(t, snap.Latest)
	assert.Equal(t, "2024-04-15", snap.Latest.Format("2006-01-02"))
	assert.Empty(t, snap.Alerts)
}

func TestSessionManagerRetriesResolution(t *testing.T) {
	resolver := &fakeResolver{failures: 2}
	m := newTestManager(t, SessionConfig{RetryInterval: time.Millisecond}, managerDeps{resolver: resolver, history: &fakeHistory{}})

	_, _, err := m.Open(context.Background(), "case", "")
	require.NoError(t, err)
	assert.Equal(t, 3, resolver.calls)
}

func TestSessionManagerMaxAttempts(t *testing.T) {
	resolver := &fakeResolver{failures: 10}
	m := newTestManager(t, SessionConfig{RetryInterval: time.Millisecond, MaxAttempts: 3}, managerDeps{resolver: resolver, history: &fakeHistory{}})

	_, _, err := m.Open(context.Background(), "case", "")
	assert.ErrorIs(t, err, models.ErrAdapterUnavailable)
	assert.Equal(t, 3, resolver.calls)

	_, err = m.Get("case")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionManagerResolutionStopsOnCancel(t *testing.T) {
	resolver := &fakeResolver{failures: 1 << 30}
	m := newTestManager(t, SessionConfig{RetryInterval: 5 * time.Millisecond}, managerDeps{resolver: resolver, history: &fakeHistory{}})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err := m.Open(ctx, "case", "")
	assert.ErrorIs(t, err, models.ErrAdapterUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionManagerHistoryFailureStillOpens(t *testing.T) {
	history := &fakeHistory{err: models.ErrHistoryUnavailable}
	m := newTestManager(t, SessionConfig{}, managerDeps{resolver: &fakeResolver{}, history: history})

	s, _, err := m.Open(context.Background(), "sticker", "")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Contains(t, snap.HistoryError, "history")
	_, r, err := s.Range()
	require.NoError(t, err)
	assert.True(t, r.FitAll)

	history.err, history.samples = nil, threeDays()
	require.NoError(t, s.Refresh(context.Background()))
	assert.Empty(t, s.Snapshot().HistoryError)
}

func TestSessionManagerConcurrentOpenShared(t *testing.T) {
	resolver := &fakeResolver{}
	m := newTestManager(t, SessionConfig{}, managerDeps{resolver: resolver, history: &fakeHistory{}})

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, err := m.Open(context.Background(), "gloves", "")
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, createdCount)
	assert.Equal(t, 1, resolver.calls)
}

func TestSessionTimeframeAndZoom(t *testing.T) {
	sink := &recordingSink{}
	m := newTestManager(t, SessionConfig{}, managerDeps{resolver: &fakeResolver{}, history: &fakeHistory{samples: threeDays()}, sink: sink})
	s, _, err := m.Open(context.Background(), "knife", "")
	require.NoError(t, err)

	candles, err := s.SetTimeframe(models.TimeframeMonth)
	require.NoError(t, err)
	assert.Len(t, candles, 2)

	_, err = s.SetTimeframe("5m")
	assert.ErrorIs(t, err, models.ErrInvalidTimeframe)

	r, err := s.SetZoom(models.ZoomOneMonth)
	require.NoError(t, err)
	require.False(t, r.FitAll)
	assert.Equal(t, "2024-03-01", r.From.Format("2006-01-02"))
	assert.Equal(t, "2024-04-01", r.To.Format("2006-01-02"))

	_, err = s.SetZoom("2y")
	assert.ErrorIs(t, err, models.ErrInvalidZoomWindow)
}

func TestSessionManagerCloseAndEvaluate(t *testing.T) {
	m := newTestManager(t, SessionConfig{}, managerDeps{resolver: &fakeResolver{}, history: &fakeHistory{}})
	_, _, err := m.Open(context.Background(), "a", "")
	require.NoError(t, err)
	_, _, err = m.Open(context.Background(), "b", "")
	require.NoError(t, err)

	list := m.List(context.Background())
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Item.Key)

	res, err := m.Evaluate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, models.SkipNoAlerts, res.Skipped)

	require.NoError(t, m.Close("a"))
	assert.ErrorIs(t, m.Close("a"), models.ErrSessionNotFound)
	_, err = m.Evaluate(context.Background(), "a")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
	assert.Len(t, m.List(context.Background()), 1)
}
