package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	"PriceWatch/internal/domain/service"
	applogger "PriceWatch/pkg/logger"
)

// Session is the chart state of one watched item: its raw history, the
// candles of every timeframe and the selected timeframe and zoom.
type Session struct {
	mu          sync.RWMutex
	item        models.Item
	history     []models.PriceSample
	candles     map[models.Timeframe][]models.Candle
	timeframe   models.Timeframe
	zoom        models.ZoomWindow
	openedAt    time.Time
	refreshedAt time.Time
	historyErr  string

	source  domrepo.HistorySource
	sink    domrepo.CandleSink
	archive domrepo.Archive
	log     *applogger.Logger
}

// SessionSnapshot is the read-only view returned by the API.
type SessionSnapshot struct {
	Item         models.Item              `json:"item"`
	Timeframe    models.Timeframe         `json:"timeframe"`
	Zoom         models.ZoomWindow        `json:"zoom"`
	Samples      int                      `json:"samples"`
	CandleCounts map[models.Timeframe]int `json:"candle_counts"`
	Earliest     *time.Time               `json:"earliest,omitempty"`
	Latest       *time.Time               `json:"latest,omitempty"`
	OpenedAt     time.Time                `json:"opened_at"`
	RefreshedAt  time.Time                `json:"refreshed_at,omitempty"`
	HistoryError string                   `json:"history_error,omitempty"`
	Polling      bool                     `json:"polling"`
	Alerts       string                   `json:"alerts"`
}

func newSession(item models.Item, source domrepo.HistorySource, sink domrepo.CandleSink, archive domrepo.Archive, l *applogger.Logger) *Session {
	if sink == nil {
		sink = nopSink{}
	}
	if archive == nil {
		archive = noopArchive{}
	}
	return &Session{
		item:      item,
		candles:   make(map[models.Timeframe][]models.Candle, len(models.Timeframes)),
		timeframe: models.DefaultTimeframe(),
		zoom:      models.DefaultZoom(),
		openedAt:  time.Now().UTC(),
		source:    source,
		sink:      sink,
		archive:   archive,
		log:       l.With(applogger.String("item", item.Key)),
	}
}

// Item returns the resolved item.
func (s *Session) Item() models.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.item
}

// Refresh re-fetches the history and rebuilds the candles of every
// timeframe. On failure the previous candles stay in place.
func (s *Session) Refresh(ctx context.Context) error {
	item := s.Item()
	samples, err := s.source.History(ctx, item)
	if err != nil {
		s.mu.Lock()
		s.historyErr = err.Error()
		s.mu.Unlock()
		return err
	}
	candles := service.AggregateAll(samples)

	s.mu.Lock()
	s.history = samples
	s.candles = candles
	s.refreshedAt = time.Now().UTC()
	s.historyErr = ""
	tf := s.timeframe
	current := candles[tf]
	s.mu.Unlock()

	s.log.Info("history loaded",
		applogger.Int("samples", len(samples)),
		applogger.Int("candles", len(current)),
	)
	s.sink.PublishCandles(item.Key, tf, current)

	if err := s.archive.StoreSamples(ctx, item.Key, samples); err != nil {
		s.log.Warn("archive samples", applogger.Error(err))
	}
	return nil
}

// SetTimeframe switches the chart resolution and returns its candles.
func (s *Session) SetTimeframe(tf models.Timeframe) ([]models.Candle, error) {
	if !tf.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimeframe, tf)
	}
	s.mu.Lock()
	s.timeframe = tf
	out := cloneCandles(s.candles[tf])
	s.mu.Unlock()

	s.sink.PublishCandles(s.item.Key, tf, out)
	return out, nil
}

// SetZoom selects the visible window relative to the newest candle of the
// current timeframe. With no candles every window fits all.
func (s *Session) SetZoom(w models.ZoomWindow) (models.Range, error) {
	if !w.IsValid() {
		return models.Range{}, fmt.Errorf("%w: %q", models.ErrInvalidZoomWindow, w)
	}
	s.mu.Lock()
	s.zoom = w
	r, err := s.rangeLocked()
	s.mu.Unlock()
	if err != nil {
		return models.Range{}, err
	}

	s.sink.PublishRange(s.item.Key, w, r)
	return r, nil
}

// Candles returns the current timeframe and its candles.
func (s *Session) Candles() (models.Timeframe, []models.Candle) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timeframe, cloneCandles(s.candles[s.timeframe])
}

// Range returns the current zoom and its visible range.
func (s *Session) Range() (models.ZoomWindow, models.Range, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.rangeLocked()
	return s.zoom, r, err
}

func (s *Session) rangeLocked() (models.Range, error) {
	cs := s.candles[s.timeframe]
	if len(cs) == 0 {
		return models.FitAllRange(), nil
	}
	return service.ComputeRange(s.zoom, cs[len(cs)-1].Bucket, cs[0].Bucket)
}

// Snapshot summarises the session. Polling and Alerts are filled in by the
// manager.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SessionSnapshot{
		Item:         s.item,
		Timeframe:    s.timeframe,
		Zoom:         s.zoom,
		Samples:      len(s.history),
		CandleCounts: make(map[models.Timeframe]int, len(s.candles)),
		OpenedAt:     s.openedAt,
		RefreshedAt:  s.refreshedAt,
		HistoryError: s.historyErr,
	}
	for tf, cs := range s.candles {
		snap.CandleCounts[tf] = len(cs)
	}
	if daily := s.candles[models.TimeframeDay]; len(daily) > 0 {
		first, last := daily[0].Bucket, daily[len(daily)-1].Bucket
		snap.Earliest, snap.Latest = &first, &last
	}
	return snap
}

func cloneCandles(cs []models.Candle) []models.Candle {
	out := make([]models.Candle, len(cs))
	copy(out, cs)
	return out
}

type nopSink struct{}

func (nopSink) PublishCandles(string, models.Timeframe, []models.Candle) {}
func (nopSink) PublishRange(string, models.ZoomWindow, models.Range)     {}
func (nopSink) PublishEvaluation(string, models.EvaluationResult)        {}
