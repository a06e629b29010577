package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	applogger "PriceWatch/pkg/logger"
)

// SessionConfig tunes session opening.
type SessionConfig struct {
	// RetryInterval is the pause between item resolution attempts.
	RetryInterval time.Duration
	// MaxAttempts bounds resolution; 0 retries until ctx ends.
	MaxAttempts  int
	PollInterval time.Duration
}

// SessionManager owns one Session per watched item and its poller.
type SessionManager struct {
	cfg       SessionConfig
	resolver  domrepo.ItemResolver
	history   domrepo.HistorySource
	scheduler *PollScheduler
	alerts    *AlertService
	sink      domrepo.CandleSink
	archive   domrepo.Archive
	log       *applogger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	opening  map[string]*openCall
}

type openCall struct {
	done chan struct{}
	s    *Session
	err  error
}

// itemCloser is implemented by sinks that hold per-item connections.
type itemCloser interface {
	CloseItem(itemKey string)
}

func NewSessionManager(
	cfg SessionConfig,
	resolver domrepo.ItemResolver,
	history domrepo.HistorySource,
	scheduler *PollScheduler,
	alerts *AlertService,
	sink domrepo.CandleSink,
	archive domrepo.Archive,
	l *applogger.Logger,
) *SessionManager {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = time.Second
	}
	return &SessionManager{
		cfg:       cfg,
		resolver:  resolver,
		history:   history,
		scheduler: scheduler,
		alerts:    alerts,
		sink:      sink,
		archive:   archive,
		log:       l.With(applogger.String("component", "sessions")),
		sessions:  make(map[string]*Session),
		opening:   make(map[string]*openCall),
	}
}

// Open resolves the item, loads its history and starts polling. If the
// session already exists it is returned with created=false. Concurrent
// opens of one key share a single attempt.
func (m *SessionManager) Open(ctx context.Context, itemKey, displayName string) (s *Session, created bool, err error) {
	m.mu.Lock()
	if s, ok := m.sessions[itemKey]; ok {
		m.mu.Unlock()
		return s, false, nil
	}
	if call, ok := m.opening[itemKey]; ok {
		m.mu.Unlock()
		select {
		case <-call.done:
			return call.s, false, call.err
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
	call := &openCall{done: make(chan struct{})}
	m.opening[itemKey] = call
	m.mu.Unlock()

	call.s, call.err = m.open(ctx, itemKey, displayName)

	m.mu.Lock()
	delete(m.opening, itemKey)
	if call.err == nil {
		m.sessions[itemKey] = call.s
	}
	m.mu.Unlock()
	close(call.done)

	return call.s, call.err == nil, call.err
}

func (m *SessionManager) open(ctx context.Context, itemKey, displayName string) (*Session, error) {
	item, err := m.resolve(ctx, itemKey, displayName)
	if err != nil {
		return nil, err
	}

	s := newSession(item, m.history, m.sink, m.archive, m.log)
	if err := s.Refresh(ctx); err != nil {
		// The chart stays empty until a refresh succeeds; alerts still poll.
		m.log.Warn("history unavailable on open",
			applogger.String("item", itemKey),
			applogger.Error(err),
		)
	}

	if err := m.scheduler.Start(item, m.cfg.PollInterval); err != nil {
		return nil, err
	}
	m.log.Info("session opened",
		applogger.String("item", itemKey),
		applogger.String("item_nameid", item.NameID),
	)
	return s, nil
}

// resolve retries the page adapter on a fixed interval while it reports
// the item as not ready.
func (m *SessionManager) resolve(ctx context.Context, itemKey, displayName string) (models.Item, error) {
	for attempt := 1; ; attempt++ {
		item, err := m.resolver.Resolve(ctx, itemKey, displayName)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, models.ErrAdapterUnavailable) {
			return models.Item{}, err
		}
		if m.cfg.MaxAttempts > 0 && attempt >= m.cfg.MaxAttempts {
			return models.Item{}, fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		m.log.Debug("item not ready, retrying",
			applogger.String("item", itemKey),
			applogger.Int("attempt", attempt),
			applogger.Error(err),
		)

		t := time.NewTimer(m.cfg.RetryInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return models.Item{}, fmt.Errorf("%w: %s: %w", models.ErrAdapterUnavailable, itemKey, ctx.Err())
		case <-t.C:
		}
	}
}

// Get returns the open session of itemKey.
func (m *SessionManager) Get(itemKey string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[itemKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, itemKey)
	}
	return s, nil
}

// Snapshot returns the session view with polling state and alert text.
func (m *SessionManager) Snapshot(ctx context.Context, itemKey string) (SessionSnapshot, error) {
	s, err := m.Get(itemKey)
	if err != nil {
		return SessionSnapshot{}, err
	}
	return m.snapshot(ctx, s), nil
}

func (m *SessionManager) snapshot(ctx context.Context, s *Session) SessionSnapshot {
	snap := s.Snapshot()
	snap.Polling = m.scheduler.Active(snap.Item.Key)
	if m.alerts != nil {
		if list, err := m.alerts.List(ctx, snap.Item.Key); err == nil {
			snap.Alerts = list.Description
		} else {
			m.log.Warn("load alerts for snapshot", applogger.String("item", snap.Item.Key), applogger.Error(err))
		}
	}
	return snap
}

// List returns snapshots of every open session ordered by key.
func (m *SessionManager) List(ctx context.Context) []SessionSnapshot {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	out := make([]SessionSnapshot, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, m.snapshot(ctx, s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.Key < out[j].Item.Key })
	return out
}

// Evaluate runs one poll cycle for an open session right away.
func (m *SessionManager) Evaluate(ctx context.Context, itemKey string) (models.EvaluationResult, error) {
	s, err := m.Get(itemKey)
	if err != nil {
		return models.EvaluationResult{}, err
	}
	return m.scheduler.Tick(ctx, s.Item())
}

// Close stops polling and forgets the session.
func (m *SessionManager) Close(itemKey string) error {
	m.mu.Lock()
	_, ok := m.sessions[itemKey]
	delete(m.sessions, itemKey)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, itemKey)
	}

	m.scheduler.Stop(itemKey)
	if c, ok := m.sink.(itemCloser); ok {
		c.CloseItem(itemKey)
	}
	m.log.Info("session closed", applogger.String("item", itemKey))
	return nil
}

// CloseAll closes every session and waits for running poll ticks.
func (m *SessionManager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.Unlock()

	for _, k := range keys {
		_ = m.Close(k)
	}
	return m.scheduler.StopAll(ctx)
}

// OpenAll opens the startup watchlist in the background. Failures are
// logged; they do not stop the other items.
func (m *SessionManager) OpenAll(ctx context.Context, itemKeys []string) {
	for _, key := range itemKeys {
		go func(key string) {
			if _, _, err := m.Open(ctx, key, ""); err != nil {
				m.log.Error("open watchlist item", applogger.String("item", key), applogger.Error(err))
			}
		}(key)
	}
}
