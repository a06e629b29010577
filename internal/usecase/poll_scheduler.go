package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	applogger "PriceWatch/pkg/logger"

	"github.com/robfig/cron/v3"
)

const (
	DefaultPollInterval = 15 * time.Second
	MinPollInterval     = time.Second
)

// PollScheduler runs the alert evaluator for each watched item on a fixed
// interval. Ticks of one item never overlap; a tick that comes due while the
// previous one is still running is skipped.
type PollScheduler struct {
	cron      *cron.Cron
	cronLog   cron.Logger
	evaluator *AlertEvaluator
	prices    domrepo.PriceSource
	sink      domrepo.CandleSink
	log       *applogger.Logger

	defaultInterval time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
	wg      sync.WaitGroup
	stopped bool
}

// NewPollScheduler creates and starts the scheduler. sink may be nil.
func NewPollScheduler(
	evaluator *AlertEvaluator,
	prices domrepo.PriceSource,
	sink domrepo.CandleSink,
	defaultInterval time.Duration,
	l *applogger.Logger,
) *PollScheduler {
	if defaultInterval <= 0 {
		defaultInterval = DefaultPollInterval
	}
	cl := applogger.CronLogger(l)
	s := &PollScheduler{
		cron:            cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		cronLog:         cl,
		evaluator:       evaluator,
		prices:          prices,
		sink:            sink,
		log:             l.With(applogger.String("component", "poller")),
		defaultInterval: defaultInterval,
		entries:         make(map[string]cron.EntryID),
	}
	s.cron.Start()
	return s
}

// Start polls item every interval (0 means the default), evaluating once
// right away. Starting an item that is already polled replaces its timer.
func (s *PollScheduler) Start(item models.Item, interval time.Duration) error {
	if interval <= 0 {
		interval = s.defaultInterval
	}
	if interval < MinPollInterval {
		return fmt.Errorf("poll interval %s is below the minimum %s", interval, MinPollInterval)
	}

	job := cron.NewChain(cron.SkipIfStillRunning(s.cronLog)).Then(cron.FuncJob(func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		s.runTick(item)
	}))

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return errors.New("poll scheduler is stopped")
	}
	if old, ok := s.entries[item.Key]; ok {
		s.cron.Remove(old)
	}
	s.entries[item.Key] = s.cron.Schedule(cron.Every(interval), job)
	s.mu.Unlock()

	s.log.Info("polling started",
		applogger.String("item", item.Key),
		applogger.Duration("interval_ms", interval),
	)
	go job.Run()
	return nil
}

// Stop removes the item's timer. A tick already running finishes.
func (s *PollScheduler) Stop(itemKey string) bool {
	s.mu.Lock()
	id, ok := s.entries[itemKey]
	if ok {
		s.cron.Remove(id)
		delete(s.entries, itemKey)
	}
	s.mu.Unlock()
	if ok {
		s.log.Info("polling stopped", applogger.String("item", itemKey))
	}
	return ok
}

// Active reports whether itemKey is being polled.
func (s *PollScheduler) Active(itemKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[itemKey]
	return ok
}

// StopAll removes every timer and waits for running ticks until ctx ends.
func (s *PollScheduler) StopAll(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for key, id := range s.entries {
		s.cron.Remove(id)
		delete(s.entries, key)
	}
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for poll ticks: %w", ctx.Err())
	}
}

// Tick evaluates item once and publishes the outcome.
func (s *PollScheduler) Tick(ctx context.Context, item models.Item) (models.EvaluationResult, error) {
	res, err := s.evaluator.Evaluate(ctx, item, s.prices)
	if s.sink != nil && err == nil {
		s.sink.PublishEvaluation(item.Key, res)
	}
	return res, err
}

func (s *PollScheduler) runTick(item models.Item) {
	// Not tied to Stop: an in-flight tick completes its read-modify-write.
	// The fetch is bounded by the market client's request timeout, not here.
	res, err := s.Tick(context.Background(), item)
	if err != nil {
		s.log.Error("poll tick failed, retrying next tick",
			applogger.String("item", item.Key),
			applogger.Error(err),
		)
		return
	}
	if len(res.Triggered) > 0 {
		s.log.Debug("poll tick triggered alerts",
			applogger.String("item", item.Key),
			applogger.Int("triggered", len(res.Triggered)),
		)
	}
}
