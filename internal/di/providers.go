package di

import (
	"context"
	"fmt"
	"time"

	"PriceWatch/internal/domain/repository"
	"PriceWatch/internal/handler/api"
	internalrepo "PriceWatch/internal/repository"
	"PriceWatch/internal/service/notify"
	"PriceWatch/internal/service/ratelimit"
	"PriceWatch/internal/service/steam"
	"PriceWatch/internal/service/stream"
	"PriceWatch/internal/usecase"
	"PriceWatch/pkg/cache"
	pkgch "PriceWatch/pkg/clickhouse"
	"PriceWatch/pkg/config"
	xhttp "PriceWatch/pkg/http"
	pkgkafka "PriceWatch/pkg/kafka"
	applogger "PriceWatch/pkg/logger"
	"PriceWatch/pkg/metrics"
	"PriceWatch/pkg/server"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache connects Redis when it backs the alert store and falls back
// to the in-process cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.Service, func(), error) {
	if cfg.Alerts.Backend != "redis" {
		mem := cache.NewMemoryCache()
		return mem, func() { _ = mem.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis connected", applogger.String("host", cfg.Redis.Host), applogger.Int("db", cfg.Redis.DB))
	return rc, func() {
		if err := rc.Close(); err != nil {
			l.Warn("redis close error", applogger.Error(err))
		}
	}, nil
}

// ProvideAlertStore picks the alert persistence backend.
func ProvideAlertStore(cfg *config.Config, c cache.Service, l *applogger.Logger) (repository.AlertStore, func(), error) {
	if cfg.Alerts.Backend != "sqlite" {
		return internalrepo.NewCacheAlertStore(c), func() {}, nil
	}
	s, err := internalrepo.NewSQLiteAlertStore(cfg.Alerts.SQLitePath)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlite alert store: %w", err)
	}
	l.Info("sqlite alert store opened", applogger.String("path", cfg.Alerts.SQLitePath))
	return s, func() {
		if err := s.Close(); err != nil {
			l.Warn("sqlite close error", applogger.Error(err))
		}
	}, nil
}

// ProvideLocker returns the cross-replica evaluation lock. Only Redis is
// shared between replicas; other backends rely on in-process ordering.
func ProvideLocker(cfg *config.Config, c cache.Service) repository.Locker {
	if cfg.Alerts.Backend != "redis" {
		return nil
	}
	return c
}

// ProvideHTTPClient creates the outbound client used for Steam and webhooks.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Steam.Timeout),
		xhttp.WithUserAgent(cfg.Steam.UserAgent),
	)
}

// ProvideSteamClient creates the market client.
func ProvideSteamClient(cfg *config.Config, hc *xhttp.Client, l *applogger.Logger) *steam.Client {
	return steam.NewClient(steam.Config{
		BaseURL:      cfg.Steam.BaseURL,
		AppID:        cfg.Steam.AppID,
		Country:      cfg.Steam.Country,
		Language:     cfg.Steam.Language,
		Currency:     cfg.Steam.Currency,
		PriceBasis:   steam.PriceBasis(cfg.Steam.PriceBasis),
		Cookie:       cfg.Steam.Cookie,
		RateCapacity: cfg.Steam.RateLimit.Capacity,
		RateRefill:   cfg.Steam.RateLimit.RefillPerSec,
	}, hc, ratelimit.New(), l)
}

func ProvideItemResolver(c *steam.Client) repository.ItemResolver { return steam.NewAdapter(c) }

func ProvideHistorySource(c *steam.Client) repository.HistorySource { return c }

func ProvidePriceSource(c *steam.Client) repository.PriceSource { return c }

// ProvideClickHouseClient connects the archive database. It returns nil when
// the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(5, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse connected and schema ready", applogger.String("db", cfg.ClickHouse.Database))

	return client, func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}, nil
}

// ProvideArchive returns the ClickHouse archive or a no-op one.
func ProvideArchive(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) repository.Archive {
	if ch == nil {
		return internalrepo.NoopArchive{}
	}
	return internalrepo.NewClickHouseArchive(ch, cfg.ClickHouse.Database, l)
}

// ProvideKafkaProducer creates the alert event producer, nil when Kafka is off.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	l.Info("kafka producer ready", applogger.Strings("brokers", cfg.Kafka.Brokers), applogger.String("topic", cfg.Kafka.Topic))
	return producer, func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}, nil
}

// ProvideWebhookNotifier creates the outbound webhook sink. It is disabled
// when no URL is configured.
func ProvideWebhookNotifier(cfg *config.Config, hc *xhttp.Client, l *applogger.Logger) *notify.WebhookNotifier {
	return notify.NewWebhookNotifier(cfg.Notify.WebhookURL, cfg.Notify.BotName, hc, notify.DefaultRetry, l)
}

// ProvideNotifier assembles the sinks the evaluator notifies. With Kafka on,
// the webhook is reached through the bus and the dispatcher instead.
func ProvideNotifier(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	webhook *notify.WebhookNotifier,
	m repository.Metrics,
	l *applogger.Logger,
) repository.Notifier {
	var sinks []repository.Notifier
	if cfg.Notify.Log {
		sinks = append(sinks, notify.NewLogNotifier(l))
	}
	switch {
	case producer != nil:
		sinks = append(sinks, internalrepo.NewKafkaNotifier(producer, cfg.Kafka.Topic))
	case webhook.Enabled():
		sinks = append(sinks, webhook)
	}
	return notify.NewMultiNotifier(m, sinks...)
}

func ProvideStreamHub(l *applogger.Logger) *stream.Hub {
	return stream.NewHub(l)
}

func ProvideAlertEvaluator(
	store repository.AlertStore,
	notifier repository.Notifier,
	archive repository.Archive,
	locker repository.Locker,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AlertEvaluator {
	return usecase.NewAlertEvaluator(store, notifier, archive, locker, m, l)
}

func ProvidePollScheduler(
	cfg *config.Config,
	evaluator *usecase.AlertEvaluator,
	prices repository.PriceSource,
	hub *stream.Hub,
	l *applogger.Logger,
) *usecase.PollScheduler {
	return usecase.NewPollScheduler(evaluator, prices, hub, cfg.Poll.Interval, l)
}

func ProvideAlertService(store repository.AlertStore, l *applogger.Logger) *usecase.AlertService {
	return usecase.NewAlertService(store, l)
}

func ProvideSessionManager(
	cfg *config.Config,
	resolver repository.ItemResolver,
	history repository.HistorySource,
	scheduler *usecase.PollScheduler,
	alerts *usecase.AlertService,
	hub *stream.Hub,
	archive repository.Archive,
	l *applogger.Logger,
) *usecase.SessionManager {
	return usecase.NewSessionManager(usecase.SessionConfig{
		RetryInterval: cfg.Adapter.RetryInterval,
		MaxAttempts:   cfg.Adapter.MaxAttempts,
		PollInterval:  cfg.Poll.Interval,
	}, resolver, history, scheduler, alerts, hub, archive, l)
}

// ProvideKafkaConsumer creates the alert event consumer, nil when Kafka is off.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideNotificationDispatcher delivers bus events to the webhook. Nil when
// Kafka is off.
func ProvideNotificationDispatcher(
	cfg *config.Config,
	webhook *notify.WebhookNotifier,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.NotificationDispatcher {
	if !cfg.Kafka.Enabled {
		return nil
	}
	return usecase.NewNotificationDispatcher(cfg.Kafka.Topic, webhook, m, l)
}

func ProvideItemsHandler(
	l *applogger.Logger,
	sessions *usecase.SessionManager,
	alerts *usecase.AlertService,
	hub *stream.Hub,
) *api.ItemsEchoHandler {
	return api.NewItemsEchoHandler(l, sessions, alerts, hub)
}

func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, items *api.ItemsEchoHandler) *xhttp.Server {
	return xhttp.NewServer(l, []xhttp.Handler{items},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionManager,
	consumer *pkgkafka.Consumer,
	dispatcher *usecase.NotificationDispatcher,
) *server.App {
	app := server.New(cfg, l, httpServer, sessions)
	if consumer != nil && dispatcher != nil {
		app.WithConsumer(consumer, dispatcher)
	}
	return app
}
