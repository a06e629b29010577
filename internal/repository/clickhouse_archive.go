package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	pkgch "PriceWatch/pkg/clickhouse"
	applogger "PriceWatch/pkg/logger"
)

// ArchiveSchema returns the idempotent DDL for the archive tables.
func ArchiveSchema(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.price_samples (
			item_key String,
			ts DateTime,
			price Decimal(18, 4),
			volume Int64
		) ENGINE = ReplacingMergeTree ORDER BY (item_key, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.alert_events (
			id String,
			item_key String,
			kind LowCardinality(String),
			threshold Decimal(18, 4),
			price Decimal(18, 4),
			title String,
			message String,
			triggered_at DateTime
		) ENGINE = MergeTree ORDER BY (item_key, triggered_at)`, database),
	}
}

// ClickHouseArchive writes fetched history and trigger events to ClickHouse.
// Re-archiving the same history is harmless: price_samples deduplicates on
// (item_key, ts).
type ClickHouseArchive struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

func NewClickHouseArchive(ch *pkgch.Client, database string, l *applogger.Logger) domrepo.Archive {
	return &ClickHouseArchive{db: ch.DB(), database: database, l: l}
}

func (a *ClickHouseArchive) StoreSamples(ctx context.Context, itemKey string, samples []models.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}
	start := time.Now()

	const chunkSize = 2000
	for from := 0; from < len(samples); from += chunkSize {
		to := from + chunkSize
		if to > len(samples) {
			to = len(samples)
		}

		values := make([]string, 0, to-from)
		args := make([]interface{}, 0, (to-from)*4)
		for _, s := range samples[from:to] {
			values = append(values, "(?, ?, ?, ?)")
			args = append(args, itemKey, s.Time.UTC(), s.Price, s.Volume)
		}
		q := fmt.Sprintf("INSERT INTO %s.price_samples (item_key, ts, price, volume) VALUES %s",
			a.database, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("archive samples: %w", err)
		}
	}

	a.l.Debug("clickhouse store_samples ok",
		applogger.String("item", itemKey),
		applogger.Int("rows", len(samples)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

func (a *ClickHouseArchive) StoreEvent(ctx context.Context, e models.AlertEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s.alert_events
		(id, item_key, kind, threshold, price, title, message, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, a.database)
	_, err := a.db.ExecContext(ctx, q,
		e.ID, e.ItemKey, string(e.Kind), e.Threshold, e.Price, e.Title, e.Message, e.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("archive event: %w", err)
	}
	return nil
}

// Close is a no-op; the client owns the connection pool.
func (a *ClickHouseArchive) Close() error { return nil }

// NoopArchive discards everything. Used when ClickHouse is disabled.
type NoopArchive struct{}

func (NoopArchive) StoreSamples(context.Context, string, []models.PriceSample) error { return nil }
func (NoopArchive) StoreEvent(context.Context, models.AlertEvent) error              { return nil }
func (NoopArchive) Close() error                                                     { return nil }
