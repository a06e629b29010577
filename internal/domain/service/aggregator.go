package service

import (
	"fmt"
	"sort"
	"time"

	"PriceWatch/internal/domain/models"
)

// BucketStart returns the canonical UTC start of the bucket containing t.
// Weeks start on Monday 00:00.
func BucketStart(t time.Time, tf models.Timeframe) (time.Time, error) {
	u := t.UTC()
	switch tf {
	case models.TimeframeHour:
		return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), 0, 0, 0, time.UTC), nil
	case models.TimeframeDay:
		return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC), nil
	case models.TimeframeWeek:
		// Weekday: Sunday=0 .. Saturday=6; shift so Monday=0.
		offset := (int(u.Weekday()) + 6) % 7
		day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
		return day.AddDate(0, 0, -offset), nil
	case models.TimeframeMonth:
		return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidTimeframe, tf)
	}
}

// Aggregate buckets samples into OHLC candles sorted by bucket start.
// Input order does not affect the result. Empty periods produce no candle.
func Aggregate(samples []models.PriceSample, tf models.Timeframe) ([]models.Candle, error) {
	if !tf.IsValid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidTimeframe, tf)
	}

	buckets := make(map[int64]*models.Candle, len(samples))
	for _, s := range samples {
		start, _ := BucketStart(s.Time, tf)
		key := start.Unix()
		if c, ok := buckets[key]; ok {
			c.Apply(s)
			continue
		}
		c := models.NewCandle(start, s)
		buckets[key] = &c
	}

	out := make([]models.Candle, 0, len(buckets))
	for _, c := range buckets {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket.Before(out[j].Bucket) })
	return out, nil
}

// AggregateAll builds candles for every supported timeframe.
func AggregateAll(samples []models.PriceSample) map[models.Timeframe][]models.Candle {
	out := make(map[models.Timeframe][]models.Candle, len(models.Timeframes))
	for _, tf := range models.Timeframes {
		// tf comes from the fixed list, so Aggregate cannot fail here.
		candles, _ := Aggregate(samples, tf)
		out[tf] = candles
	}
	return out
}
