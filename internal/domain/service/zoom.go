package service

import (
	"fmt"
	"time"

	"PriceWatch/internal/domain/models"
)

// ComputeRange returns the visible span for a zoom window relative to the
// latest candle time. Month arithmetic is calendar-aware and clamps the day
// (Mar 31 minus one month is the last day of February). From is not clamped
// to earliest; the display handles bounds before the first candle.
func ComputeRange(w models.ZoomWindow, latest, earliest time.Time) (models.Range, error) {
	if !w.IsValid() {
		return models.Range{}, fmt.Errorf("%w: %q", models.ErrInvalidZoomWindow, w)
	}
	if w == models.ZoomAll {
		return models.FitAllRange(), nil
	}
	to := latest.UTC()
	from := subtractMonths(to, w.Months())
	return models.Range{From: &from, To: &to}, nil
}

func subtractMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, -months, 0)
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
