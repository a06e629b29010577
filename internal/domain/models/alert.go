package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AlertKind is the direction of a threshold alert.
type AlertKind string

const (
	// AlertBuy fires when the price drops to or below the threshold.
	AlertBuy AlertKind = "buy"
	// AlertSell fires when the price rises to or above the threshold.
	AlertSell AlertKind = "sell"
)

// IsValid reports whether k is a known alert kind.
func (k AlertKind) IsValid() bool {
	return k == AlertBuy || k == AlertSell
}

// Alert is a single price threshold on an item. It is deleted the cycle it fires.
type Alert struct {
	Kind      AlertKind       `json:"kind"`
	Threshold decimal.Decimal `json:"threshold"`
}

// NewAlert validates raw user input. Thresholds must parse as a positive number.
func NewAlert(kind, threshold string) (Alert, error) {
	k := AlertKind(strings.ToLower(strings.TrimSpace(kind)))
	if !k.IsValid() {
		return Alert{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidAlertInput, kind)
	}
	v, err := decimal.NewFromString(strings.TrimSpace(threshold))
	if err != nil {
		return Alert{}, fmt.Errorf("%w: threshold %q is not a number", ErrInvalidAlertInput, threshold)
	}
	if !v.IsPositive() {
		return Alert{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidAlertInput)
	}
	return Alert{Kind: k, Threshold: v}, nil
}

// Triggered reports whether price crosses the alert threshold.
func (a Alert) Triggered(price decimal.Decimal) bool {
	switch a.Kind {
	case AlertBuy:
		return price.LessThanOrEqual(a.Threshold)
	case AlertSell:
		return price.GreaterThanOrEqual(a.Threshold)
	default:
		return false
	}
}

// UpsertAlert replaces the alert of the same kind or appends it.
// The result never holds two alerts of one kind.
func UpsertAlert(alerts []Alert, a Alert) []Alert {
	out := make([]Alert, 0, len(alerts)+1)
	for _, cur := range alerts {
		if cur.Kind != a.Kind {
			out = append(out, cur)
		}
	}
	return append(out, a)
}

// Quote is the price each alert kind is checked against: Buy is what a
// buyer pays, Sell what a seller gets.
type Quote struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// FlatQuote checks both kinds against one price.
func FlatQuote(price decimal.Decimal) Quote {
	return Quote{Buy: price, Sell: price}
}

// For returns the side of q that alerts of kind compare with.
func (q Quote) For(kind AlertKind) decimal.Decimal {
	if kind == AlertSell {
		return q.Sell
	}
	return q.Buy
}

// Split reports whether the two sides differ.
func (q Quote) Split() bool {
	return !q.Buy.Equal(q.Sell)
}

// PartitionAlerts splits alerts into those that fire at price and those that stay.
func PartitionAlerts(alerts []Alert, price decimal.Decimal) (triggered, remaining []Alert) {
	return PartitionQuote(alerts, FlatQuote(price))
}

// PartitionQuote is PartitionAlerts with a per-kind price.
func PartitionQuote(alerts []Alert, q Quote) (triggered, remaining []Alert) {
	for _, a := range alerts {
		if a.Triggered(q.For(a.Kind)) {
			triggered = append(triggered, a)
		} else {
			remaining = append(remaining, a)
		}
	}
	return triggered, remaining
}

// FindAlert returns the alert of the given kind, if any.
func FindAlert(alerts []Alert, kind AlertKind) (Alert, bool) {
	for _, a := range alerts {
		if a.Kind == kind {
			return a, true
		}
	}
	return Alert{}, false
}

// DescribeAlerts renders the "Active Alerts" line shown next to the chart.
// Empty when nothing is being watched.
func DescribeAlerts(alerts []Alert) string {
	var parts []string
	if a, ok := FindAlert(alerts, AlertBuy); ok {
		parts = append(parts, fmt.Sprintf("Watching for price to drop to %s.", a.Threshold.String()))
	}
	if a, ok := FindAlert(alerts, AlertSell); ok {
		parts = append(parts, fmt.Sprintf("Watching for price to rise to %s.", a.Threshold.String()))
	}
	if len(parts) == 0 {
		return ""
	}
	return "Active Alerts: " + strings.Join(parts, " ")
}
