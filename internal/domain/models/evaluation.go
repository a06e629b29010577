package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SkipReason explains why an evaluation cycle did nothing.
type SkipReason string

const (
	SkipNone             SkipReason = ""
	SkipNoAlerts         SkipReason = "no_alerts"
	SkipPriceUnavailable SkipReason = "price_unavailable"
	SkipLocked           SkipReason = "locked"
)

// EvaluationResult summarises one evaluation cycle for an item.
type EvaluationResult struct {
	ItemKey      string           `json:"item_key"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	SellPrice    *decimal.Decimal `json:"sell_price,omitempty"` // set when sell alerts used another price
	Triggered    []Alert          `json:"triggered"`
	Remaining    []Alert          `json:"remaining"`
	Skipped      SkipReason       `json:"skipped,omitempty"`
	NotifyErrors []string         `json:"notify_errors,omitempty"`
	EvaluatedAt  time.Time        `json:"evaluated_at"`
}
