package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSample is a single observation from the price-history feed.
// Volume is 0 when the feed does not report it.
type PriceSample struct {
	Time   time.Time       `json:"time"`
	Price  decimal.Decimal `json:"price"`
	Volume int64           `json:"volume,omitempty"`
}
