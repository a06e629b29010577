package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLC bucket. firstSeen/lastSeen track which sample set
// Open and Close so that input order does not matter.
type Candle struct {
	Bucket time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`

	firstSeen time.Time
	lastSeen  time.Time
}

// NewCandle starts a bucket from its first sample.
func NewCandle(bucket time.Time, s PriceSample) Candle {
	return Candle{
		Bucket:    bucket,
		Open:      s.Price,
		High:      s.Price,
		Low:       s.Price,
		Close:     s.Price,
		firstSeen: s.Time,
		lastSeen:  s.Time,
	}
}

// Apply folds a sample into the candle. Ties on time never overwrite.
func (c *Candle) Apply(s PriceSample) {
	if s.Price.GreaterThan(c.High) {
		c.High = s.Price
	}
	if s.Price.LessThan(c.Low) {
		c.Low = s.Price
	}
	if s.Time.Before(c.firstSeen) {
		c.Open = s.Price
		c.firstSeen = s.Time
	}
	if s.Time.After(c.lastSeen) {
		c.Close = s.Price
		c.lastSeen = s.Time
	}
}

// FirstSeen returns the time of the sample that set Open.
func (c Candle) FirstSeen() time.Time { return c.firstSeen }

// LastSeen returns the time of the sample that set Close.
func (c Candle) LastSeen() time.Time { return c.lastSeen }
