package models

// Timeframe is the candle resolution.
type Timeframe string

const (
	TimeframeHour  Timeframe = "hour"
	TimeframeDay   Timeframe = "day"
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
)

// Timeframes lists every supported resolution, finest first.
var Timeframes = []Timeframe{TimeframeHour, TimeframeDay, TimeframeWeek, TimeframeMonth}

// IsValid reports whether tf is a supported timeframe.
func (tf Timeframe) IsValid() bool {
	switch tf {
	case TimeframeHour, TimeframeDay, TimeframeWeek, TimeframeMonth:
		return true
	default:
		return false
	}
}

// DefaultTimeframe is the resolution a new session shows.
func DefaultTimeframe() Timeframe { return TimeframeDay }

// ParseTimeframe converts raw input to a Timeframe. Empty input yields the default.
func ParseTimeframe(s string) (Timeframe, error) {
	if s == "" {
		return DefaultTimeframe(), nil
	}
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", ErrInvalidTimeframe
	}
	return tf, nil
}
