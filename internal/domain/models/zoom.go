package models

import "time"

// ZoomWindow selects the visible span of the chart.
type ZoomWindow string

const (
	ZoomOneMonth ZoomWindow = "1M"
	ZoomSixMonth ZoomWindow = "6M"
	ZoomOneYear  ZoomWindow = "1Y"
	ZoomAll      ZoomWindow = "all"
)

// IsValid reports whether w is a supported zoom window.
func (w ZoomWindow) IsValid() bool {
	switch w {
	case ZoomOneMonth, ZoomSixMonth, ZoomOneYear, ZoomAll:
		return true
	default:
		return false
	}
}

// Months returns the calendar span of the window, 0 for All.
func (w ZoomWindow) Months() int {
	switch w {
	case ZoomOneMonth:
		return 1
	case ZoomSixMonth:
		return 6
	case ZoomOneYear:
		return 12
	default:
		return 0
	}
}

// DefaultZoom is the zoom a new session shows.
func DefaultZoom() ZoomWindow { return ZoomAll }

// ParseZoomWindow converts raw input to a ZoomWindow. Empty input yields the default.
func ParseZoomWindow(s string) (ZoomWindow, error) {
	if s == "" {
		return DefaultZoom(), nil
	}
	w := ZoomWindow(s)
	if !w.IsValid() {
		return "", ErrInvalidZoomWindow
	}
	return w, nil
}

// Range is the visible time span. FitAll means the display should show
// everything and From/To are nil.
type Range struct {
	FitAll bool       `json:"fit_all"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

// FitAllRange returns the "show everything" range.
func FitAllRange() Range { return Range{FitAll: true} }
