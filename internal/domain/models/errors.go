package models

import "errors"

var (
	// ErrAdapterUnavailable means the listing page could not be resolved to an item.
	ErrAdapterUnavailable = errors.New("page adapter unavailable")
	// ErrPriceUnavailable is a transient miss on the live price feed.
	ErrPriceUnavailable = errors.New("price feed unavailable")
	// ErrHistoryUnavailable means the price-history feed returned no usable data.
	ErrHistoryUnavailable = errors.New("price history unavailable")
	// ErrStorageFailure wraps any alert persistence error.
	ErrStorageFailure = errors.New("alert storage failure")
	// ErrInvalidAlertInput rejects thresholds that are not positive numbers and unknown kinds.
	ErrInvalidAlertInput = errors.New("invalid alert input")

	ErrInvalidTimeframe  = errors.New("invalid timeframe")
	ErrInvalidZoomWindow = errors.New("invalid zoom window")
	ErrSessionNotFound   = errors.New("session not found")
)
