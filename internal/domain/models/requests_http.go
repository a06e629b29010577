package models

import "encoding/json"

// Requests for the item HTTP endpoints.

type OpenSessionRequest struct {
	ItemKey     string `json:"item_key" validate:"required,max=512"`
	DisplayName string `json:"display_name" validate:"max=512"`
}

type ItemRequest struct {
	Key string `param:"key" validate:"required"`
}

type CandlesRequest struct {
	Key       string `param:"key" validate:"required"`
	Timeframe string `query:"timeframe" json:"timeframe" default:"day" validate:"oneof=hour day week month"`
}

type RangeRequest struct {
	Key  string `param:"key" validate:"required"`
	Zoom string `query:"zoom" json:"zoom" default:"all" validate:"oneof=1M 6M 1Y all"`
}

type SetAlertRequest struct {
	Key       string      `param:"key" validate:"required"`
	Kind      string      `json:"kind" validate:"required,oneof=buy sell"`
	Threshold json.Number `json:"threshold" validate:"required"`
}

// SetAlertPairRequest mirrors the buy/sell form: an empty or zero value
// leaves that side without an alert.
type SetAlertPairRequest struct {
	Key  string      `param:"key" validate:"required"`
	Buy  json.Number `json:"buy"`
	Sell json.Number `json:"sell"`
}
