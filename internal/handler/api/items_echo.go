package api

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	models "PriceWatch/internal/domain/models"
	"PriceWatch/internal/service/stream"
	"PriceWatch/internal/usecase"
	xhttp "PriceWatch/pkg/http"
	xlogger "PriceWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Streamer serves the live chart feed of one item.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, itemKey string, greeting ...stream.Message) error
}

// ItemsEchoHandler exposes watched items, their charts and alerts.
type ItemsEchoHandler struct {
	logger   *xlogger.Logger
	sessions *usecase.SessionManager
	alerts   *usecase.AlertService
	streamer Streamer
}

func NewItemsEchoHandler(logger *xlogger.Logger, sessions *usecase.SessionManager, alerts *usecase.AlertService, streamer Streamer) *ItemsEchoHandler {
	return &ItemsEchoHandler{logger: logger, sessions: sessions, alerts: alerts, streamer: streamer}
}

func (h *ItemsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/items")
	g.POST("", h.Open)
	g.GET("", h.List)
	g.GET("/:key", h.Get)
	g.DELETE("/:key", h.Close)
	g.GET("/:key/candles", h.Candles)
	g.GET("/:key/range", h.Range)
	g.POST("/:key/refresh", h.Refresh)
	g.POST("/:key/evaluate", h.Evaluate)
	g.GET("/:key/alerts", h.ListAlerts)
	g.PUT("/:key/alerts", h.SetAlert)
	g.PUT("/:key/alerts/pair", h.SetAlertPair)
	g.DELETE("/:key/alerts", h.ClearAlerts)
	if h.streamer != nil {
		g.GET("/:key/stream", h.Stream)
	}
}

func (h *ItemsEchoHandler) Open(c echo.Context) error {
	req := &models.OpenSessionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	key := strings.TrimSpace(req.ItemKey)

	_, created, err := h.sessions.Open(ctx, key, req.DisplayName)
	if err != nil {
		return h.fail(c, "open session", err)
	}
	snap, err := h.sessions.Snapshot(ctx, key)
	if err != nil {
		return h.fail(c, "open session", err)
	}
	if created {
		return xhttp.CreatedResponse(c, snap)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *ItemsEchoHandler) List(c echo.Context) error {
	rows := h.sessions.List(c.Request().Context())
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *ItemsEchoHandler) Get(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.sessions.Snapshot(c.Request().Context(), itemKey(req.Key))
	if err != nil {
		return h.fail(c, "snapshot", err)
	}
	return xhttp.SuccessResponse(c, snap)
}

func (h *ItemsEchoHandler) Close(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.sessions.Close(itemKey(req.Key)); err != nil {
		return h.fail(c, "close session", err)
	}
	return xhttp.NoContentResponse(c)
}

type candlesResponse struct {
	ItemKey   string           `json:"item_key"`
	Timeframe models.Timeframe `json:"timeframe"`
	Candles   []models.Candle  `json:"candles"`
}

// Candles switches the session timeframe and returns its candles.
func (h *ItemsEchoHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	key := itemKey(req.Key)
	s, err := h.sessions.Get(key)
	if err != nil {
		return h.fail(c, "candles", err)
	}
	tf := models.Timeframe(req.Timeframe)
	candles, err := s.SetTimeframe(tf)
	if err != nil {
		return h.fail(c, "candles", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, candlesResponse{ItemKey: key, Timeframe: tf, Candles: candles})
}

type rangeResponse struct {
	ItemKey string            `json:"item_key"`
	Zoom    models.ZoomWindow `json:"zoom"`
	Range   models.Range      `json:"range"`
}

// Range sets the zoom window and returns the visible range.
func (h *ItemsEchoHandler) Range(c echo.Context) error {
	req := &models.RangeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	key := itemKey(req.Key)
	s, err := h.sessions.Get(key)
	if err != nil {
		return h.fail(c, "range", err)
	}
	zoom := models.ZoomWindow(req.Zoom)
	r, err := s.SetZoom(zoom)
	if err != nil {
		return h.fail(c, "range", err)
	}
	return xhttp.SuccessResponse(c, rangeResponse{ItemKey: key, Zoom: zoom, Range: r})
}

func (h *ItemsEchoHandler) Refresh(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()
	key := itemKey(req.Key)
	s, err := h.sessions.Get(key)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	if err := s.Refresh(ctx); err != nil {
		return h.fail(c, "refresh", err)
	}
	snap, err := h.sessions.Snapshot(ctx, key)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	return xhttp.SuccessResponse(c, snap)
}

// Evaluate runs one alert check immediately instead of waiting for the poller.
func (h *ItemsEchoHandler) Evaluate(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.sessions.Evaluate(c.Request().Context(), itemKey(req.Key))
	if err != nil {
		return h.fail(c, "evaluate", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ItemsEchoHandler) ListAlerts(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.alerts.List(c.Request().Context(), itemKey(req.Key))
	if err != nil {
		return h.fail(c, "list alerts", err)
	}
	return xhttp.SuccessResponse(c, list)
}

func (h *ItemsEchoHandler) SetAlert(c echo.Context) error {
	req := &models.SetAlertRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.alerts.Set(c.Request().Context(), itemKey(req.Key), req.Kind, req.Threshold.String())
	if err != nil {
		return h.fail(c, "set alert", err)
	}
	return xhttp.SuccessResponse(c, list)
}

func (h *ItemsEchoHandler) SetAlertPair(c echo.Context) error {
	req := &models.SetAlertPairRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	list, err := h.alerts.SetPair(c.Request().Context(), itemKey(req.Key), req.Buy.String(), req.Sell.String())
	if err != nil {
		return h.fail(c, "set alert pair", err)
	}
	return xhttp.SuccessResponse(c, list)
}

func (h *ItemsEchoHandler) ClearAlerts(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if err := h.alerts.Clear(c.Request().Context(), itemKey(req.Key)); err != nil {
		return h.fail(c, "clear alerts", err)
	}
	return xhttp.NoContentResponse(c)
}

// Stream upgrades to a websocket that first receives the session snapshot
// and current candles, then every chart update.
func (h *ItemsEchoHandler) Stream(c echo.Context) error {
	key := itemKey(c.Param("key"))
	s, err := h.sessions.Get(key)
	if err != nil {
		return h.fail(c, "stream", err)
	}
	snap, err := h.sessions.Snapshot(c.Request().Context(), key)
	if err != nil {
		return h.fail(c, "stream", err)
	}
	tf, candles := s.Candles()
	greeting := []stream.Message{
		{Type: stream.TypeSnapshot, ItemKey: key, Data: snap},
		{Type: stream.TypeCandles, ItemKey: key, Timeframe: tf, Data: candles},
	}
	if err := h.streamer.Serve(c.Response(), c.Request(), key, greeting...); err != nil {
		h.logger.Warn("stream upgrade failed", xlogger.String("item", key), xlogger.Error(err))
	}
	return nil
}

func (h *ItemsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := mapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func mapError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrInvalidAlertInput):
		return xhttp.BadRequestError(err.Error()).WithField("threshold").WithError(err)
	case errors.Is(err, models.ErrInvalidTimeframe):
		return xhttp.BadRequestError(err.Error()).WithField("timeframe").WithError(err)
	case errors.Is(err, models.ErrInvalidZoomWindow):
		return xhttp.BadRequestError(err.Error()).WithField("zoom").WithError(err)
	case errors.Is(err, models.ErrSessionNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrAdapterUnavailable),
		errors.Is(err, models.ErrHistoryUnavailable),
		errors.Is(err, models.ErrPriceUnavailable):
		return xhttp.UnavailableError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrStorageFailure):
		return xhttp.InternalError("alert storage failure").WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}

// itemKey undoes path escaping; market hash names carry spaces and pipes.
func itemKey(raw string) string {
	if k, err := url.PathUnescape(raw); err == nil {
		return k
	}
	return raw
}
