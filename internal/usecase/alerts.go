package usecase

import (
	"context"
	"fmt"
	"strings"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	applogger "PriceWatch/pkg/logger"

	"github.com/shopspring/decimal"
)

// AlertService edits the alert list of an item.
type AlertService struct {
	store domrepo.AlertStore
	log   *applogger.Logger
}

func NewAlertService(store domrepo.AlertStore, l *applogger.Logger) *AlertService {
	return &AlertService{store: store, log: l.With(applogger.String("component", "alerts"))}
}

// AlertList is an item's alerts plus the display line.
type AlertList struct {
	ItemKey     string         `json:"item_key"`
	Alerts      []models.Alert `json:"alerts"`
	Description string         `json:"description"`
}

func newAlertList(itemKey string, alerts []models.Alert) AlertList {
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return AlertList{ItemKey: itemKey, Alerts: alerts, Description: models.DescribeAlerts(alerts)}
}

// List returns the item's alerts.
func (s *AlertService) List(ctx context.Context, itemKey string) (AlertList, error) {
	alerts, err := s.store.Load(ctx, itemKey)
	if err != nil {
		return AlertList{}, err
	}
	return newAlertList(itemKey, alerts), nil
}

// Set upserts one alert by kind. Input is validated before storage is touched.
func (s *AlertService) Set(ctx context.Context, itemKey, kind, threshold string) (AlertList, error) {
	a, err := models.NewAlert(kind, threshold)
	if err != nil {
		return AlertList{}, err
	}
	alerts, err := s.store.Load(ctx, itemKey)
	if err != nil {
		return AlertList{}, err
	}
	alerts = models.UpsertAlert(alerts, a)
	if err := s.store.Save(ctx, itemKey, alerts); err != nil {
		return AlertList{}, err
	}
	s.log.Info("alert set",
		applogger.String("item", itemKey),
		applogger.String("kind", string(a.Kind)),
		applogger.Decimal("threshold", a.Threshold),
	)
	return newAlertList(itemKey, alerts), nil
}

// SetPair replaces both alerts at once. An empty or zero value means no
// alert of that kind.
func (s *AlertService) SetPair(ctx context.Context, itemKey, buy, sell string) (AlertList, error) {
	var alerts []models.Alert
	for _, in := range []struct {
		kind  models.AlertKind
		value string
	}{{models.AlertBuy, buy}, {models.AlertSell, sell}} {
		v := strings.TrimSpace(in.value)
		if v == "" {
			continue
		}
		if d, err := decimal.NewFromString(v); err == nil && d.IsZero() {
			continue
		}
		a, err := models.NewAlert(string(in.kind), v)
		if err != nil {
			return AlertList{}, fmt.Errorf("%s: %w", in.kind, err)
		}
		alerts = append(alerts, a)
	}

	if err := s.store.Save(ctx, itemKey, alerts); err != nil {
		return AlertList{}, err
	}
	s.log.Info("alerts replaced", applogger.String("item", itemKey), applogger.Int("count", len(alerts)))
	return newAlertList(itemKey, alerts), nil
}

// Clear removes every alert of the item.
func (s *AlertService) Clear(ctx context.Context, itemKey string) error {
	if err := s.store.Clear(ctx, itemKey); err != nil {
		return err
	}
	s.log.Info("alerts cleared", applogger.String("item", itemKey))
	return nil
}
