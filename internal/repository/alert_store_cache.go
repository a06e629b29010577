package repository

import (
	"context"
	"errors"
	"fmt"

	"PriceWatch/internal/domain/models"
	domrepo "PriceWatch/internal/domain/repository"
	"PriceWatch/pkg/cache"
)

const alertKeyPrefix = "alerts"

// AlertKey returns the storage key of an item's alert list.
func AlertKey(itemKey string) string {
	return cache.GenerateKey(alertKeyPrefix, itemKey)
}

// CacheAlertStore keeps alert lists in a cache.Service (Redis or memory).
// Entries never expire.
type CacheAlertStore struct {
	c cache.Service
}

func NewCacheAlertStore(c cache.Service) domrepo.AlertStore {
	return &CacheAlertStore{c: c}
}

func (s *CacheAlertStore) Load(ctx context.Context, itemKey string) ([]models.Alert, error) {
	var alerts []models.Alert
	if err := s.c.Get(ctx, AlertKey(itemKey), &alerts); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return []models.Alert{}, nil
		}
		return nil, fmt.Errorf("%w: load %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	return alerts, nil
}

func (s *CacheAlertStore) Save(ctx context.Context, itemKey string, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return s.Clear(ctx, itemKey)
	}
	if err := s.c.Set(ctx, AlertKey(itemKey), alerts, 0); err != nil {
		return fmt.Errorf("%w: save %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	return nil
}

func (s *CacheAlertStore) Clear(ctx context.Context, itemKey string) error {
	if err := s.c.Delete(ctx, AlertKey(itemKey)); err != nil {
		return fmt.Errorf("%w: clear %s: %w", models.ErrStorageFailure, itemKey, err)
	}
	return nil
}
