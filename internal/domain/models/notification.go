package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification is the (title, message) pair handed to a notifier.
type Notification struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NewNotification formats the user-facing text for a triggered alert.
func NewNotification(item Item, a Alert, price decimal.Decimal) Notification {
	return Notification{
		Title: fmt.Sprintf("Price Alert: %s!", strings.ToUpper(string(a.Kind))),
		Message: fmt.Sprintf("%s\nPrice hit %s! (%s threshold %s)",
			item.Name(), price.String(), a.Kind, a.Threshold.String()),
	}
}

// AlertEvent is the durable record of one triggered alert. It travels over
// Kafka and is archived in ClickHouse.
type AlertEvent struct {
	ID          string          `json:"id"`
	ItemKey     string          `json:"item_key"`
	DisplayName string          `json:"display_name"`
	Kind        AlertKind       `json:"kind"`
	Threshold   decimal.Decimal `json:"threshold"`
	Price       decimal.Decimal `json:"price"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	TriggeredAt time.Time       `json:"triggered_at"`
}

// NewAlertEvent builds the event for a triggered alert.
func NewAlertEvent(item Item, a Alert, price decimal.Decimal, n Notification, at time.Time) AlertEvent {
	return AlertEvent{
		ID:          uuid.NewString(),
		ItemKey:     item.Key,
		DisplayName: item.Name(),
		Kind:        a.Kind,
		Threshold:   a.Threshold,
		Price:       price,
		Title:       n.Title,
		Message:     n.Message,
		TriggeredAt: at.UTC(),
	}
}

// Notification returns the user-facing pair carried by the event.
func (e AlertEvent) Notification() Notification {
	return Notification{Title: e.Title, Message: e.Message}
}
