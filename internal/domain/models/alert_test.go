package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlert(t *testing.T) {
	tests := []struct {
		name      string
		kind      string
		threshold string
		wantErr   bool
	}{
		{name: "buy", kind: "buy", threshold: "5.00"},
		{name: "sell uppercase", kind: "SELL", threshold: "12.5"},
		{name: "zero", kind: "buy", threshold: "0", wantErr: true},
		{name: "negative", kind: "sell", threshold: "-1", wantErr: true},
		{name: "not a number", kind: "buy", threshold: "abc", wantErr: true},
		{name: "empty", kind: "buy", threshold: "", wantErr: true},
		{name: "unknown kind", kind: "hold", threshold: "1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAlert(tt.kind, tt.threshold)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAlertInput))
				return
			}
			require.NoError(t, err)
			assert.True(t, a.Threshold.IsPositive())
		})
	}
}

func TestAlertTriggered(t *testing.T) {
	buy := Alert{Kind: AlertBuy, Threshold: decimal.RequireFromString("5.00")}
	sell := Alert{Kind: AlertSell, Threshold: decimal.RequireFromString("10.00")}

	assert.True(t, buy.Triggered(decimal.RequireFromString("4.50")))
	assert.True(t, buy.Triggered(decimal.RequireFromString("5")))
	assert.False(t, buy.Triggered(decimal.RequireFromString("5.01")))

	assert.True(t, sell.Triggered(decimal.RequireFromString("10")))
	assert.True(t, sell.Triggered(decimal.RequireFromString("11")))
	assert.False(t, sell.Triggered(decimal.RequireFromString("9.99")))
}

func TestUpsertAlertReplacesSameKind(t *testing.T) {
	var alerts []Alert
	alerts = UpsertAlert(alerts, Alert{Kind: AlertBuy, Threshold: decimal.NewFromInt(5)})
	alerts = UpsertAlert(alerts, Alert{Kind: AlertBuy, Threshold: decimal.NewFromInt(4)})
	alerts = UpsertAlert(alerts, Alert{Kind: AlertSell, Threshold: decimal.NewFromInt(9)})

	require.Len(t, alerts, 2)
	buy, ok := FindAlert(alerts, AlertBuy)
	require.True(t, ok)
	assert.True(t, buy.Threshold.Equal(decimal.NewFromInt(4)))
}

func TestPartitionAlerts(t *testing.T) {
	alerts := []Alert{
		{Kind: AlertBuy, Threshold: decimal.NewFromInt(5)},
		{Kind: AlertSell, Threshold: decimal.NewFromInt(20)},
	}
	triggered, remaining := PartitionAlerts(alerts, decimal.RequireFromString("4.5"))
	require.Len(t, triggered, 1)
	require.Len(t, remaining, 1)
	assert.Equal(t, AlertBuy, triggered[0].Kind)
	assert.Equal(t, AlertSell, remaining[0].Kind)
}

func TestPartitionQuoteUsesSidePerKind(t *testing.T) {
	alerts := []Alert{
		{Kind: AlertBuy, Threshold: decimal.NewFromInt(5)},
		{Kind: AlertSell, Threshold: decimal.NewFromInt(5)},
	}
	// Ask 5.20 is above the buy target; bid 5.00 reaches the sell target.
	q := Quote{Buy: decimal.RequireFromString("5.20"), Sell: decimal.RequireFromString("5.00")}

	triggered, remaining := PartitionQuote(alerts, q)
	require.Len(t, triggered, 1)
	assert.Equal(t, AlertSell, triggered[0].Kind)
	require.Len(t, remaining, 1)
	assert.Equal(t, AlertBuy, remaining[0].Kind)

	assert.True(t, q.Split())
	assert.False(t, FlatQuote(decimal.NewFromInt(5)).Split())
}

func TestDescribeAlerts(t *testing.T) {
	assert.Equal(t, "", DescribeAlerts(nil))
	assert.Equal(t,
		"Active Alerts: Watching for price to drop to 1.5. Watching for price to rise to 3.",
		DescribeAlerts([]Alert{
			{Kind: AlertSell, Threshold: decimal.NewFromInt(3)},
			{Kind: AlertBuy, Threshold: decimal.RequireFromString("1.5")},
		}),
	)
}

func TestNewNotification(t *testing.T) {
	item := Item{Key: "AK-47 | Redline (Field-Tested)"}
	n := NewNotification(item, Alert{Kind: AlertBuy, Threshold: decimal.RequireFromString("5.00")}, decimal.RequireFromString("4.5"))
	assert.Equal(t, "Price Alert: BUY!", n.Title)
	assert.Equal(t, "AK-47 | Redline (Field-Tested)\nPrice hit 4.5! (buy threshold 5)", n.Message)
}
