package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel).With(String("item", "AK-47"))

	l.Info("evaluated",
		Decimal("price", decimal.RequireFromString("4.50")),
		Duration("duration_ms", 1500*time.Millisecond),
		Bool("triggered", true),
		Error(errors.New("boom")),
	)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "evaluated", entry["message"])
	assert.Equal(t, "AK-47", entry["item"])
	assert.Equal(t, "4.5", entry["price"])
	assert.Equal(t, float64(1500), entry["duration_ms"])
	assert.Equal(t, true, entry["triggered"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud", Output: "stdout"})
	assert.Error(t, err)
}

func TestNopDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error("nothing", String("k", "v"))
	})
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := CronLogger(NewWithWriter(&buf, zerolog.InfoLevel))

	cl.Info("wake", "now", "x")
	assert.Empty(t, buf.String(), "cron info is debug level")

	cl.Error(errors.New("panic"), "job failed", "entry", 3)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "job failed", entry["message"])
	assert.Equal(t, float64(3), entry["entry"])
	assert.Equal(t, "cron", entry["component"])
}
