package metrics

import (
	"testing"

	"PriceWatch/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordEvaluation("AK-47 | Redline", "triggered")
	r.RecordEvaluation("AK-47 | Redline", "triggered")
	r.RecordTriggered("AK-47 | Redline", models.AlertBuy)
	r.RecordNotifyError("webhook")
	r.RecordLastPrice("AK-47 | Redline", 4.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.evaluations.WithLabelValues("AK-47 | Redline", "triggered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.triggered.WithLabelValues("AK-47 | Redline", "buy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notifyErrors.WithLabelValues("webhook")))
	assert.Equal(t, 4.5, testutil.ToFloat64(r.lastPrice.WithLabelValues("AK-47 | Redline")))
}

func TestNewIsShared(t *testing.T) {
	assert.Same(t, New(), New())
}
