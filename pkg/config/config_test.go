package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte("environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "https://steamcommunity.com", c.Steam.BaseURL)
	assert.Equal(t, 730, c.Steam.AppID)
	assert.Equal(t, "ask", c.Steam.PriceBasis)
	assert.Equal(t, 15*time.Second, c.Poll.Interval)
	assert.Equal(t, time.Second, c.Adapter.RetryInterval)
	assert.Equal(t, 0, c.Adapter.MaxAttempts)
	assert.Equal(t, "memory", c.Alerts.Backend)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.True(t, c.Notify.Log)
	assert.False(t, c.Kafka.Enabled)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: prod
poll:
  interval: 30s
  default_item_keys: ["AK-47 | Redline (Field-Tested)"]
steam:
  price_basis: mid
notify:
  log: false
`))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.Poll.Interval)
	assert.Equal(t, []string{"AK-47 | Redline (Field-Tested)"}, c.Poll.DefaultItemKeys)
	assert.Equal(t, "mid", c.Steam.PriceBasis)
	assert.False(t, c.Notify.Log)
}

func TestParseAcceptsPerKindBasis(t *testing.T) {
	c, err := Parse([]byte("steam: {price_basis: per_kind}"))
	require.NoError(t, err)
	assert.Equal(t, "per_kind", c.Steam.PriceBasis)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"poll interval below minimum", "poll: {interval: 500ms}"},
		{"bad price basis", "steam: {price_basis: last}"},
		{"bad backend", "alerts: {backend: postgres}"},
		{"kafka without brokers", "kafka: {enabled: true}"},
		{"negative attempts", "adapter: {max_attempts: -1}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)

	env := map[string]string{
		"STEAM_CURRENCY": "3",
		"POLL_INTERVAL":  "5s",
		"ALERTS_BACKEND": "redis",
		"KAFKA_BROKERS":  "k1:9092,k2:9092",
		"WEBHOOK_URL":    "https://discord.example/webhook",
		"LOG_LEVEL":      "debug",
	}
	require.NoError(t, c.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))

	assert.Equal(t, 3, c.Steam.Currency)
	assert.Equal(t, 5*time.Second, c.Poll.Interval)
	assert.Equal(t, "redis", c.Alerts.Backend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, "https://discord.example/webhook", c.Notify.WebhookURL)
	assert.Equal(t, "debug", c.Log.Level)
	require.NoError(t, c.Validate())
}

func TestApplyEnvRejectsBadDuration(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	err = c.ApplyEnv(func(k string) (string, bool) {
		if k == "POLL_INTERVAL" {
			return "soon", true
		}
		return "", false
	})
	assert.Error(t, err)
}

func TestLoadExampleConfig(t *testing.T) {
	path := filepath.Join("..", "..", "config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skip("example config not present")
	}
	c, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Environment)
}
