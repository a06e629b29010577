package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	opts := Options(ClientConfig{
		Host:         "ch.local",
		Port:         8123,
		Database:     "pricewatch",
		User:         "writer",
		Password:     "secret",
		UseHTTP:      true,
		AsyncInsert:  true,
		WaitForAsync: true,
		MaxExecTime:  30 * time.Second,
		DialTimeout:  time.Second,
	})

	assert.Equal(t, []string{"ch.local:8123"}, opts.Addr)
	assert.Equal(t, ch.HTTP, opts.Protocol)
	assert.Equal(t, "pricewatch", opts.Auth.Database)
	assert.Equal(t, "writer", opts.Auth.Username)
	assert.Equal(t, 30, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
	assert.Equal(t, 1, opts.Settings["wait_for_async_insert"])
	assert.Equal(t, time.Second, opts.DialTimeout)
}

func TestOptionsNativeWithoutSettings(t *testing.T) {
	opts := Options(ClientConfig{Host: "localhost", Port: 9000})
	assert.Equal(t, ch.Native, opts.Protocol)
	assert.Empty(t, opts.Settings)
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
