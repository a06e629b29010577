package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

// MinPollInterval is the shortest accepted polling interval.
const MinPollInterval = time.Second

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Steam struct {
		BaseURL    string        `yaml:"base_url" default:"https://steamcommunity.com"`
		AppID      int           `yaml:"app_id" default:"730"`
		Country    string        `yaml:"country" default:"US"`
		Language   string        `yaml:"language" default:"english"`
		Currency   int           `yaml:"currency" default:"1"`
		PriceBasis string        `yaml:"price_basis" default:"ask"`
		Timeout    time.Duration `yaml:"timeout" default:"15s"`
		UserAgent  string        `yaml:"user_agent" default:"pricewatch/1.0"`
		// Cookie is sent on market requests; price history needs a logged-in
		// session (steamLoginSecure=...).
		Cookie    string `yaml:"cookie"`
		RateLimit struct {
			Capacity     float64 `yaml:"capacity" default:"5"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
		} `yaml:"rate_limit"`
	} `yaml:"steam"`
	Adapter struct {
		RetryInterval time.Duration `yaml:"retry_interval" default:"1s"`
		// MaxAttempts bounds item resolution; 0 retries until the request
		// context ends.
		MaxAttempts int `yaml:"max_attempts" default:"0"`
	} `yaml:"adapter"`
	Poll struct {
		Interval        time.Duration `yaml:"interval" default:"15s"`
		DefaultItemKeys []string      `yaml:"default_item_keys"`
	} `yaml:"poll"`
	Alerts struct {
		Backend    string `yaml:"backend" default:"memory"`
		SQLitePath string `yaml:"sqlite_path" default:"data/alerts.db"`
	} `yaml:"alerts"`
	Redis struct {
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
		Prefix   string `yaml:"prefix" default:"pricewatch"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"pricewatch.alerts"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"10ms"`
			BatchSize    int           `yaml:"batch_size" default:"10"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"pricewatch-notify"`
			StartOffset string        `yaml:"start_offset" default:"earliest"`
			Workers     int           `yaml:"workers" default:"2"`
			BufferSize  int           `yaml:"buffer_size" default:"16"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"pricewatch"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
		BotName    string `yaml:"bot_name" default:"PriceWatch"`
		// Log writes every notification to the application log.
		Log bool `yaml:"log" default:"true"`
	} `yaml:"notify"`
}

// Load reads and parses a YAML configuration file. Missing keys take their
// struct defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	if v, ok := get("STEAM_CURRENCY"); ok {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
			return fmt.Errorf("STEAM_CURRENCY: %w", err)
		}
		c.Steam.Currency = n
	}
	if v, ok := get("STEAM_COOKIE"); ok {
		c.Steam.Cookie = v
	}
	if v, ok := get("POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("POLL_INTERVAL: %w", err)
		}
		c.Poll.Interval = d
	}
	if v, ok := get("ALERTS_BACKEND"); ok {
		c.Alerts.Backend = v
	}
	if v, ok := get("REDIS_HOST"); ok {
		c.Redis.Host = v
	}
	if v, ok := get("KAFKA_BROKERS"); ok {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v, ok := get("KAFKA_TOPIC"); ok {
		c.Kafka.Topic = v
	}
	if v, ok := get("WEBHOOK_URL"); ok {
		c.Notify.WebhookURL = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Steam.BaseURL == "" {
		return fmt.Errorf("steam.base_url is required")
	}
	if c.Steam.AppID <= 0 {
		return fmt.Errorf("steam.app_id must be positive")
	}
	switch c.Steam.PriceBasis {
	case "ask", "bid", "mid", "per_kind":
	default:
		return fmt.Errorf("steam.price_basis must be 'ask', 'bid', 'mid' or 'per_kind', got '%s'", c.Steam.PriceBasis)
	}
	if c.Steam.RateLimit.Capacity < 1 {
		return fmt.Errorf("steam.rate_limit.capacity must be at least 1")
	}
	if c.Poll.Interval < MinPollInterval {
		return fmt.Errorf("poll.interval must be at least %s, got %s", MinPollInterval, c.Poll.Interval)
	}
	if c.Adapter.RetryInterval <= 0 {
		return fmt.Errorf("adapter.retry_interval must be positive")
	}
	if c.Adapter.MaxAttempts < 0 {
		return fmt.Errorf("adapter.max_attempts cannot be negative")
	}
	switch c.Alerts.Backend {
	case "memory", "redis":
	case "sqlite":
		if c.Alerts.SQLitePath == "" {
			return fmt.Errorf("alerts.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("alerts.backend must be 'memory', 'redis' or 'sqlite', got '%s'", c.Alerts.Backend)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when kafka is enabled")
		}
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
