package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	commoncfg "incapacity-claims/common/config"
)

// Config incapacity-api (HTTP API) configuration.
type Config struct {
	HTTP struct {
		Addr     string
		BasePath string
	}
	DBEnabled bool
	Database  commoncfg.DatabaseConfig
	Redis     commoncfg.RedisConfig
	Log       struct {
		Level  string
		Format string
	}
	Blob    BlobConfig
	Notify  NotifyConfig
	Events  EventsConfig
	Auth    AuthConfig
	Catalog CatalogConfig
	MQTT    MQTTConfig
}

// BlobConfig object storage backing document uploads.
type BlobConfig struct {
	Driver         string // "http" or "memory"
	BaseURL        string
	Token          string
	ProbeTimeout   time.Duration
	UploadTimeout  time.Duration
	UploadMaxBytes int64
}

// NotifyConfig outbound mail.
type NotifyConfig struct {
	Driver       string // "relay", "smtp" or "log"
	From         string
	RelayURL     string
	RelayToken   string
	SMTPAddr     string
	SMTPUser     string
	SMTPPassword string
	Retries      int
	RatePerSec   float64
	Burst        int
	Timeout      time.Duration
}

// EventsConfig lifecycle event delivery.
type EventsConfig struct {
	Driver   string // "local" or "stream"
	Stream   string
	Group    string
	Consumer string
}

// AuthConfig credential resolution.
type AuthConfig struct {
	TrustHeaders bool
	SessionTTL   time.Duration
}

// CatalogConfig in-process cache for parameter catalogs.
type CatalogConfig struct {
	TTL time.Duration
}

// MQTTConfig optional status mirror.
type MQTTConfig struct {
	Enabled     bool
	Broker      commoncfg.MQTTConfig
	TopicPrefix string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.BasePath = strings.TrimRight(getEnv("HTTP_BASE_PATH", "/incapacidades/api/v1"), "/")

	// With DB disabled the service runs on memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "incapacidades",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Blob.Driver = getEnv("BLOB_DRIVER", "http")
	cfg.Blob.BaseURL = getEnv("BLOB_BASE_URL", "http://localhost:9000")
	cfg.Blob.Token = getEnv("BLOB_TOKEN", "")
	cfg.Blob.ProbeTimeout = parseDuration(getEnv("BLOB_PROBE_TIMEOUT", "10s"), 10*time.Second)
	cfg.Blob.UploadTimeout = parseDuration(getEnv("BLOB_UPLOAD_TIMEOUT", "60s"), 60*time.Second)
	cfg.Blob.UploadMaxBytes = int64(parseInt(getEnv("UPLOAD_MAX_BYTES", "10485760"), 10<<20))

	cfg.Notify.Driver = getEnv("NOTIFY_DRIVER", "log")
	cfg.Notify.From = getEnv("NOTIFY_FROM", "incapacidades@localhost")
	cfg.Notify.RelayURL = getEnv("NOTIFY_RELAY_URL", "")
	cfg.Notify.RelayToken = getEnv("NOTIFY_RELAY_TOKEN", "")
	cfg.Notify.SMTPAddr = getEnv("SMTP_ADDR", "localhost:25")
	cfg.Notify.SMTPUser = getEnv("SMTP_USER", "")
	cfg.Notify.SMTPPassword = getEnv("SMTP_PASSWORD", "")
	cfg.Notify.Retries = parseInt(getEnv("NOTIFY_RETRIES", "1"), 1)
	cfg.Notify.RatePerSec = parseFloat(getEnv("NOTIFY_RATE", "10"), 10)
	cfg.Notify.Burst = parseInt(getEnv("NOTIFY_BURST", "5"), 5)
	cfg.Notify.Timeout = parseDuration(getEnv("NOTIFY_TIMEOUT", "15s"), 15*time.Second)

	cfg.Events.Driver = getEnv("EVENTS_DRIVER", "local")
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "incapacidades:claim_events")
	cfg.Events.Group = getEnv("EVENTS_GROUP", "incapacity-api")
	cfg.Events.Consumer = getEnv("EVENTS_CONSUMER", hostnameOr("incapacity-api-1"))

	cfg.Auth.TrustHeaders = getEnv("AUTH_TRUST_HEADERS", "false") == "true"
	cfg.Auth.SessionTTL = parseDuration(getEnv("AUTH_SESSION_TTL", "8h"), 8*time.Hour)

	cfg.Catalog.TTL = parseDuration(getEnv("CATALOG_CACHE_TTL", "5m"), 5*time.Minute)

	// MQTT mirror is off by default.
	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = commoncfg.MQTTConfig{
		Broker:   "tcp://localhost:1883",
		ClientID: "incapacity-api",
		QoS:      1,
	}
	cfg.MQTT.Broker.LoadFromEnv("MQTT")
	cfg.MQTT.TopicPrefix = strings.TrimRight(getEnv("MQTT_TOPIC_PREFIX", "incapacidades"), "/")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func hostnameOr(def string) string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return def
}
