package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/incapacidades/api/v1", cfg.HTTP.BasePath)
	assert.Equal(t, 10*time.Second, cfg.Blob.ProbeTimeout)
	assert.Equal(t, int64(10<<20), cfg.Blob.UploadMaxBytes)
	assert.Equal(t, 1, cfg.Notify.Retries)
	assert.Equal(t, "local", cfg.Events.Driver)
	assert.False(t, cfg.Auth.TrustHeaders)
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BLOB_PROBE_TIMEOUT", "3s")
	t.Setenv("UPLOAD_MAX_BYTES", "2048")
	t.Setenv("NOTIFY_RETRIES", "0")
	t.Setenv("HTTP_BASE_PATH", "/api/")
	t.Setenv("AUTH_TRUST_HEADERS", "true")
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("DB_NAME", "claims_test")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_QOS", "5")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.Blob.ProbeTimeout)
	assert.Equal(t, int64(2048), cfg.Blob.UploadMaxBytes)
	assert.Equal(t, 0, cfg.Notify.Retries)
	assert.Equal(t, "/api", cfg.HTTP.BasePath)
	assert.True(t, cfg.Auth.TrustHeaders)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "claims_test", cfg.Database.Database)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker.Broker)
	// out-of-range QoS keeps the default
	assert.Equal(t, byte(1), cfg.MQTT.Broker.QoS)
}
