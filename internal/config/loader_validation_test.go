package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, Validate(defaultConfig()))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt broker cannot be empty"},
		{"empty client id", func(c *Config) { c.MQTT.ClientID = "" }, "mqtt client ID cannot be empty"},
		{"empty input topic", func(c *Config) { c.MQTT.InputTopic = "" }, "mqtt input topic cannot be empty"},
		{"empty output topic", func(c *Config) { c.MQTT.OutputTopic = "" }, "mqtt output topic cannot be empty"},
		{"qos out of range", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt qos must be 0, 1 or 2"},
		{"negative reconnect attempts", func(c *Config) { c.MQTT.MaxReconnectAttempts = -1 }, "mqtt max reconnect attempts cannot be negative"},
		{"zero connect timeout", func(c *Config) { c.MQTT.ConnectTimeout = 0 }, "mqtt connect timeout must be positive"},
		{"zero workers", func(c *Config) { c.Ingest.Workers = 0 }, "ingest workers must be positive"},
		{"zero buffer", func(c *Config) { c.Ingest.BufferCapacity = 0 }, "ingest buffer capacity must be positive"},
		{"zero ack timeout", func(c *Config) { c.Ingest.AckTimeout = 0 }, "ingest ack timeout must be positive"},
		{"zero failure threshold", func(c *Config) { c.Telemetry.MaxConsecutiveFailures = 0 }, "telemetry max consecutive failures must be positive"},
		{"unknown backend", func(c *Config) { c.Dedup.Backend = "etcd" }, `unknown dedup backend "etcd"`},
		{"redis without address", func(c *Config) {
			c.Dedup.Backend = DedupBackendRedis
			c.Redis.Address = ""
		}, "redis address cannot be empty when dedup backend is redis"},
		{"redis without key", func(c *Config) {
			c.Dedup.Backend = DedupBackendRedis
			c.Redis.Key = ""
		}, "redis key cannot be empty when dedup backend is redis"},
		{"metrics without endpoint", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Endpoint = ""
		}, "metrics endpoint cannot be empty when metrics are enabled"},
		{"metrics without interval", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Interval = 0
		}, "metrics interval must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if assert.Error(t, err) {
				assert.Equal(t, tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidate_RedisBackend(t *testing.T) {
	cfg := defaultConfig()
	cfg.Dedup.Backend = DedupBackendRedis
	assert.NoError(t, Validate(cfg))
}
