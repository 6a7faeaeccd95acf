package config

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestFlags(t *testing.T, args ...string) *flagValues {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f := registerFlags(fs)
	require.NoError(t, fs.Parse(args))
	f.markSet(fs)
	return f
}

func TestApplyMQTTFlags(t *testing.T) {
	f := parseTestFlags(t,
		"-mqtt-broker=tcp://flag:1883",
		"-mqtt-client-id=flag-client",
		"-mqtt-input-topic=flag/in",
		"-mqtt-qos=0",
		"-mqtt-connect-timeout=4s",
		"-mqtt-max-reconnect-attempts=3",
		"-mqtt-disconnect-timeout=500",
		"-mqtt-tls-enabled",
	)

	cfg := defaultMQTTConfig()
	f.applyMQTTFlags(&cfg)

	assert.Equal(t, "tcp://flag:1883", cfg.Broker)
	assert.Equal(t, "flag-client", cfg.ClientID)
	assert.Equal(t, "flag/in", cfg.InputTopic)
	assert.Equal(t, byte(0), cfg.QoS)
	assert.Equal(t, 4*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 3, cfg.MaxReconnectAttempts)
	assert.Equal(t, uint(500), cfg.DisconnectTimeout)
	assert.True(t, cfg.TLSEnabled)
}

func TestApplyMQTTFlags_InvalidQoSIgnored(t *testing.T) {
	f := parseTestFlags(t, "-mqtt-qos=5")

	cfg := defaultMQTTConfig()
	f.applyMQTTFlags(&cfg)

	assert.Equal(t, byte(1), cfg.QoS)
}

func TestApplyFlags_UnsetDoNotOverride(t *testing.T) {
	f := parseTestFlags(t)

	cfg := defaultConfig()
	cfg.Dedup.RecordSeen = false
	cfg.MQTT.TLSEnabled = true
	f.applyMQTTFlags(&cfg.MQTT)
	f.applyProcessFlags(cfg)

	assert.False(t, cfg.Dedup.RecordSeen, "bool flag default must not override")
	assert.True(t, cfg.MQTT.TLSEnabled)
	assert.Equal(t, defaultIngestConfig(), cfg.Ingest)
}

func TestApplyProcessFlags(t *testing.T) {
	f := parseTestFlags(t,
		"-ingest-workers=16",
		"-ingest-buffer-capacity=64",
		"-ingest-ack-timeout=1s",
		"-telemetry-max-consecutive-failures=2",
		"-dedup-backend=redis",
		"-dedup-record-seen=false",
		"-redis-address=flag-redis:6379",
		"-redis-db=2",
		"-metrics-enabled",
		"-metrics-endpoint=otel:4317",
		"-shutdown-timeout=3s",
		"-log-level=trace",
	)

	cfg := defaultConfig()
	f.applyProcessFlags(cfg)

	assert.Equal(t, 16, cfg.Ingest.Workers)
	assert.Equal(t, 64, cfg.Ingest.BufferCapacity)
	assert.Equal(t, time.Second, cfg.Ingest.AckTimeout)
	assert.Equal(t, 2, cfg.Telemetry.MaxConsecutiveFailures)
	assert.Equal(t, "redis", cfg.Dedup.Backend)
	assert.False(t, cfg.Dedup.RecordSeen)
	assert.Equal(t, "flag-redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "otel:4317", cfg.Metrics.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Lifecycle.ShutdownTimeout)
	assert.Equal(t, "trace", cfg.Log.Level)
}
