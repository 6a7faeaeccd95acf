package config

import "time"

// defaultMQTTConfig returns the default MQTT configuration
func defaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Broker:               "tcp://localhost:1883",
		ClientID:             "edge-gateway",
		InputTopic:           "gateway/input1",
		OutputTopic:          "gateway/internal",
		QoS:                  1,
		ConnectTimeout:       10 * time.Second,
		WriteTimeout:         30 * time.Second,
		SubscribeTimeout:     10 * time.Second,
		MaxReconnectInterval: 10 * time.Second,
		MaxReconnectAttempts: 0,
		DisconnectTimeout:    1000,
	}
}

// defaultIngestConfig returns the default ingest configuration
func defaultIngestConfig() IngestConfig {
	return IngestConfig{
		Workers:        8,
		BufferCapacity: 1000,
		AckTimeout:     5 * time.Second,
	}
}

// defaultTelemetryConfig returns the default telemetry configuration
func defaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		MaxConsecutiveFailures: 5,
		BreakerResetTimeout:    time.Minute,
	}
}

// defaultDedupConfig returns the default dedup configuration
func defaultDedupConfig() DedupConfig {
	return DedupConfig{
		Backend:    DedupBackendMemory,
		RecordSeen: true,
	}
}

// defaultRedisConfig returns the default Redis configuration
func defaultRedisConfig() RedisConfig {
	return RedisConfig{
		Address:      "localhost:6379",
		Key:          "edge-gateway:seen-ids",
		DialTimeout:  10 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		PingTimeout:  5 * time.Second,
	}
}

// defaultMetricsConfig returns the default metrics configuration
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:     false,
		Endpoint:    "localhost:4317",
		ServiceName: "edge-gateway",
		Interval:    10 * time.Second,
	}
}

// defaultConfig returns a complete configuration with all default values
func defaultConfig() *Config {
	return &Config{
		MQTT:      defaultMQTTConfig(),
		Ingest:    defaultIngestConfig(),
		Telemetry: defaultTelemetryConfig(),
		Dedup:     defaultDedupConfig(),
		Redis:     defaultRedisConfig(),
		Metrics:   defaultMetricsConfig(),
		Lifecycle: LifecycleConfig{ShutdownTimeout: 30 * time.Second},
		Log:       LogConfig{Level: "info"},
	}
}
