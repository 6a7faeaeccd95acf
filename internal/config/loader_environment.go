package config

import (
	"os"
	"strconv"
	"time"
)

// loadMQTTFromEnv loads MQTT configuration from environment variables
func loadMQTTFromEnv(cfg *MQTTConfig) {
	loadMQTTStrings(cfg)
	loadMQTTInts(cfg)
	loadMQTTTimeouts(cfg)
	loadMQTTBools(cfg)
}

func loadMQTTStrings(cfg *MQTTConfig) {
	if v := getEnvString("MQTT_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := getEnvString("MQTT_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := getEnvString("MQTT_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := getEnvString("MQTT_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := getEnvString("MQTT_INPUT_TOPIC"); v != "" {
		cfg.InputTopic = v
	}
	if v := getEnvString("MQTT_OUTPUT_TOPIC"); v != "" {
		cfg.OutputTopic = v
	}
	if v := getEnvString("MQTT_CA_CERT"); v != "" {
		cfg.CACert = v
	}
	if v := getEnvString("MQTT_CLIENT_CERT"); v != "" {
		cfg.ClientCert = v
	}
	if v := getEnvString("MQTT_CLIENT_KEY"); v != "" {
		cfg.ClientKey = v
	}
}

func loadMQTTInts(cfg *MQTTConfig) {
	if v, ok := getEnvInt("MQTT_QOS"); ok && v >= 0 && v <= 2 {
		cfg.QoS = byte(v) // #nosec G115 - validated range 0-2
	}
	if v, ok := getEnvInt("MQTT_MAX_RECONNECT_ATTEMPTS"); ok && v >= 0 {
		cfg.MaxReconnectAttempts = v
	}
	if v, ok := getEnvInt("MQTT_DISCONNECT_TIMEOUT"); ok && v > 0 {
		cfg.DisconnectTimeout = uint(v) // #nosec G115 - validated positive
	}
}

func loadMQTTTimeouts(cfg *MQTTConfig) {
	if v := getEnvDuration("MQTT_CONNECT_TIMEOUT"); v != 0 {
		cfg.ConnectTimeout = v
	}
	if v := getEnvDuration("MQTT_WRITE_TIMEOUT"); v != 0 {
		cfg.WriteTimeout = v
	}
	if v := getEnvDuration("MQTT_SUBSCRIBE_TIMEOUT"); v != 0 {
		cfg.SubscribeTimeout = v
	}
	if v := getEnvDuration("MQTT_MAX_RECONNECT_INTERVAL"); v != 0 {
		cfg.MaxReconnectInterval = v
	}
}

func loadMQTTBools(cfg *MQTTConfig) {
	if v, ok := getEnvBool("MQTT_TLS_ENABLED"); ok {
		cfg.TLSEnabled = v
	}
	if v, ok := getEnvBool("MQTT_TLS_INSECURE_SKIP"); ok {
		cfg.InsecureSkip = v
	}
	if v, ok := getEnvBool("MQTT_USE_CERT_CN_PREFIX"); ok {
		cfg.UseCertCNPrefix = v
	}
}

// loadIngestFromEnv loads ingest configuration from environment variables
func loadIngestFromEnv(cfg *IngestConfig) {
	if v, ok := getEnvInt("INGEST_WORKERS"); ok {
		cfg.Workers = v
	}
	if v, ok := getEnvInt("INGEST_BUFFER_CAPACITY"); ok {
		cfg.BufferCapacity = v
	}
	if v := getEnvDuration("INGEST_ACK_TIMEOUT"); v != 0 {
		cfg.AckTimeout = v
	}
}

// loadTelemetryFromEnv loads telemetry configuration from environment variables
func loadTelemetryFromEnv(cfg *TelemetryConfig) {
	if v, ok := getEnvInt("TELEMETRY_MAX_CONSECUTIVE_FAILURES"); ok {
		cfg.MaxConsecutiveFailures = v
	}
	if v := getEnvDuration("TELEMETRY_BREAKER_RESET_TIMEOUT"); v != 0 {
		cfg.BreakerResetTimeout = v
	}
}

// loadDedupFromEnv loads dedup configuration from environment variables
func loadDedupFromEnv(cfg *DedupConfig) {
	if v := getEnvString("DEDUP_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v, ok := getEnvBool("DEDUP_RECORD_SEEN"); ok {
		cfg.RecordSeen = v
	}
}

// loadRedisFromEnv loads Redis configuration from environment variables
func loadRedisFromEnv(cfg *RedisConfig) {
	if v := getEnvString("REDIS_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := getEnvString("REDIS_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok && v >= 0 {
		cfg.DB = v
	}
	if v := getEnvString("REDIS_KEY"); v != "" {
		cfg.Key = v
	}
	if v := getEnvDuration("REDIS_DIAL_TIMEOUT"); v != 0 {
		cfg.DialTimeout = v
	}
	if v := getEnvDuration("REDIS_READ_TIMEOUT"); v != 0 {
		cfg.ReadTimeout = v
	}
	if v := getEnvDuration("REDIS_WRITE_TIMEOUT"); v != 0 {
		cfg.WriteTimeout = v
	}
	if v := getEnvDuration("REDIS_PING_TIMEOUT"); v != 0 {
		cfg.PingTimeout = v
	}
}

// loadMetricsFromEnv loads metrics configuration from environment variables
func loadMetricsFromEnv(cfg *MetricsConfig) {
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		cfg.Enabled = v
	}
	if v := getEnvString("METRICS_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := getEnvString("METRICS_SERVICE_NAME"); v != "" {
		cfg.ServiceName = v
	}
	if v := getEnvDuration("METRICS_INTERVAL"); v != 0 {
		cfg.Interval = v
	}
}

// loadMiscFromEnv loads lifecycle and log settings from environment variables
func loadMiscFromEnv(cfg *Config) {
	if v := getEnvDuration("LIFECYCLE_SHUTDOWN_TIMEOUT"); v != 0 {
		cfg.Lifecycle.ShutdownTimeout = v
	}
	if v := getEnvString("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Helper functions for reading environment variables

func getEnvString(key string) string {
	return os.Getenv(key)
}

func getEnvInt(key string) (int, bool) {
	value := os.Getenv(key)
	if value == "" {
		return 0, false
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return intValue, true
}

func getEnvDuration(key string) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return duration
}

func getEnvBool(key string) (bool, bool) {
	value := os.Getenv(key)
	if value == "" {
		return false, false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return b, true
}
