// Package config provides configuration loading and validation from a YAML file, environment variables and command line flags.
package config

import "time"

// Dedup backends
const (
	DedupBackendMemory = "memory"
	DedupBackendRedis  = "redis"
)

// Config holds the complete configuration shared by the observer and telemetry processes
type Config struct {
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Redis     RedisConfig     `yaml:"redis"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Log       LogConfig       `yaml:"log"`
}

// MQTTConfig holds the broker connection configuration
type MQTTConfig struct {
	Broker               string        `yaml:"broker"`
	ClientID             string        `yaml:"client_id"`
	Username             string        `yaml:"username"`
	Password             string        `yaml:"password"`
	InputTopic           string        `yaml:"input_topic"`
	OutputTopic          string        `yaml:"output_topic"`
	QoS                  byte          `yaml:"qos"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	SubscribeTimeout     time.Duration `yaml:"subscribe_timeout"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // 0 = unlimited
	DisconnectTimeout    uint          `yaml:"disconnect_timeout"`     // Milliseconds for graceful disconnect
	// TLS Configuration
	TLSEnabled      bool   `yaml:"tls_enabled"`
	CACert          string `yaml:"ca_cert"`
	ClientCert      string `yaml:"client_cert"`
	ClientKey       string `yaml:"client_key"`
	InsecureSkip    bool   `yaml:"tls_insecure_skip"`
	UseCertCNPrefix bool   `yaml:"use_cert_cn_prefix"` // If true, prefix topics with cert CN for ACL constraints
}

// IngestConfig holds settings of the observer's message handlers
type IngestConfig struct {
	Workers        int           `yaml:"workers"`
	BufferCapacity int           `yaml:"buffer_capacity"`
	AckTimeout     time.Duration `yaml:"ack_timeout"`
}

// TelemetryConfig holds settings of the telemetry publish loop.
// The publish interval itself is fixed.
type TelemetryConfig struct {
	MaxConsecutiveFailures int           `yaml:"max_consecutive_failures"`
	BreakerResetTimeout    time.Duration `yaml:"breaker_reset_timeout"`
}

// DedupConfig selects where seen message ids are kept
type DedupConfig struct {
	Backend    string `yaml:"backend"`
	RecordSeen bool   `yaml:"record_seen"`
}

// RedisConfig holds the shared seen-id set configuration
type RedisConfig struct {
	Address      string        `yaml:"address"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Key          string        `yaml:"key"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingTimeout  time.Duration `yaml:"ping_timeout"`
}

// MetricsConfig holds the OTLP metrics exporter settings
type MetricsConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Endpoint    string        `yaml:"endpoint"`
	ServiceName string        `yaml:"service_name"`
	Interval    time.Duration `yaml:"interval"`
}

// LifecycleConfig holds shutdown settings
type LifecycleConfig struct {
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level string `yaml:"level"`
}
