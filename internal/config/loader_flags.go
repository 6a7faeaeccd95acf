package config

import (
	"flag"
	"time"
)

// flagValues holds command line flags (they have precedence over environment variables)
type flagValues struct {
	configFile string

	// MQTT flags
	mqttBroker            *string
	mqttClientID          *string
	mqttUsername          *string
	mqttPassword          *string
	mqttInputTopic        *string
	mqttOutputTopic       *string
	mqttQoS               *int
	mqttConnectTimeout    *time.Duration
	mqttWriteTimeout      *time.Duration
	mqttSubscribeTimeout  *time.Duration
	mqttMaxReconnect      *time.Duration
	mqttMaxReconnectTries *int
	mqttDisconnectTimeout *int
	mqttTLSEnabled        *bool
	mqttCACert            *string
	mqttClientCert        *string
	mqttClientKey         *string
	mqttTLSInsecureSkip   *bool
	mqttUseCertCNPrefix   *bool

	// Ingest flags
	ingestWorkers        *int
	ingestBufferCapacity *int
	ingestAckTimeout     *time.Duration

	// Telemetry flags
	telemetryMaxFailures  *int
	telemetryBreakerReset *time.Duration

	// Dedup and Redis flags
	dedupBackend    *string
	dedupRecordSeen *bool
	redisAddress    *string
	redisKey        *string
	redisDB         *int

	// Metrics flags
	metricsEnabled  *bool
	metricsEndpoint *string

	// Misc flags
	shutdownTimeout *time.Duration
	logLevel        *string

	set map[string]bool
}

// registerFlags declares every configuration flag on fs
func registerFlags(fs *flag.FlagSet) *flagValues {
	f := &flagValues{set: make(map[string]bool)}
	fs.StringVar(&f.configFile, "config", "", "Path to YAML configuration file")

	f.mqttBroker = fs.String("mqtt-broker", "", "MQTT broker URL")
	f.mqttClientID = fs.String("mqtt-client-id", "", "MQTT client ID")
	f.mqttUsername = fs.String("mqtt-username", "", "MQTT username")
	f.mqttPassword = fs.String("mqtt-password", "", "MQTT password")
	f.mqttInputTopic = fs.String("mqtt-input-topic", "", "MQTT topic the observer consumes")
	f.mqttOutputTopic = fs.String("mqtt-output-topic", "", "MQTT topic telemetry is published to")
	f.mqttQoS = fs.Int("mqtt-qos", -1, "MQTT QoS (0, 1, or 2)")
	f.mqttConnectTimeout = fs.Duration("mqtt-connect-timeout", 0, "MQTT connect timeout")
	f.mqttWriteTimeout = fs.Duration("mqtt-write-timeout", 0, "MQTT write timeout")
	f.mqttSubscribeTimeout = fs.Duration("mqtt-subscribe-timeout", 0, "MQTT subscribe timeout")
	f.mqttMaxReconnect = fs.Duration("mqtt-max-reconnect-interval", 0, "MQTT max reconnect interval")
	f.mqttMaxReconnectTries = fs.Int("mqtt-max-reconnect-attempts", 0, "MQTT reconnect attempts before the connection expires (0 = unlimited)")
	f.mqttDisconnectTimeout = fs.Int("mqtt-disconnect-timeout", 0, "MQTT disconnect timeout (ms)")
	f.mqttTLSEnabled = fs.Bool("mqtt-tls-enabled", false, "Enable MQTT TLS")
	f.mqttCACert = fs.String("mqtt-ca-cert", "", "MQTT CA certificate path")
	f.mqttClientCert = fs.String("mqtt-client-cert", "", "MQTT client certificate path")
	f.mqttClientKey = fs.String("mqtt-client-key", "", "MQTT client key path")
	f.mqttTLSInsecureSkip = fs.Bool("mqtt-tls-insecure-skip", false, "Skip MQTT TLS verification")
	f.mqttUseCertCNPrefix = fs.Bool("mqtt-use-cert-cn-prefix", false, "Prefix topics with client cert CN")

	f.ingestWorkers = fs.Int("ingest-workers", 0, "Number of concurrent message handlers")
	f.ingestBufferCapacity = fs.Int("ingest-buffer-capacity", 0, "Inbound delivery buffer capacity")
	f.ingestAckTimeout = fs.Duration("ingest-ack-timeout", 0, "Acknowledge timeout")

	f.telemetryMaxFailures = fs.Int("telemetry-max-consecutive-failures", 0, "Consecutive publish failures before the loop stops")
	f.telemetryBreakerReset = fs.Duration("telemetry-breaker-reset-timeout", 0, "Publish circuit breaker reset timeout")

	f.dedupBackend = fs.String("dedup-backend", "", "Seen-id store backend (memory or redis)")
	f.dedupRecordSeen = fs.Bool("dedup-record-seen", true, "Record ids of received messages")
	f.redisAddress = fs.String("redis-address", "", "Redis address")
	f.redisKey = fs.String("redis-key", "", "Redis set key holding seen ids")
	f.redisDB = fs.Int("redis-db", -1, "Redis database number")

	f.metricsEnabled = fs.Bool("metrics-enabled", false, "Export OTLP metrics")
	f.metricsEndpoint = fs.String("metrics-endpoint", "", "OTLP gRPC endpoint")

	f.shutdownTimeout = fs.Duration("shutdown-timeout", 0, "Graceful shutdown timeout")
	f.logLevel = fs.String("log-level", "", "Log level")
	return f
}

// markSet records which flags were explicitly given on the command line
func (f *flagValues) markSet(fs *flag.FlagSet) {
	fs.Visit(func(fl *flag.Flag) {
		f.set[fl.Name] = true
	})
}

func (f *flagValues) isSet(name string) bool {
	return f.set[name]
}

// applyMQTTFlags applies command line flags to MQTT configuration
func (f *flagValues) applyMQTTFlags(cfg *MQTTConfig) {
	applyString(f, "mqtt-broker", f.mqttBroker, &cfg.Broker)
	applyString(f, "mqtt-client-id", f.mqttClientID, &cfg.ClientID)
	applyString(f, "mqtt-username", f.mqttUsername, &cfg.Username)
	applyString(f, "mqtt-password", f.mqttPassword, &cfg.Password)
	applyString(f, "mqtt-input-topic", f.mqttInputTopic, &cfg.InputTopic)
	applyString(f, "mqtt-output-topic", f.mqttOutputTopic, &cfg.OutputTopic)
	applyString(f, "mqtt-ca-cert", f.mqttCACert, &cfg.CACert)
	applyString(f, "mqtt-client-cert", f.mqttClientCert, &cfg.ClientCert)
	applyString(f, "mqtt-client-key", f.mqttClientKey, &cfg.ClientKey)

	if f.isSet("mqtt-qos") && *f.mqttQoS >= 0 && *f.mqttQoS <= 2 {
		cfg.QoS = byte(*f.mqttQoS) // #nosec G115 - validated range 0-2
	}
	if f.isSet("mqtt-max-reconnect-attempts") && *f.mqttMaxReconnectTries >= 0 {
		cfg.MaxReconnectAttempts = *f.mqttMaxReconnectTries
	}
	if f.isSet("mqtt-disconnect-timeout") && *f.mqttDisconnectTimeout > 0 {
		cfg.DisconnectTimeout = uint(*f.mqttDisconnectTimeout) // #nosec G115 - validated positive
	}

	applyDuration(f, "mqtt-connect-timeout", f.mqttConnectTimeout, &cfg.ConnectTimeout)
	applyDuration(f, "mqtt-write-timeout", f.mqttWriteTimeout, &cfg.WriteTimeout)
	applyDuration(f, "mqtt-subscribe-timeout", f.mqttSubscribeTimeout, &cfg.SubscribeTimeout)
	applyDuration(f, "mqtt-max-reconnect-interval", f.mqttMaxReconnect, &cfg.MaxReconnectInterval)

	applyBool(f, "mqtt-tls-enabled", f.mqttTLSEnabled, &cfg.TLSEnabled)
	applyBool(f, "mqtt-tls-insecure-skip", f.mqttTLSInsecureSkip, &cfg.InsecureSkip)
	applyBool(f, "mqtt-use-cert-cn-prefix", f.mqttUseCertCNPrefix, &cfg.UseCertCNPrefix)
}

// applyProcessFlags applies command line flags to the remaining sections
func (f *flagValues) applyProcessFlags(cfg *Config) {
	applyInt(f, "ingest-workers", f.ingestWorkers, &cfg.Ingest.Workers)
	applyInt(f, "ingest-buffer-capacity", f.ingestBufferCapacity, &cfg.Ingest.BufferCapacity)
	applyDuration(f, "ingest-ack-timeout", f.ingestAckTimeout, &cfg.Ingest.AckTimeout)

	applyInt(f, "telemetry-max-consecutive-failures", f.telemetryMaxFailures, &cfg.Telemetry.MaxConsecutiveFailures)
	applyDuration(f, "telemetry-breaker-reset-timeout", f.telemetryBreakerReset, &cfg.Telemetry.BreakerResetTimeout)

	applyString(f, "dedup-backend", f.dedupBackend, &cfg.Dedup.Backend)
	applyBool(f, "dedup-record-seen", f.dedupRecordSeen, &cfg.Dedup.RecordSeen)
	applyString(f, "redis-address", f.redisAddress, &cfg.Redis.Address)
	applyString(f, "redis-key", f.redisKey, &cfg.Redis.Key)
	if f.isSet("redis-db") && *f.redisDB >= 0 {
		cfg.Redis.DB = *f.redisDB
	}

	applyBool(f, "metrics-enabled", f.metricsEnabled, &cfg.Metrics.Enabled)
	applyString(f, "metrics-endpoint", f.metricsEndpoint, &cfg.Metrics.Endpoint)

	applyDuration(f, "shutdown-timeout", f.shutdownTimeout, &cfg.Lifecycle.ShutdownTimeout)
	applyString(f, "log-level", f.logLevel, &cfg.Log.Level)
}

func applyString(f *flagValues, name string, v *string, dst *string) {
	if f.isSet(name) && *v != "" {
		*dst = *v
	}
}

func applyInt(f *flagValues, name string, v *int, dst *int) {
	if f.isSet(name) {
		*dst = *v
	}
}

func applyDuration(f *flagValues, name string, v *time.Duration, dst *time.Duration) {
	if f.isSet(name) && *v != 0 {
		*dst = *v
	}
}

func applyBool(f *flagValues, name string, v *bool, dst *bool) {
	if f.isSet(name) {
		*dst = *v
	}
}
