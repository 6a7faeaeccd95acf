package config

import "fmt"

// Validate checks configuration constraints
func Validate(cfg *Config) error {
	if err := validateMQTT(&cfg.MQTT); err != nil {
		return err
	}
	if err := validateIngest(&cfg.Ingest); err != nil {
		return err
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	if err := validateDedup(cfg); err != nil {
		return err
	}
	return validateMetrics(&cfg.Metrics)
}

// validateMQTT validates MQTT configuration
func validateMQTT(cfg *MQTTConfig) error {
	if cfg.Broker == "" {
		return fmt.Errorf("mqtt broker cannot be empty")
	}
	if cfg.ClientID == "" {
		return fmt.Errorf("mqtt client ID cannot be empty")
	}
	if cfg.InputTopic == "" {
		return fmt.Errorf("mqtt input topic cannot be empty")
	}
	if cfg.OutputTopic == "" {
		return fmt.Errorf("mqtt output topic cannot be empty")
	}
	if cfg.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	if cfg.MaxReconnectAttempts < 0 {
		return fmt.Errorf("mqtt max reconnect attempts cannot be negative")
	}
	if cfg.ConnectTimeout <= 0 {
		return fmt.Errorf("mqtt connect timeout must be positive")
	}
	return nil
}

// validateIngest validates ingest configuration
func validateIngest(cfg *IngestConfig) error {
	if cfg.Workers < 1 {
		return fmt.Errorf("ingest workers must be positive")
	}
	if cfg.BufferCapacity < 1 {
		return fmt.Errorf("ingest buffer capacity must be positive")
	}
	if cfg.AckTimeout <= 0 {
		return fmt.Errorf("ingest ack timeout must be positive")
	}
	return nil
}

// validateTelemetry validates telemetry configuration
func validateTelemetry(cfg *TelemetryConfig) error {
	if cfg.MaxConsecutiveFailures < 1 {
		return fmt.Errorf("telemetry max consecutive failures must be positive")
	}
	return nil
}

// validateDedup validates the seen-id store selection
func validateDedup(cfg *Config) error {
	switch cfg.Dedup.Backend {
	case DedupBackendMemory:
		return nil
	case DedupBackendRedis:
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis address cannot be empty when dedup backend is redis")
		}
		if cfg.Redis.Key == "" {
			return fmt.Errorf("redis key cannot be empty when dedup backend is redis")
		}
		return nil
	}
	return fmt.Errorf("unknown dedup backend %q", cfg.Dedup.Backend)
}

// validateMetrics validates metrics configuration
func validateMetrics(cfg *MetricsConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Endpoint == "" {
		return fmt.Errorf("metrics endpoint cannot be empty when metrics are enabled")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("metrics interval must be positive")
	}
	return nil
}
