package config

import (
	"flag"
	"fmt"
	"os"
)

// ConfigFileEnv names the environment variable that may point to a YAML configuration file
const ConfigFileEnv = "GATEWAY_CONFIG"

// Load loads configuration from the process command line.
// See LoadArgs for the precedence rules.
func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs loads configuration with precedence: defaults → YAML file → environment variables → command line flags.
// It performs validation and runtime transformations before returning the configuration.
func LoadArgs(args []string) (*Config, error) {
	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	flags := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}
	flags.markSet(fs)

	// Step 1: Start with defaults
	cfg := defaultConfig()

	// Step 2: Apply the YAML file, if any
	path := flags.configFile
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// Step 3: Apply environment variables
	loadMQTTFromEnv(&cfg.MQTT)
	loadIngestFromEnv(&cfg.Ingest)
	loadTelemetryFromEnv(&cfg.Telemetry)
	loadDedupFromEnv(&cfg.Dedup)
	loadRedisFromEnv(&cfg.Redis)
	loadMetricsFromEnv(&cfg.Metrics)
	loadMiscFromEnv(cfg)

	// Step 4: Apply command line flags (highest precedence)
	flags.applyMQTTFlags(&cfg.MQTT)
	flags.applyProcessFlags(cfg)

	// Step 5: Apply runtime validations and transformations
	if err := applyRuntimeValidation(cfg); err != nil {
		return nil, err
	}

	// Step 6: Validate the final configuration
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
