package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// envVars lists every variable the loader reads
var envVars = []string{
	ConfigFileEnv,
	"MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_USERNAME", "MQTT_PASSWORD",
	"MQTT_INPUT_TOPIC", "MQTT_OUTPUT_TOPIC", "MQTT_QOS",
	"MQTT_CONNECT_TIMEOUT", "MQTT_WRITE_TIMEOUT", "MQTT_SUBSCRIBE_TIMEOUT",
	"MQTT_MAX_RECONNECT_INTERVAL", "MQTT_MAX_RECONNECT_ATTEMPTS", "MQTT_DISCONNECT_TIMEOUT",
	"MQTT_TLS_ENABLED", "MQTT_CA_CERT", "MQTT_CLIENT_CERT", "MQTT_CLIENT_KEY",
	"MQTT_TLS_INSECURE_SKIP", "MQTT_USE_CERT_CN_PREFIX",
	"INGEST_WORKERS", "INGEST_BUFFER_CAPACITY", "INGEST_ACK_TIMEOUT",
	"TELEMETRY_MAX_CONSECUTIVE_FAILURES", "TELEMETRY_BREAKER_RESET_TIMEOUT",
	"DEDUP_BACKEND", "DEDUP_RECORD_SEEN",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY",
	"REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT", "REDIS_PING_TIMEOUT",
	"METRICS_ENABLED", "METRICS_ENDPOINT", "METRICS_SERVICE_NAME", "METRICS_INTERVAL",
	"LIFECYCLE_SHUTDOWN_TIMEOUT", "LOG_LEVEL",
}

// clearTestEnv blanks every loader variable for the duration of the test
func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

// writeFile writes content into a temporary file and returns its path
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// writeSelfSignedCert writes a PEM certificate with the given CN and returns its path
func writeSelfSignedCert(t *testing.T, cn string) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	return writeFile(t, "cert.pem", string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})))
}
