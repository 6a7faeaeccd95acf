package mqtt

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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibs-source/edge-gateway/internal/config"
)

// writeKeyPair writes a self-signed certificate and its key, returning both paths
func writeKeyPair(t *testing.T) (certPath, keyPath string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestNewTLSConfig(t *testing.T) {
	certPath, keyPath := writeKeyPair(t)
	notPEM := filepath.Join(t.TempDir(), "README.md")
	require.NoError(t, os.WriteFile(notPEM, []byte("not a certificate"), 0o600))

	t.Run("CAOnly", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, CACert: certPath})
		require.NoError(t, err)
		assert.NotNil(t, tlsConfig.RootCAs)
		assert.False(t, tlsConfig.InsecureSkipVerify)
		assert.Empty(t, tlsConfig.Certificates)
	})

	t.Run("ClientCert", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, ClientCert: certPath, ClientKey: keyPath})
		require.NoError(t, err)
		assert.Len(t, tlsConfig.Certificates, 1)
	})

	t.Run("InsecureSkipVerify", func(t *testing.T) {
		tlsConfig, err := newTLSConfig(&config.MQTTConfig{TLSEnabled: true, InsecureSkip: true})
		require.NoError(t, err)
		assert.True(t, tlsConfig.InsecureSkipVerify)
	})

	t.Run("MissingCA", func(t *testing.T) {
		_, err := newTLSConfig(&config.MQTTConfig{CACert: "/nonexistent/ca.crt"})
		assert.Error(t, err)
	})

	t.Run("CorruptedCA", func(t *testing.T) {
		_, err := newTLSConfig(&config.MQTTConfig{CACert: notPEM})
		assert.Error(t, err)
	})

	t.Run("MismatchedKey", func(t *testing.T) {
		_, err := newTLSConfig(&config.MQTTConfig{ClientCert: certPath, ClientKey: "/nonexistent/key.pem"})
		assert.Error(t, err)
	})

	t.Run("KeyWithoutCert", func(t *testing.T) {
		_, err := newTLSConfig(&config.MQTTConfig{ClientKey: keyPath})
		assert.Error(t, err)
	})
}
