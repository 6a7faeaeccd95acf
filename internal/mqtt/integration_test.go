package mqtt

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/message"
)

// integrationClient connects to the broker named by MQTT_TEST_BROKER or skips the test
func integrationClient(t *testing.T, clientID string) *Client {
	t.Helper()
	broker := os.Getenv("MQTT_TEST_BROKER")
	if broker == "" {
		t.Skip("MQTT_TEST_BROKER not set")
	}

	cfg := testConfig()
	cfg.Broker = broker
	cfg.ClientID = clientID
	cfg.ConnectTimeout = 5 * time.Second
	cfg.WriteTimeout = 5 * time.Second
	cfg.SubscribeTimeout = 5 * time.Second

	c, err := NewClient(cfg, log.NewWithOutput(io.Discard, "error"))
	require.NoError(t, err)
	if err := c.Connect(context.Background()); err != nil {
		t.Skipf("Skipping MQTT test: %v (broker not available?)", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestIntegration_PublishReceiveAck(t *testing.T) {
	sub := integrationClient(t, "it-sub-"+uuid.NewString()[:8])
	pub := integrationClient(t, "it-pub-"+uuid.NewString()[:8])
	topic := "edge-gateway/it/" + uuid.NewString()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deliveries, err := sub.Receive(ctx, topic)
	require.NoError(t, err)

	id := uuid.NewString()
	require.NoError(t, pub.Publish(ctx, topic, message.Message{ID: id, Body: []byte(`{"temperature":70}`)}))

	select {
	case msg := <-deliveries:
		assert.Equal(t, id, msg.ID)
		assert.Equal(t, topic, msg.InputChannel)
		assert.JSONEq(t, `{"temperature":70}`, string(msg.Body))
		assert.NoError(t, sub.Acknowledge(ctx, msg.AckToken))
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}

	cancel()
	for range deliveries {
	}
}
