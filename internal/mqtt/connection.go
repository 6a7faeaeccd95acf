// Package mqtt provides the broker connection used by the observer and telemetry processes.
package mqtt

import (
	"context"

	"github.com/ibs-source/edge-gateway/internal/message"
)

// Connection is the broker collaborator the lifecycle engine depends on.
// Implemented by *Client and by the fake in package mqtttest.
type Connection interface {
	// Connect opens the connection; failures wrap ErrConnectionFailed.
	Connect(ctx context.Context) error
	// StatusChanges delivers connection transitions to a single consumer.
	// The channel is closed by Close.
	StatusChanges() <-chan StatusChange
	// Receive subscribes to channel and delivers inbound messages until ctx is done.
	Receive(ctx context.Context, channel string) (<-chan message.Message, error)
	// Acknowledge completes a delivered message.
	Acknowledge(ctx context.Context, token message.AckToken) error
	// Publish sends msg on channel.
	Publish(ctx context.Context, channel string, msg message.Message) error
	// Close releases the connection.
	Close() error
}

// Ensure Client implements Connection
var _ Connection = (*Client)(nil)
