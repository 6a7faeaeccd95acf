// Package mqtttest provides an in-memory mqtt.Connection for tests.
package mqtttest

import (
	"context"
	"sync"
	"time"

	"github.com/ibs-source/edge-gateway/internal/message"
	"github.com/ibs-source/edge-gateway/internal/mqtt"
)

// Published is one message handed to Publish
type Published struct {
	Channel string
	Message message.Message
}

// Conn is a fake connection. Deliver pushes inbound messages, SetStatus pushes transitions.
type Conn struct {
	mu        sync.Mutex
	acked     []message.AckToken
	published []Published
	ackErr    error
	pubErrs   []error
	pubErr    error
	connErr   error
	closed    bool

	deliveries chan message.Message
	status     chan mqtt.StatusChange
	closeOnce  sync.Once

	// PublishCalls receives a signal after every Publish call, successful or not
	PublishCalls chan struct{}
}

// NewConn creates a fake connection with the given inbound buffer
func NewConn(buffer int) *Conn {
	return &Conn{
		deliveries:   make(chan message.Message, buffer),
		status:       make(chan mqtt.StatusChange, 64),
		PublishCalls: make(chan struct{}, 1024),
	}
}

// FailConnect makes Connect return err
func (c *Conn) FailConnect(err error) {
	c.mu.Lock()
	c.connErr = err
	c.mu.Unlock()
}

// FailAcks makes every Acknowledge return err
func (c *Conn) FailAcks(err error) {
	c.mu.Lock()
	c.ackErr = err
	c.mu.Unlock()
}

// FailPublishes queues errors returned by the next Publish calls in order; nil entries succeed
func (c *Conn) FailPublishes(errs ...error) {
	c.mu.Lock()
	c.pubErrs = append(c.pubErrs, errs...)
	c.mu.Unlock()
}

// FailAllPublishes makes Publish return err once queued errors are consumed
func (c *Conn) FailAllPublishes(err error) {
	c.mu.Lock()
	c.pubErr = err
	c.mu.Unlock()
}

// Deliver queues an inbound message with an ack token pointing at itself
func (c *Conn) Deliver(msg message.Message) {
	if msg.AckToken.IsZero() {
		msg.AckToken = message.NewAckToken(&msg)
	}
	c.deliveries <- msg
}

// EndDeliveries closes the inbound channel as if the subscription ended
func (c *Conn) EndDeliveries() {
	close(c.deliveries)
}

// SetStatus emits a connection transition
func (c *Conn) SetStatus(state mqtt.ConnectionState, reason mqtt.StatusReason) {
	c.status <- mqtt.StatusChange{State: state, Reason: reason, At: time.Now()}
}

// Connect implements mqtt.Connection
func (c *Conn) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	err := c.connErr
	c.mu.Unlock()
	if err != nil {
		return err
	}
	c.SetStatus(mqtt.Connected, mqtt.ConnectionOK)
	return nil
}

// StatusChanges implements mqtt.Connection
func (c *Conn) StatusChanges() <-chan mqtt.StatusChange {
	return c.status
}

// Receive implements mqtt.Connection; the channel argument is ignored
func (c *Conn) Receive(ctx context.Context, channel string) (<-chan message.Message, error) {
	if channel == "" {
		return nil, mqtt.ErrInvalidChannel
	}
	out := make(chan message.Message)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-c.deliveries:
				if !ok {
					return
				}
				select {
				case out <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Acknowledge implements mqtt.Connection
func (c *Conn) Acknowledge(ctx context.Context, token message.AckToken) error {
	if token.IsZero() {
		return mqtt.ErrInvalidAckToken
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ackErr != nil {
		return c.ackErr
	}
	c.acked = append(c.acked, token)
	return nil
}

// Publish implements mqtt.Connection
func (c *Conn) Publish(ctx context.Context, channel string, msg message.Message) error {
	defer func() {
		select {
		case c.PublishCalls <- struct{}{}:
		default:
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.pubErr
	if len(c.pubErrs) > 0 {
		err = c.pubErrs[0]
		c.pubErrs = c.pubErrs[1:]
	}
	if err != nil {
		return err
	}
	c.published = append(c.published, Published{Channel: channel, Message: msg})
	return nil
}

// Close implements mqtt.Connection
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		c.status <- mqtt.StatusChange{State: mqtt.Closed, Reason: mqtt.ClientClose, At: time.Now()}
		close(c.status)
	})
	return nil
}

// Acked returns the acknowledged tokens
func (c *Conn) Acked() []message.AckToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message.AckToken(nil), c.acked...)
}

// PublishedMessages returns the successfully published messages
func (c *Conn) PublishedMessages() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.published...)
}

// Closed reports whether Close was called
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ mqtt.Connection = (*Conn)(nil)
