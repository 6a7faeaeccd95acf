package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/message"
)

// statusBuffer bounds the status channel; transitions are rare
const statusBuffer = 256

// acker is the part of a delivered paho message used for manual acknowledgment
type acker interface {
	Ack()
}

// Client is the paho-backed broker connection.
// Messages are acknowledged manually; auto-ack is disabled.
type Client struct {
	client            pahomqtt.Client
	qos               byte
	connectTimeout    time.Duration
	writeTimeout      time.Duration
	subscribeTimeout  time.Duration
	disconnectTimeout uint
	maxReconnects     int
	reconnects        atomic.Int64
	expired           atomic.Bool

	status       chan StatusChange
	statusMu     sync.RWMutex
	statusClosed bool
	closeOnce    sync.Once

	now func() time.Time
	log *log.Logger
}

// NewClient creates an unconnected MQTT client.
// Call Connect once the status consumer is attached.
func NewClient(cfg *config.MQTTConfig, logger *log.Logger) (*Client, error) {
	c := &Client{
		qos:               cfg.QoS,
		connectTimeout:    cfg.ConnectTimeout,
		writeTimeout:      cfg.WriteTimeout,
		subscribeTimeout:  cfg.SubscribeTimeout,
		disconnectTimeout: cfg.DisconnectTimeout,
		maxReconnects:     cfg.MaxReconnectAttempts,
		status:            make(chan StatusChange, statusBuffer),
		now:               time.Now,
		log:               logger,
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetWriteTimeout(cfg.WriteTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(cfg.MaxReconnectInterval)
	opts.SetConnectRetry(false)

	// A persistent session lets the broker redeliver unacknowledged QoS>0 messages.
	opts.SetCleanSession(cfg.QoS == 0)
	opts.SetResumeSubs(true)
	opts.SetAutoAckDisabled(true)
	opts.SetOrderMatters(false)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleConnectionLost(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		c.handleReconnecting()
	})

	if cfg.TLSEnabled {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = pahomqtt.NewClient(opts)
	return c, nil
}

// Connect opens the connection to the broker
func (c *Client) Connect(ctx context.Context) error {
	token := c.client.Connect()
	if err := waitToken(ctx, token, c.connectTimeout); err != nil {
		reason := CommunicationError
		if isCredentialError(err) {
			reason = BadCredential
		}
		c.emit(Disconnected, reason, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

func isCredentialError(err error) bool {
	return errors.Is(err, packets.ErrorRefusedBadUsernameOrPassword) ||
		errors.Is(err, packets.ErrorRefusedNotAuthorised)
}

// StatusChanges returns the channel carrying connection transitions
func (c *Client) StatusChanges() <-chan StatusChange {
	return c.status
}

func (c *Client) handleConnect() {
	c.reconnects.Store(0)
	c.emit(Connected, ConnectionOK, nil)
}

func (c *Client) handleConnectionLost(err error) {
	if c.expired.Load() {
		return
	}
	c.emit(DisconnectedRetrying, CommunicationError, err)
}

func (c *Client) handleReconnecting() {
	attempt := c.reconnects.Add(1)
	if c.maxReconnects > 0 && attempt > int64(c.maxReconnects) {
		if c.expired.CompareAndSwap(false, true) {
			c.emit(Expired, RetryExpired, fmt.Errorf("gave up after %d reconnect attempts", c.maxReconnects))
			// Disconnect must not run on paho's reconnect goroutine.
			go c.client.Disconnect(0)
		}
		return
	}
	c.emit(DisconnectedRetrying, NoNetwork, nil)
}

// emit queues a status change for the single consumer without blocking paho's goroutines
func (c *Client) emit(state ConnectionState, reason StatusReason, err error) {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	if c.statusClosed {
		return
	}
	select {
	case c.status <- StatusChange{State: state, Reason: reason, Err: err, At: c.now()}:
	default:
		c.log.Warn("Status change %s/%s dropped: consumer not keeping up", state, reason)
	}
}

// Receive subscribes to the topic and forwards deliveries on the returned channel.
// The channel is closed after ctx is done and the subscription is released.
func (c *Client) Receive(ctx context.Context, channel string) (<-chan message.Message, error) {
	if channel == "" {
		return nil, ErrInvalidChannel
	}

	out := make(chan message.Message, statusBuffer)
	var (
		mu     sync.RWMutex
		closed bool
	)

	handler := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		m := toMessage(msg.Topic(), msg.Payload(), message.NewAckToken(msg))
		select {
		case out <- m:
		case <-ctx.Done():
			// Not acknowledged: the broker redelivers it to the next session.
		}
	}

	token := c.client.Subscribe(channel, c.qos, handler)
	if err := waitToken(ctx, token, c.subscribeTimeout); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, channel, err)
	}
	c.log.Info("Subscribed to %s (qos %d)", channel, c.qos)

	go func() {
		<-ctx.Done()
		unsub := c.client.Unsubscribe(channel)
		if !unsub.WaitTimeout(c.subscribeTimeout) {
			c.log.Warn("Unsubscribe from %s timed out", channel)
		}
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()

	return out, nil
}

// Acknowledge completes a delivered message
func (c *Client) Acknowledge(ctx context.Context, token message.AckToken) error {
	msg, ok := token.Ref().(acker)
	if !ok {
		return ErrInvalidAckToken
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAckFailed, err)
	}
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("%w: %w", ErrAckFailed, ErrNotConnected)
	}
	msg.Ack()
	return nil
}

// Publish frames msg with its id and sends it to the topic
func (c *Client) Publish(ctx context.Context, channel string, msg message.Message) error {
	if channel == "" {
		return ErrInvalidChannel
	}
	payload := encodeEnvelope(msg.ID, msg.Body, c.now())
	token := c.client.Publish(channel, c.qos, false, payload)
	if err := waitToken(ctx, token, c.writeTimeout); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects from the broker and closes the status channel
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.client.IsConnectionOpen() {
			c.client.Disconnect(c.disconnectTimeout)
		}
		c.emit(Closed, ClientClose, nil)

		c.statusMu.Lock()
		c.statusClosed = true
		close(c.status)
		c.statusMu.Unlock()
	})
	return nil
}

// waitToken waits for a paho token honouring both ctx and the timeout
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return ErrTimeout
	}
}
