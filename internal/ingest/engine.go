// Package ingest consumes inbound broker messages, flags duplicates and acknowledges every delivery.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/dedup"
	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/message"
	"github.com/ibs-source/edge-gateway/internal/metrics"
	"github.com/ibs-source/edge-gateway/internal/mqtt"
)

// Engine handles messages delivered on the input channel
type Engine struct {
	conn           mqtt.Connection
	seen           dedup.Store
	inputChannel   string
	workers        int
	bufferCapacity int
	ackTimeout     time.Duration
	recordSeen     bool
	received       atomic.Uint64
	log            *log.Logger
	metrics        *metrics.Metrics
}

// New creates an ingest engine borrowing conn and owning seen
func New(conn mqtt.Connection, seen dedup.Store, cfg *config.Config, logger *log.Logger, m *metrics.Metrics) *Engine {
	workers := cfg.Ingest.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		conn:           conn,
		seen:           seen,
		inputChannel:   cfg.MQTT.InputTopic,
		workers:        workers,
		bufferCapacity: cfg.Ingest.BufferCapacity,
		ackTimeout:     cfg.Ingest.AckTimeout,
		recordSeen:     cfg.Dedup.RecordSeen,
		log:            logger,
		metrics:        m,
	}
}

// Received returns the number of messages handled so far
func (e *Engine) Received() uint64 {
	return e.received.Load()
}

// Run subscribes to the input channel and handles deliveries with a pool of workers.
// It returns once ctx is done (or the delivery channel is closed) and in-flight handlers finished.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("Starting ingest engine on %s with %d workers", e.inputChannel, e.workers)

	deliveries, err := e.conn.Receive(ctx, e.inputChannel)
	if err != nil {
		return fmt.Errorf("failed to receive from %s: %w", e.inputChannel, err)
	}

	queue := make(chan message.Message, e.bufferCapacity)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(queue)
		e.fetchLoop(ctx, deliveries, queue)
	}()

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.handleLoop(ctx, queue)
		}()
	}

	wg.Wait()
	e.log.Info("Ingest engine stopped after %d messages", e.Received())
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// fetchLoop moves deliveries into the bounded worker queue
func (e *Engine) fetchLoop(ctx context.Context, deliveries <-chan message.Message, queue chan<- message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case queue <- msg:
			case <-ctx.Done():
				// Unacknowledged; the broker redelivers it.
				return
			}
		}
	}
}

func (e *Engine) handleLoop(ctx context.Context, queue <-chan message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-queue:
			if !ok {
				return
			}
			e.Handle(ctx, msg)
		}
	}
}

// Handle processes one message. It never fails and always returns AckNone.
func (e *Engine) Handle(ctx context.Context, msg message.Message) message.AckDecision {
	count := e.received.Add(1)
	e.metrics.IngestReceived(ctx)

	body := strings.ToValidUTF8(string(msg.Body), "�")
	entry := e.log.WithFields(logrus.Fields{
		"channel": msg.InputChannel,
		"id":      msg.ID,
	})

	// A dispatched message runs to completion even after shutdown fires.
	workCtx := context.WithoutCancel(ctx)

	e.classify(workCtx, msg, entry)
	entry.Infof("Received message #%d on %s (id %s): %s", count, msg.InputChannel, msg.ID, body)

	e.acknowledge(workCtx, msg, entry)
	return message.AckNone
}

// bounded caps ctx with the ack timeout, if one is set
func (e *Engine) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.ackTimeout > 0 {
		return context.WithTimeout(ctx, e.ackTimeout)
	}
	return ctx, func() {}
}

// classify emits the missing-id or duplicate warning
func (e *Engine) classify(ctx context.Context, msg message.Message, entry *logrus.Entry) {
	if !msg.Identified() {
		e.metrics.IngestMissingID(ctx)
		entry.Warn("Message has no id; duplicate check skipped")
		return
	}

	lookupCtx, cancel := e.bounded(ctx)
	defer cancel()

	var (
		seen bool
		err  error
	)
	if e.recordSeen {
		seen, err = e.seen.CheckAndRecord(lookupCtx, msg.ID)
	} else {
		seen, err = e.seen.Seen(lookupCtx, msg.ID)
	}
	if err != nil {
		entry.WithError(err).Error("Seen-id lookup failed; message treated as new")
		return
	}
	if seen {
		e.metrics.IngestDuplicate(ctx)
		entry.Warnf("Duplicate message id %s", msg.ID)
	}
}

// acknowledge completes the delivery; failures are logged and swallowed
func (e *Engine) acknowledge(ctx context.Context, msg message.Message, entry *logrus.Entry) {
	ackCtx, cancel := e.bounded(ctx)
	defer cancel()

	err := e.conn.Acknowledge(ackCtx, msg.AckToken)
	e.metrics.IngestAck(ctx, err)
	if err != nil {
		entry.WithError(err).Errorf("Failed to acknowledge message %s", msg.ID)
		return
	}
	entry.Infof("Acknowledged message %s", msg.ID)
}
