// Package telemetry generates synthetic sensor readings and publishes them periodically.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/message"
	"github.com/ibs-source/edge-gateway/internal/metrics"
	"github.com/ibs-source/edge-gateway/internal/mqtt"
	"github.com/ibs-source/edge-gateway/pkg/jsonfast"
)

// Interval is the fixed pause between two publishes
const Interval = 15 * time.Second

// Loop publishes one reading per Interval on the output channel
type Loop struct {
	conn          mqtt.Connection
	gen           *Generator
	outputChannel string
	interval      time.Duration
	maxFailures   int
	breaker       *gobreaker.CircuitBreaker
	buf           *jsonfast.Builder
	published     atomic.Uint64
	newID         func() string
	log           *log.Logger
	metrics       *metrics.Metrics
}

// NewLoop creates a publish loop borrowing conn
func NewLoop(conn mqtt.Connection, gen *Generator, cfg *config.Config, logger *log.Logger, m *metrics.Metrics) *Loop {
	maxFailures := cfg.Telemetry.MaxConsecutiveFailures
	if maxFailures < 1 {
		maxFailures = 1
	}
	l := &Loop{
		conn:          conn,
		gen:           gen,
		outputChannel: cfg.MQTT.OutputTopic,
		interval:      Interval,
		maxFailures:   maxFailures,
		buf:           jsonfast.New(24),
		newID:         uuid.NewString,
		log:           logger,
		metrics:       m,
	}
	l.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telemetry-publish",
		MaxRequests: 1,
		Interval:    0,
		Timeout:     cfg.Telemetry.BreakerResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures) // #nosec G115 - positive
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Publish circuit breaker state changed")
		},
	})
	return l
}

// Published returns the number of successful publishes
func (l *Loop) Published() uint64 {
	return l.published.Load()
}

// Run publishes until ctx is done, returning nil on cancellation.
// It returns an error wrapping mqtt.ErrPublishFailed once the breaker trips.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info("Starting telemetry loop on %s every %s", l.outputChannel, l.interval)

	for seq := uint64(1); ; seq++ {
		if ctx.Err() != nil {
			return nil
		}

		if err := l.publishOne(ctx, seq); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if l.breaker.State() == gobreaker.StateOpen {
				return fmt.Errorf("%w: giving up after %d consecutive failures: %w", mqtt.ErrPublishFailed, l.maxFailures, err)
			}
		}

		if !l.wait(ctx) {
			return nil
		}
	}
}

// wait pauses for the interval and reports false if ctx ended first
func (l *Loop) wait(ctx context.Context) bool {
	timer := time.NewTimer(l.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// publishOne sends a single reading through the breaker
func (l *Loop) publishOne(ctx context.Context, seq uint64) error {
	reading := l.gen.Next()
	msg := message.Message{ID: l.newID(), Body: encodeReading(l.buf, reading)}

	entry := l.log.WithFields(logrus.Fields{
		"seq": seq,
		"id":  msg.ID,
	})
	entry.Infof("Publishing telemetry #%d (id %s): %s", seq, msg.ID, msg.Body)

	_, err := l.breaker.Execute(func() (interface{}, error) {
		return nil, l.conn.Publish(ctx, l.outputChannel, msg)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return err
		}
		l.metrics.TelemetryFailure(ctx)
		entry.WithError(err).Errorf("Failed to publish telemetry #%d", seq)
		return err
	}

	l.published.Add(1)
	l.metrics.TelemetryPublished(ctx)
	entry.Infof("Published telemetry #%d (id %s)", seq, msg.ID)
	return nil
}

// encodeReading serializes a reading as {"temperature":N}, reusing b
func encodeReading(b *jsonfast.Builder, r message.TelemetryReading) []byte {
	b.Reset()
	b.BeginObject()
	b.AddIntField("temperature", r.Temperature)
	b.EndObject()
	return b.Clone()
}
