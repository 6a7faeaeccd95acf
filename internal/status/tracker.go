// Package status observes broker connection transitions and logs each one.
package status

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/metrics"
	"github.com/ibs-source/edge-gateway/internal/mqtt"
)

// Record is the most recently observed connection state
type Record struct {
	State  mqtt.ConnectionState
	Reason mqtt.StatusReason
	At     time.Time
}

// Tracker records connection transitions. It never acts on them.
type Tracker struct {
	mu          sync.RWMutex
	current     Record
	transitions atomic.Uint64

	now     func() time.Time
	log     *log.Logger
	metrics *metrics.Metrics
}

// NewTracker creates a tracker starting in the Disconnected state
func NewTracker(logger *log.Logger, m *metrics.Metrics) *Tracker {
	t := &Tracker{
		now:     time.Now,
		log:     logger,
		metrics: m,
	}
	t.current = Record{State: mqtt.Disconnected, Reason: mqtt.ConnectionOK, At: t.now()}
	return t
}

// OnStatusChanged records a transition and logs it.
// Repeated transitions to the same state are logged again.
func (t *Tracker) OnStatusChanged(state mqtt.ConnectionState, reason mqtt.StatusReason) {
	t.record(mqtt.StatusChange{State: state, Reason: reason, At: t.now()})
}

func (t *Tracker) record(change mqtt.StatusChange) {
	if change.At.IsZero() {
		change.At = t.now()
	}
	t.mu.Lock()
	t.current = Record{State: change.State, Reason: change.Reason, At: change.At}
	t.mu.Unlock()
	t.transitions.Add(1)
	t.metrics.ConnectionTransition(context.Background(), change.State.String())

	entry := t.log.WithFields(logrus.Fields{
		"state":  change.State.String(),
		"reason": change.Reason.String(),
	})
	if change.Err != nil {
		entry = entry.WithError(change.Err)
	}
	if isDown(change.State) {
		entry.Warnf("Connection status changed to %s (%s)", change.State, change.Reason)
		return
	}
	entry.Infof("Connection status changed to %s (%s)", change.State, change.Reason)
}

// Run consumes changes until the channel is closed
func (t *Tracker) Run(changes <-chan mqtt.StatusChange) {
	for change := range changes {
		t.record(change)
	}
}

// Current returns the last recorded state
func (t *Tracker) Current() Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Transitions returns the number of transitions observed
func (t *Tracker) Transitions() uint64 {
	return t.transitions.Load()
}

func isDown(state mqtt.ConnectionState) bool {
	switch state {
	case mqtt.Disconnected, mqtt.DisconnectedRetrying, mqtt.Expired:
		return true
	}
	return false
}
