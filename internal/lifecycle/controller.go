// Package lifecycle owns the process-wide cancellation signal.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ibs-source/edge-gateway/internal/log"
)

// Reason names what fired the cancellation signal
type Reason int

const (
	// ReasonNone means the signal has not fired
	ReasonNone Reason = iota
	// ReasonUnload means the runtime is stopping the module (SIGTERM)
	ReasonUnload
	// ReasonInterrupt means an operator interrupted the process (SIGINT)
	ReasonInterrupt
	// ReasonFatal means a worker failed and the process must stop
	ReasonFatal
	// ReasonParent means the parent context ended
	ReasonParent
	// ReasonStopped means Stop was called before any trigger
	ReasonStopped
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonUnload:
		return "environment unload"
	case ReasonInterrupt:
		return "operator interrupt"
	case ReasonFatal:
		return "fatal error"
	case ReasonParent:
		return "parent context done"
	case ReasonStopped:
		return "stopped"
	}
	return "unknown"
}

// Err returns the context cause recorded for r
func (r Reason) Err() error {
	return &ShutdownError{Reason: r}
}

// ShutdownError is the context cause attached when the signal fires
type ShutdownError struct {
	Reason Reason
}

func (e *ShutdownError) Error() string {
	return "shutdown: " + e.Reason.String()
}

// Controller fires once, on the first of SIGTERM, SIGINT, Fire or parent cancellation
type Controller struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu     sync.Mutex
	reason Reason

	signals  chan os.Signal
	stop     chan struct{}
	stopOnce sync.Once
	notify   bool
	log      *log.Logger
}

// New creates a controller listening for SIGTERM and SIGINT
func New(parent context.Context, logger *log.Logger) *Controller {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, os.Interrupt)
	c := newController(parent, logger, signals)
	c.notify = true
	return c
}

// newController creates a controller fed by an arbitrary signal channel
func newController(parent context.Context, logger *log.Logger, signals chan os.Signal) *Controller {
	ctx, cancel := context.WithCancelCause(parent)
	c := &Controller{
		ctx:     ctx,
		cancel:  cancel,
		signals: signals,
		stop:    make(chan struct{}),
		log:     logger,
	}
	go c.watch()
	return c
}

func (c *Controller) watch() {
	for {
		select {
		case sig := <-c.signals:
			c.log.Info("Received signal %v", sig)
			c.Fire(reasonFor(sig))
		case <-c.ctx.Done():
			return
		case <-c.stop:
			return
		}
	}
}

func reasonFor(sig os.Signal) Reason {
	if sig == syscall.SIGTERM {
		return ReasonUnload
	}
	return ReasonInterrupt
}

// Fire triggers the signal. Only the first call has an effect.
func (c *Controller) Fire(reason Reason) {
	c.mu.Lock()
	if c.reason != ReasonNone {
		c.mu.Unlock()
		return
	}
	c.reason = reason
	c.mu.Unlock()

	c.log.Info("Shutdown requested: %s", reason)
	c.cancel(reason.Err())
}

// Context returns the context cancelled when the signal fires
func (c *Controller) Context() context.Context {
	return c.ctx
}

// Done is closed when the signal fires
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Wait blocks until the signal fires and returns its reason
func (c *Controller) Wait() Reason {
	<-c.ctx.Done()
	return c.Cause()
}

// Cause returns the reason of the first trigger, ReasonNone while not fired.
// After Stop without any trigger it returns ReasonStopped.
func (c *Controller) Cause() Reason {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reason != ReasonNone {
		return c.reason
	}
	if c.ctx.Err() != nil {
		return ReasonParent
	}
	return ReasonNone
}

// Stop unregisters signal handlers and releases the context
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		if c.notify {
			signal.Stop(c.signals)
		}
		close(c.stop)
	})

	c.mu.Lock()
	if c.reason == ReasonNone {
		if c.ctx.Err() != nil {
			c.reason = ReasonParent
		} else {
			c.reason = ReasonStopped
		}
	}
	reason := c.reason
	c.mu.Unlock()
	c.cancel(reason.Err())
}
