package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibs-source/edge-gateway/internal/config"
	"github.com/ibs-source/edge-gateway/internal/dedup"
	"github.com/ibs-source/edge-gateway/internal/log"
	"github.com/ibs-source/edge-gateway/internal/message"
	"github.com/ibs-source/edge-gateway/internal/metrics"
	"github.com/ibs-source/edge-gateway/internal/mqtt"
	"github.com/ibs-source/edge-gateway/internal/mqtt/mqtttest"
)

// countingStore counts lookups made against the wrapped store
type countingStore struct {
	dedup.Store
	lookups atomic.Int64
	err     error
}

func (s *countingStore) Seen(ctx context.Context, id string) (bool, error) {
	s.lookups.Add(1)
	if s.err != nil {
		return false, s.err
	}
	return s.Store.Seen(ctx, id)
}

func (s *countingStore) CheckAndRecord(ctx context.Context, id string) (bool, error) {
	s.lookups.Add(1)
	if s.err != nil {
		return false, s.err
	}
	return s.Store.CheckAndRecord(ctx, id)
}

// contextStore fails once the context is done, as network backends do
type contextStore struct {
	dedup.Store
}

func (s contextStore) Seen(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Store.Seen(ctx, id)
}

func (s contextStore) CheckAndRecord(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.Store.CheckAndRecord(ctx, id)
}

type fixture struct {
	engine *Engine
	conn   *mqtttest.Conn
	store  *countingStore
	hook   *logtest.Hook
}

func newFixture(t *testing.T, recordSeen bool) *fixture {
	t.Helper()
	cfg := &config.Config{
		MQTT:   config.MQTTConfig{InputTopic: "gateway/input1"},
		Ingest: config.IngestConfig{Workers: 8, BufferCapacity: 16, AckTimeout: time.Second},
		Dedup:  config.DedupConfig{Backend: config.DedupBackendMemory, RecordSeen: recordSeen},
	}
	l, hook := logtest.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	conn := mqtttest.NewConn(256)
	store := &countingStore{Store: dedup.NewMemoryStore()}
	return &fixture{
		engine: New(conn, store, cfg, log.FromLogrus(l), metrics.Noop()),
		conn:   conn,
		store:  store,
		hook:   hook,
	}
}

func (f *fixture) countWarnings(prefix string) int {
	n := 0
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.HasPrefix(e.Message, prefix) {
			n++
		}
	}
	return n
}

func msgWithID(id string) message.Message {
	m := message.Message{ID: id, InputChannel: "gateway/input1", Body: []byte(`{"v":1}`)}
	m.AckToken = message.NewAckToken(&m)
	return m
}

func TestHandle_NewIDsRaiseNoDuplicate(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for i := range 10 {
		assert.Equal(t, message.AckNone, f.engine.Handle(ctx, msgWithID(fmt.Sprintf("id-%d", i))))
	}
	assert.Zero(t, f.countWarnings("Duplicate"))
	assert.Len(t, f.conn.Acked(), 10)
	assert.Equal(t, uint64(10), f.engine.Received())
}

func TestHandle_DuplicateWarnedOnEveryRepeat(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for range 4 {
		f.engine.Handle(ctx, msgWithID("repeat"))
	}
	assert.Equal(t, 3, f.countWarnings("Duplicate message id repeat"))
	assert.Len(t, f.conn.Acked(), 4)
}

func TestHandle_CheckOnlyNeverRecords(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.engine.Handle(ctx, msgWithID("a"))
	f.engine.Handle(ctx, msgWithID("a"))
	assert.Zero(t, f.countWarnings("Duplicate"))

	n, err := f.store.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// An id recorded elsewhere is still reported on each receipt.
	require.NoError(t, f.store.Record(ctx, "b"))
	f.engine.Handle(ctx, msgWithID("b"))
	f.engine.Handle(ctx, msgWithID("b"))
	assert.Equal(t, 2, f.countWarnings("Duplicate message id b"))
}

func TestHandle_MissingIDSkipsLookup(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	for _, id := range []string{"", "   ", "\t\n"} {
		assert.Equal(t, message.AckNone, f.engine.Handle(ctx, msgWithID(id)))
	}
	assert.Equal(t, 3, f.countWarnings("Message has no id"))
	assert.Zero(t, f.countWarnings("Duplicate"))
	assert.Zero(t, f.store.lookups.Load())
	assert.Len(t, f.conn.Acked(), 3)
}

func TestHandle_AckFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, true)
	f.conn.FailAcks(fmt.Errorf("%w: broker gone", mqtt.ErrAckFailed))

	assert.Equal(t, message.AckNone, f.engine.Handle(context.Background(), msgWithID("x")))

	last := f.hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Contains(t, last.Message, "Failed to acknowledge message x")
	assert.ErrorIs(t, last.Data[logrus.ErrorKey].(error), mqtt.ErrAckFailed)
}

func TestHandle_AckRunsAfterCancellation(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.engine.Handle(ctx, msgWithID("late"))
	assert.Len(t, f.conn.Acked(), 1)
}

func TestHandle_DuplicateDetectedAfterCancellation(t *testing.T) {
	f := newFixture(t, true)
	f.store.Store = contextStore{Store: dedup.NewMemoryStore()}

	f.engine.Handle(context.Background(), msgWithID("dup"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.engine.Handle(ctx, msgWithID("dup"))

	assert.Equal(t, 1, f.countWarnings("Duplicate message id dup"))
	assert.Len(t, f.conn.Acked(), 2)
	for _, e := range f.hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level, "unexpected error log: %s", e.Message)
	}
}

func TestHandle_LookupFailureTreatedAsNew(t *testing.T) {
	f := newFixture(t, true)
	f.store.err = errors.New("redis down")
	assert.Equal(t, message.AckNone, f.engine.Handle(context.Background(), msgWithID("x")))
	assert.Zero(t, f.countWarnings("Duplicate"))
	assert.Len(t, f.conn.Acked(), 1)
}

func TestHandle_InvalidUTF8Body(t *testing.T) {
	f := newFixture(t, true)
	m := msgWithID("bin")
	m.Body = []byte{0xff, 'o', 'k'}
	assert.Equal(t, message.AckNone, f.engine.Handle(context.Background(), m))

	var found bool
	for _, e := range f.hook.AllEntries() {
		if strings.HasPrefix(e.Message, "Received message #1") {
			found = true
			assert.Contains(t, e.Message, "�ok")
		}
	}
	assert.True(t, found)
}

func TestHandle_ConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			f.engine.Handle(ctx, msgWithID(id))
		}(fmt.Sprintf("id-%d", i%50))
	}
	wg.Wait()

	assert.Equal(t, uint64(100), f.engine.Received())
	assert.Equal(t, 50, f.countWarnings("Duplicate"))
	assert.Len(t, f.conn.Acked(), 100)
}

func TestRun_DrainsDeliveries(t *testing.T) {
	f := newFixture(t, true)
	for i := range 100 {
		f.conn.Deliver(msgWithID(fmt.Sprintf("id-%d", i%50)))
	}
	f.conn.EndDeliveries()

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after deliveries ended")
	}

	assert.Equal(t, uint64(100), f.engine.Received())
	assert.Equal(t, 50, f.countWarnings("Duplicate"))
	assert.Len(t, f.conn.Acked(), 100)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	f.conn.Deliver(msgWithID("one"))
	require.Eventually(t, func() bool { return f.engine.Received() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_ReceiveError(t *testing.T) {
	f := newFixture(t, true)
	f.engine.inputChannel = ""
	err := f.engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, mqtt.ErrInvalidChannel)
}

func TestNew_ClampsWorkers(t *testing.T) {
	cfg := &config.Config{Ingest: config.IngestConfig{Workers: 0}}
	e := New(mqtttest.NewConn(1), dedup.NewMemoryStore(), cfg, log.NewWithOutput(io.Discard, "error"), nil)
	assert.Equal(t, 1, e.workers)
}
