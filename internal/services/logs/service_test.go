package logsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/rzbill/flo-transform/internal/config"
	"github.com/rzbill/flo-transform/internal/eventlog"
	"github.com/rzbill/flo-transform/internal/runtime"
	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever, Config: cfgpkg.Default()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return New(rt, nil)
}

func values(entries []eventlog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.Value)
	}
	return out
}

func TestProduceAndRead(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	offsets, err := svc.Produce(ctx, "", "orders", 0, []eventlog.Record{{Value: []byte("a")}, {Value: []byte("b")}, {Value: []byte("c")}})
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3}, offsets)

	page, err := svc.Read(ReadRequest{Topic: "orders", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, values(page.Entries))
	assert.Equal(t, uint64(3), page.NextOffset)
	assert.Equal(t, uint64(3), page.LastOffset)
	assert.NotZero(t, page.Entries[0].TimestampMs)

	page, err = svc.Read(ReadRequest{Topic: "orders", Start: page.NextOffset})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, values(page.Entries))
	assert.Zero(t, page.NextOffset)
}

func TestProduceRejectsEmpty(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Produce(context.Background(), "", "orders", 0, nil)
	assert.True(t, errors.Is(err, ErrInvalid))
	_, err = svc.Produce(context.Background(), "", "", 0, []eventlog.Record{{}})
	assert.True(t, errors.Is(err, ErrInvalid))
}

type collectSink struct {
	got     []string
	flushes int
}

func (c *collectSink) Send(e eventlog.Entry) error { c.got = append(c.got, string(e.Value)); return nil }
func (c *collectSink) Flush() error               { c.flushes++; return nil }

func TestTailFromOffsetWithLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Produce(ctx, "", "orders", 0, []eventlog.Record{{Value: []byte("a")}, {Value: []byte("b")}, {Value: []byte("c")}})
	require.NoError(t, err)

	sink := &collectSink{}
	require.NoError(t, svc.Tail(ctx, "", "orders", 0, 2, 2, sink))
	assert.Equal(t, []string{"b", "c"}, sink.got)
	assert.Equal(t, 1, sink.flushes)
}

func TestTailWaitsForNewEntries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Produce(ctx, "", "orders", 0, []eventlog.Record{{Value: []byte("old")}})
	require.NoError(t, err)

	sink := &collectSink{}
	done := make(chan error, 1)
	go func() { done <- svc.Tail(ctx, "", "orders", 0, 0, 1, sink) }()

	time.Sleep(50 * time.Millisecond)
	_, err = svc.Produce(ctx, "", "orders", 0, []eventlog.Record{{Value: []byte("new")}})
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail did not deliver the new entry")
	}
	assert.Equal(t, []string{"new"}, sink.got)
}

func TestTailStopsOnCancel(t *testing.T) {
	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Tail(ctx, "", "orders", 0, 0, 0, &collectSink{}) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tail ignored cancellation")
	}
}
