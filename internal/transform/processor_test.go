package transform

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/flo-transform/internal/eventlog"
	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
)

const waitFor = 5 * time.Second

func newLogs(t *testing.T) (src, sink *eventlog.Log) {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	src, err = eventlog.OpenLog(db, "default", "in", 0)
	require.NoError(t, err)
	sink, err = eventlog.OpenLog(db, "default", "out", 0)
	require.NoError(t, err)
	return src, sink
}

func appendValues(t *testing.T, l *eventlog.Log, values ...string) {
	t.Helper()
	recs := make([]eventlog.Record, len(values))
	for i, v := range values {
		recs[i] = eventlog.Record{Value: []byte(v)}
	}
	_, err := l.Append(context.Background(), recs)
	require.NoError(t, err)
}

func sinkValues(l *eventlog.Log) []string {
	entries, _ := l.Read(eventlog.ReadOptions{})
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = string(e.Value)
	}
	return out
}

func startProcessor(t *testing.T, ctx context.Context, p *Processor) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()
	require.Eventually(t, p.Running, waitFor, time.Millisecond)
	return errc
}

func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(waitFor):
		t.Fatalf("processor did not exit")
		return nil
	}
}

func waitCursor(t *testing.T, l *eventlog.Log, group string, want uint64) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, ok := l.Cursor(group)
		return ok && got == want
	}, waitFor, 5*time.Millisecond)
}

func TestProcessorCopiesRecords(t *testing.T) {
	src, sink := newLogs(t)
	appendValues(t, src, "a", "b", "c")

	p, err := NewProcessor(Options{Name: "copy", Source: src, Sink: sink, PollInterval: 10 * time.Millisecond})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)

	waitCursor(t, src, "copy", 3)
	// records appended while running are picked up too
	appendValues(t, src, "d")
	waitCursor(t, src, "copy", 4)

	p.Stop()
	require.NoError(t, waitRun(t, errc))
	assert.Equal(t, []string{"a", "b", "c", "d"}, sinkValues(sink))
	assert.False(t, p.Running())
	assert.NotEmpty(t, p.ID())

	st := p.Stats()
	assert.Equal(t, uint64(4), st.Read)
	assert.Equal(t, uint64(4), st.Emitted)
	assert.Equal(t, 0, st.QueueLen)
	assert.Equal(t, 0, st.QueueUsed)
}

func TestProcessorAppliesCEL(t *testing.T) {
	src, sink := newLogs(t)
	appendValues(t, src,
		`{"level":"info","msg":"boot"}`,
		`{"level":"error","msg":"disk full"}`,
		`{"level":"error","msg":"oom"}`,
	)
	fn, err := CompileCEL(`json.level == "error"`, `json.msg`)
	require.NoError(t, err)

	p, err := NewProcessor(Options{Name: "errors", Source: src, Sink: sink, Transform: fn})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)
	waitCursor(t, src, "errors", 3)
	p.Stop()
	require.NoError(t, waitRun(t, errc))

	assert.Equal(t, []string{"disk full", "oom"}, sinkValues(sink))
	assert.Equal(t, uint64(1), p.Stats().Filtered)
}

func TestProcessorFanOut(t *testing.T) {
	src, sink := newLogs(t)
	appendValues(t, src, "x", "y")
	twice := func(e eventlog.Entry) ([]eventlog.Record, error) {
		return []eventlog.Record{e.Record, e.Record}, nil
	}
	p, err := NewProcessor(Options{Name: "twice", Source: src, Sink: sink, Transform: twice, MaxBatch: 3})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)
	waitCursor(t, src, "twice", 2)
	p.Stop()
	require.NoError(t, waitRun(t, errc))
	assert.Equal(t, []string{"x", "x", "y", "y"}, sinkValues(sink))
}

func TestProcessorResumesFromCursor(t *testing.T) {
	src, sink := newLogs(t)
	appendValues(t, src, "1", "2", "3")

	p, err := NewProcessor(Options{Name: "resume", Source: src, Sink: sink})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)
	waitCursor(t, src, "resume", 3)
	p.Stop()
	require.NoError(t, waitRun(t, errc))

	appendValues(t, src, "4", "5")
	p2, err := NewProcessor(Options{Name: "resume", Source: src, Sink: sink})
	require.NoError(t, err)
	errc = startProcessor(t, context.Background(), p2)
	waitCursor(t, src, "resume", 5)
	p2.Stop()
	require.NoError(t, waitRun(t, errc))

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, sinkValues(sink))
}

func TestProcessorSingleItemMode(t *testing.T) {
	src, sink := newLogs(t)
	appendValues(t, src, "a", "b", "c", "d", "e")
	p, err := NewProcessor(Options{Name: "single", Source: src, Sink: sink, MaxBatch: 1})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)
	waitCursor(t, src, "single", 5)
	p.Stop()
	require.NoError(t, waitRun(t, errc))

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, sinkValues(sink))
	assert.Equal(t, uint64(5), p.Stats().Batches)
}

func TestProcessorStaysWithinMemoryLimit(t *testing.T) {
	src, sink := newLogs(t)
	values := make([]string, 200)
	for i := range values {
		values[i] = fmt.Sprintf("%0100d", i)
	}
	appendValues(t, src, values...)

	const limit = 1024
	p, err := NewProcessor(Options{Name: "bounded", Source: src, Sink: sink, MemoryLimit: limit, MaxBatch: 10})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)
	require.Eventually(t, func() bool {
		assert.LessOrEqual(t, p.Stats().QueueUsed, limit)
		got, ok := src.Cursor("bounded")
		return ok && got == 200
	}, waitFor, time.Millisecond)
	p.Stop()
	require.NoError(t, waitRun(t, errc))
	assert.Len(t, sinkValues(sink), 200)
}

func TestProcessorTransformErrorStopsRun(t *testing.T) {
	src, sink := newLogs(t)
	appendValues(t, src, "ok", "ok", "bad", "ok")
	boom := errors.New("boom")
	fn := func(e eventlog.Entry) ([]eventlog.Record, error) {
		if string(e.Value) == "bad" {
			return nil, boom
		}
		return []eventlog.Record{e.Record}, nil
	}
	p, err := NewProcessor(Options{Name: "failing", Source: src, Sink: sink, Transform: fn})
	require.NoError(t, err)

	err = p.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "offset 3")
	assert.False(t, p.Running())
	if got, ok := src.Cursor("failing"); ok {
		assert.Less(t, got, uint64(3))
	}
	assert.Equal(t, 0, p.Stats().QueueLen)
}

func TestProcessorContextCancel(t *testing.T) {
	src, sink := newLogs(t)
	p, err := NewProcessor(Options{Name: "idle", Source: src, Sink: sink, PollInterval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := startProcessor(t, ctx, p)
	cancel()
	require.NoError(t, waitRun(t, errc))
}

func TestProcessorRunTwice(t *testing.T) {
	src, sink := newLogs(t)
	p, err := NewProcessor(Options{Name: "once", Source: src, Sink: sink})
	require.NoError(t, err)
	errc := startProcessor(t, context.Background(), p)

	require.ErrorIs(t, p.Run(context.Background()), ErrRunning)

	p.Stop()
	require.NoError(t, waitRun(t, errc))
	// a stopped processor can run again
	errc = startProcessor(t, context.Background(), p)
	p.Stop()
	require.NoError(t, waitRun(t, errc))
}

func TestNewProcessorValidation(t *testing.T) {
	src, sink := newLogs(t)
	tests := []struct {
		name string
		opts Options
	}{
		{"no name", Options{Source: src, Sink: sink}},
		{"no source", Options{Name: "x", Sink: sink}},
		{"same log", Options{Name: "x", Source: src, Sink: src}},
		{"negative limit", Options{Name: "x", Source: src, Sink: sink, MemoryLimit: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProcessor(tt.opts)
			assert.Error(t, err)
		})
	}
}
