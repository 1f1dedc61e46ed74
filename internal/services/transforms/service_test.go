package transformsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/rzbill/flo-transform/internal/config"
	"github.com/rzbill/flo-transform/internal/eventlog"
	"github.com/rzbill/flo-transform/internal/registry"
	"github.com/rzbill/flo-transform/internal/runtime"
	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
	"github.com/rzbill/flo-transform/internal/transform"
)

const waitFor = 5 * time.Second

func openRuntime(t *testing.T, dir string) *runtime.Runtime {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Transform.PollIntervalMs = 10
	rt, err := runtime.Open(runtime.Options{DataDir: dir, Fsync: pebblestore.FsyncModeNever, Config: cfg})
	require.NoError(t, err)
	return rt
}

func newTestService(t *testing.T) (*Service, *runtime.Runtime) {
	t.Helper()
	rt := openRuntime(t, t.TempDir())
	svc := New(context.Background(), rt, nil, nil)
	t.Cleanup(func() {
		svc.Close()
		_ = rt.Close()
	})
	return svc, rt
}

func produce(t *testing.T, rt *runtime.Runtime, topic string, partition uint32, values ...string) {
	t.Helper()
	l, err := rt.OpenLog("", topic, partition)
	require.NoError(t, err)
	recs := make([]eventlog.Record, len(values))
	for i, v := range values {
		recs[i] = eventlog.Record{Value: []byte(v)}
	}
	_, err = l.Append(context.Background(), recs)
	require.NoError(t, err)
}

func waitForValues(t *testing.T, rt *runtime.Runtime, topic string, partition uint32, want ...string) {
	t.Helper()
	l, err := rt.OpenLog("", topic, partition)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		entries, _ := l.Read(eventlog.ReadOptions{})
		if len(entries) != len(want) {
			return false
		}
		for i, e := range entries {
			if string(e.Value) != want[i] {
				return false
			}
		}
		return true
	}, waitFor, 5*time.Millisecond)
}

func waitCursor(t *testing.T, rt *runtime.Runtime, topic, group string, want uint64) {
	t.Helper()
	l, err := rt.OpenLog("", topic, 0)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, ok := l.Cursor(group)
		return ok && got == want
	}, waitFor, 5*time.Millisecond)
}

func TestDeployRunsEveryPartition(t *testing.T) {
	svc, rt := newTestService(t)
	produce(t, rt, "in", 0, "a")
	produce(t, rt, "in", 1, "b")

	meta, err := svc.Deploy(context.Background(), registry.Meta{Name: "copy", Source: "in", Sink: "out", Partitions: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.Partitions)

	waitForValues(t, rt, "out", 0, "a")
	waitForValues(t, rt, "out", 1, "b")

	st, err := svc.Get("copy")
	require.NoError(t, err)
	require.Len(t, st.Partitions, 2)
	assert.Equal(t, "running", st.Partitions[0].State)
	assert.NotEmpty(t, st.Partitions[1].RunID)
}

func TestRedeployReplacesProgram(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	produce(t, rt, "in", 0, `{"n":"a"}`)

	_, err := svc.Deploy(ctx, registry.Meta{Name: "t", Source: "in", Sink: "out"})
	require.NoError(t, err)
	waitForValues(t, rt, "out", 0, `{"n":"a"}`)
	waitCursor(t, rt, "in", "t", 1)

	_, err = svc.Deploy(ctx, registry.Meta{Name: "t", Source: "in", Sink: "out", Value: `"n=" + json.n`})
	require.NoError(t, err)
	produce(t, rt, "in", 0, `{"n":"b"}`)
	// the cursor survives the redeploy so only the new entry is rewritten
	waitForValues(t, rt, "out", 0, `{"n":"a"}`, "n=b")

	list, err := svc.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestDeployInvalid(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Deploy(context.Background(), registry.Meta{Name: "bad", Source: "in", Sink: "out", Filter: "offset"})
	assert.True(t, errors.Is(err, registry.ErrInvalid))
	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteStopsProcessors(t *testing.T) {
	svc, rt := newTestService(t)
	ctx := context.Background()
	_, err := svc.Deploy(ctx, registry.Meta{Name: "gone", Source: "in", Sink: "out"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "gone"))
	_, err = svc.Get("gone")
	assert.True(t, errors.Is(err, registry.ErrNotFound))
	assert.True(t, errors.Is(svc.Delete(ctx, "gone"), registry.ErrNotFound))

	// nothing copies once the transform is gone
	produce(t, rt, "in", 0, "late")
	time.Sleep(50 * time.Millisecond)
	out, _ := rt.OpenLog("", "out", 0)
	assert.Zero(t, out.LastOffset())
}

func TestResumeAfterRestart(t *testing.T) {
	dir := t.TempDir()
	rt := openRuntime(t, dir)
	svc := New(context.Background(), rt, nil, nil)
	_, err := svc.Deploy(context.Background(), registry.Meta{Name: "keep", Source: "in", Sink: "out"})
	require.NoError(t, err)
	produce(t, rt, "in", 0, "one")
	waitForValues(t, rt, "out", 0, "one")
	waitCursor(t, rt, "in", "keep", 1)
	svc.Close()
	require.NoError(t, rt.Close())

	rt = openRuntime(t, dir)
	t.Cleanup(func() { _ = rt.Close() })
	running := make(chan string, 4)
	notify := func(name string, _ uint32, st transform.State, _ error) {
		if st == transform.StateRunning {
			running <- name
		}
	}
	svc = New(context.Background(), rt, nil, notify)
	t.Cleanup(svc.Close)
	require.NoError(t, svc.Resume(context.Background()))
	select {
	case name := <-running:
		assert.Equal(t, "keep", name)
	case <-time.After(waitFor):
		t.Fatal("resumed transform never reported running")
	}

	produce(t, rt, "in", 0, "two")
	waitForValues(t, rt, "out", 0, "one", "two")
}
