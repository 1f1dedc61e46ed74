package abort

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceRequest(t *testing.T) {
	s := New()
	assert.False(t, s.Requested())
	assert.NoError(t, s.Reason())

	s.Request()
	assert.True(t, s.Requested())
	assert.ErrorIs(t, s.Reason(), ErrAborted)

	select {
	case <-s.Done():
	default:
		t.Fatal("Done should be closed after Request")
	}

	// idempotent, first reason wins
	s.RequestWithReason(errors.New("later"))
	assert.ErrorIs(t, s.Reason(), ErrAborted)
}

func TestSourceRequestWithReason(t *testing.T) {
	boom := errors.New("boom")
	s := New()
	s.RequestWithReason(boom)
	assert.ErrorIs(t, s.Reason(), boom)

	s2 := New()
	s2.RequestWithReason(nil)
	assert.ErrorIs(t, s2.Reason(), ErrAborted)
}

func TestSubscribeRunsOnce(t *testing.T) {
	s := New()
	var calls atomic.Int32
	stop, ok := s.Subscribe(func() { calls.Add(1) })
	require.True(t, ok)

	s.Request()
	s.Request()
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, stop(), "callback already ran")
}

func TestSubscribeAfterRequest(t *testing.T) {
	s := New()
	s.Request()

	called := false
	stop, ok := s.Subscribe(func() { called = true })
	assert.False(t, ok)
	assert.False(t, stop())
	assert.False(t, called)
}

func TestStopPreventsCallback(t *testing.T) {
	s := New()
	called := false
	stop, ok := s.Subscribe(func() { called = true })
	require.True(t, ok)
	assert.True(t, stop())
	assert.False(t, stop())

	s.Request()
	assert.False(t, called)
}

func TestCallbackMayUseSource(t *testing.T) {
	s := New()
	var subscribedAgain bool
	_, ok := s.Subscribe(func() {
		// must not deadlock: callbacks run outside the lock
		_, subscribedAgain = s.Subscribe(func() {})
		_ = s.Requested()
	})
	require.True(t, ok)
	s.Request()
	assert.False(t, subscribedAgain)
}

func TestConcurrentSubscribeAndRequest(t *testing.T) {
	s := New()
	var fired atomic.Int32
	var registered atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Subscribe(func() { fired.Add(1) }); ok {
				registered.Add(1)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Request()
	}()
	wg.Wait()
	assert.Equal(t, registered.Load(), fired.Load())
}

func TestLink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New()
	Link(ctx, s)

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("linked source not requested")
	}
	assert.ErrorIs(t, s.Reason(), context.Canceled)
}

func TestLinkStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New()
	stop := Link(ctx, s)
	assert.True(t, stop())
	cancel()
	time.Sleep(10 * time.Millisecond)
	assert.False(t, s.Requested())
}

func TestFromContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := FromContext(ctx)
	assert.False(t, sig.Requested())

	woke := make(chan struct{})
	_, ok := sig.Subscribe(func() { close(woke) })
	require.True(t, ok)

	cancel()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("subscription did not fire")
	}
	assert.True(t, sig.Requested())

	_, ok = sig.Subscribe(func() {})
	assert.False(t, ok)
}
