// Package abort provides one-shot abort signals that blocking operations can
// observe and subscribe to.
//
// A [Source] is requested explicitly, typically by the component that owns
// the work being aborted. [FromContext] adapts a context.Context to the same
// shape so callers that already carry a context need no extra plumbing.
package abort

import (
	"context"
	"errors"
	"sync"
)

// ErrAborted is the default reason reported by a requested Source.
var ErrAborted = errors.New("abort requested")

// Signal is the observable side of an abort: it can be queried and
// subscribed to, but not requested.
type Signal interface {
	Requested() bool
	Subscribe(fn func()) (stop func() bool, ok bool)
}

var (
	_ Signal = (*Source)(nil)
	_ Signal = contextSignal{}
)

// Source is a one-shot abort signal.
//
// Subscribed callbacks run at most once, synchronously in the goroutine that
// calls Request, after the source's internal lock has been released. The
// zero value is not usable; use New.
type Source struct {
	mu        sync.Mutex
	requested bool
	reason    error
	done      chan struct{}
	subs      map[uint64]func()
	nextID    uint64
}

// New returns a Source that has not been requested.
func New() *Source {
	return &Source{
		done: make(chan struct{}),
		subs: make(map[uint64]func()),
	}
}

// Request aborts the source with ErrAborted. Safe to call multiple times.
func (s *Source) Request() {
	s.RequestWithReason(ErrAborted)
}

// RequestWithReason aborts the source with reason. Only the first request
// records its reason; a nil reason is replaced with ErrAborted.
func (s *Source) RequestWithReason(reason error) {
	if reason == nil {
		reason = ErrAborted
	}
	s.mu.Lock()
	if s.requested {
		s.mu.Unlock()
		return
	}
	s.requested = true
	s.reason = reason
	subs := s.subs
	s.subs = nil
	close(s.done)
	s.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}

// Requested reports whether the source has been aborted.
func (s *Source) Requested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requested
}

// Reason returns the abort reason, or nil if the source is still live.
func (s *Source) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Done returns a channel that is closed when the source is requested.
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Subscribe registers fn to run once when the source is requested. If the
// source was already requested, nothing is registered and ok is false.
// stop deregisters fn and reports whether it was still pending.
func (s *Source) Subscribe(fn func()) (stop func() bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requested {
		return func() bool { return false }, false
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, pending := s.subs[id]; !pending {
			return false
		}
		delete(s.subs, id)
		return true
	}, true
}

// Link requests src when ctx is done. The returned stop function detaches
// the link and reports whether it did so before src was requested.
func Link(ctx context.Context, src *Source) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		src.RequestWithReason(context.Cause(ctx))
	})
}

// contextSignal adapts a context to the Requested/Subscribe signal shape.
type contextSignal struct {
	ctx context.Context
}

// FromContext returns a signal that is requested once ctx is done.
// Subscribed callbacks run in their own goroutine.
func FromContext(ctx context.Context) Signal {
	return contextSignal{ctx: ctx}
}

func (c contextSignal) Requested() bool {
	return c.ctx.Err() != nil
}

func (c contextSignal) Subscribe(fn func()) (func() bool, bool) {
	if c.ctx.Err() != nil {
		return func() bool { return false }, false
	}
	return context.AfterFunc(c.ctx, fn), true
}
