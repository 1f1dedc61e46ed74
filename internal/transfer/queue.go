package transfer

import "sync"

// Sizer is implemented by values that can report their approximate memory
// footprint in bytes. Negative values are treated as zero.
type Sizer interface {
	MemoryUsage() int
}

// Signal is an externally owned, one-shot abort signal.
//
// Subscribe registers fn to be called at most once when the signal is
// requested. It returns ok=false and registers nothing when the signal has
// already been requested. The returned stop function deregisters fn and
// reports whether it did so before fn ran.
type Signal interface {
	Requested() bool
	Subscribe(fn func()) (stop func() bool, ok bool)
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	itemsPerChunk int
}

// WithItemsPerChunk sets the slot count of each backing chunk.
func WithItemsPerChunk(n int) Option {
	return func(o *options) { o.itemsPerChunk = n }
}

// Queue is a single producer single consumer queue for transferring variable
// sized entries between goroutines.
//
// The memory limit is soft: an empty queue always accepts the next entry so
// the producer can make progress even when that entry is larger than the
// limit. Each entry is accounted as min(MemoryUsage(), limit), on insertion
// and on removal, so an oversized entry never drives the accounting negative.
//
// Exactly one goroutine may call Push and exactly one goroutine may call
// PopOne or PopAll. Producer and consumer share a single condition variable,
// which only works under that discipline. Clear is meant for teardown points
// where neither side is blocked; calling it while a Push or Pop is in flight
// has no defined outcome.
type Queue[T Sizer] struct {
	mu    sync.Mutex
	cond  sync.Cond
	items fifo[T]
	limit int
	used  int
}

// New returns a Queue whose soft memory limit is limit bytes. With a zero
// limit every entry costs nothing, so Push never waits. New panics if limit
// is negative.
func New[T Sizer](limit int, opts ...Option) *Queue[T] {
	if limit < 0 {
		panic("transfer: New requires limit >= 0")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	q := &Queue[T]{
		items: newFifo[T](o.itemsPerChunk),
		limit: limit,
	}
	q.cond.L = &q.mu
	return q
}

// Push appends entry once there is room for it under the memory limit.
//
// If sig is requested before entry is admitted, entry is dropped and Push
// returns without enqueuing anything.
func (q *Queue[T]) Push(entry T, sig Signal) {
	cost := q.cost(entry)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.waitLocked(sig, func() bool { return q.used+cost <= q.limit })
	if sig.Requested() {
		return
	}
	q.items.pushBack(entry)
	q.used += cost
	q.cond.Broadcast()
}

// PopOne removes and returns the oldest entry, waiting until there is one.
// It returns false if sig is requested, in which case the queue is untouched.
func (q *Queue[T]) PopOne(sig Signal) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waitLocked(sig, func() bool { return !q.items.empty() })
	if sig.Requested() || q.items.empty() {
		var zero T
		return zero, false
	}
	entry := q.items.popFront()
	q.used -= q.cost(entry)
	q.cond.Broadcast()
	return entry, true
}

// PopAll removes every queued entry as soon as the queue is non-empty and
// returns them oldest first. It returns nil if sig is requested.
func (q *Queue[T]) PopAll(sig Signal) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.waitLocked(sig, func() bool { return !q.items.empty() })
	if sig.Requested() {
		return nil
	}
	entries := q.items.drain()
	q.used = 0
	q.cond.Broadcast()
	return entries
}

// Clear discards all queued entries.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.reset()
	q.used = 0
	q.cond.Broadcast()
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.len()
}

// Used returns the accounted memory of the queued entries.
func (q *Queue[T]) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

// Limit returns the soft memory limit.
func (q *Queue[T]) Limit() int { return q.limit }

func (q *Queue[T]) cost(entry T) int {
	return min(max(entry.MemoryUsage(), 0), q.limit)
}

// waitLocked blocks until ready reports true or sig is requested. q.mu must
// be held. The subscription only lives for the duration of the wait.
func (q *Queue[T]) waitLocked(sig Signal, ready func() bool) {
	if ready() {
		return
	}
	stop, ok := sig.Subscribe(q.wake)
	if !ok {
		return
	}
	defer stop()
	for !sig.Requested() && !ready() {
		q.cond.Wait()
	}
}

// wake is the abort callback. It takes the lock so the broadcast cannot slip
// between a waiter's predicate check and its call to Wait.
func (q *Queue[T]) wake() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}
