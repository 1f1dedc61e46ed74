package transfer

// DefaultItemsPerChunk is the number of slots in each fifo chunk.
const DefaultItemsPerChunk = 128

// chunk is a fixed-size node in the fifo chain. Slots are written and read
// linearly; a chunk is never reused once its read cursor reaches the end.
type chunk[T any] struct {
	items   []T
	readIdx int
	next    *chunk[T]
}

// fifo is an unbounded FIFO of linked chunks. Not thread-safe; the Queue
// guards it with its mutex.
type fifo[T any] struct {
	head, tail *chunk[T]
	size       int
	chunkSize  int
}

func newFifo[T any](chunkSize int) fifo[T] {
	if chunkSize <= 0 {
		chunkSize = DefaultItemsPerChunk
	}
	return fifo[T]{chunkSize: chunkSize}
}

func (f *fifo[T]) len() int { return f.size }

func (f *fifo[T]) empty() bool { return f.size == 0 }

func (f *fifo[T]) pushBack(v T) {
	if f.tail == nil || len(f.tail.items) == cap(f.tail.items) {
		c := &chunk[T]{items: make([]T, 0, f.chunkSize)}
		if f.tail == nil {
			f.head = c
		} else {
			f.tail.next = c
		}
		f.tail = c
	}
	f.tail.items = append(f.tail.items, v)
	f.size++
}

// popFront removes the head element. The caller checks empty() first.
func (f *fifo[T]) popFront() T {
	var zero T
	c := f.head
	v := c.items[c.readIdx]
	c.items[c.readIdx] = zero // release reference for GC
	c.readIdx++
	f.size--
	switch {
	case f.size == 0:
		f.reset()
	case c.readIdx == len(c.items):
		f.head = c.next
		c.next = nil
	}
	return v
}

// drain detaches every element in FIFO order and leaves f empty.
func (f *fifo[T]) drain() []T {
	if f.size == 0 {
		return nil
	}
	out := make([]T, 0, f.size)
	for c := f.head; c != nil; c = c.next {
		out = append(out, c.items[c.readIdx:]...)
	}
	f.reset()
	return out
}

func (f *fifo[T]) reset() {
	f.head, f.tail = nil, nil
	f.size = 0
}
