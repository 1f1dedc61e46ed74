// Package transfer provides a memory-bounded handoff queue between exactly one
// producer goroutine and exactly one consumer goroutine.
//
// Entries report their size through [Sizer]. The queue keeps the sum of
// queued sizes near a soft limit: Push blocks while the next entry would not
// fit, except that an empty queue always admits one entry regardless of its
// size. Every blocking call takes a [Signal]; when the signal is requested
// the call resolves immediately. A Push resolved this way drops its entry, a
// PopOne returns false and a PopAll returns no entries. None of these
// outcomes are errors.
//
//	q := transfer.New[Record](1 << 20)
//	go func() {
//	    for _, r := range records {
//	        q.Push(r, as)
//	    }
//	}()
//	for {
//	    batch := q.PopAll(as)
//	    if len(batch) == 0 {
//	        return // aborted
//	    }
//	    write(batch)
//	}
package transfer
