// Package transform runs data transforms between two event logs.
//
// A Processor pairs a producer goroutine, which reads the source log from
// the committed cursor and applies the transform, with a consumer goroutine,
// which appends the results to the sink log and advances the cursor. The
// two are connected by a memory-bounded transfer.Queue so a slow sink
// applies backpressure to the reader instead of letting transformed records
// pile up.
//
//	fn, _ := transform.CompileCEL(`json.level == "error"`, `json.msg`)
//	p, _ := transform.NewProcessor(transform.Options{
//	    Name:      "errors-only",
//	    Source:    src,
//	    Sink:      dst,
//	    Transform: fn,
//	})
//	go p.Run(ctx)
//	defer p.Stop()
//
// Delivery is at-least-once: records drained from the queue but not yet
// committed are transformed again on the next run.
package transform
