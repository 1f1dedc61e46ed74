package transform

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rzbill/flo-transform/internal/abort"
	"github.com/rzbill/flo-transform/internal/eventlog"
	"github.com/rzbill/flo-transform/internal/transfer"
	"github.com/rzbill/flo-transform/pkg/log"
)

const (
	DefaultMemoryLimit  = 2 << 20
	DefaultMaxBatch     = 256
	DefaultPollInterval = 200 * time.Millisecond
)

var (
	// ErrRunning is returned by Run when the processor is already running.
	ErrRunning = errors.New("transform: processor already running")
	// ErrStopped is the abort reason recorded by Stop.
	ErrStopped = errors.New("transform: processor stopped")
)

// Options configures a Processor.
type Options struct {
	// Name identifies the transform. It is also the cursor group on Source.
	Name   string
	Source *eventlog.Log
	Sink   *eventlog.Log
	// Transform defaults to Identity.
	Transform Func
	// MemoryLimit bounds the bytes buffered between reader and writer.
	MemoryLimit int
	// MaxBatch caps both source reads and sink appends. A value of 1 moves
	// records one at a time.
	MaxBatch int
	// PollInterval bounds how long the reader idles on an empty source.
	PollInterval time.Duration
	Logger       log.Logger
}

func (o *Options) validate() error {
	switch {
	case o.Name == "":
		return errors.New("transform: name is required")
	case o.Source == nil || o.Sink == nil:
		return errors.New("transform: source and sink are required")
	case o.Source == o.Sink:
		return errors.New("transform: source and sink must differ")
	case o.MemoryLimit < 0 || o.MaxBatch < 0:
		return errors.New("transform: limits must not be negative")
	}
	if o.Transform == nil {
		o.Transform = Identity
	}
	if o.MemoryLimit == 0 {
		o.MemoryLimit = DefaultMemoryLimit
	}
	if o.MaxBatch == 0 {
		o.MaxBatch = DefaultMaxBatch
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	return nil
}

// Stats is a point-in-time view of a Processor.
type Stats struct {
	Read      uint64 `json:"read"`
	Filtered  uint64 `json:"filtered"`
	Emitted   uint64 `json:"emitted"`
	Batches   uint64 `json:"batches"`
	QueueUsed int    `json:"queueUsed"`
	QueueLen  int    `json:"queueLen"`
	Running   bool   `json:"running"`
}

// pending is the output of one source entry waiting to be written.
type pending struct {
	offset  uint64
	records []eventlog.Record
}

func (p pending) MemoryUsage() int {
	n := 16
	for _, r := range p.records {
		n += r.MemoryUsage()
	}
	return n
}

// Processor moves records from a source log to a sink log through a Func.
type Processor struct {
	opts   Options
	logger log.Logger
	queue  *transfer.Queue[pending]

	mu      sync.Mutex
	running bool
	runID   string
	stop    *abort.Source

	read     atomic.Uint64
	filtered atomic.Uint64
	emitted  atomic.Uint64
	batches  atomic.Uint64
}

// NewProcessor validates opts and returns an idle Processor.
func NewProcessor(opts Options) (*Processor, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Processor{
		opts:   opts,
		logger: opts.Logger.With(log.Component("transform"), log.Str("name", opts.Name), log.Str("source", opts.Source.String())),
		queue:  transfer.New[pending](opts.MemoryLimit),
	}, nil
}

// Name returns the transform name.
func (p *Processor) Name() string { return p.opts.Name }

// ID returns the identifier of the current or most recent run.
func (p *Processor) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runID
}

// Running reports whether Run is in progress.
func (p *Processor) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns counters accumulated across runs.
func (p *Processor) Stats() Stats {
	return Stats{
		Read:      p.read.Load(),
		Filtered:  p.filtered.Load(),
		Emitted:   p.emitted.Load(),
		Batches:   p.batches.Load(),
		QueueUsed: p.queue.Used(),
		QueueLen:  p.queue.Len(),
		Running:   p.Running(),
	}
}

// Stop asks the current run to finish. It does not wait.
func (p *Processor) Stop() {
	p.mu.Lock()
	src := p.stop
	p.mu.Unlock()
	if src != nil {
		src.RequestWithReason(ErrStopped)
	}
}

// Run processes records until Stop is called, ctx is done or either side
// fails. It returns nil on Stop or cancellation and the first failure
// otherwise. Entries buffered but not yet written are discarded on return.
func (p *Processor) Run(ctx context.Context) error {
	src := abort.New()
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrRunning
	}
	p.running, p.stop, p.runID = true, src, uuid.NewString()
	logger := p.logger.With(log.Str("run_id", p.runID))
	p.mu.Unlock()

	defer func() {
		p.queue.Clear()
		p.mu.Lock()
		p.running, p.stop = false, nil
		p.mu.Unlock()
	}()

	unlink := abort.Link(ctx, src)
	defer unlink()

	// Cancel blocking log calls as soon as the run is aborted.
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if unsub, ok := src.Subscribe(func() { cancel(src.Reason()) }); ok {
		defer unsub()
	} else {
		cancel(src.Reason())
	}

	start := uint64(0)
	if committed, ok := p.opts.Source.Cursor(p.opts.Name); ok {
		start = committed + 1
	}
	logger.Info("processor started", log.Uint64("start_offset", start))

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := p.produce(gctx, src, start)
		if err != nil {
			src.RequestWithReason(err)
		}
		return err
	})
	g.Go(func() error {
		err := p.consume(gctx, src)
		if err != nil {
			src.RequestWithReason(err)
		}
		return err
	})
	err := g.Wait()
	if err != nil {
		logger.Error("processor failed", log.Err(err))
		return err
	}
	logger.Info("processor stopped", log.Str("reason", fmt.Sprint(src.Reason())))
	return nil
}

// produce reads the source from start and pushes transformed entries into
// the queue. Appends racing an empty read are picked up on the next poll.
func (p *Processor) produce(ctx context.Context, sig *abort.Source, start uint64) error {
	next := eventlog.TokenFromOffset(start)
	for !sig.Requested() && ctx.Err() == nil {
		entries, _ := p.opts.Source.Read(eventlog.ReadOptions{Start: next, Limit: p.opts.MaxBatch})
		if len(entries) == 0 {
			p.opts.Source.WaitForAppend(ctx, p.opts.PollInterval)
			continue
		}
		for _, e := range entries {
			recs, err := p.opts.Transform(e)
			if err != nil {
				return fmt.Errorf("transform %q offset %d: %w", p.opts.Name, e.Offset, err)
			}
			p.read.Add(1)
			if len(recs) == 0 {
				p.filtered.Add(1)
			}
			p.queue.Push(pending{offset: e.Offset, records: recs}, sig)
			if sig.Requested() {
				return nil
			}
		}
		next = eventlog.TokenFromOffset(entries[len(entries)-1].Offset + 1)
	}
	return nil
}

// consume drains the queue into the sink and commits the source cursor
// after each drained batch.
func (p *Processor) consume(ctx context.Context, sig *abort.Source) error {
	for {
		var batch []pending
		if p.opts.MaxBatch == 1 {
			item, ok := p.queue.PopOne(sig)
			if !ok {
				return nil
			}
			batch = []pending{item}
		} else {
			batch = p.queue.PopAll(sig)
		}
		if len(batch) == 0 {
			return nil
		}
		if err := p.flush(ctx, batch); err != nil {
			if sig.Requested() {
				return nil
			}
			return err
		}
	}
}

func (p *Processor) flush(ctx context.Context, batch []pending) error {
	var recs []eventlog.Record
	for _, item := range batch {
		recs = append(recs, item.records...)
	}
	for chunk := range slices.Chunk(recs, p.opts.MaxBatch) {
		if _, err := p.opts.Sink.Append(ctx, chunk); err != nil {
			return fmt.Errorf("transform %q: append to %s: %w", p.opts.Name, p.opts.Sink, err)
		}
		p.emitted.Add(uint64(len(chunk)))
		p.batches.Add(1)
	}
	last := batch[len(batch)-1].offset
	if err := p.opts.Source.CommitCursor(p.opts.Name, last); err != nil {
		return fmt.Errorf("transform %q: commit offset %d: %w", p.opts.Name, last, err)
	}
	return nil
}
