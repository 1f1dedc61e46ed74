package transform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/rzbill/flo-transform/pkg/log"
)

// State is the lifecycle state of a managed processor.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StatusFunc observes processor state changes. err is set for StateFailed.
// It is called from processor goroutines and must not block.
type StatusFunc func(name string, partition uint32, state State, err error)

// ErrDuplicate is returned by Start when the transform partition is already
// managed.
var ErrDuplicate = errors.New("transform: processor already managed")

type procKey struct {
	name      string
	partition uint32
}

// Info describes one managed processor.
type Info struct {
	Name      string
	Partition uint32
	RunID     string
	Stats     Stats
}

type managed struct {
	proc   *Processor
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager runs one Processor per transform partition.
type Manager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   log.Logger
	onStatus StatusFunc

	wg    conc.WaitGroup
	mu    sync.Mutex
	procs map[procKey]*managed
}

// NewManager returns a Manager whose processors run until ctx is done or
// Stop is called. onStatus may be nil.
func NewManager(ctx context.Context, logger log.Logger, onStatus StatusFunc) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	if onStatus == nil {
		onStatus = func(string, uint32, State, error) {}
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger.WithComponent("transform-manager"),
		onStatus: onStatus,
		procs:    make(map[procKey]*managed),
	}
}

// Start creates a processor for one partition of a transform and runs it in
// the background.
func (m *Manager) Start(partition uint32, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = m.logger
	}
	p, err := NewProcessor(opts)
	if err != nil {
		return err
	}
	key := procKey{name: opts.Name, partition: partition}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ctx.Err(); err != nil {
		return fmt.Errorf("transform: manager closed: %w", err)
	}
	if _, ok := m.procs[key]; ok {
		return fmt.Errorf("%w: %s/%d", ErrDuplicate, opts.Name, partition)
	}
	ctx, cancel := context.WithCancel(m.ctx)
	mp := &managed{proc: p, cancel: cancel, done: make(chan struct{})}
	m.procs[key] = mp
	m.onStatus(key.name, partition, StateStarting, nil)
	m.wg.Go(func() { m.run(ctx, key, mp) })
	return nil
}

func (m *Manager) run(ctx context.Context, key procKey, mp *managed) {
	defer close(mp.done)
	defer mp.cancel()
	m.onStatus(key.name, key.partition, StateRunning, nil)
	err := mp.proc.Run(ctx)

	m.mu.Lock()
	if m.procs[key] == mp {
		delete(m.procs, key)
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("processor exited", log.Str("name", key.name), log.Int("partition", int(key.partition)), log.Err(err))
		m.onStatus(key.name, key.partition, StateFailed, err)
		return
	}
	m.onStatus(key.name, key.partition, StateStopped, nil)
}

// StopTransform stops every partition of the named transform. It does not
// wait for them to exit.
func (m *Manager) StopTransform(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key, mp := range m.procs {
		if key.name == name {
			mp.cancel()
			n++
		}
	}
	return n
}

// Drain stops every partition of the named transform and waits until they
// have exited or ctx is done.
func (m *Manager) Drain(ctx context.Context, name string) error {
	m.mu.Lock()
	var done []chan struct{}
	for key, mp := range m.procs {
		if key.name == name {
			mp.cancel()
			done = append(done, mp.done)
		}
	}
	m.mu.Unlock()
	for _, d := range done {
		select {
		case <-d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// List returns the managed processors ordered by name and partition.
func (m *Manager) List() []Info {
	m.mu.Lock()
	out := make([]Info, 0, len(m.procs))
	for key, mp := range m.procs {
		out = append(out, Info{Name: key.name, Partition: key.partition, RunID: mp.proc.ID(), Stats: mp.proc.Stats()})
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// Stop stops every processor and prevents new ones from starting.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.cancel()
	m.mu.Unlock()
}

// Wait blocks until every processor goroutine has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}
