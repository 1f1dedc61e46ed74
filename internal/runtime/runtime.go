package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cfgpkg "github.com/rzbill/flo-transform/internal/config"
	"github.com/rzbill/flo-transform/internal/eventlog"
	"github.com/rzbill/flo-transform/internal/registry"
	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

type logKey struct {
	ns, topic string
	partition uint32
}

// Runtime wires storage, config, and facades for a single-node instance.
type Runtime struct {
	db       *pebblestore.DB
	config   cfgpkg.Config
	registry *registry.Registry
	stats    *StorageStats

	mu   sync.Mutex
	logs map[logKey]*eventlog.Log
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	stats := &StorageStats{}
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       stats,
	})
	if err != nil {
		return nil, err
	}
	tc := opts.Config.Transform
	rt := &Runtime{
		db:     db,
		config: opts.Config,
		registry: registry.New(db, registry.Meta{
			Namespace:        opts.Config.DefaultNamespaceName,
			Partitions:       tc.Partitions,
			MemoryLimitBytes: tc.MemoryLimitBytes,
			MaxBatch:         tc.MaxBatch,
		}),
		stats: stats,
		logs:  make(map[logKey]*eventlog.Log),
	}
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// OpenLog returns the event log for namespace/topic/partition. Every caller
// asking for the same partition shares one *eventlog.Log so offsets are
// assigned by a single writer.
func (r *Runtime) OpenLog(ns, topic string, partition uint32) (*eventlog.Log, error) {
	if ns == "" {
		ns = r.config.DefaultNamespaceName
	}
	if topic == "" {
		return nil, errors.New("runtime: topic is required")
	}
	key := logKey{ns: ns, topic: topic, partition: partition}
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.logs[key]; ok {
		return l, nil
	}
	l, err := eventlog.OpenLog(r.db, ns, topic, partition)
	if err != nil {
		return nil, fmt.Errorf("runtime: open log: %w", err)
	}
	r.logs[key] = l
	return l, nil
}

// Registry returns the transform registry stored alongside the logs.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Stats returns the storage counters collected since Open.
func (r *Runtime) Stats() StorageSnapshot { return r.stats.Snapshot() }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
