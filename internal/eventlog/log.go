package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
)

// Log provides append-only operations for a namespace/topic/partition.
type Log struct {
	db        *pebblestore.DB
	namespace string
	topic     string
	part      uint32

	mu         sync.Mutex
	lastOffset uint64
	notifyCh   chan struct{}

	corrupt atomic.Uint64
}

// OpenLog initializes a Log and loads the last offset from metadata (if any).
func OpenLog(db *pebblestore.DB, namespace, topic string, partition uint32) (*Log, error) {
	if db == nil {
		return nil, errors.New("eventlog: nil db")
	}
	l := &Log{db: db, namespace: namespace, topic: topic, part: partition, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyLogMeta(namespace, topic, partition))
	switch {
	case err == nil && len(meta) >= 8:
		l.lastOffset = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebblestore.ErrNotFound):
		return nil, fmt.Errorf("eventlog: load meta %s/%s/%d: %w", namespace, topic, partition, err)
	}
	return l, nil
}

// Namespace, Topic and Partition identify the log.
func (l *Log) Namespace() string { return l.namespace }
func (l *Log) Topic() string     { return l.topic }
func (l *Log) Partition() uint32 { return l.part }

// String returns ns/topic/partition.
func (l *Log) String() string {
	return fmt.Sprintf("%s/%s/%d", l.namespace, l.topic, l.part)
}

// Append appends the provided records as a single atomic batch. Returns the
// assigned offsets, starting at 1 for an empty log.
func (l *Log) Append(ctx context.Context, recs []Record) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	next := l.lastOffset
	offsets := make([]uint64, len(recs))
	for i, r := range recs {
		next++
		if err := b.Set(KeyLogEntry(l.namespace, l.topic, l.part, next), EncodeRecord(r), nil); err != nil {
			return nil, err
		}
		offsets[i] = next
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], next)
	if err := b.Set(KeyLogMeta(l.namespace, l.topic, l.part), meta[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.lastOffset = next
	// notify waiters
	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return offsets, nil
}

// LastOffset returns the offset of the newest entry, or 0 when empty.
func (l *Log) LastOffset() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastOffset
}

// Corrupted reports how many entries were skipped by Read because they
// failed to decode.
func (l *Log) Corrupted() uint64 { return l.corrupt.Load() }
