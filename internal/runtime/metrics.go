package runtime

import (
	"sync/atomic"
	"time"

	pebblestore "github.com/rzbill/flo-transform/internal/storage/pebble"
)

var _ pebblestore.MetricsHook = (*StorageStats)(nil)

// StorageStats accumulates Pebble observations. It implements
// pebblestore.MetricsHook.
type StorageStats struct {
	writes      atomic.Uint64
	writeBytes  atomic.Uint64
	reads       atomic.Uint64
	readBytes   atomic.Uint64
	commits     atomic.Uint64
	commitOps   atomic.Uint64
	commitNanos atomic.Int64
	commitBytes atomic.Uint64
}

// StorageSnapshot is a copy of StorageStats at a point in time.
type StorageSnapshot struct {
	Writes           uint64        `json:"writes"`
	WriteBytes       uint64        `json:"writeBytes"`
	Reads            uint64        `json:"reads"`
	ReadBytes        uint64        `json:"readBytes"`
	BatchCommits     uint64        `json:"batchCommits"`
	BatchOps         uint64        `json:"batchOps"`
	BatchBytes       uint64        `json:"batchBytes"`
	AvgCommitLatency time.Duration `json:"avgCommitLatencyNs"`
}

func (s *StorageStats) ObserveWrite(_ time.Duration, bytes int) {
	s.writes.Add(1)
	s.writeBytes.Add(uint64(bytes))
}

func (s *StorageStats) ObserveRead(_ time.Duration, bytes int) {
	s.reads.Add(1)
	s.readBytes.Add(uint64(bytes))
}

func (s *StorageStats) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	s.commits.Add(1)
	s.commitOps.Add(uint64(numOps))
	s.commitBytes.Add(uint64(bytes))
	s.commitNanos.Add(int64(elapsed))
}

// Snapshot copies the current counters.
func (s *StorageStats) Snapshot() StorageSnapshot {
	snap := StorageSnapshot{
		Writes:       s.writes.Load(),
		WriteBytes:   s.writeBytes.Load(),
		Reads:        s.reads.Load(),
		ReadBytes:    s.readBytes.Load(),
		BatchCommits: s.commits.Load(),
		BatchOps:     s.commitOps.Load(),
		BatchBytes:   s.commitBytes.Load(),
	}
	if snap.BatchCommits > 0 {
		snap.AvgCommitLatency = time.Duration(s.commitNanos.Load() / int64(snap.BatchCommits))
	}
	return snap
}
