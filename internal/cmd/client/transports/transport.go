package transports

import "context"

// Record is a record to produce.
type Record struct {
	Key     []byte            `json:"key,omitempty"`
	Value   []byte            `json:"value"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Entry is a stored record returned by Read and Tail.
type Entry struct {
	Offset      uint64            `json:"offset"`
	TimestampMs int64             `json:"tsMs"`
	Key         []byte            `json:"key,omitempty"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Transform is a transform definition. Zero fields take server defaults.
type Transform struct {
	Name             string `json:"name"`
	Namespace        string `json:"namespace,omitempty"`
	Source           string `json:"source"`
	Sink             string `json:"sink"`
	Partitions       int    `json:"partitions,omitempty"`
	Filter           string `json:"filter,omitempty"`
	Value            string `json:"value,omitempty"`
	MemoryLimitBytes int64  `json:"memoryLimitBytes,omitempty"`
	MaxBatch         int    `json:"maxBatch,omitempty"`
	CreatedAtMs      int64  `json:"createdAtMs,omitempty"`
	UpdatedAtMs      int64  `json:"updatedAtMs,omitempty"`
}

// PartitionStatus reports one processor of a transform.
type PartitionStatus struct {
	Partition uint32 `json:"partition"`
	State     string `json:"state"`
	RunID     string `json:"runId,omitempty"`
	LastError string `json:"lastError,omitempty"`
	Stats     struct {
		Read      uint64 `json:"read"`
		Filtered  uint64 `json:"filtered"`
		Emitted   uint64 `json:"emitted"`
		Batches   uint64 `json:"batches"`
		QueueUsed int64  `json:"queueUsed"`
		QueueLen  int    `json:"queueLen"`
	} `json:"stats"`
}

// TransformStatus is a definition plus the live state of its processors.
type TransformStatus struct {
	Transform
	Partitions []PartitionStatus `json:"partitionStatus"`
}

// ReadRequest selects a page of one partition.
type ReadRequest struct {
	Namespace string
	Topic     string
	Partition uint32
	Start     uint64
	Limit     int
	Reverse   bool
}

// ReadResult is a page plus the offset to resume from (0 at the end).
type ReadResult struct {
	Entries    []Entry `json:"entries"`
	NextOffset uint64  `json:"nextOffset"`
	LastOffset uint64  `json:"lastOffset"`
}

// TailRequest describes a live tail. Start 0 means only new entries.
type TailRequest struct {
	Namespace string
	Topic     string
	Partition uint32
	Start     uint64
	Limit     int
}

// AdminTransport abstracts the server API used by the CLI.
type AdminTransport interface {
	Deploy(ctx context.Context, t Transform) (Transform, error)
	List(ctx context.Context) ([]TransformStatus, error)
	Get(ctx context.Context, name string) (TransformStatus, error)
	Delete(ctx context.Context, name string) error
	Produce(ctx context.Context, ns, topic string, partition uint32, recs []Record) ([]uint64, error)
	Read(ctx context.Context, req ReadRequest) (ReadResult, error)
	Tail(ctx context.Context, req TailRequest, onEntry func(Entry) error) error
	Stats(ctx context.Context) (map[string]any, error)
}
