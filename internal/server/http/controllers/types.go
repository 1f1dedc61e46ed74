package controllers

import (
	"github.com/rzbill/flo-transform/internal/eventlog"
	"github.com/rzbill/flo-transform/internal/registry"
)

// Common request/response types for HTTP controllers

// deployReq is the body of /v1/transforms/deploy. Zero fields take server
// defaults.
type deployReq struct {
	Name             string `json:"name"`
	Namespace        string `json:"namespace"`
	Source           string `json:"source"`
	Sink             string `json:"sink"`
	Partitions       int    `json:"partitions"`
	Filter           string `json:"filter"`
	Value            string `json:"value"`
	MemoryLimitBytes int64  `json:"memoryLimitBytes"`
	MaxBatch         int    `json:"maxBatch"`
}

func (r deployReq) meta() registry.Meta {
	return registry.Meta{
		Name:             r.Name,
		Namespace:        r.Namespace,
		Source:           r.Source,
		Sink:             r.Sink,
		Partitions:       r.Partitions,
		Filter:           r.Filter,
		Value:            r.Value,
		MemoryLimitBytes: r.MemoryLimitBytes,
		MaxBatch:         r.MaxBatch,
	}
}

// nameReq names a single transform.
type nameReq struct {
	Name string `json:"name"`
}

// recordJSON is one record of a produce request. Key and Value are base64.
type recordJSON struct {
	Key     []byte            `json:"key,omitempty"`
	Value   []byte            `json:"value"`
	Headers map[string]string `json:"headers,omitempty"`
}

// produceReq appends records to one partition.
type produceReq struct {
	Namespace string       `json:"namespace"`
	Topic     string       `json:"topic"`
	Partition uint32       `json:"partition"`
	Records   []recordJSON `json:"records"`
}

type produceResp struct {
	Offsets []uint64 `json:"offsets"`
}

// entryJSON is a stored entry as returned by read and tail.
type entryJSON struct {
	Offset      uint64            `json:"offset"`
	TimestampMs int64             `json:"tsMs"`
	Key         []byte            `json:"key,omitempty"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers,omitempty"`
}

func toEntryJSON(e eventlog.Entry) entryJSON {
	return entryJSON{Offset: e.Offset, TimestampMs: e.TimestampMs, Key: e.Key, Value: e.Value, Headers: e.Headers}
}

type readResp struct {
	Entries    []entryJSON `json:"entries"`
	NextOffset uint64      `json:"nextOffset"`
	LastOffset uint64      `json:"lastOffset"`
}
