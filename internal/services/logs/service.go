package logsvc

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/flo-transform/internal/eventlog"
	"github.com/rzbill/flo-transform/internal/runtime"
	logpkg "github.com/rzbill/flo-transform/pkg/log"
)

// ErrInvalid is returned for malformed requests.
var ErrInvalid = errors.New("logs: invalid request")

// Service exposes produce/read/tail over the runtime's event logs.
type Service struct {
	rt     *runtime.Runtime
	logger logpkg.Logger
}

// New returns a Service. A nil logger discards output.
func New(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.Nop()
	}
	return &Service{rt: rt, logger: logger.With(logpkg.Component("logs"))}
}

// Produce appends records to one partition and returns their offsets.
// Records without a timestamp are stamped with the current time.
func (s *Service) Produce(ctx context.Context, ns, topic string, partition uint32, recs []eventlog.Record) ([]uint64, error) {
	if len(recs) == 0 {
		return nil, errors.Join(ErrInvalid, errors.New("no records"))
	}
	l, err := s.rt.OpenLog(ns, topic, partition)
	if err != nil {
		return nil, errors.Join(ErrInvalid, err)
	}
	now := time.Now().UnixMilli()
	for i := range recs {
		if recs[i].TimestampMs == 0 {
			recs[i].TimestampMs = now
		}
	}
	start := time.Now()
	offsets, err := l.Append(ctx, recs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("logs.produce",
		logpkg.Str("log", l.String()),
		logpkg.Int("n", len(recs)),
		logpkg.Uint64("last_offset", offsets[len(offsets)-1]),
		logpkg.Duration("dur", time.Since(start)))
	return offsets, nil
}

// ReadRequest selects a window of one partition.
type ReadRequest struct {
	Namespace string
	Topic     string
	Partition uint32
	Start     uint64
	Limit     int
	Reverse   bool
}

// ReadResult is a page of entries plus the offset to resume from (0 at the end).
type ReadResult struct {
	Entries    []eventlog.Entry
	NextOffset uint64
	LastOffset uint64
}

// Read returns one page of entries.
func (s *Service) Read(req ReadRequest) (ReadResult, error) {
	l, err := s.rt.OpenLog(req.Namespace, req.Topic, req.Partition)
	if err != nil {
		return ReadResult{}, errors.Join(ErrInvalid, err)
	}
	entries, next := l.Read(eventlog.ReadOptions{
		Start:   eventlog.TokenFromOffset(req.Start),
		Limit:   req.Limit,
		Reverse: req.Reverse,
	})
	return ReadResult{Entries: entries, NextOffset: next.Offset(), LastOffset: l.LastOffset()}, nil
}

// TailSink receives tailed entries. Send errors end the tail.
type TailSink interface {
	Send(eventlog.Entry) error
	Flush() error
}

// Tail streams entries starting at start (0 means only new entries) until
// ctx is done, limit entries were sent (0 means unbounded) or sink fails.
func (s *Service) Tail(ctx context.Context, ns, topic string, partition uint32, start uint64, limit int, sink TailSink) error {
	l, err := s.rt.OpenLog(ns, topic, partition)
	if err != nil {
		return errors.Join(ErrInvalid, err)
	}
	if start == 0 {
		start = l.LastOffset() + 1
	}
	sent := 0
	for ctx.Err() == nil {
		entries, _ := l.Read(eventlog.ReadOptions{Start: eventlog.TokenFromOffset(start), Limit: 256})
		if len(entries) == 0 {
			l.WaitForAppend(ctx, time.Second)
			continue
		}
		for _, e := range entries {
			if err := sink.Send(e); err != nil {
				return err
			}
			sent++
			if limit > 0 && sent >= limit {
				return sink.Flush()
			}
		}
		if err := sink.Flush(); err != nil {
			return err
		}
		start = entries[len(entries)-1].Offset + 1
	}
	return nil
}
