package eventlog

import (
	"encoding/binary"
)

// Token encodes a read position as an offset (8 bytes big-endian).
type Token [8]byte

// TokenFromOffset returns a Token positioned at offset.
func TokenFromOffset(offset uint64) Token {
	var t Token
	binary.BigEndian.PutUint64(t[:], offset)
	return t
}

// Offset returns the position encoded in t. Zero means "from the start" for
// forward reads and "from the end" for reverse reads.
func (t Token) Offset() uint64 { return binary.BigEndian.Uint64(t[:]) }

// IsZero reports whether t carries no position.
func (t Token) IsZero() bool { return t == Token{} }

// ReadOptions selects a window of entries.
type ReadOptions struct {
	Start   Token // if zero, begin from the first (or last, when Reverse) entry
	Limit   int   // zero means unbounded
	Reverse bool
}

// Read returns up to Limit entries starting at Start (inclusive for forward
// reads, exclusive for reverse). The returned Token is the position of the
// next unread entry, or zero when the scan reached the end. Entries that
// fail to decode are skipped and counted by Corrupted.
func (l *Log) Read(opts ReadOptions) ([]Entry, Token) {
	prefix := KeyLogEntryPrefix(l.namespace, l.topic, l.part)
	entries := make([]Entry, 0, min(max(opts.Limit, 1), 1024))
	var next Token

	iter, err := l.db.NewPrefixIter(prefix)
	if err != nil {
		return entries, next
	}
	defer iter.Close()

	start := opts.Start.Offset()
	startKey := KeyLogEntry(l.namespace, l.topic, l.part, start)

	var valid bool
	step := iter.Next
	switch {
	case opts.Reverse && start == 0:
		valid = iter.Last()
		step = iter.Prev
	case opts.Reverse:
		valid = iter.SeekLT(startKey)
		step = iter.Prev
	case start == 0:
		valid = iter.First()
	default:
		valid = iter.SeekGE(startKey)
	}

	for ; valid; valid = step() {
		key := iter.Key()
		offset := binary.BigEndian.Uint64(key[len(prefix):])
		if opts.Limit > 0 && len(entries) >= opts.Limit {
			if opts.Reverse {
				// reverse starts are exclusive
				offset++
			}
			next = TokenFromOffset(offset)
			break
		}
		rec, err := DecodeRecord(iter.Value())
		if err != nil {
			l.corrupt.Add(1)
			continue
		}
		entries = append(entries, Entry{Offset: offset, Record: rec})
	}
	return entries, next
}
