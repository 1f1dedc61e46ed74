package eventlog

import (
	"encoding/binary"
)

// CommitCursor stores the last processed offset for a group/partition
// idempotently. If offset is not above the stored one, the commit is ignored.
// A group is expected to have a single committer.
func (l *Log) CommitCursor(group string, offset uint64) error {
	if prev, ok := l.Cursor(group); ok && offset <= prev {
		return nil
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], offset)
	return l.db.Set(KeyCursor(l.namespace, l.topic, group, l.part), b[:])
}

// Cursor loads the last committed offset for a group/partition.
func (l *Log) Cursor(group string) (uint64, bool) {
	cur, err := l.db.Get(KeyCursor(l.namespace, l.topic, group, l.part))
	if err != nil || len(cur) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(cur[:8]), true
}
