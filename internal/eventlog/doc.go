// Package eventlog implements the append-only partitioned log that transform
// processors read from and write to.
//
// # Overview
//
// The log is partitioned by namespace/topic/partition and persisted in Pebble.
// Keys are lexicographically ordered for efficient range scans:
//   - ns/{ns}/log/{topic}/{part_be4}/m              (partition metadata: last offset)
//   - ns/{ns}/log/{topic}/{part_be4}/e/{offset_be8} (entries)
//   - ns/{ns}/cursor/{topic}/{group}/{part_be4}     (durable group cursors)
//
// Entries are stored as:
//
//	tsMs(8B BE) | uvarint keyLen | key | uvarint hdrLen | headers | value | crc32c
//
// API surface (internal)
//
//	l, _ := OpenLog(db, ns, topic, part)
//	// Append a batch atomically; returns assigned offsets (first is 1)
//	offsets, _ := l.Append(ctx, []Record{{Key: k, Value: v}})
//
//	// Read forward/reverse with an optional start token and limit
//	entries, next := l.Read(ReadOptions{Start: TokenFromOffset(offsets[0]), Limit: 100})
//	_ = next // resume position
//
//	// Blocking wait/notify
//	woke := l.WaitForAppend(ctx, 200*time.Millisecond)
//	_ = woke
//
//	// Durable consumer cursor commits (idempotent, no regression)
//	_ = l.CommitCursor("groupA", offsets[len(offsets)-1])
package eventlog
