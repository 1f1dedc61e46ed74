package eventlog

import (
	"context"
	"testing"
)

func seedLog(t *testing.T, n int) (*Log, []uint64) {
	t.Helper()
	l := newTestLog(t)
	recs := make([]Record, n)
	for i := 0; i < n; i++ {
		recs[i] = Record{Value: []byte{byte(i)}, TimestampMs: int64(i)}
	}
	offsets, err := l.Append(context.Background(), recs)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return l, offsets
}

func TestReadForward(t *testing.T) {
	l, offsets := seedLog(t, 5)
	entries, next := l.Read(ReadOptions{Limit: 3})
	if len(entries) != 3 {
		t.Fatalf("want 3 entries, got %d", len(entries))
	}
	if entries[0].Offset != offsets[0] || entries[2].Offset != offsets[2] {
		t.Fatalf("unexpected offsets")
	}
	if entries[1].Value[0] != 1 || entries[1].TimestampMs != 1 {
		t.Fatalf("unexpected record %+v", entries[1])
	}
	if next.Offset() != offsets[3] {
		t.Fatalf("next token %d", next.Offset())
	}

	rest, next := l.Read(ReadOptions{Start: next})
	if len(rest) != 2 || rest[0].Offset != offsets[3] {
		t.Fatalf("resume read: %+v", rest)
	}
	if !next.IsZero() {
		t.Fatalf("expected zero token at end, got %d", next.Offset())
	}
}

func TestReadReverse(t *testing.T) {
	l, offsets := seedLog(t, 4)
	entries, next := l.Read(ReadOptions{Reverse: true, Limit: 2})
	if len(entries) != 2 {
		t.Fatalf("want 2, got %d", len(entries))
	}
	if !(entries[0].Offset == offsets[3] && entries[1].Offset == offsets[2]) {
		t.Fatalf("unexpected reverse order")
	}
	rest, _ := l.Read(ReadOptions{Reverse: true, Start: next})
	if len(rest) != 2 || rest[0].Offset != offsets[1] || rest[1].Offset != offsets[0] {
		t.Fatalf("reverse resume: %+v", rest)
	}
}

func TestSeekByToken(t *testing.T) {
	l, offsets := seedLog(t, 4)
	entries, _ := l.Read(ReadOptions{Start: TokenFromOffset(offsets[2]), Limit: 2})
	if len(entries) != 2 || entries[0].Offset != offsets[2] {
		t.Fatalf("seek failed")
	}
	if entries, _ := l.Read(ReadOptions{Start: TokenFromOffset(offsets[3] + 1)}); len(entries) != 0 {
		t.Fatalf("read past end returned %d entries", len(entries))
	}
}

func TestReadSkipsCorruptEntries(t *testing.T) {
	l, offsets := seedLog(t, 3)
	if err := l.db.Set(KeyLogEntry("ns", "t", 1, offsets[1]), []byte("garbage")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	entries, _ := l.Read(ReadOptions{})
	if len(entries) != 2 || entries[0].Offset != offsets[0] || entries[1].Offset != offsets[2] {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if l.Corrupted() != 1 {
		t.Fatalf("corrupted = %d", l.Corrupted())
	}
}
