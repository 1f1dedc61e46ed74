package eventlog

import (
	"testing"
)

func TestRecordRoundtrip(t *testing.T) {
	in := Record{
		Key:         []byte("user-1"),
		Value:       []byte(`{"n":1}`),
		Headers:     map[string]string{"b": "2", "a": "1"},
		TimestampMs: 1700000000123,
	}
	out, err := DecodeRecord(EncodeRecord(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(out.Key) != "user-1" || string(out.Value) != `{"n":1}` {
		t.Fatalf("unexpected record %+v", out)
	}
	if out.TimestampMs != in.TimestampMs {
		t.Fatalf("ts %d", out.TimestampMs)
	}
	if len(out.Headers) != 2 || out.Headers["a"] != "1" || out.Headers["b"] != "2" {
		t.Fatalf("headers %v", out.Headers)
	}
}

func TestRecordEmptyFields(t *testing.T) {
	out, err := DecodeRecord(EncodeRecord(Record{}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Key != nil || out.Value != nil || out.Headers != nil {
		t.Fatalf("expected empty record, got %+v", out)
	}
}

func TestHeaderEncodingIsDeterministic(t *testing.T) {
	h := map[string]string{"z": "1", "a": "2", "m": "3"}
	a := EncodeRecord(Record{Headers: h})
	for range 10 {
		if b := EncodeRecord(Record{Headers: h}); string(a) != string(b) {
			t.Fatalf("encoding depends on map order")
		}
	}
}

func TestRecordCRCFail(t *testing.T) {
	rec := EncodeRecord(Record{Key: []byte("x"), Value: []byte("y")})
	rec[9] ^= 0xFF
	if _, err := DecodeRecord(rec); err == nil {
		t.Fatalf("expected crc failure")
	}
	if _, err := DecodeRecord([]byte{1, 2}); err == nil {
		t.Fatalf("expected short record failure")
	}
}

func TestMemoryUsage(t *testing.T) {
	small := Record{Value: []byte("a")}
	big := Record{Value: make([]byte, 1024), Headers: map[string]string{"k": "v"}}
	if small.MemoryUsage() >= big.MemoryUsage() {
		t.Fatalf("usage should grow with payload")
	}
	if got := (Entry{Record: small}).MemoryUsage(); got != small.MemoryUsage()+8 {
		t.Fatalf("entry usage %d", got)
	}
}
