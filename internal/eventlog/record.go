package eventlog

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"sort"
)

// Entry encoding:
//
//	tsMs(8B BE) | uvarint keyLen | key | uvarint hdrLen | headers | value | crc32c
//
// headers are uvarint-prefixed key/value pairs sorted by key. The trailing
// crc covers every preceding byte.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var errCorrupt = errors.New("eventlog: corrupt record")

// Record is a single appendable event.
type Record struct {
	Key         []byte
	Value       []byte
	Headers     map[string]string
	TimestampMs int64
}

// recordOverhead approximates the fixed cost of a Record held in memory.
const recordOverhead = 64

// MemoryUsage approximates the bytes a Record keeps alive while buffered.
func (r Record) MemoryUsage() int {
	n := recordOverhead + len(r.Key) + len(r.Value)
	for k, v := range r.Headers {
		n += len(k) + len(v) + 16
	}
	return n
}

// Entry is a Record read back from the log together with its offset.
type Entry struct {
	Offset uint64
	Record
}

// MemoryUsage includes the offset.
func (e Entry) MemoryUsage() int { return e.Record.MemoryUsage() + 8 }

func encodeHeaders(dst []byte, headers map[string]string) []byte {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		dst = binary.AppendUvarint(dst, uint64(len(k)))
		dst = append(dst, k...)
		v := headers[k]
		dst = binary.AppendUvarint(dst, uint64(len(v)))
		dst = append(dst, v...)
	}
	return dst
}

func decodeHeaders(b []byte) (map[string]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	out := make(map[string]string)
	for len(b) > 0 {
		k, rest, err := readChunk(b)
		if err != nil {
			return nil, err
		}
		v, rest, err := readChunk(rest)
		if err != nil {
			return nil, err
		}
		out[string(k)] = string(v)
		b = rest
	}
	return out, nil
}

// readChunk splits a uvarint-prefixed byte string off the front of b.
func readChunk(b []byte) ([]byte, []byte, error) {
	n, w := binary.Uvarint(b)
	if w <= 0 || uint64(len(b)-w) < n {
		return nil, nil, errCorrupt
	}
	end := w + int(n)
	return b[w:end], b[end:], nil
}

// EncodeRecord serializes r in the on-disk entry format.
func EncodeRecord(r Record) []byte {
	hdr := encodeHeaders(nil, r.Headers)
	out := make([]byte, 0, 8+2*binary.MaxVarintLen64+len(r.Key)+len(hdr)+len(r.Value)+4)
	out = binary.BigEndian.AppendUint64(out, uint64(r.TimestampMs))
	out = binary.AppendUvarint(out, uint64(len(r.Key)))
	out = append(out, r.Key...)
	out = binary.AppendUvarint(out, uint64(len(hdr)))
	out = append(out, hdr...)
	out = append(out, r.Value...)
	return binary.BigEndian.AppendUint32(out, crc32.Checksum(out, castagnoli))
}

// DecodeRecord parses an entry produced by EncodeRecord. The returned Record
// does not alias b.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < 8+1+1+4 {
		return Record{}, errCorrupt
	}
	body := b[:len(b)-4]
	if crc32.Checksum(body, castagnoli) != binary.BigEndian.Uint32(b[len(b)-4:]) {
		return Record{}, errCorrupt
	}
	ts := int64(binary.BigEndian.Uint64(body[:8]))
	key, rest, err := readChunk(body[8:])
	if err != nil {
		return Record{}, err
	}
	hdr, value, err := readChunk(rest)
	if err != nil {
		return Record{}, err
	}
	headers, err := decodeHeaders(hdr)
	if err != nil {
		return Record{}, err
	}
	rec := Record{Headers: headers, TimestampMs: ts}
	if len(key) > 0 {
		rec.Key = append([]byte(nil), key...)
	}
	if len(value) > 0 {
		rec.Value = append([]byte(nil), value...)
	}
	return rec, nil
}
