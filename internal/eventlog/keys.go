package eventlog

import (
	"encoding/binary"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - ns/{ns}/log/{topic}/{part_be4}/m
// - ns/{ns}/log/{topic}/{part_be4}/e/{offset_be8}
// - ns/{ns}/cursor/{topic}/{group}/{part_be4}

var (
	sep        = byte('/')
	nsPrefix   = []byte("ns/")
	logSeg     = []byte("/log/")
	cursorSeg  = []byte("/cursor/")
	metaSuffix = []byte("/m")
	entrySeg   = []byte("/e/")
)

func partitionPrefix(namespace, topic string, partition uint32) []byte {
	k := make([]byte, 0, len(namespace)+len(topic)+32)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, logSeg...)
	k = append(k, topic...)
	k = append(k, sep)
	return binary.BigEndian.AppendUint32(k, partition)
}

// KeyLogMeta builds the partition metadata key.
func KeyLogMeta(namespace, topic string, partition uint32) []byte {
	return append(partitionPrefix(namespace, topic, partition), metaSuffix...)
}

// KeyLogEntryPrefix is the common prefix of every entry key in a partition.
func KeyLogEntryPrefix(namespace, topic string, partition uint32) []byte {
	return append(partitionPrefix(namespace, topic, partition), entrySeg...)
}

// KeyLogEntry builds the entry key with a big-endian offset for proper ordering.
func KeyLogEntry(namespace, topic string, partition uint32, offset uint64) []byte {
	return binary.BigEndian.AppendUint64(KeyLogEntryPrefix(namespace, topic, partition), offset)
}

// KeyCursor builds the durable cursor key for a group and partition.
func KeyCursor(namespace, topic, group string, partition uint32) []byte {
	k := make([]byte, 0, len(namespace)+len(topic)+len(group)+32)
	k = append(k, nsPrefix...)
	k = append(k, namespace...)
	k = append(k, cursorSeg...)
	k = append(k, topic...)
	k = append(k, sep)
	k = append(k, group...)
	k = append(k, sep)
	return binary.BigEndian.AppendUint32(k, partition)
}
