package util

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// SnapshotEntry is a single key value pair inside a snapshot stream
type SnapshotEntry struct {
	Key   string
	Index uint64
	Value []byte
}

// WriteSnapshot writes all entries to w using the format:
//
//	magic | version (1 byte) | write index (8 bytes) | entry count (8 bytes)
//	per entry: key length (4 bytes) | key | index (8 bytes) | value length (4 bytes) | value
//
// All numbers are little endian. Engines use the same format so a snapshot written by
// one engine can be loaded by another.
func WriteSnapshot(w io.Writer, magic string, version uint8, writeIdx uint64, entries []SnapshotEntry) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	if _, err := bw.WriteString(magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, version); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, writeIdx); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(entries))); err != nil {
		return err
	}

	for _, e := range entries {
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.Key))); err != nil {
			return err
		}
		if _, err := bw.WriteString(e.Key); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, e.Index); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(e.Value))); err != nil {
			return err
		}
		if _, err := bw.Write(e.Value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadSnapshot reads a stream written by WriteSnapshot and calls fn for every entry.
// It returns the write index stored in the header.
func ReadSnapshot(r io.Reader, magic string, version uint8, fn func(SnapshotEntry)) (uint64, error) {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	magicBytes := make([]byte, len(magic))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return 0, err
	}
	if string(magicBytes) != magic {
		return 0, fmt.Errorf("invalid file format: magic number mismatch")
	}

	var v uint8
	if err := binary.Read(br, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	if v != version {
		return 0, fmt.Errorf("unsupported version: %d (expected %d)", v, version)
	}

	var writeIdx, count uint64
	if err := binary.Read(br, binary.LittleEndian, &writeIdx); err != nil {
		return 0, err
	}
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return 0, err
	}

	for i := uint64(0); i < count; i++ {
		var keyLen uint32
		if err := binary.Read(br, binary.LittleEndian, &keyLen); err != nil {
			return 0, err
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(br, key); err != nil {
			return 0, err
		}

		var index uint64
		if err := binary.Read(br, binary.LittleEndian, &index); err != nil {
			return 0, err
		}

		var valueLen uint32
		if err := binary.Read(br, binary.LittleEndian, &valueLen); err != nil {
			return 0, err
		}
		value := make([]byte, valueLen)
		if _, err := io.ReadFull(br, value); err != nil {
			return 0, err
		}

		fn(SnapshotEntry{Key: string(key), Index: index, Value: value})
	}

	return writeIdx, nil
}
