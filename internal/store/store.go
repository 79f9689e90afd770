// Package store implements the Index Store: a 32-byte header (magic,
// schema version, build timestamp, payload length, CRC32) wrapping a
// length-prefixed binary encoding of one index, written with a
// temp-file-fsync-rename sequence for atomic replacement.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/codeindexer/corex/internal/debuglog"
)

const (
	magic         = "CIMX"
	headerSize    = 32
	SchemaVersion = uint32(1)
)

// ErrSchemaMismatch and ErrCorrupt are never returned to callers directly;
// ReadValidated reports both as (nil, false, nil) to force a clean rebuild rather
// than attempt partial recovery, after logging once via debuglog.
var (
	ErrSchemaMismatch = errors.New("store: schema version mismatch")
	ErrCorrupt        = errors.New("store: CRC mismatch")
)

// WriteAtomic wraps payload in the 32-byte header and writes it to path via
// a temp-file-fsync-rename sequence so readers never observe a partial
// file.
func WriteAtomic(path string, payload []byte, buildUnixNano int64) error {
	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], SchemaVersion)
	binary.LittleEndian.PutUint64(header[8:16], uint64(buildUnixNano))
	binary.LittleEndian.PutUint32(header[16:20], uint32(len(payload)))
	binary.LittleEndian.PutUint32(header[20:24], crc32.ChecksumIEEE(payload))
	// bytes 24:32 reserved, left zero

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".store-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write header: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write payload: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("store: rename into place: %w", err)
	}
	return nil
}

// ReadValidated reads path, validates its header, and returns the payload.
// A missing file, a magic/schema mismatch, or a CRC mismatch all return
// (nil, false, nil): the caller treats this exactly like "no index yet" and
// forces a rebuild. Only genuine I/O errors (permission denied, disk error
// reading an existing file) are returned as err.
func ReadValidated(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: read %s: %w", path, err)
	}
	if len(data) < headerSize {
		debuglog.Indexing("store: %s too short to contain a header, discarding", path)
		return nil, false, nil
	}

	header := data[:headerSize]
	if string(header[0:4]) != magic {
		debuglog.Indexing("store: %s has bad magic, discarding", path)
		return nil, false, nil
	}
	version := binary.LittleEndian.Uint32(header[4:8])
	if version != SchemaVersion {
		debuglog.Indexing("store: %s schema version %d != %d, discarding", path, version, SchemaVersion)
		return nil, false, nil
	}
	payloadLen := binary.LittleEndian.Uint32(header[16:20])
	wantCRC := binary.LittleEndian.Uint32(header[20:24])

	payload := data[headerSize:]
	if uint32(len(payload)) != payloadLen {
		debuglog.Indexing("store: %s payload length mismatch, discarding", path)
		return nil, false, nil
	}
	if crc32.ChecksumIEEE(payload) != wantCRC {
		debuglog.Indexing("store: %s CRC mismatch, discarding", path)
		return nil, false, nil
	}
	return payload, true, nil
}
