package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// writer is a small length-prefixed binary encoder shared by the shallow
// and deep codecs. Every string is written as a uint32 length followed by
// its UTF-8 bytes; this keeps the on-disk format simple and stable rather
// than depending on a general-purpose format like gob or protobuf.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) u32(v uint32)  { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) i32(v int32)   { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) i64(v int64)   { binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *writer) boolean(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}
func (w *writer) str(s string) {
	w.u32(uint32(len(s)))
	w.buf.WriteString(s)
}
func (w *writer) bytes() []byte { return w.buf.Bytes() }

// reader is the matching decoder; any short read surfaces as io.ErrUnexpectedEOF.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader { return &reader{data: data} }

func (r *reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func (r *reader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) i32() (int32, error) {
	v, err := r.u32()
	return int32(v), err
}

func (r *reader) i64() (int64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return int64(v), nil
}

func (r *reader) boolean() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.data[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *reader) done() bool { return r.pos >= len(r.data) }

func wrapDecodeErr(kind string, err error) error {
	return fmt.Errorf("store: decode %s: %w", kind, err)
}
