package codec

import (
	"encoding/binary"
	"io"
)

// Writer is a little-endian sink with a sticky error: after the first
// failure every call is a no-op and Err reports that failure.
type Writer struct {
	dst     io.Writer
	written int64
	err     error
	buf     [8]byte
}

// NewWriter creates a Writer over dst.
func NewWriter(dst io.Writer) *Writer {
	return &Writer{dst: dst}
}

// Err returns the first error encountered.
func (w *Writer) Err() error {
	return w.err
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int64 {
	return w.written
}

// Fail records err unless an earlier error is already held.
func (w *Writer) Fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.dst.Write(p)
	w.written += int64(n)
	if err != nil {
		w.err = &Error{Op: OpEncode, Err: err}
	}
}

func (w *Writer) U8(v uint8) {
	w.buf[0] = v
	w.write(w.buf[:1])
}

func (w *Writer) U16(v uint16) {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	w.write(w.buf[:2])
}

func (w *Writer) U32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.write(w.buf[:4])
}

func (w *Writer) I32(v int32) {
	w.U32(uint32(v))
}

func (w *Writer) U64(v uint64) {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	w.write(w.buf[:8])
}

// Raw writes p verbatim.
func (w *Writer) Raw(p []byte) {
	w.write(p)
}

// Units writes 16-bit units little-endian.
func (w *Writer) Units(units []uint16) {
	if w.err != nil || len(units) == 0 {
		return
	}
	raw := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(raw[2*i:], u)
	}
	w.write(raw)
}

// Bool32 writes a boolean as a u32 0 or 1.
func (w *Writer) Bool32(v bool) {
	if v {
		w.U32(1)
		return
	}
	w.U32(0)
}
