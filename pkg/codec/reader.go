package codec

import (
	"encoding/binary"
	"io"
	"math"
)

// Default ceilings applied before any allocation.
const (
	// MaxStringBytes bounds a single variable-width string or text blob.
	MaxStringBytes = 16 << 20
	// DefaultMaxPoolBytes bounds one store data string pool.
	DefaultMaxPoolBytes = 256 << 20
	// DefaultMaxArrayCount bounds the element count of any array.
	DefaultMaxArrayCount = 1 << 24
)

// Limits are the sanity bounds a Reader enforces on declared sizes.
type Limits struct {
	MaxStringBytes int
	MaxPoolBytes   int
	MaxArrayCount  int
}

// DefaultLimits returns the limits used when none are supplied.
func DefaultLimits() Limits {
	return Limits{
		MaxStringBytes: MaxStringBytes,
		MaxPoolBytes:   DefaultMaxPoolBytes,
		MaxArrayCount:  DefaultMaxArrayCount,
	}
}

func (l Limits) orDefault() Limits {
	d := DefaultLimits()
	if l.MaxStringBytes <= 0 {
		l.MaxStringBytes = d.MaxStringBytes
	}
	if l.MaxPoolBytes <= 0 {
		l.MaxPoolBytes = d.MaxPoolBytes
	}
	if l.MaxArrayCount <= 0 {
		l.MaxArrayCount = d.MaxArrayCount
	}
	return l
}

// lener is implemented by in-memory sources (bytes.Reader, bytes.Buffer,
// strings.Reader) and reports the number of unread bytes.
type lener interface {
	Len() int
}

// Reader is a little-endian cursor over a byte source. It validates every
// declared size against its Limits and, when the source can report it,
// against the bytes actually remaining.
type Reader struct {
	src    io.Reader
	sized  lener
	limits Limits
	offset int64
	buf    [8]byte
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithLimits overrides the default limits. Zero fields keep their defaults.
func WithLimits(l Limits) ReaderOption {
	return func(r *Reader) {
		r.limits = l.orDefault()
	}
}

// NewReader creates a Reader over src.
func NewReader(src io.Reader, opts ...ReaderOption) *Reader {
	r := &Reader{src: src, limits: DefaultLimits()}
	if s, ok := src.(lener); ok {
		r.sized = s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Limits returns the limits in effect.
func (r *Reader) Limits() Limits {
	return r.limits
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Remaining reports the unread byte count when the source knows it.
func (r *Reader) Remaining() (int, bool) {
	if r.sized == nil {
		return 0, false
	}
	return r.sized.Len(), true
}

// Need fails with KindTruncated when the source is known to hold fewer than n bytes.
func (r *Reader) Need(field string, n uint64) error {
	if left, ok := r.Remaining(); ok && n > uint64(left) {
		return &Error{Op: OpDecode, Kind: KindTruncated, Field: field,
			Detail: "declared size exceeds remaining input", Expected: n, Actual: uint64(left)}
	}
	return nil
}

func (r *Reader) fill(field string, p []byte) error {
	n, err := io.ReadFull(r.src, p)
	r.offset += int64(n)
	if err != nil {
		return readError(field, err)
	}
	return nil
}

func (r *Reader) U8(field string) (uint8, error) {
	if err := r.fill(field, r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

func (r *Reader) U16(field string) (uint16, error) {
	if err := r.fill(field, r.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[:2]), nil
}

func (r *Reader) U32(field string) (uint32, error) {
	if err := r.fill(field, r.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

func (r *Reader) I32(field string) (int32, error) {
	v, err := r.U32(field)
	return int32(v), err
}

func (r *Reader) U64(field string) (uint64, error) {
	if err := r.fill(field, r.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

// Raw reads exactly n bytes into a fresh buffer. Callers bound n first.
func (r *Reader) Raw(field string, n int) ([]byte, error) {
	if n < 0 {
		return nil, DecodeErrorf(KindOversizedField, field, "negative length %d", n)
	}
	if err := r.Need(field, uint64(n)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if err := r.fill(field, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Units reads n little-endian 16-bit units. Callers bound n first.
func (r *Reader) Units(field string, n int) ([]uint16, error) {
	raw, err := r.Raw(field, n*2)
	if err != nil {
		return nil, err
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[2*i:])
	}
	return units, nil
}

// Count validates a declared element count before it sizes an allocation.
// elemSize is the minimum encoded size of one element.
func (r *Reader) Count(field string, n uint32, elemSize int) (int, error) {
	if uint64(n) > uint64(r.limits.MaxArrayCount) {
		return 0, &Error{Op: OpDecode, Kind: KindOversizedField, Field: field,
			Detail: "element count above limit", Expected: uint64(r.limits.MaxArrayCount), Actual: uint64(n)}
	}
	if err := r.Need(field, uint64(n)*uint64(elemSize)); err != nil {
		return 0, err
	}
	if uint64(n) > math.MaxInt32 {
		return 0, DecodeErrorf(KindOversizedField, field, "count %d does not fit in int32", n)
	}
	return int(n), nil
}

// Magic reads a u32 and compares it against want.
func (r *Reader) Magic(field string, want uint32) error {
	got, err := r.U32(field)
	if err != nil {
		return err
	}
	if got != want {
		return Mismatch(KindMalformedMagic, field, want, got)
	}
	return nil
}

// Bool32 reads the 32-bit boolean used by the container: 0 or 1, nothing else.
func (r *Reader) Bool32(field string) (bool, error) {
	v, err := r.U32(field)
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, DecodeErrorf(KindUnknownTag, field, "bool value 0x%X is neither 0 nor 1", v)
	}
}
