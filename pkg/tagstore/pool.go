package tagstore

import (
	"unicode/utf16"

	"github.com/ssargent/assetreg/pkg/codec"
)

// Pool is an offset-table string pool: one contiguous buffer of units in
// which every string is followed by a zero unit, plus the offset at which
// each string starts. String lengths are derived from neighbouring offsets
// and never stored.
type Pool[T byte | uint16] struct {
	units   []T
	offsets []uint32
}

// AnsiPool holds 8-bit strings; offsets count bytes.
type AnsiPool = Pool[byte]

// WidePool holds UTF-16 strings; offsets count 16-bit units.
type WidePool = Pool[uint16]

// NewAnsiPool builds a narrow pool. Strings must be representable in 8 bits.
func NewAnsiPool(strs []string) (AnsiPool, error) {
	var p AnsiPool
	for i, s := range strs {
		b, err := codec.EncodeNarrow(codec.Index("ansi_strings", i), s)
		if err != nil {
			return AnsiPool{}, err
		}
		if err := p.add(codec.Index("ansi_strings", i), b); err != nil {
			return AnsiPool{}, err
		}
	}
	return p, nil
}

// NewWidePool builds a UTF-16 pool.
func NewWidePool(strs []string) (WidePool, error) {
	var p WidePool
	for i, s := range strs {
		u, err := codec.EncodeWide(codec.Index("wide_strings", i), s)
		if err != nil {
			return WidePool{}, err
		}
		if err := p.add(codec.Index("wide_strings", i), u); err != nil {
			return WidePool{}, err
		}
	}
	return p, nil
}

func (p *Pool[T]) add(field string, payload []T) error {
	next := uint64(len(p.units)) + uint64(len(payload)) + 1
	if next > 0xFFFFFFFF {
		return codec.EncodeErrorf(codec.KindOversizedField, field, "pool grows to %d units", next)
	}
	p.offsets = append(p.offsets, uint32(len(p.units)))
	p.units = append(p.units, payload...)
	p.units = append(p.units, 0)
	return nil
}

// Len returns the number of strings.
func (p Pool[T]) Len() int {
	return len(p.offsets)
}

// Size returns the pool length in units, terminators included.
func (p Pool[T]) Size() int {
	return len(p.units)
}

// Offsets returns a copy of the offset table.
func (p Pool[T]) Offsets() []uint32 {
	return append([]uint32(nil), p.offsets...)
}

func (p Pool[T]) end(i int) uint32 {
	if i+1 < len(p.offsets) {
		return p.offsets[i+1]
	}
	return uint32(len(p.units))
}

// Units returns string i without its terminator. The slice aliases the pool.
func (p Pool[T]) Units(i int) []T {
	return p.units[p.offsets[i] : p.end(i)-1]
}

// String returns string i.
func (p Pool[T]) String(i int) string {
	switch u := any(p.Units(i)).(type) {
	case []byte:
		return codec.DecodeNarrow(u)
	case []uint16:
		return string(utf16.Decode(u))
	}
	return ""
}

// Strings returns every string in order.
func (p Pool[T]) Strings() []string {
	if len(p.offsets) == 0 {
		return nil
	}
	out := make([]string, len(p.offsets))
	for i := range out {
		out[i] = p.String(i)
	}
	return out
}

// checkOffsets validates an offset table against its pool size before the
// pool itself is read: the first string starts at 0, ranges are strictly
// ascending and none runs past the end.
func checkOffsets(field string, offsets []uint32, total uint32) error {
	if len(offsets) == 0 {
		if total != 0 {
			return &codec.Error{Op: codec.OpDecode, Kind: codec.KindInconsistentLength, Field: field,
				Detail: "pool has bytes but no strings", Expected: uint32(0), Actual: total}
		}
		return nil
	}
	if offsets[0] != 0 {
		return codec.Mismatch(codec.KindInconsistentLength, codec.Index(field, 0), uint32(0), offsets[0])
	}
	for i, start := range offsets {
		if start > total {
			return &codec.Error{Op: codec.OpDecode, Kind: codec.KindInconsistentLength, Field: codec.Index(field, i),
				Detail: "offset beyond pool size", Expected: total, Actual: start}
		}
		end := total
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start >= end {
			return &codec.Error{Op: codec.OpDecode, Kind: codec.KindInconsistentLength, Field: codec.Index(field, i),
				Detail: "offsets must be strictly ascending", Expected: start, Actual: end}
		}
	}
	return nil
}

// checkTerminators verifies that every range ends in a zero unit and, for
// wide pools, that the text is well-formed UTF-16.
func (p Pool[T]) checkTerminators(field string) error {
	for i := range p.offsets {
		end := p.end(i)
		if last := p.units[end-1]; last != 0 {
			return codec.Mismatch(codec.KindInvalidTermination, codec.Index(field, i), T(0), last)
		}
		if u, ok := any(p.Units(i)).([]uint16); ok {
			if _, err := codec.DecodeWide(codec.Index(field, i), u); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeOffsets(r *codec.Reader, field string, count int) ([]uint32, error) {
	if count == 0 {
		return nil, nil
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		v, err := r.U32(codec.Index(field, i))
		if err != nil {
			return nil, err
		}
		offsets[i] = v
	}
	return offsets, nil
}

func (p Pool[T]) encodeOffsets(w *codec.Writer) {
	for _, off := range p.offsets {
		w.U32(off)
	}
}

func (p Pool[T]) encodeUnits(w *codec.Writer) {
	switch u := any(p.units).(type) {
	case []byte:
		w.Raw(u)
	case []uint16:
		w.Units(u)
	}
}

func readUnits[T byte | uint16](r *codec.Reader, field string, n int) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	var zero T
	switch any(zero).(type) {
	case byte:
		b, err := r.Raw(field, n)
		return any(b).([]T), err
	default:
		u, err := r.Units(field, n)
		return any(u).([]T), err
	}
}

// decodePool reads a pool whose offsets were already read and checked.
func decodePool[T byte | uint16](r *codec.Reader, field string, offsets []uint32, total uint32) (Pool[T], error) {
	units, err := readUnits[T](r, field, int(total))
	if err != nil {
		return Pool[T]{}, err
	}
	p := Pool[T]{units: units, offsets: offsets}
	if err := p.checkTerminators(field); err != nil {
		return Pool[T]{}, err
	}
	return p, nil
}
