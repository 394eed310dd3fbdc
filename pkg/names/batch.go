// Package names implements the names batch: the container's deduplicated
// name table.
//
// Layout:
//
//	[u32 count][u32 string bytes][u64 hash algorithm]
//	[count x u64 hash][count x 2-byte header][count x NUL-terminated string]
//
// Each header alone decides the width and unit count of its string. The
// string bytes field must equal the sum of every header's byte width.
// Hashes and the hash algorithm id are carried through unchanged.
package names

import (
	"fmt"

	"github.com/ssargent/assetreg/pkg/codec"
)

// Batch is a decoded names batch. Hashes, Headers and Strings are parallel.
type Batch struct {
	HashAlgorithm uint64
	Hashes        []uint64
	Headers       []codec.NameHeader
	Strings       []string
}

// New builds a batch, deriving each header from its string: narrow when the
// string is pure narrow, wide otherwise.
func New(hashAlgorithm uint64, strs []string, hashes []uint64) (*Batch, error) {
	if len(strs) != len(hashes) {
		return nil, codec.EncodeErrorf(codec.KindInconsistentLength, "names",
			"%d strings but %d hashes", len(strs), len(hashes))
	}
	b := &Batch{
		HashAlgorithm: hashAlgorithm,
		Hashes:        make([]uint64, len(hashes)),
		Headers:       make([]codec.NameHeader, len(strs)),
		Strings:       make([]string, len(strs)),
	}
	copy(b.Hashes, hashes)
	copy(b.Strings, strs)
	for i, s := range strs {
		h, err := headerFor(codec.Index("names.strings", i), s)
		if err != nil {
			return nil, err
		}
		b.Headers[i] = h
	}
	return b, nil
}

func headerFor(field, s string) (codec.NameHeader, error) {
	var units int
	wide := !codec.IsPureNarrow(s)
	if wide {
		u, err := codec.EncodeWide(field, s)
		if err != nil {
			return codec.NameHeader{}, err
		}
		units = len(u) + 1
	} else {
		units = len(s) + 1
	}
	if units > codec.MaxNameLen {
		return codec.NameHeader{}, codec.EncodeErrorf(codec.KindOversizedField, field,
			"name of %d units exceeds %d", units, codec.MaxNameLen)
	}
	return codec.NameHeader{Wide: wide, Len: uint16(units)}, nil
}

// Len returns the number of names.
func (b *Batch) Len() int {
	return len(b.Strings)
}

// NameAt implements codec.NameTable.
func (b *Batch) NameAt(index uint32) (string, bool) {
	if uint64(index) >= uint64(len(b.Strings)) {
		return "", false
	}
	return b.Strings[index], true
}

// Index returns the position of s, or -1.
func (b *Batch) Index(s string) int {
	for i, v := range b.Strings {
		if v == s {
			return i
		}
	}
	return -1
}

// StringBytes returns the total string byte count the headers declare.
func (b *Batch) StringBytes() uint64 {
	var total uint64
	for _, h := range b.Headers {
		total += uint64(h.ByteLen())
	}
	return total
}

// Row is one name with its header and hash, for listings.
type Row struct {
	Index uint32 `json:"index" yaml:"index" cbor:"index"`
	Name  string `json:"name" yaml:"name" cbor:"name"`
	Wide  bool   `json:"wide" yaml:"wide" cbor:"wide"`
	Units uint16 `json:"units" yaml:"units" cbor:"units"`
	Hash  string `json:"hash" yaml:"hash" cbor:"hash"`
}

// Rows lists the batch in table order.
func (b *Batch) Rows() []Row {
	rows := make([]Row, len(b.Strings))
	for i, s := range b.Strings {
		rows[i] = Row{
			Index: uint32(i),
			Name:  s,
			Wide:  b.Headers[i].Wide,
			Units: b.Headers[i].Len,
			Hash:  fmt.Sprintf("0x%016X", b.Hashes[i]),
		}
	}
	return rows
}

// Decode reads a names batch.
func Decode(r *codec.Reader, field string) (*Batch, error) {
	rawCount, err := r.U32(codec.Field(field, "count"))
	if err != nil {
		return nil, err
	}
	expected, err := r.U32(codec.Field(field, "string_bytes"))
	if err != nil {
		return nil, err
	}
	algo, err := r.U64(codec.Field(field, "hash_algorithm"))
	if err != nil {
		return nil, err
	}

	// Every entry needs at least a hash, a header and a terminator.
	count, err := r.Count(codec.Field(field, "count"), rawCount, 8+2+1)
	if err != nil {
		return nil, err
	}
	if err := r.Need(codec.Field(field, "string_bytes"), uint64(count)*10+uint64(expected)); err != nil {
		return nil, err
	}

	b := &Batch{
		HashAlgorithm: algo,
		Hashes:        make([]uint64, count),
		Headers:       make([]codec.NameHeader, count),
		Strings:       make([]string, count),
	}
	for i := range b.Hashes {
		if b.Hashes[i], err = r.U64(codec.Index(codec.Field(field, "hashes"), i)); err != nil {
			return nil, err
		}
	}
	for i := range b.Headers {
		if b.Headers[i], err = r.NameHeader(codec.Index(codec.Field(field, "headers"), i)); err != nil {
			return nil, err
		}
	}

	var consumed uint64
	for i, h := range b.Headers {
		f := codec.Index(codec.Field(field, "strings"), i)
		if h.Len == 0 {
			return nil, codec.DecodeErrorf(codec.KindInconsistentLength, codec.Index(codec.Field(field, "headers"), i),
				"zero-length entry leaves no room for its terminator")
		}
		if consumed+uint64(h.ByteLen()) > uint64(expected) {
			return nil, &codec.Error{
				Op:       codec.OpDecode,
				Kind:     codec.KindInconsistentLength,
				Field:    f,
				Detail:   "entries overrun the declared string bytes",
				Expected: expected,
				Actual:   consumed + uint64(h.ByteLen()),
			}
		}
		if b.Strings[i], err = readEntry(r, f, h); err != nil {
			return nil, err
		}
		consumed += uint64(h.ByteLen())
	}
	if consumed != uint64(expected) {
		return nil, &codec.Error{
			Op:       codec.OpDecode,
			Kind:     codec.KindInconsistentLength,
			Field:    codec.Field(field, "string_bytes"),
			Detail:   "entries do not account for the declared string bytes",
			Expected: expected,
			Actual:   consumed,
		}
	}
	return b, nil
}

func readEntry(r *codec.Reader, field string, h codec.NameHeader) (string, error) {
	n := int(h.Len)
	if h.Wide {
		units, err := r.Units(field, n)
		if err != nil {
			return "", err
		}
		if last := units[n-1]; last != 0 {
			return "", codec.Mismatch(codec.KindInvalidTermination, field, uint16(0), last)
		}
		return codec.DecodeWide(field, units[:n-1])
	}
	raw, err := r.Raw(field, n)
	if err != nil {
		return "", err
	}
	if last := raw[n-1]; last != 0 {
		return "", codec.Mismatch(codec.KindInvalidTermination, field, byte(0), last)
	}
	return codec.DecodeNarrow(raw[:n-1]), nil
}

// Encode writes the batch. The parallel sequences must have equal length and
// every header must match its string's encoded length.
func (b *Batch) Encode(w *codec.Writer, field string) {
	if w.Err() != nil {
		return
	}
	if len(b.Hashes) != len(b.Strings) || len(b.Headers) != len(b.Strings) {
		w.Fail(codec.EncodeErrorf(codec.KindInconsistentLength, field,
			"%d hashes, %d headers, %d strings", len(b.Hashes), len(b.Headers), len(b.Strings)))
		return
	}
	if uint64(len(b.Strings)) > 0xFFFFFFFF {
		w.Fail(codec.EncodeErrorf(codec.KindOversizedField, codec.Field(field, "count"), "%d names", len(b.Strings)))
		return
	}

	payloads := make([][]byte, len(b.Strings))
	wide := make([][]uint16, len(b.Strings))
	for i, s := range b.Strings {
		f := codec.Index(codec.Field(field, "strings"), i)
		h := b.Headers[i]
		if h.Len == 0 {
			w.Fail(codec.EncodeErrorf(codec.KindInconsistentLength, f, "header length is zero"))
			return
		}
		var units int
		if h.Wide {
			u, err := codec.EncodeWide(f, s)
			if err != nil {
				w.Fail(err)
				return
			}
			wide[i], units = u, len(u)
		} else {
			p, err := codec.EncodeNarrow(f, s)
			if err != nil {
				w.Fail(err)
				return
			}
			payloads[i], units = p, len(p)
		}
		if units+1 != int(h.Len) {
			w.Fail(&codec.Error{Op: codec.OpEncode, Kind: codec.KindInconsistentLength, Field: f,
				Detail: fmt.Sprintf("header does not match %q", s), Expected: int(h.Len), Actual: units + 1})
			return
		}
	}

	total := b.StringBytes()
	if total > 0xFFFFFFFF {
		w.Fail(codec.EncodeErrorf(codec.KindOversizedField, codec.Field(field, "string_bytes"), "%d bytes", total))
		return
	}

	w.U32(uint32(len(b.Strings)))
	w.U32(uint32(total))
	w.U64(b.HashAlgorithm)
	for _, h := range b.Hashes {
		w.U64(h)
	}
	for i, h := range b.Headers {
		w.NameHeader(codec.Index(codec.Field(field, "headers"), i), h)
	}
	for i, h := range b.Headers {
		if h.Wide {
			w.Units(wide[i])
			w.U16(0)
		} else {
			w.Raw(payloads[i])
			w.U8(0)
		}
	}
}
