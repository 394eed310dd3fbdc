// Package tagstore implements store data, the magic-framed tag value store
// that backs every asset's tag map.
//
// Layout, in order:
//
//	u32 begin magic (0x12345679)
//	11 x u32 counts: texts, numberless names, names, numberless export
//	    paths, export paths, ansi strings, wide strings, ansi pool bytes,
//	    wide pool units, numberless pairs, numbered pairs
//	texts, numberless names, names, numberless export paths, export paths
//	ansi offsets, wide offsets, ansi pool, wide pool
//	numberless pairs, numbered pairs
//	u32 end magic (0x87654321)
//
// The ansi pool's offsets and total count bytes. The wide pool's offsets and
// total count 16-bit units, not bytes: a wide pool of N units occupies 2N
// bytes on the wire.
//
// Every count is checked against the reader's limits, and the bytes the
// counts imply against the input, before any array is allocated.
package tagstore

import (
	"errors"
	"fmt"

	"github.com/ssargent/assetreg/pkg/codec"
)

const (
	BeginMagic uint32 = 0x12345679
	EndMagic   uint32 = 0x87654321
)

// StoreData is a decoded tag value store.
type StoreData struct {
	Texts                 []codec.Text
	NumberlessNames       []codec.DisplayNameRef
	Names                 []codec.NameRef
	NumberlessExportPaths []codec.NumberlessExportPath
	ExportPaths           []codec.ExportPath
	AnsiStrings           AnsiPool
	WideStrings           WidePool
	NumberlessPairs       []NumberlessPair
	Pairs                 []NumberedPair
}

// Counts is the store's count header.
type Counts struct {
	Texts                 uint32 `json:"texts" yaml:"texts"`
	NumberlessNames       uint32 `json:"numberless_names" yaml:"numberless_names"`
	Names                 uint32 `json:"names" yaml:"names"`
	NumberlessExportPaths uint32 `json:"numberless_export_paths" yaml:"numberless_export_paths"`
	ExportPaths           uint32 `json:"export_paths" yaml:"export_paths"`
	AnsiStrings           uint32 `json:"ansi_strings" yaml:"ansi_strings"`
	WideStrings           uint32 `json:"wide_strings" yaml:"wide_strings"`
	AnsiBytes             uint32 `json:"ansi_bytes" yaml:"ansi_bytes"`
	WideUnits             uint32 `json:"wide_units" yaml:"wide_units"`
	NumberlessPairs       uint32 `json:"numberless_pairs" yaml:"numberless_pairs"`
	Pairs                 uint32 `json:"pairs" yaml:"pairs"`
}

func (c *Counts) fields() []*uint32 {
	return []*uint32{
		&c.Texts, &c.NumberlessNames, &c.Names, &c.NumberlessExportPaths, &c.ExportPaths,
		&c.AnsiStrings, &c.WideStrings, &c.AnsiBytes, &c.WideUnits,
		&c.NumberlessPairs, &c.Pairs,
	}
}

var countNames = []string{
	"texts", "numberless_names", "names", "numberless_export_paths", "export_paths",
	"ansi_strings", "wide_strings", "ansi_bytes", "wide_units",
	"numberless_pairs", "pairs",
}

// Counts reports the header s would be written with.
func (s *StoreData) Counts() Counts {
	return Counts{
		Texts:                 uint32(len(s.Texts)),
		NumberlessNames:       uint32(len(s.NumberlessNames)),
		Names:                 uint32(len(s.Names)),
		NumberlessExportPaths: uint32(len(s.NumberlessExportPaths)),
		ExportPaths:           uint32(len(s.ExportPaths)),
		AnsiStrings:           uint32(s.AnsiStrings.Len()),
		WideStrings:           uint32(s.WideStrings.Len()),
		AnsiBytes:             uint32(s.AnsiStrings.Size()),
		WideUnits:             uint32(s.WideStrings.Size()),
		NumberlessPairs:       uint32(len(s.NumberlessPairs)),
		Pairs:                 uint32(len(s.Pairs)),
	}
}

func decodeArray[T any](r *codec.Reader, field string, n int, dec func(*codec.Reader, string) (T, error)) ([]T, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]T, n)
	for i := range out {
		v, err := dec(r, codec.Index(field, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Decode reads one store. It stops at the first malformed field.
func Decode(r *codec.Reader, field string) (*StoreData, error) {
	if err := r.Magic(codec.Field(field, "begin_magic"), BeginMagic); err != nil {
		return nil, err
	}

	var c Counts
	for i, p := range c.fields() {
		v, err := r.U32(codec.Field(field, "counts."+countNames[i]))
		if err != nil {
			return nil, err
		}
		*p = v
	}
	n, err := checkCounts(r, field, c)
	if err != nil {
		return nil, err
	}

	s := &StoreData{}
	if s.Texts, err = decodeArray(r, codec.Field(field, "texts"), n.texts, codec.DecodeText); err != nil {
		return nil, err
	}
	if s.NumberlessNames, err = decodeArray(r, codec.Field(field, "numberless_names"), n.numberlessNames, codec.DecodeDisplayNameRef); err != nil {
		return nil, err
	}
	if s.Names, err = decodeArray(r, codec.Field(field, "names"), n.names, codec.DecodeNameRef); err != nil {
		return nil, err
	}
	if s.NumberlessExportPaths, err = decodeArray(r, codec.Field(field, "numberless_export_paths"), n.numberlessExportPaths, codec.DecodeNumberlessExportPath); err != nil {
		return nil, err
	}
	if s.ExportPaths, err = decodeArray(r, codec.Field(field, "export_paths"), n.exportPaths, codec.DecodeExportPath); err != nil {
		return nil, err
	}

	ansiField, wideField := codec.Field(field, "ansi_offsets"), codec.Field(field, "wide_offsets")
	ansiOffsets, err := decodeOffsets(r, ansiField, n.ansiStrings)
	if err != nil {
		return nil, err
	}
	wideOffsets, err := decodeOffsets(r, wideField, n.wideStrings)
	if err != nil {
		return nil, err
	}
	if err := checkOffsets(ansiField, ansiOffsets, c.AnsiBytes); err != nil {
		return nil, err
	}
	if err := checkOffsets(wideField, wideOffsets, c.WideUnits); err != nil {
		return nil, err
	}
	if s.AnsiStrings, err = decodePool[byte](r, codec.Field(field, "ansi_strings"), ansiOffsets, c.AnsiBytes); err != nil {
		return nil, err
	}
	if s.WideStrings, err = decodePool[uint16](r, codec.Field(field, "wide_strings"), wideOffsets, c.WideUnits); err != nil {
		return nil, err
	}

	if s.NumberlessPairs, err = decodeArray(r, codec.Field(field, "numberless_pairs"), n.numberlessPairs, decodeNumberlessPair); err != nil {
		return nil, err
	}
	if s.Pairs, err = decodeArray(r, codec.Field(field, "pairs"), n.pairs, decodeNumberedPair); err != nil {
		return nil, err
	}

	if err := r.Magic(codec.Field(field, "end_magic"), EndMagic); err != nil {
		return nil, err
	}
	return s, nil
}

type sizes struct {
	texts, numberlessNames, names, numberlessExportPaths, exportPaths int
	ansiStrings, wideStrings, numberlessPairs, pairs                 int
}

// checkCounts bounds every declared count and the total the counts imply.
func checkCounts(r *codec.Reader, field string, c Counts) (sizes, error) {
	limits := r.Limits()
	var n sizes
	arrays := []struct {
		name string
		raw  uint32
		size int
		dst  *int
	}{
		{"texts", c.Texts, 5, &n.texts},
		{"numberless_names", c.NumberlessNames, codec.DisplayNameRefSize, &n.numberlessNames},
		{"names", c.Names, codec.NameRefSize, &n.names},
		{"numberless_export_paths", c.NumberlessExportPaths, codec.NumberlessExportPathSize, &n.numberlessExportPaths},
		{"export_paths", c.ExportPaths, codec.ExportPathSize, &n.exportPaths},
		{"ansi_offsets", c.AnsiStrings, 4, &n.ansiStrings},
		{"wide_offsets", c.WideStrings, 4, &n.wideStrings},
		{"numberless_pairs", c.NumberlessPairs, numberlessPairSize, &n.numberlessPairs},
		{"pairs", c.Pairs, numberedPairSize, &n.pairs},
	}

	need := uint64(4) // end magic
	for _, a := range arrays {
		v, err := r.Count(codec.Field(field, a.name), a.raw, a.size)
		if err != nil {
			return sizes{}, err
		}
		*a.dst = v
		need += uint64(a.raw) * uint64(a.size)
	}

	if uint64(c.AnsiBytes) > uint64(limits.MaxPoolBytes) {
		return sizes{}, &codec.Error{Op: codec.OpDecode, Kind: codec.KindOversizedField, Field: codec.Field(field, "ansi_strings"),
			Detail: "pool above limit", Expected: limits.MaxPoolBytes, Actual: c.AnsiBytes}
	}
	if uint64(c.WideUnits)*2 > uint64(limits.MaxPoolBytes) {
		return sizes{}, &codec.Error{Op: codec.OpDecode, Kind: codec.KindOversizedField, Field: codec.Field(field, "wide_strings"),
			Detail: "pool above limit", Expected: limits.MaxPoolBytes, Actual: uint64(c.WideUnits) * 2}
	}
	need += uint64(c.AnsiBytes) + uint64(c.WideUnits)*2

	if err := r.Need(field, need); err != nil {
		return sizes{}, err
	}
	return n, nil
}

// Encode writes s. Value references and pool sizes are checked before the
// first byte is written.
func (s *StoreData) Encode(w *codec.Writer, field string) {
	if w.Err() != nil {
		return
	}
	numberless := make([]uint32, len(s.NumberlessPairs))
	for i, p := range s.NumberlessPairs {
		v, err := PackValueRef(codec.Index(codec.Field(field, "numberless_pairs"), i)+".value", p.Value)
		if err != nil {
			w.Fail(err)
			return
		}
		numberless[i] = v
	}
	numbered := make([]uint32, len(s.Pairs))
	for i, p := range s.Pairs {
		v, err := PackValueRef(codec.Index(codec.Field(field, "pairs"), i)+".value", p.Value)
		if err != nil {
			w.Fail(err)
			return
		}
		numbered[i] = v
	}
	for i, t := range s.Texts {
		if len(t)+1 > codec.MaxStringBytes {
			w.Fail(codec.EncodeErrorf(codec.KindOversizedField, codec.Index(codec.Field(field, "texts"), i),
				"text blob of %d bytes exceeds %d", len(t)+1, codec.MaxStringBytes))
			return
		}
	}

	c := s.Counts()
	w.U32(BeginMagic)
	for _, p := range c.fields() {
		w.U32(*p)
	}
	for i, t := range s.Texts {
		t.Encode(w, codec.Index(codec.Field(field, "texts"), i))
	}
	for _, n := range s.NumberlessNames {
		n.Encode(w)
	}
	for _, n := range s.Names {
		n.Encode(w)
	}
	for _, p := range s.NumberlessExportPaths {
		p.Encode(w)
	}
	for _, p := range s.ExportPaths {
		p.Encode(w)
	}
	s.AnsiStrings.encodeOffsets(w)
	s.WideStrings.encodeOffsets(w)
	s.AnsiStrings.encodeUnits(w)
	s.WideStrings.encodeUnits(w)
	for i, p := range s.NumberlessPairs {
		p.Key.Encode(w)
		w.U32(numberless[i])
	}
	for i, p := range s.Pairs {
		p.Key.Encode(w)
		w.U32(numbered[i])
	}
	w.U32(EndMagic)
}

// Validate checks cross-references: pair keys must resolve in names and
// value indexes must fall inside the array their kind addresses.
func (s *StoreData) Validate(names codec.NameTable) error {
	var errs []error
	checkValue := func(field string, v ValueRef) {
		switch x := v.(type) {
		case PointerValue:
			if int64(x.Index) >= int64(len(s.ExportPaths)) {
				errs = append(errs, fmt.Errorf("%s: pointer index %d outside %d export paths", field, x.Index, len(s.ExportPaths)))
			}
		case NameValue:
			if int64(x.Index) >= int64(len(s.Names)) {
				errs = append(errs, fmt.Errorf("%s: name index %d outside %d names", field, x.Index, len(s.Names)))
			}
		}
	}
	for i, p := range s.NumberlessPairs {
		f := codec.Index("numberless_pairs", i)
		if _, ok := names.NameAt(p.Key.Index); !ok {
			errs = append(errs, fmt.Errorf("%s.key: %w: %d", f, codec.ErrNameNotFound, p.Key.Index))
		}
		checkValue(f+".value", p.Value)
	}
	for i, p := range s.Pairs {
		f := codec.Index("pairs", i)
		if _, ok := names.NameAt(p.Key.Index); !ok {
			errs = append(errs, fmt.Errorf("%s.key: %w: %d", f, codec.ErrNameNotFound, p.Key.Index))
		}
		checkValue(f+".value", p.Value)
	}
	return errors.Join(errs...)
}
