package codec

import (
	"errors"
	"fmt"
)

// ErrNameNotFound is returned when a reference points outside its name table.
var ErrNameNotFound = errors.New("name index not found")

// NameTable resolves a table index to its base string. *names.Batch
// implements it; the codec itself never owns a table.
type NameTable interface {
	NameAt(index uint32) (string, bool)
}

// NameRef is an index into the container's name table plus an instance
// number. Number 0 means "no suffix"; N renders as "_<N-1>".
type NameRef struct {
	Index  uint32
	Number uint32
}

// DisplayNameRef is a name reference without an instance number.
type DisplayNameRef struct {
	Index uint32
}

func DecodeNameRef(r *Reader, field string) (NameRef, error) {
	idx, err := r.U32(Field(field, "index"))
	if err != nil {
		return NameRef{}, err
	}
	num, err := r.U32(Field(field, "number"))
	if err != nil {
		return NameRef{}, err
	}
	return NameRef{Index: idx, Number: num}, nil
}

func (n NameRef) Encode(w *Writer) {
	w.U32(n.Index)
	w.U32(n.Number)
}

// Resolve renders the reference against t.
func (n NameRef) Resolve(t NameTable) (string, error) {
	base, ok := t.NameAt(n.Index)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrNameNotFound, n.Index)
	}
	if n.Number == 0 {
		return base, nil
	}
	return fmt.Sprintf("%s_%d", base, n.Number-1), nil
}

func DecodeDisplayNameRef(r *Reader, field string) (DisplayNameRef, error) {
	idx, err := r.U32(Field(field, "index"))
	if err != nil {
		return DisplayNameRef{}, err
	}
	return DisplayNameRef{Index: idx}, nil
}

func (n DisplayNameRef) Encode(w *Writer) {
	w.U32(n.Index)
}

// Resolve renders the reference against t.
func (n DisplayNameRef) Resolve(t NameTable) (string, error) {
	base, ok := t.NameAt(n.Index)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrNameNotFound, n.Index)
	}
	return base, nil
}

// ExportPath locates an exported object by class, object and package name.
type ExportPath struct {
	Class   NameRef
	Object  NameRef
	Package NameRef
}

func DecodeExportPath(r *Reader, field string) (ExportPath, error) {
	var p ExportPath
	var err error
	if p.Class, err = DecodeNameRef(r, Field(field, "class")); err != nil {
		return ExportPath{}, err
	}
	if p.Object, err = DecodeNameRef(r, Field(field, "object")); err != nil {
		return ExportPath{}, err
	}
	if p.Package, err = DecodeNameRef(r, Field(field, "package")); err != nil {
		return ExportPath{}, err
	}
	return p, nil
}

func (p ExportPath) Encode(w *Writer) {
	p.Class.Encode(w)
	p.Object.Encode(w)
	p.Package.Encode(w)
}

// NumberlessExportPath is ExportPath with display-only references.
type NumberlessExportPath struct {
	Class   DisplayNameRef
	Object  DisplayNameRef
	Package DisplayNameRef
}

func DecodeNumberlessExportPath(r *Reader, field string) (NumberlessExportPath, error) {
	var p NumberlessExportPath
	var err error
	if p.Class, err = DecodeDisplayNameRef(r, Field(field, "class")); err != nil {
		return NumberlessExportPath{}, err
	}
	if p.Object, err = DecodeDisplayNameRef(r, Field(field, "object")); err != nil {
		return NumberlessExportPath{}, err
	}
	if p.Package, err = DecodeDisplayNameRef(r, Field(field, "package")); err != nil {
		return NumberlessExportPath{}, err
	}
	return p, nil
}

func (p NumberlessExportPath) Encode(w *Writer) {
	p.Class.Encode(w)
	p.Object.Encode(w)
	p.Package.Encode(w)
}

// Encoded sizes of the fixed-shape records.
const (
	NameRefSize              = 8
	DisplayNameRefSize       = 4
	ExportPathSize           = 3 * NameRefSize
	NumberlessExportPathSize = 3 * DisplayNameRefSize
)
