package tagstore

import (
	"fmt"

	"github.com/ssargent/assetreg/pkg/codec"
)

// ValueKind is the 3-bit discriminant of a packed value reference.
type ValueKind uint8

const (
	KindNone ValueKind = iota
	KindPointer
	KindName
)

// MaxValueIndex is the largest index a packed value reference can carry.
const MaxValueIndex = 1<<29 - 1

func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindPointer:
		return "pointer"
	case KindName:
		return "name"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// ValueRef is the value half of a tag pair. It is one of NoValue,
// PointerValue or NameValue; a nil ValueRef encodes as NoValue.
type ValueRef interface {
	Kind() ValueKind
	isValueRef()
}

// NoValue marks a pair without a value.
type NoValue struct{}

// PointerValue indexes the store's export paths.
type PointerValue struct {
	Index uint32
}

// NameValue indexes the store's numbered names.
type NameValue struct {
	Index uint32
}

func (NoValue) Kind() ValueKind      { return KindNone }
func (PointerValue) Kind() ValueKind { return KindPointer }
func (NameValue) Kind() ValueKind    { return KindName }

func (NoValue) isValueRef()      {}
func (PointerValue) isValueRef() {}
func (NameValue) isValueRef()    {}

func (NoValue) String() string        { return "none" }
func (v PointerValue) String() string { return fmt.Sprintf("pointer[%d]", v.Index) }
func (v NameValue) String() string    { return fmt.Sprintf("name[%d]", v.Index) }

// PackValueRef packs v into its 32-bit wire form: kind in the low 3 bits,
// index in the high 29.
func PackValueRef(field string, v ValueRef) (uint32, error) {
	var idx uint32
	switch x := v.(type) {
	case nil, NoValue:
		return uint32(KindNone), nil
	case PointerValue:
		idx = x.Index
	case NameValue:
		idx = x.Index
	default:
		return 0, codec.EncodeErrorf(codec.KindUnknownTag, field, "unsupported value reference %T", v)
	}
	if idx > MaxValueIndex {
		return 0, &codec.Error{Op: codec.OpEncode, Kind: codec.KindOversizedField, Field: field,
			Detail: "value index does not fit in 29 bits", Expected: uint32(MaxValueIndex), Actual: idx}
	}
	return idx<<3 | uint32(v.Kind()), nil
}

// DecodeValueRef unpacks a 32-bit value reference. Kinds outside the closed
// set fail, as does a none kind carrying an index.
func DecodeValueRef(field string, raw uint32) (ValueRef, error) {
	kind := ValueKind(raw & 0x7)
	idx := raw >> 3
	switch kind {
	case KindNone:
		if idx != 0 {
			return nil, codec.DecodeErrorf(codec.KindUnknownTag, field, "none value carries index %d", idx)
		}
		return NoValue{}, nil
	case KindPointer:
		return PointerValue{Index: idx}, nil
	case KindName:
		return NameValue{Index: idx}, nil
	default:
		return nil, codec.DecodeErrorf(codec.KindUnknownTag, field, "value kind %d is not one of none, pointer, name", kind)
	}
}

func decodeValue(r *codec.Reader, field string) (ValueRef, error) {
	raw, err := r.U32(field)
	if err != nil {
		return nil, err
	}
	return DecodeValueRef(field, raw)
}

// NumberedPair is a tag keyed by a full name reference.
type NumberedPair struct {
	Key   codec.NameRef
	Value ValueRef
}

// NumberlessPair is a tag keyed by a display-only name reference.
type NumberlessPair struct {
	Key   codec.DisplayNameRef
	Value ValueRef
}

const (
	numberedPairSize   = codec.NameRefSize + 4
	numberlessPairSize = codec.DisplayNameRefSize + 4
)

func decodeNumberedPair(r *codec.Reader, field string) (NumberedPair, error) {
	key, err := codec.DecodeNameRef(r, codec.Field(field, "key"))
	if err != nil {
		return NumberedPair{}, err
	}
	v, err := decodeValue(r, codec.Field(field, "value"))
	if err != nil {
		return NumberedPair{}, err
	}
	return NumberedPair{Key: key, Value: v}, nil
}

func decodeNumberlessPair(r *codec.Reader, field string) (NumberlessPair, error) {
	key, err := codec.DecodeDisplayNameRef(r, codec.Field(field, "key"))
	if err != nil {
		return NumberlessPair{}, err
	}
	v, err := decodeValue(r, codec.Field(field, "value"))
	if err != nil {
		return NumberlessPair{}, err
	}
	return NumberlessPair{Key: key, Value: v}, nil
}
