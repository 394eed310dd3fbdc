package codec

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Kind classifies a codec failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindMalformedMagic means a fixed constant (GUID, begin or end magic) did not match.
	KindMalformedMagic
	// KindUnsupportedVersion means the version ordinal is unknown or too old to decode.
	KindUnsupportedVersion
	// KindInconsistentLength means a derived or accumulated length disagrees with a declared one.
	KindInconsistentLength
	// KindInvalidTermination means an expected NUL terminator is missing.
	KindInvalidTermination
	// KindInvalidEncoding means text is not valid for its claimed width.
	KindInvalidEncoding
	// KindOversizedField means a length or count exceeds a sanity bound.
	KindOversizedField
	// KindUnknownTag means a closed-set discriminant is outside its legal range.
	KindUnknownTag
	// KindTruncated means the input ended inside a field.
	KindTruncated
)

// Sentinels for errors.Is. Every *Error unwraps to the sentinel of its Kind.
var (
	ErrMalformedMagic     = errors.New("malformed magic")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrInconsistentLength = errors.New("inconsistent length")
	ErrInvalidTermination = errors.New("invalid termination")
	ErrInvalidEncoding    = errors.New("invalid encoding")
	ErrOversizedField     = errors.New("oversized field")
	ErrUnknownTag         = errors.New("unknown tag")
	ErrTruncated          = errors.New("truncated input")
)

var kindSentinels = map[Kind]error{
	KindMalformedMagic:     ErrMalformedMagic,
	KindUnsupportedVersion: ErrUnsupportedVersion,
	KindInconsistentLength: ErrInconsistentLength,
	KindInvalidTermination: ErrInvalidTermination,
	KindInvalidEncoding:    ErrInvalidEncoding,
	KindOversizedField:     ErrOversizedField,
	KindUnknownTag:         ErrUnknownTag,
	KindTruncated:          ErrTruncated,
}

func (k Kind) String() string {
	switch k {
	case KindMalformedMagic:
		return "malformed_magic"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindInconsistentLength:
		return "inconsistent_length"
	case KindInvalidTermination:
		return "invalid_termination"
	case KindInvalidEncoding:
		return "invalid_encoding"
	case KindOversizedField:
		return "oversized_field"
	case KindUnknownTag:
		return "unknown_tag"
	case KindTruncated:
		return "truncated"
	default:
		return "unknown"
	}
}

// Op names the direction of a failed operation.
type Op string

const (
	OpDecode Op = "decode"
	OpEncode Op = "encode"
)

// Error is the single error type returned by the codec packages.
type Error struct {
	Op       Op
	Kind     Kind
	Field    string // dotted path of the field being processed, e.g. "store.ansi_offsets[3]"
	Expected any    // nil when not applicable
	Actual   any
	Detail   string
	Err      error // underlying cause, usually an io error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Op))
	if e.Field != "" {
		b.WriteString(" ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	if s, ok := kindSentinels[e.Kind]; ok {
		b.WriteString(s.Error())
	} else {
		b.WriteString("codec error")
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Expected != nil || e.Actual != nil {
		fmt.Fprintf(&b, " (expected %v, got %v)", formatValue(e.Expected), formatValue(e.Actual))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case uint32:
		return fmt.Sprintf("%d (0x%08X)", x, x)
	case uint64:
		return fmt.Sprintf("%d (0x%X)", x, x)
	case []byte:
		return fmt.Sprintf("% X", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// KindOf reports the Kind of err, or KindUnknown when err is not a codec error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// DecodeErrorf builds a decode-side *Error with a formatted detail.
func DecodeErrorf(kind Kind, field, format string, args ...any) *Error {
	return &Error{Op: OpDecode, Kind: kind, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// EncodeErrorf builds an encode-side *Error with a formatted detail.
func EncodeErrorf(kind Kind, field, format string, args ...any) *Error {
	return &Error{Op: OpEncode, Kind: kind, Field: field, Detail: fmt.Sprintf(format, args...)}
}

// Mismatch builds a decode error carrying an expected and an actual value.
func Mismatch(kind Kind, field string, expected, actual any) *Error {
	return &Error{Op: OpDecode, Kind: kind, Field: field, Expected: expected, Actual: actual}
}

// readError turns an io failure inside field into a codec error.
func readError(field string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &Error{Op: OpDecode, Kind: KindTruncated, Field: field, Err: err}
	}
	return &Error{Op: OpDecode, Kind: KindUnknown, Field: field, Err: err}
}

// Field joins a parent path and a child name.
func Field(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// Index formats an indexed element path such as "names.hashes[4]".
func Index(parent string, i int) string {
	return fmt.Sprintf("%s[%d]", parent, i)
}
