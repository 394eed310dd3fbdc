// Package codec provides the binary primitives shared by every section of an
// asset registry container.
//
// All multi-byte integers are little-endian. A Reader decodes from any
// io.Reader and a Writer encodes to any io.Writer; both are single-use
// cursors and must not be shared between goroutines.
//
// # Variable-Width Strings
//
// Strings are prefixed with a signed 32-bit length whose sign selects the
// character width:
//
//	[+N][N narrow bytes]              8-bit text, no terminator implied
//	[-N][N UTF-16LE units, last = 0]  wide text, terminator counted in N
//
// A string is written narrow only when every code point is below U+0080, so a
// single non-ASCII rune moves the whole string to the wide form. Lengths of 0
// and math.MinInt32 are rejected, as is anything above Limits.MaxStringBytes.
//
// # Packed Name Headers
//
// Each names batch entry is described by two bytes:
//
//	byte 0: [wide:1][len high:7]
//	byte 1: [len low:8]
//
// Len counts units including the terminator and is at most MaxNameLen.
//
// # Records
//
//	NameRef               [u32 index][u32 number]
//	DisplayNameRef        [u32 index]
//	ExportPath            [NameRef class][NameRef object][NameRef package]
//	NumberlessExportPath  [DisplayNameRef x3]
//	Text                  [u32 len incl. NUL][bytes][0x00]
//	Bool32                [u32 0|1]
//
// # Errors
//
// Every failure is an *Error carrying the direction, a Kind, the dotted path
// of the failing field and, where it applies, the expected and actual values.
// Each Kind unwraps to a sentinel so callers can test with errors.Is:
//
//	if errors.Is(err, codec.ErrMalformedMagic) { ... }
//
// # Resource Limits
//
// Declared counts and lengths are checked against Limits and, when the source
// implements Len() int (bytes.Reader, bytes.Buffer, strings.Reader), against
// the bytes actually remaining. Both checks run before the allocation the
// declared size would drive.
package codec
