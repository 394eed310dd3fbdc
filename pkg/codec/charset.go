package codec

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// IsPureNarrow reports whether every code point of s is below U+0080.
// Invalid UTF-8 decodes to U+FFFD and therefore is never narrow.
func IsPureNarrow(s string) bool {
	for _, r := range s {
		if r >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// DecodeNarrow interprets b as 8-bit (ISO-8859-1) text.
func DecodeNarrow(b []byte) string {
	if isASCII(b) {
		return string(b)
	}
	// Every byte is a valid ISO-8859-1 code point, so the decoder cannot fail.
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(b)
	return string(out)
}

// EncodeNarrow converts s to 8-bit (ISO-8859-1) bytes. Code points above
// U+00FF cannot be represented narrowly.
func EncodeNarrow(field, s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, EncodeErrorf(KindInvalidEncoding, field, "string is not valid UTF-8")
	}
	if IsPureNarrow(s) {
		return []byte(s), nil
	}
	out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, &Error{Op: OpEncode, Kind: KindInvalidEncoding, Field: field,
			Detail: "string has code points outside the narrow range", Err: err}
	}
	return out, nil
}

// NarrowLen returns the number of narrow units s would occupy, or -1 when s
// cannot be encoded narrowly.
func NarrowLen(s string) int {
	if !utf8.ValidString(s) {
		return -1
	}
	n := 0
	for _, r := range s {
		if r > 0xFF {
			return -1
		}
		n++
	}
	return n
}

// DecodeWide converts UTF-16 units (without terminator) to a string. Unpaired
// surrogates are rejected.
func DecodeWide(field string, units []uint16) (string, error) {
	for i := 0; i < len(units); i++ {
		u := units[i]
		switch {
		case utf16.IsSurrogate(rune(u)) && u < 0xDC00:
			if i+1 >= len(units) || units[i+1] < 0xDC00 || units[i+1] > 0xDFFF {
				return "", DecodeErrorf(KindInvalidEncoding, field, "unpaired high surrogate 0x%04X at unit %d", u, i)
			}
			i++
		case utf16.IsSurrogate(rune(u)):
			return "", DecodeErrorf(KindInvalidEncoding, field, "unpaired low surrogate 0x%04X at unit %d", u, i)
		}
	}
	return string(utf16.Decode(units)), nil
}

// EncodeWide converts s to UTF-16 units without a terminator.
func EncodeWide(field, s string) ([]uint16, error) {
	if !utf8.ValidString(s) {
		return nil, EncodeErrorf(KindInvalidEncoding, field, "string is not valid UTF-8")
	}
	return utf16.Encode([]rune(s)), nil
}
