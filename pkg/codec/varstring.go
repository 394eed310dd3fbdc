package codec

import "math"

// VarString writes s with the signed-length convention: a positive length
// followed by raw bytes for pure narrow text, or a negative unit count
// followed by NUL-terminated UTF-16LE for anything else.
//
// The empty string is written as a wide string holding only its terminator,
// since a zero length is not decodable.
func (w *Writer) VarString(field, s string) {
	if w.err != nil {
		return
	}
	if s != "" && IsPureNarrow(s) {
		if len(s) > MaxStringBytes {
			w.Fail(EncodeErrorf(KindOversizedField, field, "narrow string of %d bytes exceeds %d", len(s), MaxStringBytes))
			return
		}
		w.I32(int32(len(s)))
		w.Raw([]byte(s))
		return
	}
	w.wideString(field, s)
}

// TerminatedString writes s like VarString but keeps a NUL inside the
// narrow form's length, so the empty string is [1][00]. Wide strings are
// identical to VarString.
func (w *Writer) TerminatedString(field, s string) {
	if w.err != nil {
		return
	}
	if !IsPureNarrow(s) {
		w.wideString(field, s)
		return
	}
	if len(s)+1 > MaxStringBytes {
		w.Fail(EncodeErrorf(KindOversizedField, field, "narrow string of %d bytes exceeds %d", len(s)+1, MaxStringBytes))
		return
	}
	w.I32(int32(len(s) + 1))
	w.Raw([]byte(s))
	w.U8(0)
}

func (w *Writer) wideString(field, s string) {
	units, err := EncodeWide(field, s)
	if err != nil {
		w.Fail(err)
		return
	}
	units = append(units, 0)
	if len(units) > MaxStringBytes {
		w.Fail(EncodeErrorf(KindOversizedField, field, "wide string of %d units exceeds %d", len(units), MaxStringBytes))
		return
	}
	w.I32(-int32(len(units)))
	w.Units(units)
}

// VarString reads a signed-length string. Narrow payloads are returned
// verbatim (no terminator is required or stripped); wide payloads must end
// in a zero unit, which is dropped.
func (r *Reader) VarString(field string) (string, error) {
	n, err := r.I32(Field(field, "len"))
	if err != nil {
		return "", err
	}
	switch {
	case n == 0:
		return "", DecodeErrorf(KindInconsistentLength, field, "zero string length")
	case n == math.MinInt32:
		return "", DecodeErrorf(KindOversizedField, field, "string length %d cannot be negated", n)
	}

	if n > 0 {
		if int64(n) > int64(r.limits.MaxStringBytes) {
			return "", &Error{Op: OpDecode, Kind: KindOversizedField, Field: field,
				Expected: r.limits.MaxStringBytes, Actual: int(n)}
		}
		raw, err := r.Raw(field, int(n))
		if err != nil {
			return "", err
		}
		if terminated {
			if last := raw[n-1]; last != 0 {
				return "", Mismatch(KindInvalidTermination, field, uint8(0), last)
			}
			raw = raw[:n-1]
		}
		return DecodeNarrow(raw), nil
	}

	count := int(-n)
	if count > r.limits.MaxStringBytes {
		return "", &Error{Op: OpDecode, Kind: KindOversizedField, Field: field,
			Expected: r.limits.MaxStringBytes, Actual: count}
	}
	units, err := r.Units(field, count)
	if err != nil {
		return "", err
	}
	if last := units[count-1]; last != 0 {
		return "", Mismatch(KindInvalidTermination, field, uint16(0), last)
	}
	return DecodeWide(field, units[:count-1])
}
