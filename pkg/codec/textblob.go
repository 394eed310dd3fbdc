package codec

// Text is a rich-text blob: a u32 length that counts the trailing NUL,
// followed by that many raw bytes. The terminator is not part of the value.
type Text string

// DecodeText reads one text blob.
func DecodeText(r *Reader, field string) (Text, error) {
	n, err := r.U32(Field(field, "len"))
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", DecodeErrorf(KindInvalidTermination, field, "text blob has no room for its terminator")
	}
	if uint64(n) > uint64(r.limits.MaxStringBytes) {
		return "", &Error{Op: OpDecode, Kind: KindOversizedField, Field: field,
			Expected: r.limits.MaxStringBytes, Actual: n}
	}
	raw, err := r.Raw(field, int(n))
	if err != nil {
		return "", err
	}
	if last := raw[n-1]; last != 0 {
		return "", Mismatch(KindInvalidTermination, field, byte(0), last)
	}
	return Text(raw[:n-1]), nil
}

// Encode writes t followed by its terminator.
func (t Text) Encode(w *Writer, field string) {
	n := len(t) + 1
	if n > MaxStringBytes {
		w.Fail(EncodeErrorf(KindOversizedField, field, "text blob of %d bytes exceeds %d", n, MaxStringBytes))
		return
	}
	w.U32(uint32(n))
	w.Raw([]byte(t))
	w.U8(0)
}
