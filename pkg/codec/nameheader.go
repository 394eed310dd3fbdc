package codec

// MaxNameLen is the largest unit count a NameHeader can carry (15 bits).
const MaxNameLen = 1<<15 - 1

// NameHeader is the 16-bit packed (width, length) pair that precedes each
// names batch entry. Len counts units including the NUL terminator.
type NameHeader struct {
	Wide bool
	Len  uint16
}

// UnitSize returns the size in bytes of one unit of this entry.
func (h NameHeader) UnitSize() uint32 {
	if h.Wide {
		return 2
	}
	return 1
}

// ByteLen returns the number of string bytes the entry occupies.
func (h NameHeader) ByteLen() uint32 {
	return uint32(h.Len) * h.UnitSize()
}

// Bytes packs the header: bit 7 of the first byte is the width flag, the
// remaining 15 bits hold Len in big-endian order.
func (h NameHeader) Bytes() ([2]byte, error) {
	if h.Len > MaxNameLen {
		return [2]byte{}, EncodeErrorf(KindOversizedField, "name_header", "unit count %d does not fit in 15 bits", h.Len)
	}
	var b [2]byte
	b[0] = byte(h.Len >> 8)
	if h.Wide {
		b[0] |= 0x80
	}
	b[1] = byte(h.Len)
	return b, nil
}

// DecodeNameHeader unpacks a header. Every bit pattern is structurally valid;
// a zero Len is for the caller to reject.
func DecodeNameHeader(b [2]byte) NameHeader {
	return NameHeader{
		Wide: b[0]&0x80 != 0,
		Len:  uint16(b[0]&0x7F)<<8 | uint16(b[1]),
	}
}

// NameHeader reads one packed header.
func (r *Reader) NameHeader(field string) (NameHeader, error) {
	var b [2]byte
	if err := r.fill(field, b[:]); err != nil {
		return NameHeader{}, err
	}
	return DecodeNameHeader(b), nil
}

// NameHeader writes one packed header.
func (w *Writer) NameHeader(field string, h NameHeader) {
	b, err := h.Bytes()
	if err != nil {
		err.(*Error).Field = field
		w.Fail(err)
		return
	}
	w.Raw(b[:])
}
