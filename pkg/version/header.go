package version

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/ssargent/assetreg/pkg/codec"
)

// GUID is the 16-byte format identifier in on-disk byte order.
type GUID [16]byte

// RegistryGUID identifies an asset registry file:
// 717F9EE7-E9B0493A-88B39132-1B388107 stored as four little-endian u32.
var RegistryGUID = GUID{
	0xE7, 0x9E, 0x7F, 0x71, 0x3A, 0x49, 0xB0, 0xE9,
	0x32, 0x91, 0xB3, 0x88, 0x07, 0x81, 0x38, 0x1B,
}

// String renders the GUID as four hex words, the engine's native form.
func (g GUID) String() string {
	return fmt.Sprintf("%08X-%08X-%08X-%08X",
		binary.LittleEndian.Uint32(g[0:4]),
		binary.LittleEndian.Uint32(g[4:8]),
		binary.LittleEndian.Uint32(g[8:12]),
		binary.LittleEndian.Uint32(g[12:16]))
}

// UUID returns the raw bytes as an RFC 4122 value for tools that expect one.
func (g GUID) UUID() uuid.UUID {
	return uuid.UUID(g)
}

// Header is the container preamble.
type Header struct {
	GUID                 GUID
	Version              Version
	FilterEditorOnlyData bool
}

// NewHeader returns a header for the version the encoder writes.
func NewHeader(filterEditorOnly bool) Header {
	return Header{GUID: RegistryGUID, Version: Latest, FilterEditorOnlyData: filterEditorOnly}
}

var headerFields = Table[Header]{
	{
		Name:  "filter_editor_only_data",
		Since: AddedHeader,
		Decode: func(r *codec.Reader, field string, h *Header) error {
			v, err := r.Bool32(field)
			h.FilterEditorOnlyData = v
			return err
		},
		Encode: func(w *codec.Writer, field string, h *Header) {
			w.Bool32(h.FilterEditorOnlyData)
		},
	},
}

// HeaderFields lists the version-gated header fields.
func HeaderFields() Table[Header] {
	return headerFields
}

// DecodeHeader reads and validates the GUID, the version and every field
// the version enables.
func DecodeHeader(r *codec.Reader, field string) (Header, error) {
	raw, err := r.Raw(codec.Field(field, "guid"), len(GUID{}))
	if err != nil {
		return Header{}, err
	}
	var h Header
	copy(h.GUID[:], raw)
	if !bytes.Equal(raw, RegistryGUID[:]) {
		return Header{}, codec.Mismatch(codec.KindMalformedMagic, codec.Field(field, "guid"), RegistryGUID, h.GUID)
	}

	n, err := r.U32(codec.Field(field, "version"))
	if err != nil {
		return Header{}, err
	}
	h.Version = Version(n)
	if !h.Version.Decodable() {
		return Header{}, &codec.Error{
			Op: codec.OpDecode, Kind: codec.KindUnsupportedVersion, Field: codec.Field(field, "version"),
			Detail: fmt.Sprintf("decodable range is %s..%s", Oldest, Latest),
			Actual: h.Version,
		}
	}

	if err := headerFields.Decode(r, field, h.Version, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Encode writes the header at Latest; h.Version and h.GUID are not consulted.
func (h Header) Encode(w *codec.Writer, field string) {
	w.Raw(RegistryGUID[:])
	w.U32(uint32(Latest))
	headerFields.Encode(w, field, Latest, &h)
}
