package registry

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/names"
	"github.com/ssargent/assetreg/pkg/tagstore"
	"github.com/ssargent/assetreg/pkg/version"
)

var registryCmp = cmp.AllowUnexported(tagstore.AnsiPool{}, tagstore.WidePool{})

func sample(t *testing.T) *Registry {
	t.Helper()
	reg, err := Sample()
	require.NoError(t, err)
	return reg
}

func TestRegistry_RoundTrip(t *testing.T) {
	reg := sample(t)
	encoded, err := reg.EncodeBytes()
	require.NoError(t, err)

	got, err := DecodeBytes(encoded)
	require.NoError(t, err)
	if diff := cmp.Diff(reg, got, registryCmp); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	again, err := got.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestRegistry_DecodeFromUnsizedReader(t *testing.T) {
	encoded, err := sample(t).EncodeBytes()
	require.NoError(t, err)

	got, err := Decode(plainReader{bytes.NewReader(encoded)})
	require.NoError(t, err)
	assert.Equal(t, 11, got.Names.Len())
}

// plainReader hides Len so Decode takes the buffered path.
type plainReader struct{ r io.Reader }

func (p plainReader) Read(b []byte) (int, error) { return p.r.Read(b) }

func TestRegistry_TrailerPassThrough(t *testing.T) {
	reg := sample(t)
	reg.Trailer = bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 8)

	encoded, err := reg.EncodeBytes()
	require.NoError(t, err)
	got, err := DecodeBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, reg.Trailer, got.Trailer)

	_, err = DecodeBytes(encoded, WithLimits(codec.Limits{MaxPoolBytes: 16}))
	var ce *codec.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, codec.KindOversizedField, ce.Kind)
	assert.Equal(t, "trailer", ce.Field)
}

func TestRegistry_SectionErrorsPropagate(t *testing.T) {
	encoded, err := sample(t).EncodeBytes()
	require.NoError(t, err)

	guid := append([]byte(nil), encoded...)
	guid[0] ^= 0xFF
	_, err = DecodeBytes(guid)
	assert.ErrorIs(t, err, codec.ErrMalformedMagic)

	old := append([]byte(nil), encoded...)
	binary.LittleEndian.PutUint32(old[16:], uint32(version.AddedDependencyFlags))
	_, err = DecodeBytes(old)
	assert.ErrorIs(t, err, codec.ErrUnsupportedVersion)

	batch := append([]byte(nil), encoded...)
	binary.LittleEndian.PutUint32(batch[24+4:], 3) // names string bytes
	_, err = DecodeBytes(batch)
	var ce *codec.Error
	require.ErrorAs(t, err, &ce)
	assert.True(t, strings.HasPrefix(ce.Field, "names."), ce.Field)

	_, err = DecodeBytes(encoded[:len(encoded)-3])
	assert.ErrorIs(t, err, codec.ErrTruncated)
}

func TestRegistry_EncodeWritesLatest(t *testing.T) {
	reg := sample(t)
	reg.Header.Version = version.ClassPaths

	encoded, err := reg.EncodeBytes()
	require.NoError(t, err)
	assert.Equal(t, uint32(version.Latest), binary.LittleEndian.Uint32(encoded[16:20]))
}

func TestRegistry_EncodeNilSections(t *testing.T) {
	reg := &Registry{Header: version.NewHeader(true)}
	encoded, err := reg.EncodeBytes()
	require.NoError(t, err)

	got, err := DecodeBytes(encoded)
	require.NoError(t, err)
	assert.True(t, got.Header.FilterEditorOnlyData)
	assert.Zero(t, got.Names.Len())
	assert.Equal(t, tagstore.Counts{}, got.Tags.Counts())
	assert.Empty(t, got.Assets.Assets)
}

func TestRegistry_EncodeErrorSurfaces(t *testing.T) {
	reg := sample(t)
	reg.Names.Headers[0].Len = 9
	_, err := reg.EncodeBytes()
	assert.ErrorIs(t, err, codec.ErrInconsistentLength)
}

func TestRegistry_Summarize(t *testing.T) {
	s := sample(t).Summarize()
	assert.Equal(t, "717F9EE7-E9B0493A-88B39132-1B388107", s.GUID)
	assert.Equal(t, "e79e7f71-3a49-b0e9-3291-b3880781381b", s.UUID)
	assert.Equal(t, "AddedHeader", s.Version)
	assert.Equal(t, uint32(16), s.VersionOrdinal)
	assert.Equal(t, 11, s.Names)
	assert.Equal(t, 1, s.WideNames)
	assert.Equal(t, "0x0000000000B1A4E3", s.NameHashAlgorithm)
	assert.Equal(t, uint32(2), s.Store.Pairs)
	assert.Equal(t, uint32(1), s.Store.NumberlessPairs)
	assert.Equal(t, uint32(9), s.Store.AnsiBytes)
	assert.Equal(t, uint32(6), s.Store.WideUnits)
	assert.Equal(t, 1, s.Assets)
	assert.Equal(t, 1, s.Bundles)
	assert.Zero(t, s.TrailerBytes)
}

func TestRegistry_ResolvedPairs(t *testing.T) {
	pairs, err := sample(t).ResolvedPairs()
	require.NoError(t, err)
	assert.Equal(t, []ResolvedPair{
		{Key: "PrimaryAssetType", Numbered: false, Kind: "name", Value: "Map"},
		{Key: "Größe", Numbered: true, Kind: "pointer", Value: "World'/Game/Maps.Arena'"},
		{Key: "StaticMesh_1", Numbered: true, Kind: "none"},
	}, pairs)

	broken := sample(t)
	broken.Tags.Pairs[0].Value = tagstore.PointerValue{Index: 4}
	_, err = broken.ResolvedPairs()
	assert.ErrorContains(t, err, "pairs[0] value")

	broken = sample(t)
	broken.Tags.Pairs[1].Key.Index = 99
	_, err = broken.ResolvedPairs()
	assert.ErrorIs(t, err, codec.ErrNameNotFound)
}

func TestRegistry_Validate(t *testing.T) {
	reg := sample(t)
	require.NoError(t, reg.Validate())

	reg.Assets.Assets[0].Bundles[0].Paths[0].AssetPath.Index = 11
	reg.Tags.ExportPaths[0].Object.Index = 40
	err := reg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrNameNotFound)
	assert.Contains(t, err.Error(), "assets[0].bundles[0].paths[0].asset_path")
	assert.Contains(t, err.Error(), "store.export_paths[0].object")

	assert.Error(t, (&Registry{}).Validate())
}

func TestRegistry_LogsSections(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	encoded, err := sample(t).EncodeBytes(WithLogger(logger))
	require.NoError(t, err)
	_, err = DecodeBytes(encoded, WithLogger(logger))
	require.NoError(t, err)

	out := logs.String()
	for _, msg := range []string{"encoded registry", "decoded header", "decoded names batch", "decoded store data", "decoded assets"} {
		assert.Contains(t, out, msg)
	}
}

func TestNameHash_Stable(t *testing.T) {
	assert.Equal(t, NameHash("None"), NameHash("none"))
	assert.NotEqual(t, NameHash("None"), NameHash("Map"))

	b, err := names.New(SampleHashAlgorithm, []string{"Chair"}, []uint64{NameHash("Chair")})
	require.NoError(t, err)
	assert.Equal(t, NameHash("chair"), b.Hashes[0])
}
