package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceTable []string

func (s sliceTable) NameAt(i uint32) (string, bool) {
	if int(i) >= len(s) {
		return "", false
	}
	return s[i], true
}

func TestNameRef_RoundTrip(t *testing.T) {
	ref := NameRef{Index: 7, Number: 3}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	ref.Encode(w)
	require.NoError(t, w.Err())
	assert.Equal(t, []byte{7, 0, 0, 0, 3, 0, 0, 0}, buf.Bytes())

	got, err := DecodeNameRef(NewReader(&buf), "key")
	require.NoError(t, err)
	assert.Equal(t, ref, got)
}

func TestNameRef_Resolve(t *testing.T) {
	table := sliceTable{"None", "StaticMesh"}

	s, err := NameRef{Index: 1}.Resolve(table)
	require.NoError(t, err)
	assert.Equal(t, "StaticMesh", s)

	s, err = NameRef{Index: 1, Number: 3}.Resolve(table)
	require.NoError(t, err)
	assert.Equal(t, "StaticMesh_2", s)

	s, err = DisplayNameRef{Index: 0}.Resolve(table)
	require.NoError(t, err)
	assert.Equal(t, "None", s)

	_, err = NameRef{Index: 9}.Resolve(table)
	assert.ErrorIs(t, err, ErrNameNotFound)
	_, err = DisplayNameRef{Index: 2}.Resolve(table)
	assert.ErrorIs(t, err, ErrNameNotFound)
}

func TestExportPaths_RoundTrip(t *testing.T) {
	p := ExportPath{
		Class:   NameRef{Index: 1, Number: 0},
		Object:  NameRef{Index: 2, Number: 5},
		Package: NameRef{Index: 3, Number: 1},
	}
	np := NumberlessExportPath{
		Class:   DisplayNameRef{Index: 4},
		Object:  DisplayNameRef{Index: 5},
		Package: DisplayNameRef{Index: 6},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	p.Encode(w)
	np.Encode(w)
	require.NoError(t, w.Err())
	assert.Equal(t, ExportPathSize+NumberlessExportPathSize, buf.Len())

	r := NewReader(&buf)
	gotP, err := DecodeExportPath(r, "p")
	require.NoError(t, err)
	gotNP, err := DecodeNumberlessExportPath(r, "np")
	require.NoError(t, err)
	assert.Equal(t, p, gotP)
	assert.Equal(t, np, gotNP)
}

func TestExportPath_TruncatedReportsField(t *testing.T) {
	_, err := DecodeExportPath(NewReader(bytes.NewReader(make([]byte, 12))), "store.export_paths[0]")
	require.Error(t, err)
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindTruncated, ce.Kind)
	assert.Equal(t, "store.export_paths[0].object.number", ce.Field)
}

func TestText_RoundTrip(t *testing.T) {
	for _, in := range []Text{"", "hello", "NSLOCTEXT(\"\", \"k\", \"v\")", "mid\x00nul"} {
		var buf bytes.Buffer
		w := NewWriter(&buf)
		in.Encode(w, "text")
		require.NoError(t, w.Err())
		assert.Equal(t, 4+len(in)+1, buf.Len())

		got, err := DecodeText(NewReader(&buf), "text")
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestText_Layout(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	Text("hi").Encode(w, "text")
	require.NoError(t, w.Err())
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00, 'h', 'i', 0x00}, buf.Bytes())
}

func TestText_DecodeErrors(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
		kind  Kind
	}{
		{"zero length", []byte{0, 0, 0, 0}, KindInvalidTermination},
		{"missing terminator", []byte{2, 0, 0, 0, 'h', 'i'}, KindInvalidTermination},
		{"oversized", []byte{0xFF, 0xFF, 0xFF, 0xFF}, KindOversizedField},
		{"truncated", []byte{9, 0, 0, 0, 'h'}, KindTruncated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeText(NewReader(bytes.NewReader(tc.input)), "text")
			assert.Equal(t, tc.kind, KindOf(err), "got %v", err)
		})
	}
}

func TestBool32(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Bool32(true)
	w.Bool32(false)
	w.U32(2)
	require.NoError(t, w.Err())

	r := NewReader(&buf)
	v, err := r.Bool32("a")
	require.NoError(t, err)
	assert.True(t, v)
	v, err = r.Bool32("b")
	require.NoError(t, err)
	assert.False(t, v)
	_, err = r.Bool32("c")
	assert.ErrorIs(t, err, ErrUnknownTag)
}

func TestReader_CountValidatesBeforeAllocating(t *testing.T) {
	r := NewReader(bytes.NewReader(make([]byte, 8)))
	n, err := r.Count("xs", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = r.Count("xs", 3, 4)
	assert.ErrorIs(t, err, ErrTruncated)

	limited := NewReader(bytes.NewReader(make([]byte, 64)), WithLimits(Limits{MaxArrayCount: 5}))
	_, err = limited.Count("xs", 6, 1)
	assert.ErrorIs(t, err, ErrOversizedField)
	assert.Equal(t, MaxStringBytes, limited.Limits().MaxStringBytes)
}

func TestReader_MagicMismatch(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x21, 0x43, 0x65, 0x88}))
	err := r.Magic("end_magic", 0x87654321)
	require.Error(t, err)

	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, KindMalformedMagic, ce.Kind)
	assert.Equal(t, uint32(0x87654321), ce.Expected)
	assert.Equal(t, uint32(0x88654321), ce.Actual)
	assert.Contains(t, err.Error(), "0x87654321")
	assert.Contains(t, err.Error(), "0x88654321")
}

// onlyReader hides Len so the reader cannot pre-check sizes.
type onlyReader struct{ io.Reader }

func TestReader_TruncationWrapsIOError(t *testing.T) {
	r := NewReader(onlyReader{bytes.NewReader([]byte{1, 2})})
	_, ok := r.Remaining()
	assert.False(t, ok)

	_, err := r.U32("count")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, int64(2), r.Offset())
}

func TestError_Format(t *testing.T) {
	err := DecodeErrorf(KindUnknownTag, "store.pairs[2].value", "kind %d", 5)
	assert.Equal(t, "decode store.pairs[2].value: unknown tag: kind 5", err.Error())

	wrapped := &Error{Op: OpEncode, Kind: KindTruncated, Err: io.ErrShortWrite}
	assert.Equal(t, "encode: truncated input: short write", wrapped.Error())
	assert.True(t, errors.Is(wrapped, io.ErrShortWrite))

	assert.Equal(t, KindUnknown, KindOf(io.EOF))
	assert.Equal(t, "unsupported_version", KindUnsupportedVersion.String())
	assert.Equal(t, "a.b", Field("a", "b"))
	assert.Equal(t, "b", Field("", "b"))
	assert.Equal(t, "a[3]", Index("a", 3))
}
