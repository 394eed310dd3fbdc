//go:build fuzz
// +build fuzz

package tagstore

import (
	"bytes"
	"testing"

	"github.com/ssargent/assetreg/pkg/codec"
)

// FuzzDecode feeds arbitrary input to the store decoder. Hostile counts must
// be rejected before they drive an allocation, and whatever decodes must
// re-encode to the bytes it came from.
func FuzzDecode(f *testing.F) {
	pool, _ := NewAnsiPool([]string{"a", "bc"})
	seed := &StoreData{
		Names:       []codec.NameRef{{Index: 1}},
		AnsiStrings: pool,
		Pairs:       []NumberedPair{{Key: codec.NameRef{Index: 2}, Value: NameValue{Index: 0}}},
	}
	var buf bytes.Buffer
	seed.Encode(codec.NewWriter(&buf), "store")
	f.Add(buf.Bytes())
	f.Add([]byte{0x79, 0x56, 0x34, 0x12})

	f.Fuzz(func(t *testing.T, data []byte) {
		r := codec.NewReader(bytes.NewReader(data), codec.WithLimits(codec.Limits{
			MaxArrayCount: 1 << 12,
			MaxPoolBytes:  1 << 16,
		}))
		s, err := Decode(r, "store")
		if err != nil {
			if codec.KindOf(err) == codec.KindUnknown {
				t.Fatalf("unclassified error: %v", err)
			}
			return
		}

		var out bytes.Buffer
		w := codec.NewWriter(&out)
		s.Encode(w, "store")
		if w.Err() != nil {
			t.Fatalf("re-encode: %v", w.Err())
		}
		if !bytes.Equal(out.Bytes(), data[:r.Offset()]) {
			t.Fatalf("re-encode mismatch:\nwant % x\ngot  % x", data[:r.Offset()], out.Bytes())
		}
	})
}
