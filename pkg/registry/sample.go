package registry

import (
	"encoding/binary"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/ssargent/assetreg/pkg/asset"
	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/names"
	"github.com/ssargent/assetreg/pkg/tagstore"
)

// SampleHashAlgorithm is the hash algorithm id written by Sample.
const SampleHashAlgorithm uint64 = 0xB1A4E3

// NameHash derives the 64-bit hash Sample stores for a name: the first eight
// bytes of the BLAKE3 digest of its lower-cased form. Decoded batches never
// recompute hashes.
func NameHash(s string) uint64 {
	sum := blake3.Sum256([]byte(strings.ToLower(s)))
	return binary.LittleEndian.Uint64(sum[:8])
}

var sampleNames = []string{
	"None",             // 0
	"/Game/Maps",       // 1
	"Arena",            // 2
	"World",            // 3
	"/Script/Engine",   // 4
	"PrimaryAssetType", // 5
	"Map",              // 6
	"Größe",            // 7
	"StaticMesh",       // 8
	"Chair",            // 9
	"/Game/Props",      // 10
}

// Sample builds a small registry that exercises every section: both string
// widths, every value kind, a bundle and a text blob.
func Sample() (*Registry, error) {
	hashes := make([]uint64, len(sampleNames))
	for i, s := range sampleNames {
		hashes[i] = NameHash(s)
	}
	batch, err := names.New(SampleHashAlgorithm, sampleNames, hashes)
	if err != nil {
		return nil, err
	}

	ansi, err := tagstore.NewAnsiPool([]string{"128", "True"})
	if err != nil {
		return nil, err
	}
	wide, err := tagstore.NewWidePool([]string{"Größe"})
	if err != nil {
		return nil, err
	}
	tags := &tagstore.StoreData{
		Texts: []codec.Text{`NSLOCTEXT("Game", "Title", "Arena")`},
		Names: []codec.NameRef{{Index: 6}},
		ExportPaths: []codec.ExportPath{{
			Class:   codec.NameRef{Index: 3},
			Object:  codec.NameRef{Index: 2},
			Package: codec.NameRef{Index: 1},
		}},
		AnsiStrings: ansi,
		WideStrings: wide,
		NumberlessPairs: []tagstore.NumberlessPair{
			{Key: codec.DisplayNameRef{Index: 5}, Value: tagstore.NameValue{Index: 0}},
		},
		Pairs: []tagstore.NumberedPair{
			{Key: codec.NameRef{Index: 7}, Value: tagstore.PointerValue{Index: 0}},
			{Key: codec.NameRef{Index: 8, Number: 2}, Value: tagstore.NoValue{}},
		},
	}

	assets := asset.Collection{Assets: []asset.Data{{
		PackagePath: codec.NameRef{Index: 1},
		AssetClass: asset.TopLevelAssetPath{
			Package: codec.NameRef{Index: 4},
			Asset:   codec.NameRef{Index: 3},
		},
		PackageName: codec.NameRef{Index: 1},
		AssetName:   codec.NameRef{Index: 2},
		Bundles: []asset.BundleEntry{{
			Name:  codec.NameRef{Index: 9},
			Paths: []asset.SoftObjectPath{{AssetPath: codec.NameRef{Index: 10}, SubPath: "Chair"}},
		}},
	}}}

	return New(batch, tags, assets), nil
}
