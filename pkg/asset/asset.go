// Package asset decodes the asset data collection that follows store data in
// a registry container. Records are fixed-shape; which members are present
// depends on the container version.
package asset

import (
	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/version"
)

// TopLevelAssetPath names an asset by package and asset name.
type TopLevelAssetPath struct {
	Package codec.NameRef
	Asset   codec.NameRef
}

// SoftObjectPath is a weak reference to an object, optionally inside an asset.
// SubPath is stored as a terminated string: narrow payloads carry their NUL.
type SoftObjectPath struct {
	AssetPath codec.NameRef
	SubPath   string
}

// BundleEntry groups the soft references loaded together under one name.
type BundleEntry struct {
	Name  codec.NameRef
	Paths []SoftObjectPath
}

// Data describes one asset.
type Data struct {
	// ObjectPath is only stored before RemoveAssetPathFNames.
	ObjectPath  codec.NameRef
	PackagePath codec.NameRef
	// AssetClass is a full path from ClassPaths on; older files store only
	// the class name, which lands in AssetClass.Asset.
	AssetClass  TopLevelAssetPath
	PackageName codec.NameRef
	AssetName   codec.NameRef
	// TagMap references this asset's tag map inside store data.
	TagMap  uint64
	Bundles []BundleEntry
}

// Collection is the counted list of assets.
type Collection struct {
	Assets []Data
}

const (
	minSoftObjectPathSize = codec.NameRefSize + 4 + 1
	minBundleEntrySize    = codec.NameRefSize + 4
	minDataSize           = 4*codec.NameRefSize + 8 + 4
)

func nameRefField(name string, since, until version.Version, get func(*Data) *codec.NameRef) version.Field[Data] {
	return version.Field[Data]{
		Name:  name,
		Since: since,
		Until: until,
		Decode: func(r *codec.Reader, field string, d *Data) error {
			n, err := codec.DecodeNameRef(r, field)
			*get(d) = n
			return err
		},
		Encode: func(w *codec.Writer, _ string, d *Data) {
			get(d).Encode(w)
		},
	}
}

var dataFields = version.Table[Data]{
	nameRefField("object_path", version.Oldest, version.RemoveAssetPathFNames, func(d *Data) *codec.NameRef { return &d.ObjectPath }),
	nameRefField("package_path", version.Oldest, 0, func(d *Data) *codec.NameRef { return &d.PackagePath }),
	nameRefField("asset_class", version.Oldest, version.ClassPaths, func(d *Data) *codec.NameRef { return &d.AssetClass.Asset }),
	{
		Name:  "asset_class_path",
		Since: version.ClassPaths,
		Decode: func(r *codec.Reader, field string, d *Data) error {
			p, err := DecodeTopLevelAssetPath(r, field)
			d.AssetClass = p
			return err
		},
		Encode: func(w *codec.Writer, _ string, d *Data) {
			d.AssetClass.Encode(w)
		},
	},
	nameRefField("package_name", version.Oldest, 0, func(d *Data) *codec.NameRef { return &d.PackageName }),
	nameRefField("asset_name", version.Oldest, 0, func(d *Data) *codec.NameRef { return &d.AssetName }),
	{
		Name:  "tag_map",
		Since: version.Oldest,
		Decode: func(r *codec.Reader, field string, d *Data) error {
			v, err := r.U64(field)
			d.TagMap = v
			return err
		},
		Encode: func(w *codec.Writer, _ string, d *Data) {
			w.U64(d.TagMap)
		},
	},
	{
		Name:  "bundles",
		Since: version.Oldest,
		Decode: func(r *codec.Reader, field string, d *Data) error {
			b, err := decodeBundles(r, field)
			d.Bundles = b
			return err
		},
		Encode: func(w *codec.Writer, field string, d *Data) {
			w.U32(uint32(len(d.Bundles)))
			for i, b := range d.Bundles {
				b.Encode(w, codec.Index(field, i))
			}
		},
	},
}

// Fields returns the gate table for asset records.
func Fields() version.Table[Data] {
	return dataFields
}

func DecodeTopLevelAssetPath(r *codec.Reader, field string) (TopLevelAssetPath, error) {
	pkg, err := codec.DecodeNameRef(r, codec.Field(field, "package"))
	if err != nil {
		return TopLevelAssetPath{}, err
	}
	asset, err := codec.DecodeNameRef(r, codec.Field(field, "asset"))
	if err != nil {
		return TopLevelAssetPath{}, err
	}
	return TopLevelAssetPath{Package: pkg, Asset: asset}, nil
}

func (p TopLevelAssetPath) Encode(w *codec.Writer) {
	p.Package.Encode(w)
	p.Asset.Encode(w)
}

func DecodeSoftObjectPath(r *codec.Reader, field string) (SoftObjectPath, error) {
	name, err := codec.DecodeNameRef(r, codec.Field(field, "asset_path"))
	if err != nil {
		return SoftObjectPath{}, err
	}
	sub, err := r.TerminatedString(codec.Field(field, "sub_path"))
	if err != nil {
		return SoftObjectPath{}, err
	}
	return SoftObjectPath{AssetPath: name, SubPath: sub}, nil
}

func (p SoftObjectPath) Encode(w *codec.Writer, field string) {
	p.AssetPath.Encode(w)
	w.TerminatedString(codec.Field(field, "sub_path"), p.SubPath)
}

func DecodeBundleEntry(r *codec.Reader, field string) (BundleEntry, error) {
	name, err := codec.DecodeNameRef(r, codec.Field(field, "name"))
	if err != nil {
		return BundleEntry{}, err
	}
	pathsField := codec.Field(field, "paths")
	raw, err := r.U32(pathsField)
	if err != nil {
		return BundleEntry{}, err
	}
	n, err := r.Count(pathsField, raw, minSoftObjectPathSize)
	if err != nil {
		return BundleEntry{}, err
	}
	e := BundleEntry{Name: name}
	if n > 0 {
		e.Paths = make([]SoftObjectPath, n)
	}
	for i := range e.Paths {
		if e.Paths[i], err = DecodeSoftObjectPath(r, codec.Index(pathsField, i)); err != nil {
			return BundleEntry{}, err
		}
	}
	return e, nil
}

func (e BundleEntry) Encode(w *codec.Writer, field string) {
	e.Name.Encode(w)
	w.U32(uint32(len(e.Paths)))
	for i, p := range e.Paths {
		p.Encode(w, codec.Index(codec.Field(field, "paths"), i))
	}
}

func decodeBundles(r *codec.Reader, field string) ([]BundleEntry, error) {
	raw, err := r.U32(field)
	if err != nil {
		return nil, err
	}
	n, err := r.Count(field, raw, minBundleEntrySize)
	if err != nil || n == 0 {
		return nil, err
	}
	out := make([]BundleEntry, n)
	for i := range out {
		if out[i], err = DecodeBundleEntry(r, codec.Index(field, i)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeData reads one asset laid out for version v.
func DecodeData(r *codec.Reader, field string, v version.Version) (Data, error) {
	var d Data
	if err := dataFields.Decode(r, field, v, &d); err != nil {
		return Data{}, err
	}
	return d, nil
}

// Encode writes d in the Latest layout.
func (d Data) Encode(w *codec.Writer, field string) {
	dataFields.Encode(w, field, version.Latest, &d)
}

// DecodeCollection reads the asset count and every asset.
func DecodeCollection(r *codec.Reader, field string, v version.Version) (Collection, error) {
	raw, err := r.U32(codec.Field(field, "count"))
	if err != nil {
		return Collection{}, err
	}
	n, err := r.Count(codec.Field(field, "count"), raw, minDataSize)
	if err != nil {
		return Collection{}, err
	}
	var c Collection
	if n > 0 {
		c.Assets = make([]Data, n)
	}
	for i := range c.Assets {
		if c.Assets[i], err = DecodeData(r, codec.Index(field, i), v); err != nil {
			return Collection{}, err
		}
	}
	return c, nil
}

func (c Collection) Encode(w *codec.Writer, field string) {
	w.U32(uint32(len(c.Assets)))
	for i, d := range c.Assets {
		d.Encode(w, codec.Index(field, i))
	}
}
