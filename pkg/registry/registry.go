// Package registry decodes and encodes complete asset registry containers:
//
//	[header][names batch][store data][asset data collection][trailer]
//
// The trailer holds whatever follows the asset collection (dependency and
// package data sections this package does not interpret). It is kept as
// opaque bytes and written back unchanged.
package registry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ssargent/assetreg/pkg/asset"
	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/names"
	"github.com/ssargent/assetreg/pkg/tagstore"
	"github.com/ssargent/assetreg/pkg/version"
)

// Registry is a decoded container.
type Registry struct {
	Header  version.Header
	Names   *names.Batch
	Tags    *tagstore.StoreData
	Assets  asset.Collection
	Trailer []byte
}

type options struct {
	logger *slog.Logger
	limits codec.Limits
}

// Option configures Decode and Encode.
type Option func(*options)

// WithLogger routes section-level debug records to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLimits overrides the decoder's size ceilings.
func WithLimits(l codec.Limits) Option {
	return func(o *options) {
		o.limits = l
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler), limits: codec.DefaultLimits()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New assembles a registry at the latest version.
func New(batch *names.Batch, tags *tagstore.StoreData, assets asset.Collection) *Registry {
	return &Registry{
		Header: version.NewHeader(false),
		Names:  batch,
		Tags:   tags,
		Assets: assets,
	}
}

// Decode reads a whole container from src.
func Decode(src io.Reader, opts ...Option) (*Registry, error) {
	o := buildOptions(opts)
	if _, sized := src.(interface{ Len() int }); !sized {
		src = bufio.NewReader(src)
	}
	r := codec.NewReader(src, codec.WithLimits(o.limits))
	log := o.logger

	reg := &Registry{}
	var err error
	if reg.Header, err = version.DecodeHeader(r, "header"); err != nil {
		return nil, err
	}
	log.Debug("decoded header", "version", reg.Header.Version, "filter_editor_only", reg.Header.FilterEditorOnlyData, "offset", r.Offset())

	if reg.Names, err = names.Decode(r, "names"); err != nil {
		return nil, err
	}
	log.Debug("decoded names batch", "names", reg.Names.Len(), "string_bytes", reg.Names.StringBytes(), "offset", r.Offset())

	if reg.Tags, err = tagstore.Decode(r, "store"); err != nil {
		return nil, err
	}
	c := reg.Tags.Counts()
	log.Debug("decoded store data", "pairs", c.Pairs, "numberless_pairs", c.NumberlessPairs,
		"ansi_strings", c.AnsiStrings, "wide_strings", c.WideStrings, "offset", r.Offset())

	if reg.Assets, err = asset.DecodeCollection(r, "assets", reg.Header.Version); err != nil {
		return nil, err
	}
	log.Debug("decoded assets", "assets", len(reg.Assets.Assets), "offset", r.Offset())

	limit := int64(o.limits.MaxPoolBytes)
	if limit <= 0 {
		limit = codec.DefaultMaxPoolBytes
	}
	rest, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return nil, &codec.Error{Op: codec.OpDecode, Field: "trailer", Err: err}
	}
	if int64(len(rest)) > limit {
		return nil, codec.DecodeErrorf(codec.KindOversizedField, "trailer", "more than %d trailing bytes", limit)
	}
	if len(rest) > 0 {
		reg.Trailer = rest
		log.Debug("kept trailer", "bytes", len(rest))
	}
	return reg, nil
}

// DecodeBytes decodes an in-memory container.
func DecodeBytes(b []byte, opts ...Option) (*Registry, error) {
	return Decode(bytes.NewReader(b), opts...)
}

// Encode writes the container at the latest version.
func (reg *Registry) Encode(dst io.Writer, opts ...Option) error {
	o := buildOptions(opts)
	w := codec.NewWriter(dst)

	batch := reg.Names
	if batch == nil {
		batch = &names.Batch{}
	}
	tags := reg.Tags
	if tags == nil {
		tags = &tagstore.StoreData{}
	}

	reg.Header.Encode(w, "header")
	batch.Encode(w, "names")
	tags.Encode(w, "store")
	reg.Assets.Encode(w, "assets")
	w.Raw(reg.Trailer)
	if err := w.Err(); err != nil {
		return err
	}
	o.logger.Debug("encoded registry", "version", version.Latest, "bytes", w.Written())
	return nil
}

// EncodeBytes encodes into a fresh buffer.
func (reg *Registry) EncodeBytes(opts ...Option) ([]byte, error) {
	var buf bytes.Buffer
	if err := reg.Encode(&buf, opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks references that the wire format cannot: every name
// reference must resolve in the names batch and every tag value must point
// inside its array.
func (reg *Registry) Validate() error {
	if reg.Names == nil {
		return errors.New("registry has no names batch")
	}
	var errs []error
	table := reg.Names
	checkName := func(field string, idx uint32) {
		if _, ok := table.NameAt(idx); !ok {
			errs = append(errs, fmt.Errorf("%s: %w: %d", field, codec.ErrNameNotFound, idx))
		}
	}

	if reg.Tags != nil {
		if err := reg.Tags.Validate(table); err != nil {
			errs = append(errs, err)
		}
		for i, n := range reg.Tags.Names {
			checkName(codec.Index("store.names", i), n.Index)
		}
		for i, n := range reg.Tags.NumberlessNames {
			checkName(codec.Index("store.numberless_names", i), n.Index)
		}
		for i, p := range reg.Tags.ExportPaths {
			f := codec.Index("store.export_paths", i)
			checkName(f+".class", p.Class.Index)
			checkName(f+".object", p.Object.Index)
			checkName(f+".package", p.Package.Index)
		}
		for i, p := range reg.Tags.NumberlessExportPaths {
			f := codec.Index("store.numberless_export_paths", i)
			checkName(f+".class", p.Class.Index)
			checkName(f+".object", p.Object.Index)
			checkName(f+".package", p.Package.Index)
		}
	}

	for i, a := range reg.Assets.Assets {
		f := codec.Index("assets", i)
		if reg.Header.Version < version.RemoveAssetPathFNames {
			checkName(f+".object_path", a.ObjectPath.Index)
		}
		checkName(f+".package_path", a.PackagePath.Index)
		if reg.Header.Version >= version.ClassPaths {
			checkName(f+".asset_class.package", a.AssetClass.Package.Index)
		}
		checkName(f+".asset_class.asset", a.AssetClass.Asset.Index)
		checkName(f+".package_name", a.PackageName.Index)
		checkName(f+".asset_name", a.AssetName.Index)
		for j, b := range a.Bundles {
			bf := codec.Index(f+".bundles", j)
			checkName(bf+".name", b.Name.Index)
			for k, p := range b.Paths {
				checkName(codec.Index(bf+".paths", k)+".asset_path", p.AssetPath.Index)
			}
		}
	}
	return errors.Join(errs...)
}
