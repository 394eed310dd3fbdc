package registry

import (
	"fmt"

	"github.com/ssargent/assetreg/pkg/codec"
	"github.com/ssargent/assetreg/pkg/tagstore"
)

// Summary is a flat description of a registry for listings and reports.
type Summary struct {
	GUID                 string          `json:"guid" yaml:"guid" cbor:"guid"`
	UUID                 string          `json:"uuid" yaml:"uuid" cbor:"uuid"`
	Version              string          `json:"version" yaml:"version" cbor:"version"`
	VersionOrdinal       uint32          `json:"version_ordinal" yaml:"version_ordinal" cbor:"version_ordinal"`
	FilterEditorOnlyData bool            `json:"filter_editor_only_data" yaml:"filter_editor_only_data" cbor:"filter_editor_only_data"`
	Names                int             `json:"names" yaml:"names" cbor:"names"`
	WideNames            int             `json:"wide_names" yaml:"wide_names" cbor:"wide_names"`
	NameStringBytes      uint64          `json:"name_string_bytes" yaml:"name_string_bytes" cbor:"name_string_bytes"`
	NameHashAlgorithm    string          `json:"name_hash_algorithm" yaml:"name_hash_algorithm" cbor:"name_hash_algorithm"`
	Store                tagstore.Counts `json:"store" yaml:"store" cbor:"store"`
	Assets               int             `json:"assets" yaml:"assets" cbor:"assets"`
	Bundles              int             `json:"bundles" yaml:"bundles" cbor:"bundles"`
	TrailerBytes         int             `json:"trailer_bytes" yaml:"trailer_bytes" cbor:"trailer_bytes"`
}

// Summarize counts what the registry holds.
func (reg *Registry) Summarize() Summary {
	s := Summary{
		GUID:                 reg.Header.GUID.String(),
		UUID:                 reg.Header.GUID.UUID().String(),
		Version:              reg.Header.Version.String(),
		VersionOrdinal:       uint32(reg.Header.Version),
		FilterEditorOnlyData: reg.Header.FilterEditorOnlyData,
		Assets:               len(reg.Assets.Assets),
		TrailerBytes:         len(reg.Trailer),
	}
	if reg.Names != nil {
		s.Names = reg.Names.Len()
		s.NameStringBytes = reg.Names.StringBytes()
		s.NameHashAlgorithm = fmt.Sprintf("0x%016X", reg.Names.HashAlgorithm)
		for _, h := range reg.Names.Headers {
			if h.Wide {
				s.WideNames++
			}
		}
	}
	if reg.Tags != nil {
		s.Store = reg.Tags.Counts()
	}
	for _, a := range reg.Assets.Assets {
		s.Bundles += len(a.Bundles)
	}
	return s
}

// ResolvedPair is a tag pair with its key and value rendered as text.
type ResolvedPair struct {
	Key      string `json:"key" yaml:"key" cbor:"key"`
	Numbered bool   `json:"numbered" yaml:"numbered" cbor:"numbered"`
	Kind     string `json:"kind" yaml:"kind" cbor:"kind"`
	Value    string `json:"value,omitempty" yaml:"value,omitempty" cbor:"value,omitempty"`
}

// ResolvedPairs renders every numberless pair, then every numbered pair,
// against the names batch. Pointer values render as Class'Package.Object'.
func (reg *Registry) ResolvedPairs() ([]ResolvedPair, error) {
	if reg.Tags == nil {
		return nil, nil
	}
	if reg.Names == nil {
		return nil, fmt.Errorf("resolve pairs: registry has no names batch")
	}
	out := make([]ResolvedPair, 0, len(reg.Tags.NumberlessPairs)+len(reg.Tags.Pairs))
	for i, p := range reg.Tags.NumberlessPairs {
		key, err := p.Key.Resolve(reg.Names)
		if err != nil {
			return nil, fmt.Errorf("resolve numberless_pairs[%d] key: %w", i, err)
		}
		rp, err := reg.resolveValue(ResolvedPair{Key: key}, p.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve numberless_pairs[%d] value: %w", i, err)
		}
		out = append(out, rp)
	}
	for i, p := range reg.Tags.Pairs {
		key, err := p.Key.Resolve(reg.Names)
		if err != nil {
			return nil, fmt.Errorf("resolve pairs[%d] key: %w", i, err)
		}
		rp, err := reg.resolveValue(ResolvedPair{Key: key, Numbered: true}, p.Value)
		if err != nil {
			return nil, fmt.Errorf("resolve pairs[%d] value: %w", i, err)
		}
		out = append(out, rp)
	}
	return out, nil
}

func (reg *Registry) resolveValue(rp ResolvedPair, v tagstore.ValueRef) (ResolvedPair, error) {
	if v == nil {
		v = tagstore.NoValue{}
	}
	rp.Kind = v.Kind().String()
	switch x := v.(type) {
	case tagstore.NameValue:
		if int64(x.Index) >= int64(len(reg.Tags.Names)) {
			return rp, fmt.Errorf("name index %d outside %d names", x.Index, len(reg.Tags.Names))
		}
		s, err := reg.Tags.Names[x.Index].Resolve(reg.Names)
		if err != nil {
			return rp, err
		}
		rp.Value = s
	case tagstore.PointerValue:
		if int64(x.Index) >= int64(len(reg.Tags.ExportPaths)) {
			return rp, fmt.Errorf("pointer index %d outside %d export paths", x.Index, len(reg.Tags.ExportPaths))
		}
		s, err := renderExportPath(reg.Tags.ExportPaths[x.Index], reg.Names)
		if err != nil {
			return rp, err
		}
		rp.Value = s
	}
	return rp, nil
}

func renderExportPath(p codec.ExportPath, t codec.NameTable) (string, error) {
	class, err := p.Class.Resolve(t)
	if err != nil {
		return "", err
	}
	pkg, err := p.Package.Resolve(t)
	if err != nil {
		return "", err
	}
	obj, err := p.Object.Resolve(t)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s'%s.%s'", class, pkg, obj), nil
}
