package version

import "github.com/ssargent/assetreg/pkg/codec"

// Field is one version-gated member of a record. It is present for versions
// in [Since, Until); a zero Until means it has not been removed.
type Field[T any] struct {
	Name   string
	Since  Version
	Until  Version
	Decode func(r *codec.Reader, field string, dst *T) error
	Encode func(w *codec.Writer, field string, src *T)
}

// Present reports whether the field exists in files of version v.
func (f Field[T]) Present(v Version) bool {
	return v >= f.Since && (f.Until == 0 || v < f.Until)
}

// Table is an ordered list of fields. Decode and Encode walk it in order and
// apply only the fields present at the given version, so both directions
// share one presence rule.
type Table[T any] []Field[T]

func (t Table[T]) Decode(r *codec.Reader, parent string, v Version, dst *T) error {
	for _, f := range t {
		if !f.Present(v) {
			continue
		}
		if err := f.Decode(r, codec.Field(parent, f.Name), dst); err != nil {
			return err
		}
	}
	return nil
}

func (t Table[T]) Encode(w *codec.Writer, parent string, v Version, src *T) {
	for _, f := range t {
		if w.Err() != nil {
			return
		}
		if f.Present(v) {
			f.Encode(w, codec.Field(parent, f.Name), src)
		}
	}
}

// Present returns the names of the fields that exist at version v.
func (t Table[T]) Present(v Version) []string {
	var names []string
	for _, f := range t {
		if f.Present(v) {
			names = append(names, f.Name)
		}
	}
	return names
}
