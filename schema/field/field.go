// Package field provides the field descriptors entity schemas are
// built from. A descriptor names a persisted field, fixes its kind,
// and carries the accessor closures the engine uses to read and write
// the field without reflection. Values travel through storage as
// strings; the kind drives the codec.
package field

import (
	"fmt"
	"strconv"
	"time"
)

// Kind is the value kind of a field. It determines the string codec
// used for storage and whether the query engine compares the field
// numerically.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// String returns the kind name as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Numeric reports whether values of this kind compare as numbers.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindFloat
}

// Descriptor describes one persisted field of an entity type.
//
// The Get and Set closures operate on the entity instance (passed as
// any to keep this package free of the schema dependency) and must use
// the canonical Go type for the kind: string, int64, float64, bool or
// time.Time.
type Descriptor struct {
	Name string
	Kind Kind
	Get  func(entity any) any
	Set  func(entity any, value any)
}

// String returns a new string field descriptor.
func String(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindString} }

// Int returns a new int64 field descriptor.
func Int(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindInt} }

// Float returns a new float64 field descriptor.
func Float(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindFloat} }

// Bool returns a new bool field descriptor.
func Bool(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindBool} }

// Time returns a new time.Time field descriptor, stored as RFC 3339.
func Time(name string) *Descriptor { return &Descriptor{Name: name, Kind: KindTime} }

// Access sets the accessor closures and returns the descriptor for
// chaining.
func (d *Descriptor) Access(get func(any) any, set func(any, any)) *Descriptor {
	d.Get = get
	d.Set = set
	return d
}

// Encode converts a field value of this descriptor's kind to its
// storage string.
func (d *Descriptor) Encode(v any) (string, error) {
	switch d.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return "", d.kindError(v)
		}
		return s, nil
	case KindInt:
		switch n := v.(type) {
		case int64:
			return strconv.FormatInt(n, 10), nil
		case int:
			return strconv.Itoa(n), nil
		}
		return "", d.kindError(v)
	case KindFloat:
		f, ok := v.(float64)
		if !ok {
			return "", d.kindError(v)
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return "", d.kindError(v)
		}
		return strconv.FormatBool(b), nil
	case KindTime:
		t, ok := v.(time.Time)
		if !ok {
			return "", d.kindError(v)
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	default:
		return "", fmt.Errorf("field: unknown kind %v for %q", d.Kind, d.Name)
	}
}

// Decode converts a storage string back to the field's canonical Go
// value.
func (d *Descriptor) Decode(s string) (any, error) {
	switch d.Kind {
	case KindString:
		return s, nil
	case KindInt:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field: %q: %w", d.Name, err)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("field: %q: %w", d.Name, err)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("field: %q: %w", d.Name, err)
		}
		return b, nil
	case KindTime:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("field: %q: %w", d.Name, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("field: unknown kind %v for %q", d.Kind, d.Name)
	}
}

func (d *Descriptor) kindError(v any) error {
	return fmt.Errorf("field: %q holds %v, got %T", d.Name, d.Kind, v)
}
