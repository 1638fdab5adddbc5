package schema

import (
	"github.com/burrowdb/burrow/schema/edge"
)

// Registry is the immutable set of entity types one engine instance
// manages. NewRegistry validates every declaration; a non-nil error
// means the schema itself is wrong and no engine should be built on
// it.
type Registry struct {
	types  []*Type
	byName map[string]*Type
}

// NewRegistry validates the given types and freezes them into a
// Registry.
func NewRegistry(types ...*Type) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Type, len(types))}
	for _, t := range types {
		if err := validateType(t); err != nil {
			return nil, err
		}
		if _, dup := r.byName[t.Name]; dup {
			return nil, schemaErr(t.Name, "type declared twice")
		}
		r.byName[t.Name] = t
		r.types = append(r.types, t)
	}
	for _, t := range r.types {
		for _, rel := range t.Edges {
			if _, known := r.byName[rel.Type.Name]; !known {
				return nil, schemaErr(t.Name, "edge %q points at unregistered type %q", rel.Name, rel.Type.Name)
			}
		}
	}
	return r, nil
}

// Types returns the registered types in declaration order.
func (r *Registry) Types() []*Type {
	return r.types
}

// TypeByName returns the registered type with the given name, or nil.
func (r *Registry) TypeByName(name string) *Type {
	return r.byName[name]
}

func validateType(t *Type) error {
	if t.Name == "" {
		return schemaErr("", "type with empty name")
	}
	if t.New == nil {
		return schemaErr(t.Name, "missing constructor")
	}
	switch {
	case t.keyCount == 0:
		return schemaErr(t.Name, "no key field declared")
	case t.keyCount > 1:
		return schemaErr(t.Name, "%d key fields declared, want exactly one", t.keyCount)
	}
	if err := validateFields(t); err != nil {
		return err
	}
	return validateEdges(t)
}

func validateFields(t *Type) error {
	seen := map[string]bool{t.Key.Name: true}
	if t.Key.Get == nil || t.Key.Set == nil {
		return schemaErr(t.Name, "key field %q has no accessors", t.Key.Name)
	}
	for _, f := range t.Fields {
		if seen[f.Name] {
			return schemaErr(t.Name, "field %q declared twice", f.Name)
		}
		seen[f.Name] = true
		if f.Get == nil || f.Set == nil {
			return schemaErr(t.Name, "field %q has no accessors", f.Name)
		}
	}
	return nil
}

func validateEdges(t *Type) error {
	seen := make(map[string]bool, len(t.Edges))
	m2m := make(map[*Type]bool)
	owning := make(map[*Type]bool)
	for _, rel := range t.Edges {
		if seen[rel.Name] {
			return schemaErr(t.Name, "edge %q declared twice", rel.Name)
		}
		seen[rel.Name] = true
		if rel.Type == nil {
			return schemaErr(t.Name, "edge %q has no related type", rel.Name)
		}
		if rel.Get == nil || rel.Set == nil {
			return schemaErr(t.Name, "edge %q has no accessors", rel.Name)
		}
		if !edge.Legal(rel.Rel, rel.OnDelete) {
			return schemaErr(t.Name, "edge %q: %v does not allow delete behavior %v", rel.Name, rel.Rel, rel.OnDelete)
		}
		if rel.Owning() {
			if owning[rel.Type] {
				return schemaErr(t.Name, "more than one owning edge to %q, foreign-key field %q would collide", rel.Type.Name, ForeignKey(rel.Type))
			}
			owning[rel.Type] = true
		}
		if rel.Rel == edge.M2M {
			if rel.Type == t {
				return schemaErr(t.Name, "edge %q: self-referencing M2M is not supported", rel.Name)
			}
			if m2m[rel.Type] {
				return schemaErr(t.Name, "more than one M2M edge to %q, reverse resolution would be ambiguous", rel.Type.Name)
			}
			m2m[rel.Type] = true
		}
	}
	return nil
}
