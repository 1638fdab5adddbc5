// Package schema holds the static, reflection-free description of the
// entity types an engine instance manages: each type's key field,
// persisted fields and relationship descriptors, assembled once into
// an immutable Registry.
package schema

import (
	"github.com/google/uuid"

	"github.com/burrowdb/burrow/schema/edge"
	"github.com/burrowdb/burrow/schema/field"
)

// Entity is implemented by every record type managed by the engine.
// Implementations return a package-level *Type shared by all instances
// of the record type; the method must not touch the receiver.
type Entity interface {
	EntityType() *Type
}

// Relationship describes one relationship field of an entity type.
// The related type is held as a direct descriptor handle, never looked
// up by name at runtime.
type Relationship struct {
	Name     string
	Rel      edge.Rel
	OnDelete edge.DeleteBehavior
	Type     *Type

	// Get returns the current relationship value: Entity (possibly nil)
	// for to-one relations, []Entity for to-many relations.
	Get func(Entity) any
	// Set replaces the relationship value with an Entity, []Entity or
	// nil.
	Set func(Entity, any)
}

// Owning reports whether the declaring side of this relationship
// carries the foreign key. O2O sides declaring Orphan do not own the
// key; their cleanup happens in the post-save orphan sweep.
func (r *Relationship) Owning() bool {
	switch r.Rel {
	case edge.M2O:
		return true
	case edge.O2O:
		return r.OnDelete != edge.Orphan
	default:
		return false
	}
}

// Type is the immutable descriptor of one entity type. Build it with
// NewType and the chainable declaration methods, then freeze it inside
// a Registry.
type Type struct {
	Name  string
	Table string

	// New returns a fresh zero instance, used when hydrating records
	// from storage.
	New func() Entity

	Key    *field.Descriptor
	Fields []*field.Descriptor
	Edges  []*Relationship

	// KeyGen generates a key for entities added without one. Nil
	// unless AutoKey was declared.
	KeyGen func() string

	keyCount int
}

// NewType starts a type descriptor. The table name is derived from the
// type name; ctor hydrates empty instances.
func NewType(name string, ctor func() Entity) *Type {
	return &Type{Name: name, Table: TableName(name), New: ctor}
}

// KeyField declares the key field. Exactly one declaration is required;
// Registry construction fails otherwise.
func (t *Type) KeyField(d *field.Descriptor) *Type {
	t.Key = d
	t.keyCount++
	return t
}

// Field declares a persisted value field.
func (t *Type) Field(d *field.Descriptor) *Type {
	t.Fields = append(t.Fields, d)
	return t
}

// Edge declares a relationship to another type.
func (t *Type) Edge(name string, rel edge.Rel, related *Type, onDelete edge.DeleteBehavior,
	get func(Entity) any, set func(Entity, any)) *Type {
	t.Edges = append(t.Edges, &Relationship{
		Name:     name,
		Rel:      rel,
		OnDelete: onDelete,
		Type:     related,
		Get:      get,
		Set:      set,
	})
	return t
}

// AutoKey declares that entities added without a key value get a
// generated UUID.
func (t *Type) AutoKey() *Type {
	t.KeyGen = uuid.NewString
	return t
}

// FieldByName returns the descriptor for a persisted field or the key
// field, or nil when the type has no such field.
func (t *Type) FieldByName(name string) *field.Descriptor {
	if t.Key != nil && t.Key.Name == name {
		return t.Key
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// EdgeByName returns the relationship descriptor with the given name,
// or nil.
func (t *Type) EdgeByName(name string) *Relationship {
	for _, e := range t.Edges {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Inverse returns the relationship on the related type that points
// back at t with the given cardinality, or nil when none is declared.
func (t *Type) Inverse(rel *Relationship, want edge.Rel) *Relationship {
	for _, back := range rel.Type.Edges {
		if back.Type == t && back.Rel == want {
			return back
		}
	}
	return nil
}
