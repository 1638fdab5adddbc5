// Package edge defines the relationship vocabulary shared by entity
// schemas: the four relation cardinalities and the delete behaviors
// that may be attached to them.
package edge

import "fmt"

// Rel is the cardinality of a relationship between two entity types,
// seen from the declaring side.
type Rel int

// Relation cardinalities.
const (
	// O2O is a one-to-one relation. The side whose delete behavior is
	// not Orphan owns the foreign key.
	O2O Rel = iota
	// O2M is a one-to-many relation declared on the "one" side. The
	// related records carry the foreign key.
	O2M
	// M2O is a many-to-one relation declared on the "many" side. The
	// declaring record carries the foreign key.
	M2O
	// M2M is a many-to-many relation backed by a junction table.
	M2M
)

// String returns the relation name as used in error messages.
func (r Rel) String() string {
	switch r {
	case O2O:
		return "O2O"
	case O2M:
		return "O2M"
	case M2O:
		return "M2O"
	case M2M:
		return "M2M"
	default:
		return fmt.Sprintf("Rel(%d)", int(r))
	}
}

// DeleteBehavior describes what happens to the other side of a
// relationship when the declaring side's related entity is deleted.
type DeleteBehavior int

const (
	// NoAction leaves the other side untouched.
	NoAction DeleteBehavior = iota
	// Cascade deletes the dependent side as well.
	Cascade
	// SetNull clears the foreign key on the dependent side.
	SetNull
	// Restrict documents that the reference should survive; the engine
	// does not block the delete, it simply never cascades.
	Restrict
	// Orphan marks the declaring O2O side for the post-save orphan
	// sweep: once no owner references it, it is removed.
	Orphan
)

// String returns the behavior name as used in error messages.
func (b DeleteBehavior) String() string {
	switch b {
	case NoAction:
		return "NoAction"
	case Cascade:
		return "Cascade"
	case SetNull:
		return "SetNull"
	case Restrict:
		return "Restrict"
	case Orphan:
		return "Orphan"
	default:
		return fmt.Sprintf("DeleteBehavior(%d)", int(b))
	}
}

// legal lists the delete behaviors each cardinality accepts.
var legal = map[Rel][]DeleteBehavior{
	O2O: {NoAction, Cascade, SetNull, Restrict, Orphan},
	O2M: {NoAction, Cascade, SetNull, Restrict},
	M2O: {NoAction, Restrict},
	M2M: {NoAction, Cascade},
}

// Legal reports whether the (cardinality, delete behavior) pair is a
// valid schema declaration.
func Legal(r Rel, b DeleteBehavior) bool {
	for _, ok := range legal[r] {
		if b == ok {
			return true
		}
	}
	return false
}

// ToOne reports whether the relation holds a single related entity.
func (r Rel) ToOne() bool {
	return r == O2O || r == M2O
}

// ToMany reports whether the relation holds a set of related entities.
func (r Rel) ToMany() bool {
	return r == O2M || r == M2M
}
