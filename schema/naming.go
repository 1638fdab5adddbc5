package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// TableName derives the storage table name for an entity type name:
// snake case, pluralized ("CarOwner" -> "car_owners").
func TableName(typeName string) string {
	return inflect.Pluralize(inflect.Underscore(typeName))
}

// ForeignKey derives the field name under which records reference an
// entity of type t: the snake-cased type name joined with t's key
// field ("Person" with key "id" -> "person_id"). The name depends only
// on the referenced type, so both sides of a symmetric declaration
// agree on it.
func ForeignKey(t *Type) string {
	return inflect.Underscore(t.Name) + "_" + t.Key.Name
}

// JunctionTable derives the junction table name for a many-to-many
// pair. The two type names are ordered alphabetically, so either side
// resolves the same table.
func JunctionTable(a, b *Type) string {
	x, y := inflect.Underscore(a.Name), inflect.Underscore(b.Name)
	if strings.Compare(x, y) > 0 {
		x, y = y, x
	}
	return x + "_" + y
}

// JunctionColumn derives the column under which a junction row stores
// keys of type t.
func JunctionColumn(t *Type) string {
	return inflect.Underscore(t.Name) + "_" + t.Key.Name
}
