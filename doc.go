// Package burrow is an object-relational mapping engine over a generic
// table-document store. Entity types declare their key field,
// persisted fields and relationships as static schema metadata; the
// engine tracks changes through value snapshots, orders multi-entity
// save and delete passes along a type-level dependency graph, and
// resolves relationship semantics (cascading deletes, foreign-key
// nulling, orphan cleanup) without a real database underneath.
//
// # Declaring a schema
//
// Each entity is a plain struct implementing [schema.Entity] by
// returning its package-level type descriptor:
//
//	type Car struct {
//	    ID    string
//	    Price float64
//	    Owner *Person
//	}
//
//	func (c *Car) EntityType() *schema.Type { return CarType }
//
//	var CarType = schema.NewType("Car", func() schema.Entity { return &Car{} }).
//	    KeyField(field.String("id").Access(
//	        func(e any) any { return e.(*Car).ID },
//	        func(e, v any) { e.(*Car).ID = v.(string) })).
//	    Field(field.Float("price").Access(
//	        func(e any) any { return e.(*Car).Price },
//	        func(e, v any) { e.(*Car).Price = v.(float64) }))
//
// Descriptors are assembled once into a [schema.Registry]; invalid
// declarations (no key field, an illegal cardinality/delete-behavior
// pair) fail there, never at runtime.
//
// # Working with entities
//
//	ctx := burrow.NewContext(storage.NewMemStore(), registry)
//	cars := burrow.SetOf[*Car](ctx, CarType)
//	cars.Add(&Car{ID: "1", Price: 20000})
//	if err := ctx.SaveChanges(); err != nil { ... }
//
//	expensive, err := burrow.QueryOf[*Car](ctx, CarType).
//	    Where("price", query.GT, 40000).
//	    OrderBy("price", true).
//	    Execute()
//
// SaveChanges computes the dependency order of all registered types,
// persists every added, modified and deleted entity in that order, and
// finishes with the orphan sweep for O2O relationships declared with
// edge.Orphan. Validation failures and key collisions are reported
// per entity, joined into the returned error; independent entities in
// the same call still persist.
//
// The engine is single threaded: SaveChanges and query execution run
// to completion on the calling goroutine, and no concurrency control
// is performed beyond what the storage backend does internally.
package burrow
