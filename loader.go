package burrow

import (
	"fmt"

	"github.com/burrowdb/burrow/schema"
	"github.com/burrowdb/burrow/schema/edge"
	"github.com/burrowdb/burrow/storage"
)

// loader hydrates entities from storage records for the duration of
// one query execution. The identity map keeps one instance per
// (type, key), which both terminates reference cycles in the data and
// reuses instances the Context already tracks.
type loader struct {
	c    *Context
	seen map[string]schema.Entity
}

func newLoader(c *Context) *loader {
	return &loader{c: c, seen: make(map[string]schema.Entity)}
}

// hydrate turns a storage record into an entity with its relationship
// fields attached. An already-tracked key returns the tracked instance
// untouched so in-memory modifications survive queries.
func (ld *loader) hydrate(t *schema.Type, rec storage.Record) (schema.Entity, error) {
	key := rec[t.Key.Name]
	id := entityID(t, key)
	if e, ok := ld.seen[id]; ok {
		return e, nil
	}
	if s, ok := ld.c.sets[t]; ok {
		if tr := s.get(key); tr != nil {
			ld.seen[id] = tr.entity
			return tr.entity, nil
		}
	}

	e := t.New()
	kv, err := t.Key.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("burrow: %s: %w", t.Name, err)
	}
	t.Key.Set(e, kv)
	for _, f := range t.Fields {
		raw, ok := rec[f.Name]
		if !ok {
			continue
		}
		v, err := f.Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("burrow: %s: %w", t.Name, err)
		}
		f.Set(e, v)
	}
	// Register before resolving relationships; the subgraph may point
	// back here.
	ld.seen[id] = e

	for _, rel := range t.Edges {
		if err := ld.attach(t, rel, e, rec, key); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// attach loads one relationship field. Absent references are left
// unset, never an error.
func (ld *loader) attach(t *schema.Type, rel *schema.Relationship, e schema.Entity, rec storage.Record, key string) error {
	switch {
	case rel.Owning():
		raw, ok := rec[schema.ForeignKey(rel.Type)]
		if !ok {
			return nil
		}
		relDoc, err := ld.c.store.GetTable(rel.Type.Table, false)
		if err != nil || relDoc == nil {
			return err
		}
		relRec := relDoc.Lookup(rel.Type.Key.Name, raw)
		if relRec == nil {
			return nil
		}
		related, err := ld.hydrate(rel.Type, relRec)
		if err != nil {
			return err
		}
		rel.Set(e, related)

	case rel.Rel == edge.O2O:
		// Non-owning side: the owner's record carries the key.
		relDoc, err := ld.c.store.GetTable(rel.Type.Table, false)
		if err != nil || relDoc == nil {
			return err
		}
		relRec := relDoc.Lookup(schema.ForeignKey(t), key)
		if relRec == nil {
			return nil
		}
		related, err := ld.hydrate(rel.Type, relRec)
		if err != nil {
			return err
		}
		rel.Set(e, related)

	case rel.Rel == edge.O2M:
		relDoc, err := ld.c.store.GetTable(rel.Type.Table, false)
		if err != nil || relDoc == nil {
			return err
		}
		matches := relDoc.Select(schema.ForeignKey(t), key)
		if len(matches) == 0 {
			return nil
		}
		list := make([]schema.Entity, 0, len(matches))
		for _, m := range matches {
			related, err := ld.hydrate(rel.Type, m)
			if err != nil {
				return err
			}
			list = append(list, related)
		}
		rel.Set(e, list)

	case rel.Rel == edge.M2M:
		jdoc, err := ld.c.store.GetTable(schema.JunctionTable(t, rel.Type), false)
		if err != nil || jdoc == nil {
			return err
		}
		relDoc, err := ld.c.store.GetTable(rel.Type.Table, false)
		if err != nil || relDoc == nil {
			return err
		}
		rows := jdoc.Select(schema.JunctionColumn(t), key)
		var list []schema.Entity
		for _, row := range rows {
			relRec := relDoc.Lookup(rel.Type.Key.Name, row[schema.JunctionColumn(rel.Type)])
			if relRec == nil {
				continue
			}
			related, err := ld.hydrate(rel.Type, relRec)
			if err != nil {
				return err
			}
			list = append(list, related)
		}
		if len(list) > 0 {
			rel.Set(e, list)
		}
	}
	return nil
}

// trackGraph registers a loaded root entity and every relationship
// value reachable from it for change tracking.
func (c *Context) trackGraph(t *schema.Type, e schema.Entity) error {
	type item struct {
		t *schema.Type
		e schema.Entity
	}
	visited := make(map[string]bool)
	stack := []item{{t, e}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		key, err := entityKey(it.t, it.e)
		if err != nil {
			return err
		}
		id := entityID(it.t, key)
		if visited[id] {
			continue
		}
		visited[id] = true
		if _, err := c.set(it.t).track(it.e); err != nil {
			return err
		}
		for _, rel := range it.t.Edges {
			v := rel.Get(it.e)
			if v == nil {
				continue
			}
			if rel.Rel.ToOne() {
				if related, ok := v.(schema.Entity); ok {
					stack = append(stack, item{rel.Type, related})
				}
				continue
			}
			if list, ok := v.([]schema.Entity); ok {
				for _, related := range list {
					stack = append(stack, item{rel.Type, related})
				}
			}
		}
	}
	return nil
}
