package burrow

import (
	"fmt"

	"github.com/burrowdb/burrow/schema"
	"github.com/burrowdb/burrow/schema/edge"
	"github.com/burrowdb/burrow/storage"
)

// resolver carries the state of one SaveChanges call: the tables to
// flush and the entities already deleted, which bounds cascade
// recursion.
type resolver struct {
	c       *Context
	touched map[string]bool
	deleted map[string]bool
	// junction rows written during this pass, so the partner type's
	// full replace does not wipe them in the same cycle.
	pinned map[string]bool
}

func newResolver(c *Context) *resolver {
	return &resolver{
		c:       c,
		touched: make(map[string]bool),
		deleted: make(map[string]bool),
		pinned:  make(map[string]bool),
	}
}

// pinKey identifies one junction row independent of which side wrote
// it.
func pinKey(jname, colA, valA, colB, valB string) string {
	if colA > colB {
		colA, valA, colB, valB = colB, valB, colA, valA
	}
	return jname + "\x00" + colA + "=" + valA + "\x00" + colB + "=" + valB
}

func (rs *resolver) table(name string, create bool) (*storage.TableDocument, error) {
	return rs.c.store.GetTable(name, create)
}

func entityID(t *schema.Type, key string) string {
	return t.Name + "/" + key
}

// save persists one entity's fields, foreign keys and junction rows.
// A Cascade relationship whose target is already deleted turns the
// save into a deletion of this entity instead.
func (rs *resolver) save(t *schema.Type, tr *tracked) error {
	e := tr.entity
	key, err := entityKey(t, e)
	if err != nil {
		return err
	}
	doc, err := rs.table(t.Table, true)
	if err != nil {
		return err
	}
	if tr.state == StateNew && doc.Lookup(t.Key.Name, key) != nil {
		return &KeyUniquenessError{Type: t.Name, Key: key}
	}

	fields, err := fieldValues(t, e)
	if err != nil {
		return err
	}
	rec := storage.Record(fields)

	for _, rel := range t.Edges {
		switch {
		case rel.Owning():
			deleted, err := rs.writeForeignKey(t, rel, e, rec)
			if err != nil {
				return err
			}
			if deleted {
				tr.state = StateDeleted
				return rs.delete(t, key)
			}
		case rel.Rel == edge.M2M:
			if err := rs.replaceJunction(t, rel, e, key); err != nil {
				return err
			}
		}
		// O2M: the related records carry the foreign key themselves.
	}

	if existing := doc.Lookup(t.Key.Name, key); existing != nil {
		for k := range existing {
			delete(existing, k)
		}
		for k, v := range rec {
			existing[k] = v
		}
	} else {
		doc.Insert(rec)
	}
	rs.touched[t.Table] = true

	if err := tr.takeSnapshot(t); err != nil {
		return err
	}
	tr.state = StateUnchanged
	return nil
}

// writeForeignKey writes the foreign-key field for an owning to-one
// relationship, applying the delete behavior when the target is
// already marked deleted. The bool result requests deletion of the
// saving entity (Cascade).
func (rs *resolver) writeForeignKey(t *schema.Type, rel *schema.Relationship, e schema.Entity, rec storage.Record) (bool, error) {
	v := rel.Get(e)
	if v == nil {
		return false, nil
	}
	related, ok := v.(schema.Entity)
	if !ok {
		return false, fmt.Errorf("burrow: edge %q: accessor returned %T, want Entity", rel.Name, v)
	}
	relKey, err := entityKey(rel.Type, related)
	if err != nil {
		return false, err
	}
	if rs.isDeleted(rel.Type, relKey) {
		switch rel.OnDelete {
		case edge.SetNull:
			rel.Set(e, nil)
			return false, nil
		case edge.Cascade:
			return true, nil
		}
		// Restrict and NoAction: the reference is written as-is and
		// dangles once the target is gone.
	}
	rec[schema.ForeignKey(rel.Type)] = relKey
	return false, nil
}

// replaceJunction recomputes the full junction row set for this
// entity's key: a full replace, not an incremental diff.
func (rs *resolver) replaceJunction(t *schema.Type, rel *schema.Relationship, e schema.Entity, key string) error {
	jname := schema.JunctionTable(t, rel.Type)
	jdoc, err := rs.table(jname, true)
	if err != nil {
		return err
	}
	col, rcol := schema.JunctionColumn(t), schema.JunctionColumn(rel.Type)
	jdoc.Remove(func(r storage.Record) bool {
		return r[col] == key && !rs.pinned[pinKey(jname, col, r[col], rcol, r[rcol])]
	})

	if v := rel.Get(e); v != nil {
		list, ok := v.([]schema.Entity)
		if !ok {
			return fmt.Errorf("burrow: edge %q: accessor returned %T, want []Entity", rel.Name, v)
		}
		for _, related := range list {
			relKey, err := entityKey(rel.Type, related)
			if err != nil {
				return err
			}
			if rs.isDeleted(rel.Type, relKey) {
				continue
			}
			pin := pinKey(jname, col, key, rcol, relKey)
			if !rs.pinned[pin] {
				jdoc.Insert(storage.Record{col: key, rcol: relKey})
				rs.pinned[pin] = true
			}
		}
	}
	rs.touched[jname] = true
	return nil
}

// isDeleted reports whether the entity is marked Deleted in its set or
// was already deleted earlier in this pass.
func (rs *resolver) isDeleted(t *schema.Type, key string) bool {
	if rs.deleted[entityID(t, key)] {
		return true
	}
	if s, ok := rs.c.sets[t]; ok {
		if tr := s.get(key); tr != nil {
			return tr.state == StateDeleted
		}
	}
	return false
}

// delete removes one entity and propagates along its relationships.
// Junction rows are dropped, dependent records are cascaded or
// stripped of their foreign key per the declared behavior, and the
// entity's own record and registration go away. O2O orphan sides are
// left to the orphan sweep.
func (rs *resolver) delete(t *schema.Type, key string) error {
	id := entityID(t, key)
	if rs.deleted[id] {
		return nil
	}
	rs.deleted[id] = true

	for _, rel := range t.Edges {
		switch rel.Rel {
		case edge.M2M:
			if err := rs.deleteM2M(t, rel, key); err != nil {
				return err
			}
		case edge.O2M:
			if err := rs.deleteO2M(t, rel, key); err != nil {
				return err
			}
		}
	}

	doc, err := rs.table(t.Table, false)
	if err != nil {
		return err
	}
	if doc != nil {
		if doc.Remove(func(r storage.Record) bool { return r[t.Key.Name] == key }) > 0 {
			rs.touched[t.Table] = true
		}
	}

	if s, ok := rs.c.sets[t]; ok {
		if tr := s.get(key); tr != nil {
			tr.state = StateDeleted
			s.untrack(key)
		}
	}
	return nil
}

// deleteM2M drops every junction row naming the deleted entity and,
// when the related type's own descriptor for the reverse relationship
// says Cascade, deletes the partners too.
func (rs *resolver) deleteM2M(t *schema.Type, rel *schema.Relationship, key string) error {
	jname := schema.JunctionTable(t, rel.Type)
	jdoc, err := rs.table(jname, false)
	if err != nil {
		return err
	}
	if jdoc == nil {
		return nil
	}
	col, rcol := schema.JunctionColumn(t), schema.JunctionColumn(rel.Type)

	var partners []string
	for _, row := range jdoc.Select(col, key) {
		partners = append(partners, row[rcol])
	}
	if jdoc.Remove(func(r storage.Record) bool { return r[col] == key }) > 0 {
		rs.touched[jname] = true
	}

	back := t.Inverse(rel, edge.M2M)
	if back == nil {
		return nil
	}
	for _, relKey := range partners {
		if rt := rs.c.set(rel.Type).get(relKey); rt != nil {
			if err := stripFromList(back, rt.entity, t, key); err != nil {
				return err
			}
		}
	}
	if back.OnDelete == edge.Cascade {
		for _, relKey := range partners {
			if err := rs.delete(rel.Type, relKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteO2M applies the declared delete behavior to every related
// record referencing the deleted entity, both in storage and on
// tracked in-memory instances.
func (rs *resolver) deleteO2M(t *schema.Type, rel *schema.Relationship, key string) error {
	fk := schema.ForeignKey(t)
	back := t.Inverse(rel, edge.M2O)

	relDoc, err := rs.table(rel.Type.Table, false)
	if err != nil {
		return err
	}
	if relDoc != nil {
		matches := relDoc.Select(fk, key)
		switch rel.OnDelete {
		case edge.SetNull:
			for _, rec := range matches {
				delete(rec, fk)
			}
			if len(matches) > 0 {
				rs.touched[rel.Type.Table] = true
			}
		case edge.Cascade:
			keys := make([]string, 0, len(matches))
			for _, rec := range matches {
				keys = append(keys, rec[rel.Type.Key.Name])
			}
			for _, relKey := range keys {
				if err := rs.delete(rel.Type, relKey); err != nil {
					return err
				}
			}
		}
	}

	// Tracked instances that were never persisted, or whose in-memory
	// back reference would otherwise go stale.
	if s, ok := rs.c.sets[rel.Type]; ok && back != nil {
		for _, rt := range s.list() {
			v := back.Get(rt.entity)
			if v == nil {
				continue
			}
			related, ok := v.(schema.Entity)
			if !ok {
				return fmt.Errorf("burrow: edge %q: accessor returned %T, want Entity", back.Name, v)
			}
			refKey, err := entityKey(t, related)
			if err != nil {
				return err
			}
			if refKey != key {
				continue
			}
			switch rel.OnDelete {
			case edge.SetNull:
				back.Set(rt.entity, nil)
			case edge.Cascade:
				rtKey, err := entityKey(rel.Type, rt.entity)
				if err != nil {
					return err
				}
				if err := rs.delete(rel.Type, rtKey); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// orphanSweep removes, for every O2O relationship declared with
// Orphan, the orphan-side records no live owner references. No further
// cascade runs for swept records.
func (rs *resolver) orphanSweep() error {
	for _, t := range rs.c.registry.Types() {
		for _, rel := range t.Edges {
			if rel.Rel != edge.O2O || rel.OnDelete != edge.Orphan {
				continue
			}
			orphanDoc, err := rs.table(t.Table, false)
			if err != nil {
				return err
			}
			if orphanDoc == nil {
				continue
			}
			ownerDoc, err := rs.table(rel.Type.Table, false)
			if err != nil {
				return err
			}
			fk := schema.ForeignKey(t)
			referenced := make(map[string]bool)
			if ownerDoc != nil {
				for _, r := range ownerDoc.Records {
					if v, ok := r[fk]; ok {
						referenced[v] = true
					}
				}
			}
			var swept []string
			removed := orphanDoc.Remove(func(r storage.Record) bool {
				k := r[t.Key.Name]
				if referenced[k] {
					return false
				}
				swept = append(swept, k)
				return true
			})
			if removed > 0 {
				rs.touched[t.Table] = true
			}
			if s, ok := rs.c.sets[t]; ok {
				for _, k := range swept {
					if tr := s.get(k); tr != nil {
						tr.state = StateDeleted
						s.untrack(k)
					}
				}
			}
		}
	}
	return nil
}

// stripFromList removes every entity with the given key from a
// to-many relationship value.
func stripFromList(rel *schema.Relationship, holder schema.Entity, deletedType *schema.Type, deletedKey string) error {
	v := rel.Get(holder)
	if v == nil {
		return nil
	}
	list, ok := v.([]schema.Entity)
	if !ok {
		return fmt.Errorf("burrow: edge %q: accessor returned %T, want []Entity", rel.Name, v)
	}
	kept := list[:0]
	for _, related := range list {
		k, err := entityKey(deletedType, related)
		if err != nil {
			return err
		}
		if k == deletedKey {
			continue
		}
		kept = append(kept, related)
	}
	rel.Set(holder, kept)
	return nil
}
