package burrow

import (
	"github.com/burrowdb/burrow/schema"
)

// set is the per-type collection of tracked entities owned by a
// Context. Registration order is preserved for the save pass; byKey
// indexes the first registration of each key.
type set struct {
	t     *schema.Type
	order []*tracked
	byKey map[string]*tracked
}

func newSet(t *schema.Type) *set {
	return &set{t: t, byKey: make(map[string]*tracked)}
}

// add registers an entity as New and takes its initial snapshot.
// Registering a second New entity under an existing key is legal here;
// the save pass surfaces it as a key-uniqueness violation.
func (s *set) add(e schema.Entity) (*tracked, error) {
	key, err := entityKey(s.t, e)
	if err != nil {
		return nil, err
	}
	if tr, ok := s.byKey[key]; ok && tr.entity == e {
		return tr, nil
	}
	tr := &tracked{entity: e, state: StateNew}
	if err := tr.takeSnapshot(s.t); err != nil {
		return nil, err
	}
	s.order = append(s.order, tr)
	if _, ok := s.byKey[key]; !ok {
		s.byKey[key] = tr
	}
	return tr, nil
}

// markDeleted marks the entity Deleted, registering it first when it
// was not tracked. Deleting an untracked entity is legal.
func (s *set) markDeleted(e schema.Entity) error {
	key, err := entityKey(s.t, e)
	if err != nil {
		return err
	}
	tr, ok := s.byKey[key]
	if !ok {
		tr = &tracked{entity: e}
		if err := tr.takeSnapshot(s.t); err != nil {
			return err
		}
		s.order = append(s.order, tr)
		s.byKey[key] = tr
	}
	tr.state = StateDeleted
	return nil
}

// track registers a loaded entity as Unchanged. It is idempotent by
// key: a second call for an already-tracked key returns the existing
// registration untouched.
func (s *set) track(e schema.Entity) (*tracked, error) {
	key, err := entityKey(s.t, e)
	if err != nil {
		return nil, err
	}
	if tr, ok := s.byKey[key]; ok {
		return tr, nil
	}
	tr := &tracked{entity: e, state: StateUnchanged}
	if err := tr.takeSnapshot(s.t); err != nil {
		return nil, err
	}
	s.order = append(s.order, tr)
	s.byKey[key] = tr
	return tr, nil
}

// get returns the tracked registration for a key, or nil.
func (s *set) get(key string) *tracked {
	return s.byKey[key]
}

// untrack drops the registration for a key.
func (s *set) untrack(key string) {
	tr, ok := s.byKey[key]
	if !ok {
		return
	}
	delete(s.byKey, key)
	for i, cand := range s.order {
		if cand == tr {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// list returns a copy of the current registrations; the save pass
// mutates the set while iterating.
func (s *set) list() []*tracked {
	out := make([]*tracked, len(s.order))
	copy(out, s.order)
	return out
}

// Set is the typed entity collection application code works with. It
// is a view over the Context-owned per-type set.
type Set[T schema.Entity] struct {
	c *Context
	t *schema.Type
}

// SetOf returns the entity set for the given type descriptor.
func SetOf[T schema.Entity](c *Context, t *schema.Type) *Set[T] {
	return &Set[T]{c: c, t: t}
}

// Add registers an entity for insertion. Types declared with AutoKey
// get a generated key when the key field is empty.
func (s *Set[T]) Add(e T) error {
	if s.t.KeyGen != nil {
		key, err := entityKey(s.t, e)
		if err != nil {
			return err
		}
		if key == "" {
			s.t.Key.Set(e, s.t.KeyGen())
		}
	}
	_, err := s.c.set(s.t).add(e)
	return err
}

// Remove marks an entity for deletion on the next SaveChanges. The
// entity does not need to be tracked yet.
func (s *Set[T]) Remove(e T) error {
	return s.c.set(s.t).markDeleted(e)
}

// All returns the currently tracked, non-deleted entities in
// registration order.
func (s *Set[T]) All() []T {
	var out []T
	for _, tr := range s.c.set(s.t).order {
		if tr.state == StateDeleted {
			continue
		}
		out = append(out, tr.entity.(T))
	}
	return out
}
