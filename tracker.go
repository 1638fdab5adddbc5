package burrow

import (
	"fmt"
	"sort"

	"github.com/burrowdb/burrow/schema"
)

// State is the lifecycle state of a tracked entity.
type State int

const (
	// StateNew marks an entity added but never persisted.
	StateNew State = iota
	// StateUnchanged marks an entity matching its last persisted
	// snapshot.
	StateUnchanged
	// StateModified marks an entity whose fields or relationship keys
	// diverged from the snapshot.
	StateModified
	// StateDeleted marks an entity scheduled for removal.
	StateDeleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateUnchanged:
		return "Unchanged"
	case StateModified:
		return "Modified"
	case StateDeleted:
		return "Deleted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// tracked wraps one entity with its lifecycle state and the snapshot
// of its last persisted field and relationship-key values.
type tracked struct {
	entity schema.Entity
	state  State

	fields map[string]string
	rels   map[string][]string
}

// takeSnapshot records the current encoded field values and canonical
// relationship keys. Called on load and after every successful
// persist.
func (tr *tracked) takeSnapshot(t *schema.Type) error {
	fields, err := fieldValues(t, tr.entity)
	if err != nil {
		return err
	}
	rels := make(map[string][]string, len(t.Edges))
	for _, rel := range t.Edges {
		keys, err := relKeys(rel, tr.entity)
		if err != nil {
			return err
		}
		rels[rel.Name] = keys
	}
	tr.fields = fields
	tr.rels = rels
	return nil
}

// hasChanges reports whether the entity needs persisting. Detecting a
// field or relationship-key divergence flips the state to Modified so
// the save pass can tell "needs persisting" from "already persisted
// this cycle".
func (tr *tracked) hasChanges(t *schema.Type) (bool, error) {
	switch tr.state {
	case StateNew, StateDeleted:
		return true, nil
	case StateModified:
		return true, nil
	}
	fields, err := fieldValues(t, tr.entity)
	if err != nil {
		return false, err
	}
	for name, v := range fields {
		if tr.fields[name] != v {
			tr.state = StateModified
			return true, nil
		}
	}
	for _, rel := range t.Edges {
		keys, err := relKeys(rel, tr.entity)
		if err != nil {
			return false, err
		}
		if !equalKeys(tr.rels[rel.Name], keys) {
			tr.state = StateModified
			return true, nil
		}
	}
	return false, nil
}

// fieldValues encodes the key and every declared field of the entity.
func fieldValues(t *schema.Type, e schema.Entity) (map[string]string, error) {
	out := make(map[string]string, len(t.Fields)+1)
	kv, err := t.Key.Encode(t.Key.Get(e))
	if err != nil {
		return nil, fmt.Errorf("burrow: %s: %w", t.Name, err)
	}
	out[t.Key.Name] = kv
	for _, f := range t.Fields {
		v, err := f.Encode(f.Get(e))
		if err != nil {
			return nil, fmt.Errorf("burrow: %s: %w", t.Name, err)
		}
		out[f.Name] = v
	}
	return out, nil
}

// relKeys returns the canonical key representation of a relationship
// value: a single-element slice for to-one relations, a sorted key
// slice for to-many relations, nil when unset. Accessors must return
// an untyped nil for unset to-one relations.
func relKeys(rel *schema.Relationship, e schema.Entity) ([]string, error) {
	v := rel.Get(e)
	if v == nil {
		return nil, nil
	}
	if rel.Rel.ToOne() {
		related, ok := v.(schema.Entity)
		if !ok {
			return nil, fmt.Errorf("burrow: edge %q: accessor returned %T, want Entity", rel.Name, v)
		}
		k, err := entityKey(rel.Type, related)
		if err != nil {
			return nil, err
		}
		return []string{k}, nil
	}
	list, ok := v.([]schema.Entity)
	if !ok {
		return nil, fmt.Errorf("burrow: edge %q: accessor returned %T, want []Entity", rel.Name, v)
	}
	keys := make([]string, 0, len(list))
	for _, related := range list {
		k, err := entityKey(rel.Type, related)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// entityKey encodes the key value of an entity of the given type.
func entityKey(t *schema.Type, e schema.Entity) (string, error) {
	k, err := t.Key.Encode(t.Key.Get(e))
	if err != nil {
		return "", fmt.Errorf("burrow: %s: %w", t.Name, err)
	}
	return k, nil
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
