package burrow

import (
	"errors"
	"sort"

	"github.com/burrowdb/burrow/graph"
	"github.com/burrowdb/burrow/schema"
	"github.com/burrowdb/burrow/storage"
)

// Validator is implemented by entities that carry their own validation
// rules. A non-empty result blocks persistence of that entity.
type Validator interface {
	Validate() []string
}

// ValidateFunc checks one entity before it is persisted and returns
// the violation messages, if any.
type ValidateFunc func(schema.Entity) []string

// Option configures a Context.
type Option func(*Context)

// WithValidation replaces the validation hook. The default hook runs
// Validate on entities implementing Validator.
func WithValidation(fn ValidateFunc) Option {
	return func(c *Context) { c.validate = fn }
}

// Context owns the entity sets and schema registry for its lifetime
// and drives the ordered save/delete pass against the storage backend.
// A Context is single threaded; SaveChanges and query execution run to
// completion on the calling goroutine.
type Context struct {
	store    storage.Store
	registry *schema.Registry
	sets     map[*schema.Type]*set
	validate ValidateFunc
}

// NewContext builds a Context over a store and a validated registry.
func NewContext(store storage.Store, registry *schema.Registry, opts ...Option) *Context {
	c := &Context{
		store:    store,
		registry: registry,
		sets:     make(map[*schema.Type]*set),
		validate: defaultValidate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultValidate(e schema.Entity) []string {
	if v, ok := e.(Validator); ok {
		return v.Validate()
	}
	return nil
}

// Registry returns the schema registry the Context was built with.
func (c *Context) Registry() *schema.Registry {
	return c.registry
}

// Close releases the storage backend.
func (c *Context) Close() error {
	return c.store.Close()
}

// set returns the per-type collection, creating it on first use.
func (c *Context) set(t *schema.Type) *set {
	s, ok := c.sets[t]
	if !ok {
		s = newSet(t)
		c.sets[t] = s
	}
	return s
}

// SaveChanges persists every pending insertion, modification and
// deletion. Types are processed in dependency order so cascades fired
// while finalizing one type can still act on the in-memory state of
// the types it touches. Validation failures and key-uniqueness
// violations are collected per entity and returned joined; the
// remaining entities persist normally. A dependency cycle aborts the
// whole call before anything is written.
func (c *Context) SaveChanges() error {
	order, err := graph.Build(c.registry).Sort()
	if err != nil {
		return err
	}

	rs := newResolver(c)
	var entityErrs []error

	for _, t := range order {
		s, ok := c.sets[t]
		if !ok {
			continue
		}
		for _, tr := range s.list() {
			if tr.state == StateDeleted {
				key, err := entityKey(t, tr.entity)
				if err != nil {
					return err
				}
				if err := rs.delete(t, key); err != nil {
					return err
				}
				continue
			}
			changed, err := tr.hasChanges(t)
			if err != nil {
				return err
			}
			// An earlier type's cascade may have deleted this entity
			// between list() and now.
			if !changed || tr.state == StateDeleted {
				continue
			}
			if msgs := c.validate(tr.entity); len(msgs) > 0 {
				key, _ := entityKey(t, tr.entity)
				entityErrs = append(entityErrs, &ValidationError{Type: t.Name, Key: key, Messages: msgs})
				continue
			}
			if err := rs.save(t, tr); err != nil {
				var ke *KeyUniquenessError
				if errors.As(err, &ke) {
					entityErrs = append(entityErrs, err)
					continue
				}
				return err
			}
		}
	}

	if err := rs.orphanSweep(); err != nil {
		return err
	}
	if err := rs.flush(); err != nil {
		return err
	}
	return errors.Join(entityErrs...)
}

// flush writes every table the pass touched, in name order for
// determinism.
func (rs *resolver) flush() error {
	names := make([]string, 0, len(rs.touched))
	for name := range rs.touched {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := rs.c.store.SaveTable(name); err != nil {
			return err
		}
	}
	return nil
}
