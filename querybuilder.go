package burrow

import (
	"fmt"
	"sort"

	"github.com/burrowdb/burrow/query"
	"github.com/burrowdb/burrow/schema"
)

// Query builds and runs an in-memory query over one entity type:
// AND-chained conditions, multi-key ordering, then skip/take. Every
// returned entity has its relationships loaded and is registered with
// the owning entity set.
type Query[T schema.Entity] struct {
	c     *Context
	t     *schema.Type
	conds []query.Condition
	order []query.OrderKey
	skip  int
	take  int
}

// QueryOf starts a query for the given type descriptor.
func QueryOf[T schema.Entity](c *Context, t *schema.Type) *Query[T] {
	return &Query[T]{c: c, t: t, take: -1}
}

// Where appends a condition. All conditions are ANDed.
func (q *Query[T]) Where(field string, op query.Op, value any) *Query[T] {
	q.conds = append(q.conds, query.Condition{Field: field, Op: op, Value: value})
	return q
}

// OrderBy appends an ordering key. Keys apply in declaration order;
// later keys break ties.
func (q *Query[T]) OrderBy(field string, desc bool) *Query[T] {
	q.order = append(q.order, query.OrderKey{Field: field, Desc: desc})
	return q
}

// Skip drops the first n results after filtering and ordering.
func (q *Query[T]) Skip(n int) *Query[T] {
	q.skip = n
	return q
}

// Take limits the result to n entities after filtering, ordering and
// skipping.
func (q *Query[T]) Take(n int) *Query[T] {
	q.take = n
	return q
}

// Execute runs the query and begins tracking every returned entity.
func (q *Query[T]) Execute() ([]T, error) {
	matched, err := q.evaluate()
	if err != nil {
		return nil, err
	}
	matched = query.Paginate(matched, q.skip, q.take)
	out := make([]T, 0, len(matched))
	for _, e := range matched {
		if err := q.c.trackGraph(q.t, e); err != nil {
			return nil, err
		}
		out = append(out, e.(T))
	}
	return out, nil
}

// First runs the query and returns the first result, or a
// NotFoundError when nothing matches.
func (q *Query[T]) First() (T, error) {
	var zero T
	q.take = 1
	res, err := q.Execute()
	if err != nil {
		return zero, err
	}
	if len(res) == 0 {
		return zero, NewNotFoundError(q.t.Name)
	}
	return res[0], nil
}

// Count returns the number of entities matching the conditions,
// ignoring pagination.
func (q *Query[T]) Count() (int, error) {
	matched, err := q.evaluate()
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

var supportedOps = map[query.Op]bool{
	query.EQ: true, query.NEQ: true,
	query.LT: true, query.GT: true,
	query.LTE: true, query.GTE: true,
	query.Like: true,
}

func (q *Query[T]) evaluate() ([]schema.Entity, error) {
	for _, cond := range q.conds {
		if !supportedOps[cond.Op] {
			return nil, &query.UnsupportedOperatorError{Op: cond.Op}
		}
		if q.t.FieldByName(cond.Field) == nil {
			return nil, fmt.Errorf("burrow: %s: unknown field %q in condition", q.t.Name, cond.Field)
		}
	}
	for _, k := range q.order {
		if q.t.FieldByName(k.Field) == nil {
			return nil, fmt.Errorf("burrow: %s: unknown field %q in ordering", q.t.Name, k.Field)
		}
	}

	doc, err := q.c.store.GetTable(q.t.Table, false)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}

	ld := newLoader(q.c)
	var matched []schema.Entity
	for _, rec := range doc.Records {
		e, err := ld.hydrate(q.t, rec)
		if err != nil {
			return nil, err
		}
		ok, err := q.match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, e)
		}
	}

	if len(q.order) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, k := range q.order {
				fd := q.t.FieldByName(k.Field)
				cmp := query.Compare(fd.Get(matched[i]), fd.Get(matched[j]))
				if cmp == 0 {
					continue
				}
				if k.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	return matched, nil
}

func (q *Query[T]) match(e schema.Entity) (bool, error) {
	for _, cond := range q.conds {
		fd := q.t.FieldByName(cond.Field)
		ok, err := cond.Match(fd.Get(e))
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
