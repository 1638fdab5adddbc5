// Package query implements the predicate and ordering semantics of the
// in-memory query engine: AND-chained field conditions, decimal
// comparison for numeric operands, case-insensitive comparison for
// everything else, and post-filter pagination.
package query

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Op is a condition comparison operator.
type Op string

const (
	EQ   Op = "="
	NEQ  Op = "!="
	LT   Op = "<"
	GT   Op = ">"
	LTE  Op = "<="
	GTE  Op = ">="
	Like Op = "LIKE"
)

// UnsupportedOperatorError reports a condition using an operator the
// engine does not evaluate.
type UnsupportedOperatorError struct {
	Op Op
}

// Error returns the error string.
func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("burrow: unsupported query operator %q", string(e.Op))
}

// Condition is one field predicate. Conditions on a query are ANDed.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// OrderKey is one ordering criterion. Keys apply in declaration order,
// later keys break ties.
type OrderKey struct {
	Field string
	Desc  bool
}

var fold = cases.Fold()

// Match evaluates the condition against a field value read from an
// entity.
func (c Condition) Match(fieldValue any) (bool, error) {
	if c.Op == Like {
		return strings.Contains(fold.String(str(fieldValue)), fold.String(str(c.Value))), nil
	}
	cmp := Compare(fieldValue, c.Value)
	switch c.Op {
	case EQ:
		return cmp == 0, nil
	case NEQ:
		return cmp != 0, nil
	case LT:
		return cmp < 0, nil
	case GT:
		return cmp > 0, nil
	case LTE:
		return cmp <= 0, nil
	case GTE:
		return cmp >= 0, nil
	default:
		return false, &UnsupportedOperatorError{Op: c.Op}
	}
}

// Compare orders two field values. When both operands are numeric they
// compare as exact decimals; otherwise both compare as case-folded
// strings. A nil operand sorts before any non-nil one.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	da, okA := toDecimal(a)
	db, okB := toDecimal(b)
	if okA && okB {
		return da.Cmp(db)
	}
	return strings.Compare(fold.String(str(a)), fold.String(str(b)))
}

// Paginate applies skip/take to an already filtered and ordered list.
// A negative take means "all remaining".
func Paginate[T any](list []T, skip, take int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(list) {
		return nil
	}
	list = list[skip:]
	if take >= 0 && take < len(list) {
		list = list[:take]
	}
	return list
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int8:
		return decimal.NewFromInt(int64(n)), true
	case int16:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case uint:
		return decimal.NewFromUint64(uint64(n)), true
	case uint8:
		return decimal.NewFromUint64(uint64(n)), true
	case uint16:
		return decimal.NewFromUint64(uint64(n)), true
	case uint32:
		return decimal.NewFromUint64(uint64(n)), true
	case uint64:
		return decimal.NewFromUint64(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case float64:
		return decimal.NewFromFloat(n), true
	case decimal.Decimal:
		return n, true
	default:
		return decimal.Decimal{}, false
	}
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
