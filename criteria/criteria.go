package criteria

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"
)

// Criteria is anything that can attach itself to a select query: a Filter
// narrowing the result set or a Shape adjusting it.
type Criteria interface {
	Apply(q *bun.SelectQuery) *bun.SelectQuery
	fmt.Stringer
}

// SelectCriteria is the function shape a compiled criterion reduces to.
type SelectCriteria func(q *bun.SelectQuery) *bun.SelectQuery

// Compile flattens any number of criteria into a single SelectCriteria.
func Compile(crit ...Criteria) SelectCriteria {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, c := range crit {
			q = c.Apply(q)
		}
		return q
	}
}

// Filter is an immutable boolean predicate over entity columns. The zero
// value matches everything and attaches nothing. Filters are values:
// combinators return new filters and never mutate their operands.
type Filter struct {
	expr string
	args []any
	desc string
}

// All returns the empty filter, which matches every row.
func All() Filter { return Filter{} }

// IsEmpty reports whether the filter carries no predicate.
func (f Filter) IsEmpty() bool { return f.expr == "" }

// String returns a stable human-readable description of the predicate.
func (f Filter) String() string {
	if f.IsEmpty() {
		return "all"
	}
	return f.desc
}

// Fragment exposes the rendered SQL fragment and its arguments so the
// predicate can be attached to non-select builders (delete, update).
// An empty filter returns ("", nil).
func (f Filter) Fragment() (string, []any) {
	return f.expr, f.args
}

// Apply attaches the predicate to the query. Empty filters pass the query
// through untouched.
func (f Filter) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if f.IsEmpty() {
		return q
	}
	return q.Where(f.expr, f.args...)
}

// And returns the conjunction of the receiver with the given filters.
func (f Filter) And(others ...Filter) Filter {
	return And(append([]Filter{f}, others...)...)
}

// Or returns the disjunction of the receiver with the given filters.
func (f Filter) Or(others ...Filter) Filter {
	return Or(append([]Filter{f}, others...)...)
}

// And combines filters conjunctively. Empty operands are dropped; if none
// remain the result is the empty filter.
func And(parts ...Filter) Filter {
	return combine(parts, " AND ")
}

// Or combines filters disjunctively. Empty operands are dropped; if none
// remain the result is the empty filter.
func Or(parts ...Filter) Filter {
	return combine(parts, " OR ")
}

// Not negates a filter. Negating the empty filter yields the empty filter:
// "no predicate" stays "no predicate".
func Not(f Filter) Filter {
	if f.IsEmpty() {
		return Filter{}
	}
	return Filter{
		expr: "NOT (" + f.expr + ")",
		args: f.args,
		desc: "NOT (" + f.desc + ")",
	}
}

func combine(parts []Filter, sep string) Filter {
	live := parts[:0:0]
	for _, p := range parts {
		if !p.IsEmpty() {
			live = append(live, p)
		}
	}
	switch len(live) {
	case 0:
		return Filter{}
	case 1:
		return live[0]
	}

	exprs := make([]string, len(live))
	descs := make([]string, len(live))
	var args []any
	for i, p := range live {
		exprs[i] = p.expr
		descs[i] = p.desc
		args = append(args, p.args...)
	}
	return Filter{
		expr: "(" + strings.Join(exprs, sep) + ")",
		args: args,
		desc: "(" + strings.Join(descs, sep) + ")",
	}
}

// Eq matches rows whose column equals the given value. A nil value becomes
// an IS NULL check.
func Eq(column string, value any) Filter {
	if value == nil {
		return Filter{
			expr: "? IS NULL",
			args: []any{bun.Ident(column)},
			desc: column + " IS NULL",
		}
	}
	return Filter{
		expr: "? = ?",
		args: []any{bun.Ident(column), value},
		desc: fmt.Sprintf("%s = %v", column, value),
	}
}

// Contains matches rows whose column contains the substring. LIKE wildcards
// in the needle are escaped, so the match is always literal.
func Contains(column, substring string) Filter {
	return Filter{
		expr: `? LIKE ? ESCAPE '\'`,
		args: []any{bun.Ident(column), "%" + escapeLike(substring) + "%"},
		desc: fmt.Sprintf("%s CONTAINS %q", column, substring),
	}
}

// Between matches rows whose column lies in the inclusive [lo, hi] range.
func Between(column string, lo, hi any) Filter {
	return Filter{
		expr: "? BETWEEN ? AND ?",
		args: []any{bun.Ident(column), lo, hi},
		desc: fmt.Sprintf("%s BETWEEN %v AND %v", column, lo, hi),
	}
}

// Gte matches rows whose column is greater than or equal to the value.
func Gte(column string, value any) Filter {
	return Filter{
		expr: "? >= ?",
		args: []any{bun.Ident(column), value},
		desc: fmt.Sprintf("%s >= %v", column, value),
	}
}

// Lte matches rows whose column is less than or equal to the value.
func Lte(column string, value any) Filter {
	return Filter{
		expr: "? <= ?",
		args: []any{bun.Ident(column), value},
		desc: fmt.Sprintf("%s <= %v", column, value),
	}
}

// In matches rows whose column equals any of the given values. An empty
// value list matches nothing.
func In[V any](column string, values ...V) Filter {
	if len(values) == 0 {
		return Filter{
			expr: "1 = 0",
			args: nil,
			desc: column + " IN ()",
		}
	}
	descs := make([]string, len(values))
	for i, v := range values {
		descs[i] = fmt.Sprintf("%v", v)
	}
	return Filter{
		expr: "? IN (?)",
		args: []any{bun.Ident(column), bun.In(values)},
		desc: fmt.Sprintf("%s IN (%s)", column, strings.Join(descs, ", ")),
	}
}

// Fields builds an equality conjunction from a column-to-value map.
// Columns are processed in sorted order so the rendered fragment and the
// description are deterministic.
func Fields(fields map[string]any) Filter {
	if len(fields) == 0 {
		return Filter{}
	}
	columns := make([]string, 0, len(fields))
	for col := range fields {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	parts := make([]Filter, len(columns))
	for i, col := range columns {
		parts[i] = Eq(col, fields[col])
	}
	return And(parts...)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
