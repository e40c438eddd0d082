package criteria

import (
	"fmt"

	"github.com/uptrace/bun"
)

// Direction is a sort direction for SortBy.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// ShapeKind discriminates what a Shape does to the result set.
type ShapeKind int

const (
	KindSort ShapeKind = iota
	KindLimit
	KindOffset
	KindPage
)

// Shape adjusts the result set of a query: ordering, limit, offset. Shapes
// are a distinct kind from Filter on purpose: they do not participate in
// boolean composition, they are only appended to a query in order.
type Shape struct {
	kind   ShapeKind
	column string
	dir    Direction
	n      int
	size   int
}

// Kind reports what the shape does.
func (s Shape) Kind() ShapeKind { return s.kind }

// Column returns the sort column for KindSort shapes, "" otherwise.
func (s Shape) Column() string { return s.column }

// String returns a stable human-readable description of the shape.
func (s Shape) String() string {
	switch s.kind {
	case KindSort:
		return fmt.Sprintf("ORDER BY %s %s", s.column, s.dir)
	case KindLimit:
		return fmt.Sprintf("LIMIT %d", s.n)
	case KindOffset:
		return fmt.Sprintf("OFFSET %d", s.n)
	default:
		return fmt.Sprintf("PAGE %d SIZE %d", s.n, s.size)
	}
}

// Apply attaches the shape to the query unconditionally. Callers that need
// "skip ordering on unmapped columns" semantics go through
// repository.Repository, which checks the column against the entity schema
// before applying a sort.
func (s Shape) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	switch s.kind {
	case KindSort:
		return q.OrderExpr("? ?", bun.Ident(s.column), bun.Safe(string(s.dir)))
	case KindLimit:
		return q.Limit(s.n)
	case KindOffset:
		return q.Offset(s.n)
	default:
		return q.Limit(s.size).Offset((s.n - 1) * s.size)
	}
}

// SortBy orders the result set by the given column. Any direction other
// than Desc is treated as ascending.
func SortBy(column string, dir Direction) Shape {
	if dir != Desc {
		dir = Asc
	}
	return Shape{kind: KindSort, column: column, dir: dir}
}

// Limit caps the number of returned rows.
func Limit(n int) Shape { return Shape{kind: KindLimit, n: n} }

// Offset skips the first n rows.
func Offset(n int) Shape { return Shape{kind: KindOffset, n: n} }

// Page expresses page-based access: page n (1-based) of the given size is
// Limit(size) plus Offset((n-1)*size).
func Page(n, size int) Shape {
	if n < 1 {
		n = 1
	}
	return Shape{kind: KindPage, n: n, size: size}
}
