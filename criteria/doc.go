// Package criteria models reusable query conditions as first-class values.
//
// # Overview
//
// A Filter is an immutable boolean predicate over entity columns. Filters
// compose with And, Or and Not without touching a query; the composed tree
// renders to a single SQL fragment that is attached to a *bun.SelectQuery
// exactly once. A Shape adjusts the result set (ordering, limit, offset)
// and is deliberately a separate type: shapes cannot be combined with Or
// or Not, only appended.
//
// # Basic Usage
//
//	active := criteria.Eq("active", true)
//	apples := criteria.Contains("name", "apple")
//
//	q = active.And(apples).Apply(q)
//	q = criteria.Page(2, 25).Apply(q)
//
// An empty filter (criteria.All, or combinators over empty parts) produces
// no fragment and leaves the query untouched. That is a valid identity
// case, never an error.
//
// Every criterion implements fmt.Stringer with a stable description, which
// the readcache package uses to build cache keys.
package criteria
