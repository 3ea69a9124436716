// Package exec runs query models over in-memory data.
//
// ARCHITECTURE:
//
//	QueryModel → [rows: main from → body clauses] → [projection] → [result operators] → value
//
// Execution is single-threaded and lazy where the clause allows it. A row is
// a chain of bindings from query sources (and lambda parameters) to items;
// each body clause maps the row sequence to a new one:
//   - AdditionalFromClause: flat-maps every row over its from expression
//   - WhereClause: filters
//   - JoinClause: hash join, the inner sequence is read once
//   - GroupJoinClause: binds the typed slice of matching inner items
//   - OrderByClause: materializes and sorts stably, first ordering primary
//
// The projection turns rows into items. A GroupClause partitions in
// first-appearance order and yields queryir.GroupingType values. Result
// operators then run in order, each receiving the streamed descriptor its
// predecessor computed.
//
// EXPRESSIONS:
//
// The interpreter evaluates every expr node shape plus the two IR nodes:
// QuerySourceRef reads the current row (or an enclosing row for correlated
// sub-queries) and SubQuery executes the nested model. Sub-queries yielding a
// sequence are materialized as typed slices so member access and further
// operators see ordinary Go values.
//
// NULL HANDLING:
//
// Nullable values are pointers. Arithmetic with a nil operand yields nil when
// the result type is nullable. Ordering comparisons with nil are false and
// equality treats two nils as equal.
package exec
