// Package queryir defines the query model: the normalized intermediate
// representation an operator chain is materialized into.
//
// ARCHITECTURE:
//
//	[expression tree] → [node chain] → [QueryModel] → [translator] (read-only Walk)
//	                                               → [exec]       (Execute)
//
// A QueryModel holds one MainFromClause, ordered body clauses
// (AdditionalFromClause, WhereClause, OrderByClause, JoinClause,
// GroupJoinClause), exactly one projection (SelectClause or GroupClause) and
// ordered result operators.
//
// STATE MACHINE:
//
// A model is streaming until the first result operator is appended or a
// GroupClause becomes its projection. From then on it is reduced: the builder
// must not append body clauses, and instead opens a new model whose main from
// clause reads the old one through a SubQuery expression.
//
//	from Int32 i in {from Int32 i in value([]Int32) select [i] => Take(3)} where ([i] > 1) select [i]
//
// EXPRESSIONS:
//
// Clause expressions are expr trees extended with two nodes defined here:
//   - QuerySourceRef: "the current item of clause X", rendered [name]
//   - SubQuery: a nested model, rendered {model}
//
// RESULT OPERATORS:
//
// Every result operator computes its output descriptor without executing
// (OutputInfo), executes over in-memory data (Execute), exposes every held
// expression to TransformExpressions exactly once, and clones without shared
// state. Numeric operators dispatch on expr.NumericKind to generic
// implementations; there is no runtime instantiation.
//
// CANONICAL FORM:
//
// String on models, clauses and operators is a committed interface used for
// snapshot tests and debugging: Take(3), Aggregate(seed, func), Cast<Int32>(),
// FirstOrDefault() and so on, with placeholders rendered by expr.Format.
//
// ERRORS:
//
// All failures are *Error values with a code: CONFIGURATION, TYPE_MISMATCH,
// UNSUPPORTED_OPERATOR, RESOLUTION or EXECUTION. None is retryable.
package queryir
