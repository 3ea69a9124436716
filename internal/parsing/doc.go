// Package parsing turns an operator-call expression tree into a query model.
//
// ARCHITECTURE:
//
//	[expr.Call chain] → partial evaluation → [node chain] → Apply (forward) → [queryir.QueryModel]
//
// The builder walks the call chain from the outermost call inwards and
// creates one Node per call, looked up in a Registry by operator signature
// (Name/arity). The innermost receiver that is not a registered call becomes
// the MainSourceNode. Function literals stay unresolved until the chain is
// applied.
//
// Materialization applies the nodes in source order. Each node appends its
// clause or result operator to the model and registers it in the
// BuildContext, exactly once.
//
// RESOLUTION:
//
// A node's lambda references the previous node's output through its
// parameter. Resolve substitutes the parameter with that output (a
// QuerySourceRef, a resolved selector, a transparent identifier) and then
// runs two rewrite rules:
//
//   - InlineTransparentIdentifiers: new {c = [c], o = [o]}.o becomes [o]
//   - FindSubQueries: a registered operator call on a sequence becomes a
//     SubQuery holding an independently built model
//
// Resolving a node that has not been applied is a RESOLUTION error.
//
// WRAPPING:
//
// A streaming node applied to a reduced model (one with result operators or
// a group projection) first wraps the model:
//
//	from T x in {previous model} select [x]
//
// and records the new main from clause as the rebased output of its source
// node, so later resolutions through that node see [x]. Result operators
// never wrap.
//
// IMPLICIT NODES:
//
// Predicate overloads (Count(p), Any(p), First(p), ...) build Where + the
// operator; selector overloads (Sum(s), Min(s), Max(s), Average(s)) build
// Select + the operator; GroupBy with a result selector builds GroupBy +
// Select over the grouping.
package parsing
