// Package expr defines the expression tree consumed and produced by the query
// model builder.
//
// The tree is the input boundary of the system: a calling front-end encodes a
// chain of query operators as nested Call nodes whose arguments are lambdas,
// constants and other calls. The same node shapes are reused inside the query
// model, where they describe predicates, selectors and keys.
//
// NODE SHAPES:
//
//	Constant     leaf value with a static type
//	Parameter    lambda parameter (identity is the pointer)
//	Member       struct field access
//	Lambda       ordered parameters + body
//	New          constructor/initializer with named members
//	Call         query operator invocation (source, operator name, args)
//	Binary       arithmetic, comparison and logical operators
//	Unary        Not, Negate and Convert
//	TypeIs       runtime type test
//	Conditional  test ? a : b
//
// Nodes defined by other packages (query source references, sub-queries)
// implement Extension so that Rewrite and Walk can descend into them without
// this package knowing about them.
//
// TYPES:
//
// Static types are reflect.Type values. A sequence of T is a slice of T
// (SeqOf). A nullable value type is a pointer to it, so *int32 is a nullable
// Int32. TypeName renders types in the stable, language-neutral form used by
// every canonical string in the repository (Int32, Float64?, []String).
//
// Nodes are immutable after construction. Constructors panic on programmer
// errors (unknown field, mismatched operand kinds), the same way reflect does.
package expr
