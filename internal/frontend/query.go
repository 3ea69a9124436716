package frontend

import (
	"fmt"
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
)

// Query is a fluent builder for operator-call trees, the input the parser
// consumes. Lambda arguments are given as text and typed from the
// receiver's item type:
//
//	q := frontend.From(customers).
//		Where("c => c.Age > 30").
//		Select("c => c.Name").
//		Take(2)
//
// The first error sticks; Build reports it.
type Query struct {
	e   expr.Expr
	err error
}

// From starts a query over source, a slice or an expression of slice type.
func From(source any) Query {
	if e, ok := source.(expr.Expr); ok {
		return FromExpr(e)
	}
	if source == nil {
		return Query{err: fmt.Errorf("query source is nil")}
	}
	return FromExpr(expr.NewConstant(source))
}

// FromExpr starts a query over an expression.
func FromExpr(e expr.Expr) Query {
	if !expr.IsSequence(e.Type()) {
		return Query{err: fmt.Errorf("query source of type %s is not a sequence", expr.TypeName(e.Type()))}
	}
	return Query{e: e}
}

// Const wraps v as a constant argument. Use it for string values where the
// operator also accepts a lambda.
func Const(v any) *expr.Constant { return expr.NewConstant(v) }

// Build returns the operator-call tree.
func (q Query) Build() (expr.Expr, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.e, nil
}

// MustBuild is Build for tests; it panics on error.
func (q Query) MustBuild() expr.Expr {
	e, err := q.Build()
	if err != nil {
		panic(err)
	}
	return e
}

// Type returns the static type of the query so far, or nil after an error.
func (q Query) Type() reflect.Type {
	if q.err != nil {
		return nil
	}
	return q.e.Type()
}

// Call appends src.op(args...). A string argument in a position where op
// takes a function is parsed as lambda text; expressions and queries are
// used as they are; any other value becomes a constant.
func (q Query) Call(op string, args ...any) Query {
	if q.err != nil {
		return q
	}
	o, ok := operators[op]
	if !ok {
		return Query{err: fmt.Errorf("unknown query operator %s", op)}
	}
	elem, ok := expr.ElementType(q.e.Type())
	if !ok {
		return Query{err: fmt.Errorf("%s called on %s, which is not a sequence", op, expr.TypeName(q.e.Type()))}
	}
	built := make([]expr.Expr, 0, len(args))
	for i, a := range args {
		e, err := argument(o, op, elem, i, a, built)
		if err != nil {
			return Query{err: err}
		}
		built = append(built, e)
	}
	c, err := call(q.e, op, built)
	if err != nil {
		return Query{err: err}
	}
	return Query{e: c}
}

func argument(o operator, op string, elem reflect.Type, i int, a any, prior []expr.Expr) (expr.Expr, error) {
	switch v := a.(type) {
	case Query:
		return v.Build()
	case expr.Expr:
		return v, nil
	case string:
		if _, ok := o.lambda(elem, i, 1, prior); !ok {
			return expr.NewConstant(v), nil
		}
		l, err := parseLambda(v, func(n int) ([]reflect.Type, error) {
			params, ok := o.lambda(elem, i, n, prior)
			if !ok || len(params) != n {
				return nil, fmt.Errorf("argument %d of %s does not take %d parameters", i, op, n)
			}
			return params, nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return l, nil
	case nil:
		return nil, fmt.Errorf("argument %d of %s is nil", i, op)
	}
	return expr.NewConstant(a), nil
}

func (q Query) Where(predicate string) Query { return q.Call("Where", predicate) }
func (q Query) Select(selector string) Query { return q.Call("Select", selector) }
func (q Query) OrderBy(key string) Query     { return q.Call("OrderBy", key) }
func (q Query) ThenBy(key string) Query      { return q.Call("ThenBy", key) }
func (q Query) Take(n int) Query             { return q.Call("Take", n) }
func (q Query) Skip(n int) Query             { return q.Call("Skip", n) }
func (q Query) Distinct() Query              { return q.Call("Distinct") }

func (q Query) OrderByDescending(key string) Query {
	return q.Call("OrderByDescending", key)
}

func (q Query) ThenByDescending(key string) Query {
	return q.Call("ThenByDescending", key)
}

// SelectMany flattens the collection selector; an optional result selector
// combines each item with each collection element.
func (q Query) SelectMany(collection string, result ...string) Query {
	return q.Call("SelectMany", lambdaArgs(collection, result)...)
}

// Join is an inner equi-join on outerKey == innerKey.
func (q Query) Join(inner any, outerKey, innerKey, result string) Query {
	return q.Call("Join", inner, outerKey, innerKey, result)
}

// GroupJoin is Join where the result selector receives all matching inner
// items as a slice.
func (q Query) GroupJoin(inner any, outerKey, innerKey, result string) Query {
	return q.Call("GroupJoin", inner, outerKey, innerKey, result)
}

// GroupBy groups by key; the optional lambdas are the element selector
// and/or the result selector.
func (q Query) GroupBy(key string, rest ...string) Query {
	return q.Call("GroupBy", lambdaArgs(key, rest)...)
}

// Cast converts every item to t.
func (q Query) Cast(t reflect.Type) Query { return q.typeCall("Cast", t) }

// OfType keeps the items assignable to t.
func (q Query) OfType(t reflect.Type) Query { return q.typeCall("OfType", t) }

func (q Query) typeCall(op string, t reflect.Type) Query {
	if q.err != nil {
		return q
	}
	c, err := typeCall(q.e, op, t)
	if err != nil {
		return Query{err: err}
	}
	return Query{e: c}
}

func lambdaArgs(first string, rest []string) []any {
	out := make([]any, 0, 1+len(rest))
	out = append(out, first)
	for _, s := range rest {
		out = append(out, s)
	}
	return out
}
