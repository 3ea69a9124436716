package exec

import (
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// env evaluates expressions against one row. It implements queryir.Env, so
// result operators evaluate their held expressions through it.
type env struct {
	x     *Executor
	frame *frame
}

var _ queryir.Env = env{}

// Evaluate evaluates a closed expression, one that references no query
// source and no unbound parameter.
func Evaluate(x expr.Expr) (any, error) {
	return env{x: New()}.Eval(x)
}

// Eval evaluates e in the current row.
func (e env) Eval(x expr.Expr) (any, error) {
	switch n := x.(type) {
	case *expr.Constant:
		return n.Value, nil
	case *expr.Parameter:
		return e.frame.parameter(n)
	case *queryir.QuerySourceRef:
		return e.frame.source(n.Source)
	case *queryir.SubQuery:
		return e.x.subQuery(n, e.frame)
	case *expr.Member:
		obj, err := e.Eval(n.Object)
		if err != nil {
			return nil, err
		}
		return member(obj, n)
	case *expr.Lambda:
		return e.Func(n)
	case *expr.New:
		return e.construct(n)
	case *expr.Binary:
		return e.binary(n)
	case *expr.Unary:
		v, err := e.Eval(n.Operand)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case expr.Not:
			b, ok := v.(bool)
			if !ok {
				return nil, evalError(n, "operand of ! is %s, not Bool", describe(v))
			}
			return !b, nil
		case expr.Negate:
			return negate(v, n.Type())
		default:
			return convert(v, n.Type())
		}
	case *expr.TypeIs:
		v, err := e.Eval(n.Operand)
		if err != nil {
			return nil, err
		}
		return v != nil && reflect.TypeOf(v).AssignableTo(n.Target), nil
	case *expr.Conditional:
		test, err := e.evalBool(n.Test)
		if err != nil {
			return nil, err
		}
		if test {
			return e.Eval(n.IfTrue)
		}
		return e.Eval(n.IfFalse)
	case *expr.Call:
		return e.call(n)
	case nil:
		return nil, queryir.NewExecutionError("", "cannot evaluate a missing expression")
	}
	return nil, evalError(x, "unsupported expression node %T", x)
}

// Func compiles l into a function whose parameters are bound on top of the
// current row.
func (e env) Func(l *expr.Lambda) (queryir.Func, error) {
	return func(args ...any) (any, error) {
		if len(args) != len(l.Params) {
			return nil, evalError(l, "lambda takes %d arguments, got %d", len(l.Params), len(args))
		}
		f := e.frame
		for i, p := range l.Params {
			f = f.bind(p, args[i])
		}
		return env{x: e.x, frame: f}.Eval(l.Body)
	}, nil
}

func (e env) evalBool(x expr.Expr) (bool, error) {
	v, err := e.Eval(x)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, evalError(x, "expected Bool, got %s", describe(v))
	}
	return b, nil
}

func (e env) construct(n *expr.New) (any, error) {
	out := reflect.New(n.Type()).Elem()
	for i, name := range n.Members {
		v, err := e.Eval(n.Args[i])
		if err != nil {
			return nil, err
		}
		field := out.FieldByName(name)
		rv, err := queryir.ValueOf(v, field.Type())
		if err != nil {
			return nil, evalError(n, "member %s: %v", name, err)
		}
		field.Set(rv)
	}
	return out.Interface(), nil
}

func (e env) call(n *expr.Call) (any, error) {
	m, ok := ScalarMethods[n.Signature()]
	if !ok || n.Source.Type() != m.Receiver {
		return nil, evalError(n, "operator %s cannot be evaluated in memory", n.Signature())
	}
	recv, err := e.Eval(n.Source)
	if err != nil {
		return nil, err
	}
	recv, ok = deref(recv)
	if !ok {
		return nil, evalError(n, "%s called on null", n.Op)
	}
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		if args[i], err = e.Eval(a); err != nil {
			return nil, err
		}
	}
	return m.Invoke(recv, args)
}

func member(obj any, n *expr.Member) (any, error) {
	rv := reflect.ValueOf(obj)
	if !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return nil, evalError(n, "null reference reading %s", n.Name)
	}
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, evalError(n, "cannot read %s from %s", n.Name, describe(obj))
	}
	f := rv.FieldByName(n.Name)
	if !f.IsValid() || !f.CanInterface() {
		return nil, evalError(n, "%s has no readable field %s", describe(obj), n.Name)
	}
	return f.Interface(), nil
}

// convert implements Convert: nullable wrapping and unwrapping, numeric
// conversion and assignment to interface types.
func convert(v any, t reflect.Type) (any, error) {
	if t.Kind() == reflect.Interface {
		return v, nil
	}
	inner, ok := deref(v)
	if !ok {
		if expr.IsNullable(t) {
			return queryir.Zero(t), nil
		}
		return nil, queryir.NewExecutionError("Convert", "cannot convert null to %s", expr.TypeName(t))
	}
	if reflect.TypeOf(v) == t {
		return v, nil
	}
	if t.Kind() == reflect.Pointer {
		rv, err := queryir.ValueOf(inner, t.Elem())
		if err != nil {
			return nil, queryir.NewExecutionError("Convert", "%v", err)
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(rv)
		return p.Interface(), nil
	}
	rv, err := queryir.ValueOf(inner, t)
	if err != nil {
		return nil, queryir.NewExecutionError("Convert", "%v", err)
	}
	return rv.Interface(), nil
}

// deref unwraps a nullable value. ok is false for nil.
func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		return rv.Elem().Interface(), true
	}
	return v, true
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	return expr.TypeName(reflect.TypeOf(v))
}

func evalError(x expr.Expr, format string, args ...any) error {
	err := queryir.NewExecutionError("", format, args...)
	if x != nil {
		err.Expression = expr.Format(x)
	}
	return err
}
