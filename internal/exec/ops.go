package exec

import (
	"errors"
	"math"
	"reflect"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

func (e env) binary(n *expr.Binary) (any, error) {
	if n.Op.IsLogical() {
		l, err := e.evalBool(n.Left)
		if err != nil {
			return nil, err
		}
		if (n.Op == expr.AndAlso && !l) || (n.Op == expr.OrElse && l) {
			return l, nil
		}
		return e.evalBool(n.Right)
	}
	l, err := e.Eval(n.Left)
	if err != nil {
		return nil, err
	}
	r, err := e.Eval(n.Right)
	if err != nil {
		return nil, err
	}
	v, err := binaryOp(n.Op, l, r, n.Type())
	if err != nil {
		var qe *queryir.Error
		if errors.As(err, &qe) && qe.Expression == "" {
			qe.Expression = expr.Format(n)
		}
		return nil, err
	}
	return v, nil
}

// binaryOp applies a non-logical binary operator. t is the result type.
func binaryOp(op expr.BinaryOp, l, r any, t reflect.Type) (any, error) {
	switch op {
	case expr.Equal:
		return queryir.Equal(l, r), nil
	case expr.NotEqual:
		return !queryir.Equal(l, r), nil
	case expr.LessThan, expr.LessThanOrEqual, expr.GreaterThan, expr.GreaterThanOrEqual:
		if _, ok := deref(l); !ok {
			return false, nil
		}
		if _, ok := deref(r); !ok {
			return false, nil
		}
		c, err := queryir.Compare(l, r)
		if err != nil {
			return nil, queryir.NewExecutionError(op.String(), "%v", err)
		}
		switch op {
		case expr.LessThan:
			return c < 0, nil
		case expr.LessThanOrEqual:
			return c <= 0, nil
		case expr.GreaterThan:
			return c > 0, nil
		}
		return c >= 0, nil
	}
	return arithmetic(op, l, r, t)
}

func arithmetic(op expr.BinaryOp, l, r any, t reflect.Type) (any, error) {
	lv, lok := deref(l)
	rv, rok := deref(r)
	if !lok || !rok {
		if expr.IsNullable(t) {
			return queryir.Zero(t), nil
		}
		return nil, queryir.NewExecutionError(op.String(), "null operand")
	}
	a, b := reflect.ValueOf(lv), reflect.ValueOf(rv)
	ka, kb := a.Kind(), b.Kind()

	var res any
	switch {
	case ka == reflect.String && kb == reflect.String:
		if op != expr.Add {
			return nil, queryir.NewExecutionError(op.String(), "operator is not defined on String")
		}
		res = a.String() + b.String()
	case expr.IsIntegerKind(ka) && expr.IsIntegerKind(kb):
		x, y := a.Int(), b.Int()
		if (op == expr.Divide || op == expr.Modulo) && y == 0 {
			return nil, queryir.NewExecutionError(op.String(), "integer division by zero")
		}
		switch op {
		case expr.Add:
			res = x + y
		case expr.Subtract:
			res = x - y
		case expr.Multiply:
			res = x * y
		case expr.Divide:
			res = x / y
		case expr.Modulo:
			res = x % y
		}
	case expr.IsUnsignedKind(ka) && expr.IsUnsignedKind(kb):
		x, y := a.Uint(), b.Uint()
		if (op == expr.Divide || op == expr.Modulo) && y == 0 {
			return nil, queryir.NewExecutionError(op.String(), "integer division by zero")
		}
		switch op {
		case expr.Add:
			res = x + y
		case expr.Subtract:
			res = x - y
		case expr.Multiply:
			res = x * y
		case expr.Divide:
			res = x / y
		case expr.Modulo:
			res = x % y
		}
	case isNumber(ka) && isNumber(kb):
		x, y := toFloat(a), toFloat(b)
		switch op {
		case expr.Add:
			res = x + y
		case expr.Subtract:
			res = x - y
		case expr.Multiply:
			res = x * y
		case expr.Divide:
			res = x / y
		case expr.Modulo:
			res = math.Mod(x, y)
		}
	default:
		return nil, queryir.NewExecutionError(op.String(), "operator is not defined on %s and %s",
			describe(lv), describe(rv))
	}
	return conform(res, t), nil
}

func negate(v any, t reflect.Type) (any, error) {
	inner, ok := deref(v)
	if !ok {
		if expr.IsNullable(t) {
			return queryir.Zero(t), nil
		}
		return nil, queryir.NewExecutionError("-", "null operand")
	}
	rv := reflect.ValueOf(inner)
	switch {
	case expr.IsIntegerKind(rv.Kind()):
		return conform(-rv.Int(), t), nil
	case expr.IsFloatKind(rv.Kind()):
		return conform(-rv.Float(), t), nil
	}
	return nil, queryir.NewExecutionError("-", "cannot negate %s", describe(inner))
}

// conform converts a computed int64, uint64, float64 or string to t,
// allocating when t is nullable.
func conform(v any, t reflect.Type) any {
	if t.Kind() == reflect.Interface {
		return v
	}
	base := t
	if t.Kind() == reflect.Pointer {
		base = t.Elem()
	}
	rv := reflect.ValueOf(v).Convert(base)
	if t.Kind() == reflect.Pointer {
		p := reflect.New(base)
		p.Elem().Set(rv)
		return p.Interface()
	}
	return rv.Interface()
}

func isNumber(k reflect.Kind) bool {
	return expr.IsIntegerKind(k) || expr.IsUnsignedKind(k) || expr.IsFloatKind(k)
}

func toFloat(v reflect.Value) float64 {
	switch {
	case expr.IsIntegerKind(v.Kind()):
		return float64(v.Int())
	case expr.IsUnsignedKind(v.Kind()):
		return float64(v.Uint())
	}
	return v.Float()
}

// ScalarMethod is a method callable on a non-sequence value inside a lambda,
// such as c.Name.StartsWith("A").
type ScalarMethod struct {
	Receiver reflect.Type
	Params   []reflect.Type
	Result   reflect.Type
	Invoke   func(recv any, args []any) (any, error)
}

var (
	stringType = reflect.TypeFor[string]()
	boolType   = reflect.TypeFor[bool]()
)

func stringPredicate(fn func(s, arg string) bool) func(any, []any) (any, error) {
	return func(recv any, args []any) (any, error) {
		s, _ := recv.(string)
		arg, ok := args[0].(string)
		if !ok {
			return nil, queryir.NewExecutionError("", "string argument expected, got %s", describe(args[0]))
		}
		return fn(s, arg), nil
	}
}

func stringMap(fn func(string) string) func(any, []any) (any, error) {
	return func(recv any, _ []any) (any, error) {
		s, _ := recv.(string)
		return fn(s), nil
	}
}

// ScalarMethods lists the scalar methods by signature (Name/arity).
var ScalarMethods = map[string]ScalarMethod{
	"Contains/1": {Receiver: stringType, Params: []reflect.Type{stringType}, Result: boolType,
		Invoke: stringPredicate(strings.Contains)},
	"StartsWith/1": {Receiver: stringType, Params: []reflect.Type{stringType}, Result: boolType,
		Invoke: stringPredicate(strings.HasPrefix)},
	"EndsWith/1": {Receiver: stringType, Params: []reflect.Type{stringType}, Result: boolType,
		Invoke: stringPredicate(strings.HasSuffix)},
	"ToUpper/0": {Receiver: stringType, Result: stringType, Invoke: stringMap(strings.ToUpper)},
	"ToLower/0": {Receiver: stringType, Result: stringType, Invoke: stringMap(strings.ToLower)},
	"Trim/0":    {Receiver: stringType, Result: stringType, Invoke: stringMap(strings.TrimSpace)},
}
