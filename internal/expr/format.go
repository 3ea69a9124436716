package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Format renders e in canonical text form.
//
//	constant     3, "abc", true, null, value([]Int32)
//	parameter    name
//	member       obj.Name
//	lambda       x => body, (a, b) => body
//	binary       (left op right)
//	unary        !x, -x, Convert(x, Int32)
//	type test    (x is Int32)
//	conditional  IIF(test, a, b)
//	new          new T(A = a, B = b)
//	call         source.Op(args)
//
// Extension nodes render through their own String method.
func Format(e Expr) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *Constant:
		return formatConstant(n)
	case *Parameter:
		return n.Name
	case *Member:
		return Format(n.Object) + "." + n.Name
	case *Lambda:
		return formatLambda(n)
	case *New:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = n.Members[i] + " = " + Format(a)
		}
		return "new " + TypeName(n.typ) + "(" + strings.Join(parts, ", ") + ")"
	case *Call:
		return Format(n.Source) + "." + n.Op + "(" + joinExprs(n.Args) + ")"
	case *Binary:
		return "(" + Format(n.Left) + " " + n.Op.String() + " " + Format(n.Right) + ")"
	case *Unary:
		switch n.Op {
		case Not:
			return "!" + Format(n.Operand)
		case Negate:
			return "-" + Format(n.Operand)
		default:
			return "Convert(" + Format(n.Operand) + ", " + TypeName(n.typ) + ")"
		}
	case *TypeIs:
		return "(" + Format(n.Operand) + " is " + TypeName(n.Target) + ")"
	case *Conditional:
		return "IIF(" + Format(n.Test) + ", " + Format(n.IfTrue) + ", " + Format(n.IfFalse) + ")"
	}
	return e.String()
}

func formatLambda(l *Lambda) string {
	if len(l.Params) == 1 {
		return l.Params[0].Name + " => " + Format(l.Body)
	}
	names := make([]string, len(l.Params))
	for i, p := range l.Params {
		names[i] = p.Name
	}
	return "(" + strings.Join(names, ", ") + ") => " + Format(l.Body)
}

func joinExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, a := range es {
		parts[i] = Format(a)
	}
	return strings.Join(parts, ", ")
}

// FormatValue renders a runtime value the way constants are rendered.
func FormatValue(v any, t reflect.Type) string {
	if v == nil {
		return "null"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "null"
		}
		if k := rv.Elem().Kind(); k != reflect.Struct {
			return FormatValue(rv.Elem().Interface(), rv.Elem().Type())
		}
	}
	switch k := rv.Kind(); {
	case k == reflect.String:
		return strconv.Quote(rv.String())
	case k == reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case IsIntegerKind(k):
		return strconv.FormatInt(rv.Int(), 10)
	case IsUnsignedKind(k):
		return strconv.FormatUint(rv.Uint(), 10)
	case IsFloatKind(k):
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64)
	}
	if t == nil {
		t = rv.Type()
	}
	return fmt.Sprintf("value(%s)", TypeName(t))
}

func formatConstant(c *Constant) string {
	return FormatValue(c.Value, c.typ)
}
