package queryir

import (
	"fmt"
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
)

var (
	int32Type = reflect.TypeFor[int32]()
	int32Seq  = reflect.TypeFor[[]int32]()
)

// intModel builds: from Int32 i in value([]Int32) select [i]
func intModel(values ...int32) (*QueryModel, *MainFromClause) {
	from := NewMainFromClause("i", int32Type, expr.NewConstant(values))
	return NewQueryModel(from, &SelectClause{Selector: NewQuerySourceRef(from)}), from
}

// intInput is the projected sequence of intModel, as the executor would hand
// it to the first result operator.
func intInput(from *MainFromClause, values ...any) StreamedSequence {
	return StreamedSequence{
		DataInfo: StreamedSequenceInfo{Type: int32Seq, ItemExpression: NewQuerySourceRef(from)},
		Seq:      FromValues(values),
	}
}

func gt(l expr.Expr, v int32) expr.Expr {
	return expr.NewBinary(expr.GreaterThan, l, expr.NewConstant(v))
}

// testEnv is a minimal evaluator covering constants, parameters and integer
// arithmetic, enough to drive result operators without the executor.
type testEnv struct {
	vars map[*expr.Parameter]any
}

func (e testEnv) Eval(x expr.Expr) (any, error) {
	switch n := x.(type) {
	case *expr.Constant:
		return n.Value, nil
	case *expr.Parameter:
		v, ok := e.vars[n]
		if !ok {
			return nil, fmt.Errorf("unbound parameter %s", n.Name)
		}
		return v, nil
	case *expr.Binary:
		l, err := e.Eval(n.Left)
		if err != nil {
			return nil, err
		}
		r, err := e.Eval(n.Right)
		if err != nil {
			return nil, err
		}
		a, b := reflect.ValueOf(l).Int(), reflect.ValueOf(r).Int()
		switch n.Op {
		case expr.Add:
			return reflect.ValueOf(a + b).Convert(n.Type()).Interface(), nil
		case expr.Multiply:
			return reflect.ValueOf(a * b).Convert(n.Type()).Interface(), nil
		case expr.GreaterThan:
			return a > b, nil
		}
	}
	return nil, fmt.Errorf("testEnv cannot evaluate %s", x)
}

func (e testEnv) Func(l *expr.Lambda) (Func, error) {
	return func(args ...any) (any, error) {
		vars := make(map[*expr.Parameter]any, len(e.vars)+len(args))
		for k, v := range e.vars {
			vars[k] = v
		}
		for i, p := range l.Params {
			vars[p] = args[i]
		}
		return testEnv{vars: vars}.Eval(l.Body)
	}, nil
}
