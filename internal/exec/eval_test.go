package exec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

func c(v any) *expr.Constant { return expr.NewConstant(v) }

func nullInt32() *expr.Constant {
	return expr.NewTypedConstant((*int32)(nil), reflect.TypeFor[*int32]())
}

func int32Ptr(v int32) *int32 { return &v }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		e    expr.Expr
		want any
	}{
		{"int add keeps type", expr.NewBinary(expr.Add, c(int32(2)), c(int32(3))), int32(5)},
		{"float divide", expr.NewBinary(expr.Divide, c(7.0), c(2.0)), 3.5},
		{"integer divide truncates", expr.NewBinary(expr.Divide, c(int32(7)), c(int32(2))), int32(3)},
		{"modulo", expr.NewBinary(expr.Modulo, c(int32(7)), c(int32(4))), int32(3)},
		{"string concat", expr.NewBinary(expr.Add, c("ab"), c("cd")), "abcd"},
		{"nullable operand yields null", expr.NewBinary(expr.Add, nullInt32(), c(int32(1))), (*int32)(nil)},
		{"nullable add", expr.NewBinary(expr.Add, expr.NewTypedConstant(int32Ptr(4), reflect.TypeFor[*int32]()), c(int32(1))), int32Ptr(5)},
		{"null is not greater", expr.NewBinary(expr.GreaterThan, nullInt32(), c(int32(1))), false},
		{"null is not less", expr.NewBinary(expr.LessThan, nullInt32(), c(int32(1))), false},
		{"null equals null", expr.NewBinary(expr.Equal, nullInt32(), nullInt32()), true},
		{"null differs from value", expr.NewBinary(expr.NotEqual, nullInt32(), c(int32(1))), true},
		{"mixed numeric compare", expr.NewBinary(expr.LessThan, c(int32(2)), c(2.5)), true},
		{"and short-circuits", expr.NewBinary(expr.AndAlso, c(false), expr.NewBinary(expr.Equal,
			expr.NewBinary(expr.Divide, c(1), c(0)), c(0))), false},
		{"or", expr.NewBinary(expr.OrElse, c(false), c(true)), true},
		{"not", expr.NewNot(c(false)), true},
		{"negate", expr.NewNegate(c(int32(4))), int32(-4)},
		{"convert widens", expr.NewConvert(c(int32(3)), reflect.TypeFor[float64]()), 3.0},
		{"convert to nullable", expr.NewConvert(c(int32(3)), reflect.TypeFor[*int32]()), int32Ptr(3)},
		{"convert null to nullable", expr.NewConvert(nullInt32(), reflect.TypeFor[*float64]()), (*float64)(nil)},
		{"conditional", expr.NewConditional(c(true), c("yes"), c("no")), "yes"},
		{"type is", expr.NewTypeIs(expr.NewTypedConstant("s", reflect.TypeFor[any]()), reflect.TypeFor[string]()), true},
		{"type is null", expr.NewTypeIs(expr.NewTypedConstant(nil, reflect.TypeFor[any]()), reflect.TypeFor[string]()), false},
		{"scalar method", expr.NewCall(reflect.TypeFor[string](), c("abc"), "ToUpper"), "ABC"},
		{"contains on string", expr.NewCall(reflect.TypeFor[bool](), c("widget"), "Contains", c("dg")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.e)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	p := expr.NewParameter("x", reflect.TypeFor[int32]())
	tests := []struct {
		name    string
		e       expr.Expr
		message string
	}{
		{"integer division by zero", expr.NewBinary(expr.Divide, c(int32(1)), c(int32(0))), "integer division by zero"},
		{"non-nullable null arithmetic", expr.NewBinary(expr.Add, c(1), expr.NewTypedConstant(nil, reflect.TypeFor[any]())), "null operand"},
		{"string subtraction", expr.NewBinary(expr.Subtract, c("a"), c("b")), "not defined on String"},
		{"unbound parameter", expr.NewBinary(expr.Add, p, c(int32(1))), `parameter "x" is not bound`},
		{"convert null to value", expr.NewConvert(nullInt32(), reflect.TypeFor[int32]()), "cannot convert null to Int32"},
		{"method on nullable receiver", expr.NewCall(reflect.TypeFor[string](), expr.NewTypedConstant((*string)(nil), reflect.TypeFor[*string]()), "ToUpper"),
			"cannot be evaluated in memory"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(tt.e)
			require.Error(t, err)
			assert.True(t, queryir.IsExecutionError(err))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestEvaluate_ErrorCarriesExpression(t *testing.T) {
	_, err := Evaluate(expr.NewBinary(expr.Divide, c(int32(1)), c(int32(0))))

	var qe *queryir.Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "(1 / 0)", qe.Expression)
}

func TestEvaluate_LambdaBecomesFunc(t *testing.T) {
	x := expr.NewParameter("x", reflect.TypeFor[int32]())
	l := expr.NewLambda(expr.NewBinary(expr.Multiply, x, c(int32(2))), x)

	v, err := Evaluate(l)
	require.NoError(t, err)
	fn, ok := v.(queryir.Func)
	require.True(t, ok)

	got, err := fn(int32(21))
	require.NoError(t, err)
	assert.Equal(t, int32(42), got)

	_, err = fn()
	assert.ErrorContains(t, err, "lambda takes 1 arguments, got 0")
}

func TestEvaluate_BoundParameter(t *testing.T) {
	p := expr.NewParameter("limit", reflect.TypeFor[int32]())
	x := New()
	x.Bind(p, int32(10))

	v, err := env{x: x, frame: x.params}.Eval(expr.NewBinary(expr.Add, p, c(int32(1))))

	require.NoError(t, err)
	assert.Equal(t, int32(11), v)
}
