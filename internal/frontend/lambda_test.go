package frontend

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/testutil"
)

var (
	customer = testutil.CustomerType
	order    = testutil.OrderType
	int32T   = reflect.TypeFor[int32]()
)

func TestParseLambda(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		params []reflect.Type
		want   string
	}{
		{"comparison", "c => c.Age > 30", []reflect.Type{customer}, "c => (c.Age > 30)"},
		{"literal adapts to nullable float", "c => c.Score > 4", []reflect.Type{customer}, "c => (c.Score > 4)"},
		{"null literal", "c => c.Score == null", []reflect.Type{customer}, "c => (c.Score == null)"},
		{"mixed arithmetic promotes", "o => o.Amount * o.Quantity", []reflect.Type{order}, "o => (o.Amount * Convert(o.Quantity, Float64))"},
		{"precedence", "c => c.Name.StartsWith(\"A\") && c.Age < 40 || c.City == 'Paris'", []reflect.Type{customer},
			`c => ((c.Name.StartsWith("A") && (c.Age < 40)) || (c.City == "Paris"))`},
		{"parentheses", "c => (c.Age + 1) * 2", []reflect.Type{customer}, "c => ((c.Age + 1) * 2)"},
		{"negative literal", "x => x - -1", []reflect.Type{int32T}, "x => (x - -1)"},
		{"negate", "c => -c.Age", []reflect.Type{customer}, "c => -c.Age"},
		{"not", "c => !(c.Age > 30)", []reflect.Type{customer}, "c => !(c.Age > 30)"},
		{"conversion", "c => int64(c.Age) * 2", []reflect.Type{customer}, "c => (Convert(c.Age, Int64) * 2)"},
		{"conditional", `c => c.Age > 30 ? "old" : "young"`, []reflect.Type{customer}, `c => IIF((c.Age > 30), "old", "young")`},
		{"two parameters", "(acc, x) => acc + x", []reflect.Type{int32T, int32T}, "(acc, x) => (acc + x)"},
		{"nested operator", "c => c.Orders.Where(o => o.Amount > 20).Count()", []reflect.Type{customer},
			"c => c.Orders.Where(o => (o.Amount > 20)).Count()"},
		{"correlated inner lambda", "c => c.Orders.Any(o => o.CustomerID == c.ID)", []reflect.Type{customer},
			"c => c.Orders.Any(o => (o.CustomerID == c.ID))"},
		{"sequence contains", `c => c.Orders.Select(o => o.Product).Contains("Gizmo")`, []reflect.Type{customer},
			`c => c.Orders.Select(o => o.Product).Contains("Gizmo")`},
		{"anonymous object", "c => new { c.Name, Total = c.Orders.Sum(o => o.Amount) }", []reflect.Type{customer},
			"c => new {Name: String, Total: Float64}(Name = c.Name, Total = c.Orders.Sum(o => o.Amount))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ParseLambda(tt.text, tt.params...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.String())
		})
	}
}

func TestParseLambda_Types(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		params []reflect.Type
		want   reflect.Type
	}{
		{"comparison is bool", "c => c.Age > 30", []reflect.Type{customer}, boolType},
		{"int literal defaults to int32", "c => 7", []reflect.Type{customer}, int32T},
		{"big int literal is int64", "c => 3000000000", []reflect.Type{customer}, int64Type},
		{"float literal", "c => 1.5", []reflect.Type{customer}, reflect.TypeFor[float64]()},
		{"count is int", "c => c.Orders.Count()", []reflect.Type{customer}, intType},
		{"long count", "c => c.Orders.LongCount()", []reflect.Type{customer}, int64Type},
		{"average of ints is float", "c => c.Orders.Average(o => o.Quantity)", []reflect.Type{customer}, reflect.TypeFor[float64]()},
		{"nullable plus value stays nullable", "c => c.Score + 1", []reflect.Type{customer}, reflect.TypeFor[*float64]()},
		{"select is a slice", "c => c.Orders.Select(o => o.Product)", []reflect.Type{customer}, reflect.TypeFor[[]string]()},
		{"first is the item", "c => c.Orders.First()", []reflect.Type{customer}, order},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := ParseLambda(tt.text, tt.params...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Body.Type())
		})
	}
}

func TestParseLambda_LiteralAdaptsToOperand(t *testing.T) {
	l, err := ParseLambda("c => c.Score > 4", customer)
	require.NoError(t, err)

	b, ok := l.Body.(*expr.Binary)
	require.True(t, ok)
	c, ok := b.Right.(*expr.Constant)
	require.True(t, ok)
	assert.Equal(t, 4.0, c.Value)

	l, err = ParseLambda("c => c.Score == null", customer)
	require.NoError(t, err)
	null := l.Body.(*expr.Binary).Right
	assert.Equal(t, reflect.TypeFor[*float64](), null.Type())
}

func TestParseLambda_Errors(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		params  []reflect.Type
		message string
	}{
		{"unknown member", "c => c.Height", []reflect.Type{customer}, "Customer has no member Height"},
		{"unknown identifier", "c => d.Age", []reflect.Type{customer}, "unknown identifier d"},
		{"type mismatch", `c => c.Age > "x"`, []reflect.Type{customer}, "operator > is not defined on Int32 and String"},
		{"bool operand", "c => !c.Age", []reflect.Type{customer}, "operand of ! must be Bool"},
		{"logical operand", "c => c.Age && true", []reflect.Type{customer}, "requires Bool operands"},
		{"unknown method", "c => c.Name.Shout()", []reflect.Type{customer}, "String has no method Shout"},
		{"unknown operator", "c => c.Orders.Frobnicate()", []reflect.Type{customer}, "unknown query operator Frobnicate"},
		{"wrong arity", "c => c.Orders.Take()", []reflect.Type{customer}, "Take takes [1] arguments, got 0"},
		{"dangling operator", "c => c.Age &&", []reflect.Type{customer}, "unexpected end of input"},
		{"trailing tokens", "c => c.Age > 30 )", []reflect.Type{customer}, "unexpected ) after lambda body"},
		{"parameter count", "(a, b) => a", []reflect.Type{customer}, "lambda takes 2 parameters, expected 1"},
		{"duplicate parameter", "(a, a) => a", []reflect.Type{int32T, int32T}, "duplicate parameter a"},
		{"branch types", `c => c.Age > 30 ? 1 : "x"`, []reflect.Type{customer}, "branches have different types"},
		{"unterminated string", `c => c.Name == "open`, []reflect.Type{customer}, "unterminated string"},
		{"missing arrow", "c c.Age", []reflect.Type{customer}, "expected =>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLambda(tt.text, tt.params...)
			require.Error(t, err)

			var le *LambdaError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.text, le.Text)
			assert.Positive(t, le.Column)
			assert.Contains(t, le.Message, tt.message)
		})
	}
}

func TestMustLambda_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLambda("c => c.Nope", customer) })
	assert.NotPanics(t, func() { MustLambda("c => c.Name", customer) })
}
