package parsing

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
	"github.com/roach88/querymodel/internal/testutil"
)

type customerOrder struct {
	C testutil.Customer
	O testutil.Order
}

func TestInlineTransparentIdentifiers(t *testing.T) {
	c := queryir.NewMainFromClause("c", testutil.CustomerType, expr.NewConstant(testutil.Customers()))
	o := &queryir.AdditionalFromClause{Name: "o", Type: testutil.OrderType, FromExpression: expr.NewMember(queryir.NewQuerySourceRef(c), "Orders")}
	pair := expr.NewObject(reflect.TypeFor[customerOrder](), []string{"c", "o"},
		queryir.NewQuerySourceRef(c), queryir.NewQuerySourceRef(o))

	tests := []struct {
		name string
		e    expr.Expr
		want string
	}{
		{"member of member", expr.NewMember(expr.NewMember(pair, "O"), "Amount"), "[o].Amount"},
		{"whole member", expr.NewMember(pair, "C"), "[c]"},
		{"nested in binary", expr.NewBinary(expr.GreaterThan,
			expr.NewMember(expr.NewMember(pair, "C"), "Age"), expr.NewConstant(int32(30))), "([c].Age > 30)"},
		{"no constructor", expr.NewMember(queryir.NewQuerySourceRef(o), "Product"), "[o].Product"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InlineTransparentIdentifiers(tt.e).String())
		})
	}
}

func TestFindSubQueries(t *testing.T) {
	c := queryir.NewMainFromClause("c", testutil.CustomerType, expr.NewConstant(testutil.Customers()))
	orders := expr.NewMember(queryir.NewQuerySourceRef(c), "Orders")
	seq := reflect.TypeFor[[]testutil.Order]()

	t.Run("registered call becomes sub-query", func(t *testing.T) {
		count := expr.NewCall(reflect.TypeFor[int](), orders, "Count")

		got, err := FindSubQueries(expr.NewBinary(expr.GreaterThan, count, expr.NewConstant(1)), NewBuildContext(DefaultRegistry()))

		require.NoError(t, err)
		assert.Equal(t, "({from Order <generated>_2 in [c].Orders select [<generated>_2] => Count()} > 1)", got.String())
	})
	t.Run("outermost call wins", func(t *testing.T) {
		o := expr.NewParameter("o", testutil.OrderType)
		where := expr.NewCall(seq, orders, "Where",
			expr.NewLambda(expr.NewBinary(expr.GreaterThan, expr.NewMember(o, "Amount"), expr.NewConstant(20.0)), o))
		count := expr.NewCall(reflect.TypeFor[int](), where, "Count")

		got, err := FindSubQueries(count, NewBuildContext(DefaultRegistry()))

		require.NoError(t, err)
		sq, ok := got.(*queryir.SubQuery)
		require.True(t, ok)
		assert.Equal(t, "from Order o in [c].Orders where ([o].Amount > 20) select [o] => Count()", sq.Model.String())
	})
	t.Run("scalar calls are left alone", func(t *testing.T) {
		e := expr.NewCall(reflect.TypeFor[bool](), expr.NewMember(queryir.NewQuerySourceRef(c), "Name"), "StartsWith",
			expr.NewConstant("A"))

		got, err := FindSubQueries(e, NewBuildContext(DefaultRegistry()))

		require.NoError(t, err)
		assert.Same(t, e, got)
	})
	t.Run("unregistered calls are left alone", func(t *testing.T) {
		e := expr.NewCall(seq, orders, "Shuffle")

		got, err := FindSubQueries(e, NewBuildContext(DefaultRegistry()))

		require.NoError(t, err)
		assert.Same(t, e, got)
	})
	t.Run("sub-query errors propagate", func(t *testing.T) {
		o := expr.NewParameter("o", testutil.OrderType)
		e := expr.NewCall(seq, orders, "ThenBy", expr.NewLambda(expr.NewMember(o, "ID"), o))

		_, err := FindSubQueries(e, NewBuildContext(DefaultRegistry()))

		require.Error(t, err)
		assert.True(t, queryir.IsConfigurationError(err))
	})
}
