package queryir

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
)

func TestReverseResolve_DirectReference(t *testing.T) {
	_, from := intModel()

	l := ReverseResolve(NewQuerySourceRef(from), gt(NewQuerySourceRef(from), 2))

	assert.Equal(t, "item => (item > 2)", expr.Format(l))
	assert.Equal(t, int32Type, l.Params[0].Type())
}

func TestReverseResolve_ThroughTransparentIdentifier(t *testing.T) {
	_, a := intModel()
	b := NewMainFromClause("b", reflect.TypeFor[string](), expr.NewConstant([]string{"x"}))
	item := expr.TransparentIdentifier([]string{"a", "b"}, NewQuerySourceRef(a), NewQuerySourceRef(b))

	l := ReverseResolve(item, expr.NewBinary(expr.Equal, NewQuerySourceRef(b), expr.NewConstant("x")))

	assert.Equal(t, `item => (item.B == "x")`, expr.Format(l))
}

func TestReverseResolve_LeavesOuterReferences(t *testing.T) {
	_, from := intModel()
	outer := NewMainFromClause("o", int32Type, expr.NewConstant([]int32{1}))

	l := ReverseResolve(NewQuerySourceRef(from),
		expr.NewBinary(expr.Equal, NewQuerySourceRef(from), NewQuerySourceRef(outer)))

	assert.Equal(t, "item => (item == [o])", expr.Format(l))
}

func TestReverseResolveLambda_InsertsItemParameter(t *testing.T) {
	_, from := intModel()

	l, err := ReverseResolveLambda(NewQuerySourceRef(from), sumLambda(from), 1)
	require.NoError(t, err)
	assert.Equal(t, "(acc, item) => (acc + item)", expr.Format(l))

	_, err = ReverseResolveLambda(NewQuerySourceRef(from), sumLambda(from), 3)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestReverseResolve_ComputedConstructorMember(t *testing.T) {
	_, from := intModel()
	doubled := func() expr.Expr {
		return expr.NewBinary(expr.Multiply, NewQuerySourceRef(from), expr.NewConstant(int32(2)))
	}
	item := expr.TransparentIdentifier([]string{"a"}, doubled())

	l := ReverseResolve(item, gt(doubled(), 4))

	assert.Equal(t, "item => (item.A > 4)", expr.Format(l))
}

func TestReverseResolve_NestedConstructorMember(t *testing.T) {
	_, from := intModel()
	negated := func() expr.Expr { return expr.NewNegate(NewQuerySourceRef(from)) }
	item := expr.TransparentIdentifier([]string{"n"}, expr.TransparentIdentifier([]string{"a"}, negated()))

	l := ReverseResolve(item, gt(negated(), 0))

	assert.Equal(t, "item => (item.N.A > 0)", expr.Format(l))
}

func TestReverseResolve_ConstantsStayConstants(t *testing.T) {
	_, from := intModel()
	item := expr.TransparentIdentifier([]string{"k", "v"}, expr.NewConstant(int32(2)), NewQuerySourceRef(from))

	l := ReverseResolve(item, gt(NewQuerySourceRef(from), 2))

	assert.Equal(t, "item => (item.V > 2)", expr.Format(l))
}
