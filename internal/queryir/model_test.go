package queryir

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
)

func TestQueryModel_String(t *testing.T) {
	m, from := intModel(1, 2, 3, 4, 5)
	require.NoError(t, m.AddBodyClause(&WhereClause{Predicate: gt(NewQuerySourceRef(from), 2)}))
	take, err := NewTake(expr.NewConstant(3))
	require.NoError(t, err)
	m.AddResultOperator(take)

	assert.Equal(t, "from Int32 i in value([]Int32) where ([i] > 2) select [i] => Take(3)", m.String())
}

func TestQueryModel_StringWithSubQuery(t *testing.T) {
	inner, _ := intModel(1, 2, 3)
	inner.AddResultOperator(&Distinct{})
	sq, err := NewSubQuery(inner)
	require.NoError(t, err)

	from := NewMainFromClause("i", int32Type, sq)
	outer := NewQueryModel(from, &SelectClause{Selector: NewQuerySourceRef(from)})
	outer.AddResultOperator(&Count{})

	assert.Equal(t,
		"from Int32 i in {from Int32 i in value([]Int32) select [i] => Distinct()} select [i] => Count()",
		outer.String())
}

func TestQueryModel_ClauseStrings(t *testing.T) {
	m, from := intModel(1)
	join := &JoinClause{
		Name:          "j",
		Type:          int32Type,
		InnerSequence: expr.NewConstant([]int32{1}),
	}
	join.OuterKeySelector = NewQuerySourceRef(from)
	join.InnerKeySelector = NewQuerySourceRef(join)
	require.NoError(t, m.AddBodyClause(join))
	require.NoError(t, m.AddBodyClause(&OrderByClause{Orderings: []*Ordering{
		{Expression: NewQuerySourceRef(from), Direction: Descending},
		{Expression: NewQuerySourceRef(join), Direction: Ascending},
	}}))

	assert.Equal(t, "join Int32 j in value([]Int32) on [i] equals [j]", join.String())
	assert.Equal(t, "orderby [i] desc, [j] asc", m.BodyClauses[1].String())
}

func TestQueryModel_ReducedStates(t *testing.T) {
	m, from := intModel(1, 2)
	assert.True(t, m.Streaming())

	m.AddResultOperator(&Distinct{})
	assert.True(t, m.Reduced())

	err := m.AddBodyClause(&WhereClause{Predicate: gt(NewQuerySourceRef(from), 1)})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))

	grouped, gfrom := intModel(1, 2)
	grouped.Projection = &GroupClause{
		Name:            "g",
		KeySelector:     NewQuerySourceRef(gfrom),
		ElementSelector: NewQuerySourceRef(gfrom),
	}
	assert.True(t, grouped.Reduced(), "a group projection reduces the model")
}

func TestQueryModel_OutputInfoFolds(t *testing.T) {
	m, _ := intModel(1, 2, 3)

	info, err := m.OutputInfo()
	require.NoError(t, err)
	assert.Equal(t, int32Seq, info.DataType())

	m.AddResultOperator(&Take{Count: expr.NewConstant(2)})
	m.AddResultOperator(&Average{})

	info, err = m.OutputInfo()
	require.NoError(t, err)
	assert.Equal(t, StreamedScalarInfo{Type: reflect.TypeFor[float64]()}, info)
}

func TestQueryModel_OutputInfoTypeMismatch(t *testing.T) {
	m, _ := intModel(1)
	m.AddResultOperator(&Count{})
	m.AddResultOperator(&Count{})

	_, err := m.OutputInfo()
	require.Error(t, err)
	assert.True(t, IsTypeMismatch(err))
}

func TestQueryModel_Clone(t *testing.T) {
	m, from := intModel(1, 2, 3)
	require.NoError(t, m.AddBodyClause(&WhereClause{Predicate: gt(NewQuerySourceRef(from), 1)}))
	m.AddResultOperator(&Take{Count: expr.NewConstant(2)})

	clone := m.Clone()

	assert.Equal(t, m.String(), clone.String(), "structurally equal")
	assert.NotSame(t, m.MainFromClause, clone.MainFromClause)
	assert.NotSame(t, m.BodyClauses[0], clone.BodyClauses[0])
	assert.NotSame(t, m.ResultOperators[0], clone.ResultOperators[0])

	// References are remapped to the cloned source.
	pred := clone.BodyClauses[0].(*WhereClause).Predicate.(*expr.Binary)
	assert.Same(t, clone.MainFromClause, pred.Left.(*QuerySourceRef).Source)
	sel := clone.Projection.(*SelectClause).Selector.(*QuerySourceRef)
	assert.Same(t, clone.MainFromClause, sel.Source)

	// Constant data is copied.
	data := clone.MainFromClause.FromExpression.(*expr.Constant).Value.([]int32)
	data[0] = 99
	assert.Equal(t, int32(1), m.MainFromClause.FromExpression.(*expr.Constant).Value.([]int32)[0])

	// Mutating the clone leaves the original alone.
	clone.AddResultOperator(&Count{})
	clone.BodyClauses[0].(*WhereClause).Predicate = gt(NewQuerySourceRef(clone.MainFromClause), 2)
	assert.Len(t, m.ResultOperators, 1)
	assert.Equal(t, "where ([i] > 1)", m.BodyClauses[0].String())
}

func TestQueryModel_CloneRemapsSubQueryReferences(t *testing.T) {
	outer, from := intModel(1, 2)

	inner, innerFrom := intModel(3, 4)
	require.NoError(t, inner.AddBodyClause(&WhereClause{
		Predicate: expr.NewBinary(expr.Equal, NewQuerySourceRef(innerFrom), NewQuerySourceRef(from)),
	}))
	inner.AddResultOperator(&Any{})
	sq, err := NewSubQuery(inner)
	require.NoError(t, err)
	require.NoError(t, outer.AddBodyClause(&WhereClause{Predicate: sq}))

	clone := outer.Clone()

	csq := clone.BodyClauses[0].(*WhereClause).Predicate.(*SubQuery)
	assert.NotSame(t, inner, csq.Model)
	cpred := csq.Model.BodyClauses[0].(*WhereClause).Predicate.(*expr.Binary)
	assert.Same(t, csq.Model.MainFromClause, cpred.Left.(*QuerySourceRef).Source)
	assert.Same(t, clone.MainFromClause, cpred.Right.(*QuerySourceRef).Source,
		"correlated reference follows the cloned outer source")
}

func TestQueryModel_TransformExpressions(t *testing.T) {
	m, from := intModel(1, 2)
	require.NoError(t, m.AddBodyClause(&WhereClause{Predicate: gt(NewQuerySourceRef(from), 1)}))
	m.AddResultOperator(&Take{Count: expr.NewConstant(1)})

	var seen []string
	m.TransformExpressions(func(e expr.Expr) expr.Expr {
		seen = append(seen, e.String())
		return e
	})

	assert.Equal(t, []string{"value([]Int32)", "([i] > 1)", "[i]", "1"}, seen)
}

func TestSubQuery_VisitChildrenDoesNotMutate(t *testing.T) {
	outerParam := expr.NewParameter("o", int32Type)
	inner, innerFrom := intModel(1, 2)
	require.NoError(t, inner.AddBodyClause(&WhereClause{
		Predicate: expr.NewBinary(expr.Equal, NewQuerySourceRef(innerFrom), outerParam),
	}))
	sq, err := NewSubQuery(inner)
	require.NoError(t, err)

	replaced := expr.Replace(sq, outerParam, expr.NewConstant(int32(2)))

	assert.NotSame(t, sq, replaced)
	assert.Equal(t, "{from Int32 i in value([]Int32) where ([i] == o) select [i]}", sq.String())
	assert.Equal(t, "{from Int32 i in value([]Int32) where ([i] == 2) select [i]}", replaced.String())

	unchanged := expr.Replace(sq, expr.NewParameter("x", int32Type), expr.NewConstant(int32(0)))
	assert.Same(t, sq, unchanged)
}

func TestGroupingType(t *testing.T) {
	g := GroupingType(reflect.TypeFor[string](), int32Type)

	assert.Equal(t, "{Key: String, Items: []Int32}", expr.TypeName(g))
	assert.Equal(t, g, GroupingType(reflect.TypeFor[string](), int32Type), "struct types are canonical")
}
