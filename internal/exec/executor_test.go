package exec

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
	"github.com/roach88/querymodel/internal/testutil"
)

var (
	ref       = queryir.NewQuerySourceRef
	int32Type = reflect.TypeFor[int32]()
	stringSeq = reflect.TypeFor[[]string]()
)

func customersFrom() *queryir.MainFromClause {
	return queryir.NewMainFromClause("c", testutil.CustomerType, expr.NewConstant(testutil.Customers()))
}

func field(src queryir.QuerySource, name string) expr.Expr {
	return expr.NewMember(ref(src), name)
}

func ageOver(c queryir.QuerySource, age int32) expr.Expr {
	return expr.NewBinary(expr.GreaterThan, field(c, "Age"), expr.NewConstant(age))
}

// selectModel builds: from Customer c in customers select selector(c)
func selectModel(selector func(c *queryir.MainFromClause) expr.Expr) (*queryir.QueryModel, *queryir.MainFromClause) {
	c := customersFrom()
	return queryir.NewQueryModel(c, &queryir.SelectClause{Selector: selector(c)}), c
}

func names(c *queryir.MainFromClause) expr.Expr { return field(c, "Name") }

func TestExecute_WhereSelect(t *testing.T) {
	m, c := selectModel(names)
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{Predicate: ageOver(c, 30)}))

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	assert.Equal(t, []any{"Alice", "Carol"}, items)
}

func TestExecute_OrderByIsStableAndMultiKey(t *testing.T) {
	m, c := selectModel(names)
	require.NoError(t, m.AddBodyClause(&queryir.OrderByClause{Orderings: []*queryir.Ordering{
		{Expression: field(c, "City"), Direction: queryir.Ascending},
		{Expression: field(c, "Age"), Direction: queryir.Descending},
	}}))

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	assert.Equal(t, []any{"Dan", "Bob", "Carol", "Alice"}, items)
}

func TestExecute_Join(t *testing.T) {
	c := customersFrom()
	j := &queryir.JoinClause{
		Name:             "o",
		Type:             testutil.OrderType,
		InnerSequence:    expr.NewConstant(testutil.Orders()),
		OuterKeySelector: field(c, "ID"),
	}
	j.InnerKeySelector = field(j, "CustomerID")
	label := expr.NewBinary(expr.Add,
		expr.NewBinary(expr.Add, field(c, "Name"), expr.NewConstant(":")),
		field(j, "Product"))
	m := queryir.NewQueryModel(c, &queryir.SelectClause{Selector: label})
	require.NoError(t, m.AddBodyClause(j))

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	assert.Equal(t, []any{"Alice:Widget", "Alice:Gadget", "Bob:Widget", "Carol:Gizmo", "Carol:Widget"}, items)
}

func TestExecute_GroupJoinWithCorrelatedCount(t *testing.T) {
	c := customersFrom()
	j := &queryir.JoinClause{
		Name:             "o",
		Type:             testutil.OrderType,
		InnerSequence:    expr.NewConstant(testutil.Orders()),
		OuterKeySelector: field(c, "ID"),
	}
	j.InnerKeySelector = field(j, "CustomerID")
	gj := &queryir.GroupJoinClause{Name: "g", Type: expr.SeqOf(testutil.OrderType), JoinClause: j}

	// {from Order x in [g] select [x] => Count()}
	x := queryir.NewMainFromClause("x", testutil.OrderType, ref(gj))
	inner := queryir.NewQueryModel(x, &queryir.SelectClause{Selector: ref(x)})
	inner.AddResultOperator(&queryir.Count{})
	sq, err := queryir.NewSubQuery(inner)
	require.NoError(t, err)

	m := queryir.NewQueryModel(c, &queryir.SelectClause{Selector: sq})
	require.NoError(t, m.AddBodyClause(gj))

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	assert.Equal(t, []any{2, 1, 2, 0}, items)
}

func TestExecute_AdditionalFrom(t *testing.T) {
	c := customersFrom()
	o := &queryir.AdditionalFromClause{Name: "o", Type: testutil.OrderType, FromExpression: field(c, "Orders")}
	m := queryir.NewQueryModel(c, &queryir.SelectClause{Selector: field(o, "ID")})
	require.NoError(t, m.AddBodyClause(o))
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{
		Predicate: expr.NewBinary(expr.GreaterThan, field(o, "Amount"), expr.NewConstant(20.0)),
	}))

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	assert.Equal(t, []any{int32(1), int32(3), int32(4), int32(5)}, items)
}

func TestExecute_GroupProjection(t *testing.T) {
	c := customersFrom()
	g := &queryir.GroupClause{Name: "g", KeySelector: field(c, "City"), ElementSelector: field(c, "Name")}
	m := queryir.NewQueryModel(c, g)

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)
	require.Len(t, items, 3)

	type group struct {
		key   string
		items []string
	}
	var got []group
	for _, it := range items {
		rv := reflect.ValueOf(it)
		got = append(got, group{key: rv.FieldByName("Key").String(), items: rv.FieldByName("Items").Interface().([]string)})
	}
	assert.Equal(t, []group{
		{"Paris", []string{"Alice", "Carol"}},
		{"London", []string{"Bob"}},
		{"Berlin", []string{"Dan"}},
	}, got)
}

func TestExecute_SubQueryMaterializesTypedSlice(t *testing.T) {
	m, _ := selectModel(func(c *queryir.MainFromClause) expr.Expr {
		o := queryir.NewMainFromClause("o", testutil.OrderType, field(c, "Orders"))
		inner := queryir.NewQueryModel(o, &queryir.SelectClause{Selector: field(o, "Product")})
		sq, err := queryir.NewSubQuery(inner)
		if err != nil {
			panic(err)
		}
		return sq
	})

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	require.Len(t, items, 4)
	assert.Equal(t, []string{"Widget", "Gadget"}, items[0])
	assert.Equal(t, []string{}, items[3], "no orders is an empty slice, not null")
}

func TestExecute_ScalarAndSingle(t *testing.T) {
	m, c := selectModel(names)
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{Predicate: ageOver(c, 30)}))
	m.AddResultOperator(&queryir.Count{})

	n, err := New().ExecuteScalar(m)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = New().ExecuteSingle(m)
	require.Error(t, err)
	assert.True(t, queryir.IsExecutionError(err))

	first, _ := selectModel(names)
	first.AddResultOperator(&queryir.First{})
	v, err := New().ExecuteSingle(first)
	require.NoError(t, err)
	assert.Equal(t, "Alice", v)
}

func TestExecute_EmptyFirstIsExecutionError(t *testing.T) {
	m, c := selectModel(names)
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{Predicate: ageOver(c, 100)}))
	m.AddResultOperator(&queryir.First{})

	_, err := New().ExecuteSingle(m)

	require.Error(t, err)
	assert.True(t, queryir.IsExecutionError(err), "wrapped errors keep their code")
	assert.Contains(t, err.Error(), queryir.MsgNoElements)
}

func TestExecute_SumAndNullableAverage(t *testing.T) {
	orders := queryir.NewMainFromClause("o", testutil.OrderType, expr.NewConstant(testutil.Orders()))
	sum := queryir.NewQueryModel(orders, &queryir.SelectClause{Selector: field(orders, "Amount")})
	sum.AddResultOperator(&queryir.Sum{})

	total, err := New().ExecuteScalar(sum)
	require.NoError(t, err)
	assert.InDelta(t, 186.4, total, 1e-9)

	avg, _ := selectModel(func(c *queryir.MainFromClause) expr.Expr { return field(c, "Score") })
	avg.AddResultOperator(&queryir.Average{})

	v, err := New().ExecuteScalar(avg)
	require.NoError(t, err)
	require.IsType(t, (*float64)(nil), v)
	assert.InDelta(t, 12.5/3, *v.(*float64), 1e-9, "Bob's missing score is skipped")
}

func TestExecute_ParameterBinding(t *testing.T) {
	p := expr.NewParameter("minAge", int32Type)
	m, c := selectModel(names)
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{
		Predicate: expr.NewBinary(expr.GreaterThan, field(c, "Age"), p),
	}))

	_, err := New().ExecuteCollection(m)
	require.Error(t, err)
	assert.True(t, queryir.IsExecutionError(err))
	assert.Contains(t, err.Error(), `parameter "minAge" is not bound`)

	x := New()
	x.Bind(p, int32(40))
	items, err := x.ExecuteCollection(m)
	require.NoError(t, err)
	assert.Equal(t, []any{"Carol"}, items)
}

func TestExecute_ExecuteSliceIsTyped(t *testing.T) {
	m, _ := selectModel(names)

	v, err := New().ExecuteSlice(m)
	require.NoError(t, err)

	assert.Equal(t, stringSeq, reflect.TypeOf(v))
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dan"}, v)
}

func TestExecute_SequenceIsLazy(t *testing.T) {
	m, _ := selectModel(names)
	m.AddResultOperator(&queryir.Take{Count: expr.NewConstant(2)})

	v, err := New().Execute(m)
	require.NoError(t, err)

	seq, ok := v.(queryir.Sequence)
	require.True(t, ok)
	items, err := queryir.Collect(seq)
	require.NoError(t, err)
	assert.Equal(t, []any{"Alice", "Bob"}, items)
}

func TestExecute_ScalarMethodCall(t *testing.T) {
	m, c := selectModel(names)
	startsWithA := expr.NewCall(reflect.TypeFor[bool](), field(c, "Name"), "StartsWith", expr.NewConstant("A"))
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{Predicate: startsWithA}))

	items, err := New().ExecuteCollection(m)
	require.NoError(t, err)

	assert.Equal(t, []any{"Alice"}, items)
}

func TestExecute_UnknownCallFails(t *testing.T) {
	m, c := selectModel(names)
	bogus := expr.NewCall(reflect.TypeFor[bool](), field(c, "Name"), "Matches", expr.NewConstant("A"))
	require.NoError(t, m.AddBodyClause(&queryir.WhereClause{Predicate: bogus}))

	_, err := New().ExecuteCollection(m)

	require.Error(t, err)
	assert.True(t, queryir.IsExecutionError(err))
	assert.Contains(t, err.Error(), "Matches/1 cannot be evaluated in memory")
}
