package queryir

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/expr"
)

// execute runs op over the given int32 items.
func execute(t *testing.T, from *MainFromClause, op ResultOperator, values ...int32) (StreamedData, error) {
	t.Helper()
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return op.Execute(intInput(from, items...), testEnv{})
}

func executeValueOf(t *testing.T, from *MainFromClause, op ResultOperator, values ...int32) any {
	t.Helper()
	out, err := execute(t, from, op, values...)
	require.NoError(t, err)
	v, ok := out.(StreamedValue)
	require.True(t, ok, "expected a value, got %T", out)
	return v.Value
}

func executeItems(t *testing.T, from *MainFromClause, op ResultOperator, values ...int32) []any {
	t.Helper()
	out, err := execute(t, from, op, values...)
	require.NoError(t, err)
	seq, ok := out.(StreamedSequence)
	require.True(t, ok, "expected a sequence, got %T", out)
	items, err := Collect(seq.Seq)
	require.NoError(t, err)
	return items
}

func TestExecute_ValueOperators(t *testing.T) {
	_, from := intModel()

	tests := []struct {
		name   string
		op     ResultOperator
		values []int32
		want   any
	}{
		{"Count", &Count{}, []int32{1, 2, 3}, 3},
		{"LongCount", &LongCount{}, []int32{1, 2}, int64(2)},
		{"Any empty", &Any{}, nil, false},
		{"Any", &Any{}, []int32{1}, true},
		{"All true", &All{Predicate: gt(NewQuerySourceRef(from), 1)}, []int32{2, 3}, true},
		{"All false", &All{Predicate: gt(NewQuerySourceRef(from), 1)}, []int32{1, 2}, false},
		{"All empty", &All{Predicate: gt(NewQuerySourceRef(from), 1)}, nil, true},
		{"Contains", &Contains{Item: expr.NewConstant(int32(4))}, []int32{3, 4}, true},
		{"Contains missing", &Contains{Item: expr.NewConstant(int32(5))}, []int32{3, 4}, false},
		{"First", &First{}, []int32{7, 8}, int32(7)},
		{"FirstOrDefault empty", &First{ReturnDefaultWhenEmpty: true}, nil, int32(0)},
		{"Last", &Last{}, []int32{1, 2, 3}, int32(3)},
		{"Single", &Single{}, []int32{9}, int32(9)},
		{"SingleOrDefault empty", &Single{ReturnDefaultWhenEmpty: true}, nil, int32(0)},
		{"Min", &Min{}, []int32{3, 1, 2}, int32(1)},
		{"Max", &Max{}, []int32{3, 1, 2}, int32(3)},
		{"Sum", &Sum{}, []int32{1, 2, 3, 4}, int32(10)},
		{"Sum empty", &Sum{}, nil, int32(0)},
		{"Average", &Average{}, []int32{1, 2, 3, 4}, 2.5},
		{"Aggregate", &Aggregate{Func: sumLambda(from)}, []int32{1, 2, 3}, int32(6)},
		{"Aggregate single item", &Aggregate{Func: sumLambda(from)}, []int32{5}, int32(5)},
		{"AggregateFromSeed", &AggregateFromSeed{Seed: expr.NewConstant(int32(10)), Func: sumLambda(from)},
			[]int32{1, 2}, int32(13)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, executeValueOf(t, from, tt.op, tt.values...))
		})
	}
}

func TestExecute_AggregateFromSeedOnEmptyUsesSelector(t *testing.T) {
	_, from := intModel()
	x := expr.NewParameter("x", int32Type)
	op := &AggregateFromSeed{
		Seed:           expr.NewConstant(int32(10)),
		Func:           sumLambda(from),
		ResultSelector: expr.NewLambda(expr.NewBinary(expr.Multiply, x, expr.NewConstant(int32(2))), x),
	}

	assert.Equal(t, int32(20), executeValueOf(t, from, op))
}

func TestExecute_ValueOperatorErrors(t *testing.T) {
	_, from := intModel()

	tests := []struct {
		name    string
		op      ResultOperator
		values  []int32
		message string
	}{
		{"First empty", &First{}, nil, MsgNoElements},
		{"Last empty", &Last{}, nil, MsgNoElements},
		{"Single empty", &Single{}, nil, MsgNoElements},
		{"Single many", &Single{}, []int32{1, 2}, MsgMoreThanOne},
		{"SingleOrDefault many", &Single{ReturnDefaultWhenEmpty: true}, []int32{1, 2}, MsgMoreThanOne},
		{"Min empty", &Min{}, nil, MsgNoElements},
		{"Average empty", &Average{}, nil, MsgNoElements},
		{"Aggregate empty", &Aggregate{Func: sumLambda(from)}, nil, MsgNoElements},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, from, tt.op, tt.values...)
			require.Error(t, err)
			assert.True(t, IsExecutionError(err), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestExecute_SequenceOperators(t *testing.T) {
	_, from := intModel()

	tests := []struct {
		name   string
		op     ResultOperator
		values []int32
		want   []any
	}{
		{"Take", &Take{Count: expr.NewConstant(3)}, []int32{1, 2, 3, 4, 5}, []any{int32(1), int32(2), int32(3)}},
		{"Take more than available", &Take{Count: expr.NewConstant(9)}, []int32{1, 2}, []any{int32(1), int32(2)}},
		{"Take zero", &Take{Count: expr.NewConstant(0)}, []int32{1, 2}, nil},
		{"Skip", &Skip{Count: expr.NewConstant(int32(2))}, []int32{1, 2, 3, 4}, []any{int32(3), int32(4)}},
		{"Distinct", &Distinct{}, []int32{1, 1, 2, 1, 3}, []any{int32(1), int32(2), int32(3)}},
		{"Reverse", &Reverse{}, []int32{1, 2, 3}, []any{int32(3), int32(2), int32(1)}},
		{"DefaultIfEmpty empty", &DefaultIfEmpty{}, nil, []any{int32(0)}},
		{"DefaultIfEmpty with value", &DefaultIfEmpty{DefaultValue: expr.NewConstant(int32(-1))}, nil, []any{int32(-1)}},
		{"DefaultIfEmpty non-empty", &DefaultIfEmpty{}, []int32{4}, []any{int32(4)}},
		{"Union", &Union{Source2: expr.NewConstant([]int32{3, 4, 4})}, []int32{1, 2, 3},
			[]any{int32(1), int32(2), int32(3), int32(4)}},
		{"Except", &Except{Source2: expr.NewConstant([]int32{2})}, []int32{1, 2, 3, 1}, []any{int32(1), int32(3)}},
		{"Intersect", &Intersect{Source2: expr.NewConstant([]int32{2, 3, 9})}, []int32{3, 1, 2, 3}, []any{int32(3), int32(2)}},
		{"Concat", &Concat{Source2: expr.NewConstant([]int32{1})}, []int32{1}, []any{int32(1), int32(1)}},
		{"AsQueryable", &AsQueryable{}, []int32{5}, []any{int32(5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, executeItems(t, from, tt.op, tt.values...))
		})
	}
}

func TestExecute_TakeIsLazy(t *testing.T) {
	_, from := intModel()
	pulled := 0
	src := func(yield func(any, error) bool) {
		for i := int32(0); ; i++ {
			pulled++
			if !yield(i, nil) {
				return
			}
		}
	}
	in := StreamedSequence{
		DataInfo: StreamedSequenceInfo{Type: int32Seq, ItemExpression: NewQuerySourceRef(from)},
		Seq:      src,
	}

	out, err := (&Take{Count: expr.NewConstant(2)}).Execute(in, testEnv{})
	require.NoError(t, err)
	items, err := Collect(out.(StreamedSequence).Seq)
	require.NoError(t, err)

	assert.Equal(t, []any{int32(0), int32(1)}, items)
	assert.Equal(t, 2, pulled)
}

// objectInput is a sequence of untyped items, as produced by a heterogenous
// source.
func objectInput(items ...any) StreamedSequence {
	anyType := reflect.TypeFor[any]()
	from := NewMainFromClause("o", anyType, expr.NewConstant([]any{}))
	return StreamedSequence{
		DataInfo: StreamedSequenceInfo{Type: expr.SeqOf(anyType), ItemExpression: NewQuerySourceRef(from)},
		Seq:      FromValues(items),
	}
}

func TestExecute_Cast(t *testing.T) {
	out, err := (&Cast{Type: int32Type}).Execute(objectInput(int32(1), int32(2)), testEnv{})
	require.NoError(t, err)
	assert.Equal(t, int32Seq, out.Info().DataType())
	items, err := Collect(out.(StreamedSequence).Seq)
	require.NoError(t, err)
	assert.Equal(t, []any{int32(1), int32(2)}, items)

	out, err = (&Cast{Type: int32Type}).Execute(objectInput(int32(1), "x"), testEnv{})
	require.NoError(t, err, "Cast fails lazily")
	_, err = Collect(out.(StreamedSequence).Seq)
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.Contains(t, err.Error(), "cannot cast value of type String to Int32")
}

func TestExecute_OfType(t *testing.T) {
	out, err := (&OfType{Type: reflect.TypeFor[string]()}).Execute(objectInput(int32(1), "a", nil, "b"), testEnv{})
	require.NoError(t, err)

	items, err := Collect(out.(StreamedSequence).Seq)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, items)
}

func TestExecute_NonConstantSecondSource(t *testing.T) {
	_, from := intModel()
	op := &Union{Source2: expr.NewParameter("s", int32Seq)}

	_, err := execute(t, from, op, 1, 2)
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.Contains(t, err.Error(), "constant second source")
}

func TestExecute_RejectsScalarInput(t *testing.T) {
	in := StreamedValue{DataInfo: StreamedScalarInfo{Type: int32Type}, Value: int32(1)}

	_, err := (&Count{}).Execute(in, testEnv{})
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
}
