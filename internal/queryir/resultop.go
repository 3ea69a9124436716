package queryir

import (
	"fmt"
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
)

// ResultOperator consumes the whole projected sequence and yields a value or
// a transformed sequence. It is a sealed interface; Walk switches over every
// implementation.
//
// Value-producing: Any, All, Count, LongCount, Contains, First, Last, Single,
// Min, Max, Sum, Average, Aggregate, AggregateFromSeed.
//
// Sequence-producing: Distinct, Take, Skip, Cast, OfType, Union, Except,
// Intersect, Concat, Reverse, DefaultIfEmpty, AsQueryable.
type ResultOperator interface {
	resultOperator()

	// OutputInfo computes the output descriptor without executing anything.
	// It returns a TYPE_MISMATCH error when the input is not acceptable.
	OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error)

	// Execute runs the operator over in-memory data.
	Execute(in StreamedData, env Env) (StreamedData, error)

	// TransformExpressions replaces every held expression with fn's result.
	// Each expression is passed to fn exactly once.
	TransformExpressions(fn func(expr.Expr) expr.Expr)

	// Clone copies the operator, sharing no mutable state.
	Clone(ctx *CloneContext) ResultOperator

	// String renders the canonical text form, e.g. Take(3).
	String() string
}

var (
	boolType    = reflect.TypeFor[bool]()
	intType     = reflect.TypeFor[int]()
	int64Type   = reflect.TypeFor[int64]()
	float64Type = reflect.TypeFor[float64]()
)

func transformLambda(fn func(expr.Expr) expr.Expr, l *expr.Lambda) *expr.Lambda {
	if l == nil {
		return nil
	}
	out, ok := fn(l).(*expr.Lambda)
	if !ok {
		panic(fmt.Sprintf("queryir: transformer replaced lambda %s with a non-lambda", l))
	}
	return out
}

func scalar(info StreamedDataInfo, v any) (StreamedData, error) {
	return StreamedValue{DataInfo: info, Value: v}, nil
}

// executeValue runs the common prologue of value-producing operators.
func executeValue(op ResultOperator, name string, in StreamedData) (StreamedSequence, StreamedDataInfo, error) {
	seq, err := sequenceInput(name, in)
	if err != nil {
		return StreamedSequence{}, nil, err
	}
	out, err := op.OutputInfo(seq.DataInfo)
	if err != nil {
		return StreamedSequence{}, nil, err
	}
	return seq, out, nil
}

// Any yields true when the sequence has at least one item.
type Any struct{}

func (*Any) resultOperator() {}

func (o *Any) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	if _, err := sequenceInfo("Any", in); err != nil {
		return nil, err
	}
	return StreamedScalarInfo{Type: boolType}, nil
}

func (o *Any) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Any", in)
	if err != nil {
		return nil, err
	}
	for _, err := range seq.Seq {
		if err != nil {
			return nil, err
		}
		return scalar(info, true)
	}
	return scalar(info, false)
}

func (o *Any) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Any) Clone(*CloneContext) ResultOperator             { return &Any{} }
func (o *Any) String() string                                 { return "Any()" }

// All yields true when Predicate holds for every item. Predicate is a
// resolved Bool expression over the model's query sources.
type All struct {
	Predicate expr.Expr
}

// NewAll creates an All operator.
func NewAll(predicate expr.Expr) (*All, error) {
	if predicate.Type() != boolType {
		return nil, NewConfigurationError("All", "predicate must be Bool, got %s", expr.TypeName(predicate.Type()))
	}
	return &All{Predicate: predicate}, nil
}

func (*All) resultOperator() {}

func (o *All) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	if _, err := sequenceInfo("All", in); err != nil {
		return nil, err
	}
	if o.Predicate.Type() != boolType {
		return nil, NewTypeMismatchError("All", "predicate must be Bool, got %s", expr.TypeName(o.Predicate.Type()))
	}
	return StreamedScalarInfo{Type: boolType}, nil
}

func (o *All) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "All", in)
	if err != nil {
		return nil, err
	}
	pred, err := env.Func(ReverseResolve(seq.DataInfo.ItemExpression, o.Predicate))
	if err != nil {
		return nil, err
	}
	for v, err := range seq.Seq {
		if err != nil {
			return nil, err
		}
		res, err := pred(v)
		if err != nil {
			return nil, err
		}
		if res != true {
			return scalar(info, false)
		}
	}
	return scalar(info, true)
}

func (o *All) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Predicate = fn(o.Predicate)
}

func (o *All) Clone(ctx *CloneContext) ResultOperator {
	return &All{Predicate: ctx.Expr(o.Predicate)}
}

func (o *All) String() string { return "All(" + formatExpr(o.Predicate) + ")" }

// Count yields the number of items as an int.
type Count struct{}

func (*Count) resultOperator() {}

func (o *Count) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	if _, err := sequenceInfo("Count", in); err != nil {
		return nil, err
	}
	return StreamedScalarInfo{Type: intType}, nil
}

func (o *Count) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Count", in)
	if err != nil {
		return nil, err
	}
	n, err := countItems(seq.Seq)
	if err != nil {
		return nil, err
	}
	return scalar(info, n)
}

func (o *Count) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Count) Clone(*CloneContext) ResultOperator             { return &Count{} }
func (o *Count) String() string                                 { return "Count()" }

// LongCount yields the number of items as an int64.
type LongCount struct{}

func (*LongCount) resultOperator() {}

func (o *LongCount) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	if _, err := sequenceInfo("LongCount", in); err != nil {
		return nil, err
	}
	return StreamedScalarInfo{Type: int64Type}, nil
}

func (o *LongCount) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "LongCount", in)
	if err != nil {
		return nil, err
	}
	n, err := countItems(seq.Seq)
	if err != nil {
		return nil, err
	}
	return scalar(info, int64(n))
}

func (o *LongCount) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *LongCount) Clone(*CloneContext) ResultOperator             { return &LongCount{} }
func (o *LongCount) String() string                                 { return "LongCount()" }

func countItems(seq Sequence) (int, error) {
	n := 0
	for _, err := range seq {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Contains yields true when the sequence holds Item. Item must be a constant
// assignable to the element type.
type Contains struct {
	Item expr.Expr
}

// NewContains creates a Contains operator.
func NewContains(item expr.Expr) (*Contains, error) {
	if _, ok := item.(*expr.Constant); !ok {
		return nil, NewConfigurationError("Contains", "item must be a constant, got %s", formatExpr(item))
	}
	return &Contains{Item: item}, nil
}

func (*Contains) resultOperator() {}

func (o *Contains) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("Contains", in)
	if err != nil {
		return nil, err
	}
	if _, ok := o.Item.(*expr.Constant); !ok {
		return nil, NewTypeMismatchError("Contains", "item must be a constant, got %s", formatExpr(o.Item))
	}
	if !o.Item.Type().AssignableTo(seq.ItemType()) {
		return nil, NewTypeMismatchError("Contains", "item of type %s is not assignable to %s",
			expr.TypeName(o.Item.Type()), expr.TypeName(seq.ItemType()))
	}
	return StreamedScalarInfo{Type: boolType}, nil
}

func (o *Contains) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Contains", in)
	if err != nil {
		return nil, err
	}
	want := o.Item.(*expr.Constant).Value
	for v, err := range seq.Seq {
		if err != nil {
			return nil, err
		}
		if Equal(v, want) {
			return scalar(info, true)
		}
	}
	return scalar(info, false)
}

func (o *Contains) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Item = fn(o.Item)
}

func (o *Contains) Clone(ctx *CloneContext) ResultOperator {
	return &Contains{Item: ctx.Expr(o.Item)}
}

func (o *Contains) String() string { return "Contains(" + formatExpr(o.Item) + ")" }

// choiceKind distinguishes First, Last and Single.
type choiceKind int

const (
	choiceFirst choiceKind = iota
	choiceLast
	choiceSingle
)

func (k choiceKind) name() string {
	switch k {
	case choiceLast:
		return "Last"
	case choiceSingle:
		return "Single"
	}
	return "First"
}

func choiceOutput(kind choiceKind, in StreamedDataInfo, orDefault bool) (StreamedDataInfo, error) {
	seq, err := sequenceInfo(kind.name(), in)
	if err != nil {
		return nil, err
	}
	return StreamedSingleInfo{Type: seq.ItemType(), ReturnDefaultWhenEmpty: orDefault}, nil
}

func executeChoice(kind choiceKind, in StreamedData, orDefault bool) (StreamedData, error) {
	name := kind.name()
	seq, err := sequenceInput(name, in)
	if err != nil {
		return nil, err
	}
	info, err := choiceOutput(kind, seq.DataInfo, orDefault)
	if err != nil {
		return nil, err
	}
	var picked any
	found := false
	for v, err := range seq.Seq {
		if err != nil {
			return nil, err
		}
		if found && kind == choiceSingle {
			return nil, NewExecutionError(name, MsgMoreThanOne)
		}
		if !found || kind == choiceLast {
			picked = v
		}
		found = true
		if kind == choiceFirst {
			break
		}
	}
	if !found {
		if !orDefault {
			return nil, NewExecutionError(name, MsgNoElements)
		}
		picked = Zero(seq.DataInfo.ItemType())
	}
	return scalar(info, picked)
}

func choiceString(kind choiceKind, orDefault bool) string {
	if orDefault {
		return kind.name() + "OrDefault()"
	}
	return kind.name() + "()"
}

// First yields the first item. On empty input it fails, or yields the zero
// value of the item type when ReturnDefaultWhenEmpty is set.
type First struct {
	ReturnDefaultWhenEmpty bool
}

func (*First) resultOperator() {}

func (o *First) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return choiceOutput(choiceFirst, in, o.ReturnDefaultWhenEmpty)
}

func (o *First) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeChoice(choiceFirst, in, o.ReturnDefaultWhenEmpty)
}

func (o *First) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *First) Clone(*CloneContext) ResultOperator             { return &First{o.ReturnDefaultWhenEmpty} }
func (o *First) String() string                                 { return choiceString(choiceFirst, o.ReturnDefaultWhenEmpty) }

// Last yields the last item, with the same empty handling as First.
type Last struct {
	ReturnDefaultWhenEmpty bool
}

func (*Last) resultOperator() {}

func (o *Last) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return choiceOutput(choiceLast, in, o.ReturnDefaultWhenEmpty)
}

func (o *Last) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeChoice(choiceLast, in, o.ReturnDefaultWhenEmpty)
}

func (o *Last) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Last) Clone(*CloneContext) ResultOperator             { return &Last{o.ReturnDefaultWhenEmpty} }
func (o *Last) String() string                                 { return choiceString(choiceLast, o.ReturnDefaultWhenEmpty) }

// Single yields the only item. More than one item always fails; empty input
// is handled as for First.
type Single struct {
	ReturnDefaultWhenEmpty bool
}

func (*Single) resultOperator() {}

func (o *Single) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return choiceOutput(choiceSingle, in, o.ReturnDefaultWhenEmpty)
}

func (o *Single) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeChoice(choiceSingle, in, o.ReturnDefaultWhenEmpty)
}

func (o *Single) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Single) Clone(*CloneContext) ResultOperator             { return &Single{o.ReturnDefaultWhenEmpty} }
func (o *Single) String() string                                 { return choiceString(choiceSingle, o.ReturnDefaultWhenEmpty) }

func extremeOutput(name string, in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo(name, in)
	if err != nil {
		return nil, err
	}
	if !IsOrdered(seq.ItemType()) {
		return nil, NewTypeMismatchError(name, "items of type %s are not ordered", expr.TypeName(seq.ItemType()))
	}
	return StreamedSingleInfo{Type: seq.ItemType()}, nil
}

// Min yields the smallest item.
type Min struct{}

func (*Min) resultOperator() {}

func (o *Min) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return extremeOutput("Min", in)
}

func (o *Min) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Min", in)
	if err != nil {
		return nil, err
	}
	v, err := dispatchExtreme("Min", seq.Seq, seq.DataInfo.ItemType(), false)
	if err != nil {
		return nil, err
	}
	return scalar(info, v)
}

func (o *Min) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Min) Clone(*CloneContext) ResultOperator             { return &Min{} }
func (o *Min) String() string                                 { return "Min()" }

// Max yields the largest item.
type Max struct{}

func (*Max) resultOperator() {}

func (o *Max) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return extremeOutput("Max", in)
}

func (o *Max) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Max", in)
	if err != nil {
		return nil, err
	}
	v, err := dispatchExtreme("Max", seq.Seq, seq.DataInfo.ItemType(), true)
	if err != nil {
		return nil, err
	}
	return scalar(info, v)
}

func (o *Max) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Max) Clone(*CloneContext) ResultOperator             { return &Max{} }
func (o *Max) String() string                                 { return "Max()" }

// Sum yields the total of numeric items. The output type is exactly the
// element type; nil items of a nullable type are skipped.
type Sum struct{}

func (*Sum) resultOperator() {}

func (o *Sum) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("Sum", in)
	if err != nil {
		return nil, err
	}
	if kind, _ := expr.ClassifyNumeric(seq.ItemType()); kind == expr.NotNumeric {
		return nil, NewTypeMismatchError("Sum", "cannot sum items of type %s", expr.TypeName(seq.ItemType()))
	}
	return StreamedScalarInfo{Type: seq.ItemType()}, nil
}

func (o *Sum) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Sum", in)
	if err != nil {
		return nil, err
	}
	v, err := dispatchSum("Sum", seq.Seq, seq.DataInfo.ItemType())
	if err != nil {
		return nil, err
	}
	return scalar(info, v)
}

func (o *Sum) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Sum) Clone(*CloneContext) ResultOperator             { return &Sum{} }
func (o *Sum) String() string                                 { return "Sum()" }

// AverageType returns the output type of Average over items of type t: the
// integral kinds promote to Float64 (nullable to nullable Float64), every
// other numeric type is unchanged.
func AverageType(t reflect.Type) (reflect.Type, bool) {
	kind, nullable := expr.ClassifyNumeric(t)
	switch kind {
	case expr.NotNumeric:
		return nil, false
	case expr.KindInt, expr.KindInt32, expr.KindInt64:
		if nullable {
			return reflect.PointerTo(float64Type), true
		}
		return float64Type, true
	}
	return t, true
}

// Average yields the arithmetic mean of numeric items.
type Average struct{}

func (*Average) resultOperator() {}

func (o *Average) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("Average", in)
	if err != nil {
		return nil, err
	}
	out, ok := AverageType(seq.ItemType())
	if !ok {
		return nil, NewTypeMismatchError("Average", "cannot average items of type %s", expr.TypeName(seq.ItemType()))
	}
	return StreamedScalarInfo{Type: out}, nil
}

func (o *Average) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Average", in)
	if err != nil {
		return nil, err
	}
	v, err := dispatchAverage("Average", seq.Seq, seq.DataInfo.ItemType(), info.DataType())
	if err != nil {
		return nil, err
	}
	return scalar(info, v)
}

func (o *Average) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Average) Clone(*CloneContext) ResultOperator             { return &Average{} }
func (o *Average) String() string                                 { return "Average()" }

// Aggregate folds the sequence with Func, using the first item as the seed.
// Func takes the accumulator; its body references the current item through
// query sources, e.g. acc => (acc + [i]).
type Aggregate struct {
	Func *expr.Lambda
}

// NewAggregate creates an unseeded Aggregate.
func NewAggregate(fn *expr.Lambda) (*Aggregate, error) {
	if len(fn.Params) != 1 {
		return nil, NewConfigurationError("Aggregate", "func must take exactly one accumulator parameter, got %d", len(fn.Params))
	}
	return &Aggregate{Func: fn}, nil
}

func (*Aggregate) resultOperator() {}

func (o *Aggregate) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("Aggregate", in)
	if err != nil {
		return nil, err
	}
	acc := o.Func.Params[0].Type()
	if !seq.ItemType().AssignableTo(acc) {
		return nil, NewTypeMismatchError("Aggregate", "items of type %s cannot seed an accumulator of type %s",
			expr.TypeName(seq.ItemType()), expr.TypeName(acc))
	}
	if !o.Func.Body.Type().AssignableTo(acc) {
		return nil, NewTypeMismatchError("Aggregate", "func returns %s, accumulator is %s",
			expr.TypeName(o.Func.Body.Type()), expr.TypeName(acc))
	}
	return StreamedScalarInfo{Type: o.Func.Body.Type()}, nil
}

func (o *Aggregate) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Aggregate", in)
	if err != nil {
		return nil, err
	}
	lambda, err := ReverseResolveLambda(seq.DataInfo.ItemExpression, o.Func, 1)
	if err != nil {
		return nil, err
	}
	fn, err := env.Func(lambda)
	if err != nil {
		return nil, err
	}
	var acc any
	first := true
	for v, err := range seq.Seq {
		if err != nil {
			return nil, err
		}
		if first {
			acc, first = v, false
			continue
		}
		if acc, err = fn(acc, v); err != nil {
			return nil, err
		}
	}
	if first {
		return nil, NewExecutionError("Aggregate", MsgNoElements)
	}
	return scalar(info, acc)
}

func (o *Aggregate) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Func = transformLambda(fn, o.Func)
}

func (o *Aggregate) Clone(ctx *CloneContext) ResultOperator {
	return &Aggregate{Func: ctx.Lambda(o.Func)}
}

func (o *Aggregate) String() string { return "Aggregate(" + formatExpr(o.Func) + ")" }

// AggregateFromSeed folds the sequence starting from Seed and optionally maps
// the final accumulator through ResultSelector.
type AggregateFromSeed struct {
	Seed           expr.Expr
	Func           *expr.Lambda
	ResultSelector *expr.Lambda
}

// NewAggregateFromSeed creates a seeded Aggregate. The seed must be
// assignable to the accumulator and the result selector, when present, must
// take the accumulator type.
func NewAggregateFromSeed(seed expr.Expr, fn, resultSelector *expr.Lambda) (*AggregateFromSeed, error) {
	op := &AggregateFromSeed{Seed: seed, Func: fn, ResultSelector: resultSelector}
	if len(fn.Params) != 1 {
		return nil, NewConfigurationError("Aggregate", "func must take exactly one accumulator parameter, got %d", len(fn.Params))
	}
	if resultSelector != nil && len(resultSelector.Params) != 1 {
		return nil, NewConfigurationError("Aggregate", "result selector must take exactly one parameter, got %d", len(resultSelector.Params))
	}
	if err := op.checkTypes(); err != nil {
		return nil, NewConfigurationError("Aggregate", "%s", err.Message)
	}
	return op, nil
}

func (o *AggregateFromSeed) checkTypes() *Error {
	acc := o.Func.Params[0].Type()
	if !o.Seed.Type().AssignableTo(acc) {
		return NewTypeMismatchError("Aggregate", "seed of type %s is not assignable to accumulator of type %s",
			expr.TypeName(o.Seed.Type()), expr.TypeName(acc))
	}
	if !o.Func.Body.Type().AssignableTo(acc) {
		return NewTypeMismatchError("Aggregate", "func returns %s, accumulator is %s",
			expr.TypeName(o.Func.Body.Type()), expr.TypeName(acc))
	}
	if o.ResultSelector != nil && o.ResultSelector.Params[0].Type() != o.Func.Body.Type() {
		return NewTypeMismatchError("Aggregate", "result selector takes %s, func returns %s",
			expr.TypeName(o.ResultSelector.Params[0].Type()), expr.TypeName(o.Func.Body.Type()))
	}
	return nil
}

func (*AggregateFromSeed) resultOperator() {}

func (o *AggregateFromSeed) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	if _, err := sequenceInfo("Aggregate", in); err != nil {
		return nil, err
	}
	if err := o.checkTypes(); err != nil {
		return nil, err
	}
	if o.ResultSelector != nil {
		return StreamedScalarInfo{Type: o.ResultSelector.Body.Type()}, nil
	}
	return StreamedScalarInfo{Type: o.Func.Body.Type()}, nil
}

func (o *AggregateFromSeed) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeValue(o, "Aggregate", in)
	if err != nil {
		return nil, err
	}
	acc, err := env.Eval(o.Seed)
	if err != nil {
		return nil, err
	}
	lambda, err := ReverseResolveLambda(seq.DataInfo.ItemExpression, o.Func, 1)
	if err != nil {
		return nil, err
	}
	fn, err := env.Func(lambda)
	if err != nil {
		return nil, err
	}
	for v, err := range seq.Seq {
		if err != nil {
			return nil, err
		}
		if acc, err = fn(acc, v); err != nil {
			return nil, err
		}
	}
	if o.ResultSelector != nil {
		sel, err := env.Func(o.ResultSelector)
		if err != nil {
			return nil, err
		}
		if acc, err = sel(acc); err != nil {
			return nil, err
		}
	}
	return scalar(info, acc)
}

func (o *AggregateFromSeed) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	o.Seed = fn(o.Seed)
	o.Func = transformLambda(fn, o.Func)
	o.ResultSelector = transformLambda(fn, o.ResultSelector)
}

func (o *AggregateFromSeed) Clone(ctx *CloneContext) ResultOperator {
	return &AggregateFromSeed{
		Seed:           ctx.Expr(o.Seed),
		Func:           ctx.Lambda(o.Func),
		ResultSelector: ctx.Lambda(o.ResultSelector),
	}
}

func (o *AggregateFromSeed) String() string {
	s := "Aggregate(" + formatExpr(o.Seed) + ", " + formatExpr(o.Func)
	if o.ResultSelector != nil {
		s += ", " + formatExpr(o.ResultSelector)
	}
	return s + ")"
}
