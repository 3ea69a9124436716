package queryir

import (
	"reflect"
	"slices"

	"github.com/roach88/querymodel/internal/expr"
)

// executeSequence runs the common prologue of sequence-producing operators.
func executeSequence(op ResultOperator, name string, in StreamedData) (StreamedSequence, StreamedSequenceInfo, error) {
	seq, err := sequenceInput(name, in)
	if err != nil {
		return StreamedSequence{}, StreamedSequenceInfo{}, err
	}
	out, err := op.OutputInfo(seq.DataInfo)
	if err != nil {
		return StreamedSequence{}, StreamedSequenceInfo{}, err
	}
	return seq, out.(StreamedSequenceInfo), nil
}

// Distinct drops repeated items, keeping first occurrences in order.
type Distinct struct{}

func (*Distinct) resultOperator() {}

func (o *Distinct) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return sequenceInfo("Distinct", in)
}

func (o *Distinct) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "Distinct", in)
	if err != nil {
		return nil, err
	}
	return StreamedSequence{DataInfo: info, Seq: distinct(seq.Seq)}, nil
}

func (o *Distinct) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Distinct) Clone(*CloneContext) ResultOperator             { return &Distinct{} }
func (o *Distinct) String() string                                 { return "Distinct()" }

func distinct(seq Sequence) Sequence {
	return func(yield func(any, error) bool) {
		seen := make(map[any]struct{})
		for v, err := range seq {
			if err != nil {
				yield(nil, err)
				return
			}
			k := KeyOf(v)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// countOperand validates the count expression of Take and Skip.
func countOperand(name string, count expr.Expr) error {
	k := count.Type().Kind()
	if k != reflect.Int && k != reflect.Int32 {
		return NewConfigurationError(name, "count must be Int or Int32, got %s", expr.TypeName(count.Type()))
	}
	return nil
}

// constantCount extracts a literal count.
func constantCount(name string, count expr.Expr) (int, error) {
	c, ok := count.(*expr.Constant)
	if !ok {
		return 0, NewConfigurationError(name, "count %s is not a constant", formatExpr(count))
	}
	return int(reflect.ValueOf(c.Value).Int()), nil
}

func evalCount(name string, count expr.Expr, env Env) (int, error) {
	v, err := env.Eval(count)
	if err != nil {
		return 0, err
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !expr.IsIntegerKind(rv.Kind()) {
		return 0, NewExecutionError(name, "count evaluated to %v", v)
	}
	return int(rv.Int()), nil
}

// Take keeps the first Count items. Count is any resolvable Int or Int32
// expression; ConstantCount extracts it when it is a literal.
type Take struct {
	Count expr.Expr
}

// NewTake creates a Take operator.
func NewTake(count expr.Expr) (*Take, error) {
	if err := countOperand("Take", count); err != nil {
		return nil, err
	}
	return &Take{Count: count}, nil
}

// ConstantCount returns the literal count, failing when Count is not a
// constant expression.
func (o *Take) ConstantCount() (int, error) { return constantCount("Take", o.Count) }

func (*Take) resultOperator() {}

func (o *Take) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return sequenceInfo("Take", in)
}

func (o *Take) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "Take", in)
	if err != nil {
		return nil, err
	}
	n, err := evalCount("Take", o.Count, env)
	if err != nil {
		return nil, err
	}
	src := seq.Seq
	return StreamedSequence{DataInfo: info, Seq: func(yield func(any, error) bool) {
		if n <= 0 {
			return
		}
		taken := 0
		for v, err := range src {
			if !yield(v, err) || err != nil {
				return
			}
			taken++
			if taken == n {
				return
			}
		}
	}}, nil
}

func (o *Take) TransformExpressions(fn func(expr.Expr) expr.Expr) { o.Count = fn(o.Count) }
func (o *Take) Clone(ctx *CloneContext) ResultOperator            { return &Take{Count: ctx.Expr(o.Count)} }
func (o *Take) String() string                                    { return "Take(" + formatExpr(o.Count) + ")" }

// Skip drops the first Count items.
type Skip struct {
	Count expr.Expr
}

// NewSkip creates a Skip operator.
func NewSkip(count expr.Expr) (*Skip, error) {
	if err := countOperand("Skip", count); err != nil {
		return nil, err
	}
	return &Skip{Count: count}, nil
}

// ConstantCount returns the literal count, failing when Count is not a
// constant expression.
func (o *Skip) ConstantCount() (int, error) { return constantCount("Skip", o.Count) }

func (*Skip) resultOperator() {}

func (o *Skip) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return sequenceInfo("Skip", in)
}

func (o *Skip) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "Skip", in)
	if err != nil {
		return nil, err
	}
	n, err := evalCount("Skip", o.Count, env)
	if err != nil {
		return nil, err
	}
	src := seq.Seq
	return StreamedSequence{DataInfo: info, Seq: func(yield func(any, error) bool) {
		skipped := 0
		for v, err := range src {
			if err == nil && skipped < n {
				skipped++
				continue
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}}, nil
}

func (o *Skip) TransformExpressions(fn func(expr.Expr) expr.Expr) { o.Count = fn(o.Count) }
func (o *Skip) Clone(ctx *CloneContext) ResultOperator            { return &Skip{Count: ctx.Expr(o.Count)} }
func (o *Skip) String() string                                    { return "Skip(" + formatExpr(o.Count) + ")" }

// Cast converts every item to Type, failing on the first item whose runtime
// type is not assignable. The item expression becomes Convert(item, Type).
type Cast struct {
	Type reflect.Type
}

func (*Cast) resultOperator() {}

func (o *Cast) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("Cast", in)
	if err != nil {
		return nil, err
	}
	return StreamedSequenceInfo{
		Type:           expr.SeqOf(o.Type),
		ItemExpression: expr.NewConvert(seq.ItemExpression, o.Type),
	}, nil
}

func (o *Cast) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "Cast", in)
	if err != nil {
		return nil, err
	}
	src, target := seq.Seq, o.Type
	return StreamedSequence{DataInfo: info, Seq: func(yield func(any, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			if !castable(v, target) {
				yield(nil, NewExecutionError(o.String(), "cannot cast %s to %s", describeValue(v), expr.TypeName(target)))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}}, nil
}

func castable(v any, target reflect.Type) bool {
	if v == nil {
		return expr.IsNullable(target)
	}
	return reflect.TypeOf(v).AssignableTo(target)
}

func describeValue(v any) string {
	if v == nil {
		return "null"
	}
	return "value of type " + expr.TypeName(reflect.TypeOf(v))
}

func (o *Cast) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Cast) Clone(*CloneContext) ResultOperator             { return &Cast{Type: o.Type} }
func (o *Cast) String() string                                 { return "Cast<" + expr.TypeName(o.Type) + ">()" }

// OfType keeps the items whose runtime type is assignable to Type. nil items
// are dropped.
type OfType struct {
	Type reflect.Type
}

func (*OfType) resultOperator() {}

func (o *OfType) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("OfType", in)
	if err != nil {
		return nil, err
	}
	return StreamedSequenceInfo{
		Type:           expr.SeqOf(o.Type),
		ItemExpression: expr.NewConvert(seq.ItemExpression, o.Type),
	}, nil
}

func (o *OfType) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "OfType", in)
	if err != nil {
		return nil, err
	}
	src, target := seq.Seq, o.Type
	return StreamedSequence{DataInfo: info, Seq: func(yield func(any, error) bool) {
		for v, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			if v == nil || !reflect.TypeOf(v).AssignableTo(target) {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}}, nil
}

func (o *OfType) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *OfType) Clone(*CloneContext) ResultOperator             { return &OfType{Type: o.Type} }
func (o *OfType) String() string                                 { return "OfType<" + expr.TypeName(o.Type) + ">()" }

// setKind distinguishes the operators combining the input with a second
// source.
type setKind int

const (
	setUnion setKind = iota
	setExcept
	setIntersect
	setConcat
)

func (k setKind) name() string {
	switch k {
	case setExcept:
		return "Except"
	case setIntersect:
		return "Intersect"
	case setConcat:
		return "Concat"
	}
	return "Union"
}

func checkSource2(kind setKind, source2 expr.Expr) error {
	if !expr.IsSequence(source2.Type()) {
		return NewConfigurationError(kind.name(), "second source must be enumerable, got %s", expr.TypeName(source2.Type()))
	}
	return nil
}

func setOutput(kind setKind, source2 expr.Expr, in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo(kind.name(), in)
	if err != nil {
		return nil, err
	}
	elem, ok := expr.ElementType(source2.Type())
	if !ok {
		return nil, NewTypeMismatchError(kind.name(), "second source must be enumerable, got %s", expr.TypeName(source2.Type()))
	}
	if !elem.AssignableTo(seq.ItemType()) {
		return nil, NewTypeMismatchError(kind.name(), "second source items of type %s are not assignable to %s",
			expr.TypeName(elem), expr.TypeName(seq.ItemType()))
	}
	return seq, nil
}

// source2Items enumerates the second source. The in-memory engine only
// accepts a constant; translators may accept other expressions.
func source2Items(kind setKind, source2 expr.Expr) ([]any, error) {
	c, ok := source2.(*expr.Constant)
	if !ok {
		return nil, NewExecutionError(kind.name(), "in-memory execution requires a constant second source, got %s", formatExpr(source2))
	}
	if c.Value == nil {
		return nil, nil
	}
	seq, err := FromSlice(c.Value)
	if err != nil {
		return nil, NewExecutionError(kind.name(), "%v", err)
	}
	return Collect(seq)
}

func executeSet(op ResultOperator, kind setKind, source2 expr.Expr, in StreamedData) (StreamedData, error) {
	seq, info, err := executeSequence(op, kind.name(), in)
	if err != nil {
		return nil, err
	}
	second, err := source2Items(kind, source2)
	if err != nil {
		return nil, err
	}
	first := seq.Seq
	var out Sequence
	switch kind {
	case setConcat:
		out = func(yield func(any, error) bool) {
			for v, err := range first {
				if !yield(v, err) || err != nil {
					return
				}
			}
			for _, v := range second {
				if !yield(v, nil) {
					return
				}
			}
		}
	case setUnion:
		out = distinct(func(yield func(any, error) bool) {
			for v, err := range first {
				if !yield(v, err) || err != nil {
					return
				}
			}
			for _, v := range second {
				if !yield(v, nil) {
					return
				}
			}
		})
	default:
		keys := make(map[any]struct{}, len(second))
		for _, v := range second {
			keys[KeyOf(v)] = struct{}{}
		}
		keep := kind == setIntersect
		out = distinct(func(yield func(any, error) bool) {
			for v, err := range first {
				if err != nil {
					yield(nil, err)
					return
				}
				if _, found := keys[KeyOf(v)]; found != keep {
					continue
				}
				if !yield(v, nil) {
					return
				}
			}
		})
	}
	return StreamedSequence{DataInfo: info, Seq: out}, nil
}

// Union yields the distinct items of the input followed by those of Source2.
type Union struct {
	Source2 expr.Expr
}

// NewUnion creates a Union operator.
func NewUnion(source2 expr.Expr) (*Union, error) {
	if err := checkSource2(setUnion, source2); err != nil {
		return nil, err
	}
	return &Union{Source2: source2}, nil
}

func (*Union) resultOperator() {}

func (o *Union) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return setOutput(setUnion, o.Source2, in)
}

func (o *Union) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeSet(o, setUnion, o.Source2, in)
}

func (o *Union) TransformExpressions(fn func(expr.Expr) expr.Expr) { o.Source2 = fn(o.Source2) }
func (o *Union) Clone(ctx *CloneContext) ResultOperator            { return &Union{Source2: ctx.Expr(o.Source2)} }
func (o *Union) String() string                                    { return "Union(" + formatExpr(o.Source2) + ")" }

// Except yields the distinct input items that do not occur in Source2.
type Except struct {
	Source2 expr.Expr
}

// NewExcept creates an Except operator.
func NewExcept(source2 expr.Expr) (*Except, error) {
	if err := checkSource2(setExcept, source2); err != nil {
		return nil, err
	}
	return &Except{Source2: source2}, nil
}

func (*Except) resultOperator() {}

func (o *Except) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return setOutput(setExcept, o.Source2, in)
}

func (o *Except) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeSet(o, setExcept, o.Source2, in)
}

func (o *Except) TransformExpressions(fn func(expr.Expr) expr.Expr) { o.Source2 = fn(o.Source2) }
func (o *Except) Clone(ctx *CloneContext) ResultOperator            { return &Except{Source2: ctx.Expr(o.Source2)} }
func (o *Except) String() string                                    { return "Except(" + formatExpr(o.Source2) + ")" }

// Intersect yields the distinct input items that also occur in Source2.
type Intersect struct {
	Source2 expr.Expr
}

// NewIntersect creates an Intersect operator.
func NewIntersect(source2 expr.Expr) (*Intersect, error) {
	if err := checkSource2(setIntersect, source2); err != nil {
		return nil, err
	}
	return &Intersect{Source2: source2}, nil
}

func (*Intersect) resultOperator() {}

func (o *Intersect) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return setOutput(setIntersect, o.Source2, in)
}

func (o *Intersect) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeSet(o, setIntersect, o.Source2, in)
}

func (o *Intersect) TransformExpressions(fn func(expr.Expr) expr.Expr) { o.Source2 = fn(o.Source2) }
func (o *Intersect) Clone(ctx *CloneContext) ResultOperator            { return &Intersect{Source2: ctx.Expr(o.Source2)} }
func (o *Intersect) String() string                                    { return "Intersect(" + formatExpr(o.Source2) + ")" }

// Concat yields the input items followed by the items of Source2.
type Concat struct {
	Source2 expr.Expr
}

// NewConcat creates a Concat operator.
func NewConcat(source2 expr.Expr) (*Concat, error) {
	if err := checkSource2(setConcat, source2); err != nil {
		return nil, err
	}
	return &Concat{Source2: source2}, nil
}

func (*Concat) resultOperator() {}

func (o *Concat) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return setOutput(setConcat, o.Source2, in)
}

func (o *Concat) Execute(in StreamedData, env Env) (StreamedData, error) {
	return executeSet(o, setConcat, o.Source2, in)
}

func (o *Concat) TransformExpressions(fn func(expr.Expr) expr.Expr) { o.Source2 = fn(o.Source2) }
func (o *Concat) Clone(ctx *CloneContext) ResultOperator            { return &Concat{Source2: ctx.Expr(o.Source2)} }
func (o *Concat) String() string                                    { return "Concat(" + formatExpr(o.Source2) + ")" }

// Reverse yields the items in reverse order.
type Reverse struct{}

func (*Reverse) resultOperator() {}

func (o *Reverse) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return sequenceInfo("Reverse", in)
}

func (o *Reverse) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "Reverse", in)
	if err != nil {
		return nil, err
	}
	items, err := Collect(seq.Seq)
	if err != nil {
		return nil, err
	}
	slices.Reverse(items)
	return StreamedSequence{DataInfo: info, Seq: FromValues(items)}, nil
}

func (o *Reverse) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *Reverse) Clone(*CloneContext) ResultOperator             { return &Reverse{} }
func (o *Reverse) String() string                                 { return "Reverse()" }

// DefaultIfEmpty yields the input unchanged, or a single default item when
// the input is empty. Without DefaultValue the default is the zero value of
// the item type: nil for nullable types, 0 for Int32 and so on.
type DefaultIfEmpty struct {
	DefaultValue expr.Expr
}

func (*DefaultIfEmpty) resultOperator() {}

func (o *DefaultIfEmpty) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	seq, err := sequenceInfo("DefaultIfEmpty", in)
	if err != nil {
		return nil, err
	}
	if o.DefaultValue != nil && !o.DefaultValue.Type().AssignableTo(seq.ItemType()) {
		return nil, NewTypeMismatchError("DefaultIfEmpty", "default of type %s is not assignable to %s",
			expr.TypeName(o.DefaultValue.Type()), expr.TypeName(seq.ItemType()))
	}
	return seq, nil
}

func (o *DefaultIfEmpty) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "DefaultIfEmpty", in)
	if err != nil {
		return nil, err
	}
	def := Zero(info.ItemType())
	if o.DefaultValue != nil {
		if def, err = env.Eval(o.DefaultValue); err != nil {
			return nil, err
		}
	}
	src := seq.Seq
	return StreamedSequence{DataInfo: info, Seq: func(yield func(any, error) bool) {
		empty := true
		for v, err := range src {
			empty = false
			if !yield(v, err) || err != nil {
				return
			}
		}
		if empty {
			yield(def, nil)
		}
	}}, nil
}

func (o *DefaultIfEmpty) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	if o.DefaultValue != nil {
		o.DefaultValue = fn(o.DefaultValue)
	}
}

func (o *DefaultIfEmpty) Clone(ctx *CloneContext) ResultOperator {
	return &DefaultIfEmpty{DefaultValue: ctx.Expr(o.DefaultValue)}
}

func (o *DefaultIfEmpty) String() string {
	if o.DefaultValue == nil {
		return "DefaultIfEmpty()"
	}
	return "DefaultIfEmpty(" + formatExpr(o.DefaultValue) + ")"
}

// AsQueryable passes the sequence through unchanged.
type AsQueryable struct{}

func (*AsQueryable) resultOperator() {}

func (o *AsQueryable) OutputInfo(in StreamedDataInfo) (StreamedDataInfo, error) {
	return sequenceInfo("AsQueryable", in)
}

func (o *AsQueryable) Execute(in StreamedData, env Env) (StreamedData, error) {
	seq, info, err := executeSequence(o, "AsQueryable", in)
	if err != nil {
		return nil, err
	}
	return StreamedSequence{DataInfo: info, Seq: seq.Seq}, nil
}

func (o *AsQueryable) TransformExpressions(func(expr.Expr) expr.Expr) {}
func (o *AsQueryable) Clone(*CloneContext) ResultOperator             { return &AsQueryable{} }
func (o *AsQueryable) String() string                                 { return "AsQueryable()" }
