package queryir

import (
	"fmt"
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
)

// StreamedDataInfo describes the data flowing between the projection and the
// result operators of a query model, computed without executing anything.
//
// It is a sealed union: StreamedSequenceInfo, StreamedScalarInfo and
// StreamedSingleInfo.
type StreamedDataInfo interface {
	streamedDataInfo()

	// DataType is the Go type of the streamed data. For sequences it is the
	// slice type.
	DataType() reflect.Type
}

// StreamedSequenceInfo describes a sequence of items.
type StreamedSequenceInfo struct {
	// Type is the sequence (slice) type.
	Type reflect.Type

	// ItemExpression describes one item in terms of the query sources of
	// the model producing it.
	ItemExpression expr.Expr
}

func (StreamedSequenceInfo) streamedDataInfo() {}

// DataType returns the sequence type.
func (i StreamedSequenceInfo) DataType() reflect.Type { return i.Type }

// ItemType returns the element type.
func (i StreamedSequenceInfo) ItemType() reflect.Type { return i.Type.Elem() }

// StreamedScalarInfo describes a value computed from a whole sequence (Count,
// Sum, Aggregate).
type StreamedScalarInfo struct {
	Type reflect.Type
}

func (StreamedScalarInfo) streamedDataInfo() {}

// DataType returns the scalar type.
func (i StreamedScalarInfo) DataType() reflect.Type { return i.Type }

// StreamedSingleInfo describes one item picked from a sequence (First, Last,
// Single, Min, Max).
type StreamedSingleInfo struct {
	Type                   reflect.Type
	ReturnDefaultWhenEmpty bool
}

func (StreamedSingleInfo) streamedDataInfo() {}

// DataType returns the item type.
func (i StreamedSingleInfo) DataType() reflect.Type { return i.Type }

// StreamedData is runtime data paired with its descriptor.
type StreamedData interface {
	streamedData()
	Info() StreamedDataInfo
}

// StreamedSequence is a lazily enumerated sequence.
type StreamedSequence struct {
	DataInfo StreamedSequenceInfo
	Seq      Sequence
}

func (StreamedSequence) streamedData() {}

// Info returns the descriptor.
func (s StreamedSequence) Info() StreamedDataInfo { return s.DataInfo }

// StreamedValue is a scalar or single value.
type StreamedValue struct {
	DataInfo StreamedDataInfo
	Value    any
}

func (StreamedValue) streamedData() {}

// Info returns the descriptor.
func (v StreamedValue) Info() StreamedDataInfo { return v.DataInfo }

// Func is a callable compiled from a lambda.
type Func func(args ...any) (any, error)

// Env is the evaluation environment result operators execute against. The
// in-memory executor implements it.
type Env interface {
	// Eval evaluates an expression in the current scope.
	Eval(e expr.Expr) (any, error)

	// Func compiles a lambda in the current scope.
	Func(l *expr.Lambda) (Func, error)
}

// sequenceInfo asserts that an operator receives a sequence.
func sequenceInfo(operator string, in StreamedDataInfo) (StreamedSequenceInfo, error) {
	seq, ok := in.(StreamedSequenceInfo)
	if !ok {
		return StreamedSequenceInfo{}, NewTypeMismatchError(operator,
			"expected a sequence input, got %s", describeInfo(in))
	}
	return seq, nil
}

// sequenceInput asserts that an operator receives runtime sequence data.
func sequenceInput(operator string, in StreamedData) (StreamedSequence, error) {
	seq, ok := in.(StreamedSequence)
	if !ok {
		return StreamedSequence{}, NewExecutionError(operator,
			"expected a sequence input, got %s", describeInfo(in.Info()))
	}
	return seq, nil
}

func describeInfo(in StreamedDataInfo) string {
	if in == nil {
		return "nothing"
	}
	switch in.(type) {
	case StreamedSequenceInfo:
		return fmt.Sprintf("sequence %s", expr.TypeName(in.DataType()))
	case StreamedScalarInfo:
		return fmt.Sprintf("scalar %s", expr.TypeName(in.DataType()))
	default:
		return fmt.Sprintf("single %s", expr.TypeName(in.DataType()))
	}
}
