package queryir

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
)

// Sequence is a pull-based lazy sequence of items. Iteration stops at the
// first non-nil error.
type Sequence = iter.Seq2[any, error]

// FromSlice enumerates a slice or array value.
func FromSlice(s any) (Sequence, error) {
	rv := reflect.ValueOf(s)
	if !rv.IsValid() {
		return nil, fmt.Errorf("cannot enumerate nil")
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot enumerate value of type %s", expr.TypeName(rv.Type()))
	}
	return func(yield func(any, error) bool) {
		for i := 0; i < rv.Len(); i++ {
			if !yield(rv.Index(i).Interface(), nil) {
				return
			}
		}
	}, nil
}

// FromValues enumerates items.
func FromValues(items []any) Sequence {
	return func(yield func(any, error) bool) {
		for _, it := range items {
			if !yield(it, nil) {
				return
			}
		}
	}
}

// Fail returns a sequence that yields err and stops.
func Fail(err error) Sequence {
	return func(yield func(any, error) bool) {
		yield(nil, err)
	}
}

// Collect drains seq.
func Collect(seq Sequence) ([]any, error) {
	var out []any
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ToSlice drains seq into a typed slice of the given sequence type.
func ToSlice(seq Sequence, sliceType reflect.Type) (any, error) {
	items, err := Collect(seq)
	if err != nil {
		return nil, err
	}
	return MakeSlice(items, sliceType)
}

// MakeSlice converts items into a typed slice of sliceType.
func MakeSlice(items []any, sliceType reflect.Type) (any, error) {
	out := reflect.MakeSlice(sliceType, len(items), len(items))
	elem := sliceType.Elem()
	for i, it := range items {
		v, err := ValueOf(it, elem)
		if err != nil {
			return nil, err
		}
		out.Index(i).Set(v)
	}
	return out.Interface(), nil
}

// ValueOf converts a dynamically typed item into a reflect.Value of type t.
// nil becomes the zero value.
func ValueOf(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	}
	if rv.Type().ConvertibleTo(t) && !isStringConversion(rv.Type(), t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %s is not assignable to %s",
		expr.TypeName(rv.Type()), expr.TypeName(t))
}

// isStringConversion reports the int->string conversion reflect allows but
// which never makes sense for query data.
func isStringConversion(from, to reflect.Type) bool {
	return to.Kind() == reflect.String && from.Kind() != reflect.String
}

// Zero returns the default value of t as an item.
func Zero(t reflect.Type) any {
	return reflect.Zero(t).Interface()
}
