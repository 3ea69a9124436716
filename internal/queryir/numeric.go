package queryir

import (
	"cmp"
	"fmt"
	"reflect"
	"time"

	"github.com/roach88/querymodel/internal/expr"
)

// Numeric result operators know their element type only when the model is
// built. Execution classifies it into expr.NumericKind and selects one of the
// generic instantiations below by switching on that closed set.

type number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// deref unwraps a nullable item. ok is false for nil.
func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		return rv.Elem().Interface(), true
	}
	return v, true
}

func toNumber[T number](v any) T {
	if n, ok := v.(T); ok {
		return n
	}
	return reflect.ValueOf(v).Convert(reflect.TypeFor[T]()).Interface().(T)
}

// restore converts a computed value back to t, allocating for nullable t.
func restore(v any, t reflect.Type) any {
	rv := reflect.ValueOf(v)
	if t.Kind() == reflect.Pointer {
		p := reflect.New(t.Elem())
		p.Elem().Set(rv.Convert(t.Elem()))
		return p.Interface()
	}
	return rv.Convert(t).Interface()
}

func sumOf[T number](operator string, seq Sequence, elemType reflect.Type) (any, error) {
	var total T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		x, ok := deref(v)
		if !ok {
			continue
		}
		total += toNumber[T](x)
	}
	return restore(total, elemType), nil
}

func averageOf[T number](operator string, seq Sequence, elemType, outType reflect.Type) (any, error) {
	var total float64
	n := 0
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		x, ok := deref(v)
		if !ok {
			continue
		}
		total += float64(toNumber[T](x))
		n++
	}
	if n == 0 {
		if expr.IsNullable(elemType) {
			return Zero(outType), nil
		}
		return nil, NewExecutionError(operator, MsgNoElements)
	}
	return restore(total/float64(n), outType), nil
}

func extremeOf[T cmp.Ordered](operator string, seq Sequence, elemType reflect.Type, wantMax bool) (any, error) {
	var best T
	found := false
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		x, ok := deref(v)
		if !ok {
			continue
		}
		n := reflect.ValueOf(x).Convert(reflect.TypeFor[T]()).Interface().(T)
		if !found || (wantMax && n > best) || (!wantMax && n < best) {
			best = n
			found = true
		}
	}
	if !found {
		if expr.IsNullable(elemType) {
			return Zero(elemType), nil
		}
		return nil, NewExecutionError(operator, MsgNoElements)
	}
	return restore(best, elemType), nil
}

func dispatchSum(operator string, seq Sequence, elemType reflect.Type) (any, error) {
	kind, _ := expr.ClassifyNumeric(elemType)
	switch kind {
	case expr.KindInt:
		return sumOf[int](operator, seq, elemType)
	case expr.KindInt32:
		return sumOf[int32](operator, seq, elemType)
	case expr.KindInt64:
		return sumOf[int64](operator, seq, elemType)
	case expr.KindFloat32:
		return sumOf[float32](operator, seq, elemType)
	case expr.KindFloat64:
		return sumOf[float64](operator, seq, elemType)
	}
	return nil, NewExecutionError(operator, "cannot sum items of type %s", expr.TypeName(elemType))
}

func dispatchAverage(operator string, seq Sequence, elemType, outType reflect.Type) (any, error) {
	kind, _ := expr.ClassifyNumeric(elemType)
	switch kind {
	case expr.KindInt:
		return averageOf[int](operator, seq, elemType, outType)
	case expr.KindInt32:
		return averageOf[int32](operator, seq, elemType, outType)
	case expr.KindInt64:
		return averageOf[int64](operator, seq, elemType, outType)
	case expr.KindFloat32:
		return averageOf[float32](operator, seq, elemType, outType)
	case expr.KindFloat64:
		return averageOf[float64](operator, seq, elemType, outType)
	}
	return nil, NewExecutionError(operator, "cannot average items of type %s", expr.TypeName(elemType))
}

func dispatchExtreme(operator string, seq Sequence, elemType reflect.Type, wantMax bool) (any, error) {
	kind, _ := expr.ClassifyNumeric(elemType)
	switch kind {
	case expr.KindInt:
		return extremeOf[int](operator, seq, elemType, wantMax)
	case expr.KindInt32:
		return extremeOf[int32](operator, seq, elemType, wantMax)
	case expr.KindInt64:
		return extremeOf[int64](operator, seq, elemType, wantMax)
	case expr.KindFloat32:
		return extremeOf[float32](operator, seq, elemType, wantMax)
	case expr.KindFloat64:
		return extremeOf[float64](operator, seq, elemType, wantMax)
	}
	base := elemType
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.String {
		return extremeOf[string](operator, seq, elemType, wantMax)
	}
	return extremeByCompare(operator, seq, elemType, wantMax)
}

func extremeByCompare(operator string, seq Sequence, elemType reflect.Type, wantMax bool) (any, error) {
	var best any
	found := false
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		if _, ok := deref(v); !ok {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		c, err := Compare(v, best)
		if err != nil {
			return nil, NewExecutionError(operator, "%v", err)
		}
		if (wantMax && c > 0) || (!wantMax && c < 0) {
			best = v
		}
	}
	if !found {
		if expr.IsNullable(elemType) {
			return Zero(elemType), nil
		}
		return nil, NewExecutionError(operator, MsgNoElements)
	}
	return best, nil
}

// IsOrdered reports whether values of type t can be compared by Compare.
func IsOrdered(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == reflect.TypeFor[time.Time]() {
		return true
	}
	k := t.Kind()
	return expr.IsIntegerKind(k) || expr.IsUnsignedKind(k) || expr.IsFloatKind(k) ||
		k == reflect.String || k == reflect.Bool
}

// Compare orders two items. nil sorts before every other value.
func Compare(a, b any) (int, error) {
	a, aok := deref(a)
	b, bok := deref(b)
	switch {
	case !aok && !bok:
		return 0, nil
	case !aok:
		return -1, nil
	case !bok:
		return 1, nil
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb), nil
		}
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	ka, kb := ra.Kind(), rb.Kind()
	switch {
	case expr.IsIntegerKind(ka) && expr.IsIntegerKind(kb):
		return cmp.Compare(ra.Int(), rb.Int()), nil
	case expr.IsUnsignedKind(ka) && expr.IsUnsignedKind(kb):
		return cmp.Compare(ra.Uint(), rb.Uint()), nil
	case isNumericKind(ka) && isNumericKind(kb):
		return cmp.Compare(asFloat(ra), asFloat(rb)), nil
	case ka == reflect.String && kb == reflect.String:
		return cmp.Compare(ra.String(), rb.String()), nil
	case ka == reflect.Bool && kb == reflect.Bool:
		return cmp.Compare(boolRank(ra.Bool()), boolRank(rb.Bool())), nil
	}
	return 0, fmt.Errorf("values of type %s and %s are not ordered",
		expr.TypeName(ra.Type()), expr.TypeName(rb.Type()))
}

// Equal reports whether two items are equal, treating nullable items by
// value.
func Equal(a, b any) bool {
	a, aok := deref(a)
	b, bok := deref(b)
	if !aok || !bok {
		return aok == bok
	}
	if c, err := Compare(a, b); err == nil {
		return c == 0
	}
	return reflect.DeepEqual(a, b)
}

// KeyOf returns a map key identifying v by value. Values of non-comparable
// types are keyed by their Go syntax representation.
func KeyOf(v any) any {
	v, ok := deref(v)
	if !ok {
		return nil
	}
	t := reflect.TypeOf(v)
	if t.Comparable() && !containsInterface(t) {
		return v
	}
	return fmt.Sprintf("%#v", v)
}

func containsInterface(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return true
	case reflect.Array:
		return containsInterface(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if containsInterface(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}

func isNumericKind(k reflect.Kind) bool {
	return expr.IsIntegerKind(k) || expr.IsUnsignedKind(k) || expr.IsFloatKind(k)
}

func asFloat(v reflect.Value) float64 {
	switch {
	case expr.IsIntegerKind(v.Kind()):
		return float64(v.Int())
	case expr.IsUnsignedKind(v.Kind()):
		return float64(v.Uint())
	}
	return v.Float()
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
