package expr

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SeqOf returns the sequence type whose items have type t.
func SeqOf(t reflect.Type) reflect.Type {
	return reflect.SliceOf(t)
}

// IsSequence reports whether values of type t can be enumerated as a query
// source. Strings are deliberately not sequences.
func IsSequence(t reflect.Type) bool {
	if t == nil {
		return false
	}
	return t.Kind() == reflect.Slice || t.Kind() == reflect.Array
}

// ElementType returns the item type of a sequence type.
func ElementType(t reflect.Type) (reflect.Type, bool) {
	if !IsSequence(t) {
		return nil, false
	}
	return t.Elem(), true
}

// IsNullable reports whether t can hold a nil value.
func IsNullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// NumericKind is the closed set of element type categories that numeric
// result operators dispatch on.
type NumericKind int

const (
	NotNumeric NumericKind = iota
	KindInt
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
)

// String returns the canonical name of the kind.
func (k NumericKind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	default:
		return "NotNumeric"
	}
}

// ClassifyNumeric maps t onto the numeric kinds supported by aggregation.
// A pointer to a numeric type is the nullable form of that kind.
func ClassifyNumeric(t reflect.Type) (kind NumericKind, nullable bool) {
	if t == nil {
		return NotNumeric, false
	}
	if t.Kind() == reflect.Pointer {
		k, _ := ClassifyNumeric(t.Elem())
		if k == NotNumeric {
			return NotNumeric, false
		}
		return k, true
	}
	switch t.Kind() {
	case reflect.Int:
		return KindInt, false
	case reflect.Int32:
		return KindInt32, false
	case reflect.Int64:
		return KindInt64, false
	case reflect.Float32:
		return KindFloat32, false
	case reflect.Float64:
		return KindFloat64, false
	}
	return NotNumeric, false
}

// IsIntegerKind reports whether k is one of the integral kinds.
func IsIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

// IsUnsignedKind reports whether k is one of the unsigned integral kinds.
func IsUnsignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// IsFloatKind reports whether k is a floating point kind.
func IsFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// TypeName renders t in the canonical form used by query model strings.
//
// Named types render as their name, predeclared types as their capitalized
// kind (Int32, String), pointers as nullable (Int32?), slices as []Elem and
// anonymous structs as {A: Int32, B: String}.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "null"
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return TypeName(t.Elem()) + "?"
	case reflect.Slice:
		return "[]" + TypeName(t.Elem())
	case reflect.Array:
		return "[" + strconv.Itoa(t.Len()) + "]" + TypeName(t.Elem())
	case reflect.Map:
		return "map[" + TypeName(t.Key()) + "]" + TypeName(t.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return "Object"
		}
		return t.String()
	case reflect.Func:
		return "Func"
	case reflect.Struct:
		var sb strings.Builder
		sb.WriteByte('{')
		for i := 0; i < t.NumField(); i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			f := t.Field(i)
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(TypeName(f.Type))
		}
		sb.WriteByte('}')
		return sb.String()
	}
	return capitalize(t.Kind().String())
}

// ExportName turns a range variable name into a valid exported struct field
// name, as required by reflect.StructOf.
func ExportName(name string) string {
	if name == "" {
		return "X"
	}
	r, size := utf8.DecodeRuneInString(name)
	if !unicode.IsLetter(r) {
		return "X" + name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
