package expr

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type person struct {
	Name string
	Age  int32
}

var (
	int32Type  = reflect.TypeFor[int32]()
	personType = reflect.TypeFor[person]()
)

func TestTypeName(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"int32", reflect.TypeFor[int32](), "Int32"},
		{"int64", reflect.TypeFor[int64](), "Int64"},
		{"int", reflect.TypeFor[int](), "Int"},
		{"float64", reflect.TypeFor[float64](), "Float64"},
		{"string", reflect.TypeFor[string](), "String"},
		{"bool", reflect.TypeFor[bool](), "Bool"},
		{"nullable", reflect.TypeFor[*int32](), "Int32?"},
		{"slice", reflect.TypeFor[[]int32](), "[]Int32"},
		{"named", personType, "person"},
		{"slice of named", reflect.TypeFor[[]person](), "[]person"},
		{"object", reflect.TypeFor[any](), "Object"},
		{"nil", nil, "null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TypeName(tt.typ))
		})
	}
}

func TestTypeName_AnonymousStruct(t *testing.T) {
	ti := TransparentIdentifier([]string{"c", "n"},
		NewParameter("c", personType), NewConstant(int32(1)))

	assert.Equal(t, "{C: person, N: Int32}", TypeName(ti.Type()))
}

func TestClassifyNumeric(t *testing.T) {
	tests := []struct {
		typ      reflect.Type
		kind     NumericKind
		nullable bool
	}{
		{reflect.TypeFor[int](), KindInt, false},
		{reflect.TypeFor[int32](), KindInt32, false},
		{reflect.TypeFor[int64](), KindInt64, false},
		{reflect.TypeFor[float32](), KindFloat32, false},
		{reflect.TypeFor[float64](), KindFloat64, false},
		{reflect.TypeFor[*int64](), KindInt64, true},
		{reflect.TypeFor[*float64](), KindFloat64, true},
		{reflect.TypeFor[string](), NotNumeric, false},
		{reflect.TypeFor[*string](), NotNumeric, false},
		{reflect.TypeFor[uint8](), NotNumeric, false},
	}

	for _, tt := range tests {
		t.Run(TypeName(tt.typ), func(t *testing.T) {
			kind, nullable := ClassifyNumeric(tt.typ)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.nullable, nullable)
		})
	}
}

func TestElementType(t *testing.T) {
	elem, ok := ElementType(reflect.TypeFor[[]string]())
	require.True(t, ok)
	assert.Equal(t, reflect.TypeFor[string](), elem)

	_, ok = ElementType(reflect.TypeFor[string]())
	assert.False(t, ok, "strings are not sequences")
}

func TestNewMember_ExportedLookup(t *testing.T) {
	ti := TransparentIdentifier([]string{"p", "q"},
		NewParameter("p", personType), NewParameter("q", int32Type))

	m := NewMember(ti, "q")

	assert.Equal(t, "Q", m.Name)
	assert.Equal(t, int32Type, m.Type())
}

func TestNewMember_UnknownFieldPanics(t *testing.T) {
	p := NewParameter("p", personType)

	assert.Panics(t, func() { NewMember(p, "Missing") })
}

func TestNewBinary_Types(t *testing.T) {
	x := NewParameter("x", int32Type)
	one := NewConstant(int32(1))

	assert.Equal(t, int32Type, NewBinary(Add, x, one).Type())
	assert.Equal(t, boolType, NewBinary(GreaterThan, x, one).Type())
	assert.Panics(t, func() { NewBinary(AndAlso, x, one) })
}

func TestLambda_Type(t *testing.T) {
	x := NewParameter("x", int32Type)
	l := NewLambda(NewBinary(GreaterThan, x, NewConstant(int32(2))), x)

	ft := l.Type()
	require.Equal(t, reflect.Func, ft.Kind())
	assert.Equal(t, int32Type, ft.In(0))
	assert.Equal(t, boolType, ft.Out(0))
}

func TestCall_Signature(t *testing.T) {
	src := NewConstant([]int32{1, 2})
	x := NewParameter("x", int32Type)
	call := NewCall(src.Type(), src, "Where", NewLambda(NewConstant(true), x))

	assert.Equal(t, "Where/1", call.Signature())
}

func TestNewTypedConstant_Nil(t *testing.T) {
	c := NewTypedConstant(nil, reflect.TypeFor[*int32]())

	assert.Nil(t, c.Value)
	assert.Equal(t, "null", c.String())
	assert.Panics(t, func() { NewConstant(nil) })
}
