package expr

import (
	"fmt"
	"reflect"
	"strconv"
)

// Expr is a node of the expression tree.
//
// The built-in node shapes are listed in the package documentation. Nodes
// defined elsewhere implement Extension.
type Expr interface {
	// Type returns the static type of the value the node produces.
	Type() reflect.Type

	// String returns the canonical text form of the node (see Format).
	String() string
}

// Extension is implemented by expression nodes defined outside this package.
type Extension interface {
	Expr

	// VisitChildren returns the node rebuilt with fn applied to each child
	// expression. It returns the receiver itself when fn changed nothing.
	VisitChildren(fn func(Expr) Expr) Expr
}

var boolType = reflect.TypeFor[bool]()

// Constant is a leaf holding a value.
type Constant struct {
	Value any
	typ   reflect.Type
}

// NewConstant creates a constant whose static type is the dynamic type of v.
// Use NewTypedConstant for nil values or interface-typed constants.
func NewConstant(v any) *Constant {
	if v == nil {
		panic("expr: NewConstant(nil) has no type; use NewTypedConstant")
	}
	return &Constant{Value: v, typ: reflect.TypeOf(v)}
}

// NewTypedConstant creates a constant with an explicit static type.
func NewTypedConstant(v any, t reflect.Type) *Constant {
	if v != nil && !reflect.TypeOf(v).AssignableTo(t) {
		panic(fmt.Sprintf("expr: constant of type %s is not assignable to %s", reflect.TypeOf(v), t))
	}
	return &Constant{Value: v, typ: t}
}

func (c *Constant) Type() reflect.Type { return c.typ }
func (c *Constant) String() string     { return Format(c) }

// Parameter is a lambda parameter. Two parameters are the same parameter only
// if they are the same pointer.
type Parameter struct {
	Name string
	typ  reflect.Type
}

// NewParameter creates a parameter.
func NewParameter(name string, t reflect.Type) *Parameter {
	return &Parameter{Name: name, typ: t}
}

func (p *Parameter) Type() reflect.Type { return p.typ }
func (p *Parameter) String() string     { return Format(p) }

// Member is a field access on a struct or pointer-to-struct value.
type Member struct {
	Object Expr
	Name   string
	typ    reflect.Type
}

// NewMember creates a field access. The name is matched exactly first and
// then in its exported form, so range variable names work on transparent
// identifiers.
func NewMember(obj Expr, name string) *Member {
	st := obj.Type()
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		panic(fmt.Sprintf("expr: member %q accessed on non-struct type %s", name, TypeName(obj.Type())))
	}
	f, ok := st.FieldByName(name)
	if !ok {
		f, ok = st.FieldByName(ExportName(name))
	}
	if !ok {
		panic(fmt.Sprintf("expr: type %s has no field %q", TypeName(st), name))
	}
	return &Member{Object: obj, Name: f.Name, typ: f.Type}
}

func (m *Member) Type() reflect.Type { return m.typ }
func (m *Member) String() string     { return Format(m) }

// Lambda is a function literal.
type Lambda struct {
	Params []*Parameter
	Body   Expr
}

// NewLambda creates a function literal.
func NewLambda(body Expr, params ...*Parameter) *Lambda {
	return &Lambda{Params: params, Body: body}
}

// Type returns the func type of the literal.
func (l *Lambda) Type() reflect.Type {
	in := make([]reflect.Type, len(l.Params))
	for i, p := range l.Params {
		in[i] = p.Type()
	}
	return reflect.FuncOf(in, []reflect.Type{l.Body.Type()}, false)
}

func (l *Lambda) String() string { return Format(l) }

// New constructs a struct value from named members.
type New struct {
	Members []string
	Args    []Expr
	typ     reflect.Type
}

// NewObject creates a constructor node. members and args are parallel.
func NewObject(t reflect.Type, members []string, args ...Expr) *New {
	if len(members) != len(args) {
		panic(fmt.Sprintf("expr: %d members but %d arguments", len(members), len(args)))
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("expr: cannot construct non-struct type %s", TypeName(t)))
	}
	resolved := make([]string, len(members))
	for i, m := range members {
		f, ok := t.FieldByName(m)
		if !ok {
			f, ok = t.FieldByName(ExportName(m))
		}
		if !ok {
			panic(fmt.Sprintf("expr: type %s has no field %q", TypeName(t), m))
		}
		resolved[i] = f.Name
	}
	return &New{Members: resolved, Args: args, typ: t}
}

// TransparentIdentifier creates the wrapper object a front-end inserts to
// carry several range variables through a single lambda parameter. The struct
// type is synthesized from the member names and argument types.
func TransparentIdentifier(members []string, args ...Expr) *New {
	fields := make([]reflect.StructField, len(members))
	for i, m := range members {
		fields[i] = reflect.StructField{Name: ExportName(m), Type: args[i].Type()}
	}
	return NewObject(reflect.StructOf(fields), members, args...)
}

func (n *New) Type() reflect.Type { return n.typ }
func (n *New) String() string     { return Format(n) }

// Call is a query operator invocation: Source.Op(Args...).
type Call struct {
	Source Expr
	Op     string
	Args   []Expr
	typ    reflect.Type
}

// NewCall creates an operator invocation producing a value of type t.
func NewCall(t reflect.Type, source Expr, op string, args ...Expr) *Call {
	return &Call{Source: source, Op: op, Args: args, typ: t}
}

// Signature identifies the operator overload: name and argument count.
func (c *Call) Signature() string {
	return Signature(c.Op, len(c.Args))
}

func (c *Call) Type() reflect.Type { return c.typ }
func (c *Call) String() string     { return Format(c) }

// Signature formats an operator signature key.
func Signature(op string, arity int) string {
	return op + "/" + strconv.Itoa(arity)
}

// BinaryOp enumerates binary operators.
type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Modulo
	Equal
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	AndAlso
	OrElse
)

var binarySymbols = [...]string{
	Add:                "+",
	Subtract:           "-",
	Multiply:           "*",
	Divide:             "/",
	Modulo:             "%",
	Equal:              "==",
	NotEqual:           "!=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	AndAlso:            "&&",
	OrElse:             "||",
}

// String returns the operator symbol.
func (op BinaryOp) String() string {
	if int(op) < len(binarySymbols) {
		return binarySymbols[op]
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsComparison reports whether the operator yields a bool from two operands
// of the same type.
func (op BinaryOp) IsComparison() bool {
	return op >= Equal && op <= GreaterThanOrEqual
}

// IsLogical reports whether the operator is && or ||.
func (op BinaryOp) IsLogical() bool {
	return op == AndAlso || op == OrElse
}

// Binary is a binary operation.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	typ   reflect.Type
}

// NewBinary creates a binary operation. Comparisons and logical operators are
// Bool typed; arithmetic takes the type of the left operand.
func NewBinary(op BinaryOp, left, right Expr) *Binary {
	t := left.Type()
	if op.IsComparison() || op.IsLogical() {
		t = boolType
	}
	if op.IsLogical() && (left.Type() != boolType || right.Type() != boolType) {
		panic(fmt.Sprintf("expr: operator %s requires Bool operands, got %s and %s",
			op, TypeName(left.Type()), TypeName(right.Type())))
	}
	return &Binary{Op: op, Left: left, Right: right, typ: t}
}

func (b *Binary) Type() reflect.Type { return b.typ }
func (b *Binary) String() string     { return Format(b) }

// UnaryOp enumerates unary operators.
type UnaryOp int

const (
	Not UnaryOp = iota
	Negate
	Convert
)

// Unary is a unary operation. For Convert the node type is the target type.
type Unary struct {
	Op      UnaryOp
	Operand Expr
	typ     reflect.Type
}

// NewNot negates a Bool expression.
func NewNot(operand Expr) *Unary {
	if operand.Type() != boolType {
		panic(fmt.Sprintf("expr: Not requires a Bool operand, got %s", TypeName(operand.Type())))
	}
	return &Unary{Op: Not, Operand: operand, typ: boolType}
}

// NewNegate creates arithmetic negation.
func NewNegate(operand Expr) *Unary {
	return &Unary{Op: Negate, Operand: operand, typ: operand.Type()}
}

// NewConvert creates a type conversion to t.
func NewConvert(operand Expr, t reflect.Type) *Unary {
	return &Unary{Op: Convert, Operand: operand, typ: t}
}

func (u *Unary) Type() reflect.Type { return u.typ }
func (u *Unary) String() string     { return Format(u) }

// TypeIs tests whether the operand's dynamic type is assignable to Target.
type TypeIs struct {
	Operand Expr
	Target  reflect.Type
}

// NewTypeIs creates a runtime type test.
func NewTypeIs(operand Expr, target reflect.Type) *TypeIs {
	return &TypeIs{Operand: operand, Target: target}
}

func (t *TypeIs) Type() reflect.Type { return boolType }
func (t *TypeIs) String() string     { return Format(t) }

// Conditional is test ? ifTrue : ifFalse.
type Conditional struct {
	Test    Expr
	IfTrue  Expr
	IfFalse Expr
}

// NewConditional creates a conditional expression.
func NewConditional(test, ifTrue, ifFalse Expr) *Conditional {
	if test.Type() != boolType {
		panic(fmt.Sprintf("expr: conditional test must be Bool, got %s", TypeName(test.Type())))
	}
	return &Conditional{Test: test, IfTrue: ifTrue, IfFalse: ifFalse}
}

func (c *Conditional) Type() reflect.Type { return c.IfTrue.Type() }
func (c *Conditional) String() string     { return Format(c) }
