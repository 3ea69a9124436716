package expr

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wrapper is a minimal Extension used to check that rewriting descends into
// foreign nodes.
type wrapper struct {
	inner Expr
}

func (w *wrapper) Type() reflect.Type { return w.inner.Type() }
func (w *wrapper) String() string     { return "{" + Format(w.inner) + "}" }

func (w *wrapper) VisitChildren(fn func(Expr) Expr) Expr {
	inner := fn(w.inner)
	if inner == w.inner {
		return w
	}
	return &wrapper{inner: inner}
}

func TestReplace_ByIdentity(t *testing.T) {
	x := NewParameter("x", int32Type)
	other := NewParameter("x", int32Type)
	body := NewBinary(Add, x, other)

	got := Replace(body, x, NewConstant(int32(5)))

	assert.Equal(t, "(5 + x)", got.String())
	assert.Equal(t, "(x + x)", body.String(), "original must be untouched")
}

func TestReplace_UnchangedSharesTree(t *testing.T) {
	x := NewParameter("x", int32Type)
	body := NewBinary(Add, x, NewConstant(int32(1)))

	got := Replace(body, NewParameter("y", int32Type), NewConstant(int32(5)))

	assert.Same(t, body, got)
}

func TestRewrite_DescendsIntoExtensions(t *testing.T) {
	x := NewParameter("x", int32Type)
	e := NewBinary(Equal, &wrapper{inner: x}, NewConstant(int32(1)))

	got := Replace(e, x, NewConstant(int32(9)))

	assert.Equal(t, "({9} == 1)", got.String())
}

func TestRewrite_BottomUp(t *testing.T) {
	x := NewParameter("x", int32Type)
	e := NewBinary(Add, NewBinary(Add, x, x), x)

	var order []string
	Rewrite(e, func(n Expr) Expr {
		order = append(order, n.String())
		return n
	})

	require.Len(t, order, 5)
	assert.Equal(t, "x", order[0])
	assert.Equal(t, "((x + x) + x)", order[4])
}

func TestWalk_SkipsChildren(t *testing.T) {
	x := NewParameter("x", int32Type)
	inner := NewBinary(Add, x, x)
	e := NewLambda(NewBinary(Multiply, inner, x), x)

	count := 0
	Walk(e, func(n Expr) bool {
		count++
		return n != Expr(inner)
	})

	// lambda, multiply, inner (children skipped), x
	assert.Equal(t, 4, count)
}

func TestContainsParameter(t *testing.T) {
	x := NewParameter("x", int32Type)
	y := NewParameter("y", int32Type)
	e := NewLambda(NewBinary(Add, x, NewConstant(int32(1))), x)

	assert.True(t, ContainsParameter(e, x))
	assert.False(t, ContainsParameter(e, y))
}
