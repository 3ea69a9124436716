package queryir

import (
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
)

// QuerySourceRef is a placeholder expression meaning "the current item of
// query source Source". The resolver creates these; front-ends never do.
type QuerySourceRef struct {
	Source QuerySource
}

// NewQuerySourceRef creates a reference to src.
func NewQuerySourceRef(src QuerySource) *QuerySourceRef {
	return &QuerySourceRef{Source: src}
}

// Type returns the item type of the referenced source.
func (r *QuerySourceRef) Type() reflect.Type { return r.Source.ItemType() }

// String renders the reference as [name].
func (r *QuerySourceRef) String() string { return "[" + r.Source.ItemName() + "]" }

// VisitChildren returns r; a reference has no children.
func (r *QuerySourceRef) VisitChildren(func(expr.Expr) expr.Expr) expr.Expr { return r }

// SubQuery is an expression holding an independently built nested model.
// Its type is the nested model's output data type.
type SubQuery struct {
	Model *QueryModel
	typ   reflect.Type
}

// NewSubQuery wraps m. It fails when m's output type cannot be computed.
func NewSubQuery(m *QueryModel) (*SubQuery, error) {
	info, err := m.OutputInfo()
	if err != nil {
		return nil, err
	}
	return &SubQuery{Model: m, typ: info.DataType()}, nil
}

// Type returns the nested model's output data type.
func (s *SubQuery) Type() reflect.Type { return s.typ }

// String renders the nested model in braces.
func (s *SubQuery) String() string { return "{" + s.Model.String() + "}" }

// VisitChildren applies fn to every expression of the nested model. The model
// is copied first (without copying constant values) so the receiver is never
// mutated; the receiver is returned when fn changed nothing.
func (s *SubQuery) VisitChildren(fn func(expr.Expr) expr.Expr) expr.Expr {
	changed := false
	clone := s.Model.CloneWith(newStructuralCloneContext())
	clone.TransformExpressions(func(e expr.Expr) expr.Expr {
		r := fn(e)
		if r != e {
			changed = true
		}
		return r
	})
	if !changed {
		return s
	}
	return &SubQuery{Model: clone, typ: s.typ}
}

// sameExpr reports structural equality, comparing query source references by
// the identity of the referenced source.
func sameExpr(a, b expr.Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case *QuerySourceRef:
		y, ok := b.(*QuerySourceRef)
		return ok && x.Source == y.Source
	case *expr.Constant:
		y, ok := b.(*expr.Constant)
		return ok && reflect.DeepEqual(x.Value, y.Value)
	case *expr.Member:
		y, ok := b.(*expr.Member)
		return ok && x.Name == y.Name && sameExpr(x.Object, y.Object)
	case *expr.Unary:
		y, ok := b.(*expr.Unary)
		return ok && x.Op == y.Op && sameExpr(x.Operand, y.Operand)
	case *expr.Binary:
		y, ok := b.(*expr.Binary)
		return ok && x.Op == y.Op && sameExpr(x.Left, y.Left) && sameExpr(x.Right, y.Right)
	case *expr.New:
		y, ok := b.(*expr.New)
		if !ok || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if x.Members[i] != y.Members[i] || !sameExpr(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *expr.Call:
		y, ok := b.(*expr.Call)
		if !ok || x.Op != y.Op || len(x.Args) != len(y.Args) || !sameExpr(x.Source, y.Source) {
			return false
		}
		for i := range x.Args {
			if !sameExpr(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *expr.Conditional:
		y, ok := b.(*expr.Conditional)
		return ok && sameExpr(x.Test, y.Test) && sameExpr(x.IfTrue, y.IfTrue) && sameExpr(x.IfFalse, y.IfFalse)
	case *expr.TypeIs:
		y, ok := b.(*expr.TypeIs)
		return ok && x.Target == y.Target && sameExpr(x.Operand, y.Operand)
	}
	return false
}
