package queryir

import (
	"log/slog"

	"github.com/mitchellh/copystructure"

	"github.com/roach88/querymodel/internal/expr"
)

// CloneContext maps query sources of a model being cloned to their copies.
type CloneContext struct {
	sources       map[QuerySource]QuerySource
	copyConstants bool
}

// NewCloneContext creates a context for a deep clone.
func NewCloneContext() *CloneContext {
	return &CloneContext{sources: make(map[QuerySource]QuerySource), copyConstants: true}
}

// newStructuralCloneContext copies clauses and operators but shares constant
// values.
func newStructuralCloneContext() *CloneContext {
	return &CloneContext{sources: make(map[QuerySource]QuerySource)}
}

// Map records that old was cloned into clone.
func (c *CloneContext) Map(old, clone QuerySource) {
	c.sources[old] = clone
}

// Lookup returns the copy of src, or src itself when it was not cloned (a
// reference to an enclosing model outside the cloned sub-tree).
func (c *CloneContext) Lookup(src QuerySource) QuerySource {
	if mapped, ok := c.sources[src]; ok {
		return mapped
	}
	return src
}

// Expr copies e: query source references are remapped, nested models are
// cloned with the same context and constants are deep-copied.
func (c *CloneContext) Expr(e expr.Expr) expr.Expr {
	if e == nil {
		return nil
	}
	return expr.RewriteTopDown(e, func(x expr.Expr) (expr.Expr, bool) {
		switch n := x.(type) {
		case *QuerySourceRef:
			return NewQuerySourceRef(c.Lookup(n.Source)), true
		case *SubQuery:
			return &SubQuery{Model: n.Model.CloneWith(c), typ: n.typ}, true
		case *expr.Constant:
			if !c.copyConstants {
				return n, true
			}
			return c.constant(n), true
		}
		return nil, false
	})
}

// Lambda copies a lambda expression.
func (c *CloneContext) Lambda(l *expr.Lambda) *expr.Lambda {
	if l == nil {
		return nil
	}
	return c.Expr(l).(*expr.Lambda)
}

func (c *CloneContext) constant(k *expr.Constant) *expr.Constant {
	if k.Value == nil {
		return expr.NewTypedConstant(nil, k.Type())
	}
	v, err := copystructure.Copy(k.Value)
	if err != nil {
		// Values copystructure cannot handle (funcs, channels) are shared.
		slog.Debug("sharing constant during clone", "type", expr.TypeName(k.Type()), "error", err)
		return expr.NewTypedConstant(k.Value, k.Type())
	}
	return expr.NewTypedConstant(v, k.Type())
}
