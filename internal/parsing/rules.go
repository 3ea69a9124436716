package parsing

import (
	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// InlineTransparentIdentifiers replaces a member read on a constructor with
// the constructor's matching argument:
//
//	new {c = [c], o = [o]}.o.Amount  →  [o].Amount
//
// Constructors like this appear when a selector that combined two sources
// is substituted into the next lambda.
func InlineTransparentIdentifiers(e expr.Expr) expr.Expr {
	return expr.Rewrite(e, func(x expr.Expr) expr.Expr {
		m, ok := x.(*expr.Member)
		if !ok {
			return x
		}
		n, ok := m.Object.(*expr.New)
		if !ok {
			return x
		}
		for i, name := range n.Members {
			if expr.ExportName(name) == m.Name {
				return n.Args[i]
			}
		}
		return x
	})
}

// FindSubQueries replaces every registered operator call on a sequence with
// a SubQuery holding the call's own query model. The outermost call wins;
// calls nested inside it belong to the sub-query. Calls on other values
// (c.Name.StartsWith("A")) are left alone.
func FindSubQueries(e expr.Expr, ctx *BuildContext) (expr.Expr, error) {
	var firstErr error
	out := expr.RewriteTopDown(e, func(x expr.Expr) (expr.Expr, bool) {
		if firstErr != nil {
			return x, true
		}
		call, ok := x.(*expr.Call)
		if !ok || !expr.IsSequence(call.Source.Type()) {
			return nil, false
		}
		if _, ok := ctx.registry.Lookup(call.Signature()); !ok {
			return nil, false
		}
		m, err := ctx.child().model(call)
		if err != nil {
			firstErr = err
			return x, true
		}
		sq, err := queryir.NewSubQuery(m)
		if err != nil {
			firstErr = err
			return x, true
		}
		return sq, true
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
