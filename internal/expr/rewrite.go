package expr

// Rewrite rebuilds e bottom-up. Children are rewritten first, then fn is
// applied to the (possibly rebuilt) node; fn returns its argument unchanged to
// keep a node. Unchanged sub-trees are shared, not copied.
func Rewrite(e Expr, fn func(Expr) Expr) Expr {
	if e == nil {
		return nil
	}
	return fn(rebuildChildren(e, func(c Expr) Expr { return Rewrite(c, fn) }))
}

// RewriteTopDown visits nodes before their children. When fn reports true the
// returned node replaces the visited one and its sub-tree is not descended.
func RewriteTopDown(e Expr, fn func(Expr) (Expr, bool)) Expr {
	if e == nil {
		return nil
	}
	if r, ok := fn(e); ok {
		return r
	}
	return rebuildChildren(e, func(c Expr) Expr { return RewriteTopDown(c, fn) })
}

// Replace substitutes every occurrence of from (by identity) with to.
func Replace(e Expr, from, to Expr) Expr {
	return RewriteTopDown(e, func(x Expr) (Expr, bool) {
		if x == from {
			return to, true
		}
		return nil, false
	})
}

// Walk calls fn for e and then, if fn returns true, for each child in order.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Children returns the direct child expressions of e in evaluation order.
func Children(e Expr) []Expr {
	var out []Expr
	rebuildChildren(e, func(c Expr) Expr {
		out = append(out, c)
		return c
	})
	return out
}

// ContainsParameter reports whether p occurs anywhere within e.
func ContainsParameter(e Expr, p *Parameter) bool {
	found := false
	Walk(e, func(x Expr) bool {
		if x == Expr(p) {
			found = true
		}
		return !found
	})
	return found
}

// rebuildChildren applies fn to each child of e and returns a copy of e with
// the results, or e itself when every child came back unchanged.
func rebuildChildren(e Expr, fn func(Expr) Expr) Expr {
	switch n := e.(type) {
	case *Constant, *Parameter:
		return e

	case *Member:
		obj := fn(n.Object)
		if obj == n.Object {
			return n
		}
		return &Member{Object: obj, Name: n.Name, typ: n.typ}

	case *Lambda:
		body := fn(n.Body)
		if body == n.Body {
			return n
		}
		return &Lambda{Params: n.Params, Body: body}

	case *New:
		args, changed := mapExprs(n.Args, fn)
		if !changed {
			return n
		}
		return &New{Members: n.Members, Args: args, typ: n.typ}

	case *Call:
		src := fn(n.Source)
		args, changed := mapExprs(n.Args, fn)
		if !changed && src == n.Source {
			return n
		}
		return &Call{Source: src, Op: n.Op, Args: args, typ: n.typ}

	case *Binary:
		l, r := fn(n.Left), fn(n.Right)
		if l == n.Left && r == n.Right {
			return n
		}
		return &Binary{Op: n.Op, Left: l, Right: r, typ: n.typ}

	case *Unary:
		op := fn(n.Operand)
		if op == n.Operand {
			return n
		}
		return &Unary{Op: n.Op, Operand: op, typ: n.typ}

	case *TypeIs:
		op := fn(n.Operand)
		if op == n.Operand {
			return n
		}
		return &TypeIs{Operand: op, Target: n.Target}

	case *Conditional:
		t, a, b := fn(n.Test), fn(n.IfTrue), fn(n.IfFalse)
		if t == n.Test && a == n.IfTrue && b == n.IfFalse {
			return n
		}
		return &Conditional{Test: t, IfTrue: a, IfFalse: b}

	case Extension:
		return n.VisitChildren(fn)
	}
	return e
}

func mapExprs(in []Expr, fn func(Expr) Expr) ([]Expr, bool) {
	changed := false
	out := make([]Expr, len(in))
	for i, a := range in {
		out[i] = fn(a)
		if out[i] != a {
			changed = true
		}
	}
	return out, changed
}
