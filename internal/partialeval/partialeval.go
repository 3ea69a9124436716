// Package partialeval folds the parts of an expression tree that do not
// depend on lambda parameters into constants.
//
// A calling front-end captures local variables in closures, so a predicate
// like c => c.Age > limit.Min arrives as a member access on a constant
// holder. Folding turns that into c => (c.Age > 30) before the node chain is
// built, which keeps the query model free of front-end artifacts.
//
// RULES:
//
//   - Parameters, lambdas, operator calls and extension nodes are never
//     folded. Their children are still visited, so the constant parts of a
//     lambda body fold while the lambda itself stays.
//   - Every other node folds when all of its children fold and
//     Options.ShouldEvaluate (if set) agrees.
//   - Only maximal sub-trees are replaced. A node that fails to evaluate
//     (a nil dereference, an integer division by zero) is left in place so
//     the failure surfaces when the query executes.
package partialeval

import (
	"errors"
	"log/slog"
	"reflect"

	"github.com/roach88/querymodel/internal/exec"
	"github.com/roach88/querymodel/internal/expr"
)

// Evaluator rewrites an expression tree before the parser builds its node
// chain.
type Evaluator interface {
	Evaluate(e expr.Expr) (expr.Expr, error)
}

// Options configures a Folder.
type Options struct {
	// ShouldEvaluate vetoes folding of an otherwise eligible node. A nil
	// function folds every eligible node.
	ShouldEvaluate func(expr.Expr) bool
}

// Folder is the default Evaluator. It evaluates sub-trees with the
// in-memory interpreter.
type Folder struct {
	opts Options
}

var _ Evaluator = (*Folder)(nil)

// NewFolder creates a Folder.
func NewFolder(opts Options) *Folder {
	return &Folder{opts: opts}
}

// Evaluate returns e with every maximal parameter-free sub-tree replaced by
// a constant. The result shares unchanged sub-trees with e.
func (f *Folder) Evaluate(e expr.Expr) (expr.Expr, error) {
	if e == nil {
		return nil, errors.New("partialeval: nil expression")
	}
	eligible := f.nominate(e)
	folded := 0
	out := expr.RewriteTopDown(e, func(x expr.Expr) (expr.Expr, bool) {
		if !eligible[x] {
			return nil, false
		}
		if _, ok := x.(*expr.Constant); ok {
			return x, true
		}
		c, ok := fold(x)
		if !ok {
			return x, true
		}
		folded++
		return c, true
	})
	if folded > 0 {
		slog.Debug("partial evaluation", "folded", folded, "expression", out.String())
	}
	return out, nil
}

// nominate marks the nodes whose whole sub-tree can be evaluated.
func (f *Folder) nominate(e expr.Expr) map[expr.Expr]bool {
	eligible := make(map[expr.Expr]bool)
	var visit func(expr.Expr) bool
	visit = func(x expr.Expr) bool {
		ok := true
		for _, c := range expr.Children(x) {
			if !visit(c) {
				ok = false
			}
		}
		switch x.(type) {
		case *expr.Parameter, *expr.Lambda, *expr.Call, expr.Extension:
			ok = false
		}
		if ok && f.opts.ShouldEvaluate != nil && !f.opts.ShouldEvaluate(x) {
			ok = false
		}
		if ok {
			eligible[x] = true
		}
		return ok
	}
	visit(e)
	return eligible
}

func fold(x expr.Expr) (*expr.Constant, bool) {
	v, err := exec.Evaluate(x)
	if err != nil {
		slog.Debug("partial evaluation deferred", "expression", x.String(), "error", err)
		return nil, false
	}
	if v != nil && !reflect.TypeOf(v).AssignableTo(x.Type()) {
		slog.Debug("partial evaluation deferred", "expression", x.String(),
			"error", "value type "+expr.TypeName(reflect.TypeOf(v))+" does not match "+expr.TypeName(x.Type()))
		return nil, false
	}
	return expr.NewTypedConstant(v, x.Type()), true
}
