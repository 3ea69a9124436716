package queryir

import (
	"github.com/roach88/querymodel/internal/expr"
)

// ReverseResolve turns an expression written against query sources back into
// a lambda over one item described by itemExpression.
//
// Result operators hold resolved expressions (All's predicate references
// [c], not a parameter). To run them over a materialized sequence, every
// occurrence of the item expression, and every reference reachable from it
// through constructor members, is replaced by an accessor on a fresh item
// parameter. Computed constructor members such as new {A = [c].Age} are
// matched whole, so [c].Age becomes item.A.
func ReverseResolve(itemExpression, resolved expr.Expr) *expr.Lambda {
	item := expr.NewParameter("item", itemExpression.Type())
	return expr.NewLambda(reverseResolve(itemExpression, item, resolved), item)
}

// ReverseResolveLambda is ReverseResolve for a lambda whose body references
// the current item: a new item parameter is inserted at insertIndex into the
// lambda's parameter list. Aggregate uses it to turn acc => (acc + [i]) into
// (acc, item) => (acc + item).
func ReverseResolveLambda(itemExpression expr.Expr, l *expr.Lambda, insertIndex int) (*expr.Lambda, error) {
	if insertIndex < 0 || insertIndex > len(l.Params) {
		return nil, NewConfigurationError("", "insert index %d out of range for %d parameters",
			insertIndex, len(l.Params))
	}
	item := expr.NewParameter("item", itemExpression.Type())
	body := reverseResolve(itemExpression, item, l.Body)
	params := make([]*expr.Parameter, 0, len(l.Params)+1)
	params = append(params, l.Params[:insertIndex]...)
	params = append(params, item)
	params = append(params, l.Params[insertIndex:]...)
	return expr.NewLambda(body, params...), nil
}

func reverseResolve(itemExpression expr.Expr, item *expr.Parameter, e expr.Expr) expr.Expr {
	return expr.RewriteTopDown(e, func(x expr.Expr) (expr.Expr, bool) {
		if sameExpr(x, itemExpression) {
			return item, true
		}
		// Constants are never bound to a constructor member, even an equal one.
		if _, ok := x.(*expr.Constant); ok {
			return nil, false
		}
		if acc, found := findAccessor(x, itemExpression, item); found {
			return acc, true
		}
		if ref, ok := x.(*QuerySourceRef); ok {
			// References to enclosing scopes stay as they are.
			return ref, true
		}
		return nil, false
	})
}

// findAccessor locates x inside itemExpression, looking through nested
// constructor arguments, and returns the expression that reads it from
// input.
func findAccessor(x, itemExpression, input expr.Expr) (expr.Expr, bool) {
	if sameExpr(x, itemExpression) {
		return input, true
	}
	if it, ok := itemExpression.(*expr.New); ok {
		for i, arg := range it.Args {
			if acc, ok := findAccessor(x, arg, expr.NewMember(input, it.Members[i])); ok {
				return acc, true
			}
		}
	}
	return nil, false
}
