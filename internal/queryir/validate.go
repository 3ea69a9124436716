package queryir

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/querymodel/internal/expr"
)

// Validate checks the structural invariants of a query model:
//  1. A main from clause over an enumerable expression
//  2. Exactly one projection
//  3. No empty orderings
//  4. Bool predicates in where clauses
//  5. Query source references only to sources in scope (sources defined
//     earlier in the same model, or in an enclosing model for sub-queries)
//  6. A computable output type (every result operator accepts its input)
//
// All problems are reported, not just the first. The returned error is a
// *multierror.Error whose entries are *Error values, or nil.
//
// Validate is a pure function with no side effects.
func Validate(m *QueryModel) error {
	v := &validator{}
	v.validateModel(m, nil)
	return v.errs.ErrorOrNil()
}

// validator accumulates problems during traversal.
type validator struct {
	errs *multierror.Error
}

// addProblem records a problem.
func (v *validator) addProblem(err error) {
	v.errs = multierror.Append(v.errs, err)
}

// addf records a configuration problem built from a format string.
func (v *validator) addf(operator, format string, args ...any) {
	v.addProblem(NewConfigurationError(operator, format, args...))
}

// validateModel validates m. outer holds the sources visible from enclosing
// models.
func (v *validator) validateModel(m *QueryModel, outer map[QuerySource]bool) {
	if m == nil {
		v.addf("", "nil query model")
		return
	}
	scope := make(map[QuerySource]bool, len(outer)+4)
	for src := range outer {
		scope[src] = true
	}

	if m.MainFromClause == nil {
		v.addf("from", "query model has no main from clause")
		return
	}
	v.validateFrom("from", m.MainFromClause.FromExpression, scope)
	scope[m.MainFromClause] = true

	for i, c := range m.BodyClauses {
		v.validateBodyClause(c, i, scope)
	}

	switch p := m.Projection.(type) {
	case nil:
		v.addf("select", "query model has no projection")
		return
	case *SelectClause:
		v.validateExpr("select", p.Selector, scope)
	case *GroupClause:
		v.validateExpr("group", p.KeySelector, scope)
		v.validateExpr("group", p.ElementSelector, scope)
		scope[p] = true
	default:
		v.addf("", "unknown projection type: %T", m.Projection)
	}

	for _, op := range m.ResultOperators {
		op.TransformExpressions(func(e expr.Expr) expr.Expr {
			v.validateExpr(op.String(), e, scope)
			return e
		})
	}

	if _, err := m.OutputInfo(); err != nil {
		v.addProblem(err)
	}
}

// validateBodyClause validates one body clause and adds the source it defines
// to scope.
func (v *validator) validateBodyClause(c BodyClause, index int, scope map[QuerySource]bool) {
	name := fmt.Sprintf("body clause %d", index)
	switch clause := c.(type) {
	case *AdditionalFromClause:
		v.validateFrom(name, clause.FromExpression, scope)
		scope[clause] = true
	case *WhereClause:
		v.validateExpr(name, clause.Predicate, scope)
		if clause.Predicate != nil && clause.Predicate.Type() != boolType {
			v.addf(name, "where predicate must be Bool, got %s", expr.TypeName(clause.Predicate.Type()))
		}
	case *OrderByClause:
		if len(clause.Orderings) == 0 {
			v.addf(name, "orderby clause has no orderings")
		}
		for _, o := range clause.Orderings {
			v.validateExpr(name, o.Expression, scope)
		}
	case *JoinClause:
		v.validateJoin(name, clause, scope)
	case *GroupJoinClause:
		v.validateJoin(name, clause.JoinClause, scope)
		scope[clause] = true
	default:
		v.addf(name, "unknown body clause type: %T", c)
	}
}

func (v *validator) validateJoin(name string, j *JoinClause, scope map[QuerySource]bool) {
	v.validateFrom(name, j.InnerSequence, scope)
	v.validateExpr(name, j.OuterKeySelector, scope)
	scope[j] = true
	v.validateExpr(name, j.InnerKeySelector, scope)
	if j.OuterKeySelector != nil && j.InnerKeySelector != nil &&
		j.OuterKeySelector.Type() != j.InnerKeySelector.Type() {
		v.addf(name, "join keys have different types: %s and %s",
			expr.TypeName(j.OuterKeySelector.Type()), expr.TypeName(j.InnerKeySelector.Type()))
	}
}

func (v *validator) validateFrom(name string, from expr.Expr, scope map[QuerySource]bool) {
	if from == nil {
		v.addf(name, "missing source expression")
		return
	}
	if !expr.IsSequence(from.Type()) {
		v.addf(name, "source %s is not enumerable", formatExpr(from))
	}
	v.validateExpr(name, from, scope)
}

// validateExpr reports references to sources outside scope and validates
// nested models with scope as their outer scope.
func (v *validator) validateExpr(name string, e expr.Expr, scope map[QuerySource]bool) {
	if e == nil {
		v.addf(name, "missing expression")
		return
	}
	expr.Walk(e, func(x expr.Expr) bool {
		switch n := x.(type) {
		case *QuerySourceRef:
			if !scope[n.Source] {
				v.addProblem(NewResolutionError(n.String(), "reference to query source %q which is not in scope", n.Source.ItemName()))
			}
		case *SubQuery:
			v.validateModel(n.Model, scope)
			return false
		}
		return true
	})
}
