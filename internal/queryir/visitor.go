package queryir

import "fmt"

// Visitor is the read-only output boundary of a query model: one callback per
// clause kind and one per result operator kind. Walk drives the traversal in
// clause order; embed NopVisitor to implement only the callbacks of interest.
//
// Nested models inside SubQuery expressions are not entered automatically.
// A visitor that wants them calls Walk on SubQuery.Model itself.
type Visitor interface {
	VisitQueryModel(m *QueryModel) error
	VisitMainFromClause(c *MainFromClause, m *QueryModel) error
	VisitAdditionalFromClause(c *AdditionalFromClause, m *QueryModel, index int) error
	VisitWhereClause(c *WhereClause, m *QueryModel, index int) error
	VisitOrderByClause(c *OrderByClause, m *QueryModel, index int) error
	VisitOrdering(o *Ordering, m *QueryModel, c *OrderByClause, index int) error
	VisitJoinClause(c *JoinClause, m *QueryModel, index int) error
	VisitGroupJoinClause(c *GroupJoinClause, m *QueryModel, index int) error
	VisitSelectClause(c *SelectClause, m *QueryModel) error
	VisitGroupClause(c *GroupClause, m *QueryModel) error

	VisitAny(op *Any, m *QueryModel, index int) error
	VisitAll(op *All, m *QueryModel, index int) error
	VisitCount(op *Count, m *QueryModel, index int) error
	VisitLongCount(op *LongCount, m *QueryModel, index int) error
	VisitContains(op *Contains, m *QueryModel, index int) error
	VisitFirst(op *First, m *QueryModel, index int) error
	VisitLast(op *Last, m *QueryModel, index int) error
	VisitSingle(op *Single, m *QueryModel, index int) error
	VisitMin(op *Min, m *QueryModel, index int) error
	VisitMax(op *Max, m *QueryModel, index int) error
	VisitSum(op *Sum, m *QueryModel, index int) error
	VisitAverage(op *Average, m *QueryModel, index int) error
	VisitAggregate(op *Aggregate, m *QueryModel, index int) error
	VisitAggregateFromSeed(op *AggregateFromSeed, m *QueryModel, index int) error
	VisitDistinct(op *Distinct, m *QueryModel, index int) error
	VisitTake(op *Take, m *QueryModel, index int) error
	VisitSkip(op *Skip, m *QueryModel, index int) error
	VisitCast(op *Cast, m *QueryModel, index int) error
	VisitOfType(op *OfType, m *QueryModel, index int) error
	VisitUnion(op *Union, m *QueryModel, index int) error
	VisitExcept(op *Except, m *QueryModel, index int) error
	VisitIntersect(op *Intersect, m *QueryModel, index int) error
	VisitConcat(op *Concat, m *QueryModel, index int) error
	VisitReverse(op *Reverse, m *QueryModel, index int) error
	VisitDefaultIfEmpty(op *DefaultIfEmpty, m *QueryModel, index int) error
	VisitAsQueryable(op *AsQueryable, m *QueryModel, index int) error
}

// Walk visits m depth-first: the model, its main from clause, each body
// clause (with the orderings of an OrderByClause), the projection and each
// result operator, stopping at the first error.
func Walk(v Visitor, m *QueryModel) error {
	if err := v.VisitQueryModel(m); err != nil {
		return err
	}
	if err := v.VisitMainFromClause(m.MainFromClause, m); err != nil {
		return err
	}
	for i, c := range m.BodyClauses {
		if err := walkBodyClause(v, m, c, i); err != nil {
			return err
		}
	}
	switch p := m.Projection.(type) {
	case *SelectClause:
		if err := v.VisitSelectClause(p, m); err != nil {
			return err
		}
	case *GroupClause:
		if err := v.VisitGroupClause(p, m); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown projection type: %T", m.Projection)
	}
	for i, op := range m.ResultOperators {
		if err := walkResultOperator(v, m, op, i); err != nil {
			return err
		}
	}
	return nil
}

func walkBodyClause(v Visitor, m *QueryModel, c BodyClause, i int) error {
	switch clause := c.(type) {
	case *AdditionalFromClause:
		return v.VisitAdditionalFromClause(clause, m, i)
	case *WhereClause:
		return v.VisitWhereClause(clause, m, i)
	case *OrderByClause:
		if err := v.VisitOrderByClause(clause, m, i); err != nil {
			return err
		}
		for j, o := range clause.Orderings {
			if err := v.VisitOrdering(o, m, clause, j); err != nil {
				return err
			}
		}
		return nil
	case *JoinClause:
		return v.VisitJoinClause(clause, m, i)
	case *GroupJoinClause:
		return v.VisitGroupJoinClause(clause, m, i)
	default:
		return fmt.Errorf("unknown body clause type: %T", c)
	}
}

func walkResultOperator(v Visitor, m *QueryModel, op ResultOperator, i int) error {
	switch o := op.(type) {
	case *Any:
		return v.VisitAny(o, m, i)
	case *All:
		return v.VisitAll(o, m, i)
	case *Count:
		return v.VisitCount(o, m, i)
	case *LongCount:
		return v.VisitLongCount(o, m, i)
	case *Contains:
		return v.VisitContains(o, m, i)
	case *First:
		return v.VisitFirst(o, m, i)
	case *Last:
		return v.VisitLast(o, m, i)
	case *Single:
		return v.VisitSingle(o, m, i)
	case *Min:
		return v.VisitMin(o, m, i)
	case *Max:
		return v.VisitMax(o, m, i)
	case *Sum:
		return v.VisitSum(o, m, i)
	case *Average:
		return v.VisitAverage(o, m, i)
	case *Aggregate:
		return v.VisitAggregate(o, m, i)
	case *AggregateFromSeed:
		return v.VisitAggregateFromSeed(o, m, i)
	case *Distinct:
		return v.VisitDistinct(o, m, i)
	case *Take:
		return v.VisitTake(o, m, i)
	case *Skip:
		return v.VisitSkip(o, m, i)
	case *Cast:
		return v.VisitCast(o, m, i)
	case *OfType:
		return v.VisitOfType(o, m, i)
	case *Union:
		return v.VisitUnion(o, m, i)
	case *Except:
		return v.VisitExcept(o, m, i)
	case *Intersect:
		return v.VisitIntersect(o, m, i)
	case *Concat:
		return v.VisitConcat(o, m, i)
	case *Reverse:
		return v.VisitReverse(o, m, i)
	case *DefaultIfEmpty:
		return v.VisitDefaultIfEmpty(o, m, i)
	case *AsQueryable:
		return v.VisitAsQueryable(o, m, i)
	default:
		return fmt.Errorf("unknown result operator type: %T", op)
	}
}

// NopVisitor implements every Visitor callback as a no-op.
type NopVisitor struct{}

func (NopVisitor) VisitQueryModel(*QueryModel) error                                       { return nil }
func (NopVisitor) VisitMainFromClause(*MainFromClause, *QueryModel) error                  { return nil }
func (NopVisitor) VisitAdditionalFromClause(*AdditionalFromClause, *QueryModel, int) error { return nil }
func (NopVisitor) VisitWhereClause(*WhereClause, *QueryModel, int) error                   { return nil }
func (NopVisitor) VisitOrderByClause(*OrderByClause, *QueryModel, int) error               { return nil }
func (NopVisitor) VisitOrdering(*Ordering, *QueryModel, *OrderByClause, int) error         { return nil }
func (NopVisitor) VisitJoinClause(*JoinClause, *QueryModel, int) error                     { return nil }
func (NopVisitor) VisitGroupJoinClause(*GroupJoinClause, *QueryModel, int) error           { return nil }
func (NopVisitor) VisitSelectClause(*SelectClause, *QueryModel) error                      { return nil }
func (NopVisitor) VisitGroupClause(*GroupClause, *QueryModel) error                        { return nil }

func (NopVisitor) VisitAny(*Any, *QueryModel, int) error                             { return nil }
func (NopVisitor) VisitAll(*All, *QueryModel, int) error                             { return nil }
func (NopVisitor) VisitCount(*Count, *QueryModel, int) error                         { return nil }
func (NopVisitor) VisitLongCount(*LongCount, *QueryModel, int) error                 { return nil }
func (NopVisitor) VisitContains(*Contains, *QueryModel, int) error                   { return nil }
func (NopVisitor) VisitFirst(*First, *QueryModel, int) error                         { return nil }
func (NopVisitor) VisitLast(*Last, *QueryModel, int) error                           { return nil }
func (NopVisitor) VisitSingle(*Single, *QueryModel, int) error                       { return nil }
func (NopVisitor) VisitMin(*Min, *QueryModel, int) error                             { return nil }
func (NopVisitor) VisitMax(*Max, *QueryModel, int) error                             { return nil }
func (NopVisitor) VisitSum(*Sum, *QueryModel, int) error                             { return nil }
func (NopVisitor) VisitAverage(*Average, *QueryModel, int) error                     { return nil }
func (NopVisitor) VisitAggregate(*Aggregate, *QueryModel, int) error                 { return nil }
func (NopVisitor) VisitAggregateFromSeed(*AggregateFromSeed, *QueryModel, int) error { return nil }
func (NopVisitor) VisitDistinct(*Distinct, *QueryModel, int) error                   { return nil }
func (NopVisitor) VisitTake(*Take, *QueryModel, int) error                           { return nil }
func (NopVisitor) VisitSkip(*Skip, *QueryModel, int) error                           { return nil }
func (NopVisitor) VisitCast(*Cast, *QueryModel, int) error                           { return nil }
func (NopVisitor) VisitOfType(*OfType, *QueryModel, int) error                       { return nil }
func (NopVisitor) VisitUnion(*Union, *QueryModel, int) error                         { return nil }
func (NopVisitor) VisitExcept(*Except, *QueryModel, int) error                       { return nil }
func (NopVisitor) VisitIntersect(*Intersect, *QueryModel, int) error                 { return nil }
func (NopVisitor) VisitConcat(*Concat, *QueryModel, int) error                       { return nil }
func (NopVisitor) VisitReverse(*Reverse, *QueryModel, int) error                     { return nil }
func (NopVisitor) VisitDefaultIfEmpty(*DefaultIfEmpty, *QueryModel, int) error       { return nil }
func (NopVisitor) VisitAsQueryable(*AsQueryable, *QueryModel, int) error             { return nil }
