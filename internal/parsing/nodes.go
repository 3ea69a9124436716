package parsing

import (
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

var boolType = reflect.TypeFor[bool]()

// MainSourceNode is the start of every chain: the innermost receiver that is
// not a registered operator call.
type MainSourceNode struct {
	base
	Expression expr.Expr
}

func newMainSourceNode(identifier string, e expr.Expr) *MainSourceNode {
	return &MainSourceNode{base: base{name: "MainSource", identifier: identifier}, Expression: e}
}

func (n *MainSourceNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	if m != nil {
		return nil, queryir.NewConfigurationError(n.name, "the main source must start the chain")
	}
	itemType, _ := expr.ElementType(n.Expression.Type())
	from := queryir.NewMainFromClause(n.identifier, itemType, n.Expression)
	output := queryir.NewQuerySourceRef(from)
	if err := ctx.Add(n, from, output); err != nil {
		return nil, err
	}
	return queryir.NewQueryModel(from, &queryir.SelectClause{Selector: output}), nil
}

// WhereNode filters by Predicate.
type WhereNode struct {
	base
	Predicate *expr.Lambda
}

func (n *WhereNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	predicate, err := resolveLambda(n, n.Predicate, ctx)
	if err != nil {
		return nil, err
	}
	if predicate.Type() != boolType {
		return nil, queryir.NewConfigurationError(n.name, "predicate must be Bool, got %s", expr.TypeName(predicate.Type()))
	}
	clause := &queryir.WhereClause{Predicate: predicate}
	if err := m.AddBodyClause(clause); err != nil {
		return nil, err
	}
	return m, n.register(clause, ctx)
}

// SelectNode projects each item through Selector.
type SelectNode struct {
	base
	Selector *expr.Lambda
}

func (n *SelectNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	selector, err := resolveLambda(n, n.Selector, ctx)
	if err != nil {
		return nil, err
	}
	projection := &queryir.SelectClause{Selector: selector}
	m.Projection = projection
	if err := ctx.Add(n, projection, selector); err != nil {
		return nil, err
	}
	return m, nil
}

// SelectManyNode flattens Collection into an additional from clause. With a
// ResultSelector the projection combines each item with each element.
type SelectManyNode struct {
	base
	Collection     *expr.Lambda
	ResultSelector *expr.Lambda
}

func (n *SelectManyNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	collection, err := resolveLambda(n, n.Collection, ctx)
	if err != nil {
		return nil, err
	}
	elem, ok := expr.ElementType(collection.Type())
	if !ok {
		return nil, queryir.NewConfigurationError(n.name, "collection selector must return a sequence, got %s",
			expr.TypeName(collection.Type()))
	}
	name := n.identifier
	if n.ResultSelector != nil {
		name = n.ResultSelector.Params[1].Name
	}
	clause := &queryir.AdditionalFromClause{Name: name, Type: elem, FromExpression: collection}
	if err := m.AddBodyClause(clause); err != nil {
		return nil, err
	}
	output := expr.Expr(queryir.NewQuerySourceRef(clause))
	if n.ResultSelector != nil {
		body := expr.Replace(n.ResultSelector.Body, n.ResultSelector.Params[1], output)
		if output, err = n.Source().Resolve(n.ResultSelector.Params[0], body, ctx); err != nil {
			return nil, err
		}
	}
	m.Projection = &queryir.SelectClause{Selector: output}
	if err := ctx.Add(n, clause, output); err != nil {
		return nil, err
	}
	return m, nil
}

// OrderByNode starts a new ordering.
type OrderByNode struct {
	base
	Key       *expr.Lambda
	Direction queryir.OrderingDirection
}

func (n *OrderByNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	key, err := resolveLambda(n, n.Key, ctx)
	if err != nil {
		return nil, err
	}
	if !queryir.IsOrdered(key.Type()) {
		return nil, queryir.NewConfigurationError(n.name, "cannot order by %s", expr.TypeName(key.Type()))
	}
	clause := &queryir.OrderByClause{Orderings: []*queryir.Ordering{{Expression: key, Direction: n.Direction}}}
	if err := m.AddBodyClause(clause); err != nil {
		return nil, err
	}
	return m, n.register(clause, ctx)
}

// ThenByNode adds a secondary ordering to the preceding OrderBy.
type ThenByNode struct {
	base
	Key       *expr.Lambda
	Direction queryir.OrderingDirection
}

func (n *ThenByNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	var clause *queryir.OrderByClause
	if k := len(m.BodyClauses); k > 0 {
		clause, _ = m.BodyClauses[k-1].(*queryir.OrderByClause)
	}
	if clause == nil {
		return nil, queryir.NewConfigurationError(n.name, "%s must directly follow OrderBy or ThenBy", n.name)
	}
	key, err := resolveLambda(n, n.Key, ctx)
	if err != nil {
		return nil, err
	}
	if !queryir.IsOrdered(key.Type()) {
		return nil, queryir.NewConfigurationError(n.name, "cannot order by %s", expr.TypeName(key.Type()))
	}
	clause.Orderings = append(clause.Orderings, &queryir.Ordering{Expression: key, Direction: n.Direction})
	return m, n.register(clause, ctx)
}

// JoinNode is an inner equi-join with Inner.
type JoinNode struct {
	base
	Inner          expr.Expr
	OuterKey       *expr.Lambda
	InnerKey       *expr.Lambda
	ResultSelector *expr.Lambda
}

func (n *JoinNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	join, err := buildJoin(n, n.Inner, n.OuterKey, n.InnerKey, n.InnerKey.Params[0].Name, ctx)
	if err != nil {
		return nil, err
	}
	join.Name = n.ResultSelector.Params[1].Name
	if err := m.AddBodyClause(join); err != nil {
		return nil, err
	}
	output, err := resolveResult(n, n.ResultSelector, join, ctx)
	if err != nil {
		return nil, err
	}
	m.Projection = &queryir.SelectClause{Selector: output}
	if err := ctx.Add(n, join, output); err != nil {
		return nil, err
	}
	return m, nil
}

// GroupJoinNode joins each item with the slice of all matching inner items.
type GroupJoinNode struct {
	base
	Inner          expr.Expr
	OuterKey       *expr.Lambda
	InnerKey       *expr.Lambda
	ResultSelector *expr.Lambda
}

func (n *GroupJoinNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	join, err := buildJoin(n, n.Inner, n.OuterKey, n.InnerKey, n.InnerKey.Params[0].Name, ctx)
	if err != nil {
		return nil, err
	}
	clause := &queryir.GroupJoinClause{
		Name:       n.ResultSelector.Params[1].Name,
		Type:       expr.SeqOf(join.Type),
		JoinClause: join,
	}
	if err := m.AddBodyClause(clause); err != nil {
		return nil, err
	}
	output, err := resolveResult(n, n.ResultSelector, clause, ctx)
	if err != nil {
		return nil, err
	}
	m.Projection = &queryir.SelectClause{Selector: output}
	if err := ctx.Add(n, clause, output); err != nil {
		return nil, err
	}
	return m, nil
}

func buildJoin(n Node, inner expr.Expr, outerKey, innerKey *expr.Lambda, name string, ctx *BuildContext) (*queryir.JoinClause, error) {
	innerSequence, err := FindSubQueries(inner, ctx)
	if err != nil {
		return nil, err
	}
	elem, ok := expr.ElementType(innerSequence.Type())
	if !ok {
		return nil, queryir.NewConfigurationError(n.node().name, "inner source must be a sequence, got %s",
			expr.TypeName(innerSequence.Type()))
	}
	join := &queryir.JoinClause{Name: name, Type: elem, InnerSequence: innerSequence}
	if join.OuterKeySelector, err = resolveLambda(n, outerKey, ctx); err != nil {
		return nil, err
	}
	if join.InnerKeySelector, err = ctx.substitute(innerKey.Body, innerKey.Params[0], queryir.NewQuerySourceRef(join)); err != nil {
		return nil, err
	}
	if ot, it := join.OuterKeySelector.Type(), join.InnerKeySelector.Type(); ot != it {
		return nil, queryir.NewConfigurationError(n.node().name, "key types differ: outer %s, inner %s",
			expr.TypeName(ot), expr.TypeName(it))
	}
	return join, nil
}

// resolveResult resolves a two-parameter result selector: the first
// parameter against n's source, the second against src.
func resolveResult(n Node, l *expr.Lambda, src queryir.QuerySource, ctx *BuildContext) (expr.Expr, error) {
	body := expr.Replace(l.Body, l.Params[1], queryir.NewQuerySourceRef(src))
	return n.Source().Resolve(l.Params[0], body, ctx)
}

// GroupByNode groups items by Key. Without an Element selector the items
// themselves are grouped. The group projection reduces the model.
type GroupByNode struct {
	base
	Key     *expr.Lambda
	Element *expr.Lambda
}

func (n *GroupByNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	m, err := prepare(n, m, ctx)
	if err != nil {
		return nil, err
	}
	key, err := resolveLambda(n, n.Key, ctx)
	if err != nil {
		return nil, err
	}
	var element expr.Expr
	if n.Element != nil {
		element, err = resolveLambda(n, n.Element, ctx)
	} else {
		element, err = sourceOutput(n, ctx)
	}
	if err != nil {
		return nil, err
	}
	clause := &queryir.GroupClause{Name: n.identifier, KeySelector: key, ElementSelector: element}
	m.Projection = clause
	if err := ctx.Add(n, clause, queryir.NewQuerySourceRef(clause)); err != nil {
		return nil, err
	}
	return m, nil
}

// ResultOperatorNode appends a result operator. Operators whose arguments
// need no resolution are built with the node; the others are built by
// resolve when the node is applied and live only in the BuildContext.
type ResultOperatorNode struct {
	base
	Operator queryir.ResultOperator

	resolve func(n *ResultOperatorNode, ctx *BuildContext) (queryir.ResultOperator, error)

	// itemType is set by Cast and OfType, whose output converts the item.
	itemType reflect.Type
}

func (n *ResultOperatorNode) Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	if m == nil {
		return nil, queryir.NewConfigurationError(n.name, "no query model to apply to")
	}
	op := n.Operator
	if n.resolve != nil {
		var err error
		if op, err = n.resolve(n, ctx); err != nil {
			return nil, err
		}
	}
	m.AddResultOperator(op)
	if _, err := m.OutputInfo(); err != nil {
		return nil, err
	}
	output, err := sourceOutput(n, ctx)
	if err != nil {
		return nil, err
	}
	if n.itemType != nil {
		output = expr.NewConvert(output, n.itemType)
	}
	if err := ctx.Add(n, op, output); err != nil {
		return nil, err
	}
	return m, nil
}

// register records clause for a pass-through node, whose output is its
// source's output.
func (b *base) register(clause any, ctx *BuildContext) error {
	output, err := b.source.node().resolvedOutput(ctx)
	if err != nil {
		return err
	}
	return ctx.addBase(b, clause, output)
}
