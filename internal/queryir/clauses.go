package queryir

import (
	"reflect"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

// QuerySource is a clause whose items other expressions can reference through
// a QuerySourceRef.
type QuerySource interface {
	ItemName() string
	ItemType() reflect.Type
}

// BodyClause is a per-item clause between the main from clause and the
// projection. It is a sealed interface.
type BodyClause interface {
	bodyClause()
	TransformExpressions(fn func(expr.Expr) expr.Expr)
	Clone(ctx *CloneContext) BodyClause
	String() string
}

// ProjectionClause is the terminal projection of a model: SelectClause or
// GroupClause.
type ProjectionClause interface {
	projectionClause()
	OutputInfo() StreamedSequenceInfo
	TransformExpressions(fn func(expr.Expr) expr.Expr)
	Clone(ctx *CloneContext) ProjectionClause
	String() string
}

// MainFromClause is the source clause of a model.
type MainFromClause struct {
	Name           string
	Type           reflect.Type
	FromExpression expr.Expr
}

// NewMainFromClause creates a source clause.
func NewMainFromClause(name string, itemType reflect.Type, from expr.Expr) *MainFromClause {
	return &MainFromClause{Name: name, Type: itemType, FromExpression: from}
}

func (c *MainFromClause) ItemName() string       { return c.Name }
func (c *MainFromClause) ItemType() reflect.Type { return c.Type }

// TransformExpressions replaces the from expression.
func (c *MainFromClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.FromExpression = fn(c.FromExpression)
}

// Clone copies the clause and registers the mapping in ctx.
func (c *MainFromClause) Clone(ctx *CloneContext) *MainFromClause {
	out := &MainFromClause{Name: c.Name, Type: c.Type, FromExpression: ctx.Expr(c.FromExpression)}
	ctx.Map(c, out)
	return out
}

func (c *MainFromClause) String() string {
	return "from " + expr.TypeName(c.Type) + " " + c.Name + " in " + formatExpr(c.FromExpression)
}

// AdditionalFromClause introduces a second (possibly correlated) source.
type AdditionalFromClause struct {
	Name           string
	Type           reflect.Type
	FromExpression expr.Expr
}

func (*AdditionalFromClause) bodyClause() {}

func (c *AdditionalFromClause) ItemName() string       { return c.Name }
func (c *AdditionalFromClause) ItemType() reflect.Type { return c.Type }

func (c *AdditionalFromClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.FromExpression = fn(c.FromExpression)
}

func (c *AdditionalFromClause) Clone(ctx *CloneContext) BodyClause {
	out := &AdditionalFromClause{Name: c.Name, Type: c.Type, FromExpression: ctx.Expr(c.FromExpression)}
	ctx.Map(c, out)
	return out
}

func (c *AdditionalFromClause) String() string {
	return "from " + expr.TypeName(c.Type) + " " + c.Name + " in " + formatExpr(c.FromExpression)
}

// WhereClause filters items.
type WhereClause struct {
	Predicate expr.Expr
}

func (*WhereClause) bodyClause() {}

func (c *WhereClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Predicate = fn(c.Predicate)
}

func (c *WhereClause) Clone(ctx *CloneContext) BodyClause {
	return &WhereClause{Predicate: ctx.Expr(c.Predicate)}
}

func (c *WhereClause) String() string { return "where " + formatExpr(c.Predicate) }

// OrderingDirection is the sort direction of one ordering.
type OrderingDirection int

const (
	Ascending OrderingDirection = iota
	Descending
)

func (d OrderingDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Ordering is one sort key.
type Ordering struct {
	Expression expr.Expr
	Direction  OrderingDirection
}

func (o *Ordering) String() string { return formatExpr(o.Expression) + " " + o.Direction.String() }

// OrderByClause sorts items by an ordered list of keys. OrderBy starts a new
// clause; ThenBy appends to the last one.
type OrderByClause struct {
	Orderings []*Ordering
}

func (*OrderByClause) bodyClause() {}

func (c *OrderByClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	for _, o := range c.Orderings {
		o.Expression = fn(o.Expression)
	}
}

func (c *OrderByClause) Clone(ctx *CloneContext) BodyClause {
	out := &OrderByClause{Orderings: make([]*Ordering, len(c.Orderings))}
	for i, o := range c.Orderings {
		out.Orderings[i] = &Ordering{Expression: ctx.Expr(o.Expression), Direction: o.Direction}
	}
	return out
}

func (c *OrderByClause) String() string {
	parts := make([]string, len(c.Orderings))
	for i, o := range c.Orderings {
		parts[i] = o.String()
	}
	return "orderby " + strings.Join(parts, ", ")
}

// JoinClause is an inner equi-join against InnerSequence.
type JoinClause struct {
	Name             string
	Type             reflect.Type
	InnerSequence    expr.Expr
	OuterKeySelector expr.Expr
	InnerKeySelector expr.Expr
}

func (*JoinClause) bodyClause() {}

func (c *JoinClause) ItemName() string       { return c.Name }
func (c *JoinClause) ItemType() reflect.Type { return c.Type }

func (c *JoinClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.InnerSequence = fn(c.InnerSequence)
	c.OuterKeySelector = fn(c.OuterKeySelector)
	c.InnerKeySelector = fn(c.InnerKeySelector)
}

func (c *JoinClause) Clone(ctx *CloneContext) BodyClause {
	return c.cloneJoin(ctx)
}

func (c *JoinClause) cloneJoin(ctx *CloneContext) *JoinClause {
	out := &JoinClause{
		Name:             c.Name,
		Type:             c.Type,
		InnerSequence:    ctx.Expr(c.InnerSequence),
		OuterKeySelector: ctx.Expr(c.OuterKeySelector),
	}
	ctx.Map(c, out)
	out.InnerKeySelector = ctx.Expr(c.InnerKeySelector)
	return out
}

func (c *JoinClause) String() string {
	return "join " + expr.TypeName(c.Type) + " " + c.Name + " in " + formatExpr(c.InnerSequence) +
		" on " + formatExpr(c.OuterKeySelector) + " equals " + formatExpr(c.InnerKeySelector)
}

// GroupJoinClause correlates each outer item with the (possibly empty) slice
// of matching inner items. Its items have the slice type.
type GroupJoinClause struct {
	Name       string
	Type       reflect.Type
	JoinClause *JoinClause
}

func (*GroupJoinClause) bodyClause() {}

func (c *GroupJoinClause) ItemName() string       { return c.Name }
func (c *GroupJoinClause) ItemType() reflect.Type { return c.Type }

func (c *GroupJoinClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.JoinClause.TransformExpressions(fn)
}

func (c *GroupJoinClause) Clone(ctx *CloneContext) BodyClause {
	out := &GroupJoinClause{Name: c.Name, Type: c.Type, JoinClause: c.JoinClause.cloneJoin(ctx)}
	ctx.Map(c, out)
	return out
}

func (c *GroupJoinClause) String() string {
	return c.JoinClause.String() + " into " + expr.TypeName(c.Type) + " " + c.Name
}

// SelectClause projects each item through Selector.
type SelectClause struct {
	Selector expr.Expr
}

func (*SelectClause) projectionClause() {}

// OutputInfo describes the projected sequence.
func (c *SelectClause) OutputInfo() StreamedSequenceInfo {
	return StreamedSequenceInfo{Type: expr.SeqOf(c.Selector.Type()), ItemExpression: c.Selector}
}

func (c *SelectClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.Selector = fn(c.Selector)
}

func (c *SelectClause) Clone(ctx *CloneContext) ProjectionClause {
	return &SelectClause{Selector: ctx.Expr(c.Selector)}
}

func (c *SelectClause) String() string { return "select " + formatExpr(c.Selector) }

// GroupClause partitions items by KeySelector and projects each partition as
// a grouping of ElementSelector values. A model with a group projection is
// reduced: further streaming operators wrap it.
type GroupClause struct {
	Name            string
	KeySelector     expr.Expr
	ElementSelector expr.Expr
}

func (*GroupClause) projectionClause() {}

func (c *GroupClause) ItemName() string { return c.Name }

// ItemType returns the grouping type for the key and element types.
func (c *GroupClause) ItemType() reflect.Type {
	return GroupingType(c.KeySelector.Type(), c.ElementSelector.Type())
}

// OutputInfo describes the sequence of groupings.
func (c *GroupClause) OutputInfo() StreamedSequenceInfo {
	return StreamedSequenceInfo{Type: expr.SeqOf(c.ItemType()), ItemExpression: NewQuerySourceRef(c)}
}

func (c *GroupClause) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	c.KeySelector = fn(c.KeySelector)
	c.ElementSelector = fn(c.ElementSelector)
}

func (c *GroupClause) Clone(ctx *CloneContext) ProjectionClause {
	out := &GroupClause{
		Name:            c.Name,
		KeySelector:     ctx.Expr(c.KeySelector),
		ElementSelector: ctx.Expr(c.ElementSelector),
	}
	ctx.Map(c, out)
	return out
}

func (c *GroupClause) String() string {
	return "group " + formatExpr(c.ElementSelector) + " by " + formatExpr(c.KeySelector)
}

// GroupingType returns the struct type of one group: {Key K; Items []E}.
func GroupingType(key, elem reflect.Type) reflect.Type {
	return reflect.StructOf([]reflect.StructField{
		{Name: "Key", Type: key},
		{Name: "Items", Type: expr.SeqOf(elem)},
	})
}

func formatExpr(e expr.Expr) string {
	if e == nil {
		return "<nil>"
	}
	return expr.Format(e)
}
