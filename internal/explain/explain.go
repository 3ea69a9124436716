// Package explain renders a query model as an indented tree, one line per
// clause and result operator.
//
// Sub-queries are hoisted out of the expression text: each becomes a
// numbered placeholder (#1, #2, ...) in its clause, with the nested model
// drawn as a branch under that clause. Numbers are assigned depth-first
// across the whole tree.
//
//	QueryModel []Int32
//	├── from Int32 x in #1
//	│   └── #1 QueryModel []Int32
//	│       ├── from Int32 <generated>_2 in value([]Int32)
//	│       ├── select [<generated>_2]
//	│       └── Take(2)
//	├── where ([x] > 1)
//	└── select [x]
package explain

import (
	"fmt"

	"github.com/xlab/treeprint"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// Explain renders m. It fails when m's output type cannot be computed.
func Explain(m *queryir.QueryModel) (string, error) {
	if m == nil {
		return "", fmt.Errorf("cannot explain nil query model")
	}
	e := &explainer{}
	label, err := e.label(m)
	if err != nil {
		return "", err
	}
	tree := treeprint.NewWithRoot(label)
	if err := e.model(tree, m); err != nil {
		return "", err
	}
	return tree.String(), nil
}

type explainer struct {
	next int
}

func (e *explainer) label(m *queryir.QueryModel) (string, error) {
	info, err := m.OutputInfo()
	if err != nil {
		return "", err
	}
	return "QueryModel " + expr.TypeName(info.DataType()), nil
}

func (e *explainer) model(tree treeprint.Tree, m *queryir.QueryModel) error {
	b := &builder{explainer: e, tree: tree}
	if err := queryir.Walk(b, m); err != nil {
		return err
	}
	for _, op := range m.ResultOperators {
		clone := op.Clone(queryir.NewCloneContext())
		var subs []hoisted
		clone.TransformExpressions(func(x expr.Expr) expr.Expr {
			out, found := e.hoist(x)
			subs = append(subs, found...)
			return out
		})
		if err := e.branch(tree, clone.String(), subs); err != nil {
			return err
		}
	}
	return nil
}

// hoisted is a sub-query replaced by placeholder #n.
type hoisted struct {
	n  int
	sq *queryir.SubQuery
}

// hoist replaces every outermost sub-query in x with a numbered placeholder.
func (e *explainer) hoist(x expr.Expr) (expr.Expr, []hoisted) {
	if x == nil {
		return nil, nil
	}
	var found []hoisted
	out := expr.RewriteTopDown(x, func(n expr.Expr) (expr.Expr, bool) {
		sq, ok := n.(*queryir.SubQuery)
		if !ok {
			return nil, false
		}
		e.next++
		found = append(found, hoisted{n: e.next, sq: sq})
		return expr.NewParameter(fmt.Sprintf("#%d", e.next), sq.Type()), true
	})
	return out, found
}

// branch adds a clause line and one nested branch per hoisted sub-query.
func (e *explainer) branch(tree treeprint.Tree, text string, subs []hoisted) error {
	b := tree.AddBranch(text)
	for _, h := range subs {
		label, err := e.label(h.sq.Model)
		if err != nil {
			return err
		}
		if err := e.model(b.AddBranch(fmt.Sprintf("#%d %s", h.n, label)), h.sq.Model); err != nil {
			return err
		}
	}
	return nil
}

// builder adds one line per clause of a single model.
type builder struct {
	queryir.NopVisitor
	*explainer
	tree treeprint.Tree
}

func (b *builder) text(prefix string, x expr.Expr) (string, []hoisted) {
	out, subs := b.hoist(x)
	return prefix + expr.Format(out), subs
}

func (b *builder) VisitMainFromClause(c *queryir.MainFromClause, _ *queryir.QueryModel) error {
	text, subs := b.text(fmt.Sprintf("from %s %s in ", expr.TypeName(c.Type), c.Name), c.FromExpression)
	return b.branch(b.tree, text, subs)
}

func (b *builder) VisitAdditionalFromClause(c *queryir.AdditionalFromClause, _ *queryir.QueryModel, _ int) error {
	text, subs := b.text(fmt.Sprintf("from %s %s in ", expr.TypeName(c.Type), c.Name), c.FromExpression)
	return b.branch(b.tree, text, subs)
}

func (b *builder) VisitWhereClause(c *queryir.WhereClause, _ *queryir.QueryModel, _ int) error {
	text, subs := b.text("where ", c.Predicate)
	return b.branch(b.tree, text, subs)
}

func (b *builder) VisitOrderByClause(c *queryir.OrderByClause, _ *queryir.QueryModel, _ int) error {
	text := "orderby"
	var subs []hoisted
	for i, o := range c.Orderings {
		sep := " "
		if i > 0 {
			sep = ", "
		}
		key, found := b.text("", o.Expression)
		text += sep + key + " " + o.Direction.String()
		subs = append(subs, found...)
	}
	return b.branch(b.tree, text, subs)
}

func (b *builder) VisitJoinClause(c *queryir.JoinClause, _ *queryir.QueryModel, _ int) error {
	text, subs := b.join(c)
	return b.branch(b.tree, text, subs)
}

func (b *builder) VisitGroupJoinClause(c *queryir.GroupJoinClause, _ *queryir.QueryModel, _ int) error {
	text, subs := b.join(c.JoinClause)
	text += fmt.Sprintf(" into %s %s", expr.TypeName(c.Type), c.Name)
	return b.branch(b.tree, text, subs)
}

func (b *builder) join(c *queryir.JoinClause) (string, []hoisted) {
	inner, subs := b.text("", c.InnerSequence)
	outer, s2 := b.text("", c.OuterKeySelector)
	key, s3 := b.text("", c.InnerKeySelector)
	subs = append(append(subs, s2...), s3...)
	return fmt.Sprintf("join %s %s in %s on %s equals %s", expr.TypeName(c.Type), c.Name, inner, outer, key), subs
}

func (b *builder) VisitSelectClause(c *queryir.SelectClause, _ *queryir.QueryModel) error {
	text, subs := b.text("select ", c.Selector)
	return b.branch(b.tree, text, subs)
}

func (b *builder) VisitGroupClause(c *queryir.GroupClause, _ *queryir.QueryModel) error {
	elem, subs := b.text("group ", c.ElementSelector)
	key, s2 := b.text(" by ", c.KeySelector)
	return b.branch(b.tree, elem+key, append(subs, s2...))
}
