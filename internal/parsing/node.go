package parsing

import (
	"log/slog"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// Node is one operator call of the chain.
//
// Source is nil only for the MainSourceNode. AssociatedIdentifier is the
// name the next node's lambda uses for this node's output; it names the main
// from clause when the model is wrapped after this node.
type Node interface {
	Source() Node
	AssociatedIdentifier() string

	// Resolve substitutes param in e with this node's output and applies
	// the resolution rules. It fails before the node was applied.
	Resolve(param *expr.Parameter, e expr.Expr, ctx *BuildContext) (expr.Expr, error)

	// Apply contributes the node to m and returns the model to continue
	// with, which is a new model when m had to be wrapped.
	Apply(m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error)

	node() *base
}

// base holds what every node shares. It is immutable once built; a node's
// output lives in the BuildContext it was applied in.
type base struct {
	name       string
	source     Node
	identifier string
}

func (b *base) Source() Node                 { return b.source }
func (b *base) AssociatedIdentifier() string { return b.identifier }
func (b *base) node() *base                  { return b }

func (b *base) Resolve(param *expr.Parameter, e expr.Expr, ctx *BuildContext) (expr.Expr, error) {
	out, err := b.resolvedOutput(ctx)
	if err != nil {
		return nil, err
	}
	return ctx.substitute(e, param, out)
}

func (b *base) resolvedOutput(ctx *BuildContext) (expr.Expr, error) {
	if from, ok := ctx.rebased[b]; ok {
		return queryir.NewQuerySourceRef(from), nil
	}
	a, ok := ctx.applied[b]
	if !ok || a.output == nil {
		return nil, queryir.NewResolutionError(b.name, "%s: %s", b.name, queryir.MsgResolveBeforeApply)
	}
	return a.output, nil
}

// sourceOutput is the resolved output of n's source.
func sourceOutput(n Node, ctx *BuildContext) (expr.Expr, error) {
	return n.Source().node().resolvedOutput(ctx)
}

// resolveLambda resolves the single-parameter lambda l against n's source.
func resolveLambda(n Node, l *expr.Lambda, ctx *BuildContext) (expr.Expr, error) {
	return n.Source().Resolve(l.Params[0], l.Body, ctx)
}

// Materialize applies the chain ending in n, source first, and returns the
// resulting model.
func Materialize(n Node, ctx *BuildContext) (*queryir.QueryModel, error) {
	var chain []Node
	for cur := n; cur != nil; cur = cur.Source() {
		chain = append(chain, cur)
	}
	var m *queryir.QueryModel
	for i := len(chain) - 1; i >= 0; i-- {
		next, err := chain[i].Apply(m, ctx)
		if err != nil {
			return nil, err
		}
		m = next
	}
	return m, nil
}

// prepare wraps a reduced model so that n can append a streaming clause.
func prepare(n Node, m *queryir.QueryModel, ctx *BuildContext) (*queryir.QueryModel, error) {
	if m == nil {
		return nil, queryir.NewConfigurationError(n.node().name, "no query model to apply to")
	}
	if m.Streaming() {
		return m, nil
	}
	info, err := m.OutputInfo()
	if err != nil {
		return nil, err
	}
	seq, ok := info.(queryir.StreamedSequenceInfo)
	if !ok {
		return nil, queryir.NewConfigurationError(n.node().name, "cannot continue a query whose result is %s",
			expr.TypeName(info.DataType()))
	}
	sq, err := queryir.NewSubQuery(m)
	if err != nil {
		return nil, err
	}
	from := queryir.NewMainFromClause(n.Source().AssociatedIdentifier(), seq.ItemType(), sq)
	wrapped := queryir.NewQueryModel(from, &queryir.SelectClause{Selector: queryir.NewQuerySourceRef(from)})
	if err := ctx.Rebase(n.Source(), from); err != nil {
		return nil, err
	}
	slog.Debug("wrapped reduced query model", "operator", n.node().name, "source", from.Name)
	return wrapped, nil
}
