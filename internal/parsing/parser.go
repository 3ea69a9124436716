package parsing

import (
	"log/slog"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/partialeval"
	"github.com/roach88/querymodel/internal/queryir"
)

// Parser turns operator-call trees into query models.
//
// A Parser holds no per-call state and may be reused; every Parse gets its
// own BuildContext.
type Parser struct {
	registry  *Registry
	evaluator partialeval.Evaluator
}

// Option configures a Parser.
type Option func(*Parser)

// WithRegistry replaces the default operator registry.
func WithRegistry(r *Registry) Option {
	return func(p *Parser) {
		p.registry = r
	}
}

// WithEvaluator replaces the default partial evaluator.
func WithEvaluator(e partialeval.Evaluator) Option {
	return func(p *Parser) {
		p.evaluator = e
	}
}

// NewParser creates a parser with the default registry and partial
// evaluator.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		registry:  DefaultRegistry(),
		evaluator: partialeval.NewFolder(partialeval.Options{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Registry returns the parser's operator registry.
func (p *Parser) Registry() *Registry { return p.registry }

// Parse evaluates the parameter-free parts of e, builds the node chain and
// materializes it into a query model whose output type is checked.
func (p *Parser) Parse(e expr.Expr) (*queryir.QueryModel, error) {
	evaluated, err := p.evaluator.Evaluate(e)
	if err != nil {
		return nil, err
	}
	ctx := NewBuildContext(p.registry)
	n, err := ctx.build(evaluated, ctx.generate())
	if err != nil {
		return nil, err
	}
	slog.Debug("node chain built", "operator", n.node().name)

	m, err := Materialize(n, ctx)
	if err != nil {
		return nil, err
	}
	if _, err := m.OutputInfo(); err != nil {
		return nil, err
	}
	slog.Debug("query model materialized", "model", m.String())
	return m, nil
}

// BuildChain builds the node chain for e without partial evaluation or
// materialization.
func (p *Parser) BuildChain(e expr.Expr) (Node, *BuildContext, error) {
	ctx := NewBuildContext(p.registry)
	n, err := ctx.build(e, ctx.generate())
	if err != nil {
		return nil, nil, err
	}
	return n, ctx, nil
}
