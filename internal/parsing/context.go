package parsing

import (
	"fmt"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// BuildContext carries the state of one Parse call: which clause or result
// operator each applied node produced together with the node's output
// expression, and the main from clause each wrapped node was rebased onto.
// Both maps are write-once per node. Nodes themselves are never written
// after construction, so one chain can be applied in several contexts.
//
// A context is never shared between Parse calls. Sub-queries get a child
// context that shares the registry and the identifier counter.
type BuildContext struct {
	registry *Registry
	counter  *int
	applied  map[*base]entry
	rebased  map[*base]*queryir.MainFromClause
}

// NewBuildContext creates an empty context that builds sub-queries with
// registry.
func NewBuildContext(registry *Registry) *BuildContext {
	return &BuildContext{
		registry: registry,
		counter:  new(int),
		applied:  make(map[*base]entry),
		rebased:  make(map[*base]*queryir.MainFromClause),
	}
}

func (c *BuildContext) child() *BuildContext {
	return &BuildContext{
		registry: c.registry,
		counter:  c.counter,
		applied:  make(map[*base]entry),
		rebased:  make(map[*base]*queryir.MainFromClause),
	}
}

// entry is what one node contributed: its clause or result operator and
// the expression later nodes substitute for its output.
type entry struct {
	item   any
	output expr.Expr
}

// Add records the clause or result operator n contributed to the model and
// n's output expression.
func (c *BuildContext) Add(n Node, item any, output expr.Expr) error {
	return c.addBase(n.node(), item, output)
}

func (c *BuildContext) addBase(b *base, item any, output expr.Expr) error {
	if _, ok := c.applied[b]; ok {
		return queryir.NewResolutionError("", "node %s was already applied", b.name)
	}
	c.applied[b] = entry{item: item, output: output}
	return nil
}

// Lookup returns what n contributed, if it was applied.
func (c *BuildContext) Lookup(n Node) (any, bool) {
	a, ok := c.applied[n.node()]
	return a.item, ok
}

// Rebase records that the model n fed into was wrapped, so n's output is now
// read through from.
func (c *BuildContext) Rebase(n Node, from *queryir.MainFromClause) error {
	b := n.node()
	if _, ok := c.rebased[b]; ok {
		return queryir.NewResolutionError("", "node %s was already rebased", b.name)
	}
	c.rebased[b] = from
	return nil
}

// Rebased returns the main from clause n was rebased onto.
func (c *BuildContext) Rebased(n Node) (*queryir.MainFromClause, bool) {
	from, ok := c.rebased[n.node()]
	return from, ok
}

func (c *BuildContext) generate() string {
	*c.counter++
	return fmt.Sprintf("<generated>_%d", *c.counter)
}

// substitute replaces param with out in e and runs the resolution rules.
func (c *BuildContext) substitute(e expr.Expr, param *expr.Parameter, out expr.Expr) (expr.Expr, error) {
	r := expr.Replace(e, param, out)
	r = InlineTransparentIdentifiers(r)
	return FindSubQueries(r, c)
}

// build creates the node chain for e. identifier is the name the consumer
// of e's output uses for it.
func (c *BuildContext) build(e expr.Expr, identifier string) (Node, error) {
	if call, ok := e.(*expr.Call); ok && expr.IsSequence(call.Source.Type()) {
		factory, ok := c.registry.Lookup(call.Signature())
		if !ok {
			return nil, queryir.NewUnsupportedOperatorError(call.Signature(), call.String())
		}
		sourceIdentifier, ok := firstParameterName(call)
		if !ok {
			sourceIdentifier = c.generate()
		}
		source, err := c.build(call.Source, sourceIdentifier)
		if err != nil {
			return nil, err
		}
		return factory(CallInfo{Call: call, Source: source, Identifier: identifier, Generate: c.generate})
	}
	if !expr.IsSequence(e.Type()) {
		return nil, queryir.NewConfigurationError("", "query source %s of type %s is not a sequence",
			e, expr.TypeName(e.Type()))
	}
	return newMainSourceNode(identifier, e), nil
}

// model builds and materializes e in c.
func (c *BuildContext) model(e expr.Expr) (*queryir.QueryModel, error) {
	n, err := c.build(e, c.generate())
	if err != nil {
		return nil, err
	}
	return Materialize(n, c)
}

// firstParameterName names a call's source after the parameter its first
// lambda binds to the source items. For Aggregate that is the second
// parameter; the first is the accumulator.
func firstParameterName(call *expr.Call) (string, bool) {
	for _, a := range call.Args {
		l, ok := a.(*expr.Lambda)
		if !ok || len(l.Params) == 0 {
			continue
		}
		if call.Op == "Aggregate" && len(l.Params) == 2 {
			return l.Params[1].Name, true
		}
		return l.Params[0].Name, true
	}
	return "", false
}
