package parsing

import (
	"fmt"
	"slices"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// CallInfo is what a NodeFactory gets to build the node for one call.
type CallInfo struct {
	Call *expr.Call

	// Source is the already built node for Call.Source.
	Source Node

	// Identifier is the name the consumer of this node's output uses.
	Identifier string

	// Generate returns a fresh identifier for implicit nodes.
	Generate func() string
}

// NodeFactory builds the node for one operator call.
type NodeFactory func(info CallInfo) (Node, error)

// Registry maps operator signatures (Name/arity) to node factories.
type Registry struct {
	factories map[string]NodeFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]NodeFactory)}
}

// Register maps op called with arity arguments to f, replacing any previous
// mapping.
func (r *Registry) Register(op string, arity int, f NodeFactory) {
	r.factories[expr.Signature(op, arity)] = f
}

// Lookup returns the factory for a signature such as "Where/1".
func (r *Registry) Lookup(signature string) (NodeFactory, bool) {
	f, ok := r.factories[signature]
	return f, ok
}

// Signatures returns every registered signature, sorted.
func (r *Registry) Signatures() []string {
	out := make([]string, 0, len(r.factories))
	for s := range r.factories {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// DefaultRegistry returns a registry covering every built-in operator.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register("Where", 1, func(info CallInfo) (Node, error) {
		p, err := lambdaArg(info, 0, 1)
		if err != nil {
			return nil, err
		}
		return &WhereNode{base: newBase(info), Predicate: p}, nil
	})
	r.Register("Select", 1, func(info CallInfo) (Node, error) {
		s, err := lambdaArg(info, 0, 1)
		if err != nil {
			return nil, err
		}
		return &SelectNode{base: newBase(info), Selector: s}, nil
	})
	r.Register("SelectMany", 1, selectMany)
	r.Register("SelectMany", 2, selectMany)
	r.Register("OrderBy", 1, orderBy(queryir.Ascending, false))
	r.Register("OrderByDescending", 1, orderBy(queryir.Descending, false))
	r.Register("ThenBy", 1, orderBy(queryir.Ascending, true))
	r.Register("ThenByDescending", 1, orderBy(queryir.Descending, true))
	r.Register("Join", 4, join(false))
	r.Register("GroupJoin", 4, join(true))
	r.Register("GroupBy", 1, groupBy)
	r.Register("GroupBy", 2, groupBy)
	r.Register("GroupBy", 3, groupBy)

	for _, op := range []string{"Any", "Count", "LongCount", "First", "FirstOrDefault",
		"Last", "LastOrDefault", "Single", "SingleOrDefault"} {
		r.Register(op, 0, simpleResult(op))
		r.Register(op, 1, predicateResult(op))
	}
	for _, op := range []string{"Min", "Max", "Sum", "Average"} {
		r.Register(op, 0, simpleResult(op))
		r.Register(op, 1, selectorResult(op))
	}
	for _, op := range []string{"Distinct", "Reverse", "AsQueryable", "DefaultIfEmpty"} {
		r.Register(op, 0, simpleResult(op))
	}
	for _, op := range []string{"Take", "Skip", "Contains", "DefaultIfEmpty", "Union", "Except", "Intersect", "Concat"} {
		r.Register(op, 1, valueResult(op))
	}
	r.Register("Cast", 0, typeResult("Cast"))
	r.Register("OfType", 0, typeResult("OfType"))
	r.Register("All", 1, all)
	r.Register("Aggregate", 1, aggregate)
	r.Register("Aggregate", 2, aggregate)
	r.Register("Aggregate", 3, aggregate)

	return r
}

func newBase(info CallInfo) base {
	return base{name: info.Call.Op, source: info.Source, identifier: info.Identifier}
}

// lambdaArg returns argument i of the call, which must be a lambda taking
// params parameters.
func lambdaArg(info CallInfo, i, params int) (*expr.Lambda, error) {
	l, ok := info.Call.Args[i].(*expr.Lambda)
	if !ok || len(l.Params) != params {
		return nil, queryir.NewConfigurationError(info.Call.Signature(),
			"argument %d must be a function of %d parameters, got %s", i, params, info.Call.Args[i])
	}
	return l, nil
}

func selectMany(info CallInfo) (Node, error) {
	collection, err := lambdaArg(info, 0, 1)
	if err != nil {
		return nil, err
	}
	n := &SelectManyNode{base: newBase(info), Collection: collection}
	if len(info.Call.Args) == 2 {
		if n.ResultSelector, err = lambdaArg(info, 1, 2); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func orderBy(dir queryir.OrderingDirection, then bool) NodeFactory {
	return func(info CallInfo) (Node, error) {
		key, err := lambdaArg(info, 0, 1)
		if err != nil {
			return nil, err
		}
		if then {
			return &ThenByNode{base: newBase(info), Key: key, Direction: dir}, nil
		}
		return &OrderByNode{base: newBase(info), Key: key, Direction: dir}, nil
	}
}

func join(group bool) NodeFactory {
	return func(info CallInfo) (Node, error) {
		outerKey, err := lambdaArg(info, 1, 1)
		if err != nil {
			return nil, err
		}
		innerKey, err := lambdaArg(info, 2, 1)
		if err != nil {
			return nil, err
		}
		result, err := lambdaArg(info, 3, 2)
		if err != nil {
			return nil, err
		}
		inner := info.Call.Args[0]
		if group {
			return &GroupJoinNode{base: newBase(info), Inner: inner, OuterKey: outerKey, InnerKey: innerKey, ResultSelector: result}, nil
		}
		return &JoinNode{base: newBase(info), Inner: inner, OuterKey: outerKey, InnerKey: innerKey, ResultSelector: result}, nil
	}
}

// groupBy builds GroupBy(key), GroupBy(key, element), GroupBy(key, result)
// and GroupBy(key, element, result). A result selector becomes a Select over
// the groups.
func groupBy(info CallInfo) (Node, error) {
	key, err := lambdaArg(info, 0, 1)
	if err != nil {
		return nil, err
	}
	args := info.Call.Args
	var element, result *expr.Lambda
	switch {
	case len(args) == 3:
		if element, err = lambdaArg(info, 1, 1); err != nil {
			return nil, err
		}
		if result, err = lambdaArg(info, 2, 2); err != nil {
			return nil, err
		}
	case len(args) == 2:
		l, ok := args[1].(*expr.Lambda)
		if ok && len(l.Params) == 2 {
			result = l
		} else if element, err = lambdaArg(info, 1, 1); err != nil {
			return nil, err
		}
	}
	if result == nil {
		return &GroupByNode{base: newBase(info), Key: key, Element: element}, nil
	}

	g := &GroupByNode{base: newBase(info), Key: key, Element: element}
	g.identifier = info.Generate()
	elemType, _ := expr.ElementType(info.Call.Source.Type())
	if element != nil {
		elemType = element.Body.Type()
	}
	grp := expr.NewParameter(g.identifier, queryir.GroupingType(key.Body.Type(), elemType))
	body := expr.Replace(result.Body, result.Params[0], expr.NewMember(grp, "Key"))
	body = expr.Replace(body, result.Params[1], expr.NewMember(grp, "Items"))
	return &SelectNode{
		base:     base{name: info.Call.Op, source: g, identifier: info.Identifier},
		Selector: expr.NewLambda(body, grp),
	}, nil
}

func simpleResult(op string) NodeFactory {
	return func(info CallInfo) (Node, error) {
		return newResultNode(info, info.Source, op)
	}
}

// predicateResult builds op(p) as Where(p) followed by op().
func predicateResult(op string) NodeFactory {
	return func(info CallInfo) (Node, error) {
		p, err := lambdaArg(info, 0, 1)
		if err != nil {
			return nil, err
		}
		where := &WhereNode{base: base{name: "Where", source: info.Source, identifier: p.Params[0].Name}, Predicate: p}
		return newResultNode(info, where, op)
	}
}

// selectorResult builds op(s) as Select(s) followed by op().
func selectorResult(op string) NodeFactory {
	return func(info CallInfo) (Node, error) {
		s, err := lambdaArg(info, 0, 1)
		if err != nil {
			return nil, err
		}
		sel := &SelectNode{base: base{name: "Select", source: info.Source, identifier: info.Generate()}, Selector: s}
		return newResultNode(info, sel, op)
	}
}

func newResultNode(info CallInfo, source Node, op string) (Node, error) {
	var operator queryir.ResultOperator
	switch op {
	case "Any":
		operator = &queryir.Any{}
	case "Count":
		operator = &queryir.Count{}
	case "LongCount":
		operator = &queryir.LongCount{}
	case "First", "FirstOrDefault":
		operator = &queryir.First{ReturnDefaultWhenEmpty: op == "FirstOrDefault"}
	case "Last", "LastOrDefault":
		operator = &queryir.Last{ReturnDefaultWhenEmpty: op == "LastOrDefault"}
	case "Single", "SingleOrDefault":
		operator = &queryir.Single{ReturnDefaultWhenEmpty: op == "SingleOrDefault"}
	case "Min":
		operator = &queryir.Min{}
	case "Max":
		operator = &queryir.Max{}
	case "Sum":
		operator = &queryir.Sum{}
	case "Average":
		operator = &queryir.Average{}
	case "Distinct":
		operator = &queryir.Distinct{}
	case "Reverse":
		operator = &queryir.Reverse{}
	case "AsQueryable":
		operator = &queryir.AsQueryable{}
	case "DefaultIfEmpty":
		operator = &queryir.DefaultIfEmpty{}
	default:
		return nil, fmt.Errorf("parsing: no result operator %s", op)
	}
	return &ResultOperatorNode{base: base{name: op, source: source, identifier: info.Identifier}, Operator: operator}, nil
}

// valueResult builds operators taking one value argument. The argument may
// itself be an operator chain, which becomes a sub-query when applied.
func valueResult(op string) NodeFactory {
	return func(info CallInfo) (Node, error) {
		arg := info.Call.Args[0]
		if _, ok := arg.(*expr.Lambda); ok {
			return nil, queryir.NewConfigurationError(info.Call.Signature(), "argument must be a value, got %s", arg)
		}
		n := &ResultOperatorNode{base: newBase(info)}
		n.resolve = func(n *ResultOperatorNode, ctx *BuildContext) (queryir.ResultOperator, error) {
			v, err := FindSubQueries(arg, ctx)
			if err != nil {
				return nil, err
			}
			return valueOperator(op, v)
		}
		// Constant arguments are checked now, so malformed calls fail before
		// anything is applied.
		if _, ok := arg.(*expr.Constant); ok {
			operator, err := valueOperator(op, arg)
			if err != nil {
				return nil, err
			}
			n.Operator, n.resolve = operator, nil
		}
		return n, nil
	}
}

func valueOperator(op string, v expr.Expr) (queryir.ResultOperator, error) {
	switch op {
	case "Take":
		return queryir.NewTake(v)
	case "Skip":
		return queryir.NewSkip(v)
	case "Contains":
		return queryir.NewContains(v)
	case "DefaultIfEmpty":
		return &queryir.DefaultIfEmpty{DefaultValue: v}, nil
	case "Union":
		return queryir.NewUnion(v)
	case "Except":
		return queryir.NewExcept(v)
	case "Intersect":
		return queryir.NewIntersect(v)
	case "Concat":
		return queryir.NewConcat(v)
	}
	return nil, fmt.Errorf("parsing: no value operator %s", op)
}

// typeResult builds Cast and OfType. The target type is the call's item
// type.
func typeResult(op string) NodeFactory {
	return func(info CallInfo) (Node, error) {
		t, ok := expr.ElementType(info.Call.Type())
		if !ok {
			return nil, queryir.NewConfigurationError(info.Call.Signature(), "result type %s is not a sequence",
				expr.TypeName(info.Call.Type()))
		}
		var operator queryir.ResultOperator = &queryir.Cast{Type: t}
		if op == "OfType" {
			operator = &queryir.OfType{Type: t}
		}
		return &ResultOperatorNode{base: newBase(info), Operator: operator, itemType: t}, nil
	}
}

func all(info CallInfo) (Node, error) {
	p, err := lambdaArg(info, 0, 1)
	if err != nil {
		return nil, err
	}
	n := &ResultOperatorNode{base: newBase(info)}
	n.resolve = func(n *ResultOperatorNode, ctx *BuildContext) (queryir.ResultOperator, error) {
		predicate, err := resolveLambda(n, p, ctx)
		if err != nil {
			return nil, err
		}
		return queryir.NewAll(predicate)
	}
	return n, nil
}

// aggregate builds Aggregate(func), Aggregate(seed, func) and
// Aggregate(seed, func, selector). The (acc, item) function becomes an
// accumulator lambda whose body reads the item from the source.
func aggregate(info CallInfo) (Node, error) {
	fnIndex := 0
	var seed expr.Expr
	if len(info.Call.Args) > 1 {
		fnIndex, seed = 1, info.Call.Args[0]
	}
	fn, err := lambdaArg(info, fnIndex, 2)
	if err != nil {
		return nil, err
	}
	var selector *expr.Lambda
	if len(info.Call.Args) == 3 {
		if selector, err = lambdaArg(info, 2, 1); err != nil {
			return nil, err
		}
	}
	n := &ResultOperatorNode{base: newBase(info)}
	n.resolve = func(n *ResultOperatorNode, ctx *BuildContext) (queryir.ResultOperator, error) {
		body, err := n.Source().Resolve(fn.Params[1], fn.Body, ctx)
		if err != nil {
			return nil, err
		}
		accumulator := expr.NewLambda(body, fn.Params[0])
		if seed == nil {
			return queryir.NewAggregate(accumulator)
		}
		return queryir.NewAggregateFromSeed(seed, accumulator, selector)
	}
	return n, nil
}
