package frontend

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// operator types the arguments and the result of one query operator, the
// way a compiler would when it sees the call.
type operator struct {
	arities []int

	// lambda returns the parameter types of argument i when it is a function
	// literal with n parameters. ok is false for value arguments.
	lambda func(elem reflect.Type, i, n int, prior []expr.Expr) (params []reflect.Type, ok bool)

	// result computes the call's static type.
	result func(src, elem reflect.Type, args []expr.Expr) (reflect.Type, error)
}

var (
	intType   = reflect.TypeFor[int]()
	int64Type = reflect.TypeFor[int64]()
	boolType  = reflect.TypeFor[bool]()
)

func noLambda(reflect.Type, int, int, []expr.Expr) ([]reflect.Type, bool) { return nil, false }

func itemLambda(elem reflect.Type, _, _ int, _ []expr.Expr) ([]reflect.Type, bool) {
	return []reflect.Type{elem}, true
}

func sameSequence(src, _ reflect.Type, _ []expr.Expr) (reflect.Type, error) { return src, nil }

func fixed(t reflect.Type) func(reflect.Type, reflect.Type, []expr.Expr) (reflect.Type, error) {
	return func(reflect.Type, reflect.Type, []expr.Expr) (reflect.Type, error) { return t, nil }
}

func itemResult(_, elem reflect.Type, _ []expr.Expr) (reflect.Type, error) { return elem, nil }

// body returns the result type of a lambda argument.
func body(e expr.Expr) reflect.Type {
	if l, ok := e.(*expr.Lambda); ok {
		return l.Body.Type()
	}
	return e.Type()
}

func elementOf(e expr.Expr) (reflect.Type, error) {
	t, ok := expr.ElementType(body(e))
	if !ok {
		return nil, fmt.Errorf("%s is not a sequence", expr.TypeName(body(e)))
	}
	return t, nil
}

// selected is the selector result when present, else the item type.
func selected(elem reflect.Type, args []expr.Expr) reflect.Type {
	if len(args) > 0 {
		return body(args[0])
	}
	return elem
}

var operators = map[string]operator{
	"Where": {arities: []int{1}, lambda: itemLambda, result: sameSequence},
	"Select": {arities: []int{1}, lambda: itemLambda,
		result: func(_, _ reflect.Type, args []expr.Expr) (reflect.Type, error) {
			return expr.SeqOf(body(args[0])), nil
		}},
	"SelectMany": {arities: []int{1, 2},
		lambda: func(elem reflect.Type, i, _ int, prior []expr.Expr) ([]reflect.Type, bool) {
			if i == 0 {
				return []reflect.Type{elem}, true
			}
			inner, err := elementOf(prior[0])
			if err != nil {
				return nil, false
			}
			return []reflect.Type{elem, inner}, true
		},
		result: func(_, _ reflect.Type, args []expr.Expr) (reflect.Type, error) {
			if len(args) == 2 {
				return expr.SeqOf(body(args[1])), nil
			}
			inner, err := elementOf(args[0])
			if err != nil {
				return nil, err
			}
			return expr.SeqOf(inner), nil
		}},
	"OrderBy":           {arities: []int{1}, lambda: itemLambda, result: sameSequence},
	"OrderByDescending": {arities: []int{1}, lambda: itemLambda, result: sameSequence},
	"ThenBy":            {arities: []int{1}, lambda: itemLambda, result: sameSequence},
	"ThenByDescending":  {arities: []int{1}, lambda: itemLambda, result: sameSequence},
	"Join":              {arities: []int{4}, lambda: joinLambda(false), result: lastBodySequence},
	"GroupJoin":         {arities: []int{4}, lambda: joinLambda(true), result: lastBodySequence},
	"GroupBy": {arities: []int{1, 2, 3},
		lambda: func(elem reflect.Type, i, n int, prior []expr.Expr) ([]reflect.Type, bool) {
			switch {
			case i == 0:
				return []reflect.Type{elem}, true
			case i == 1 && n == 2:
				return []reflect.Type{body(prior[0]), expr.SeqOf(elem)}, true
			case i == 1:
				return []reflect.Type{elem}, true
			}
			return []reflect.Type{body(prior[0]), expr.SeqOf(body(prior[1]))}, true
		},
		result: func(_, elem reflect.Type, args []expr.Expr) (reflect.Type, error) {
			key := body(args[0])
			switch len(args) {
			case 1:
				return expr.SeqOf(queryir.GroupingType(key, elem)), nil
			case 2:
				if l, ok := args[1].(*expr.Lambda); ok && len(l.Params) == 2 {
					return expr.SeqOf(l.Body.Type()), nil
				}
				return expr.SeqOf(queryir.GroupingType(key, body(args[1]))), nil
			}
			return expr.SeqOf(body(args[2])), nil
		}},

	"Any":       {arities: []int{0, 1}, lambda: itemLambda, result: fixed(boolType)},
	"All":       {arities: []int{1}, lambda: itemLambda, result: fixed(boolType)},
	"Count":     {arities: []int{0, 1}, lambda: itemLambda, result: fixed(intType)},
	"LongCount": {arities: []int{0, 1}, lambda: itemLambda, result: fixed(int64Type)},
	"Contains":  {arities: []int{1}, lambda: noLambda, result: fixed(boolType)},

	"First":           {arities: []int{0, 1}, lambda: itemLambda, result: itemResult},
	"FirstOrDefault":  {arities: []int{0, 1}, lambda: itemLambda, result: itemResult},
	"Last":            {arities: []int{0, 1}, lambda: itemLambda, result: itemResult},
	"LastOrDefault":   {arities: []int{0, 1}, lambda: itemLambda, result: itemResult},
	"Single":          {arities: []int{0, 1}, lambda: itemLambda, result: itemResult},
	"SingleOrDefault": {arities: []int{0, 1}, lambda: itemLambda, result: itemResult},

	"Min": {arities: []int{0, 1}, lambda: itemLambda,
		result: func(_, elem reflect.Type, args []expr.Expr) (reflect.Type, error) { return selected(elem, args), nil }},
	"Max": {arities: []int{0, 1}, lambda: itemLambda,
		result: func(_, elem reflect.Type, args []expr.Expr) (reflect.Type, error) { return selected(elem, args), nil }},
	"Sum": {arities: []int{0, 1}, lambda: itemLambda,
		result: func(_, elem reflect.Type, args []expr.Expr) (reflect.Type, error) { return selected(elem, args), nil }},
	"Average": {arities: []int{0, 1}, lambda: itemLambda,
		result: func(_, elem reflect.Type, args []expr.Expr) (reflect.Type, error) {
			t := selected(elem, args)
			out, ok := queryir.AverageType(t)
			if !ok {
				return nil, fmt.Errorf("cannot average items of type %s", expr.TypeName(t))
			}
			return out, nil
		}},
	"Aggregate": {arities: []int{1, 2, 3},
		lambda: func(elem reflect.Type, i, _ int, prior []expr.Expr) ([]reflect.Type, bool) {
			switch i {
			case 0:
				return []reflect.Type{elem, elem}, true
			case 1:
				return []reflect.Type{prior[0].Type(), elem}, true
			}
			return []reflect.Type{body(prior[1])}, true
		},
		result: func(_, _ reflect.Type, args []expr.Expr) (reflect.Type, error) {
			return body(args[len(args)-1]), nil
		}},

	"Distinct":       {arities: []int{0}, lambda: noLambda, result: sameSequence},
	"Reverse":        {arities: []int{0}, lambda: noLambda, result: sameSequence},
	"AsQueryable":    {arities: []int{0}, lambda: noLambda, result: sameSequence},
	"Take":           {arities: []int{1}, lambda: noLambda, result: sameSequence},
	"Skip":           {arities: []int{1}, lambda: noLambda, result: sameSequence},
	"DefaultIfEmpty": {arities: []int{0, 1}, lambda: noLambda, result: sameSequence},
	"Union":          {arities: []int{1}, lambda: noLambda, result: sameSequence},
	"Except":         {arities: []int{1}, lambda: noLambda, result: sameSequence},
	"Intersect":      {arities: []int{1}, lambda: noLambda, result: sameSequence},
	"Concat":         {arities: []int{1}, lambda: noLambda, result: sameSequence},
}

// joinLambda types Join(inner, outerKey, innerKey, result) and its group
// variant, whose result selector receives the matching inner items as a
// slice.
func joinLambda(group bool) func(reflect.Type, int, int, []expr.Expr) ([]reflect.Type, bool) {
	return func(elem reflect.Type, i, _ int, prior []expr.Expr) ([]reflect.Type, bool) {
		if i == 0 {
			return nil, false
		}
		inner, err := elementOf(prior[0])
		if err != nil {
			return nil, false
		}
		switch i {
		case 1:
			return []reflect.Type{elem}, true
		case 2:
			return []reflect.Type{inner}, true
		}
		if group {
			return []reflect.Type{elem, expr.SeqOf(inner)}, true
		}
		return []reflect.Type{elem, inner}, true
	}
}

func lastBodySequence(_, _ reflect.Type, args []expr.Expr) (reflect.Type, error) {
	return expr.SeqOf(body(args[len(args)-1])), nil
}

// Operators returns the names of the query operators the front-end can
// type, sorted.
func Operators() []string {
	names := make([]string, 0, len(operators)+2)
	for name := range operators {
		names = append(names, name)
	}
	names = append(names, "Cast", "OfType")
	slices.Sort(names)
	return names
}

// call types and builds src.op(args...).
func call(src expr.Expr, op string, args []expr.Expr) (*expr.Call, error) {
	o, ok := operators[op]
	if !ok {
		return nil, fmt.Errorf("unknown query operator %s", op)
	}
	elem, ok := expr.ElementType(src.Type())
	if !ok {
		return nil, fmt.Errorf("%s called on %s, which is not a sequence", op, expr.TypeName(src.Type()))
	}
	if !slices.Contains(o.arities, len(args)) {
		return nil, fmt.Errorf("%s takes %v arguments, got %d", op, o.arities, len(args))
	}
	t, err := o.result(src.Type(), elem, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return expr.NewCall(t, src, op, args...), nil
}

// typeCall builds Cast<T>() or OfType<T>(). The type argument is carried by
// the result type.
func typeCall(src expr.Expr, op string, t reflect.Type) (*expr.Call, error) {
	if !expr.IsSequence(src.Type()) {
		return nil, fmt.Errorf("%s called on %s, which is not a sequence", op, expr.TypeName(src.Type()))
	}
	return expr.NewCall(expr.SeqOf(t), src, op), nil
}
