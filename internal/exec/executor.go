package exec

import (
	"fmt"
	"iter"
	"log/slog"
	"reflect"
	"slices"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// rows is a lazy sequence of bound rows.
type rows = iter.Seq2[*frame, error]

// Executor runs query models in memory.
//
// An Executor holds only parameter bindings; it is safe to reuse across
// models but not for concurrent use while Bind is being called.
type Executor struct {
	params *frame
}

// New creates an executor with no parameter bindings.
func New() *Executor {
	return &Executor{}
}

// Bind makes p evaluate to v in every model the executor runs. Parameters
// survive in a model when the front-end leaves a closure variable
// unevaluated.
func (x *Executor) Bind(p *expr.Parameter, v any) {
	x.params = x.params.bind(p, v)
}

// Execute runs m. A sequence result is returned as a queryir.Sequence, a
// value result as the value itself.
func (x *Executor) Execute(m *queryir.QueryModel) (any, error) {
	slog.Debug("executing query model", "model", m.String())
	data, err := x.run(m, x.params)
	if err != nil {
		return nil, err
	}
	switch d := data.(type) {
	case queryir.StreamedSequence:
		return d.Seq, nil
	case queryir.StreamedValue:
		return d.Value, nil
	}
	return nil, fmt.Errorf("unknown streamed data %T", data)
}

// ExecuteCollection runs m and drains its sequence result.
func (x *Executor) ExecuteCollection(m *queryir.QueryModel) ([]any, error) {
	data, err := x.run(m, x.params)
	if err != nil {
		return nil, err
	}
	seq, ok := data.(queryir.StreamedSequence)
	if !ok {
		return nil, queryir.NewExecutionError("", "query yields a value of type %s, not a sequence",
			expr.TypeName(data.Info().DataType()))
	}
	items, err := queryir.Collect(seq.Seq)
	if err != nil {
		return nil, err
	}
	slog.Debug("query executed", "items", len(items))
	return items, nil
}

// ExecuteSlice runs m and returns its sequence result as a typed slice, e.g.
// []int32.
func (x *Executor) ExecuteSlice(m *queryir.QueryModel) (any, error) {
	data, err := x.run(m, x.params)
	if err != nil {
		return nil, err
	}
	seq, ok := data.(queryir.StreamedSequence)
	if !ok {
		return nil, queryir.NewExecutionError("", "query yields a value of type %s, not a sequence",
			expr.TypeName(data.Info().DataType()))
	}
	return queryir.ToSlice(seq.Seq, seq.DataInfo.Type)
}

// ExecuteScalar runs a model whose last result operator yields a scalar
// (Count, Sum, Any, Aggregate, ...).
func (x *Executor) ExecuteScalar(m *queryir.QueryModel) (any, error) {
	return x.executeValue(m, func(info queryir.StreamedDataInfo) bool {
		_, ok := info.(queryir.StreamedScalarInfo)
		return ok
	}, "scalar")
}

// ExecuteSingle runs a model whose last result operator picks one item
// (First, Last, Single, Min, Max).
func (x *Executor) ExecuteSingle(m *queryir.QueryModel) (any, error) {
	return x.executeValue(m, func(info queryir.StreamedDataInfo) bool {
		_, ok := info.(queryir.StreamedSingleInfo)
		return ok
	}, "single item")
}

func (x *Executor) executeValue(m *queryir.QueryModel, want func(queryir.StreamedDataInfo) bool, what string) (any, error) {
	info, err := m.OutputInfo()
	if err != nil {
		return nil, err
	}
	if !want(info) {
		return nil, queryir.NewExecutionError("", "query does not yield a %s (output type %s)",
			what, expr.TypeName(info.DataType()))
	}
	data, err := x.run(m, x.params)
	if err != nil {
		return nil, err
	}
	return data.(queryir.StreamedValue).Value, nil
}

// run executes m with outer as the enclosing row.
func (x *Executor) run(m *queryir.QueryModel, outer *frame) (queryir.StreamedData, error) {
	if m.MainFromClause == nil || m.Projection == nil {
		return nil, queryir.NewExecutionError("", "incomplete query model: %s", m)
	}
	r, err := x.mainFrom(m.MainFromClause, outer)
	if err != nil {
		return nil, err
	}
	for _, c := range m.BodyClauses {
		if r, err = x.bodyClause(c, r, outer); err != nil {
			return nil, err
		}
	}

	info := m.Projection.OutputInfo()
	var items queryir.Sequence
	switch p := m.Projection.(type) {
	case *queryir.SelectClause:
		items = x.project(p, r)
	case *queryir.GroupClause:
		items = x.group(p, r)
	default:
		return nil, queryir.NewExecutionError("", "unknown projection %T", m.Projection)
	}

	var data queryir.StreamedData = queryir.StreamedSequence{DataInfo: info, Seq: items}
	ops := env{x: x, frame: outer}
	for _, op := range m.ResultOperators {
		if data, err = op.Execute(data, ops); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return data, nil
}

// subQuery executes a nested model correlated with the row f.
func (x *Executor) subQuery(sq *queryir.SubQuery, f *frame) (any, error) {
	data, err := x.run(sq.Model, f)
	if err != nil {
		return nil, err
	}
	switch d := data.(type) {
	case queryir.StreamedSequence:
		return queryir.ToSlice(d.Seq, sq.Type())
	case queryir.StreamedValue:
		return d.Value, nil
	}
	return nil, fmt.Errorf("unknown streamed data %T", data)
}

// enumerate evaluates a from expression and enumerates it.
func enumerate(e env, from expr.Expr) (queryir.Sequence, error) {
	v, err := e.Eval(from)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, evalError(from, "source is null")
	}
	seq, err := queryir.FromSlice(v)
	if err != nil {
		return nil, evalError(from, "%v", err)
	}
	return seq, nil
}

func (x *Executor) mainFrom(c *queryir.MainFromClause, outer *frame) (rows, error) {
	src, err := enumerate(env{x: x, frame: outer}, c.FromExpression)
	if err != nil {
		return nil, err
	}
	return func(yield func(*frame, error) bool) {
		for item, err := range src {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(outer.bind(c, item), nil) {
				return
			}
		}
	}, nil
}

func (x *Executor) bodyClause(c queryir.BodyClause, in rows, outer *frame) (rows, error) {
	switch clause := c.(type) {
	case *queryir.AdditionalFromClause:
		return x.additionalFrom(clause, in), nil
	case *queryir.WhereClause:
		return x.where(clause, in), nil
	case *queryir.OrderByClause:
		return x.orderBy(clause, in), nil
	case *queryir.JoinClause:
		return x.join(clause, in, outer), nil
	case *queryir.GroupJoinClause:
		return x.groupJoin(clause, in, outer), nil
	}
	return nil, queryir.NewExecutionError("", "unknown body clause %T", c)
}

func (x *Executor) additionalFrom(c *queryir.AdditionalFromClause, in rows) rows {
	return func(yield func(*frame, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			src, err := enumerate(env{x: x, frame: row}, c.FromExpression)
			if err != nil {
				yield(nil, err)
				return
			}
			for item, err := range src {
				if err != nil {
					yield(nil, err)
					return
				}
				if !yield(row.bind(c, item), nil) {
					return
				}
			}
		}
	}
}

func (x *Executor) where(c *queryir.WhereClause, in rows) rows {
	return func(yield func(*frame, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := env{x: x, frame: row}.evalBool(c.Predicate)
			if err != nil {
				yield(nil, err)
				return
			}
			if ok && !yield(row, nil) {
				return
			}
		}
	}
}

// lookup is a hash index over join inner items, preserving inner order per
// key.
type lookup map[any][]any

func (x *Executor) buildLookup(j *queryir.JoinClause, outer *frame) (lookup, error) {
	src, err := enumerate(env{x: x, frame: outer}, j.InnerSequence)
	if err != nil {
		return nil, err
	}
	index := make(lookup)
	for item, err := range src {
		if err != nil {
			return nil, err
		}
		key, err := env{x: x, frame: outer.bind(j, item)}.Eval(j.InnerKeySelector)
		if err != nil {
			return nil, err
		}
		k := queryir.KeyOf(key)
		if k == nil {
			continue
		}
		index[k] = append(index[k], item)
	}
	return index, nil
}

// matches returns the inner items whose key equals the outer key of row.
func (x *Executor) matches(j *queryir.JoinClause, index lookup, row *frame) ([]any, error) {
	key, err := env{x: x, frame: row}.Eval(j.OuterKeySelector)
	if err != nil {
		return nil, err
	}
	k := queryir.KeyOf(key)
	if k == nil {
		return nil, nil
	}
	return index[k], nil
}

func (x *Executor) join(c *queryir.JoinClause, in rows, outer *frame) rows {
	return func(yield func(*frame, error) bool) {
		var index lookup
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			if index == nil {
				if index, err = x.buildLookup(c, outer); err != nil {
					yield(nil, err)
					return
				}
			}
			inner, err := x.matches(c, index, row)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, item := range inner {
				if !yield(row.bind(c, item), nil) {
					return
				}
			}
		}
	}
}

func (x *Executor) groupJoin(c *queryir.GroupJoinClause, in rows, outer *frame) rows {
	return func(yield func(*frame, error) bool) {
		var index lookup
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			if index == nil {
				if index, err = x.buildLookup(c.JoinClause, outer); err != nil {
					yield(nil, err)
					return
				}
			}
			inner, err := x.matches(c.JoinClause, index, row)
			if err != nil {
				yield(nil, err)
				return
			}
			group, err := queryir.MakeSlice(inner, c.Type)
			if err != nil {
				yield(nil, queryir.NewExecutionError("", "group join %s: %v", c.Name, err))
				return
			}
			if !yield(row.bind(c, group), nil) {
				return
			}
		}
	}
}

type sortedRow struct {
	row  *frame
	keys []any
}

func (x *Executor) orderBy(c *queryir.OrderByClause, in rows) rows {
	return func(yield func(*frame, error) bool) {
		var all []sortedRow
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			keys := make([]any, len(c.Orderings))
			for i, o := range c.Orderings {
				if keys[i], err = (env{x: x, frame: row}).Eval(o.Expression); err != nil {
					yield(nil, err)
					return
				}
			}
			all = append(all, sortedRow{row: row, keys: keys})
		}

		var cmpErr error
		slices.SortStableFunc(all, func(a, b sortedRow) int {
			for i, o := range c.Orderings {
				r, err := queryir.Compare(a.keys[i], b.keys[i])
				if err != nil && cmpErr == nil {
					cmpErr = queryir.NewExecutionError("orderby", "%v", err)
				}
				if o.Direction == queryir.Descending {
					r = -r
				}
				if r != 0 {
					return r
				}
			}
			return 0
		})
		if cmpErr != nil {
			yield(nil, cmpErr)
			return
		}
		for _, s := range all {
			if !yield(s.row, nil) {
				return
			}
		}
	}
}

func (x *Executor) project(c *queryir.SelectClause, in rows) queryir.Sequence {
	return func(yield func(any, error) bool) {
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			v, err := env{x: x, frame: row}.Eval(c.Selector)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// group partitions rows by key in first-appearance order and yields one
// grouping struct per key.
func (x *Executor) group(c *queryir.GroupClause, in rows) queryir.Sequence {
	return func(yield func(any, error) bool) {
		type partition struct {
			key   any
			items []any
		}
		var order []*partition
		byKey := make(map[any]*partition)
		for row, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			e := env{x: x, frame: row}
			key, err := e.Eval(c.KeySelector)
			if err != nil {
				yield(nil, err)
				return
			}
			elem, err := e.Eval(c.ElementSelector)
			if err != nil {
				yield(nil, err)
				return
			}
			k := queryir.KeyOf(key)
			p, ok := byKey[k]
			if !ok {
				p = &partition{key: key}
				byKey[k] = p
				order = append(order, p)
			}
			p.items = append(p.items, elem)
		}

		gt := c.ItemType()
		keyField, itemsField := gt.Field(0), gt.Field(1)
		for _, p := range order {
			g := reflect.New(gt).Elem()
			kv, err := queryir.ValueOf(p.key, keyField.Type)
			if err != nil {
				yield(nil, queryir.NewExecutionError("group", "%v", err))
				return
			}
			g.Field(0).Set(kv)
			items, err := queryir.MakeSlice(p.items, itemsField.Type)
			if err != nil {
				yield(nil, queryir.NewExecutionError("group", "%v", err))
				return
			}
			g.Field(1).Set(reflect.ValueOf(items))
			if !yield(g.Interface(), nil) {
				return
			}
		}
	}
}
