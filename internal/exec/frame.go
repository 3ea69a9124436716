package exec

import (
	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// frame is one binding in an immutable chain. Keys are query sources or
// lambda parameters, compared by identity. Binding never mutates an existing
// chain, so rows can share their prefix.
type frame struct {
	key   any
	value any
	next  *frame
}

func (f *frame) bind(key, value any) *frame {
	return &frame{key: key, value: value, next: f}
}

func (f *frame) lookup(key any) (any, bool) {
	for cur := f; cur != nil; cur = cur.next {
		if cur.key == key {
			return cur.value, true
		}
	}
	return nil, false
}

func (f *frame) source(src queryir.QuerySource) (any, error) {
	v, ok := f.lookup(src)
	if !ok {
		return nil, queryir.NewExecutionError("", "query source %q is not bound", src.ItemName())
	}
	return v, nil
}

func (f *frame) parameter(p *expr.Parameter) (any, error) {
	v, ok := f.lookup(p)
	if !ok {
		return nil, queryir.NewExecutionError("", "parameter %q is not bound", p.Name)
	}
	return v, nil
}
