package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

// QueryModel is the normalized form of an operator chain: one source clause,
// ordered body clauses, one terminal projection and ordered result operators.
//
// A model is streaming until a result operator is appended or the projection
// reshapes items (GroupClause); it is reduced from then on. Body clauses are
// only ever added to a streaming model. The builder enforces this by wrapping
// a reduced model in a SubQuery before continuing.
type QueryModel struct {
	MainFromClause  *MainFromClause
	BodyClauses     []BodyClause
	Projection      ProjectionClause
	ResultOperators []ResultOperator
}

// NewQueryModel creates a model with the given source and projection.
func NewQueryModel(from *MainFromClause, projection ProjectionClause) *QueryModel {
	return &QueryModel{MainFromClause: from, Projection: projection}
}

// Reduced reports whether the model no longer accepts streaming clauses.
func (m *QueryModel) Reduced() bool {
	if len(m.ResultOperators) > 0 {
		return true
	}
	_, grouped := m.Projection.(*GroupClause)
	return grouped
}

// Streaming reports whether the model still accepts body clauses.
func (m *QueryModel) Streaming() bool { return !m.Reduced() }

// AddBodyClause appends a body clause. It fails on a reduced model.
func (m *QueryModel) AddBodyClause(c BodyClause) error {
	if m.Reduced() {
		return NewConfigurationError(fmt.Sprintf("%T", c),
			"cannot add a body clause to a reduced query model")
	}
	m.BodyClauses = append(m.BodyClauses, c)
	return nil
}

// AddResultOperator appends a result operator.
func (m *QueryModel) AddResultOperator(op ResultOperator) {
	m.ResultOperators = append(m.ResultOperators, op)
}

// OutputInfo computes the terminal output descriptor: the projection's
// sequence folded through every result operator's output function in order.
func (m *QueryModel) OutputInfo() (StreamedDataInfo, error) {
	if m.Projection == nil {
		return nil, NewConfigurationError("", "query model has no projection")
	}
	var info StreamedDataInfo = m.Projection.OutputInfo()
	for _, op := range m.ResultOperators {
		next, err := op.OutputInfo(info)
		if err != nil {
			return nil, err
		}
		info = next
	}
	return info, nil
}

// QuerySources returns every query source defined by the model, in clause
// order: main from, body clauses, group projection.
func (m *QueryModel) QuerySources() []QuerySource {
	sources := []QuerySource{m.MainFromClause}
	for _, c := range m.BodyClauses {
		if qs, ok := c.(QuerySource); ok {
			sources = append(sources, qs)
		}
	}
	if g, ok := m.Projection.(*GroupClause); ok {
		sources = append(sources, g)
	}
	return sources
}

// TransformExpressions replaces every expression held by the model's clauses
// and result operators with fn's result.
func (m *QueryModel) TransformExpressions(fn func(expr.Expr) expr.Expr) {
	m.MainFromClause.TransformExpressions(fn)
	for _, c := range m.BodyClauses {
		c.TransformExpressions(fn)
	}
	m.Projection.TransformExpressions(fn)
	for _, op := range m.ResultOperators {
		op.TransformExpressions(fn)
	}
}

// Clone returns a deep copy. References to the model's own query sources are
// remapped to the copied clauses and constant values are copied.
func (m *QueryModel) Clone() *QueryModel {
	return m.CloneWith(NewCloneContext())
}

// CloneWith copies the model using ctx, so that references from a nested model
// to sources of an enclosing model being cloned are remapped as well.
func (m *QueryModel) CloneWith(ctx *CloneContext) *QueryModel {
	out := &QueryModel{MainFromClause: m.MainFromClause.Clone(ctx)}
	for _, c := range m.BodyClauses {
		out.BodyClauses = append(out.BodyClauses, c.Clone(ctx))
	}
	out.Projection = m.Projection.Clone(ctx)
	for _, op := range m.ResultOperators {
		out.ResultOperators = append(out.ResultOperators, op.Clone(ctx))
	}
	return out
}

// String renders the canonical text form, for example
//
//	from Int32 i in value([]Int32) where ([i] > 2) select [i] => Take(3)
func (m *QueryModel) String() string {
	var sb strings.Builder
	sb.WriteString(m.MainFromClause.String())
	for _, c := range m.BodyClauses {
		sb.WriteByte(' ')
		sb.WriteString(c.String())
	}
	sb.WriteByte(' ')
	sb.WriteString(m.Projection.String())
	for _, op := range m.ResultOperators {
		sb.WriteString(" => ")
		sb.WriteString(op.String())
	}
	return sb.String()
}
