package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/queryir"
)

// DomainModel prefixes fingerprint input. The version suffix changes when
// the snapshot layout does.
const DomainModel = "querymodel/model/v1"

// Snapshot returns the canonical JSON form of m. The layout is
//
//	{"from": {...}, "body": [...], "projection": {...},
//	 "result_operators": [...], "output": "Int32", "text": "from ..."}
//
// A main from clause whose source is a sub-query carries the sub-query's
// snapshot under "sub_query"; other expressions appear as canonical text.
func Snapshot(m *queryir.QueryModel) ([]byte, error) {
	v, err := snapshot(m)
	if err != nil {
		return nil, err
	}
	return Marshal(v)
}

// Fingerprint is the hex SHA-256 of m's snapshot under DomainModel.
func Fingerprint(m *queryir.QueryModel) (string, error) {
	data, err := Snapshot(m)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainModel, data), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the model is known to be valid.
func MustFingerprint(m *queryir.QueryModel) string {
	fp, err := Fingerprint(m)
	if err != nil {
		panic(err)
	}
	return fp
}

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func snapshot(m *queryir.QueryModel) (map[string]any, error) {
	info, err := m.OutputInfo()
	if err != nil {
		return nil, err
	}
	s := &snapshotter{body: []any{}}
	if err := queryir.Walk(s, m); err != nil {
		return nil, err
	}
	ops := make([]any, len(m.ResultOperators))
	for i, op := range m.ResultOperators {
		ops[i] = op.String()
	}
	return map[string]any{
		"from":             s.from,
		"body":             s.body,
		"projection":       s.projection,
		"result_operators": ops,
		"output":           expr.TypeName(info.DataType()),
		"text":             m.String(),
	}, nil
}

// snapshotter collects clause objects in walk order.
type snapshotter struct {
	queryir.NopVisitor
	from       map[string]any
	body       []any
	projection map[string]any
}

func (s *snapshotter) VisitMainFromClause(c *queryir.MainFromClause, _ *queryir.QueryModel) error {
	s.from = source(c.Name, c.Type, c.FromExpression)
	if sq, ok := c.FromExpression.(*queryir.SubQuery); ok {
		nested, err := snapshot(sq.Model)
		if err != nil {
			return fmt.Errorf("sub-query of %s: %w", c.Name, err)
		}
		s.from["sub_query"] = nested
	}
	return nil
}

func (s *snapshotter) VisitAdditionalFromClause(c *queryir.AdditionalFromClause, _ *queryir.QueryModel, _ int) error {
	clause := source(c.Name, c.Type, c.FromExpression)
	clause["clause"] = "from"
	s.body = append(s.body, clause)
	return nil
}

func (s *snapshotter) VisitWhereClause(c *queryir.WhereClause, _ *queryir.QueryModel, _ int) error {
	s.body = append(s.body, map[string]any{"clause": "where", "predicate": expr.Format(c.Predicate)})
	return nil
}

func (s *snapshotter) VisitOrderByClause(c *queryir.OrderByClause, _ *queryir.QueryModel, _ int) error {
	orderings := make([]any, len(c.Orderings))
	for i, o := range c.Orderings {
		orderings[i] = map[string]any{"key": expr.Format(o.Expression), "direction": o.Direction.String()}
	}
	s.body = append(s.body, map[string]any{"clause": "orderby", "orderings": orderings})
	return nil
}

func (s *snapshotter) VisitJoinClause(c *queryir.JoinClause, _ *queryir.QueryModel, _ int) error {
	j := join(c)
	j["clause"] = "join"
	s.body = append(s.body, j)
	return nil
}

func (s *snapshotter) VisitGroupJoinClause(c *queryir.GroupJoinClause, _ *queryir.QueryModel, _ int) error {
	s.body = append(s.body, map[string]any{
		"clause": "group_join",
		"name":   c.Name,
		"type":   expr.TypeName(c.Type),
		"join":   join(c.JoinClause),
	})
	return nil
}

func (s *snapshotter) VisitSelectClause(c *queryir.SelectClause, _ *queryir.QueryModel) error {
	s.projection = map[string]any{"clause": "select", "selector": expr.Format(c.Selector)}
	return nil
}

func (s *snapshotter) VisitGroupClause(c *queryir.GroupClause, _ *queryir.QueryModel) error {
	s.projection = map[string]any{
		"clause":  "group",
		"name":    c.Name,
		"key":     expr.Format(c.KeySelector),
		"element": expr.Format(c.ElementSelector),
	}
	return nil
}

func source(name string, t reflect.Type, from expr.Expr) map[string]any {
	return map[string]any{
		"name":   name,
		"type":   expr.TypeName(t),
		"source": expr.Format(from),
	}
}

func join(c *queryir.JoinClause) map[string]any {
	return map[string]any{
		"name":      c.Name,
		"type":      expr.TypeName(c.Type),
		"inner":     expr.Format(c.InnerSequence),
		"outer_key": expr.Format(c.OuterKeySelector),
		"inner_key": expr.Format(c.InnerKeySelector),
	}
}
