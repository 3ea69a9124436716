package explain

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/frontend"
	"github.com/roach88/querymodel/internal/parsing"
	"github.com/roach88/querymodel/internal/queryir"
	"github.com/roach88/querymodel/internal/testutil"
)

func TestExplain_Golden(t *testing.T) {
	customers := testutil.Customers()
	tests := []struct {
		name  string
		query frontend.Query
	}{
		{
			name:  "clauses",
			query: frontend.From(customers).Where("c => c.Age > 30").OrderBy("c => c.Name").Select("c => c.Name").Take(1),
		},
		{
			name:  "wrapped",
			query: frontend.From([]int32{1, 2, 3}).Take(2).Where("x => x > 1"),
		},
		{
			name:  "correlated",
			query: frontend.From(customers).Select("c => c.Orders.Where(o => o.Amount > 20).Count()"),
		},
		{
			name: "join",
			query: frontend.From(customers).
				GroupJoin(testutil.Orders(), "c => c.ID", "o => o.CustomerID", "(c, os) => os.Count()"),
		},
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := parsing.NewParser().Parse(tt.query.MustBuild())
			require.NoError(t, err)

			out, err := Explain(m)
			require.NoError(t, err)

			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestExplain_NumbersSubQueriesDepthFirst(t *testing.T) {
	q := frontend.From(testutil.Customers()).
		Where("c => c.Orders.Count() > 1").
		Select("c => c.Orders.Select(o => o.Quantity).Sum()")
	m, err := parsing.NewParser().Parse(q.MustBuild())
	require.NoError(t, err)

	out, err := Explain(m)
	require.NoError(t, err)

	assert.Contains(t, out, "where (#1 > 1)")
	assert.Contains(t, out, "select #2")
	assert.Contains(t, out, "#2 QueryModel Int32")
}

func TestExplain_Errors(t *testing.T) {
	_, err := Explain(nil)
	assert.Error(t, err)

	m := queryir.NewQueryModel(
		queryir.NewMainFromClause("s", testutil.CustomerType, frontend.Const(testutil.Customers())),
		&queryir.SelectClause{Selector: frontend.Const("x")},
	)
	m.AddResultOperator(&queryir.Sum{})
	_, err = Explain(m)
	assert.True(t, queryir.IsTypeMismatch(err))
}
