package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querymodel/internal/frontend"
	"github.com/roach88/querymodel/internal/store"
)

func numbers(ops ...frontend.Step) *frontend.Document {
	return &frontend.Document{
		Name: "numbers",
		From: "nums",
		Sources: map[string]frontend.Source{"nums": {
			Columns: store.Schema{{Name: "n", Type: "int32"}},
			Rows:    []map[string]any{{"n": 3}, {"n": 1}, {"n": 2}},
		}},
		Ops: ops,
	}
}

func writeScenario(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(strings.TrimLeft(content, "\n")), 0o644))
}

func TestLoadScenario_ResolvesDocument(t *testing.T) {
	s, err := LoadScenario(afero.NewOsFs(), "testdata/scenarios/adults_by_age.yaml")
	require.NoError(t, err)

	require.NotNil(t, s.Query)
	assert.Equal(t, "adults", s.Query.Name)
	assert.Equal(t, filepath.Join("testdata", "queries"), s.Dir)
	assert.Equal(t, []any{"Carol", "Alice"}, s.Expect.Results)
}

func TestLoadScenario_Errors(t *testing.T) {
	const query = `
query:
  from: s
  sources:
    s:
      columns: [{name: n, type: int}]
      rows: [{n: 1}]
`
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "name: x\nexpects: {}\n" + query, "failed to parse YAML"},
		{"missing name", "description: x\n" + query, "name is required"},
		{"no query", "name: x\n", "one of document or query is required"},
		{"both document and query", "name: x\ndocument: q.yaml\n" + query, "mutually exclusive"},
		{"missing document", "name: x\ndocument: nowhere.yaml\n", "read document"},
		{"error with results", "name: x\nexpect: {error: EXECUTION, results: [1]}\n" + query, "error excludes results"},
		{"unknown assertion", "name: x\nassertions: [{type: trace_order}]\n" + query, `unknown type "trace_order"`},
		{"assertion without text", "name: x\nassertions: [{type: canonical_contains}]\n" + query, "requires text"},
		{"bad table", "name: x\ntables: {t: {columns: [{name: a, type: blob}], rows: []}}\n" + query, "tables.t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeScenario(t, fs, "/s/scenario.yaml", tt.content)

			_, err := LoadScenario(fs, "/s/scenario.yaml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadScenario(afero.NewMemMapFs(), "/missing.yaml")
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(afero.NewOsFs(), path)
			require.NoError(t, err)

			result, err := Run(context.Background(), s, nil)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"adults_by_age", "city_population"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(afero.NewOsFs(), filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s, nil)
			require.NoError(t, err)
			assert.Len(t, result.Fingerprint, 64)
		})
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	s := &Scenario{
		Name:  "mismatch",
		Query: numbers(frontend.Step{Op: "OrderBy", Lambda: "x => x.N"}, frontend.Step{Op: "Select", Lambda: "x => x.N"}),
		Expect: Expect{
			Canonical: "from Int32 x in value([]Int32) select [x]",
			Results:   []any{1, 2, 4},
		},
		Assertions: []Assertion{{Type: AssertResultCount, Count: 2}, {Type: AssertWrapped}},
	}

	result, err := Run(context.Background(), s, nil)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Equal(t, []any{1.0, 2.0, 3.0}, result.Results)
	require.Len(t, result.Errors, 4)
	assert.Contains(t, result.Errors[0], "canonical form mismatch")
	assert.Contains(t, result.Errors[1], "results mismatch")
	assert.Contains(t, result.Errors[2], "3 items")
	assert.Contains(t, result.Errors[3], "main source is a sub-query")
}

func TestRun_ScalarResult(t *testing.T) {
	s := &Scenario{
		Name:   "sum",
		Query:  numbers(frontend.Step{Op: "Sum", Lambda: "x => x.N"}),
		Expect: Expect{Value: 6},
		Assertions: []Assertion{
			{Type: AssertResultOperators, Count: 1},
			{Type: AssertResultCount, Count: 1},
		},
	}

	result, err := Run(context.Background(), s, nil)
	require.NoError(t, err)

	assert.True(t, result.Scalar)
	assert.Equal(t, 6.0, result.Value)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "no sequence result")
}

func TestRun_WrappedSource(t *testing.T) {
	s := &Scenario{
		Name: "wrapped",
		Query: numbers(
			frontend.Step{Op: "Select", Lambda: "x => x.N"},
			frontend.Step{Op: "Take", Args: []any{2}},
			frontend.Step{Op: "Where", Lambda: "x => x > 1"},
		),
		Expect:     Expect{Results: []any{3}},
		Assertions: []Assertion{{Type: AssertWrapped}, {Type: AssertBodyClauses, Count: 1}},
	}

	result, err := Run(context.Background(), s, nil)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		doc  *frontend.Document
		code string
	}{
		{"document", numbers(frontend.Step{Op: "Where", Lambda: "x => x.Missing"}), ErrCodeDocument},
		{"type mismatch", numbers(frontend.Step{Op: "Select", Lambda: "x => x.N > 1"}, frontend.Step{Op: "Sum"}), "TYPE_MISMATCH"},
		{"execution", numbers(frontend.Step{Op: "Where", Lambda: "x => x.N > 5"}, frontend.Step{Op: "First"}), "EXECUTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Run(context.Background(), &Scenario{Name: tt.name, Query: tt.doc, Expect: Expect{Error: tt.code}}, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.code, result.ErrorCode)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}

	result, err := Run(context.Background(), &Scenario{
		Name:   "unexpected",
		Query:  numbers(frontend.Step{Op: "First"}),
		Expect: Expect{Error: "EXECUTION"},
	}, nil)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected error EXECUTION, got success")
}

func TestAssertionsNeedAModel(t *testing.T) {
	result := NewResult()
	result.ErrorCode = ErrCodeDocument

	errs := EvaluateAssertions(result, []Assertion{{Type: AssertBodyClauses}, {Type: AssertResultCount}})

	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "no query model was built")
	assert.Contains(t, errs[1], "no sequence result")
}

func TestNormalize(t *testing.T) {
	schema := store.Schema{{Name: "name", Type: "string"}, {Name: "score", Type: "float64?"}}
	rows, err := schema.Rows([]map[string]any{{"name": "Bob"}})
	require.NoError(t, err)

	got, err := normalize(rows)
	require.NoError(t, err)

	assert.Equal(t, []any{map[string]any{"name": "Bob", "score": nil}}, got)
}
