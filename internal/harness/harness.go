package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/roach88/querymodel/internal/canonical"
	"github.com/roach88/querymodel/internal/exec"
	"github.com/roach88/querymodel/internal/explain"
	"github.com/roach88/querymodel/internal/frontend"
	"github.com/roach88/querymodel/internal/parsing"
	"github.com/roach88/querymodel/internal/queryir"
	"github.com/roach88/querymodel/internal/store"
)

// ErrCodeDocument marks failures that happen before a query model exists
// and carry no query error code, such as a lambda that does not parse.
const ErrCodeDocument = "DOCUMENT"

// Harness is the scenario execution engine. It owns the scenario's
// database for the duration of one run.
type Harness struct {
	store  *store.Store
	fs     afero.Fs
	parser *parsing.Parser
	logger *slog.Logger
}

// Run executes a scenario and returns the result. File sources are read
// from fs, or the OS filesystem if fs is nil.
//
// Each scenario runs in a fresh in-memory database. The returned error
// reports a harness failure; a query that fails is recorded in the
// result and checked against the expected error code.
func Run(ctx context.Context, scenario *Scenario, fs afero.Fs) (*Result, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		fs:     fs,
		parser: parsing.NewParser(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err := h.seed(ctx, scenario.Tables); err != nil {
		return nil, fmt.Errorf("failed to seed tables: %w", err)
	}

	result := NewResult()
	h.execute(ctx, scenario, result)
	h.logger.Info("scenario executed",
		"scenario", scenario.Name,
		"canonical", result.Canonical,
		"error_code", result.ErrorCode,
	)

	for _, msg := range checkExpect(scenario.Expect, result) {
		result.AddError(msg)
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, tables map[string]Table) error {
	for name, t := range tables {
		rows, err := t.Columns.Rows(t.Rows)
		if err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		if err := h.store.CreateTable(ctx, name, t.Columns, rows); err != nil {
			return err
		}
	}
	return nil
}

// execute builds and runs the scenario's query, filling in result. It
// stops at the first failure.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, result *Result) {
	env := frontend.Environment{Fs: h.fs, Dir: scenario.Dir, Store: h.store}
	q, err := scenario.Query.Query(ctx, env)
	if err != nil {
		fail(result, err)
		return
	}
	e, err := q.Build()
	if err != nil {
		fail(result, err)
		return
	}
	m, err := h.parser.Parse(e)
	if err != nil {
		fail(result, err)
		return
	}
	result.model = m
	result.Canonical = m.String()
	if result.Fingerprint, err = canonical.Fingerprint(m); err != nil {
		fail(result, err)
		return
	}
	if result.Explain, err = explain.Explain(m); err != nil {
		fail(result, err)
		return
	}

	v, err := exec.New().Execute(m)
	if err != nil {
		fail(result, err)
		return
	}
	seq, ok := v.(queryir.Sequence)
	if !ok {
		result.Scalar = true
		if result.Value, err = normalize(v); err != nil {
			fail(result, err)
		}
		return
	}
	items, err := queryir.Collect(seq)
	if err != nil {
		fail(result, err)
		return
	}
	result.Results = make([]any, len(items))
	for i, it := range items {
		if result.Results[i], err = normalize(it); err != nil {
			fail(result, fmt.Errorf("item %d: %w", i, err))
			return
		}
	}
}

func fail(result *Result, err error) {
	result.Error = err.Error()
	result.ErrorCode = string(queryir.CodeOf(err))
	if result.ErrorCode == "" {
		result.ErrorCode = ErrCodeDocument
	}
}

// checkExpect compares the result with the expected outcome.
func checkExpect(e Expect, result *Result) []string {
	var errs []string
	if e.Error != "" {
		if result.ErrorCode != e.Error {
			errs = append(errs, fmt.Sprintf("expected error %s, got %s", e.Error, describeOutcome(result)))
		}
		return errs
	}
	if result.ErrorCode != "" {
		return append(errs, fmt.Sprintf("unexpected error: %s", result.Error))
	}

	if e.Canonical != "" && e.Canonical != result.Canonical {
		errs = append(errs, fmt.Sprintf("canonical form mismatch\n  expected: %s\n  actual:   %s", e.Canonical, result.Canonical))
	}
	if e.Results != nil {
		if result.Scalar {
			errs = append(errs, fmt.Sprintf("expected a sequence, got value %v", result.Value))
		} else if diff := diffValues(e.Results, result.Results); diff != "" {
			errs = append(errs, fmt.Sprintf("results mismatch (-want +got):\n%s", diff))
		}
	}
	if e.Value != nil {
		if !result.Scalar {
			errs = append(errs, fmt.Sprintf("expected a value, got %d items", len(result.Results)))
		} else if diff := diffValues(e.Value, result.Value); diff != "" {
			errs = append(errs, fmt.Sprintf("value mismatch (-want +got):\n%s", diff))
		}
	}
	return errs
}

func describeOutcome(result *Result) string {
	if result.ErrorCode == "" {
		return "success"
	}
	return result.Error
}

// diffValues normalizes want the same way results are normalized and
// diffs the two.
func diffValues(want, got any) string {
	w, err := normalize(want)
	if err != nil {
		return fmt.Sprintf("expected value cannot be compared: %v", err)
	}
	return cmp.Diff(w, got)
}

// normalize round-trips v through JSON, so typed rows, pointers and
// numbers of any width compare equal to their YAML spelling.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
