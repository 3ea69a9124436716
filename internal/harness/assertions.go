package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/querymodel/internal/queryir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type      string // Assertion type for categorization
	Expected  string // Human-readable expected outcome
	Actual    string // Human-readable actual outcome
	Canonical string // Canonical text of the model, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Canonical != "" {
		fmt.Fprintf(&buf, "  Model: %s\n", e.Canonical)
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion against result and returns the
// failure messages. Model assertions fail if no model was built.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	mismatch := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Canonical: result.Canonical}
	}

	if a.Type == AssertResultCount {
		if result.Scalar || result.ErrorCode != "" {
			return mismatch(fmt.Sprintf("%d items", a.Count), "no sequence result")
		}
		if len(result.Results) != a.Count {
			return mismatch(fmt.Sprintf("%d items", a.Count), fmt.Sprintf("%d items", len(result.Results)))
		}
		return nil
	}

	m := result.model
	if m == nil {
		return mismatch(a.Type, "no query model was built")
	}
	switch a.Type {
	case AssertCanonicalContains:
		if !strings.Contains(result.Canonical, a.Text) {
			return mismatch(fmt.Sprintf("canonical form containing %q", a.Text), "not found")
		}
	case AssertBodyClauses:
		if len(m.BodyClauses) != a.Count {
			return mismatch(fmt.Sprintf("%d body clauses", a.Count), fmt.Sprintf("%d body clauses", len(m.BodyClauses)))
		}
	case AssertResultOperators:
		if len(m.ResultOperators) != a.Count {
			return mismatch(fmt.Sprintf("%d result operators", a.Count), fmt.Sprintf("%d result operators", len(m.ResultOperators)))
		}
	case AssertWrapped:
		if _, ok := m.MainFromClause.FromExpression.(*queryir.SubQuery); !ok {
			return mismatch("main source is a sub-query", m.MainFromClause.FromExpression.String())
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
