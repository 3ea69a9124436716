package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/spf13/afero"
)

// Snapshot renders the deterministic parts of a result: the error, the
// canonical form, the results and the clause tree. The fingerprint is left
// out so a golden file reads as a review of the model.
func Snapshot(name string, result *Result) ([]byte, error) {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	if result.ErrorCode != "" {
		fmt.Fprintf(&buf, "error: %s\n", result.Error)
	}
	if result.Canonical != "" {
		fmt.Fprintf(&buf, "canonical: %s\n", result.Canonical)
	}
	if result.ErrorCode == "" {
		var out any = result.Results
		label := "results"
		if result.Scalar {
			out, label = result.Value, "value"
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%s: %s\n", label, data)
	}
	if result.Explain != "" {
		fmt.Fprintf(&buf, "explain:\n%s", result.Explain)
	}
	return []byte(buf.String()), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario, fs afero.Fs) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, fs)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against a
// golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
