package harness

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/querymodel/internal/frontend"
	"github.com/roach88/querymodel/internal/store"
)

// Scenario defines a conformance test: a query and what running it must
// produce.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden
	// file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the path of a query document, relative to the scenario
	// file.
	Document string `yaml:"document,omitempty"`

	// Query is an inline query document. Exactly one of Document and Query
	// is set.
	Query *frontend.Document `yaml:"query,omitempty"`

	// Tables are created in the scenario's database before the query runs.
	Tables map[string]Table `yaml:"tables,omitempty"`

	// Expect holds the expected outcome.
	Expect Expect `yaml:"expect"`

	// Assertions are additional checks on the model and its results.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Dir is the directory relative file sources resolve against: the
	// document's directory, or the scenario's for an inline query.
	Dir string `yaml:"-"`
}

// Table is a seeded database table.
type Table struct {
	Columns store.Schema     `yaml:"columns"`
	Rows    []map[string]any `yaml:"rows"`
}

// Expect specifies the expected outcome. Unset fields are not checked.
type Expect struct {
	Canonical string `yaml:"canonical,omitempty"`
	Results   []any  `yaml:"results,omitempty"`
	Value     any    `yaml:"value,omitempty"`
	Error     string `yaml:"error,omitempty"`
}

// Assertion is one check on the run. See the package documentation for
// the types.
type Assertion struct {
	Type  string `yaml:"type"`
	Text  string `yaml:"text,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCanonicalContains = "canonical_contains"
	AssertResultCount       = "result_count"
	AssertBodyClauses       = "body_clauses"
	AssertResultOperators   = "result_operators"
	AssertWrapped           = "wrapped"
)

// LoadScenario reads and parses a scenario file. A referenced document is
// loaded too, relative to the scenario's directory. Unknown fields are
// rejected.
func LoadScenario(fs afero.Fs, path string) (*Scenario, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	scenario.Dir = filepath.Dir(path)

	if scenario.Document != "" && scenario.Query == nil {
		docPath := scenario.Document
		if !filepath.IsAbs(docPath) {
			docPath = filepath.Join(scenario.Dir, docPath)
		}
		doc, err := frontend.LoadDocument(fs, docPath)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		scenario.Query = doc
		scenario.Dir = filepath.Dir(docPath)
		if err := validateScenario(&scenario, true); err != nil {
			return nil, fmt.Errorf("invalid scenario: %w", err)
		}
		return &scenario, nil
	}

	if err := validateScenario(&scenario, false); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario, loaded bool) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if !loaded && s.Document != "" && s.Query != nil {
		return fmt.Errorf("document and query are mutually exclusive")
	}
	if s.Query == nil {
		return fmt.Errorf("one of document or query is required")
	}
	if err := s.Query.Validate(); err != nil {
		return fmt.Errorf("query: %w", err)
	}

	for name, t := range s.Tables {
		if _, err := t.Columns.RowType(); err != nil {
			return fmt.Errorf("tables.%s: %w", name, err)
		}
	}

	e := s.Expect
	if e.Error != "" && (e.Results != nil || e.Value != nil) {
		return fmt.Errorf("expect: error excludes results and value")
	}
	if e.Results != nil && e.Value != nil {
		return fmt.Errorf("expect: results and value are mutually exclusive")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCanonicalContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: %s requires text", index, a.Type)
		}
	case AssertResultCount, AssertBodyClauses, AssertResultOperators:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertWrapped:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
