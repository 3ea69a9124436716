package harness

import "github.com/roach88/querymodel/internal/queryir"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Canonical is the canonical text of the query model. Empty if the
	// model could not be built.
	Canonical string `json:"canonical,omitempty"`

	// Fingerprint identifies the query model. See canonical.Fingerprint.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Explain is the rendered clause tree.
	Explain string `json:"explain,omitempty"`

	// Results holds the normalized items of a sequence result.
	Results []any `json:"results,omitempty"`

	// Value holds the normalized value of a scalar result.
	Value any `json:"value,omitempty"`

	// Scalar reports whether the query produced a value rather than a
	// sequence.
	Scalar bool `json:"scalar,omitempty"`

	// ErrorCode and Error describe the build or execution failure, if any.
	// Documents that fail before a model exists report code DOCUMENT.
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	// Errors holds failed expectations and assertions. Empty if Pass is
	// true.
	Errors []string `json:"errors,omitempty"`

	model *queryir.QueryModel
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Model returns the query model the scenario built, or nil.
func (r *Result) Model() *queryir.QueryModel {
	return r.model
}
