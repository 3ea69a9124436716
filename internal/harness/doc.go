// Package harness runs query scenarios as conformance tests.
//
// A scenario names a query document, optional tables to seed, and the
// outcome it expects. Each run builds the query model, executes it in
// memory and compares what it got against the expectations.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: adults_by_age
//	description: "Adults, oldest first"
//	document: ../queries/adults.yaml   # or an inline query: block
//	tables:
//	  people:
//	    columns: [{name: name, type: string}, {name: age, type: int32}]
//	    rows: [{name: Alice, age: 34}]
//	expect:
//	  canonical: "from ... select [p].Name"
//	  results: [Carol, Alice]
//	assertions:
//	  - type: result_count
//	    count: 2
//	  - type: canonical_contains
//	    text: "orderby [p].Age desc"
//
// # Expectations
//
//   - canonical: the exact canonical text of the query model
//   - results: the items of a sequence result, in order
//   - value: the single value of a scalar result
//   - error: the error code the build or execution fails with
//
// Results and values are compared after a JSON round trip, so a row
// matches a mapping of its column names and numbers match regardless of
// their width.
//
// # Assertion Types
//
//   - canonical_contains: the canonical text contains Text
//   - result_count: the sequence result has exactly Count items
//   - body_clauses: the model has exactly Count body clauses
//   - result_operators: the model has exactly Count result operators
//   - wrapped: the main from clause reads from a sub-query
//
// # Isolation
//
// Every scenario runs against a fresh in-memory SQLite database holding
// only its own tables, so scenarios can be run in any order.
package harness
