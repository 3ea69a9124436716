package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/roach88/querymodel/internal/expr"
	"github.com/roach88/querymodel/internal/store"
)

// Document is a query written down: named data sources and an operator
// chain over one of them.
//
//	name: adults
//	from: customers
//	sources:
//	  customers:
//	    columns: [{name: name, type: string}, {name: age, type: int32}]
//	    rows: [{name: Alice, age: 34}, {name: Bob, age: 17}]
//	ops:
//	  - {op: Where, lambda: "c => c.Age >= 18"}
//	  - {op: Select, lambda: "c => c.Name"}
type Document struct {
	Name    string            `yaml:"name" json:"name"`
	From    string            `yaml:"from" json:"from"`
	Sources map[string]Source `yaml:"sources" json:"sources"`
	Ops     []Step            `yaml:"ops" json:"ops"`
}

// Source is a dataset with a column schema. Exactly one of Rows, File and
// Table supplies the data: inline rows, a JSON file holding an array of
// row objects, or a table of the SQLite store.
type Source struct {
	Columns store.Schema     `yaml:"columns" json:"columns"`
	Rows    []map[string]any `yaml:"rows,omitempty" json:"rows,omitempty"`
	File    string           `yaml:"file,omitempty" json:"file,omitempty"`
	Table   string           `yaml:"table,omitempty" json:"table,omitempty"`
}

// Step is one operator call. Its arguments are, in order: the named
// Source (the second sequence of Join, Union, ...), the Args values, the
// Lambda and the Lambdas. Type is the target of Cast and OfType.
type Step struct {
	Op      string   `yaml:"op" json:"op"`
	Source  string   `yaml:"source,omitempty" json:"source,omitempty"`
	Args    []any    `yaml:"args,omitempty" json:"args,omitempty"`
	Lambda  string   `yaml:"lambda,omitempty" json:"lambda,omitempty"`
	Lambdas []string `yaml:"lambdas,omitempty" json:"lambdas,omitempty"`
	Type    string   `yaml:"type,omitempty" json:"type,omitempty"`
}

// Environment resolves document sources.
type Environment struct {
	// Fs reads JSON row files. Nil means the OS filesystem.
	Fs afero.Fs

	// Dir is the base of relative file paths, usually the document's
	// directory.
	Dir string

	// Store serves table sources. Nil rejects them.
	Store *store.Store
}

// ParseDocument decodes a document. Names ending in .cue are CUE; anything
// else is YAML, which includes JSON. Unknown fields are rejected.
func ParseDocument(name string, data []byte) (*Document, error) {
	if strings.HasSuffix(name, ".cue") {
		return parseCUE(name, data)
	}
	var doc Document
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &doc, nil
}

// LoadDocument reads and decodes the document at path.
func LoadDocument(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return ParseDocument(path, data)
}

// Validate checks what decoding cannot: every named source exists and
// supplies its data exactly one way, and every step names an operator.
func (d *Document) Validate() error {
	if d.From == "" {
		return fmt.Errorf("document %q has no from source", d.Name)
	}
	if _, ok := d.Sources[d.From]; !ok {
		return fmt.Errorf("from source %q is not defined", d.From)
	}
	for name, s := range d.Sources {
		n := 0
		if s.Rows != nil {
			n++
		}
		if s.File != "" {
			n++
		}
		if s.Table != "" {
			n++
		}
		if n != 1 {
			return fmt.Errorf("source %q must have exactly one of rows, file or table", name)
		}
		if _, err := s.Columns.RowType(); err != nil {
			return fmt.Errorf("source %q: %w", name, err)
		}
	}
	for i, st := range d.Ops {
		if st.Op == "" {
			return fmt.Errorf("step %d has no op", i)
		}
		if st.Source != "" {
			if _, ok := d.Sources[st.Source]; !ok {
				return fmt.Errorf("step %d (%s): source %q is not defined", i, st.Op, st.Source)
			}
		}
	}
	return nil
}

// Query loads the sources the document uses and builds its operator
// chain.
func (d *Document) Query(ctx context.Context, env Environment) (Query, error) {
	if err := d.Validate(); err != nil {
		return Query{}, err
	}
	loaded := make(map[string]any)
	load := func(name string) (any, error) {
		if v, ok := loaded[name]; ok {
			return v, nil
		}
		v, err := env.load(ctx, name, d.Sources[name])
		if err != nil {
			return nil, err
		}
		loaded[name] = v
		return v, nil
	}

	from, err := load(d.From)
	if err != nil {
		return Query{}, err
	}
	q := From(from)
	for i, st := range d.Ops {
		if st.Op == "Cast" || st.Op == "OfType" {
			t, err := typeByName(st.Type)
			if err != nil {
				return Query{}, fmt.Errorf("step %d (%s): %w", i, st.Op, err)
			}
			q = q.typeCall(st.Op, t)
			continue
		}
		var args []any
		if st.Source != "" {
			v, err := load(st.Source)
			if err != nil {
				return Query{}, err
			}
			args = append(args, Const(v))
		}
		for _, a := range st.Args {
			v, err := argValue(a, q, st.Op)
			if err != nil {
				return Query{}, fmt.Errorf("step %d (%s): %w", i, st.Op, err)
			}
			args = append(args, v)
		}
		if st.Lambda != "" {
			args = append(args, st.Lambda)
		}
		for _, l := range st.Lambdas {
			args = append(args, l)
		}
		q = q.Call(st.Op, args...)
		if q.err != nil {
			return Query{}, fmt.Errorf("step %d (%s): %w", i, st.Op, q.err)
		}
	}
	return q, nil
}

func (env Environment) load(ctx context.Context, name string, s Source) (any, error) {
	switch {
	case s.Table != "":
		if env.Store == nil {
			return nil, fmt.Errorf("source %q reads table %s but no database is open", name, s.Table)
		}
		v, err := env.Store.LoadTable(ctx, s.Table, s.Columns)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		return v, nil
	case s.File != "":
		fs := env.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		path := s.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(env.Dir, path)
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		var records []map[string]any
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("source %q: decode %s: %w", name, s.File, err)
		}
		return rows(name, s.Columns, records)
	}
	return rows(name, s.Columns, s.Rows)
}

func rows(name string, schema store.Schema, records []map[string]any) (any, error) {
	v, err := schema.Rows(records)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", name, err)
	}
	return v, nil
}

// itemArgs are operators whose value argument is compared with or
// combined with items, so numbers take the item type.
var itemArgs = map[string]bool{"Contains": true, "DefaultIfEmpty": true, "Aggregate": true}

// argValue turns a decoded argument into a constant. Decoders disagree on
// integer types, so integers become int unless the operator needs the item
// type.
func argValue(a any, q Query, op string) (any, error) {
	switch v := a.(type) {
	case int64:
		if v < math.MinInt || v > math.MaxInt {
			return nil, fmt.Errorf("argument %d out of range", v)
		}
		a = int(v)
	case nil, map[string]any, []any:
		return nil, fmt.Errorf("argument %v is not a scalar", a)
	}
	if itemArgs[op] && q.err == nil {
		if elem, ok := expr.ElementType(q.e.Type()); ok {
			if c, ok := convertNumber(a, elem); ok {
				return Const(c), nil
			}
		}
	}
	return Const(a), nil
}

// convertNumber converts an int or float64 to the numeric type t.
func convertNumber(a any, t reflect.Type) (any, bool) {
	rv := reflect.ValueOf(a)
	switch rv.Kind() {
	case reflect.Int, reflect.Float64:
	default:
		return nil, false
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		if rv.Kind() == reflect.Float64 && rv.Float() != math.Trunc(rv.Float()) {
			return nil, false
		}
	case reflect.Float64:
	default:
		return nil, false
	}
	return rv.Convert(t).Interface(), true
}

// typeByName maps a column type name, or object, to a type.
func typeByName(name string) (reflect.Type, error) {
	if name == "object" {
		return reflect.TypeFor[any](), nil
	}
	return store.Column{Name: "type", Type: name}.GoType()
}
