package store

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/roach88/querymodel/internal/expr"
)

// Column describes one column of a dataset. Type is one of int, int32,
// int64, float64, string or bool; a trailing ? makes the column nullable.
type Column struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// Schema is an ordered column list.
type Schema []Column

var columnTypes = map[string]reflect.Type{
	"int":     reflect.TypeFor[int](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"float64": reflect.TypeFor[float64](),
	"string":  reflect.TypeFor[string](),
	"bool":    reflect.TypeFor[bool](),
}

// GoType returns the field type for the column.
func (c Column) GoType() (reflect.Type, error) {
	name, nullable := strings.CutSuffix(c.Type, "?")
	t, ok := columnTypes[name]
	if !ok {
		return nil, fmt.Errorf("column %s: unknown type %q", c.Name, c.Type)
	}
	if nullable {
		return reflect.PointerTo(t), nil
	}
	return t, nil
}

// RowType returns the struct type of one row. Field names are the column
// names with the first letter upper-cased.
func (s Schema) RowType() (reflect.Type, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("schema has no columns")
	}
	fields := make([]reflect.StructField, 0, len(s))
	seen := make(map[string]string, len(s))
	for _, c := range s {
		t, err := c.GoType()
		if err != nil {
			return nil, err
		}
		name := expr.ExportName(c.Name)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("columns %s and %s both map to field %s", prev, c.Name, name)
		}
		seen[name] = c.Name
		fields = append(fields, reflect.StructField{
			Name: name,
			Type: t,
			Tag:  reflect.StructTag(fmt.Sprintf(`json:%q`, c.Name)),
		})
	}
	return reflect.StructOf(fields), nil
}

// Rows converts records keyed by column name into a typed slice of rows.
// Missing keys are null; unknown keys are an error.
func (s Schema) Rows(records []map[string]any) (any, error) {
	rowType, err := s.RowType()
	if err != nil {
		return nil, err
	}
	out := reflect.MakeSlice(reflect.SliceOf(rowType), 0, len(records))
	for i, rec := range records {
		row := reflect.New(rowType).Elem()
		for key := range rec {
			if !s.has(key) {
				return nil, fmt.Errorf("row %d: unknown column %q", i, key)
			}
		}
		for j, c := range s {
			v, err := convertValue(rec[c.Name], rowType.Field(j).Type)
			if err != nil {
				return nil, fmt.Errorf("row %d, column %s: %w", i, c.Name, err)
			}
			row.Field(j).Set(v)
		}
		out = reflect.Append(out, row)
	}
	return out.Interface(), nil
}

func (s Schema) has(name string) bool {
	for _, c := range s {
		if c.Name == name {
			return true
		}
	}
	return false
}

// convertValue coerces a decoded YAML, JSON or SQLite value to t.
func convertValue(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		if t.Kind() == reflect.Pointer {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("null in a non-nullable column")
	}
	if t.Kind() == reflect.Pointer {
		inner, err := convertValue(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil
	}

	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := toInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, expr.TypeName(t))
		}
		out.SetInt(n)
	case reflect.Float64:
		f, err := toFloat(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case reflect.String:
		switch x := v.(type) {
		case string:
			out.SetString(x)
		case []byte:
			out.SetString(string(x))
		default:
			return reflect.Value{}, fmt.Errorf("expected a string, got %T", v)
		}
	case reflect.Bool:
		switch x := v.(type) {
		case bool:
			out.SetBool(x)
		case int64:
			out.SetBool(x != 0)
		default:
			return reflect.Value{}, fmt.Errorf("expected a bool, got %T", v)
		}
	default:
		return reflect.Value{}, fmt.Errorf("unsupported column type %s", expr.TypeName(t))
	}
	return out, nil
}

func toInt(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows Int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case json.Number:
		return x.Int64()
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}
