package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// LoadTable reads every row of table, in rowid order, into a typed slice
// whose element type is schema.RowType(). Only the schema's columns are
// selected; other columns are ignored.
//
// Returns an empty slice (not nil) for an empty table.
func (s *Store) LoadTable(ctx context.Context, table string, schema Schema) (any, error) {
	rowType, err := schema.RowType()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}

	names := make([]string, len(schema))
	for i, c := range schema {
		names[i] = quoteIdent(c.Name)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid",
		strings.Join(names, ", "), quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	out := reflect.MakeSlice(reflect.SliceOf(rowType), 0, 0)
	values := make([]any, len(schema))
	dest := make([]any, len(schema))
	for i := range values {
		dest[i] = &values[i]
	}
	for n := 0; rows.Next(); n++ {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("load %s: scan row %d: %w", table, n, err)
		}
		row := reflect.New(rowType).Elem()
		for i, c := range schema {
			v, err := convertValue(values[i], rowType.Field(i).Type)
			if err != nil {
				return nil, fmt.Errorf("load %s: row %d, column %s: %w", table, n, c.Name, err)
			}
			row.Field(i).Set(v)
		}
		out = reflect.Append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: iterate rows: %w", table, err)
	}

	return out.Interface(), nil
}

// CreateTable creates table with schema's columns and inserts rows, a slice
// of schema.RowType() values, in one transaction. The table must not exist.
func (s *Store) CreateTable(ctx context.Context, table string, schema Schema, rows any) error {
	rowType, err := schema.RowType()
	if err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	rv := reflect.ValueOf(rows)
	if rv.Kind() != reflect.Slice || rv.Type().Elem() != rowType {
		return fmt.Errorf("create %s: rows must be a slice of %s, got %T", table, rowType, rows)
	}

	defs := make([]string, len(schema))
	names := make([]string, len(schema))
	marks := make([]string, len(schema))
	for i, c := range schema {
		defs[i] = quoteIdent(c.Name) + " " + sqlType(c)
		names[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", table, err)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(names, ", "), strings.Join(marks, ", "))
	for i := 0; i < rv.Len(); i++ {
		row := rv.Index(i)
		args := make([]any, row.NumField())
		for j := range args {
			f := row.Field(j)
			if f.Kind() == reflect.Pointer {
				if f.IsNil() {
					continue
				}
				f = f.Elem()
			}
			args[j] = f.Interface()
		}
		if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("create %s: insert row %d: %w", table, i, err)
		}
	}

	return tx.Commit()
}

func sqlType(c Column) string {
	name, nullable := strings.CutSuffix(c.Type, "?")
	var t string
	switch name {
	case "float64":
		t = "REAL"
	case "string":
		t = "TEXT"
	default:
		t = "INTEGER"
	}
	if !nullable {
		t += " NOT NULL"
	}
	return t
}

// quoteIdent quotes a SQLite identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
