package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTable_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rows := peopleRows(t)

	require.NoError(t, s.CreateTable(ctx, "people", peopleSchema, rows))
	got, err := s.LoadTable(ctx, "people", peopleSchema)

	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestLoadTable_ColumnSubset(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "people", peopleSchema, peopleRows(t)))

	names := Schema{{Name: "name", Type: "string"}}
	got, err := s.LoadTable(ctx, "people", names)

	require.NoError(t, err)
	rv := reflect.ValueOf(got)
	require.Equal(t, 3, rv.Len())
	assert.Equal(t, "Carol", rv.Index(2).Field(0).String())
}

func TestLoadTable_EmptyTable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	empty, err := peopleSchema.Rows(nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateTable(ctx, "people", peopleSchema, empty))

	got, err := s.LoadTable(ctx, "people", peopleSchema)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, 0, reflect.ValueOf(got).Len())
}

func TestLoadTable_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateTable(ctx, "people", peopleSchema, peopleRows(t)))

	_, err := s.LoadTable(ctx, "missing", peopleSchema)
	assert.ErrorContains(t, err, "load missing")

	// Bob has no score.
	strict := Schema{{Name: "score", Type: "float64"}}
	_, err = s.LoadTable(ctx, "people", strict)
	assert.ErrorContains(t, err, "row 1, column score")
}

func TestCreateTable_Errors(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.CreateTable(ctx, "people", peopleSchema, []int{1})
	assert.ErrorContains(t, err, "rows must be a slice of")

	require.NoError(t, s.CreateTable(ctx, "people", peopleSchema, peopleRows(t)))
	assert.Error(t, s.CreateTable(ctx, "people", peopleSchema, peopleRows(t)), "table exists")
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"plain"`, quoteIdent("plain"))
	assert.Equal(t, `"a""b"`, quoteIdent(`a"b`))
}
