package resultset

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAddRowAndGet(t *testing.T) {
	table := NewTableFromNames("", "id", "Name")
	assert.Equal(t, DefaultTableName, table.Name)

	require.NoError(t, table.AddRow(int64(1), "alpha"))
	require.Error(t, table.AddRow(int64(2)))
	require.Equal(t, 1, table.Len())

	row := table.Row(0)
	v, err := row.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "alpha", v)

	_, err = row.Get("missing")
	assert.Error(t, err)

	require.NoError(t, row.Set("ID", int64(7)))
	assert.Equal(t, int64(7), row.Value(0))
	assert.Equal(t, map[string]any{"id": int64(7), "Name": "alpha"}, row.Map())
}

func TestAddColumnPadsRows(t *testing.T) {
	table := NewTableFromNames("T", "a")
	require.NoError(t, table.AddRow(1))

	idx := table.AddColumn(Column{Name: "b"})
	assert.Equal(t, 1, idx)
	assert.Equal(t, []any{1, nil}, table.Row(0).Values())

	assert.Equal(t, 0, table.AddColumn(Column{Name: "A"}), "existing column is not duplicated")
	assert.Equal(t, []string{"a", "b"}, table.ColumnNames())
}

func TestSetMerge(t *testing.T) {
	first := NewTableFromNames("RESULT", "id", "name")
	require.NoError(t, first.AddRow(1, "a"))

	second := NewTableFromNames("result", "id", "extra")
	require.NoError(t, second.AddRow(2, "x"))

	other := NewTableFromNames("OTHER", "v")
	require.NoError(t, other.AddRow(true))

	set := NewSet(first)
	set.Merge(NewSet(second, other))

	require.Equal(t, 2, set.Len())
	merged, ok := set.Table("RESULT")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name", "extra"}, merged.ColumnNames())
	assert.Equal(t, []any{1, "a", nil}, merged.Row(0).Values())
	assert.Equal(t, []any{2, nil, "x"}, merged.Row(1).Values())

	_, err := set.MustTable("nope")
	assert.ErrorContains(t, err, "RESULT, OTHER")

	assert.Same(t, first, set.First())
	assert.Nil(t, NewSet().First())
}

func TestFillFromRows(t *testing.T) {
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "fill.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE items (id INTEGER NOT NULL, name TEXT, payload BLOB)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items VALUES (1, 'one', x'0102'), (2, NULL, NULL)`)
	require.NoError(t, err)

	rows, err := db.Queryx(`SELECT id, name, payload FROM items ORDER BY id`)
	require.NoError(t, err)
	defer rows.Close()

	table := NewTable("items")
	n, err := table.Fill(rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cols := table.Columns()
	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "INTEGER", cols[0].DatabaseType)
	assert.Equal(t, "BLOB", cols[2].DatabaseType)

	assert.Equal(t, []any{int64(1), "one", []byte{1, 2}}, table.Row(0).Values())
	assert.Equal(t, []any{int64(2), nil, nil}, table.Row(1).Values())
}

func TestFillDuplicateColumnNames(t *testing.T) {
	db, err := sqlx.Open("sqlite3", filepath.Join(t.TempDir(), "dup.db"))
	require.NoError(t, err)
	defer db.Close()

	fill := func(table *Table, query string) {
		t.Helper()
		rows, err := db.Queryx(query)
		require.NoError(t, err)
		defer rows.Close()
		_, err = table.Fill(rows)
		require.NoError(t, err)
	}

	table := NewTable("")
	fill(table, `SELECT 1 AS id, 2 AS id, 3 AS ID`)

	assert.Equal(t, []string{"id", "id1", "ID2"}, table.ColumnNames())
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, table.Row(0).Values())

	// A second result with the same shape lands in the same columns
	fill(table, `SELECT 4 AS id, 5 AS id, 6 AS ID`)

	require.Len(t, table.Columns(), 3)
	assert.Equal(t, []any{int64(4), int64(5), int64(6)}, table.Row(1).Values())
}

func TestIsBinaryType(t *testing.T) {
	assert.True(t, IsBinaryType("BLOB"))
	assert.True(t, IsBinaryType("bytea"))
	assert.True(t, IsBinaryType("VARBINARY"))
	assert.False(t, IsBinaryType("TEXT"))
	assert.False(t, IsBinaryType(""))
}
