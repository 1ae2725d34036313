/**
 * Result Tables for SqlProvider
 *
 * Features:
 * - Named in-memory tables materialized from query results
 * - Column metadata (database type, nullability)
 * - Case-insensitive column lookup
 *
 * Author: SqlProvider Team
 * Created: 2025-02-11
 */

package resultset

import (
	"database/sql"
	"fmt"
	"strings"
)

// DefaultTableName names a result table when the caller gives none.
const DefaultTableName = "RESULT"

// Column describes one result column.
type Column struct {
	Name         string
	DatabaseType string
	Nullable     bool
}

// Table is a named set of rows sharing the same columns.
type Table struct {
	Name    string
	columns []Column
	rows    [][]any
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...Column) *Table {
	if name == "" {
		name = DefaultTableName
	}
	t := &Table{Name: name}
	for _, col := range columns {
		t.AddColumn(col)
	}
	return t
}

// NewTableFromNames creates a table whose columns carry no type metadata.
func NewTableFromNames(name string, columnNames ...string) *Table {
	columns := make([]Column, len(columnNames))
	for i, n := range columnNames {
		columns[i] = Column{Name: n, Nullable: true}
	}
	return NewTable(name, columns...)
}

// Columns returns the table columns in order.
func (t *Table) Columns() []Column {
	return t.columns
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	return names
}

// ColumnIndex finds a column by name, exact match first, then ignoring case.
func (t *Table) ColumnIndex(name string) (int, bool) {
	for i, col := range t.columns {
		if col.Name == name {
			return i, true
		}
	}
	for i, col := range t.columns {
		if strings.EqualFold(col.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// AddColumn appends a column; existing rows get nil for it. A column whose
// name is already present is left as is and its index returned.
func (t *Table) AddColumn(col Column) int {
	if i, ok := t.ColumnIndex(col.Name); ok {
		return i
	}
	return t.appendColumn(col)
}

func (t *Table) appendColumn(col Column) int {
	t.columns = append(t.columns, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}
	return len(t.columns) - 1
}

// claimColumn returns the slot for one result column. A column of the same
// name not yet claimed by this result is reused; otherwise the name gets a
// numeric suffix (id, id1, id2, ...) until a free or new column is found.
func (t *Table) claimColumn(col Column, claimed map[int]bool) int {
	name := col.Name
	for n := 1; ; n++ {
		i, ok := t.ColumnIndex(name)
		if !ok {
			col.Name = name
			i = t.appendColumn(col)
		}
		if !claimed[i] {
			claimed[i] = true
			return i
		}
		name = fmt.Sprintf("%s%d", col.Name, n)
	}
}

// AddRow appends one row. values must match the column count.
func (t *Table) AddRow(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("table %s: row has %d values, want %d", t.Name, len(values), len(t.columns))
	}
	row := make([]any, len(values))
	copy(row, values)
	t.rows = append(t.rows, row)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th row.
func (t *Table) Row(i int) Row {
	return Row{table: t, index: i}
}

// Rows returns every row in order.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i := range t.rows {
		rows[i] = Row{table: t, index: i}
	}
	return rows
}

// Append copies every row of other into t, matching columns by name.
// Columns t lacks are added.
func (t *Table) Append(other *Table) {
	mapping := make([]int, len(other.columns))
	for i, col := range other.columns {
		mapping[i] = t.AddColumn(col)
	}

	for _, src := range other.rows {
		row := make([]any, len(t.columns))
		for i, v := range src {
			row[mapping[i]] = v
		}
		t.rows = append(t.rows, row)
	}
}

// Row is a view of one table row.
type Row struct {
	table *Table
	index int
}

// Table returns the table that owns the row.
func (r Row) Table() *Table {
	return r.table
}

// Values returns the row values in column order.
func (r Row) Values() []any {
	return r.table.rows[r.index]
}

// Value returns the value in column i.
func (r Row) Value(i int) any {
	return r.table.rows[r.index][i]
}

// Get returns the value of the named column.
func (r Row) Get(column string) (any, error) {
	i, ok := r.table.ColumnIndex(column)
	if !ok {
		return nil, fmt.Errorf("table %s has no column %q", r.table.Name, column)
	}
	return r.table.rows[r.index][i], nil
}

// Set stores a value in the named column.
func (r Row) Set(column string, value any) error {
	i, ok := r.table.ColumnIndex(column)
	if !ok {
		return fmt.Errorf("table %s has no column %q", r.table.Name, column)
	}
	r.table.rows[r.index][i] = value
	return nil
}

// Map returns the row keyed by column name.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.table.columns))
	for i, col := range r.table.columns {
		m[col.Name] = r.table.rows[r.index][i]
	}
	return m
}

// RowScanner is the part of *sqlx.Rows a table fills from.
type RowScanner interface {
	Next() bool
	SliceScan() ([]any, error)
	ColumnTypes() ([]*sql.ColumnType, error)
	Err() error
}

// Fill appends every remaining row of rows to t and returns how many were
// read. Result columns missing from t are added; repeated result column
// names each get their own column, suffixed with a counter. Byte slices
// become strings unless the column holds binary data.
func (t *Table) Fill(rows RowScanner) (int, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return 0, fmt.Errorf("failed to read column types: %w", err)
	}

	mapping := make([]int, len(types))
	binary := make([]bool, len(types))
	claimed := make(map[int]bool, len(types))
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		mapping[i] = t.claimColumn(Column{
			Name:         ct.Name(),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     nullable || !ok,
		}, claimed)
		binary[i] = IsBinaryType(ct.DatabaseTypeName())
	}

	count := 0
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return count, fmt.Errorf("failed to scan row %d: %w", count, err)
		}

		row := make([]any, len(t.columns))
		for i, v := range values {
			if b, ok := v.([]byte); ok && !binary[i] {
				v = string(b)
			}
			row[mapping[i]] = v
		}
		t.rows = append(t.rows, row)
		count++
	}

	return count, rows.Err()
}

// IsBinaryType reports whether a database type name holds raw bytes.
func IsBinaryType(databaseType string) bool {
	t := strings.ToUpper(databaseType)
	return strings.Contains(t, "BLOB") ||
		strings.Contains(t, "BYTEA") ||
		strings.Contains(t, "BINARY")
}
