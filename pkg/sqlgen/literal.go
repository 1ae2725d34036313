/**
 * SQL Statement Generation for SqlProvider
 *
 * Builds INSERT and UPDATE statements from result table rows. Two modes:
 * - Parameterized (default): placeholders in the driver's bind style plus
 *   an argument slice per statement
 * - Literal (legacy): values rendered inline as SQL text
 *
 * Literal statements embed values as text and are only as safe as
 * FormatValue's quoting. Prefer Insert and Update.
 *
 * Author: SqlProvider Team
 * Created: 2025-02-11
 */

package sqlgen

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/pkg/resultset"
)

// Null is how a value without a literal form is rendered.
const Null = "NULL"

const timestampLayout = "2006-01-02 15:04:05"

// BuildInsertStatements renders one literal INSERT per row. A nil columns
// slice means every column of the row's table.
func BuildInsertStatements(rows []resultset.Row, columns []string, tableName string) ([]string, error) {
	const op = "BuildInsertStatements"

	if err := checkTable(op, tableName); err != nil {
		return nil, err
	}

	statements := make([]string, 0, len(rows))
	for i, row := range rows {
		cols := columnsFor(row, columns)
		if len(cols) == 0 {
			return nil, errors.New(errors.ErrorTypeFormatting, op, "no columns to insert", nil)
		}

		values := make([]string, len(cols))
		for j, col := range cols {
			v, err := row.Get(col)
			if err != nil {
				return nil, errors.New(errors.ErrorTypeFormatting, op, fmt.Sprintf("row %d", i), err)
			}
			values[j] = FormatValue(v)
		}

		statements = append(statements, "INSERT INTO "+tableName+
			" ("+strings.Join(cols, ",")+") values ("+strings.Join(values, ",")+")")
	}

	return statements, nil
}

// BuildUpdateStatements renders one literal UPDATE per row, setting columns
// (every column of the row's table when nil) where keyColumns match.
func BuildUpdateStatements(rows []resultset.Row, tableName string, keyColumns, columns []string) ([]string, error) {
	const op = "BuildUpdateStatements"

	if err := checkTable(op, tableName); err != nil {
		return nil, err
	}
	if len(keyColumns) == 0 {
		return nil, errors.New(errors.ErrorTypeFormatting, op, "at least one key column is required", nil)
	}

	statements := make([]string, 0, len(rows))
	for i, row := range rows {
		cols := columnsFor(row, columns)
		if len(cols) == 0 {
			return nil, errors.New(errors.ErrorTypeFormatting, op, "no columns to update", nil)
		}

		assignments := make([]string, len(cols))
		for j, col := range cols {
			v, err := row.Get(col)
			if err != nil {
				return nil, errors.New(errors.ErrorTypeFormatting, op, fmt.Sprintf("row %d", i), err)
			}
			assignments[j] = col + " = " + FormatValue(v)
		}

		where, err := WhereClause(row, keyColumns)
		if err != nil {
			return nil, err
		}

		statements = append(statements, "UPDATE "+tableName+" SET "+strings.Join(assignments, ",")+" WHERE "+where)
	}

	return statements, nil
}

// WhereClause renders the key columns of row as an AND-joined condition. A
// key whose value has no literal form becomes "key IS NULL".
func WhereClause(row resultset.Row, keyColumns []string) (string, error) {
	if len(keyColumns) == 0 {
		return "", errors.New(errors.ErrorTypeFormatting, "WhereClause", "at least one key column is required", nil)
	}

	conditions := make([]string, len(keyColumns))
	for i, key := range keyColumns {
		v, err := row.Get(key)
		if err != nil {
			return "", errors.New(errors.ErrorTypeFormatting, "WhereClause", "key column lookup failed", err)
		}

		literal := FormatValue(v)
		if literal == Null {
			conditions[i] = key + " IS NULL"
		} else {
			conditions[i] = key + " = " + literal
		}
	}

	return strings.Join(conditions, " AND "), nil
}

// FormatValue renders v as a SQL literal. Numbers are written as is;
// strings, times and durations are single-quoted with embedded quotes
// doubled. Anything else, nil included, renders as NULL.
func FormatValue(v any) string {
	if valuer, ok := v.(driver.Valuer); ok {
		resolved, err := valuer.Value()
		if err != nil {
			return Null
		}
		v = resolved
	}

	switch t := v.(type) {
	case nil:
		return Null
	case string:
		return quote(t)
	case time.Time:
		return quote(t.Format(timestampLayout))
	case time.Duration:
		return quote(formatDuration(t))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32)
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.String:
		return quote(rv.String())
	case reflect.Pointer:
		if rv.IsNil() {
			return Null
		}
		return FormatValue(rv.Elem().Interface())
	}

	return Null
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// formatDuration writes d as [-][d.]hh:mm:ss[.fffffff]
func formatDuration(d time.Duration) string {
	var b strings.Builder
	if d < 0 {
		b.WriteByte('-')
		d = -d
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second

	if days > 0 {
		fmt.Fprintf(&b, "%d.", days)
	}
	fmt.Fprintf(&b, "%02d:%02d:%02d", hours, minutes, seconds)
	if d > 0 {
		fmt.Fprintf(&b, ".%07d", d/100)
	}

	return b.String()
}

func columnsFor(row resultset.Row, columns []string) []string {
	if columns != nil {
		return columns
	}
	return row.Table().ColumnNames()
}

func checkTable(op, tableName string) error {
	if strings.TrimSpace(tableName) == "" {
		return errors.New(errors.ErrorTypeFormatting, op, "table name is required", nil)
	}
	return nil
}
