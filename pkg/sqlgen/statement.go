package sqlgen

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/pkg/resultset"
)

// Statement is SQL text with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// String returns the SQL text.
func (s Statement) String() string {
	return s.SQL
}

// Literal wraps literal SQL text as a statement without arguments.
func Literal(sqls ...string) []Statement {
	statements := make([]Statement, len(sqls))
	for i, s := range sqls {
		statements[i] = Statement{SQL: s}
	}
	return statements
}

// Insert builds one parameterized INSERT per row. bindType is an sqlx bind
// type such as sqlx.QUESTION or sqlx.DOLLAR.
func Insert(bindType int, rows []resultset.Row, columns []string, tableName string) ([]Statement, error) {
	const op = "Insert"

	if err := checkTable(op, tableName); err != nil {
		return nil, err
	}

	statements := make([]Statement, 0, len(rows))
	for i, row := range rows {
		cols := columnsFor(row, columns)
		if len(cols) == 0 {
			return nil, errors.New(errors.ErrorTypeFormatting, op, "no columns to insert", nil)
		}

		args, err := values(row, cols)
		if err != nil {
			return nil, errors.New(errors.ErrorTypeFormatting, op, fmt.Sprintf("row %d", i), err)
		}

		query := "INSERT INTO " + tableName + " (" + strings.Join(cols, ",") + ") values (" + placeholders(len(cols)) + ")"
		statements = append(statements, Statement{SQL: sqlx.Rebind(bindType, query), Args: args})
	}

	return statements, nil
}

// Update builds one parameterized UPDATE per row. A key whose value is nil
// is matched with IS NULL.
func Update(bindType int, rows []resultset.Row, tableName string, keyColumns, columns []string) ([]Statement, error) {
	const op = "Update"

	if err := checkTable(op, tableName); err != nil {
		return nil, err
	}
	if len(keyColumns) == 0 {
		return nil, errors.New(errors.ErrorTypeFormatting, op, "at least one key column is required", nil)
	}

	statements := make([]Statement, 0, len(rows))
	for i, row := range rows {
		cols := columnsFor(row, columns)
		if len(cols) == 0 {
			return nil, errors.New(errors.ErrorTypeFormatting, op, "no columns to update", nil)
		}

		args, err := values(row, cols)
		if err != nil {
			return nil, errors.New(errors.ErrorTypeFormatting, op, fmt.Sprintf("row %d", i), err)
		}

		assignments := make([]string, len(cols))
		for j, col := range cols {
			assignments[j] = col + " = ?"
		}

		conditions := make([]string, len(keyColumns))
		for j, key := range keyColumns {
			v, err := row.Get(key)
			if err != nil {
				return nil, errors.New(errors.ErrorTypeFormatting, op, fmt.Sprintf("row %d", i), err)
			}
			if v == nil {
				conditions[j] = key + " IS NULL"
				continue
			}
			conditions[j] = key + " = ?"
			args = append(args, v)
		}

		query := "UPDATE " + tableName + " SET " + strings.Join(assignments, ",") + " WHERE " + strings.Join(conditions, " AND ")
		statements = append(statements, Statement{SQL: sqlx.Rebind(bindType, query), Args: args})
	}

	return statements, nil
}

func values(row resultset.Row, cols []string) ([]any, error) {
	args := make([]any, len(cols))
	for i, col := range cols {
		v, err := row.Get(col)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
