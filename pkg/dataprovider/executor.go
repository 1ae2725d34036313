package dataprovider

import (
	"context"
	"fmt"
	"sort"

	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/pkg/resultset"
	"github.com/VatsalSy/SqlProvider/pkg/sqlgen"
)

// ExecuteCommand runs a non-query and returns the number of affected rows.
func (s *Session) ExecuteCommand(ctx context.Context, query string, args ...any) (int64, error) {
	return s.Execute(ctx, NewCommand(query, args...))
}

// Execute runs cmd as a non-query and returns the number of affected rows.
// The connection is released afterwards unless a transaction is active.
func (s *Session) Execute(ctx context.Context, cmd *Command) (n int64, err error) {
	const op = "ExecuteCommand"

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseInto(ctx, &err)

	n, err = s.exec(ctx, op, cmd)
	if err != nil {
		return 0, err
	}

	s.log.Debug("Command executed", "rows_affected", n)
	return n, nil
}

// ExecuteScalar runs a query and returns the first column of the first
// row, or nil when there are no rows.
func (s *Session) ExecuteScalar(ctx context.Context, query string, args ...any) (any, error) {
	return s.Scalar(ctx, NewCommand(query, args...))
}

// Scalar runs cmd as a query and returns the first column of the first row.
func (s *Session) Scalar(ctx context.Context, cmd *Command) (value any, err error) {
	const op = "ExecuteScalar"

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseInto(ctx, &err)

	table := resultset.NewTable(resultset.DefaultTableName)
	if err := s.fetch(ctx, op, cmd, table, 1); err != nil {
		return nil, err
	}

	if table.Len() > 0 && len(table.Columns()) > 0 {
		value = table.Row(0).Value(0)
	}

	s.log.Debug("Scalar executed", "found", table.Len() > 0)
	return value, nil
}

// Query runs a query into a new result set under the default table name.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*resultset.Set, error) {
	return s.FetchRows(ctx, NewCommand(query, args...), "", nil)
}

// FetchRows runs cmd and merges its rows into into under tableName
// (resultset.DefaultTableName when empty). A nil into gets a new set.
func (s *Session) FetchRows(ctx context.Context, cmd *Command, tableName string, into *resultset.Set) (set *resultset.Set, err error) {
	const op = "FetchRows"

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseInto(ctx, &err)

	if into == nil {
		into = resultset.NewSet()
	}

	table := resultset.NewTable(tableName)
	if err := s.fetch(ctx, op, cmd, table, -1); err != nil {
		return nil, err
	}
	into.MergeTable(table)

	return into, nil
}

// AppendRows reads the rows of query one by one into the first table of
// into, creating the table when into is empty.
func (s *Session) AppendRows(ctx context.Context, query string, into *resultset.Set) (set *resultset.Set, err error) {
	const op = "AppendRows"

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseInto(ctx, &err)

	if into == nil {
		into = resultset.NewSet()
	}

	table := into.First()
	if table == nil {
		table = resultset.NewTable(resultset.DefaultTableName)
		into.MergeTable(table)
	}

	if err := s.fetch(ctx, op, NewCommand(query), table, -1); err != nil {
		return nil, err
	}

	return into, nil
}

// FetchBatch runs every query into one set, naming tables RESULT0,
// RESULT1 and so on.
func (s *Session) FetchBatch(ctx context.Context, queries []string) (*resultset.Set, error) {
	commands := make([]*Command, len(queries))
	for i, q := range queries {
		commands[i] = NewCommand(q)
	}
	return s.FetchCommands(ctx, commands)
}

// FetchCommands runs every command into one set, naming tables RESULT0,
// RESULT1 and so on.
func (s *Session) FetchCommands(ctx context.Context, commands []*Command) (set *resultset.Set, err error) {
	const op = "FetchCommands"

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseInto(ctx, &err)

	set = resultset.NewSet()
	for i, cmd := range commands {
		table := resultset.NewTable(fmt.Sprintf("%s%d", resultset.DefaultTableName, i))
		if err := s.fetch(ctx, op, cmd, table, -1); err != nil {
			return nil, err
		}
		set.MergeTable(table)
	}

	return set, nil
}

// FetchNamed runs each query into a table named by its key. Queries run in
// key order.
func (s *Session) FetchNamed(ctx context.Context, queries map[string]string) (set *resultset.Set, err error) {
	const op = "FetchNamed"

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.releaseInto(ctx, &err)

	names := make([]string, 0, len(queries))
	for name := range queries {
		names = append(names, name)
	}
	sort.Strings(names)

	set = resultset.NewSet()
	for _, name := range names {
		table := resultset.NewTable(name)
		if err := s.fetch(ctx, op, NewCommand(queries[name]), table, -1); err != nil {
			return nil, err
		}
		set.MergeTable(table)
	}

	return set, nil
}

// ExecuteStatements runs statements in one transaction and returns the
// total number of affected rows. The first failure rolls everything back.
// Inside an active transaction the statements join it and the caller
// decides the outcome.
func (s *Session) ExecuteStatements(ctx context.Context, statements []sqlgen.Statement) (total int64, err error) {
	const op = "ExecuteStatements"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil {
		return s.execAll(ctx, op, statements)
	}

	defer s.releaseInto(ctx, &err)

	if err := s.open(ctx); err != nil {
		return 0, err
	}
	if err := s.begin(ctx); err != nil {
		return 0, err
	}

	total, err = s.execAll(ctx, op, statements)
	if err != nil {
		if rbErr := s.rollback(ctx); rbErr != nil {
			s.log.Error(rbErr, "Rollback after failed statement failed")
		}
		return 0, err
	}

	if err := s.commit(ctx); err != nil {
		return 0, err
	}

	s.log.Debug("Statements executed", "statements", len(statements), "rows_affected", total)
	return total, nil
}

func (s *Session) execAll(ctx context.Context, op string, statements []sqlgen.Statement) (int64, error) {
	var total int64
	for i, stmt := range statements {
		n, err := s.exec(ctx, op, NewCommand(stmt.SQL, stmt.Args...))
		if err != nil {
			var e *errors.Error
			if errors.AsError(err, &e) {
				e.WithContext("statement", i)
			}
			return total, err
		}
		total += n
	}
	return total, nil
}

// exec opens the connection if needed and runs cmd as a non-query.
func (s *Session) exec(ctx context.Context, op string, cmd *Command) (int64, error) {
	query, args, err := s.prepare(ctx, op, cmd)
	if err != nil {
		return 0, err
	}

	cctx, cancel := s.commandContext(ctx)
	defer cancel()

	result, err := s.executor().ExecContext(cctx, query, args...)
	if err != nil {
		return 0, s.provider.errs.TranslateContext(cctx, op, errors.ErrorTypeCommandFailed, "command execution failed", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, s.provider.errs.TranslateContext(cctx, op, errors.ErrorTypeCommandFailed, "failed to read affected rows", err)
	}
	return n, nil
}

// fetch opens the connection if needed and fills table with the rows of
// cmd, reading at most limit rows when limit is positive.
func (s *Session) fetch(ctx context.Context, op string, cmd *Command, table *resultset.Table, limit int) error {
	query, args, err := s.prepare(ctx, op, cmd)
	if err != nil {
		return err
	}

	cctx, cancel := s.commandContext(ctx)
	defer cancel()

	rows, err := s.executor().QueryxContext(cctx, query, args...)
	if err != nil {
		return s.provider.errs.TranslateContext(cctx, op, errors.ErrorTypeQueryFailed, "query execution failed", err)
	}
	defer rows.Close()

	var scanner resultset.RowScanner = rows
	if limit > 0 {
		scanner = &limitedRows{RowScanner: rows, remaining: limit}
	}

	n, err := table.Fill(scanner)
	if err != nil {
		return s.provider.errs.TranslateContext(cctx, op, errors.ErrorTypeQueryFailed, "failed to read rows", err)
	}

	s.log.Debug("Rows fetched", "table", table.Name, "rows", n)
	return nil
}

// prepare opens the connection, binds cmd and waits for the limiter.
func (s *Session) prepare(ctx context.Context, op string, cmd *Command) (string, []any, error) {
	if cmd == nil || cmd.SQL == "" {
		return "", nil, errors.New(errors.ErrorTypeCommandFailed, op, "empty command", nil)
	}

	if err := s.open(ctx); err != nil {
		return "", nil, err
	}

	query, args, err := cmd.bind(s.provider.BindType())
	if err != nil {
		return "", nil, s.provider.errs.Translate(op, errors.ErrorTypeFormatting, "parameter binding failed", err)
	}

	if s.provider.config.LegacySentinelNulls {
		for i, v := range args {
			if normalized := NormalizeValue(v); normalized == nil && v != nil {
				s.log.Warn("Replaced sentinel parameter value with NULL",
					"operation", op,
					"position", i,
					"type", fmt.Sprintf("%T", v),
				)
				args[i] = nil
			}
		}
	}

	if s.provider.limiter != nil {
		if err := s.provider.limiter.Wait(ctx); err != nil {
			return "", nil, s.provider.errs.Translate(op, errors.ErrorTypeContext, "rate limit wait canceled", err)
		}
	}

	if s.log.IsDebugEnabled() {
		s.log.Debug("Running command", "operation", op, "sql", query, "params", len(args))
	}

	return query, args, nil
}

// releaseInto releases the connection and reports a release failure
// through errp when the operation itself succeeded.
func (s *Session) releaseInto(ctx context.Context, errp *error) {
	if err := s.release(ctx); err != nil && *errp == nil {
		*errp = err
	}
}

// limitedRows stops after a fixed number of rows.
type limitedRows struct {
	resultset.RowScanner
	remaining int
}

func (l *limitedRows) Next() bool {
	if l.remaining <= 0 {
		return false
	}
	l.remaining--
	return l.RowScanner.Next()
}
