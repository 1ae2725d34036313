/**
 * Session Connection and Transaction Management for SqlProvider
 *
 * A session owns at most one connection checked out of the pool and at
 * most one transaction on it. Outside a transaction the connection is
 * released after every operation; inside one it stays open until commit
 * or rollback. Every exported method holds the session lock, so a session
 * serves one caller at a time.
 *
 * Author: SqlProvider Team
 * Created: 2025-02-11
 */

package dataprovider

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/VatsalSy/SqlProvider/internal/drivers"
	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/internal/logger"
)

// Session is one logical connection to the database.
type Session struct {
	provider *Provider
	log      *logger.Logger
	conn     *sqlx.Conn
	tx       *sqlx.Tx

	commandTimeout       int
	statementAfterOpen   string
	statementBeforeClose string
	isolation            sql.IsolationLevel

	mu sync.Mutex
}

// executor is satisfied by both *sqlx.Conn and *sqlx.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

var (
	_ executor = (*sqlx.Conn)(nil)
	_ executor = (*sqlx.Tx)(nil)
)

// OpenConnection checks out a connection, verifies it and runs the
// post-open statement. It does nothing when a connection is already open.
// Transient failures are retried with backoff.
func (s *Session) OpenConnection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.open(ctx)
}

// CloseConnection rolls back a dangling transaction, runs the pre-close
// statement and releases the connection. It does nothing when no
// connection is open.
func (s *Session) CloseConnection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.close(ctx)
}

// BeginTransaction starts a transaction on the open connection. It returns
// false when a transaction already exists or no connection is open.
func (s *Session) BeginTransaction(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx != nil || s.conn == nil {
		return false, nil
	}

	if err := s.begin(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// CommitTransaction commits the active transaction and closes the
// connection. It returns false when no transaction exists.
func (s *Session) CommitTransaction(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return false, nil
	}
	return true, s.commit(ctx)
}

// RollbackTransaction rolls back the active transaction and closes the
// connection. It returns false when no transaction exists.
func (s *Session) RollbackTransaction(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tx == nil {
		return false, nil
	}
	return true, s.rollback(ctx)
}

// InTransaction reports whether a transaction is active.
func (s *Session) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tx != nil
}

// IsOpen reports whether the session holds a connection.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.conn != nil
}

// SetCommandTimeout sets the per-command timeout in seconds. -1 keeps the
// engine default and 0 disables the limit.
func (s *Session) SetCommandTimeout(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commandTimeout = seconds
}

// CommandTimeout returns the per-command timeout in seconds.
func (s *Session) CommandTimeout() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.commandTimeout
}

// SetStatementAfterOpen sets the statement run right after a connection opens.
func (s *Session) SetStatementAfterOpen(statement string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statementAfterOpen = statement
}

// SetStatementBeforeClose sets the statement run right before a connection closes.
func (s *Session) SetStatementBeforeClose(statement string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statementBeforeClose = statement
}

// SetIsolation sets the isolation level of future transactions. A level
// the driver rejects is replaced by the driver default.
func (s *Session) SetIsolation(level sql.IsolationLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resolved, ok := drivers.ResolveIsolation(s.provider.Driver(), level)
	if !ok {
		s.log.Warn("Isolation level not supported by driver, using driver default",
			"requested", level.String())
	}
	s.isolation = resolved
}

// Isolation returns the isolation level of future transactions.
func (s *Session) Isolation() sql.IsolationLevel {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.isolation
}

// The helpers below expect s.mu to be held.

func (s *Session) open(ctx context.Context) error {
	if s.conn != nil {
		return nil
	}

	return s.provider.errs.Retry(ctx, "OpenConnection", func() error {
		return s.connect(ctx)
	})
}

func (s *Session) connect(ctx context.Context) error {
	const op = "OpenConnection"

	conn, err := s.provider.db.Connx(ctx)
	if err != nil {
		return s.provider.errs.Translate(op, errors.ErrorTypeConnectionFailed, "failed to acquire connection", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return s.provider.errs.Translate(op, errors.ErrorTypeConnectionFailed, "connection ping failed", err)
	}

	if strings.TrimSpace(s.statementAfterOpen) != "" {
		cctx, cancel := s.commandContext(ctx)
		_, err := conn.ExecContext(cctx, s.statementAfterOpen)
		cancel()
		if err != nil {
			conn.Close()
			return s.provider.errs.Translate(op, errors.ErrorTypeConnectionFailed, "post-open statement failed", err)
		}
	}

	s.conn = conn
	s.log.Debug("Connection opened")
	return nil
}

func (s *Session) close(ctx context.Context) error {
	const op = "CloseConnection"

	if s.conn == nil {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	var firstErr error
	if s.tx != nil {
		s.log.Warn("Rolling back transaction left open at close")
		if err := s.tx.Rollback(); err != nil {
			firstErr = s.provider.errs.Translate(op, errors.ErrorTypeTransactionState, "rollback at close failed", err)
		}
		s.tx = nil
	}

	if strings.TrimSpace(s.statementBeforeClose) != "" {
		cctx, cancel := s.commandContext(ctx)
		_, err := s.conn.ExecContext(cctx, s.statementBeforeClose)
		cancel()
		if err != nil && firstErr == nil {
			firstErr = s.provider.errs.Translate(op, errors.ErrorTypeConnectionFailed, "pre-close statement failed", err)
		}
	}

	err := s.conn.Close()
	s.conn = nil
	if err != nil && firstErr == nil {
		firstErr = s.provider.errs.Translate(op, errors.ErrorTypeConnectionFailed, "failed to release connection", err)
	}

	s.log.Debug("Connection closed")
	return firstErr
}

func (s *Session) begin(ctx context.Context) error {
	tx, err := s.conn.BeginTxx(ctx, &sql.TxOptions{Isolation: s.isolation})
	if err != nil {
		s.tx = nil
		s.close(ctx)
		return s.provider.errs.Translate("BeginTransaction", errors.ErrorTypeTransactionState, "failed to begin transaction", err)
	}

	s.tx = tx
	s.log.Debug("Transaction started", "isolation", s.isolation.String())
	return nil
}

func (s *Session) commit(ctx context.Context) error {
	err := s.tx.Commit()
	s.tx = nil
	closeErr := s.close(ctx)

	if err != nil {
		return s.provider.errs.Translate("CommitTransaction", errors.ErrorTypeTransactionState, "commit failed", err)
	}
	s.log.Debug("Transaction committed")
	return closeErr
}

func (s *Session) rollback(ctx context.Context) error {
	err := s.tx.Rollback()
	s.tx = nil
	closeErr := s.close(ctx)

	if err != nil {
		return s.provider.errs.Translate("RollbackTransaction", errors.ErrorTypeTransactionState, "rollback failed", err)
	}
	s.log.Debug("Transaction rolled back")
	return closeErr
}

// release closes the connection unless a transaction keeps it open.
func (s *Session) release(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}
	return s.close(ctx)
}

func (s *Session) executor() executor {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

// commandContext applies the command timeout to ctx.
func (s *Session) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.commandTimeout > 0 {
		return context.WithTimeout(ctx, time.Duration(s.commandTimeout)*time.Second)
	}
	return context.WithCancel(ctx)
}
