/**
 * Data Provider for SqlProvider
 *
 * Features:
 * - Connection pool management over sqlx
 * - Session factory with shared error handling and rate limiting
 * - Transaction helper for callback-style units of work
 * - Health checks
 *
 * Author: SqlProvider Team
 * Created: 2025-02-11
 */

package dataprovider

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/VatsalSy/SqlProvider/internal/drivers"
	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/internal/logger"
)

// Config holds provider and session settings.
type Config struct {
	Driver string
	DSN    string

	// CommandTimeout in seconds. -1 leaves the engine default, 0 means
	// no limit; neither sets a deadline.
	CommandTimeout int

	StatementAfterOpen   string
	StatementBeforeClose string
	Isolation            sql.IsolationLevel

	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration

	// LegacySentinelNulls replaces sentinel values with NULL when binding.
	LegacySentinelNulls bool

	// RateLimit in commands per second, 0 disables limiting.
	RateLimit float64
	RateBurst int

	Retry errors.RetryPolicy
}

// DefaultConfig returns default provider configuration.
func DefaultConfig() Config {
	return Config{
		Driver:         drivers.SQLite,
		CommandTimeout: -1,
		Isolation:      sql.LevelReadUncommitted,
		MaxOpenConns:   10,
		MaxIdleConns:   2,
		MaxIdleTime:    5 * time.Minute,
		RateBurst:      10,
		Retry:          errors.DefaultRetryPolicy,
	}
}

// Provider owns the connection pool and hands out sessions.
// It is safe for concurrent use.
type Provider struct {
	db       *sqlx.DB
	config   Config
	log      *logger.Logger
	errs     *errors.Handler
	limiter  *CommandLimiter
	ownsDB   bool
	sessions atomic.Int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// WithDB uses an existing pool instead of opening one. The provider does
// not close it.
func WithDB(db *sqlx.DB) Option {
	return func(p *Provider) {
		p.db = db
	}
}

// WithErrorHandler uses h for error translation and connection retries.
// The retry policy of cfg, when set, still applies to h.
func WithErrorHandler(h *errors.Handler) Option {
	return func(p *Provider) {
		p.errs = h
	}
}

// WithLimiter shares a command limiter between providers.
func WithLimiter(l *CommandLimiter) Option {
	return func(p *Provider) {
		p.limiter = l
	}
}

// New creates a provider from cfg.
func New(cfg Config, opts ...Option) (*Provider, error) {
	p := &Provider{
		config: cfg,
		log:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.log = p.log.ForComponent("dataprovider")
	if p.errs == nil {
		p.errs = errors.NewHandler(p.log)
	}
	if cfg.Retry.MaxAttempts > 0 {
		p.errs.SetRetryPolicy(cfg.Retry)
	}

	if p.db == nil {
		db, err := drivers.Open(cfg.Driver, cfg.DSN, drivers.PoolOptions{
			MaxOpenConns: cfg.MaxOpenConns,
			MaxIdleConns: cfg.MaxIdleConns,
			MaxIdleTime:  cfg.MaxIdleTime,
		})
		if err != nil {
			return nil, p.errs.Translate("New", errors.ErrorTypeConfiguration, "failed to open pool", err)
		}
		p.db = db
		p.ownsDB = true
	}
	p.config.Driver = p.db.DriverName()

	if level, ok := drivers.ResolveIsolation(p.config.Driver, cfg.Isolation); !ok {
		p.log.Warn("Isolation level not supported by driver, using driver default",
			"driver", p.config.Driver,
			"requested", cfg.Isolation.String(),
		)
		p.config.Isolation = level
	}

	if p.limiter == nil && cfg.RateLimit > 0 {
		p.limiter = NewCommandLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	p.log.Debug("Data provider created",
		"driver", p.config.Driver,
		"command_timeout", cfg.CommandTimeout,
		"legacy_sentinel_nulls", cfg.LegacySentinelNulls,
		"rate_limit", cfg.RateLimit,
	)

	return p, nil
}

// NewSession creates a session with the provider defaults. The session
// opens its connection lazily.
func (p *Provider) NewSession() *Session {
	id := p.sessions.Add(1)
	return &Session{
		provider:             p,
		log:                  p.log.With("session", id),
		commandTimeout:       p.config.CommandTimeout,
		statementAfterOpen:   p.config.StatementAfterOpen,
		statementBeforeClose: p.config.StatementBeforeClose,
		isolation:            p.config.Isolation,
	}
}

// WithSession runs fn with a fresh session and closes it afterwards. A
// transaction left open by fn is rolled back.
func (p *Provider) WithSession(ctx context.Context, fn func(*Session) error) error {
	s := p.NewSession()
	err := fn(s)
	if closeErr := s.CloseConnection(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// WithTx runs fn inside a transaction on a fresh session. The transaction
// commits when fn returns nil and rolls back otherwise.
func (p *Provider) WithTx(ctx context.Context, fn func(*Session) error) error {
	return p.WithSession(ctx, func(s *Session) error {
		if err := s.OpenConnection(ctx); err != nil {
			return err
		}

		started, err := s.BeginTransaction(ctx)
		if err != nil {
			return err
		}
		if !started {
			return errors.New(errors.ErrorTypeTransactionState, "WithTx", "transaction could not be started", nil)
		}

		if err := fn(s); err != nil {
			if _, rbErr := s.RollbackTransaction(ctx); rbErr != nil {
				return fmt.Errorf("transaction failed: %w, rollback failed: %w", err, rbErr)
			}
			return err
		}

		_, err = s.CommitTransaction(ctx)
		return err
	})
}

// HealthCheck pings the database and runs a trivial query.
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.log.LogOperation("HealthCheck", func() error {
		if err := drivers.Ping(ctx, p.db); err != nil {
			return err
		}

		var result int
		if err := p.db.GetContext(ctx, &result, "SELECT 1"); err != nil {
			return p.errs.TranslateContext(ctx, "HealthCheck", errors.ErrorTypeQueryFailed, "test query failed", err)
		}
		return nil
	})
}

// DB returns the underlying pool.
func (p *Provider) DB() *sqlx.DB {
	return p.db
}

// Driver returns the registered driver name.
func (p *Provider) Driver() string {
	return p.config.Driver
}

// BindType returns the placeholder style of the driver, for use with
// sqlgen.Insert and sqlgen.Update.
func (p *Provider) BindType() int {
	return drivers.BindType(p.config.Driver)
}

// Config returns the provider configuration.
func (p *Provider) Config() Config {
	return p.config
}

// ErrorHandler returns the handler translating errors of this provider.
func (p *Provider) ErrorHandler() *errors.Handler {
	return p.errs
}

// Limiter returns the command limiter, nil when unlimited.
func (p *Provider) Limiter() *CommandLimiter {
	return p.limiter
}

// Stats returns pool statistics.
func (p *Provider) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close closes the pool when the provider opened it.
func (p *Provider) Close() error {
	if !p.ownsDB {
		return nil
	}
	return p.db.Close()
}
