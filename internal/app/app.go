/**
 * Main Application Coordinator for SqlProvider
 *
 * Features:
 * - Dependency injection and initialization
 * - Configuration, logger and data provider bootstrap
 * - Graceful shutdown handling
 * - Signal handling (SIGINT/SIGTERM)
 *
 * Author: SqlProvider Team
 * Updated: 2025-02-11
 */

package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/VatsalSy/SqlProvider/internal/config"
	"github.com/VatsalSy/SqlProvider/internal/drivers"
	"github.com/VatsalSy/SqlProvider/internal/errors"
	"github.com/VatsalSy/SqlProvider/internal/logger"
	"github.com/VatsalSy/SqlProvider/pkg/dataprovider"
)

// App is the main application coordinator.
type App struct {
	config        *config.Config
	logger        *logger.Logger
	closeLog      func() error
	provider      *dataprovider.Provider
	errorHandler  *errors.Handler
	shutdownChan  chan struct{}
	mu            sync.RWMutex
	shutdownOnce  sync.Once
	isInitialized bool
}

// New creates a new application instance.
func New() (*App, error) {
	return &App{
		shutdownChan: make(chan struct{}),
	}, nil
}

// Initialize loads configuration from cfgFile (or the default location)
// and builds the application components.
func (app *App) Initialize(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	return app.InitializeWithConfig(cfg)
}

// InitializeWithConfig builds the application components from cfg.
func (app *App) InitializeWithConfig(cfg *config.Config) error {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.isInitialized {
		return errors.Errorf("application already initialized")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	app.config = cfg

	// Initialize logger
	log, closeLog, err := logger.NewFromOutput(cfg.LogOutput())
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	app.logger = log
	app.closeLog = closeLog
	logger.SetGlobal(log)

	app.logger.Info("Initializing SqlProvider",
		"version", cfg.Version,
		"config", viper.ConfigFileUsed(),
		"driver", cfg.Database.Driver,
	)

	// Initialize error handler
	app.errorHandler = errors.NewHandler(app.logger)
	app.errorHandler.SetRetryPolicy(cfg.RetryPolicy())

	providerConfig, err := ProviderConfig(cfg, "")
	if err != nil {
		return err
	}

	if err := app.initializeDatabase(providerConfig); err != nil {
		return errors.Wrap(err, "failed to initialize database")
	}

	app.provider, err = dataprovider.New(providerConfig,
		dataprovider.WithLogger(app.logger),
		dataprovider.WithErrorHandler(app.errorHandler),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to initialize %s data provider", providerConfig.Driver)
	}

	app.isInitialized = true
	app.logger.Info("Application initialized successfully")

	return nil
}

// ProviderConfig converts application configuration into provider settings.
// connection overrides database.connection when not empty.
func ProviderConfig(cfg *config.Config, connection string) (dataprovider.Config, error) {
	dsn, err := cfg.ConnectionString(connection)
	if err != nil {
		return dataprovider.Config{}, err
	}

	isolation, err := cfg.IsolationLevel()
	if err != nil {
		return dataprovider.Config{}, err
	}

	return dataprovider.Config{
		Driver:               cfg.Database.Driver,
		DSN:                  dsn,
		CommandTimeout:       cfg.Database.CommandTimeout,
		StatementAfterOpen:   cfg.Database.StatementAfterOpen,
		StatementBeforeClose: cfg.Database.StatementBeforeClose,
		Isolation:            isolation,
		MaxOpenConns:         cfg.Database.MaxOpenConns,
		MaxIdleConns:         cfg.Database.MaxIdleConns,
		MaxIdleTime:          time.Duration(cfg.Database.MaxIdleTime) * time.Second,
		LegacySentinelNulls:  cfg.Database.LegacySentinelNulls,
		RateLimit:            cfg.Database.RateLimit,
		RateBurst:            cfg.Database.RateBurst,
		Retry:                cfg.RetryPolicy(),
	}, nil
}

// Provider returns the data provider.
func (app *App) Provider() (*dataprovider.Provider, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if err := app.ensureReady(); err != nil {
		return nil, err
	}
	return app.provider, nil
}

// NewSession returns a fresh session on the data provider.
func (app *App) NewSession() (*dataprovider.Session, error) {
	provider, err := app.Provider()
	if err != nil {
		return nil, err
	}
	return provider.NewSession(), nil
}

// Config returns the loaded configuration.
func (app *App) Config() *config.Config {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.config
}

// Logger returns the application logger.
func (app *App) Logger() *logger.Logger {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if app.logger == nil {
		return logger.Nop()
	}
	return app.logger
}

// ErrorHandler returns the application error handler.
func (app *App) ErrorHandler() *errors.Handler {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.errorHandler
}

// Context returns a context canceled on SIGINT/SIGTERM or when the
// application stops.
func (app *App) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go app.handleSignals(ctx, cancel)
	return ctx, cancel
}

// Stop stops the application gracefully.
func (app *App) Stop() error {
	var stopErr error

	app.shutdownOnce.Do(func() {
		close(app.shutdownChan)

		app.mu.Lock()
		defer app.mu.Unlock()

		if app.logger != nil {
			app.logger.Info("Shutting down SqlProvider...")
		}

		// Close data provider
		if app.provider != nil {
			if err := app.provider.Close(); err != nil {
				app.logger.Error(err, "Failed to close data provider")
				stopErr = err
			}
		}

		if app.logger != nil {
			app.logger.Info("SqlProvider shutdown complete")
		}

		if app.closeLog != nil {
			if err := app.closeLog(); err != nil && stopErr == nil {
				stopErr = err
			}
		}
	})

	return stopErr
}

// Private methods

// initializeDatabase creates the directory of a file-backed sqlite database.
func (app *App) initializeDatabase(cfg dataprovider.Config) error {
	driver, err := drivers.Normalize(cfg.Driver)
	if err != nil {
		return err
	}
	if driver != drivers.SQLite {
		return nil
	}

	path := strings.TrimPrefix(cfg.DSN, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}

	dbDir := filepath.Dir(path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}

	app.logger.Info("Database directory ready", "path", dbDir)
	return nil
}

func (app *App) ensureReady() error {
	if !app.isInitialized {
		return errors.Errorf("application not initialized")
	}
	return nil
}

func (app *App) handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	app.setupSignalHandling(sigChan)
	defer app.stopSignalHandling(sigChan)

	select {
	case sig := <-sigChan:
		app.Logger().Info("Received signal", "signal", sig.String())
		cancel()
	case <-app.shutdownChan:
		cancel()
	case <-ctx.Done():
	}
}
